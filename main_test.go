package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buffos/go-weave/weave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.DiscardHandler)

var updateGolden = flag.Bool("update", false, "rewrite the SVG snapshots in testdata")

// presetSession loads and applies an embedded pattern with the default config.
func presetSession(t *testing.T, name string) *weave.Session {
	t.Helper()
	src := sourceFlags{preset: name}
	sess, err := src.session(defaultConfig(), discardLogger)
	require.NoError(t, err)
	return sess
}

// TestSVGGeneration performs SVG comparison testing against snapshots in
// testdata. Run with -update to rewrite them.
func TestSVGGeneration(t *testing.T) {
	testDataDir := "testdata"

	cfg := defaultConfig()
	for _, name := range listPresets() {
		t.Run(name, func(t *testing.T) {
			sess := presetSession(t, name)
			generatedSVG, err := GenerateSVG(sess.Render(cfg.palette()), sess.Geometry().Layout, cfg.Colors.Background)
			if err != nil {
				t.Fatalf("Error generating SVG for %s: %v", name, err)
			}

			expectedSVGFile := filepath.Join(testDataDir, name+".expected.svg")
			if *updateGolden {
				if writeErr := os.WriteFile(expectedSVGFile, []byte(generatedSVG), 0644); writeErr != nil {
					t.Fatalf("Failed to write expected SVG %s: %v", expectedSVGFile, writeErr)
				}
				return
			}
			expectedSVGBytes, err := os.ReadFile(expectedSVGFile)
			if err != nil {
				t.Fatalf("Error reading expected SVG file %s (run with -update to create it): %v", expectedSVGFile, err)
			}

			// Normalize line endings for comparison
			normalizedGenerated := strings.ReplaceAll(generatedSVG, "\r\n", "\n")
			normalizedExpected := strings.ReplaceAll(string(expectedSVGBytes), "\r\n", "\n")

			if normalizedGenerated != normalizedExpected {
				diff := findFirstDifference(normalizedExpected, normalizedGenerated)
				t.Errorf("Generated SVG for %s does not match %s.\nFirst difference near character %d:\nEXPECTED:\n...%s...\nGOT:\n...%s...",
					name, expectedSVGFile,
					diff.Index, diff.ExpectedContext, diff.GotContext)
				failedFile := filepath.Join(testDataDir, name+".failed.svg")
				os.WriteFile(failedFile, []byte(generatedSVG), 0644)
				t.Logf("Wrote differing output to %s", failedFile)
			}
		})
	}
}

func TestGenerateSVGStructure(t *testing.T) {
	cfg := defaultConfig()
	sess := presetSession(t, "plain-4")
	svg, err := GenerateSVG(sess.Render(cfg.palette()), sess.Geometry().Layout, "#ffffff")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Contains(t, svg, `<linearGradient id="warp-grad" x1="0" y1="0" x2="1" y2="0">`)
	assert.Contains(t, svg, `<linearGradient id="weft-grad" x1="0" y1="0" x2="0" y2="1">`)
	assert.Contains(t, svg, `<radialGradient id="selvage-left"`)
	assert.Contains(t, svg, `<radialGradient id="selvage-right"`)
	assert.Contains(t, svg, `stop-opacity="0.67"`, "left selvage ends in a translucent stop")

	// Four warp threads of nine segments each; a full 4x4 pattern has a
	// selvage turn between every pair of rows.
	assert.Equal(t, 36, strings.Count(svg, `class="warp"`))
	assert.Equal(t, 3, strings.Count(svg, `<path class="selvage"`))
	assert.Contains(t, svg, "<g transform=\"translate(")
}

func TestGenerateSVGGrowsForSelvages(t *testing.T) {
	sess := presetSession(t, "plain-4")
	svg, err := GenerateSVG(sess.Render(weave.DefaultPalette()), sess.Geometry().Layout, "#fff")
	require.NoError(t, err)
	assert.NotContains(t, svg, `<svg width="800" height="800"`, "selvage arcs reach past the canvas edge")
}

func TestGenerateSVGEmpty(t *testing.T) {
	_, err := GenerateSVG(nil, weave.DefaultLayout(), "#fff")
	assert.Error(t, err)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"basket-8", "plain-4", "stripes-5", "twill-6"}, listPresets())

	for _, name := range listPresets() {
		records, err := loadPreset(name)
		require.NoError(t, err, name)
		sess, err := weave.NewSession(2, weave.WithLogger(discardLogger))
		require.NoError(t, err)
		n, err := sess.Load(records)
		require.NoError(t, err, name)
		assert.Equal(t, sess.N()*sess.N(), n, "%s fills its grid exactly", name)
		assert.True(t, sess.ApplyAll().Complete(), name)
	}

	_, err := loadPreset("missing")
	assert.ErrorContains(t, err, "plain-4")
}

func TestApplyMoves(t *testing.T) {
	sess, err := weave.NewSession(3, weave.WithLogger(discardLogger))
	require.NoError(t, err)

	applied, err := applyMoves(sess, "U d, +-")
	require.NoError(t, err)
	assert.Equal(t, 4, applied)
	kinds := []weave.Kind{}
	for _, c := range sess.History().Commands() {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []weave.Kind{weave.Raise, weave.Lower, weave.Raise, weave.Lower}, kinds)

	_, err = applyMoves(sess, "UX")
	assert.ErrorContains(t, err, "unknown decision")
}

func TestApplyMovesStopsCountingWhenComplete(t *testing.T) {
	sess, err := weave.NewSession(2, weave.WithLogger(discardLogger))
	require.NoError(t, err)
	applied, err := applyMoves(sess, strings.Repeat("U", 10))
	require.NoError(t, err)
	assert.Equal(t, sess.History().Len(), applied)
	assert.Less(t, applied, 10)
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#8c8c8c")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x8c), c.R)
	assert.Equal(t, uint8(0xff), c.A)

	c, err = parseHexColor("#8c8c8cab")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xab), c.A)

	c, err = parseHexColor("#fff")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), c.G)

	for _, bad := range []string{"", "8c8c8c", "#12345", "#zzzzzz"} {
		_, err := parseHexColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &amp; &lt;b&gt; &quot;c&quot; &#39;d&#39;", escapeXML(`a & <b> "c" 'd'`))
}

func TestReadCommandLog(t *testing.T) {
	records, err := loadPreset("plain-4")
	require.NoError(t, err)
	payload, err := weave.EncodeTransport(records)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte(payload+"\n"), 0o644))

	got, err := readCommandLog(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = readCommandLog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// diffResult helps show context around the first difference.
type diffResult struct {
	Index           int
	ExpectedContext string
	GotContext      string
}

// findFirstDifference finds the first differing character and provides context.
func findFirstDifference(s1, s2 string) diffResult {
	limit := min(len(s1), len(s2))
	idx := -1
	for i := 0; i < limit; i++ {
		if s1[i] != s2[i] {
			idx = i
			break
		}
	}
	// Handle case where one string is a prefix of the other
	if idx == -1 && len(s1) != len(s2) {
		idx = limit
	}
	if idx == -1 {
		return diffResult{Index: 0, ExpectedContext: "(Strings are identical)", GotContext: "(Strings are identical)"}
	}

	contextSize := 20 // Characters before and after the difference
	start := max(idx-contextSize, 0)
	endS1 := min(idx+contextSize, len(s1))
	endS2 := min(idx+contextSize, len(s2))

	return diffResult{
		Index:           idx,
		ExpectedContext: s1[start:endS1],
		GotContext:      s2[start:endS2],
	}
}
