package main

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/buffos/go-weave/weave"
	"github.com/mattn/go-isatty"
)

// --- Colour Helpers ---

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(s) == 0 || s[0] != '#' || (len(hex) != 6 && len(hex) != 8) {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// --- XML/HTML/CSS Escaping ---

func escapeXML(s string) string {
	var buf strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;") // &apos; is not valid in HTML4
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

var escapeHTML = escapeXML

// Simple CSS Escaping (basic)
func escapeCSS(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

// Simple ternary helper for inline conditions
func ternary(condition bool, trueVal, falseVal string) string {
	if condition {
		return trueVal
	}
	return falseVal
}

// --- Input Helpers ---

// readCommandLog loads a command log from a file ("-" for stdin). The file
// may hold the JSON array or its base64 clipboard form.
func readCommandLog(path string) ([]weave.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		log.Println("Reading command log from stdin")
		data, err = io.ReadAll(os.Stdin)
	} else {
		log.Printf("Reading command log: %s", path)
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read command log '%s': %w", path, err)
	}
	records, err := weave.DecodeTransport(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode command log '%s': %w", path, err)
	}
	return records, nil
}

// applyMoves plays a compact decision string on the session: U (or +) for
// over, D (or -) for under, whitespace ignored. It returns how many moves
// changed the pattern.
func applyMoves(sess *weave.Session, moves string) (int, error) {
	applied := 0
	for i, r := range moves {
		var ok bool
		switch r {
		case 'U', 'u', '+':
			ok = sess.Raise()
		case 'D', 'd', '-':
			ok = sess.Lower()
		case ' ', '\t', '\n', ',':
			continue
		default:
			return applied, fmt.Errorf("move %d: unknown decision %q (want U or D)", i, r)
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

// --- Output Helpers ---

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
