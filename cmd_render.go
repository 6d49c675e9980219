package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buffos/go-weave/weave"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// sourceFlags selects where a pattern comes from.
type sourceFlags struct {
	size    int
	logPath string
	preset  string
	moves   string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.size, "size", "n", 0, "Grid size (default: threads.grid_size)")
	cmd.Flags().StringVarP(&f.logPath, "log", "l", "", "Command log to load: JSON or base64, '-' for stdin")
	cmd.Flags().StringVarP(&f.preset, "preset", "p", "", "Embedded pattern to load (see 'weave presets')")
	cmd.Flags().StringVarP(&f.moves, "moves", "m", "", "Decisions to apply, e.g. UDDU (U over, D under)")
	cmd.MarkFlagsMutuallyExclusive("log", "preset")
}

// records reads the log or preset named by the flags, if any.
func (f *sourceFlags) records() ([]weave.Record, error) {
	switch {
	case f.logPath != "":
		return readCommandLog(f.logPath)
	case f.preset != "":
		return loadPreset(f.preset)
	}
	return nil, nil
}

// session builds the pattern the flags describe.
func (f *sourceFlags) session(cfg Config, logger *slog.Logger) (*weave.Session, error) {
	records, err := f.records()
	if err != nil {
		return nil, err
	}
	return f.build(cfg, logger, records)
}

// build makes a session from already read records. A loaded log is executed
// in full; moves are applied on top.
func (f *sourceFlags) build(cfg Config, logger *slog.Logger, records []weave.Record) (*weave.Session, error) {
	n := f.size
	if n == 0 {
		n = cfg.Threads.GridSize
	}
	opts := append(cfg.sessionOptions(n), weave.WithLogger(logger))
	sess, err := weave.NewSession(n, opts...)
	if err != nil {
		return nil, fmt.Errorf("grid size %d: %w", n, err)
	}
	if records != nil {
		if _, err := sess.Load(records); err != nil {
			return nil, err
		}
		sess.ApplyAll()
	}

	if f.moves != "" {
		applied, err := applyMoves(sess, f.moves)
		if err != nil {
			return nil, err
		}
		log.Printf("Applied %d moves.", applied)
	}
	return sess, nil
}

// renderTo writes the session's pattern in the given format. HTML replays
// the session's history and leaves the full pattern applied.
func renderTo(ctx context.Context, cfg Config, sess *weave.Session, format outputFormat, opts imageOptions, w io.Writer) error {
	theme := cfg.palette()
	layout := sess.Geometry().Layout
	switch format {
	case formatSVG:
		svgContent, err := GenerateSVG(sess.Render(theme), layout, cfg.Colors.Background)
		if err != nil {
			return fmt.Errorf("SVG generation failed: %w", err)
		}
		if _, err := io.WriteString(w, svgContent); err != nil {
			return fmt.Errorf("failed to write SVG output: %w", err)
		}
	case formatHTML:
		outputString, err := generateHTML(sess, theme, cfg.Colors.Background, cfg.Replay.Delay)
		if err != nil {
			return fmt.Errorf("HTML generation failed: %w", err)
		}
		if _, err := io.WriteString(w, outputString); err != nil {
			return fmt.Errorf("failed to write HTML output: %w", err)
		}
	case formatPNG, formatJPEG:
		opts.Background = cfg.Colors.Background
		return generateImage(ctx, sess.Render(theme), layout, format, opts, w)
	default:
		return fmt.Errorf("unsupported output format '%s'", format)
	}
	return nil
}

func newRenderCmd(c *cli) *cobra.Command {
	var (
		src        sourceFlags
		formatName string
		outputFile string
		imgOpts    imageOptions
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a pattern as SVG, HTML, PNG or JPEG",
		Example: `  weave render --preset twill-6 -o twill.svg
  weave render -n 5 --moves UDUDU --format png -o start.png
  weave render --log pattern.json --format html -o replay.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, ok := parseFormat(strings.ToLower(formatName))
			if !ok {
				return fmt.Errorf("unsupported export format '%s'. Supported formats: svg, html, png, jpg/jpeg", formatName)
			}
			sess, err := src.session(c.cfg, c.logger)
			if err != nil {
				return err
			}
			return writeOutput(cmd, outputFile, format, func(w io.Writer) error {
				return renderTo(cmd.Context(), c.cfg, sess, format, imgOpts, w)
			})
		},
	}
	src.register(cmd)
	cmd.Flags().StringVarP(&formatName, "format", "f", "svg", "Output format (svg, html, png, jpg/jpeg)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&imgOpts.Engine, "engine", engineNative, "Raster engine: native or chrome")
	cmd.Flags().Float64Var(&imgOpts.Scale, "scale", 1, "Raster scale factor")
	return cmd
}

// writeOutput directs generated output to a file or stdout. A file left
// incomplete by a failed generation is removed.
func writeOutput(cmd *cobra.Command, outputFile string, format outputFormat, generate func(io.Writer) error) (err error) {
	outputWriter := cmd.OutOrStdout()
	if outputFile == "" {
		if format.isImage() && isTerminal(outputWriter) {
			return fmt.Errorf("refusing to write %s data to a terminal, use -o", format)
		}
		log.Println("Output directed to stdout.")
		return generate(outputWriter)
	}

	log.Printf("Output directed to file: %s", outputFile)
	outFile, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("error creating output file '%s': %w", outputFile, err)
	}
	defer func() {
		if closeErr := outFile.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing output file '%s': %w", outputFile, closeErr)
		}
		if err != nil {
			log.Printf("Attempting to remove potentially incomplete file: %s", outputFile)
			if removeErr := os.Remove(outputFile); removeErr != nil {
				log.Printf("Warning: Could not remove output file '%s' after error: %v", outputFile, removeErr)
			}
			return
		}
		log.Printf("Output saved to: %s", outputFile)
	}()
	return generate(outFile)
}

func newExportCmd(c *cli) *cobra.Command {
	var (
		src     sourceFlags
		formats []string
		outDir  string
		imgOpts imageOptions
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the pattern in several formats at once",
		Example: `  weave export --preset basket-8 --formats svg,png,html --out-dir out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := exportAll(cmd.Context(), c, src, formats, outDir, imgOpts, time.Now())
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return err
		},
	}
	src.register(cmd)
	cmd.Flags().StringSliceVar(&formats, "formats", []string{"svg", "png"}, "Formats to write")
	cmd.Flags().StringVarP(&outDir, "out-dir", "d", ".", "Directory for the exported files")
	cmd.Flags().StringVar(&imgOpts.Engine, "engine", engineNative, "Raster engine: native or chrome")
	cmd.Flags().Float64Var(&imgOpts.Scale, "scale", 1, "Raster scale factor")
	return cmd
}

// exportAll renders every format concurrently, each from its own session,
// into weave-pattern-<unix ms>.<ext>. It returns the paths written.
func exportAll(ctx context.Context, c *cli, src sourceFlags, formatNames []string, outDir string, imgOpts imageOptions, now time.Time) ([]string, error) {
	var formats []outputFormat
	for _, name := range formatNames {
		f, ok := parseFormat(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("unsupported export format '%s'", name)
		}
		formats = append(formats, f)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory '%s': %w", outDir, err)
	}

	records, err := src.records()
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(formats))
	g, gctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		paths[i] = filepath.Join(outDir, fmt.Sprintf("weave-pattern-%d.%s", now.UnixMilli(), format))
		g.Go(func() error {
			sess, err := src.build(c.cfg, c.logger, records)
			if err != nil {
				return err
			}
			f, err := os.Create(paths[i])
			if err != nil {
				return err
			}
			if err := renderTo(gctx, c.cfg, sess, format, imgOpts, f); err != nil {
				f.Close()
				os.Remove(paths[i])
				return fmt.Errorf("%s: %w", format, err)
			}
			return f.Close()
		})
	}
	if err := g.Wait(); err != nil {
		// An export is all or nothing: drop what the other formats wrote.
		for _, p := range paths {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				c.logger.Warn("remove partial export", slog.String("path", p), slog.Any("error", rmErr))
			}
		}
		return nil, err
	}
	c.logger.Info("exported pattern", slog.Int("files", len(paths)), slog.String("dir", outDir))
	return paths, nil
}

func newEncodeCmd(c *cli) *cobra.Command {
	var (
		src    sourceFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print a pattern's command log in clipboard (base64) form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := src.session(c.cfg, c.logger)
			if err != nil {
				return err
			}
			records := weave.Serialize(sess.History().Commands())
			if asJSON {
				data, err := weave.MarshalLog(records)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			payload, err := weave.EncodeTransport(records)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), payload)
			return err
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the JSON array instead of base64")
	return cmd
}

func newPresetsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the embedded patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range listPresets() {
				records, err := loadPreset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %3d commands\n", name, len(records))
			}
			return nil
		},
	}
}
