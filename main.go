// main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// cli holds what every subcommand shares once flags are parsed.
type cli struct {
	configPath string
	verbose    bool
	warp, weft string

	cfg    Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:   "weave",
		Short: "Weave plain-weave patterns one over/under decision at a time",
		Long: `weave models a square loom: warp threads run top to bottom, a single weft
thread zig-zags through them and every crossing is decided over or under.
Patterns can be rendered, replayed, exported, served over HTTP or woven
interactively in the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file (default: $"+configEnvVar+")")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().StringVar(&c.warp, "warp", "", "Warp thread colour, overrides the config")
	rootCmd.PersistentFlags().StringVar(&c.weft, "weft", "", "Weft thread colour, overrides the config")

	rootCmd.AddCommand(
		newRenderCmd(c),
		newExportCmd(c),
		newReplayCmd(c),
		newEncodeCmd(c),
		newPresetsCmd(c),
		newServeCmd(c),
		newPlayCmd(c),
	)
	return rootCmd
}

// setup loads the configuration and installs the structured logger.
func (c *cli) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	// Also routes the log package through the handler.
	slog.SetDefault(c.logger)

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.warp != "" {
		cfg.Colors.Warp = c.warp
	}
	if c.weft != "" {
		cfg.Colors.Weft = c.weft
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
