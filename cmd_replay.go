package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/buffos/go-weave/weave"
	"github.com/spf13/cobra"
)

func newReplayCmd(c *cli) *cobra.Command {
	var (
		src    sourceFlags
		delay  time.Duration
		settle time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a command log step by step in the terminal",
		Long: `replay resets the pattern and re-applies its command log with a pause after
every command, printing the grid each time. Interrupt to abort; the pattern
is emptied either way once the replay ends.`,
		Example: `  weave replay --preset plain-4
  weave replay --log pattern.json --delay 100ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := src.session(c.cfg, c.logger)
			if err != nil {
				return err
			}
			rp := c.cfg.replayer()
			if cmd.Flags().Changed("delay") {
				rp.Pace = delay
			}
			if cmd.Flags().Changed("settle") {
				rp.Settle = settle
			}
			rp.Logger = c.logger
			return runTextReplay(cmd.Context(), cmd.OutOrStdout(), rp, sess)
		},
	}
	src.register(cmd)
	cmd.Flags().DurationVar(&delay, "delay", 0, "Pause after each command (default: replay.delay)")
	cmd.Flags().DurationVar(&settle, "settle", 0, "Pause before the final reset (default: replay.settle)")
	return cmd
}

// runTextReplay replays the session's history, writing one text frame per
// command to out.
func runTextReplay(ctx context.Context, out io.Writer, rp *weave.Replayer, sess *weave.Session) error {
	cmds := sess.History().Commands()
	if len(cmds) == 0 {
		return errors.New("nothing to replay: the pattern has no commands")
	}
	var werr error
	rp.OnFrame = func(step int, s *weave.State) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(out, "step %d/%d %s\n%s\n\n", step, len(cmds), cmds[step-1].Kind, s)
	}
	final, err := rp.Run(ctx, sess, cmds)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "replay aborted")
		}
		return err
	}
	if werr != nil {
		return werr
	}
	_, err = fmt.Fprintf(out, "final (%d commands)\n%s\n", len(cmds), final)
	return err
}
