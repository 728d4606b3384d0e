package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/display"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
	"github.com/unclesp1d3r/meshcrack/lib/search"
	"github.com/unclesp1d3r/meshcrack/lib/watch"
)

var (
	watchOpts    crackFlags //nolint:gochecknoglobals // Cobra flag target
	watchFollow  bool       //nolint:gochecknoglobals // Cobra flag target
	watchFromEnd bool       //nolint:gochecknoglobals // Cobra flag target
	watchDedupe  bool       //nolint:gochecknoglobals // Cobra flag target
)

// watchCmd cracks every group text packet in a packet log.
var watchCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "watch <file>",
	Short: "Crack every group text packet in a packet log",
	Long: "Read hex-encoded packets from a file, one per line, and crack each group text packet.\n" +
		"With --follow the file is tailed until interrupted.",
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	addCrackFlags(watchCmd, &watchOpts)
	watchCmd.Flags().BoolVarP(&watchFollow, "follow", "f", false, "Keep reading as the file grows")
	watchCmd.Flags().BoolVar(&watchFromEnd, "from-end", false, "With --follow, only read packets appended from now on")
	watchCmd.Flags().BoolVar(&watchDedupe, "dedupe", true, "Crack repeated packets only once")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := watchOpts.options()
	if err != nil {
		return err
	}

	cracker, err := newCracker(ctx, &watchOpts)
	if err != nil {
		return err
	}
	defer cracker.Destroy()

	w := &watch.Watcher{Path: args[0], Follow: watchFollow, FromEnd: watchFromEnd, SkipDupes: watchDedupe}

	stats, err := w.Run(ctx, packetHandler(cmd, cracker, opts))

	crackstate.Logger.Info("Watch finished", "lines", stats.Lines, "duplicates", stats.Duplicates, "cracked", stats.Handled)

	return err
}

// packetHandler cracks one packet line. Lines that are not group text packets are
// skipped, and failed cracks are logged without stopping the watch unless the
// accelerator is unusable.
func packetHandler(cmd *cobra.Command, cracker *search.Cracker, opts search.Options) watch.Handler {
	return func(ctx context.Context, line string) error {
		packet, err := grouptext.Decode(line)
		if err != nil {
			if errors.Is(err, grouptext.ErrNotGroupText) {
				crackstate.Logger.Debug("Skipping non group text packet", "packet", line)
			} else {
				crackstate.Logger.Warn("Skipping malformed packet", "packet", line, "error", err)
			}

			return nil
		}

		display.CrackStarting(packet, opts.MaxLength, len(cracker.Wordlist()))

		result := cracker.Crack(ctx, line, opts, nil)

		switch result.Status {
		case search.StatusAborted:
			display.Aborted(result.Resume.String(), result.ResumeFrom)
			return ctx.Err()
		case search.StatusError:
			if crackerr.IsKind(result.Err, crackerr.KindAccelerationUnavailable) {
				return result.Err
			}

			//nolint:errcheck // The watch continues with the next packet
			_ = crackerr.LogAndReturn("Crack failed", result.Err, "packet", line)

			return nil
		default:
			//nolint:errcheck // Found and not found are both reported and the watch continues
			_ = report(cmd, result)

			return nil
		}
	}
}
