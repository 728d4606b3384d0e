package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/display"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
	"github.com/unclesp1d3r/meshcrack/lib/search"
	"github.com/unclesp1d3r/meshcrack/lib/wordlist"
)

// progressLogInterval spaces progress log lines when no bar is drawn.
const progressLogInterval = 5 * time.Second

var (
	errNotFound = errors.New("room name not found")
	errAborted  = errors.New("crack aborted")
)

// crackFlags holds the per-run overrides of the crack and watch commands.
type crackFlags struct {
	maxLength      int
	wordlist       string
	startFrom      string
	resume         string
	noTimestamp    bool
	noUTF8         bool
	dictionaryOnly bool
	progress       bool
}

var crackOpts crackFlags //nolint:gochecknoglobals // Cobra flag target

// crackCmd cracks a single packet.
var crackCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "crack <packet-hex>",
	Short: "Recover the room name of a group text packet",
	Long: "Recover the room name of a hex-encoded group text packet.\n" +
		"Interrupting the run prints a resume token for --resume.",
	Args: cobra.ExactArgs(1),
	RunE: runCrack,
}

func init() {
	addCrackFlags(crackCmd, &crackOpts)
	crackCmd.Flags().StringVar(&crackOpts.resume, "resume", "", "Resume token printed by an interrupted run")
	crackCmd.Flags().BoolVar(&crackOpts.progress, "progress", false, "Draw a progress bar")
}

// addCrackFlags registers the search options shared by crack and watch.
func addCrackFlags(cmd *cobra.Command, f *crackFlags) {
	flags := cmd.Flags()
	flags.IntVar(&f.maxLength, "max-length", 0, "Longest room name to brute force (default from config)")
	flags.StringVar(&f.wordlist, "wordlist", "", "Wordlist file path or http(s) URL")
	flags.StringVar(&f.startFrom, "start-from", "", "Resume after this already-tested room name (#name resumes the wordlist)")
	flags.BoolVar(&f.noTimestamp, "no-timestamp-filter", false, "Accept decryptions with implausible timestamps")
	flags.BoolVar(&f.noUTF8, "no-utf8-filter", false, "Accept decryptions that are not clean UTF-8")
	flags.BoolVar(&f.dictionaryOnly, "dictionary-only", false, "Skip brute force when no accelerator is available")
}

// options returns the search options from configuration with the flag overrides applied.
func (f *crackFlags) options() (search.Options, error) {
	opts := search.OptionsFromState()

	if f.maxLength > 0 {
		opts.MaxLength = f.maxLength
	}

	if f.noTimestamp {
		opts.DisableTimestampFilter = true
	}

	if f.noUTF8 {
		opts.DisableUTF8Filter = true
	}

	if f.dictionaryOnly {
		opts.DictionaryOnly = true
	}

	opts.StartFrom = f.startFrom

	if f.resume != "" {
		cp, err := search.ParseCheckpoint(f.resume)
		if err != nil {
			return opts, err
		}

		opts.Resume = cp
	}

	return opts, nil
}

// loadWords loads the wordlist named by src, fetching it first when it is remote.
func loadWords(ctx context.Context, src string) ([]string, error) {
	if src == "" {
		return nil, nil
	}

	path := src
	if wordlist.IsRemote(src) {
		fetched, err := wordlist.Fetch(ctx, src, crackstate.State.WordlistPath, &wordlist.ProgressBar{Output: os.Stderr})
		if err != nil {
			return nil, err
		}

		path = fetched
	}

	return wordlist.LoadFile(path)
}

// newCracker builds a cracker on the configured accelerator with the wordlist loaded.
func newCracker(ctx context.Context, f *crackFlags) (*search.Cracker, error) {
	words, err := loadWords(ctx, f.wordlist)
	if err != nil {
		return nil, err
	}

	cracker := search.New(accel.NewExecutor(accel.ConfigFromState()))
	cracker.SetWordlist(words)

	return cracker, nil
}

func runCrack(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	packet, err := grouptext.Decode(args[0])
	if err != nil {
		return fmt.Errorf("decoding packet: %w", err)
	}

	opts, err := crackOpts.options()
	if err != nil {
		return err
	}

	cracker, err := newCracker(ctx, &crackOpts)
	if err != nil {
		return err
	}
	defer cracker.Destroy()

	display.CrackStarting(packet, opts.MaxLength, len(cracker.Wordlist()))

	onProgress, finish := progressReporter(crackOpts.progress)
	result := cracker.Crack(ctx, args[0], opts, onProgress)
	finish()

	return report(cmd, result)
}

// progressReporter returns the progress callback for a run and a function to call when
// the run ends.
func progressReporter(bar bool) (search.ProgressFunc, func()) {
	phase := search.PhaseIdle

	// phaseChanged logs phase transitions once.
	phaseChanged := func(s search.Snapshot) {
		if s.Phase != phase {
			phase = s.Phase
			display.PhaseStarted(s.Phase.String(), s.Total)
		}
	}

	if bar {
		pb := display.NewProgressBar(os.Stderr)

		return func(s search.Snapshot) {
			phaseChanged(s)

			if s.Phase == search.PhaseBruteForce {
				pb.Update(s.Phase.String(), s.Checked, s.Total)
			}
		}, pb.Finish
	}

	var lastLog time.Time

	return func(s search.Snapshot) {
		phaseChanged(s)

		if s.Phase != search.PhaseBruteForce || time.Since(lastLog) < progressLogInterval {
			return
		}

		lastLog = time.Now()
		display.Progress(s.Phase.String(), s.Checked, s.Total, s.Rate, s.ETA, s.Position.Length)
	}, func() {}
}

// report presents a result and maps it to the command's exit status.
func report(cmd *cobra.Command, result search.Result) error {
	out := cmd.OutOrStdout()

	switch result.Status {
	case search.StatusFound:
		display.Found(result.RoomName, result.Key.String(), result.Message)
		fmt.Fprintf(out, "#%s %s\n", result.RoomName, result.Key)

		return nil
	case search.StatusNotFound:
		display.NotFound(result.Checked, result.Elapsed, result.BruteForceSkipped)

		return errNotFound
	case search.StatusAborted:
		token := result.Resume.String()
		display.Aborted(token, result.ResumeFrom)
		fmt.Fprintf(out, "resume with: --resume %s\n", token)

		return errAborted
	default:
		if result.Resume != nil {
			fmt.Fprintf(out, "resume with: --resume %s\n", result.Resume)
		}

		return result.Err
	}
}
