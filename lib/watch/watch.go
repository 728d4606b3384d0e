// Package watch feeds group-text packets from a capture file into a handler, one hex
// packet per line, optionally following the file as a logger appends to it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nxadm/tail"

	"github.com/unclesp1d3r/meshcrack/crackstate"
)

// Handler processes one packet line. Returning an error stops the watch.
type Handler func(ctx context.Context, packetHex string) error

// Watcher reads packets from a file.
type Watcher struct {
	Path      string
	Follow    bool // Keep reading as the file grows, until the context is done
	FromEnd   bool // Start at the current end of the file; only meaningful with Follow
	SkipDupes bool // Handle each distinct packet once; mesh floods repeat packets
}

// Stats summarizes a watch.
type Stats struct {
	Lines      int // Non-blank, non-comment lines read
	Duplicates int // Lines skipped as repeats
	Handled    int // Lines passed to the handler
}

// Run reads the file and calls handle for every packet line. Blank lines and lines
// starting with '#' are skipped. Without Follow, Run returns at end of file.
func (w *Watcher) Run(ctx context.Context, handle Handler) (Stats, error) {
	var stats Stats

	cfg := tail.Config{
		Follow:    w.Follow,
		ReOpen:    w.Follow,
		MustExist: true,
		Logger:    crackstate.Logger.StandardLog(),
	}

	if w.Follow && w.FromEnd {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	tailer, err := tail.TailFile(w.Path, cfg)
	if err != nil {
		return stats, fmt.Errorf("couldn't tail packet file %q: %w", w.Path, err)
	}
	defer tailer.Cleanup()

	defer func() {
		if stopErr := tailer.Stop(); stopErr != nil && !errors.Is(stopErr, tail.ErrStop) {
			crackstate.Logger.Debug("Tailer stopped with error", "error", stopErr)
		}
	}()

	seen := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return stats, nil
		case line, ok := <-tailer.Lines:
			if !ok {
				return stats, nil
			}

			if line.Err != nil {
				crackstate.Logger.Warn("Error reading packet file", "path", w.Path, "error", line.Err)
				continue
			}

			text := strings.TrimSpace(line.Text)
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}

			stats.Lines++

			if w.SkipDupes {
				key := strings.ToLower(text)
				if _, dup := seen[key]; dup {
					stats.Duplicates++
					continue
				}

				seen[key] = struct{}{}
			}

			if err := handle(ctx, text); err != nil {
				return stats, err
			}

			stats.Handled++
		}
	}
}
