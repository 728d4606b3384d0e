// Package search orchestrates a crack run: the public channel key, then the wordlist, then
// brute force over the room-name space, with progress, abort and resume.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
	"github.com/unclesp1d3r/meshcrack/lib/verify"
	"github.com/unclesp1d3r/meshcrack/lib/wordlist"
)

// DefaultProgressInterval is the wall-clock cadence of progress snapshots.
const DefaultProgressInterval = 200 * time.Millisecond

var (
	// ErrRunInProgress is returned when Crack is called while another run is active.
	ErrRunInProgress = errors.New("a crack run is already in progress")
	// ErrNoAcceleration is returned when brute force is needed and no accelerator is available.
	ErrNoAcceleration = errors.New("brute force needs an accelerator and none is available")
	// ErrUnknownWord is returned when StartFrom names a channel that is not in the wordlist.
	ErrUnknownWord = errors.New("start from names a channel that is not in the wordlist")
)

// Runner is the brute-force filter backend. *accel.Executor implements it.
type Runner interface {
	Init(ctx context.Context) bool
	RunBatch(ctx context.Context, target byte, length int, offset, size uint64, ciphertext, mac []byte) ([]uint64, error)
	BatchSize() uint64
	Destroy()
}

// initErrorer is implemented by runners that can explain a failed Init.
type initErrorer interface {
	InitErr() error
}

var _ Runner = (*accel.Executor)(nil)

// Cracker runs crack searches against a Runner. Runs are serialized; Abort may be called
// from any goroutine.
type Cracker struct {
	runner   Runner
	now      func() time.Time
	interval time.Duration

	runMu   sync.Mutex
	abort   atomic.Bool
	wordsMu sync.RWMutex
	words   []string
}

// Option customizes a Cracker.
type Option func(*Cracker)

// WithClock replaces the clock used for progress and the timestamp filter.
func WithClock(now func() time.Time) Option {
	return func(c *Cracker) {
		c.now = now
	}
}

// WithProgressInterval sets the progress cadence.
func WithProgressInterval(d time.Duration) Option {
	return func(c *Cracker) {
		if d > 0 {
			c.interval = d
		}
	}
}

// New returns a Cracker that brute-forces through runner.
func New(runner Runner, opts ...Option) *Cracker {
	c := &Cracker{
		runner:   runner,
		now:      time.Now,
		interval: DefaultProgressInterval,
	}

	if crackstate.State.ProgressInterval > 0 {
		c.interval = crackstate.State.ProgressInterval
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetWordlist replaces the wordlist. Entries are normalized and invalid names dropped.
// A run already in progress keeps the list it started with.
func (c *Cracker) SetWordlist(words []string) {
	normalized := wordlist.Normalize(words)

	c.wordsMu.Lock()
	defer c.wordsMu.Unlock()

	c.words = normalized
}

// LoadWordlist replaces the wordlist with one word per line read from r.
func (c *Cracker) LoadWordlist(r io.Reader) error {
	words, err := wordlist.Parse(r)
	if err != nil {
		return fmt.Errorf("loading wordlist: %w", err)
	}

	c.wordsMu.Lock()
	defer c.wordsMu.Unlock()

	c.words = words

	return nil
}

// Wordlist returns a copy of the current wordlist.
func (c *Cracker) Wordlist() []string {
	c.wordsMu.RLock()
	defer c.wordsMu.RUnlock()

	return append([]string(nil), c.words...)
}

// Abort requests cancellation of the run in progress. The run stops at its next checkpoint:
// before the public key, before a wordlist entry or before a batch.
func (c *Cracker) Abort() {
	c.abort.Store(true)
}

// IsAccelerationAvailable initializes the runner and reports whether it has a device.
func (c *Cracker) IsAccelerationAvailable(ctx context.Context) bool {
	return c.runner != nil && c.runner.Init(ctx)
}

// Destroy releases the runner's resources.
func (c *Cracker) Destroy() {
	if c.runner != nil {
		c.runner.Destroy()
	}
}

// Crack searches for the room name protecting packetHex. It never panics on expected
// outcomes; the Result's Status discriminates found, not found, aborted and error.
func (c *Cracker) Crack(ctx context.Context, packetHex string, opts Options, onProgress ProgressFunc) Result {
	runID := uuid.New()
	logger := crackstate.Logger.With("run_id", runID.String())

	if !c.runMu.TryLock() {
		return errorResult(runID, PhaseIdle, crackerr.New(crackerr.KindInput, "crack", ErrRunInProgress))
	}
	defer c.runMu.Unlock()

	crackstate.State.RunStarted()
	defer crackstate.State.RunFinished()

	c.abort.Store(false)

	if c.runner != nil {
		defer c.runner.Destroy()
	}

	r := &run{
		cracker: c,
		ctx:     ctx,
		logger:  logger,
		opts:    opts,
		words:   c.Wordlist(),
		result:  Result{RunID: runID},
	}

	started := c.now()
	result := r.execute(packetHex, onProgress)
	result.Elapsed = c.now().Sub(started)

	logger.Debug("Crack run finished", "status", result.Status, "phase", result.Phase,
		"checked", result.Checked, "elapsed", result.Elapsed)

	return result
}

func errorResult(runID uuid.UUID, phase Phase, err error) Result {
	return Result{RunID: runID, Status: StatusError, Phase: phase, Err: err}
}

// run is the state of a single Crack call.
type run struct {
	cracker  *Cracker
	ctx      context.Context //nolint:containedctx // Scoped to one Crack call
	logger   *log.Logger
	opts     Options
	words    []string
	packet   *grouptext.Packet
	pipeline *verify.Pipeline
	progress *tracker
	result   Result
}

// aborted reports whether cancellation was requested through Abort or the context.
func (r *run) aborted() bool {
	return r.cracker.abort.Load() || r.ctx.Err() != nil
}

func (r *run) execute(packetHex string, onProgress ProgressFunc) Result {
	packet, err := grouptext.Decode(packetHex)
	if err != nil {
		return r.fail(crackerr.New(crackerr.KindInput, "decode packet", err))
	}

	r.packet = packet

	maxLength := r.opts.MaxLength
	if maxLength == 0 {
		maxLength = roomname.DefaultMaxLength
	}

	if maxLength < 1 || maxLength > roomname.MaxSupportedLength {
		return r.fail(crackerr.New(crackerr.KindInput, "options",
			fmt.Errorf("%w: max length %d", roomname.ErrLengthOutOfRange, maxLength)))
	}

	r.opts.MaxLength = maxLength

	start, err := r.resolveStart()
	if err != nil {
		return r.fail(crackerr.New(crackerr.KindInput, "options", err))
	}

	r.pipeline = verify.New(packet, verify.Options{
		UseTimestampFilter: !r.opts.DisableTimestampFilter,
		UseUTF8Filter:      !r.opts.DisableUTF8Filter,
		TimestampWindow:    r.opts.TimestampWindow,
		Now:                r.cracker.now,
	})

	bruteStart := roomname.Start
	if start.Phase == PhaseBruteForce {
		bruteStart = start.Position
	}

	total, err := roomname.Remaining(bruteStart, maxLength)
	if err != nil {
		return r.fail(crackerr.New(crackerr.KindInput, "options", err))
	}

	r.progress = newTracker(r.result.RunID, onProgress, r.cracker.interval, r.cracker.now, r.logger)
	r.progress.total = total
	r.progress.wordsTotal = len(r.words)

	r.logger.Debug("Crack run starting", "channel_hash", fmt.Sprintf("%02x", packet.ChannelHash),
		"start", start.String(), "max_length", maxLength, "words", len(r.words), "total", total)

	switch start.Phase {
	case PhaseIdle, PhasePublicKey:
		if done := r.publicKeyPhase(); done {
			return r.result
		}

		fallthrough
	case PhaseDictionary:
		if done := r.dictionaryPhase(start.WordIndex); done {
			return r.result
		}

		fallthrough
	default:
		r.bruteForcePhase(bruteStart)
	}

	return r.result
}

// resolveStart turns Resume or StartFrom into the checkpoint the run begins at.
// A StartFrom in channel form ("#name") resumes the wordlist after that entry, or after the
// public key for "#Public". A bare name resumes brute force after its position.
func (r *run) resolveStart() (Checkpoint, error) {
	if r.opts.Resume != nil {
		cp := *r.opts.Resume
		switch cp.Phase {
		case PhaseDictionary:
			if cp.WordIndex < 0 {
				return cp, fmt.Errorf("%w: negative word index", ErrInvalidCheckpoint)
			}
		case PhaseBruteForce:
			if !cp.Position.Valid() && cp.Position.Length != roomname.MaxSupportedLength+1 {
				return cp, fmt.Errorf("%w: position %s", ErrInvalidCheckpoint, cp.Position)
			}
		}

		return cp, nil
	}

	if r.opts.StartFrom == "" {
		return Checkpoint{Phase: PhasePublicKey}, nil
	}

	if word, ok := strings.CutPrefix(r.opts.StartFrom, string(channelkey.Marker)); ok {
		return r.dictionaryStart(word)
	}

	pos, err := roomname.PositionAfter(r.opts.StartFrom)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("start from: %w", err)
	}

	return Checkpoint{Phase: PhaseBruteForce, Position: pos}, nil
}

// dictionaryStart returns the checkpoint just after the wordlist entry word.
func (r *run) dictionaryStart(word string) (Checkpoint, error) {
	if word == channelkey.PublicRoomName {
		return Checkpoint{Phase: PhaseDictionary}, nil
	}

	for i, w := range r.words {
		if w == word {
			return Checkpoint{Phase: PhaseDictionary, WordIndex: i + 1}, nil
		}
	}

	return Checkpoint{}, fmt.Errorf("%w: %q", ErrUnknownWord, word)
}

func (r *run) fail(err error) Result {
	r.result.Status = StatusError
	r.result.Err = err

	//nolint:errcheck // Logged for the operator; the error is carried in the result
	_ = crackerr.LogAndReturn("Crack run failed", err, "run_id", r.result.RunID.String())

	return r.result
}

// abortAt ends the run as aborted at cp. last is the most recently tested candidate.
func (r *run) abortAt(cp Checkpoint, last string) {
	r.result.Status = StatusAborted
	r.result.Resume = &cp
	r.result.ResumeFrom = last

	r.progress.flush()
	r.logger.Info("Crack run aborted", "resume", cp.String(), "resume_from", last)
}

// found ends the run with a verified match.
func (r *run) found(match *verify.Match) {
	r.result.Status = StatusFound
	r.result.RoomName = match.RoomName
	r.result.Key = match.Key
	r.result.Message = match.Message

	r.progress.flush()
}

// check classifies a verification outcome and reports whether it is a match.
// Filtered MAC matches are logged at debug level; other rejections are silent.
func (r *run) check(err error, name string) bool {
	switch {
	case err == nil:
		return true
	case verify.IsFiltered(err):
		r.logger.Debug("Candidate matched key and MAC but was filtered", "room", name, "error", err)
	case !crackerr.IsKind(err, crackerr.KindCandidateRejected):
		r.logger.Warn("Candidate verification failed", "room", name, "error", err)
	}

	return false
}

// lastWord returns, in channel form, the dictionary-phase candidate tested just before
// wordlist entry index: the previous entry, or the public channel before the first one.
func (r *run) lastWord(index int) string {
	if index <= 0 || index > len(r.words) {
		return string(channelkey.Marker) + channelkey.PublicRoomName
	}

	return string(channelkey.Marker) + r.words[index-1]
}
