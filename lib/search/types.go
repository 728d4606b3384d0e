package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
	"github.com/unclesp1d3r/meshcrack/lib/verify"
)

// Status is the outcome of a crack run.
type Status int

const (
	// StatusError means the run could not proceed; see Result.Err.
	StatusError Status = iota
	// StatusFound means a room name was verified.
	StatusFound
	// StatusNotFound means the configured search space was exhausted.
	StatusNotFound
	// StatusAborted means the run was cancelled; see Result.Resume.
	StatusAborted
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Phase is a stage of the search, tried in declaration order.
type Phase int

const (
	// PhaseIdle is before any candidate is tested.
	PhaseIdle Phase = iota
	// PhasePublicKey tests the well-known public channel key.
	PhasePublicKey
	// PhaseDictionary tests the wordlist.
	PhaseDictionary
	// PhaseBruteForce enumerates the room-name space.
	PhaseBruteForce
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePublicKey:
		return "public_key"
	case PhaseDictionary:
		return "dictionary"
	case PhaseBruteForce:
		return "brute_force"
	default:
		return "unknown"
	}
}

// ErrInvalidCheckpoint is returned when parsing a malformed checkpoint token.
var ErrInvalidCheckpoint = errors.New("invalid checkpoint")

// Checkpoint is the exact point a search resumes from: the next untested candidate.
type Checkpoint struct {
	Phase     Phase             `json:"phase"`
	WordIndex int               `json:"word_index"` // Next wordlist entry, for PhaseDictionary
	Position  roomname.Position `json:"position"`   // Next brute-force position, for PhaseBruteForce
}

// String renders the checkpoint as a token accepted by ParseCheckpoint:
// "public", "dict:<index>" or "bf:<length>:<offset>".
func (c Checkpoint) String() string {
	switch c.Phase {
	case PhaseDictionary:
		return "dict:" + strconv.Itoa(c.WordIndex)
	case PhaseBruteForce:
		return "bf:" + c.Position.String()
	default:
		return "public"
	}
}

// ParseCheckpoint parses a token produced by Checkpoint.String.
func ParseCheckpoint(token string) (*Checkpoint, error) {
	token = strings.TrimSpace(token)

	switch {
	case token == "public":
		return &Checkpoint{Phase: PhasePublicKey}, nil
	case strings.HasPrefix(token, "dict:"):
		index, err := strconv.Atoi(strings.TrimPrefix(token, "dict:"))
		if err != nil || index < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCheckpoint, token)
		}

		return &Checkpoint{Phase: PhaseDictionary, WordIndex: index}, nil
	case strings.HasPrefix(token, "bf:"):
		pos, err := roomname.ParsePosition(strings.TrimPrefix(token, "bf:"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCheckpoint, err)
		}

		return &Checkpoint{Phase: PhaseBruteForce, Position: pos}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCheckpoint, token)
	}
}

// Options configures a single crack run. The zero value runs with both plausibility
// filters enabled and the default length and window.
type Options struct {
	MaxLength              int           // Longest brute-forced name; 0 means roomname.DefaultMaxLength
	DisableTimestampFilter bool          // Accept decryptions with an implausible timestamp
	DisableUTF8Filter      bool          // Accept decryptions that are not clean UTF-8
	TimestampWindow        time.Duration // How old a plausible message may be; 0 means 30 days
	StartFrom              string        // Resume after this already-tested candidate, see Result.ResumeFrom
	Resume                 *Checkpoint   // Exact resume point; takes precedence over StartFrom
	DictionaryOnly         bool          // Continue without brute force when no accelerator is available
}

// DefaultOptions returns the default crack options.
func DefaultOptions() Options {
	return Options{
		MaxLength:       roomname.DefaultMaxLength,
		TimestampWindow: verify.DefaultTimestampWindow,
	}
}

// OptionsFromState returns crack options from the configuration in crackstate.State.
func OptionsFromState() Options {
	opts := DefaultOptions()
	opts.DisableTimestampFilter = !crackstate.State.UseTimestampFilter
	opts.DisableUTF8Filter = !crackstate.State.UseUTF8Filter
	opts.DictionaryOnly = crackstate.State.DictionaryOnlyFallback

	if crackstate.State.MaxLength > 0 {
		opts.MaxLength = crackstate.State.MaxLength
	}

	if crackstate.State.TimestampWindow > 0 {
		opts.TimestampWindow = crackstate.State.TimestampWindow
	}

	return opts
}

// Result is the outcome of a crack run. Exactly one of the status-specific groups is set.
type Result struct {
	RunID  uuid.UUID
	Status Status
	Phase  Phase // Phase the run ended in

	// StatusFound
	RoomName string
	Key      channelkey.Key
	Message  grouptext.Message

	// StatusNotFound
	LastPosition      roomname.Position
	BruteForceSkipped bool // No accelerator and Options.DictionaryOnly was set

	// StatusAborted
	Resume     *Checkpoint
	ResumeFrom string // Last tested candidate, usable as Options.StartFrom: "#name" in the dictionary phase, a bare name in brute force

	// StatusError
	Err error

	Checked uint64 // Candidates tested in all phases
	Elapsed time.Duration
}

// Snapshot is a progress report. It is recomputed on a wall-clock cadence and never persisted.
type Snapshot struct {
	RunID        uuid.UUID
	Phase        Phase
	Checked      uint64 // Brute-force candidates tested
	Total        uint64 // Brute-force candidates in scope, fixed at run start
	Rate         float64
	ETA          time.Duration
	Elapsed      time.Duration
	Length       int
	Position     roomname.Position
	WordsChecked int
	WordsTotal   int
}

// ProgressFunc receives progress snapshots. It is called from the goroutine running Crack;
// a panic inside it is recovered and logged.
type ProgressFunc func(Snapshot)
