// Package crackstate provides the process-wide configuration snapshot and shared loggers used across meshcrack.
package crackstate

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// State represents the configuration and runtime state of the cracker process.
var State = crackState{} //nolint:gochecknoglobals // Global cracker state

// crackState holds settings copied from configuration before any search starts.
// Plain fields are written once during startup and are safe to read from any goroutine afterwards.
type crackState struct {
	DataPath               string        // DataPath is the root directory for meshcrack's working files.
	WordlistPath           string        // WordlistPath is the directory remote wordlists are fetched into.
	BenchmarkCachePath     string        // BenchmarkCachePath is the JSON file caching device benchmark results.
	Debug                  bool          // Debug specifies whether meshcrack is running in debug mode.
	MaxLength              int           // MaxLength is the longest room name searched by brute force.
	UseTimestampFilter     bool          // UseTimestampFilter rejects decryptions whose timestamp is implausibly old.
	UseUTF8Filter          bool          // UseUTF8Filter rejects decryptions that are not clean UTF-8.
	TimestampWindow        time.Duration // TimestampWindow is how far in the past a plausible message timestamp may lie.
	Backend                string        // Backend selects the accelerator backend ("auto", "host", "none").
	DictionaryOnlyFallback bool          // DictionaryOnlyFallback continues without brute force when no accelerator is available.
	BatchFloor             uint64        // BatchFloor is the initial and minimum accelerator batch size.
	BatchMax               uint64        // BatchMax caps the tuned accelerator batch size.
	BatchTarget            time.Duration // BatchTarget is the dispatch time the batch tuner aims for.
	Workers                int           // Workers is the host device worker count (0 means all logical cores).
	ProgressInterval       time.Duration // ProgressInterval is the wall-clock cadence of progress snapshots.
	ForceBenchmark         bool          // ForceBenchmark ignores cached benchmark results.

	// Synchronized fields, use the getter/setter methods.
	activeRuns atomic.Int32
}

// ActiveRuns returns the number of crack runs currently in flight.
func (s *crackState) ActiveRuns() int {
	return int(s.activeRuns.Load())
}

// RunStarted records the start of a crack run.
func (s *crackState) RunStarted() {
	s.activeRuns.Add(1)
}

// RunFinished records the end of a crack run.
func (s *crackState) RunFinished() {
	s.activeRuns.Add(-1)
}

// Logger is a shared logging instance configured to output logs at InfoLevel with timestamps to os.Stdout.
var Logger = log.NewWithOptions(os.Stdout, log.Options{ //nolint:gochecknoglobals // Global logger instance
	Level:           log.InfoLevel,
	ReportTimestamp: true,
})

// ErrorLogger is a logger instance for logging critical errors with detailed error information.
var ErrorLogger = Logger.With() //nolint:gochecknoglobals // Global error logger instance
