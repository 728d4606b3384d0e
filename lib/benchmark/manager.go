// Package benchmark measures accelerator throughput on the brute-force filter and caches
// the result per device so repeated runs can skip the measurement.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/display"
	"github.com/unclesp1d3r/meshcrack/lib/progress"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

const (
	DefaultLength  = 6  // DefaultLength is the room-name tier benchmarked by default.
	DefaultBatches = 16 // DefaultBatches is the number of batches dispatched by default.
)

// benchmarkTarget is an arbitrary channel hash; throughput does not depend on it.
const benchmarkTarget = 0x42

var (
	errNoBatches     = errors.New("benchmark needs at least one batch")
	errNoAccelerator = errors.New("no accelerator available for benchmarking")
)

// Runner is the accelerator surface a benchmark drives. *accel.Executor implements it.
type Runner interface {
	Init(ctx context.Context) bool
	RunBatch(ctx context.Context, target byte, length int, offset, size uint64, ciphertext, mac []byte) ([]uint64, error)
	BatchSize() uint64
	DeviceName() string
	Destroy()
}

// Manager handles benchmark operations including running benchmarks and managing the
// benchmark cache.
type Manager struct {
	runner Runner
	now    func() time.Time
}

// NewManager creates a new benchmark Manager driving runner.
func NewManager(runner Runner) *Manager {
	return &Manager{runner: runner, now: time.Now}
}

// Run returns the throughput of the runner's device on names of length, measured over
// batches dispatches. A cached result for the device is returned unless
// crackstate.State.ForceBenchmark is set. The bool reports whether the result came from
// the cache.
func (m *Manager) Run(ctx context.Context, length, batches int) (display.BenchmarkResult, bool, error) {
	if batches < 1 {
		return display.BenchmarkResult{}, false, crackerr.New(crackerr.KindInput, "benchmark", errNoBatches)
	}

	if _, err := roomname.CountNamesForLength(length); err != nil {
		return display.BenchmarkResult{}, false, crackerr.New(crackerr.KindInput, "benchmark", err)
	}

	if !m.runner.Init(ctx) {
		return display.BenchmarkResult{}, false, crackerr.New(crackerr.KindAccelerationUnavailable,
			"benchmark", errNoAccelerator)
	}
	defer m.runner.Destroy()

	device := m.runner.DeviceName()

	cached, err := loadBenchmarkCache()
	if err != nil {
		crackstate.Logger.Warn("Failed to load benchmark cache", "error", err)
	}

	if !crackstate.State.ForceBenchmark {
		if result, ok := findResult(cached, device, length); ok {
			return result, true, nil
		}
	} else {
		crackstate.Logger.Debug("Force benchmark flag set, ignoring cached results")
	}

	display.BenchmarkStarting(device, length, batches)

	result, err := m.measure(ctx, device, length, batches)
	if err != nil {
		return display.BenchmarkResult{}, false, err
	}

	if saveErr := saveBenchmarkCache(upsertResult(cached, result)); saveErr != nil {
		crackstate.Logger.Warn("Benchmark result not cached", "error", saveErr)
	}

	return result, false, nil
}

// measure dispatches batches consecutive batches across the length tier, wrapping at its
// end, and times them.
func (m *Manager) measure(ctx context.Context, device string, length, batches int) (display.BenchmarkResult, error) {
	count := roomname.MustCount(length)

	var (
		offset     uint64
		candidates uint64
		elapsed    time.Duration
	)

	for range batches {
		if err := ctx.Err(); err != nil {
			return display.BenchmarkResult{}, crackerr.New(crackerr.KindAborted, "benchmark", err)
		}

		size := min(max(m.runner.BatchSize(), 1), count-offset)

		started := m.now()
		if _, err := m.runner.RunBatch(ctx, benchmarkTarget, length, offset, size, nil, nil); err != nil {
			return display.BenchmarkResult{}, fmt.Errorf("benchmark batch at %d:%d: %w", length, offset, err)
		}
		elapsed += m.now().Sub(started)

		candidates += size

		offset += size
		if offset >= count {
			offset = 0
		}
	}

	return display.BenchmarkResult{
		Device:     device,
		Length:     length,
		Candidates: candidates,
		Elapsed:    elapsed,
		Rate:       progress.Rate(candidates, elapsed),
		BatchSize:  m.runner.BatchSize(),
		MeasuredAt: m.now().UTC(),
	}, nil
}

// findResult returns the cached result for device and length.
func findResult(results []display.BenchmarkResult, device string, length int) (display.BenchmarkResult, bool) {
	for _, r := range results {
		if r.Device == device && r.Length == length {
			return r, true
		}
	}

	return display.BenchmarkResult{}, false
}

// upsertResult replaces the entry for the result's device and length, or appends it.
func upsertResult(results []display.BenchmarkResult, result display.BenchmarkResult) []display.BenchmarkResult {
	for i, r := range results {
		if r.Device == result.Device && r.Length == result.Length {
			results[i] = result
			return results
		}
	}

	return append(results, result)
}
