// Package testhelpers provides reusable test utilities and helpers for testing meshcrack.
package testhelpers

import (
	"context"
	"errors"
	"sync"

	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

// ErrFakeUnavailable is reported by InitErr when a FakeRunner is configured as unavailable.
var ErrFakeUnavailable = errors.New("fake runner unavailable")

// BatchRange is one RunBatch call recorded by FakeRunner.
type BatchRange struct {
	Length int
	Offset uint64
	Size   uint64
}

// FakeRunner is a CPU-only stand-in for the accelerator executor. It computes the channel
// hash filter one name at a time and records every call so tests can assert on phase
// ordering and on exactly which ranges were searched.
type FakeRunner struct {
	mu sync.Mutex

	Unavailable bool   // Init fails when set
	Size        uint64 // Batch size, defaults to 1024

	// OnBatch, if set, runs after each batch with the 1-based batch number.
	OnBatch func(batch int)
	// BatchErr, if set, is returned by RunBatch instead of dispatching.
	BatchErr error

	initCalls    int
	batchCalls   int
	destroyCalls int
	ranges       []BatchRange
	initialized  bool
}

// NewFakeRunner returns an available fake runner with the given batch size.
func NewFakeRunner(size uint64) *FakeRunner {
	return &FakeRunner{Size: size}
}

// Init marks the runner initialized unless it is configured as unavailable.
func (f *FakeRunner) Init(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.initCalls++
	f.initialized = !f.Unavailable

	return f.initialized
}

// InitErr explains a failed Init.
func (f *FakeRunner) InitErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Unavailable {
		return ErrFakeUnavailable
	}

	return nil
}

// BatchSize returns the configured batch size.
func (f *FakeRunner) BatchSize() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Size == 0 {
		return 1024
	}

	return f.Size
}

// RunBatch filters the range on the CPU and records it.
func (f *FakeRunner) RunBatch(
	_ context.Context, target byte, length int, offset, size uint64, _, _ []byte,
) ([]uint64, error) {
	f.mu.Lock()
	f.batchCalls++
	batch := f.batchCalls
	f.ranges = append(f.ranges, BatchRange{Length: length, Offset: offset, Size: size})
	batchErr := f.BatchErr
	hook := f.OnBatch
	f.mu.Unlock()

	if batchErr != nil {
		return nil, batchErr
	}

	var hits []uint64

	for ordinal := offset; ordinal < offset+size; ordinal++ {
		name, err := roomname.IndexToName(length, ordinal)
		if err != nil {
			return nil, err
		}

		if channelkey.ChannelHash(channelkey.DeriveKey(name)) == target {
			hits = append(hits, ordinal)
		}
	}

	if hook != nil {
		hook(batch)
	}

	return hits, nil
}

// Destroy records the call and marks the runner uninitialized.
func (f *FakeRunner) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.destroyCalls++
	f.initialized = false
}

// InitCalls returns how many times Init was called.
func (f *FakeRunner) InitCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.initCalls
}

// BatchCalls returns how many times RunBatch was called.
func (f *FakeRunner) BatchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.batchCalls
}

// DestroyCalls returns how many times Destroy was called.
func (f *FakeRunner) DestroyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.destroyCalls
}

// Ranges returns a copy of the recorded batch ranges.
func (f *FakeRunner) Ranges() []BatchRange {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]BatchRange(nil), f.ranges...)
}

// Reset clears the recorded calls.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.initCalls, f.batchCalls, f.destroyCalls = 0, 0, 0
	f.ranges = nil
}
