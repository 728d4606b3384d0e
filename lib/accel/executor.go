package accel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

// Config selects the device and the batch tuning parameters of an Executor.
type Config struct {
	Backend     string
	Workers     int
	BatchFloor  uint64
	BatchMax    uint64
	BatchTarget time.Duration
}

// ConfigFromState returns the executor configuration held in crackstate.State.
func ConfigFromState() Config {
	return Config{
		Backend:     crackstate.State.Backend,
		Workers:     crackstate.State.Workers,
		BatchFloor:  crackstate.State.BatchFloor,
		BatchMax:    crackstate.State.BatchMax,
		BatchTarget: crackstate.State.BatchTarget,
	}
}

// Executor owns one device and submits batches to it, one at a time.
// Resources are acquired by Init and released by Destroy; Init may be called again after Destroy.
type Executor struct {
	mu      sync.Mutex
	cfg     Config
	factory func(backend string, workers int) (Device, error)
	now     func() time.Time
	device  Device
	tuner   *batchTuner
	initErr error
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithDevice makes the executor use d instead of opening one by backend name.
func WithDevice(d Device) ExecutorOption {
	return func(e *Executor) {
		e.factory = func(string, int) (Device, error) { return d, nil }
	}
}

// WithClock replaces the clock used to time dispatches.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.now = now
	}
}

// NewExecutor returns an uninitialized executor.
func NewExecutor(cfg Config, opts ...ExecutorOption) *Executor {
	e := &Executor{
		cfg:     cfg,
		factory: OpenDevice,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Init opens the device and resets batch tuning. It reports whether acceleration is
// available; the reason for a failure is kept in InitErr. Calling Init on an initialized
// executor is a no-op.
func (e *Executor) Init(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device != nil {
		return true
	}

	device, err := e.factory(e.cfg.Backend, e.cfg.Workers)
	if err != nil {
		e.initErr = err
		crackstate.Logger.Debug("Accelerator unavailable", "backend", e.cfg.Backend, "error", err)

		return false
	}

	if err := device.Open(ctx); err != nil {
		e.initErr = crackerr.New(crackerr.KindAccelerationUnavailable, "open device", err)
		crackstate.Logger.Debug("Couldn't open accelerator", "device", device.Name(), "error", err)

		return false
	}

	e.device = device
	e.initErr = nil
	e.tuner = newBatchTuner(e.cfg.BatchFloor, e.cfg.BatchMax, e.cfg.BatchTarget)

	crackstate.Logger.Debug("Accelerator initialized", "device", device.Name(), "batch_size", e.tuner.size)

	return true
}

// Available reports whether the executor holds an open device.
func (e *Executor) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.device != nil
}

// InitErr returns why the last Init failed, or nil.
func (e *Executor) InitErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.initErr
}

// DeviceName returns the open device's name, or "" when uninitialized.
func (e *Executor) DeviceName() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device == nil {
		return ""
	}

	return e.device.Name()
}

// BatchSize returns the current batch size.
func (e *Executor) BatchSize() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tuner == nil {
		return max(e.cfg.BatchFloor, 1)
	}

	return e.tuner.size
}

// RunBatch filters [offset, offset+size) of the names of length for channel hash target.
// size is clamped to the end of the tier. The ciphertext and MAC are accepted for a fused
// filter-and-verify device but the filter pass ignores them; every returned ordinal still
// needs full verification.
func (e *Executor) RunBatch(
	ctx context.Context, target byte, length int, offset, size uint64, ciphertext, mac []byte,
) ([]uint64, error) {
	_, _ = ciphertext, mac

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device == nil {
		return nil, crackerr.New(crackerr.KindAccelerationUnavailable, "run batch", ErrNotInitialized)
	}

	count, err := roomname.CountNamesForLength(length)
	if err != nil {
		return nil, crackerr.New(crackerr.KindInput, "run batch", err)
	}

	if offset >= count {
		return nil, crackerr.New(crackerr.KindInput, "run batch",
			fmt.Errorf("%w: offset %d >= %d", ErrJobOutOfRange, offset, count))
	}

	size = min(size, count-offset)
	job := Job{Target: target, Length: length, Offset: offset, Count: size}

	started := e.now()

	matches, err := e.device.Dispatch(ctx, job)
	if err != nil {
		return nil, crackerr.New(crackerr.KindDevice, "dispatch", err)
	}

	elapsed := e.now().Sub(started)

	if e.tuner.observe(size, elapsed) {
		crackstate.Logger.Debug("Batch size tuned",
			"device", e.device.Name(), "batch_size", e.tuner.size, "sample", size, "elapsed", elapsed)
	}

	return matches, nil
}

// Destroy closes the device. It is safe to call repeatedly and on an uninitialized executor.
func (e *Executor) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device == nil {
		return
	}

	if err := e.device.Close(); err != nil {
		crackstate.Logger.Error("Couldn't close accelerator", "device", e.device.Name(), "error", err)
	}

	e.device = nil
	e.tuner = nil
}
