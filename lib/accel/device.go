// Package accel runs the brute-force channel-hash filter over batches of room-name ordinals
// on an accelerator device, and owns the device lifecycle and batch-size tuning.
package accel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
)

// Backend names accepted by OpenDevice.
const (
	BackendAuto = "auto"
	BackendHost = "host"
	BackendNone = "none"
)

var (
	// ErrUnavailable is returned when no accelerator can be opened.
	ErrUnavailable = errors.New("no accelerator available")
	// ErrUnknownBackend is returned for backend names OpenDevice does not know.
	ErrUnknownBackend = errors.New("unknown accelerator backend")
	// ErrNotInitialized is returned by RunBatch before Init or after Destroy.
	ErrNotInitialized = errors.New("executor not initialized")
	// ErrDeviceClosed is returned when dispatching to a closed device.
	ErrDeviceClosed = errors.New("device closed")
	// ErrJobOutOfRange is returned for jobs reaching past the end of their length tier.
	ErrJobOutOfRange = errors.New("job out of range")
)

// Job is one filter dispatch: every ordinal in [Offset, Offset+Count) of the names of
// Length is hashed, and those whose channel hash equals Target are returned.
type Job struct {
	Target byte
	Length int
	Offset uint64
	Count  uint64
}

// Device is an accelerator able to run the channel-hash filter.
// Implementations own all device-side resources between Open and Close.
type Device interface {
	// Name returns a short identifier for logs and benchmark caching.
	Name() string
	// Open acquires device resources.
	Open(ctx context.Context) error
	// Dispatch runs job and returns the matching absolute ordinals in ascending order.
	Dispatch(ctx context.Context, job Job) ([]uint64, error)
	// Close releases device resources. It must be safe to call more than once.
	Close() error
}

// OpenDevice returns an unopened device for the named backend.
// "none" is an explicit opt-out and always reports ErrUnavailable.
func OpenDevice(backend string, workers int) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto, BackendHost:
		return NewHostDevice(workers), nil
	case BackendNone:
		return nil, crackerr.New(crackerr.KindAccelerationUnavailable, "open device",
			fmt.Errorf("%w: backend disabled", ErrUnavailable))
	default:
		return nil, crackerr.New(crackerr.KindInput, "open device", fmt.Errorf("%w: %q", ErrUnknownBackend, backend))
	}
}
