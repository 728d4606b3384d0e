package crackerr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclesp1d3r/meshcrack/crackstate"
)

var errBase = errors.New("base failure")

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindUnknown, "unknown"},
		{KindInput, "input"},
		{KindAccelerationUnavailable, "acceleration_unavailable"},
		{KindCandidateRejected, "candidate_rejected"},
		{KindAborted, "aborted"},
		{KindDevice, "device"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestKindFatal(t *testing.T) {
	assert.True(t, KindInput.Fatal())
	assert.True(t, KindDevice.Fatal())
	assert.True(t, KindAccelerationUnavailable.Fatal())
	assert.False(t, KindCandidateRejected.Fatal())
	assert.False(t, KindAborted.Fatal())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "decode: base failure", New(KindInput, "decode", errBase).Error())
	assert.Equal(t, "base failure", New(KindInput, "", errBase).Error())
	assert.Equal(t, "decode", New(KindInput, "decode", nil).Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "nil", err: nil, expected: KindUnknown},
		{name: "plain", err: errBase, expected: KindUnknown},
		{name: "classified", err: New(KindDevice, "dispatch", errBase), expected: KindDevice},
		{
			name:     "wrapped",
			err:      fmt.Errorf("outer: %w", New(KindCandidateRejected, "mac", errBase)),
			expected: KindCandidateRejected,
		},
		{name: "context canceled", err: fmt.Errorf("batch: %w", context.Canceled), expected: KindAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	err := New(KindInput, "options", errBase)

	assert.True(t, IsKind(err, KindInput))
	assert.False(t, IsKind(err, KindDevice))
	assert.False(t, IsKind(nil, KindUnknown))
	require.ErrorIs(t, err, errBase)
}

func TestLogAndReturn(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		toErrLog  bool
		wantLevel string
	}{
		{name: "rejection at debug", err: New(KindCandidateRejected, "mac", errBase), wantLevel: "DEBU"},
		{name: "abort at info", err: New(KindAborted, "crack", context.Canceled), wantLevel: "INFO"},
		{name: "device at error", err: New(KindDevice, "dispatch", errBase), toErrLog: true, wantLevel: "ERRO"},
		{name: "unclassified at error", err: errBase, toErrLog: true, wantLevel: "ERRO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			logger, errLogger := crackstate.Logger, crackstate.ErrorLogger
			crackstate.Logger = log.NewWithOptions(out, log.Options{Level: log.DebugLevel})
			crackstate.ErrorLogger = log.NewWithOptions(errOut, log.Options{Level: log.DebugLevel})

			t.Cleanup(func() {
				crackstate.Logger, crackstate.ErrorLogger = logger, errLogger
			})

			got := LogAndReturn("Something happened", tt.err, "position", "3:7")
			assert.Same(t, tt.err, got)

			written := out.String()
			if tt.toErrLog {
				assert.Empty(t, written)
				written = errOut.String()
			} else {
				assert.Empty(t, errOut.String())
			}

			assert.Contains(t, written, tt.wantLevel)
			assert.Contains(t, written, "Something happened")
			assert.Contains(t, written, "position=3:7")
		})
	}
}

func TestLogAndReturn_Nil(t *testing.T) {
	assert.NoError(t, LogAndReturn("nothing", nil))
}
