package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
)

// captureLogger redirects the shared logger into a buffer for the duration of the test.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	original := crackstate.Logger
	crackstate.Logger = log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})

	t.Cleanup(func() { crackstate.Logger = original })

	return buf
}

func TestCount(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{in: 0, want: "0"},
		{in: 47952, want: "47,952"},
		{in: 18446744073709551615, want: "18,446,744,073,709,551,615"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, count(tt.in))
		})
	}
}

func TestCrackStarting(t *testing.T) {
	buf := captureLogger(t)

	p, err := grouptext.NewPacket(channelkey.DeriveKey("test"), time.Unix(1700000000, 0), "a: b")
	require.NoError(t, err)

	CrackStarting(p, 8, 3)

	out := buf.String()
	assert.Contains(t, out, "Starting crack")
	assert.Contains(t, out, "max_length=8")
	assert.Contains(t, out, "wordlist=3")
}

func TestProgress(t *testing.T) {
	buf := captureLogger(t)

	Progress("brute_force", 500, 1000, 2_500_000, 90*time.Second, 4)

	out := buf.String()
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "2.5 Mkeys/s")
	assert.Contains(t, out, "1m30s")
}

func TestPhaseStarted(t *testing.T) {
	buf := captureLogger(t)

	PhaseStarted("dictionary", 1_234_567)

	out := buf.String()
	assert.Contains(t, out, "Phase started")
	assert.Contains(t, out, "dictionary")
	assert.Contains(t, out, "1,234,567")
}

func TestFoundAndNotFound(t *testing.T) {
	buf := captureLogger(t)

	Found("test-room", "0011", grouptext.Message{Sender: "alice", Body: "hi", Timestamp: time.Now()})
	NotFound(1296, time.Second, false)
	NotFound(3, 0, true)
	Aborted("bf:3:5000", "9-9")

	out := buf.String()
	assert.Contains(t, out, "room=#test-room")
	assert.Contains(t, out, "sender=alice")
	assert.Contains(t, out, "checked=1,296")
	assert.Contains(t, out, "brute force skipped")
	assert.Contains(t, out, "resume=bf:3:5000")
}

func TestDevices(t *testing.T) {
	buf := captureLogger(t)

	Devices(nil)
	Devices([]accel.DeviceInfo{{Name: "host", Model: "Test CPU", LogicalCores: 8, MemoryTotal: 1 << 30}})

	out := buf.String()
	assert.Contains(t, out, "No accelerator devices found")
	assert.Contains(t, out, "logical_cores=8")
	assert.Contains(t, out, "1.0 GiB")
}

func TestKeyspace(t *testing.T) {
	buf := captureLogger(t)

	Keyspace([]uint64{36, 1296, 47952})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "cumulative=49,284")
}

func TestProgressBar(t *testing.T) {
	out := &bytes.Buffer{}
	bar := NewProgressBar(out)

	bar.Finish() // no-op before the first update

	bar.Update("brute_force", 10, 100)
	bar.Update("brute_force", 100, 100)
	bar.Finish()

	assert.NotEmpty(t, out.String())
}
