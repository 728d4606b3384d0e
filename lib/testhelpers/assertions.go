package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

// AssertContiguousRanges checks that the recorded batches start at from, never overlap and
// leave no gaps, crossing from one length tier to the next only at the tier end.
// It returns the position just past the last batch.
func AssertContiguousRanges(t *testing.T, from roomname.Position, ranges []BatchRange) roomname.Position {
	t.Helper()

	pos := from
	for i, r := range ranges {
		require.Equal(t, pos.Length, r.Length, "batch %d length", i)
		require.Equal(t, pos.Offset, r.Offset, "batch %d offset", i)
		require.Positive(t, r.Size, "batch %d size", i)

		count := roomname.MustCount(r.Length)
		require.LessOrEqual(t, r.Offset+r.Size, count, "batch %d crosses the tier end", i)

		pos.Offset += r.Size
		if pos.Offset == count {
			pos = roomname.Position{Length: pos.Length + 1}
		}
	}

	return pos
}

// SumRangeSizes returns the number of candidates covered by ranges.
func SumRangeSizes(ranges []BatchRange) uint64 {
	var total uint64
	for _, r := range ranges {
		total += r.Size
	}
	return total
}

// AssertValidRoomName asserts that name is a syntactically valid room name.
func AssertValidRoomName(t *testing.T, name string) {
	t.Helper()
	assert.True(t, roomname.IsValid(name), "%q is not a valid room name", name)
}
