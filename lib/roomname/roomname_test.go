package roomname

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForceCount counts strings of the given length over Alphabet that pass the dash rules,
// without using the automaton.
func bruteForceCount(length int) uint64 {
	var count uint64

	buf := make([]byte, length)

	var walk func(pos int)
	walk = func(pos int) {
		if pos == length {
			if naiveValid(string(buf)) {
				count++
			}

			return
		}

		for i := range len(Alphabet) {
			buf[pos] = Alphabet[i]
			walk(pos + 1)
		}
	}
	walk(0)

	return count
}

// naiveValid checks the dash rules with plain string operations.
func naiveValid(name string) bool {
	if name == "" {
		return false
	}

	return !strings.HasPrefix(name, "-") && !strings.HasSuffix(name, "-") && !strings.Contains(name, "--")
}

// recurrenceCount computes the count with the closed recurrence
// A(k) = 36*(A(k-1)+D(k-1)), D(k) = A(k-1), where A ends in a symbol and D in a dash.
func recurrenceCount(length int) uint64 {
	endSymbol, endDash := uint64(36), uint64(0)

	for k := 2; k <= length; k++ {
		endSymbol, endDash = 36*(endSymbol+endDash), endSymbol
	}

	return endSymbol
}

func TestCountNamesForLength(t *testing.T) {
	tests := []struct {
		length   int
		expected uint64
	}{
		{length: 1, expected: 36},
		{length: 2, expected: 1296},
		{length: 3, expected: 47952},
	}

	for _, tt := range tests {
		count, err := CountNamesForLength(tt.length)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, count, "length %d", tt.length)
	}
}

func TestCountNamesForLength_MatchesBruteForce(t *testing.T) {
	for length := 1; length <= 4; length++ {
		count, err := CountNamesForLength(length)
		require.NoError(t, err)
		assert.Equal(t, bruteForceCount(length), count, "length %d", length)
	}
}

func TestCountNamesForLength_MatchesRecurrence(t *testing.T) {
	for length := 1; length <= MaxSupportedLength; length++ {
		count, err := CountNamesForLength(length)
		require.NoError(t, err)
		assert.Equal(t, recurrenceCount(length), count, "length %d", length)
	}
}

func TestCountNamesForLength_OutOfRange(t *testing.T) {
	for _, length := range []int{-1, 0, MaxSupportedLength + 1} {
		_, err := CountNamesForLength(length)
		require.ErrorIs(t, err, ErrLengthOutOfRange)
	}
}

func TestRoundTrip(t *testing.T) {
	for length := 1; length <= 4; length++ {
		count := MustCount(length)

		for ordinal := range count {
			name, err := IndexToName(length, ordinal)
			require.NoError(t, err)

			pos, err := NameToIndex(name)
			require.NoError(t, err)

			if pos.Length != length || pos.Offset != ordinal {
				t.Fatalf("round trip mismatch: (%d, %d) -> %q -> %v", length, ordinal, name, pos)
			}
		}
	}
}

func TestIndexToName_DistinctAndValid(t *testing.T) {
	const length = 3

	seen := make(map[string]struct{}, MustCount(length))

	for ordinal := range MustCount(length) {
		name, err := IndexToName(length, ordinal)
		require.NoError(t, err)
		require.Len(t, name, length)

		if !naiveValid(name) {
			t.Fatalf("ordinal %d produced invalid name %q", ordinal, name)
		}

		if _, dup := seen[name]; dup {
			t.Fatalf("ordinal %d produced duplicate name %q", ordinal, name)
		}

		seen[name] = struct{}{}
	}

	assert.Len(t, seen, int(MustCount(length)))
}

func TestIndexToName_FollowsIndexOrder(t *testing.T) {
	// The least significant character is the first one, so the first names vary their
	// first character, and the dash is the highest digit.
	first, err := IndexToName(2, 0)
	require.NoError(t, err)
	assert.Equal(t, "aa", first)

	second, err := IndexToName(2, 1)
	require.NoError(t, err)
	assert.Equal(t, "ba", second)

	last, err := IndexToName(3, MustCount(3)-1)
	require.NoError(t, err)
	assert.Equal(t, "9-9", last)
}

func TestIndexToName_OutOfRange(t *testing.T) {
	_, err := IndexToName(2, MustCount(2))
	require.ErrorIs(t, err, ErrOrdinalOutOfRange)

	_, err = IndexToName(0, 0)
	require.ErrorIs(t, err, ErrLengthOutOfRange)
}

func TestNameToIndex_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "leading dash", input: "-abc"},
		{name: "trailing dash", input: "abc-"},
		{name: "double dash", input: "ab--cd"},
		{name: "single dash", input: "-"},
		{name: "uppercase", input: "Room"},
		{name: "underscore", input: "my_room"},
		{name: "too long", input: strings.Repeat("a", MaxSupportedLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NameToIndex(tt.input)
			require.ErrorIs(t, err, ErrInvalidName)
			assert.False(t, IsValid(tt.input))
		})
	}
}

func TestNameToIndex_LongNames(t *testing.T) {
	for _, name := range []string{"test-room", "a-b-c-d-e-f", "zzzzzzzzzzzz", "999999999999", "mesh-2024"} {
		pos, err := NameToIndex(name)
		require.NoError(t, err)

		back, err := IndexToName(pos.Length, pos.Offset)
		require.NoError(t, err)
		assert.Equal(t, name, back)
	}
}

func TestAppendName_ReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 8)
	buf = append(buf, '#')

	out, err := AppendName(buf, 4, 12345)
	require.NoError(t, err)

	name, err := IndexToName(4, 12345)
	require.NoError(t, err)
	assert.Equal(t, "#"+name, string(out))
}

func TestPosition_NextPrev(t *testing.T) {
	last1 := Position{Length: 1, Offset: 35}
	assert.Equal(t, Position{Length: 2, Offset: 0}, last1.Next())

	prev, ok := Position{Length: 2, Offset: 0}.Prev()
	require.True(t, ok)
	assert.Equal(t, last1, prev)

	_, ok = Start.Prev()
	assert.False(t, ok)
}

func TestPositionAfter(t *testing.T) {
	pos, err := PositionAfter("9")
	require.NoError(t, err)
	assert.Equal(t, Position{Length: 2, Offset: 0}, pos)

	pos, err = PositionAfter("a")
	require.NoError(t, err)
	assert.Equal(t, Position{Length: 1, Offset: 1}, pos)

	_, err = PositionAfter("-a")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestParsePosition(t *testing.T) {
	pos, err := ParsePosition("3:5000")
	require.NoError(t, err)
	assert.Equal(t, Position{Length: 3, Offset: 5000}, pos)
	assert.Equal(t, "3:5000", pos.String())

	_, err = ParsePosition("3")
	require.Error(t, err)

	_, err = ParsePosition("1:36")
	require.ErrorIs(t, err, ErrOrdinalOutOfRange)
}

func TestRemaining(t *testing.T) {
	total, err := Remaining(Start, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(36+1296+47952), total)

	total, err = Remaining(Position{Length: 2, Offset: 100}, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(1296-100+47952), total)

	total, err = Remaining(Position{Length: 4, Offset: 0}, 3)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestIterator_MatchesIndexing(t *testing.T) {
	it, err := NewIterator(2)
	require.NoError(t, err)

	var visited uint64

	for !it.Done() {
		pos := it.Position()
		expected, err := IndexToName(pos.Length, pos.Offset)
		require.NoError(t, err)
		require.Equal(t, expected, it.Current())

		visited++
		it.Next()
	}

	assert.Equal(t, MustCount(1)+MustCount(2), visited)
	assert.Empty(t, it.Current())
	assert.False(t, it.Next())
}

func TestIterator_SkipToMatchesStepping(t *testing.T) {
	stepped, err := NewIterator(3)
	require.NoError(t, err)

	for range 36 + 700 {
		require.True(t, stepped.Next())
	}

	skipped, err := NewIterator(3)
	require.NoError(t, err)
	require.NoError(t, skipped.SkipTo(2, 700))

	assert.Equal(t, stepped.Position(), skipped.Position())
	assert.Equal(t, stepped.Current(), skipped.Current())

	for range 1000 {
		require.Equal(t, stepped.Next(), skipped.Next())
		require.Equal(t, stepped.Current(), skipped.Current())
	}
}

func TestIterator_SkipToTierEnd(t *testing.T) {
	it, err := NewIterator(2)
	require.NoError(t, err)

	require.NoError(t, it.SkipTo(1, 36))
	assert.Equal(t, Position{Length: 2, Offset: 0}, it.Position())

	require.NoError(t, it.SkipTo(2, MustCount(2)))
	assert.True(t, it.Done())

	require.ErrorIs(t, it.SkipTo(1, 37), ErrOrdinalOutOfRange)

	it.Reset()
	assert.Equal(t, "a", it.Current())
}
