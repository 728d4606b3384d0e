package roomname

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is an ordinal position within the valid names of one length.
type Position struct {
	Length int    `json:"length"`
	Offset uint64 `json:"offset"`
}

// Start is the first position of the search space.
var Start = Position{Length: 1, Offset: 0} //nolint:gochecknoglobals // Immutable value

// String renders the position as "length:offset".
func (p Position) String() string {
	return strconv.Itoa(p.Length) + ":" + strconv.FormatUint(p.Offset, 10)
}

// ParsePosition parses the "length:offset" form produced by String.
func ParsePosition(s string) (Position, error) {
	lengthPart, offsetPart, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return Position{}, fmt.Errorf("position %q: missing ':'", s)
	}

	length, err := strconv.Atoi(lengthPart)
	if err != nil {
		return Position{}, fmt.Errorf("position %q: %w", s, err)
	}

	offset, err := strconv.ParseUint(offsetPart, 10, 64)
	if err != nil {
		return Position{}, fmt.Errorf("position %q: %w", s, err)
	}

	p := Position{Length: length, Offset: offset}
	if !p.Valid() && !p.isTierStart() {
		return Position{}, fmt.Errorf("position %q: %w", s, ErrOrdinalOutOfRange)
	}

	return p, nil
}

// Valid reports whether the position addresses an existing name.
func (p Position) Valid() bool {
	count, err := CountNamesForLength(p.Length)
	return err == nil && p.Offset < count
}

// isTierStart reports whether p is the first position of a tier just past MaxSupportedLength.
func (p Position) isTierStart() bool {
	return p.Length == MaxSupportedLength+1 && p.Offset == 0
}

// IsStart reports whether p is the very beginning of the search space.
func (p Position) IsStart() bool {
	return p == Start
}

// Next returns the position following p, wrapping to the next length at the end of a tier.
func (p Position) Next() Position {
	count, err := CountNamesForLength(p.Length)
	if err == nil && p.Offset+1 >= count {
		return Position{Length: p.Length + 1, Offset: 0}
	}

	return Position{Length: p.Length, Offset: p.Offset + 1}
}

// Prev returns the position preceding p. It reports false at the very start.
func (p Position) Prev() (Position, bool) {
	if p.Offset > 0 {
		return Position{Length: p.Length, Offset: p.Offset - 1}, true
	}

	if p.Length <= 1 {
		return Position{}, false
	}

	count, err := CountNamesForLength(p.Length - 1)
	if err != nil {
		return Position{}, false
	}

	return Position{Length: p.Length - 1, Offset: count - 1}, true
}

// Name returns the room name at p.
func (p Position) Name() (string, error) {
	return IndexToName(p.Length, p.Offset)
}

// PositionAfter returns the position immediately after name, the resume point for a search
// that has already tested name.
func PositionAfter(name string) (Position, error) {
	p, err := NameToIndex(name)
	if err != nil {
		return Position{}, err
	}

	return p.Next(), nil
}

// Remaining returns how many names lie in [from, end of maxLength].
func Remaining(from Position, maxLength int) (uint64, error) {
	if maxLength < 1 || maxLength > MaxSupportedLength {
		return 0, fmt.Errorf("%w: %d", ErrLengthOutOfRange, maxLength)
	}

	var total uint64

	for length := max(from.Length, 1); length <= maxLength; length++ {
		total += completions[length][stateStart]
	}

	if from.Length >= 1 && from.Length <= maxLength {
		total -= min(from.Offset, completions[from.Length][stateStart])
	}

	return total, nil
}
