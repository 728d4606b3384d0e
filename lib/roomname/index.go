package roomname

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthOutOfRange is returned for lengths outside [1, MaxSupportedLength].
	ErrLengthOutOfRange = errors.New("room name length out of range")
	// ErrOrdinalOutOfRange is returned when an ordinal is not below the count for its length.
	ErrOrdinalOutOfRange = errors.New("ordinal out of range")
	// ErrInvalidName is returned for strings violating the alphabet or dash rules.
	ErrInvalidName = errors.New("invalid room name")
)

// CountNamesForLength returns the exact number of valid room names of the given length.
func CountNamesForLength(length int) (uint64, error) {
	if length < 1 || length > MaxSupportedLength {
		return 0, fmt.Errorf("%w: %d", ErrLengthOutOfRange, length)
	}

	return completions[length][stateStart], nil
}

// MustCount is CountNamesForLength for lengths already known to be in range.
// It panics otherwise.
func MustCount(length int) uint64 {
	count, err := CountNamesForLength(length)
	if err != nil {
		panic(err)
	}

	return count
}

// IndexToName returns the valid name at ordinal among names of the given length.
func IndexToName(length int, ordinal uint64) (string, error) {
	buf, err := AppendName(make([]byte, 0, length), length, ordinal)
	if err != nil {
		return "", err
	}

	return string(buf), nil
}

// AppendName appends the name at ordinal to dst and returns the extended slice.
// It does not allocate when dst has room for length more bytes.
//
// The walk starts at the most significant position. At each position the non-dash symbols
// come first, each covering the number of valid completions of the lower positions; the
// dash, when the automaton allows it, covers the remainder.
func AppendName(dst []byte, length int, ordinal uint64) ([]byte, error) {
	count, err := CountNamesForLength(length)
	if err != nil {
		return dst, err
	}

	if ordinal >= count {
		return dst, fmt.Errorf("%w: %d >= %d for length %d", ErrOrdinalOutOfRange, ordinal, count, length)
	}

	start := len(dst)
	for range length {
		dst = append(dst, 0)
	}

	name := dst[start:]
	s := stateStart

	for i := length - 1; i >= 0; i-- {
		afterSymbol := transitions[s][classSymbol]
		weight := completions[i][afterSymbol]
		block := classWidth[classSymbol] * weight

		if ordinal < block {
			name[i] = Alphabet[ordinal/weight]
			ordinal %= weight
			s = afterSymbol

			continue
		}

		// ordinal < completions[i+1][s] holds here, so the dash is reachable.
		ordinal -= block
		name[i] = Dash
		s = transitions[s][classDash]
	}

	return dst, nil
}

// NameToIndex returns the position of a valid name within its length tier.
func NameToIndex(name string) (Position, error) {
	length := len(name)
	if length < 1 || length > MaxSupportedLength {
		return Position{}, fmt.Errorf("%w: %q has length %d", ErrInvalidName, name, length)
	}

	var ordinal uint64

	s := stateStart

	for i := length - 1; i >= 0; i-- {
		digit, c, ok := classify(name[i])
		if !ok {
			return Position{}, fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, name[i])
		}

		weight := completions[i][transitions[s][classSymbol]]

		switch c {
		case classSymbol:
			ordinal += digit * weight
		case classDash:
			ordinal += classWidth[classSymbol] * weight
		}

		s = transitions[s][c]
		if s == stateReject {
			return Position{}, fmt.Errorf("%w: %q has a misplaced dash", ErrInvalidName, name)
		}
	}

	if s != stateAfterSymbol {
		return Position{}, fmt.Errorf("%w: %q starts with a dash", ErrInvalidName, name)
	}

	return Position{Length: length, Offset: ordinal}, nil
}
