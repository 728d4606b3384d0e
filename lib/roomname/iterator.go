package roomname

import "fmt"

// Iterator walks the name space in search order: ascending length, then ascending ordinal.
// It is restartable through Reset and SkipTo but not safe for concurrent use.
type Iterator struct {
	maxLength int
	pos       Position
	count     uint64 // Count for pos.Length
	buf       []byte
	done      bool
}

// NewIterator returns an iterator positioned at the first name, covering lengths up to maxLength.
func NewIterator(maxLength int) (*Iterator, error) {
	if maxLength < 1 || maxLength > MaxSupportedLength {
		return nil, fmt.Errorf("%w: %d", ErrLengthOutOfRange, maxLength)
	}

	it := &Iterator{
		maxLength: maxLength,
		buf:       make([]byte, 0, maxLength),
	}
	it.Reset()

	return it, nil
}

// Reset rewinds the iterator to the first name.
func (it *Iterator) Reset() {
	//nolint:errcheck // Start is always in range
	_ = it.SkipTo(Start.Length, Start.Offset)
}

// SkipTo positions the iterator at (length, ordinal). An ordinal equal to the tier's count
// is the same as the start of the next length.
func (it *Iterator) SkipTo(length int, ordinal uint64) error {
	if length < 1 || length > it.maxLength+1 {
		return fmt.Errorf("%w: %d", ErrLengthOutOfRange, length)
	}

	if length == it.maxLength+1 {
		if ordinal != 0 {
			return fmt.Errorf("%w: %d past the last length", ErrOrdinalOutOfRange, ordinal)
		}

		it.pos = Position{Length: length}
		it.done = true
		it.buf = it.buf[:0]

		return nil
	}

	count := MustCount(length)
	if ordinal > count {
		return fmt.Errorf("%w: %d > %d for length %d", ErrOrdinalOutOfRange, ordinal, count, length)
	}

	if ordinal == count {
		return it.SkipTo(length+1, 0)
	}

	it.pos = Position{Length: length, Offset: ordinal}
	it.count = count
	it.done = false
	it.decode()

	return nil
}

// Next advances to the following name and reports whether one exists.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}

	if it.pos.Offset+1 < it.count {
		it.pos.Offset++
		it.decode()

		return true
	}

	//nolint:errcheck // length+1 is at most maxLength+1, which SkipTo accepts
	_ = it.SkipTo(it.pos.Length+1, 0)

	return !it.done
}

// Current returns the name at the current position, or "" once the iterator is done.
func (it *Iterator) Current() string {
	if it.done {
		return ""
	}

	return string(it.buf)
}

// Position returns the current position.
func (it *Iterator) Position() Position {
	return it.pos
}

// Done reports whether the iterator has moved past the last name.
func (it *Iterator) Done() bool {
	return it.done
}

func (it *Iterator) decode() {
	var err error

	it.buf, err = AppendName(it.buf[:0], it.pos.Length, it.pos.Offset)
	if err != nil {
		panic(err) // pos is kept in range by SkipTo and Next
	}
}
