// Package roomname defines the candidate room-name space: its alphabet, the dash rules,
// exact per-length counts and a bijection between ordinals and names.
//
// Names are indexed least-significant-character-first over the full alphabet, so position 0
// is the lowest digit and the dash is the highest symbol. The ordinal of a valid name is the
// number of valid names of the same length with a smaller index.
package roomname

const (
	// Alphabet is the full candidate alphabet in digit order.
	Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789-"
	// Dash is the only symbol restricted by position.
	Dash = '-'
	// MaxSupportedLength is the longest length whose count fits in a uint64.
	MaxSupportedLength = 12
	// DefaultMaxLength is the brute-force ceiling used when none is configured.
	DefaultMaxLength = 8

	symbolCount uint64 = uint64(len(Alphabet) - 1) // Non-dash symbols
)

// state is a node of the dash automaton.
type state uint8

const (
	stateStart       state = iota // At a name boundary, a dash may not be placed
	stateAfterDash                // The neighbouring character is a dash
	stateAfterSymbol              // The neighbouring character is a letter or digit
	stateReject                   // Dead state

	numStates = int(stateReject)
)

// class is the automaton input: any non-dash symbol, or the dash.
type class uint8

const (
	classSymbol class = iota
	classDash
	numClasses
)

// transitions is the dash automaton. A name is accepted when it ends in stateAfterSymbol,
// which rules out a dash at either end; stateAfterDash rejects a second dash.
var transitions = [numStates][numClasses]state{ //nolint:gochecknoglobals // Static automaton table
	stateStart:       {classSymbol: stateAfterSymbol, classDash: stateReject},
	stateAfterDash:   {classSymbol: stateAfterSymbol, classDash: stateReject},
	stateAfterSymbol: {classSymbol: stateAfterSymbol, classDash: stateAfterDash},
}

// classWidth is how many alphabet symbols each input class stands for.
var classWidth = [numClasses]uint64{classSymbol: symbolCount, classDash: 1} //nolint:gochecknoglobals // Static table

// completions[k][s] is the number of ways to consume exactly k more characters starting in s
// and finish in the accepting state.
var completions = buildCompletions() //nolint:gochecknoglobals // Built once, read-only

func buildCompletions() [MaxSupportedLength + 1][numStates]uint64 {
	var table [MaxSupportedLength + 1][numStates]uint64

	table[0][stateAfterSymbol] = 1

	for k := 1; k <= MaxSupportedLength; k++ {
		for s := range numStates {
			var total uint64

			for c := range numClasses {
				next := transitions[s][c]
				if next == stateReject {
					continue
				}

				total += classWidth[c] * table[k-1][next]
			}

			table[k][s] = total
		}
	}

	return table
}

// classify maps a byte to its alphabet digit and automaton class.
func classify(b byte) (digit uint64, c class, ok bool) {
	switch {
	case b >= 'a' && b <= 'z':
		return uint64(b - 'a'), classSymbol, true
	case b >= '0' && b <= '9':
		return uint64(b-'0') + 26, classSymbol, true
	case b == Dash:
		return symbolCount, classDash, true
	default:
		return 0, classSymbol, false
	}
}

// IsValid reports whether name is a syntactically valid room name of a searchable length.
func IsValid(name string) bool {
	if len(name) == 0 || len(name) > MaxSupportedLength {
		return false
	}

	s := stateStart

	for i := len(name) - 1; i >= 0; i-- {
		_, c, ok := classify(name[i])
		if !ok {
			return false
		}

		s = transitions[s][c]
		if s == stateReject {
			return false
		}
	}

	return s == stateAfterSymbol
}
