// Package wordlist loads and normalizes candidate room-name wordlists for the dictionary phase.
package wordlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/duke-git/lancet/v2/slice"
	"github.com/duke-git/lancet/v2/strutil"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

// maxLineSize bounds a single wordlist line.
const maxLineSize = 1 << 20

// NormalizeWord trims and lowercases word and strips a leading channel marker.
// It reports false when the result is not a valid room name.
func NormalizeWord(word string) (string, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	word = strings.TrimPrefix(word, "#")

	if strutil.IsBlank(word) || !roomname.IsValid(word) {
		return "", false
	}

	return word, true
}

// Normalize normalizes every entry, drops invalid names and removes duplicates,
// keeping the first occurrence of each name.
func Normalize(words []string) []string {
	normalized := make([]string, 0, len(words))

	for _, w := range words {
		if n, ok := NormalizeWord(w); ok {
			normalized = append(normalized, n)
		}
	}

	return slice.Unique(normalized)
}

// Parse reads one word per line from r and returns the normalized list.
func Parse(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading wordlist: %w", err)
	}

	return Normalize(lines), nil
}

// LoadFile reads and normalizes the wordlist at path.
func LoadFile(path string) ([]string, error) {
	if !fileutil.IsExist(path) {
		return nil, fmt.Errorf("wordlist %q does not exist", path)
	}

	lines, err := fileutil.ReadFileByLine(path)
	if err != nil {
		return nil, fmt.Errorf("reading wordlist %q: %w", path, err)
	}

	words := Normalize(lines)
	crackstate.Logger.Debug("Loaded wordlist", "path", path, "lines", len(lines), "words", len(words))

	return words, nil
}
