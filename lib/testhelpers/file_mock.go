package testhelpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CreateTestFile creates a test file with the specified content in the given directory.
// Returns the full file path.
func CreateTestFile(t *testing.T, dir, filename string, content []byte) string {
	t.Helper()
	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, content, 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return filePath
}

// CreateWordlistFile writes words one per line to wordlist.txt in dir and returns its path.
func CreateWordlistFile(t *testing.T, dir string, words []string) string {
	t.Helper()
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(w + "\n")
	}
	return CreateTestFile(t, dir, "wordlist.txt", []byte(sb.String()))
}

// CreatePacketFile writes packets one hex string per line to packets.txt in dir and returns its path.
func CreatePacketFile(t *testing.T, dir string, packets []string) string {
	t.Helper()
	return CreateTestFile(t, dir, "packets.txt", []byte(strings.Join(packets, "\n")+"\n"))
}
