package testhelpers

import (
	"os"
	"path/filepath"
	"time"

	"github.com/unclesp1d3r/meshcrack/crackstate"
)

const dirPerm os.FileMode = 0o755

func mustMkdirAll(path string) {
	if err := os.MkdirAll(path, dirPerm); err != nil {
		panic(err)
	}
}

// SetupTestState initializes crackstate.State with test values backed by a temporary
// directory, and returns a cleanup function that removes it and resets the state.
func SetupTestState() func() {
	testDataDir, err := os.MkdirTemp(os.TempDir(), "meshcrack-test-*")
	if err != nil {
		panic(err)
	}

	crackstate.State.DataPath = filepath.Join(testDataDir, "data")
	crackstate.State.WordlistPath = filepath.Join(testDataDir, "data", "wordlists")
	crackstate.State.BenchmarkCachePath = filepath.Join(testDataDir, "data", "benchmark_cache.json")
	crackstate.State.Debug = false
	crackstate.State.MaxLength = 8
	crackstate.State.UseTimestampFilter = true
	crackstate.State.UseUTF8Filter = true
	crackstate.State.TimestampWindow = 30 * 24 * time.Hour
	crackstate.State.Backend = "host"
	crackstate.State.DictionaryOnlyFallback = false
	crackstate.State.BatchFloor = 32768
	crackstate.State.BatchMax = 1 << 26
	crackstate.State.BatchTarget = time.Second
	crackstate.State.Workers = 0
	crackstate.State.ProgressInterval = 200 * time.Millisecond
	crackstate.State.ForceBenchmark = false

	mustMkdirAll(crackstate.State.DataPath)
	mustMkdirAll(crackstate.State.WordlistPath)

	return func() {
		_ = os.RemoveAll(testDataDir)

		ResetTestState()
	}
}

// ResetTestState resets crackstate.State to zero values without cleanup.
func ResetTestState() {
	crackstate.State.DataPath = ""
	crackstate.State.WordlistPath = ""
	crackstate.State.BenchmarkCachePath = ""
	crackstate.State.Debug = false
	crackstate.State.MaxLength = 0
	crackstate.State.UseTimestampFilter = false
	crackstate.State.UseUTF8Filter = false
	crackstate.State.TimestampWindow = 0
	crackstate.State.Backend = ""
	crackstate.State.DictionaryOnlyFallback = false
	crackstate.State.BatchFloor = 0
	crackstate.State.BatchMax = 0
	crackstate.State.BatchTarget = 0
	crackstate.State.Workers = 0
	crackstate.State.ProgressInterval = 0
	crackstate.State.ForceBenchmark = false
}

// WithTestState sets up state, runs testFunc and cleans up.
func WithTestState(testFunc func()) {
	cleanup := SetupTestState()
	defer cleanup()
	testFunc()
}
