package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/display"
)

const (
	cacheFilePermissions = 0o600 // File permissions for benchmark cache
)

// saveBenchmarkCache marshals the benchmark results to JSON and writes them
// atomically to the cache file via a temporary file and rename.
func saveBenchmarkCache(results []display.BenchmarkResult) error {
	cachePath := crackstate.State.BenchmarkCachePath
	if cachePath == "" {
		crackstate.Logger.Warn("Benchmark cache path not configured, skipping cache save")
		return errors.New("benchmark cache path not configured")
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal benchmark cache: %w", err)
	}

	tmpPath := cachePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("failed to write benchmark cache: %w", err)
	}

	if err := os.Rename(tmpPath, cachePath); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			crackstate.Logger.Warn("Failed to clean up temp cache file",
				"error", removeErr, "path", tmpPath)
		}
		return fmt.Errorf("failed to rename benchmark cache: %w", err)
	}

	crackstate.Logger.Debug("Benchmark results cached to disk", "path", cachePath, "result_count", len(results))

	return nil
}

// loadBenchmarkCache reads and unmarshals the cached benchmark results.
// Returns (nil, nil) when no usable cache exists: cache path is empty, file
// does not exist, or file contains corrupt JSON. A corrupt file is removed.
// Returns a non-nil error only for unexpected I/O failures.
func loadBenchmarkCache() ([]display.BenchmarkResult, error) {
	cachePath := crackstate.State.BenchmarkCachePath
	if cachePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			crackstate.Logger.Debug("No benchmark cache file found", "path", cachePath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read benchmark cache: %w", err)
	}

	var results []display.BenchmarkResult
	if err := json.Unmarshal(data, &results); err != nil {
		crackstate.Logger.Warn("Benchmark cache file is corrupt, removing and will re-run benchmarks",
			"error", err, "path", cachePath)
		if removeErr := os.Remove(cachePath); removeErr != nil && !os.IsNotExist(removeErr) {
			crackstate.Logger.Warn("Failed to remove corrupt benchmark cache file",
				"error", removeErr, "path", cachePath)
		}
		return nil, nil
	}

	crackstate.Logger.Debug("Loaded benchmark results from cache", "path", cachePath, "result_count", len(results))

	return results, nil
}

// ClearCache removes the cache file. Missing files are ignored.
func ClearCache() {
	cachePath := crackstate.State.BenchmarkCachePath
	if cachePath == "" {
		return
	}

	if err := os.Remove(cachePath); err != nil {
		if !os.IsNotExist(err) {
			crackstate.Logger.Warn("Failed to remove benchmark cache file",
				"error", err, "path", cachePath)
		}
	} else {
		crackstate.Logger.Debug("Benchmark cache file cleared", "path", cachePath)
	}
}
