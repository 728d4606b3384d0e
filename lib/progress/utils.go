// Package progress provides the arithmetic behind crack progress reports: percentages, rates and ETAs.
package progress

import (
	"fmt"
	"math"
	"time"
)

const (
	percentageMultiplier = 100 // Multiplier to convert decimal to percentage
)

// CalculatePercentage calculates the percentage of a given value relative to a total, formatted to two decimal places.
// It returns "0.00%" if the total is zero to prevent division by zero errors.
func CalculatePercentage(value, total float64) string {
	if total == 0 {
		return "0.00%"
	}

	percentage := (value / total) * percentageMultiplier

	return fmt.Sprintf("%.2f%%", percentage)
}

// Rate returns how many items per second were processed when delta items took elapsed.
// It returns 0 for a non-positive interval.
func Rate(delta uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(delta) / elapsed.Seconds()
}

// ETA returns the time needed to process the remaining items at rate items per second.
// It returns 0 when nothing remains or the rate is unknown.
func ETA(done, total uint64, rate float64) time.Duration {
	if done >= total || rate <= 0 {
		return 0
	}

	seconds := float64(total-done) / rate
	if seconds >= math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(seconds * float64(time.Second))
}
