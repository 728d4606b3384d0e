// Package display provides output and logging functions for meshcrack.
package display

import (
	"fmt"
	"math/big"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/accel"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
	"github.com/unclesp1d3r/meshcrack/lib/progress"
)

// BenchmarkResult represents the outcome of a device benchmark.
type BenchmarkResult struct {
	Device     string        `json:"device"`      // Device is the name of the device used for the benchmark.
	Length     int           `json:"length"`      // Length is the room-name length the batches enumerated.
	Candidates uint64        `json:"candidates"`  // Candidates is the number of names filtered.
	Elapsed    time.Duration `json:"elapsed"`     // Elapsed is the total dispatch time.
	Rate       float64       `json:"rate"`        // Rate is the throughput in candidates per second.
	BatchSize  uint64        `json:"batch_size"`  // BatchSize is the tuned batch size after the run.
	MeasuredAt time.Time     `json:"measured_at"` // MeasuredAt is when the benchmark finished.
}

// CrackStarting logs the start of a crack run against a packet.
func CrackStarting(packet *grouptext.Packet, maxLength, words int) {
	crackstate.Logger.Info("Starting crack",
		"channel_hash", fmt.Sprintf("%02x", packet.ChannelHash),
		"route", packet.RouteType,
		"ciphertext_bytes", len(packet.Ciphertext),
		"max_length", maxLength,
		"wordlist", words)
}

// PhaseStarted logs the first snapshot of a search phase.
func PhaseStarted(phase string, total uint64) {
	crackstate.Logger.Info("Phase started", "phase", phase, "candidates", count(total))
}

// Progress logs a progress snapshot with a human-readable rate and ETA.
func Progress(phase string, checked, total uint64, rate float64, eta time.Duration, length int) {
	crackstate.Logger.Info("Progress update",
		"phase", phase,
		"progress", progress.CalculatePercentage(float64(checked), float64(total)),
		"checked", count(checked),
		"speed", humanize.SI(rate, "keys/s"),
		"eta", eta.Round(time.Second),
		"length", length)
}

// Found logs a recovered room name and the decrypted message.
func Found(room string, key string, msg grouptext.Message) {
	crackstate.Logger.Info("Room name found", "room", "#"+room, "key", key)
	crackstate.Logger.Info("Decrypted message",
		"sender", msg.Sender,
		"text", msg.Body,
		"sent", humanize.Time(msg.Timestamp))
}

// NotFound logs an exhausted search.
func NotFound(checked uint64, elapsed time.Duration, skipped bool) {
	if skipped {
		crackstate.Logger.Warn("Room name not in the wordlist, brute force skipped without an accelerator",
			"checked", count(checked))

		return
	}

	crackstate.Logger.Info("Search space exhausted without a match",
		"checked", count(checked),
		"elapsed", elapsed.Round(time.Millisecond))
}

// Aborted logs an interrupted search and how to resume it.
func Aborted(token, resumeFrom string) {
	crackstate.Logger.Warn("Crack aborted", "resume", token, "resume_from", resumeFrom)
}

// Devices logs the accelerators available on this machine.
func Devices(devices []accel.DeviceInfo) {
	if len(devices) == 0 {
		crackstate.Logger.Warn("No accelerator devices found")
		return
	}

	for _, d := range devices {
		crackstate.Logger.Info("Device",
			"name", d.Name,
			"model", d.Model,
			"logical_cores", d.LogicalCores,
			"physical_cores", d.PhysicalCores,
			"memory", humanize.IBytes(d.MemoryTotal))
	}
}

// BenchmarkStarting logs a message indicating that a benchmark is starting.
func BenchmarkStarting(device string, length, batches int) {
	crackstate.Logger.Info("Performing benchmark", "device", device, "length", length, "batches", batches)
}

// Benchmark logs the provided benchmark result.
func Benchmark(result BenchmarkResult, cached bool) {
	crackstate.Logger.Info("Benchmark result",
		"device", result.Device,
		"speed", humanize.SI(result.Rate, "keys/s"),
		"candidates", count(result.Candidates),
		"batch_size", count(result.BatchSize),
		"cached", cached)
}

// Keyspace logs the number of names for each length up to maxLength.
func Keyspace(counts []uint64) {
	var total uint64
	for i, c := range counts {
		total += c
		crackstate.Logger.Info("Keyspace", "length", i+1,
			"names", count(c),
			"cumulative", count(total))
	}
}

// count formats a candidate count with thousands separators.
func count(v uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(v))
}
