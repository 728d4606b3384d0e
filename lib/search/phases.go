package search

import (
	"fmt"

	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
	"github.com/unclesp1d3r/meshcrack/lib/verify"
)

// publicKeyPhase tests the well-known public channel key. It reports whether the run ended.
func (r *run) publicKeyPhase() bool {
	r.enter(PhasePublicKey)

	if r.aborted() {
		r.abortAt(Checkpoint{Phase: PhasePublicKey}, "")
		return true
	}

	match, err := r.pipeline.TryKey(channelkey.PublicRoomName, channelkey.PublicKey)
	r.result.Checked++

	if r.check(err, channelkey.PublicRoomName) {
		r.found(match)
		return true
	}

	return false
}

// dictionaryPhase tests the wordlist from index from. It reports whether the run ended.
func (r *run) dictionaryPhase(from int) bool {
	r.enter(PhaseDictionary)

	for i := from; i < len(r.words); i++ {
		if r.aborted() {
			r.abortAt(Checkpoint{Phase: PhaseDictionary, WordIndex: i}, r.lastWord(i))
			return true
		}

		word := r.words[i]
		match, err := r.pipeline.TryName(word)

		r.result.Checked++
		r.progress.wordsChecked = i + 1

		if r.check(err, word) {
			r.found(match)
			return true
		}

		r.progress.tick()
	}

	return false
}

// bruteForcePhase enumerates names from start through MaxLength in accelerator batches,
// verifying every filter hit on the host.
func (r *run) bruteForcePhase(start roomname.Position) {
	r.enter(PhaseBruteForce)
	r.progress.position = start

	last := roomname.Position{Length: r.opts.MaxLength, Offset: roomname.MustCount(r.opts.MaxLength) - 1}

	if start.Length > r.opts.MaxLength {
		r.notFound(last)
		return
	}

	if r.aborted() {
		r.abortAt(Checkpoint{Phase: PhaseBruteForce, Position: start}, r.lastTested(start))
		return
	}

	runner := r.cracker.runner
	if runner == nil || !runner.Init(r.ctx) {
		r.noAcceleration(start)
		return
	}

	r.progress.flush()

	pos := start
	for pos.Length <= r.opts.MaxLength {
		if r.aborted() {
			r.abortAt(Checkpoint{Phase: PhaseBruteForce, Position: pos}, r.lastTested(pos))
			return
		}

		count := roomname.MustCount(pos.Length)
		size := min(max(runner.BatchSize(), 1), count-pos.Offset)

		hits, err := runner.RunBatch(r.ctx, r.packet.ChannelHash, pos.Length, pos.Offset, size,
			r.packet.Ciphertext, r.packet.CipherMAC)
		if err != nil {
			r.batchFailed(pos, err)
			return
		}

		if match, ordinal, ok := r.verifyHits(pos, size, hits); ok {
			tested := ordinal - pos.Offset + 1
			r.result.Checked += tested
			r.progress.checked += tested
			r.progress.position = roomname.Position{Length: pos.Length, Offset: ordinal}
			r.found(match)

			return
		}

		r.result.Checked += size
		r.progress.checked += size

		pos.Offset += size
		if pos.Offset >= count {
			pos = roomname.Position{Length: pos.Length + 1}
		}

		r.progress.position = pos
		r.progress.tick()
	}

	r.notFound(last)
}

// verifyHits runs the authoritative check on each filter hit of the batch at pos, in
// ascending order. Hits outside the batch are ignored.
func (r *run) verifyHits(pos roomname.Position, size uint64, hits []uint64) (*verify.Match, uint64, bool) {
	for _, ordinal := range hits {
		if ordinal < pos.Offset || ordinal >= pos.Offset+size {
			r.logger.Debug("Ignoring filter hit outside the batch", "length", pos.Length, "ordinal", ordinal)
			continue
		}

		name, err := roomname.IndexToName(pos.Length, ordinal)
		if err != nil {
			r.logger.Debug("Ignoring undecodable filter hit", "length", pos.Length, "ordinal", ordinal, "error", err)
			continue
		}

		match, err := r.pipeline.TryName(name)
		if r.check(err, name) {
			return match, ordinal, true
		}
	}

	return nil, 0, false
}

// batchFailed ends the run after a dispatch error. A dispatch interrupted by cancellation
// counts as an abort at the same position, since the batch was not completed.
func (r *run) batchFailed(pos roomname.Position, err error) {
	if r.aborted() {
		r.abortAt(Checkpoint{Phase: PhaseBruteForce, Position: pos}, r.lastTested(pos))
		return
	}

	r.result.Status = StatusError
	r.result.Err = err
	r.result.Resume = &Checkpoint{Phase: PhaseBruteForce, Position: pos}

	//nolint:errcheck // Carried in the result
	_ = crackerr.LogAndReturn("Batch dispatch failed", err, "position", pos.String())
}

// noAcceleration ends the run when the runner cannot initialize: as not found without
// brute force if DictionaryOnly is set, otherwise as an error.
func (r *run) noAcceleration(start roomname.Position) {
	if r.opts.DictionaryOnly {
		r.logger.Warn("No accelerator available, skipping brute force")

		r.result.Status = StatusNotFound
		r.result.BruteForceSkipped = true
		r.result.LastPosition, _ = start.Prev()

		return
	}

	cause := ErrNoAcceleration
	if ie, ok := r.cracker.runner.(initErrorer); ok && ie.InitErr() != nil {
		cause = fmt.Errorf("%w: %w", ErrNoAcceleration, ie.InitErr())
	}

	r.result.Status = StatusError
	r.result.Err = crackerr.New(crackerr.KindAccelerationUnavailable, "brute force", cause)
	r.result.Resume = &Checkpoint{Phase: PhaseBruteForce, Position: start}

	//nolint:errcheck // Carried in the result
	_ = crackerr.LogAndReturn("Brute force unavailable", r.result.Err)
}

func (r *run) notFound(last roomname.Position) {
	r.result.Status = StatusNotFound
	r.result.LastPosition = last

	r.progress.flush()
}

// lastTested returns the candidate tested just before pos: the previous brute-force name,
// or the last dictionary-phase candidate when pos is the very start of the brute-force space.
func (r *run) lastTested(pos roomname.Position) string {
	prev, ok := pos.Prev()
	if !ok {
		return r.lastWord(len(r.words))
	}

	name, err := prev.Name()
	if err != nil {
		return ""
	}

	return name
}

func (r *run) enter(phase Phase) {
	r.result.Phase = phase
	r.progress.phase = phase

	r.logger.Debug("Phase started", "phase", phase)
}
