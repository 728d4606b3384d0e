// Package verify is the authoritative check of a candidate room name against a packet:
// channel hash, MAC, decryption and plausibility filters.
package verify

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/crackerr"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
)

const (
	// DefaultTimestampWindow is how far in the past a plausible message may have been sent.
	DefaultTimestampWindow = 30 * 24 * time.Hour
	// DefaultFutureSkew tolerates senders whose clocks run ahead.
	DefaultFutureSkew = 24 * time.Hour
)

// Rejections. All of them are classified as crackerr.KindCandidateRejected.
//
//nolint:gochecknoglobals // Sentinel errors
var (
	ErrHashMismatch      = rejection("channel hash mismatch")
	ErrMACMismatch       = rejection("cipher MAC mismatch")
	ErrTimestampFiltered = rejection("timestamp outside plausible window")
	ErrUTF8Filtered      = rejection("plaintext is not clean UTF-8")
)

func rejection(msg string) error {
	return crackerr.New(crackerr.KindCandidateRejected, "verify", errors.New(msg))
}

// IsFiltered reports whether err is a plausibility rejection of a key whose MAC matched.
func IsFiltered(err error) bool {
	return errors.Is(err, ErrTimestampFiltered) || errors.Is(err, ErrUTF8Filtered)
}

// Options controls the plausibility filters applied after a MAC match.
type Options struct {
	UseTimestampFilter bool
	UseUTF8Filter      bool
	TimestampWindow    time.Duration    // Zero means DefaultTimestampWindow
	FutureSkew         time.Duration    // Zero means DefaultFutureSkew
	Now                func() time.Time // Nil means time.Now
}

// DefaultOptions returns options with both filters enabled.
func DefaultOptions() Options {
	return Options{
		UseTimestampFilter: true,
		UseUTF8Filter:      true,
		TimestampWindow:    DefaultTimestampWindow,
		FutureSkew:         DefaultFutureSkew,
	}
}

// Match is a verified key together with the message it decrypts.
type Match struct {
	RoomName string
	Key      channelkey.Key
	Message  grouptext.Message
}

// Pipeline verifies candidates against a single packet. It holds no mutable state and is
// safe for concurrent use.
type Pipeline struct {
	packet *grouptext.Packet
	opts   Options
}

// New returns a pipeline for packet.
func New(packet *grouptext.Packet, opts Options) *Pipeline {
	if opts.TimestampWindow <= 0 {
		opts.TimestampWindow = DefaultTimestampWindow
	}

	if opts.FutureSkew <= 0 {
		opts.FutureSkew = DefaultFutureSkew
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Pipeline{packet: packet, opts: opts}
}

// Packet returns the packet under test.
func (p *Pipeline) Packet() *grouptext.Packet {
	return p.packet
}

// TryName derives the key for room and verifies it.
func (p *Pipeline) TryName(room string) (*Match, error) {
	return p.TryKey(room, channelkey.DeriveKey(room))
}

// TryKey verifies key, reported under the name room.
func (p *Pipeline) TryKey(room string, key channelkey.Key) (*Match, error) {
	if channelkey.ChannelHash(key) != p.packet.ChannelHash {
		return nil, ErrHashMismatch
	}

	msg, err := grouptext.Decrypt(p.packet.Ciphertext, p.packet.CipherMAC, key)
	if errors.Is(err, grouptext.ErrMACMismatch) {
		return nil, ErrMACMismatch
	}

	if err != nil {
		return nil, crackerr.New(crackerr.KindInput, "decrypt", err)
	}

	if err := p.filter(msg); err != nil {
		return nil, err
	}

	return &Match{RoomName: room, Key: key, Message: msg}, nil
}

func (p *Pipeline) filter(msg grouptext.Message) error {
	if p.opts.UseTimestampFilter {
		now := p.opts.Now()
		earliest := now.Add(-p.opts.TimestampWindow)
		latest := now.Add(p.opts.FutureSkew)

		if msg.Timestamp.Before(earliest) || msg.Timestamp.After(latest) {
			return fmt.Errorf("%w: %s", ErrTimestampFiltered, msg.Timestamp.Format(time.RFC3339))
		}
	}

	if p.opts.UseUTF8Filter {
		if !utf8.ValidString(msg.Text) || strings.ContainsRune(msg.Text, utf8.RuneError) {
			return ErrUTF8Filtered
		}
	}

	return nil
}
