// Package channelkey derives MeshCore group channel keys from room names and checks them
// against the channel hash and MAC carried by a group-text packet.
package channelkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Size is the length of a channel key in bytes.
	Size = 16
	// Marker prefixes a room name before it is hashed into a key.
	Marker = '#'
	// PublicRoomName is the well-known name of the default public channel.
	PublicRoomName = "Public"
	// publicKeyHex is the key every node ships for the public channel.
	publicKeyHex = "8b3387e9c5cdea6ac9e5edbaa115cd72"
)

// Key is a 128-bit channel key.
type Key [Size]byte

// PublicKey is the key of the default public channel.
// It is not derived from PublicRoomName; nodes ship it as a constant.
var PublicKey = mustParseKey(publicKeyHex) //nolint:gochecknoglobals // Well-known constant

// String returns the key as lowercase hex.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey parses a 32-character hex key.
func ParseKey(s string) (Key, error) {
	var k Key

	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return k, fmt.Errorf("parse key: %w", err)
	}

	if len(raw) != Size {
		return k, fmt.Errorf("parse key: got %d bytes, want %d", len(raw), Size)
	}

	copy(k[:], raw)

	return k, nil
}

func mustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}

	return k
}

// DeriveKey returns the first 16 bytes of SHA-256("#" + room).
func DeriveKey(room string) Key {
	h := sha256.New()
	h.Write([]byte{Marker})
	h.Write([]byte(room))

	var sum [sha256.Size]byte

	var k Key
	copy(k[:], h.Sum(sum[:0]))

	return k
}

// DeriveKeyMarked derives a key from a buffer that already starts with the marker.
// It does not allocate, which makes it suitable for hot loops that reuse one buffer.
func DeriveKeyMarked(marked []byte) Key {
	sum := sha256.Sum256(marked)

	var k Key
	copy(k[:], sum[:Size])

	return k
}

// ChannelHash returns the first byte of SHA-256(key), the 1-byte channel identifier.
func ChannelHash(k Key) byte {
	sum := sha256.Sum256(k[:])
	return sum[0]
}

// ComputeMAC returns HMAC-SHA256 over ciphertext, keyed with k zero-padded to 32 bytes,
// truncated to size bytes.
func ComputeMAC(ciphertext []byte, k Key, size int) []byte {
	var secret [sha256.Size]byte
	copy(secret[:], k[:])

	m := hmac.New(sha256.New, secret[:])
	m.Write(ciphertext)
	sum := m.Sum(nil)

	if size > len(sum) {
		size = len(sum)
	}

	return sum[:size]
}

// VerifyMAC reports whether mac is the truncated HMAC of ciphertext under k.
// The comparison is constant-time.
func VerifyMAC(ciphertext, mac []byte, k Key) bool {
	if len(mac) == 0 {
		return false
	}

	return hmac.Equal(ComputeMAC(ciphertext, k, len(mac)), mac)
}
