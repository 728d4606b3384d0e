package testhelpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
	"github.com/unclesp1d3r/meshcrack/lib/grouptext"
)

// FixedTime is the clock reading used by fixtures.
var FixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // Test fixture

// FixedClock always returns FixedTime.
func FixedClock() time.Time {
	return FixedTime
}

// UnknownKey is a key not derived from any room name.
var UnknownKey = channelkey.Key{ //nolint:gochecknoglobals // Test fixture
	0xde, 0xad, 0xbe, 0xef, 0x00, 0x11, 0x22, 0x33,
	0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb,
}

// NewGroupTextPacket returns a packet encrypted for room, sent an hour before FixedTime.
func NewGroupTextPacket(t testing.TB, room, text string) *grouptext.Packet {
	t.Helper()

	return NewKeyedPacket(t, channelkey.DeriveKey(room), text)
}

// NewKeyedPacket returns a packet encrypted under key, sent an hour before FixedTime.
func NewKeyedPacket(t testing.TB, key channelkey.Key, text string) *grouptext.Packet {
	t.Helper()

	p, err := grouptext.NewPacket(key, FixedTime.Add(-time.Hour), text)
	require.NoError(t, err)

	return p
}

// GroupTextHex returns the hex encoding of a packet for room.
func GroupTextHex(t testing.TB, room, text string) string {
	t.Helper()

	return NewGroupTextPacket(t, room, text).Encode()
}

// PublicChannelHex returns the hex encoding of a packet on the public channel.
func PublicChannelHex(t testing.TB, text string) string {
	t.Helper()

	return NewKeyedPacket(t, channelkey.PublicKey, text).Encode()
}

// UnknownChannelHex returns a packet no room name decrypts. Names sharing its channel hash
// still pass the accelerator filter and must be rejected by the MAC check.
func UnknownChannelHex(t testing.TB) string {
	t.Helper()

	return NewKeyedPacket(t, UnknownKey, "nobody: can read this").Encode()
}
