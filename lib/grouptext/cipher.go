package grouptext

import (
	"bytes"
	"crypto/aes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unclesp1d3r/meshcrack/lib/channelkey"
)

// BlockSize is the cipher block size.
const BlockSize = aes.BlockSize

// headerSize is the timestamp and flags prefix of every plaintext.
const headerSize = 5

var (
	// ErrMACMismatch is returned by Decrypt when the MAC does not authenticate the ciphertext.
	ErrMACMismatch = errors.New("cipher MAC mismatch")
	// ErrCiphertextLength is returned when the ciphertext is empty or not block aligned.
	ErrCiphertextLength = errors.New("ciphertext is not a positive multiple of the block size")
)

// Message is a decrypted group-text payload.
type Message struct {
	Timestamp time.Time
	Flags     byte
	Text      string // Full text, usually "sender: body"
	Sender    string
	Body      string
	Raw       []byte // Plaintext including padding
}

// Decrypt checks mac and decrypts ciphertext with key. The MAC is checked first and a
// mismatch yields ErrMACMismatch without decrypting.
func Decrypt(ciphertext, mac []byte, key channelkey.Key) (Message, error) {
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrCiphertextLength, len(ciphertext))
	}

	if !channelkey.VerifyMAC(ciphertext, mac, key) {
		return Message{}, ErrMACMismatch
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return Message{}, fmt.Errorf("create cipher: %w", err)
	}

	plain := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += BlockSize {
		block.Decrypt(plain[off:off+BlockSize], ciphertext[off:off+BlockSize])
	}

	return parsePlaintext(plain)
}

func parsePlaintext(plain []byte) (Message, error) {
	if len(plain) < headerSize {
		return Message{}, fmt.Errorf("%w: plaintext too short", ErrCiphertextLength)
	}

	text := plain[headerSize:]
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}

	msg := Message{
		Timestamp: time.Unix(int64(binary.LittleEndian.Uint32(plain[:4])), 0).UTC(),
		Flags:     plain[4],
		Text:      string(text),
		Raw:       plain,
	}

	if sender, body, found := strings.Cut(msg.Text, ": "); found {
		msg.Sender, msg.Body = sender, body
	} else {
		msg.Body = msg.Text
	}

	return msg, nil
}

// Encrypt builds and encrypts a plaintext for ts, flags and text, zero-padding it to the
// block size, and returns the ciphertext with its truncated MAC.
func Encrypt(key channelkey.Key, ts time.Time, flags byte, text string) (ciphertext, mac []byte, err error) {
	plainLen := headerSize + len(text)
	if rem := plainLen % BlockSize; rem != 0 {
		plainLen += BlockSize - rem
	}

	plain := make([]byte, plainLen)
	binary.LittleEndian.PutUint32(plain[:4], uint32(ts.Unix())) //nolint:gosec // Wire format is u32 seconds
	plain[4] = flags
	copy(plain[headerSize:], text)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, nil, fmt.Errorf("create cipher: %w", err)
	}

	ciphertext = make([]byte, plainLen)
	for off := 0; off < plainLen; off += BlockSize {
		block.Encrypt(ciphertext[off:off+BlockSize], plain[off:off+BlockSize])
	}

	return ciphertext, channelkey.ComputeMAC(ciphertext, key, MACSize), nil
}

// NewPacket encrypts text for the channel derived from key and wraps it in a flood-routed packet.
func NewPacket(key channelkey.Key, ts time.Time, text string) (*Packet, error) {
	ciphertext, mac, err := Encrypt(key, ts, 0, text)
	if err != nil {
		return nil, err
	}

	return &Packet{
		RouteType:   RouteFlood,
		ChannelHash: channelkey.ChannelHash(key),
		CipherMAC:   mac,
		Ciphertext:  ciphertext,
	}, nil
}
