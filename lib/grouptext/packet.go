// Package grouptext decodes MeshCore group-text packets and implements the channel cipher
// used to protect their payload.
package grouptext

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// RouteType is the routing mode encoded in the low two bits of the packet header.
type RouteType byte

const (
	// RouteTransportFlood floods the packet and carries transport codes.
	RouteTransportFlood RouteType = iota
	// RouteFlood floods the packet.
	RouteFlood
	// RouteDirect follows an explicit path.
	RouteDirect
	// RouteTransportDirect follows an explicit path and carries transport codes.
	RouteTransportDirect
)

// String returns the route type name.
func (r RouteType) String() string {
	switch r {
	case RouteTransportFlood:
		return "transport_flood"
	case RouteFlood:
		return "flood"
	case RouteDirect:
		return "direct"
	case RouteTransportDirect:
		return "transport_direct"
	default:
		return fmt.Sprintf("route(%d)", byte(r))
	}
}

// HasTransportCodes reports whether packets of this route type carry transport codes.
func (r RouteType) HasTransportCodes() bool {
	return r == RouteTransportFlood || r == RouteTransportDirect
}

const (
	// PayloadTypeGroupText is the payload type of a group channel text message.
	PayloadTypeGroupText byte = 0x05

	// MACSize is the size of the truncated cipher MAC.
	MACSize = 2
	// MaxPathSize is the longest path a packet may carry.
	MaxPathSize = 64

	transportCodesSize = 4
	routeMask          = 0x03
	payloadTypeShift   = 2
	payloadTypeMask    = 0x0f
	versionShift       = 6
	versionMask        = 0x03
)

var (
	// ErrMalformedPacket is returned when a packet is truncated or inconsistent.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrNotGroupText is returned for well-formed packets carrying another payload type.
	ErrNotGroupText = errors.New("not a group text packet")
)

// Packet is a decoded group-text packet.
type Packet struct {
	RouteType      RouteType
	Version        byte
	TransportCodes []byte // Present only for transport routes
	Path           []byte
	ChannelHash    byte
	CipherMAC      []byte
	Ciphertext     []byte
}

// Decode parses a hex-encoded packet. Whitespace and an optional 0x prefix are ignored.
func Decode(packetHex string) (*Packet, error) {
	s := strings.Join(strings.Fields(packetHex), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPacket, err)
	}

	return Parse(raw)
}

// Parse parses a raw packet.
func Parse(raw []byte) (*Packet, error) {
	r := reader{buf: raw}

	header, ok := r.byte()
	if !ok {
		return nil, fmt.Errorf("%w: empty packet", ErrMalformedPacket)
	}

	p := &Packet{
		RouteType: RouteType(header & routeMask),
		Version:   (header >> versionShift) & versionMask,
	}

	if payloadType := (header >> payloadTypeShift) & payloadTypeMask; payloadType != PayloadTypeGroupText {
		return nil, fmt.Errorf("%w: payload type %d", ErrNotGroupText, payloadType)
	}

	if p.RouteType.HasTransportCodes() {
		if p.TransportCodes, ok = r.take(transportCodesSize); !ok {
			return nil, fmt.Errorf("%w: truncated transport codes", ErrMalformedPacket)
		}
	}

	pathLen, ok := r.byte()
	if !ok {
		return nil, fmt.Errorf("%w: missing path length", ErrMalformedPacket)
	}

	if pathLen > MaxPathSize {
		return nil, fmt.Errorf("%w: path length %d exceeds %d", ErrMalformedPacket, pathLen, MaxPathSize)
	}

	if p.Path, ok = r.take(int(pathLen)); !ok {
		return nil, fmt.Errorf("%w: truncated path", ErrMalformedPacket)
	}

	if p.ChannelHash, ok = r.byte(); !ok {
		return nil, fmt.Errorf("%w: missing channel hash", ErrMalformedPacket)
	}

	if p.CipherMAC, ok = r.take(MACSize); !ok {
		return nil, fmt.Errorf("%w: missing cipher MAC", ErrMalformedPacket)
	}

	p.Ciphertext = r.rest()
	if len(p.Ciphertext) == 0 || len(p.Ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			ErrMalformedPacket, len(p.Ciphertext), BlockSize)
	}

	return p, nil
}

// Header returns the packet's header byte.
func (p *Packet) Header() byte {
	return byte(p.RouteType)&routeMask |
		(PayloadTypeGroupText&payloadTypeMask)<<payloadTypeShift |
		(p.Version&versionMask)<<versionShift
}

// Bytes returns the wire encoding of the packet.
func (p *Packet) Bytes() []byte {
	out := make([]byte, 0, 1+len(p.TransportCodes)+1+len(p.Path)+1+len(p.CipherMAC)+len(p.Ciphertext))
	out = append(out, p.Header())

	if p.RouteType.HasTransportCodes() {
		codes := make([]byte, transportCodesSize)
		copy(codes, p.TransportCodes)
		out = append(out, codes...)
	}

	out = append(out, byte(len(p.Path)))
	out = append(out, p.Path...)
	out = append(out, p.ChannelHash)
	out = append(out, p.CipherMAC...)

	return append(out, p.Ciphertext...)
}

// Encode returns the packet as lowercase hex, the form accepted by Decode.
func (p *Packet) Encode() string {
	return hex.EncodeToString(p.Bytes())
}

// reader is a bounds-checked cursor over a raw packet.
type reader struct {
	buf []byte
	off int
}

func (r *reader) byte() (byte, bool) {
	if r.off >= len(r.buf) {
		return 0, false
	}

	b := r.buf[r.off]
	r.off++

	return b, true
}

func (r *reader) take(n int) ([]byte, bool) {
	if n > len(r.buf)-r.off {
		return nil, false
	}

	out := r.buf[r.off : r.off+n : r.off+n]
	r.off += n

	return out, true
}

func (r *reader) rest() []byte {
	out := r.buf[r.off:]
	r.off = len(r.buf)

	return out
}
