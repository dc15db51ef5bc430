package header

import (
	"encoding/binary"
	"net/netip"

	"github.com/dmitrikaramazov/rawtcp/checksum"
)

const (
	versIHL    = 0
	tos        = 1
	totalLen   = 2
	ipID       = 4
	flagsFO    = 6
	ttl        = 8
	protocol   = 9
	ipChecksum = 10
	srcAddr    = 12
	dstAddr    = 16
)

const (
	// IPv4MinimumSize is the optionless IPv4 header size.
	IPv4MinimumSize = 20

	IPv4Version = 4

	// IPv4DefaultTTL is used when the caller leaves TTL zero.
	IPv4DefaultTTL = 64

	// TCPProtocolNumber is the IPv4 protocol field value for TCP.
	TCPProtocolNumber = 6
)

// IPv4Fields holds an IPv4 header in decoded, host-order form.
type IPv4Fields struct {
	TOS         uint8
	TotalLength uint16
	ID          uint16
	Flags       uint8

	// FragmentOffset is in bytes, a multiple of 8; the wire field holds
	// it divided by 8.
	FragmentOffset uint16

	TTL      uint8
	Protocol uint8

	// Checksum is written verbatim; pass zero and overwrite with
	// SetChecksum(^CalculateChecksum()) after encoding.
	Checksum uint16

	SrcAddr netip.Addr
	DstAddr netip.Addr
}

// IPv4 is an IPv4 header laid over a byte slice of at least
// IPv4MinimumSize bytes. Every field is serialized explicitly; nothing
// depends on host byte order.
type IPv4 []byte

// Encode writes an optionless header (version 4, IHL 5) to b.
func (b IPv4) Encode(i *IPv4Fields) {
	b[versIHL] = IPv4Version<<4 | IPv4MinimumSize/4
	b[tos] = i.TOS
	binary.BigEndian.PutUint16(b[totalLen:], i.TotalLength)
	binary.BigEndian.PutUint16(b[ipID:], i.ID)
	binary.BigEndian.PutUint16(b[flagsFO:], uint16(i.Flags&0b111)<<13|i.FragmentOffset>>3)
	b[ttl] = i.TTL
	b[protocol] = i.Protocol
	binary.BigEndian.PutUint16(b[ipChecksum:], i.Checksum)
	src, dst := i.SrcAddr.As4(), i.DstAddr.As4()
	copy(b[srcAddr:srcAddr+4], src[:])
	copy(b[dstAddr:dstAddr+4], dst[:])
}

func (b IPv4) Version() uint8 { return b[versIHL] >> 4 }

// HeaderLength returns the header size in bytes (IHL * 4).
func (b IPv4) HeaderLength() uint8 { return (b[versIHL] & 0xf) * 4 }

func (b IPv4) TOS() uint8 { return b[tos] }

func (b IPv4) TotalLength() uint16 { return binary.BigEndian.Uint16(b[totalLen:]) }

func (b IPv4) ID() uint16 { return binary.BigEndian.Uint16(b[ipID:]) }

func (b IPv4) Flags() uint8 { return uint8(binary.BigEndian.Uint16(b[flagsFO:]) >> 13) }

// FragmentOffset returns the offset in bytes.
func (b IPv4) FragmentOffset() uint16 { return binary.BigEndian.Uint16(b[flagsFO:]) & 0x1fff << 3 }

func (b IPv4) TTL() uint8 { return b[ttl] }

func (b IPv4) Protocol() uint8 { return b[protocol] }

func (b IPv4) Checksum() uint16 { return binary.BigEndian.Uint16(b[ipChecksum:]) }

func (b IPv4) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(b[ipChecksum:], sum)
}

func (b IPv4) SourceAddress() netip.Addr {
	return netip.AddrFrom4([4]byte(b[srcAddr : srcAddr+4]))
}

func (b IPv4) DestinationAddress() netip.Addr {
	return netip.AddrFrom4([4]byte(b[dstAddr : dstAddr+4]))
}

// CalculateChecksum sums the header bytes. The checksum field must hold
// zero; the caller stores ^sum.
func (b IPv4) CalculateChecksum() uint16 {
	return checksum.Checksum(b[:b.HeaderLength()], 0)
}

// Payload returns the bytes after the header, bounded by TotalLength.
func (b IPv4) Payload() []byte {
	return b[b.HeaderLength():b.TotalLength()]
}
