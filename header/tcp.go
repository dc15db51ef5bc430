// Package header encodes and decodes optionless IPv4 and TCP headers in
// their exact wire layout (RFC 791, RFC 9293). Headers are byte slices
// with accessor methods; multi-byte fields are network byte order.
package header

import (
	"encoding/binary"
	"net/netip"

	"github.com/dmitrikaramazov/rawtcp/checksum"
)

const (
	srcPort     = 0
	dstPort     = 2
	seqNum      = 4
	ackNum      = 8
	dataOffset  = 12
	tcpFlags    = 13
	winSize     = 14
	tcpChecksum = 16
	urgentPtr   = 18
)

const (
	// TCPMinimumSize is the optionless TCP header size.
	TCPMinimumSize = 20

	// PseudoHeaderSize is the size of the checksum-only pseudo-header.
	PseudoHeaderSize = 12
)

// Control flags, low six bits of byte 13.
const (
	TCPFlagFin uint8 = 1 << iota
	TCPFlagSyn
	TCPFlagRst
	TCPFlagPsh
	TCPFlagAck
	TCPFlagUrg

	TCPFlagMask = TCPFlagFin | TCPFlagSyn | TCPFlagRst | TCPFlagPsh | TCPFlagAck | TCPFlagUrg
)

// TCPFields holds a TCP header in decoded, host-order form.
type TCPFields struct {
	SrcPort uint16
	DstPort uint16
	SeqNum  uint32
	AckNum  uint32

	// DataOffset is the header size in bytes, TCPMinimumSize without
	// options.
	DataOffset uint8

	Flags      uint8
	WindowSize uint16

	// Checksum is written verbatim; pass zero and fill in after the
	// pseudo-header sum is known.
	Checksum uint16

	UrgentPointer uint16
}

// TCP is a TCP header laid over a byte slice of at least TCPMinimumSize
// bytes.
type TCP []byte

// Encode writes the header to b. Flags beyond the six control bits are
// discarded, keeping the reserved bits zero on the wire.
func (b TCP) Encode(t *TCPFields) {
	binary.BigEndian.PutUint16(b[srcPort:], t.SrcPort)
	binary.BigEndian.PutUint16(b[dstPort:], t.DstPort)
	binary.BigEndian.PutUint32(b[seqNum:], t.SeqNum)
	binary.BigEndian.PutUint32(b[ackNum:], t.AckNum)
	b[dataOffset] = t.DataOffset / 4 << 4
	b[tcpFlags] = t.Flags & TCPFlagMask
	binary.BigEndian.PutUint16(b[winSize:], t.WindowSize)
	binary.BigEndian.PutUint16(b[tcpChecksum:], t.Checksum)
	binary.BigEndian.PutUint16(b[urgentPtr:], t.UrgentPointer)
}

func (b TCP) SourcePort() uint16 { return binary.BigEndian.Uint16(b[srcPort:]) }

func (b TCP) DestinationPort() uint16 { return binary.BigEndian.Uint16(b[dstPort:]) }

func (b TCP) SequenceNumber() uint32 { return binary.BigEndian.Uint32(b[seqNum:]) }

func (b TCP) AckNumber() uint32 { return binary.BigEndian.Uint32(b[ackNum:]) }

// DataOffset returns the header size in bytes.
func (b TCP) DataOffset() uint8 { return b[dataOffset] >> 4 * 4 }

func (b TCP) Flags() uint8 { return b[tcpFlags] }

func (b TCP) WindowSize() uint16 { return binary.BigEndian.Uint16(b[winSize:]) }

func (b TCP) Checksum() uint16 { return binary.BigEndian.Uint16(b[tcpChecksum:]) }

func (b TCP) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(b[tcpChecksum:], sum)
}

func (b TCP) UrgentPointer() uint16 { return binary.BigEndian.Uint16(b[urgentPtr:]) }

func (b TCP) Payload() []byte { return b[b.DataOffset():] }

// PseudoHeaderChecksum sums the 12-byte pseudo-header: source address,
// destination address, a zero byte, the protocol, and length, which
// covers the TCP header plus options plus payload. The addresses and
// protocol must mirror the IP header they ride in. The result seeds
// Checksum over the transport bytes.
func PseudoHeaderChecksum(protocol uint8, src, dst netip.Addr, length uint16) uint16 {
	var ph [PseudoHeaderSize]byte
	s, d := src.As4(), dst.As4()
	copy(ph[0:4], s[:])
	copy(ph[4:8], d[:])
	ph[8] = 0
	ph[9] = protocol
	binary.BigEndian.PutUint16(ph[10:12], length)
	return checksum.Checksum(ph[:], 0)
}
