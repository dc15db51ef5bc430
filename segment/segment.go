// Package segment assembles complete IPv4/TCP PDUs: header layout, both
// checksums, payload.
package segment

import (
	"fmt"
	"net/netip"

	"github.com/dmitrikaramazov/rawtcp/checksum"
	"github.com/dmitrikaramazov/rawtcp/header"
	"github.com/lysShub/netkit/debug"
	"github.com/lysShub/netkit/packet"
	"github.com/lysShub/rawsock/test"
	"github.com/pkg/errors"
	"gvisor.dev/gvisor/pkg/tcpip"
	ghdr "gvisor.dev/gvisor/pkg/tcpip/header"
)

// MaxPayloadSize is the most payload a single optionless segment can
// carry: the IP total-length field is 16 bits and the two headers take 40
// bytes.
const MaxPayloadSize = 0xffff - header.IPv4MinimumSize - header.TCPMinimumSize

type ErrPayloadTooLarge int

func (e ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("payload size %d overflows the ip total-length field", int(e))
}

type ErrNotIPv4 netip.Addr

func (e ErrNotIPv4) Error() string {
	return fmt.Sprintf("require ipv4 address, got %s", netip.Addr(e).String())
}

// Fields describes one segment. Checksums are not caller-settable; both
// are computed during assembly.
type Fields struct {
	Src, Dst netip.AddrPort

	SeqNum uint32
	AckNum uint32

	// Flags is any combination of the six header.TCPFlag* control bits.
	Flags uint8

	WindowSize uint16
	ID         uint16
	TTL        uint8 // zero means header.IPv4DefaultTTL

	Payload []byte
}

// Assemble builds the transmittable [ip][tcp][payload] buffer. The ip
// header checksum is finalized before the tcp checksum is computed, so
// the pseudo-header always mirrors the final ip header. The packet has
// no spare head or tail; Bytes() is the PDU.
func Assemble(f *Fields) (*packet.Packet, error) {
	if !f.Src.Addr().Is4() {
		return nil, errors.WithStack(ErrNotIPv4(f.Src.Addr()))
	}
	if !f.Dst.Addr().Is4() {
		return nil, errors.WithStack(ErrNotIPv4(f.Dst.Addr()))
	}
	if len(f.Payload) > MaxPayloadSize {
		return nil, errors.WithStack(ErrPayloadTooLarge(len(f.Payload)))
	}
	ttl := f.TTL
	if ttl == 0 {
		ttl = header.IPv4DefaultTTL
	}

	pkt := packet.Make(header.IPv4MinimumSize, header.TCPMinimumSize+len(f.Payload))

	tcp := header.TCP(pkt.Bytes())
	tcp.Encode(&header.TCPFields{
		SrcPort:       f.Src.Port(),
		DstPort:       f.Dst.Port(),
		SeqNum:        f.SeqNum,
		AckNum:        f.AckNum,
		DataOffset:    header.TCPMinimumSize,
		Flags:         f.Flags,
		WindowSize:    f.WindowSize,
		Checksum:      0,
		UrgentPointer: 0,
	})
	copy(tcp.Payload(), f.Payload)

	ip := header.IPv4(pkt.AttachN(header.IPv4MinimumSize).Bytes())
	ip.Encode(&header.IPv4Fields{
		TOS:            0,
		TotalLength:    uint16(pkt.Data()),
		ID:             f.ID,
		Flags:          0,
		FragmentOffset: 0,
		TTL:            ttl,
		Protocol:       header.TCPProtocolNumber,
		Checksum:       0,
		SrcAddr:        f.Src.Addr(),
		DstAddr:        f.Dst.Addr(),
	})
	ip.SetChecksum(^ip.CalculateChecksum())

	tcp = header.TCP(ip.Payload())
	sum := header.PseudoHeaderChecksum(
		ip.Protocol(), ip.SourceAddress(), ip.DestinationAddress(),
		uint16(len(tcp)),
	)
	sum = checksum.Checksum(tcp, sum)
	tcp.SetChecksum(^sum)

	if debug.Debug() {
		test.ValidIP(test.T(), pkt.Bytes())
		test.ValidTCP(test.T(), tcp, ghdr.PseudoHeaderChecksum(
			ghdr.TCPProtocolNumber,
			tcpip.AddrFrom4(f.Src.Addr().As4()),
			tcpip.AddrFrom4(f.Dst.Addr().As4()),
			0,
		))
	}
	return pkt, nil
}
