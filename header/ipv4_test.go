package header_test

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/dmitrikaramazov/rawtcp/header"
	"github.com/lysShub/rawsock/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip"
	ghdr "gvisor.dev/gvisor/pkg/tcpip/header"
)

func randIPv4Fields() *header.IPv4Fields {
	return &header.IPv4Fields{
		TOS:            uint8(rand.Uint32()),
		TotalLength:    uint16(rand.Uint32()%0xffd7) + 40,
		ID:             uint16(rand.Uint32()),
		Flags:          uint8(rand.Uint32()) & 0b111,
		FragmentOffset: uint16(rand.Uint32()) &^ 0b111, // bytes, multiple of 8
		TTL:            uint8(rand.Uint32()),
		Protocol:       header.TCPProtocolNumber,
		Checksum:       0,
		SrcAddr:        test.RandIP(),
		DstAddr:        test.RandIP(),
	}
}

func Test_IPv4_Encode_Oracle(t *testing.T) {
	// the produced bytes must be identical to gvisor's encoder
	for i := 0; i < 64; i++ {
		f := randIPv4Fields()

		var b = make(header.IPv4, header.IPv4MinimumSize)
		b.Encode(f)

		var want = make(ghdr.IPv4, ghdr.IPv4MinimumSize)
		want.Encode(&ghdr.IPv4Fields{
			TOS:            f.TOS,
			TotalLength:    f.TotalLength,
			ID:             f.ID,
			Flags:          f.Flags,
			FragmentOffset: f.FragmentOffset,
			TTL:            f.TTL,
			Protocol:       f.Protocol,
			Checksum:       f.Checksum,
			SrcAddr:        tcpip.AddrFrom4(f.SrcAddr.As4()),
			DstAddr:        tcpip.AddrFrom4(f.DstAddr.As4()),
		})

		require.Equal(t, []byte(want), []byte(b))
	}
}

func Test_IPv4_Decode(t *testing.T) {
	// every encoded field must be recoverable bit-for-bit
	for i := 0; i < 64; i++ {
		f := randIPv4Fields()

		var b = make(header.IPv4, header.IPv4MinimumSize)
		b.Encode(f)

		require.Equal(t, uint8(4), b.Version())
		require.Equal(t, uint8(header.IPv4MinimumSize), b.HeaderLength())
		require.Equal(t, f.TOS, b.TOS())
		require.Equal(t, f.TotalLength, b.TotalLength())
		require.Equal(t, f.ID, b.ID())
		require.Equal(t, f.Flags, b.Flags())
		require.Equal(t, f.FragmentOffset, b.FragmentOffset())
		require.Equal(t, f.TTL, b.TTL())
		require.Equal(t, f.Protocol, b.Protocol())
		require.Equal(t, uint16(0), b.Checksum())
		require.Equal(t, f.SrcAddr, b.SourceAddress())
		require.Equal(t, f.DstAddr, b.DestinationAddress())
	}
}

func Test_IPv4_Decode_StdParser(t *testing.T) {
	f := &header.IPv4Fields{
		TotalLength: 40,
		ID:          0x1986,
		TTL:         header.IPv4DefaultTTL,
		Protocol:    header.TCPProtocolNumber,
		SrcAddr:     netip.AddrFrom4([4]byte{10, 0, 0, 1}),
		DstAddr:     netip.AddrFrom4([4]byte{10, 0, 0, 2}),
	}
	var b = make(header.IPv4, header.IPv4MinimumSize)
	b.Encode(f)
	b.SetChecksum(^b.CalculateChecksum())

	var h ipv4.Header
	require.NoError(t, h.Parse(b))
	require.Equal(t, 4, h.Version)
	require.Equal(t, header.IPv4MinimumSize, h.Len)
	require.Equal(t, 40, h.TotalLen)
	require.Equal(t, 0x1986, h.ID)
	require.Equal(t, header.IPv4DefaultTTL, h.TTL)
	require.Equal(t, header.TCPProtocolNumber, h.Protocol)
	require.Equal(t, "10.0.0.1", h.Src.String())
	require.Equal(t, "10.0.0.2", h.Dst.String())
}

func Test_IPv4_FragmentOffset(t *testing.T) {
	// the wire field holds the offset divided by 8: 744 bytes -> 0x005d
	f := randIPv4Fields()
	f.Flags = 0
	f.FragmentOffset = 744

	var b = make(header.IPv4, header.IPv4MinimumSize)
	b.Encode(f)

	require.Equal(t, []byte{0x00, 0x5d}, []byte(b[6:8]))
	require.Equal(t, uint16(744), b.FragmentOffset())

	var want = make(ghdr.IPv4, ghdr.IPv4MinimumSize)
	want.Encode(&ghdr.IPv4Fields{FragmentOffset: 744})
	require.Equal(t, []byte(want[6:8]), []byte(b[6:8]))
}

func Test_IPv4_Checksum(t *testing.T) {
	for i := 0; i < 16; i++ {
		var b = make(header.IPv4, header.IPv4MinimumSize)
		b.Encode(randIPv4Fields())
		b.SetChecksum(^b.CalculateChecksum())

		// summing the header with the checksum in place complements to 0
		require.Equal(t, uint16(0xffff), b.CalculateChecksum())
	}
}
