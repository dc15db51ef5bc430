// Package checksum implements the internet checksum (RFC 1071): the 16-bit
// one's-complement sum used by the IPv4 and TCP headers.
package checksum

// Checksum adds the big-endian 16-bit words of buf to initial with
// end-around carry. An odd trailing byte is the high octet of a virtual
// final word. The result is NOT complemented, so partial sums compose:
//
//	sum := header.PseudoHeaderChecksum(proto, src, dst, n)
//	sum = checksum.Checksum(tcp, sum)
//	tcp.SetChecksum(^sum)
//
// The checksum field inside buf must be zero when summed; that is the
// caller's responsibility.
func Checksum(buf []byte, initial uint16) uint16 {
	sum := uint32(initial)

	i := 0
	for ; i+1 < len(buf); i += 2 {
		sum += uint32(buf[i])<<8 | uint32(buf[i+1])
	}
	if i < len(buf) {
		sum += uint32(buf[i]) << 8
	}

	// fold carries; two rounds suffice for any buf shorter than 64KB
	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16
	return uint16(sum)
}

// Combine folds two partial sums into one.
func Combine(a, b uint16) uint16 {
	v := uint32(a) + uint32(b)
	return uint16(v + v>>16)
}
