//go:build linux
// +build linux

package rawtcp

import (
	"net/netip"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// RawSink writes fully-formed ip packets to an AF_INET SOCK_RAW socket.
// IP_HDRINCL keeps the kernel from prepending its own ip header; routing
// stays with the kernel.
type RawSink struct {
	fd int
}

var _ Sink = (*RawSink)(nil)

// NewRawSink opens the raw socket, usually requires CAP_NET_RAW.
func NewRawSink() (*RawSink, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		return nil, errors.Wrap(err, "raw socket")
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "IP_HDRINCL")
	}
	return &RawSink{fd: fd}, nil
}

// Send makes a single sendto call. The sockaddr port is ignored for
// IPPROTO_RAW sockets, the kernel routes on the address alone.
func (s *RawSink) Send(pdu []byte, dst netip.AddrPort) error {
	if !dst.Addr().Is4() {
		return errors.Errorf("require ipv4 destination, got %s", dst.Addr().String())
	}
	sa := &unix.SockaddrInet4{Port: int(dst.Port()), Addr: dst.Addr().As4()}
	if err := unix.Sendto(s.fd, pdu, 0, sa); err != nil {
		return errors.Wrap(err, "sendto")
	}
	return nil
}

func (s *RawSink) Close() error {
	return errors.WithStack(unix.Close(s.fd))
}
