// Package rawtcp sends single, fire-and-forget IPv4/TCP segments through
// a raw socket, building every header byte itself instead of using the
// kernel TCP stack. There is no handshake, no retransmission and no
// receive path: one call, one segment, one send attempt.
package rawtcp

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math/rand"
	"net/netip"
	"sync/atomic"

	"github.com/dmitrikaramazov/rawtcp/segment"
	"github.com/lysShub/netkit/errorx"
	"github.com/pkg/errors"
)

// DefaultWindow is the advertised receive window when Config leaves it
// zero.
const DefaultWindow uint16 = 32768

// A Sink delivers an assembled PDU to the network layer addressed by dst.
// The layer below owns routing, delivery and ICMP errors; implementations
// make exactly one attempt and report failures instead of retrying.
type Sink interface {
	Send(pdu []byte, dst netip.AddrPort) error
	Close() error
}

type Config struct {
	// Logger Warn/Error logger, slog.Default if nil.
	Logger *slog.Logger

	Window uint16 // zero means DefaultWindow
	TTL    uint8  // zero means header.IPv4DefaultTTL
}

func (c *Config) init() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
}

// Sender assembles segments and hands them to its Sink. Safe for use
// from a single goroutine; each Send owns its buffers and keeps no state
// between calls except the ip identification counter.
type Sender struct {
	logger *slog.Logger
	sink   Sink

	window uint16
	ttl    uint8
	ipID   atomic.Uint32
}

func NewSender(sink Sink, cfg *Config) (*Sender, error) {
	if sink == nil {
		return nil, errors.New("require sink")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.init()

	s := &Sender{
		logger: cfg.Logger,
		sink:   sink,
		window: cfg.Window,
		ttl:    cfg.TTL,
	}
	s.ipID.Store(rand.Uint32())
	return s, nil
}

// Send builds and transmits one segment. flags is any combination of the
// header.TCPFlag* bits; payload may be nil. Assembly and transmission
// failures are returned, never retried.
func (s *Sender) Send(src, dst netip.AddrPort, seq, ack uint32, flags uint8, payload []byte) error {
	pkt, err := segment.Assemble(&segment.Fields{
		Src:        src,
		Dst:        dst,
		SeqNum:     seq,
		AckNum:     ack,
		Flags:      flags,
		WindowSize: s.window,
		ID:         uint16(s.ipID.Add(1)),
		TTL:        s.ttl,
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	// the hex dump is costly for large payloads, only build it when
	// someone will see it
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("send segment",
			slog.String("dst", dst.String()),
			slog.Int("bytes", pkt.Data()),
			slog.String("pdu", hex.EncodeToString(pkt.Bytes())),
		)
	}

	if err := s.sink.Send(pkt.Bytes(), dst); err != nil {
		s.logger.Error(err.Error(), errorx.Trace(err))
		return err
	}
	return nil
}

func (s *Sender) Close() error { return s.sink.Close() }
