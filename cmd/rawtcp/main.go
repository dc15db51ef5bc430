//go:build linux
// +build linux

package main

import (
	"log/slog"
	"net/netip"
	"os"
	"strings"

	"github.com/dmitrikaramazov/rawtcp"
	"github.com/dmitrikaramazov/rawtcp/header"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "rawtcp"
	app.Usage = "send a single raw tcp segment, bypassing the kernel tcp stack"
	app.ArgsUsage = "[payload]"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:     "src, s",
			Usage:    "source `ip:port`",
			Required: true,
		},
		cli.StringFlag{
			Name:     "dst, d",
			Usage:    "destination `ip:port`",
			Required: true,
		},
		cli.Uint64Flag{
			Name:  "seq",
			Usage: "initial sequence number",
			Value: 0x1000,
		},
		cli.Uint64Flag{
			Name:  "ack",
			Usage: "acknowledgment number",
		},
		cli.StringFlag{
			Name:  "flags, f",
			Usage: "comma separated control flags: fin,syn,rst,psh,ack,urg",
			Value: "syn",
		},
		cli.UintFlag{
			Name:  "window, w",
			Usage: "advertised window size",
			Value: uint(rawtcp.DefaultWindow),
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "log the assembled pdu",
		},
	}
	app.Action = send

	if err := app.Run(os.Args); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func send(c *cli.Context) error {
	opt := &slog.HandlerOptions{}
	if c.Bool("verbose") {
		opt.Level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opt))

	src, err := netip.ParseAddrPort(c.String("src"))
	if err != nil {
		return errors.Wrap(err, "src")
	}
	dst, err := netip.ParseAddrPort(c.String("dst"))
	if err != nil {
		return errors.Wrap(err, "dst")
	}
	flags, err := parseFlags(c.String("flags"))
	if err != nil {
		return err
	}
	var payload []byte
	if c.NArg() > 0 {
		payload = []byte(c.Args().First())
	}

	sink, err := rawtcp.NewRawSink()
	if err != nil {
		return err
	}
	defer sink.Close()

	s, err := rawtcp.NewSender(sink, &rawtcp.Config{
		Logger: logger,
		Window: uint16(c.Uint("window")),
	})
	if err != nil {
		return err
	}

	seq, ack := uint32(c.Uint64("seq")), uint32(c.Uint64("ack"))
	if err := s.Send(src, dst, seq, ack, flags, payload); err != nil {
		return err
	}

	logger.Info("sent",
		slog.String("src", src.String()),
		slog.String("dst", dst.String()),
		slog.Int("bytes", header.IPv4MinimumSize+header.TCPMinimumSize+len(payload)),
	)
	return nil
}

var flagNames = map[string]uint8{
	"fin": header.TCPFlagFin,
	"syn": header.TCPFlagSyn,
	"rst": header.TCPFlagRst,
	"psh": header.TCPFlagPsh,
	"ack": header.TCPFlagAck,
	"urg": header.TCPFlagUrg,
}

func parseFlags(s string) (uint8, error) {
	var flags uint8
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		f, ok := flagNames[name]
		if !ok {
			return 0, errors.Errorf("unknown tcp flag %q", name)
		}
		flags |= f
	}
	return flags, nil
}
