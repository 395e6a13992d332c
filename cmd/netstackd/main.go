// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command netstackd reads SLIP-framed IPv4/ICMP traffic off a serial line
// and answers Echo Requests with Echo Replies. It is the dispatcher that
// wires the netstack, slip, glue, ipv4, icmp, and serial packages together;
// none of those packages import this one.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhmu/netstack"
	"github.com/zhmu/netstack/glue"
	"github.com/zhmu/netstack/hexdump"
	"github.com/zhmu/netstack/icmp"
	"github.com/zhmu/netstack/ipv4"
	"github.com/zhmu/netstack/serial"
	"github.com/zhmu/netstack/slip"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Fatal("exiting", "err", err)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "netstackd [device-path]",
		Short: "Answer ICMP echo requests received as SLIP frames over a serial line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v.Set("device", args[0])
			}
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("device", "/dev/ttyUSB0", "serial device to read/write SLIP frames on")
	flags.Int("baud", 115200, "serial line speed in bits per second")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("config", "", "optional config file (yaml/json/toml); flags and env override it")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("netstackd")
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		if path, _ := flags.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				logger.Warn("failed to read config file", "path", path, "err", err)
			}
		}
	})

	return cmd
}

func run(v *viper.Viper) error {
	level, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return errors.Wrap(err, "parsing log-level")
	}
	logger.SetLevel(level)

	device := v.GetString("device")
	baud := v.GetInt("baud")

	port, err := serial.Open(device, &serial.Options{Baud: baud})
	if err != nil {
		return errors.Wrapf(err, "opening %s", device)
	}
	defer port.Close()

	logger.Info("listening", "device", device, "baud", baud)
	return serve(port)
}

// serve runs the read/glue/slip/ipv4/icmp/reply loop until port.Read
// returns an error.
func serve(port *serial.Port) error {
	g := glue.New()
	for {
		n, err := port.Read(g.WriteSpan())
		if err != nil {
			return errors.Wrap(err, "reading from serial port")
		}
		g.Handle(n, slip.Decode, func(frame *netstack.Buffer) {
			handleFrame(port, frame)
		})
	}
}

// handleFrame parses one SLIP-decoded frame as an IPv4/ICMP packet and, for
// an Echo Request, writes the Echo Reply back out as a new SLIP frame.
func handleFrame(port *serial.Port, frame *netstack.Buffer) {
	if frame == nil {
		return
	}

	id := uuid.New()
	log := logger.With("frame", id.String())

	hexdump.Dump(frame, func(l hexdump.Line) {
		log.Debug("frame", "offset", fmt.Sprintf("%04x", l.Offset), "bytes", l.Bytes, "chars", l.Chars)
	})

	ipHeader, err := ipv4.ParseHeader(frame)
	if err != nil {
		log.Warn("dropping frame: invalid ipv4 header", "err", err)
		return
	}
	if ipHeader.Protocol != ipv4.ProtocolICMP {
		log.Debug("ignoring non-ICMP packet", "protocol", ipHeader.Protocol)
		return
	}

	icmpHeader, err := icmp.ParseHeader(ipHeader, frame)
	if err != nil {
		log.Warn("dropping frame: invalid icmp header", "err", err)
		return
	}

	icmpReply, ok := icmp.Process(ipHeader, icmpHeader, frame)
	if !ok {
		log.Debug("no reply for icmp message", "type", icmpHeader.Type, "code", icmpHeader.Code)
		return
	}

	reply := buildReply(ipHeader, icmpReply)
	var framed []byte
	slip.Transmit(reply, func(b byte) { framed = append(framed, b) })

	if _, err := port.Write(framed); err != nil {
		log.Warn("failed writing reply", "err", err)
		return
	}
	log.Info("sent echo reply", "bytes", len(framed))
}

// buildReply wraps an already-built ICMP message body in a fresh IPv4
// header addressed back to the original sender.
func buildReply(origHeader ipv4.Header, icmpReply *netstack.Buffer) *netstack.Buffer {
	replyHeader := ipv4.Header{
		TotalLength: ipv4.HeaderSize + uint16(icmpReply.Len()),
		ID:          origHeader.ID,
		TTL:         64,
		Protocol:    ipv4.ProtocolICMP,
		SourceAddr:  origHeader.DestAddr,
		DestAddr:    origHeader.SourceAddr,
		HeaderSize:  ipv4.HeaderSize,
	}

	packet := netstack.NewBuffer()
	ipv4.ConstructHeader(replyHeader, packet)

	w := netstack.NewChainWriter(packet)
	cur := icmpReply.Bytes()
	for {
		b, ok := cur.Next()
		if !ok {
			break
		}
		w.Put(b)
	}
	return packet
}
