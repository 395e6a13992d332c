// Copyright the netstack authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package serial opens a POSIX tty in raw mode, the transport used to carry
// SLIP-framed traffic in and out of this module. It is an ambient
// collaborator: nothing in netstack/slip or netstack/glue depends on it, but
// netstackd wires the two together.
package serial

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned by Read/Write once the Port has been closed.
var ErrClosed = errors.New("serial: port is closed")

// baudRates maps a plain bits-per-second value onto the CBAUD-masked
// termios constant Linux expects in Cflag.
var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// Options configures Open. The zero value is not valid; use NewOptions.
type Options struct {
	// Baud is the line speed in bits per second. Must be a key of a
	// termios-supported rate (9600 through 230400).
	Baud int
}

// NewOptions returns Options defaulting to 115200 baud, the rate the
// original slip device driver this package is modeled on used.
func NewOptions() *Options {
	return &Options{Baud: 115200}
}

// Port is a single open, raw-mode serial line.
type Port struct {
	fd     int
	closed atomic.Bool
}

// Open opens name (e.g. "/dev/ttyUSB0"), puts it into raw non-canonical
// mode, and configures it for opts.Baud.
func Open(name string, opts *Options) (*Port, error) {
	if opts == nil {
		opts = NewOptions()
	}
	rate, ok := baudRates[opts.Baud]
	if !ok {
		return nil, errors.Errorf("serial: unsupported baud rate %d", opts.Baud)
	}

	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "serial: open %s", name)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "serial: get attrs for %s", name)
	}
	makeRaw(t)
	t.Cflag &^= unix.CBAUD
	t.Cflag |= rate
	t.Ispeed = rate
	t.Ospeed = rate
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "serial: set attrs for %s", name)
	}

	return &Port{fd: fd}, nil
}

// makeRaw disables canonical mode, echo, signal generation, and all input
// and output translation, so every byte read or written crosses the line
// unmodified.
func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

// Read reads up to len(p) bytes from the port. A zero-byte read (end of
// stream) is reported as io.EOF.
func (p *Port) Read(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := unix.Read(p.fd, data)
	if err != nil {
		return n, errors.Wrap(err, "serial: read")
	}
	if n == 0 && len(data) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes data to the port.
func (p *Port) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := unix.Write(p.fd, data)
	if err != nil {
		return n, errors.Wrap(err, "serial: write")
	}
	return n, nil
}

// Close closes the underlying file descriptor. Close is idempotent; only
// the first call does any work.
func (p *Port) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if err := unix.Close(p.fd); err != nil {
		return errors.Wrap(err, "serial: close")
	}
	return nil
}
