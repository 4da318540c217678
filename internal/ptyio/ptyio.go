// Package ptyio exposes a serial session as a pseudo-terminal so other programs
// (screen, minicom, a script) can talk to a connected device through a tty path.
//
//	port, err := ptyio.Open(logger)
//	if err != nil {
//	    return err
//	}
//	defer port.Close()
//	fmt.Println(port.Name()) // "/dev/pts/5"
//
//	for line := range port.Lines(ctx) {
//	    // line was written to the tty by the other program
//	}
//	port.Write([]byte("notification\n")) // shows up on the tty
package ptyio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/groutine"
	"golang.org/x/term"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("pty closed")

// Port is the master side of a pty pair. The slave side is left for other programs.
type Port struct {
	logger *logrus.Logger
	master *os.File
	slave  *os.File
	name   string

	writeMu sync.Mutex
	closed  atomic.Bool

	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64
}

// Stats reports the bytes moved through the port.
type Stats struct {
	BytesIn  uint64 // read from the tty
	BytesOut uint64 // written to the tty
}

// Open creates a pty pair with the slave in raw mode, so bytes pass through
// without echo or newline translation.
func Open(logger *logrus.Logger) (*Port, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open pty: %w", err)
	}
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("failed to set pty raw mode: %w", err)
	}

	p := &Port{
		logger: logger,
		master: master,
		slave:  slave,
		name:   slave.Name(),
	}
	logger.WithField("tty", p.name).Debug("PTY opened")
	return p, nil
}

// Name returns the tty path other programs open.
func (p *Port) Name() string {
	return p.name
}

// Write sends data to the tty.
func (p *Port) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	n, err := p.master.Write(data)
	p.bytesOut.Add(uint64(n))
	if err != nil {
		return n, fmt.Errorf("pty write: %w", err)
	}
	return n, nil
}

// Lines forwards every line written to the tty until ctx is done or the port is closed.
// The channel is closed when reading stops.
func (p *Port) Lines(ctx context.Context) <-chan string {
	lines := make(chan string)
	groutine.Go(ctx, "pty-reader", func(ctx context.Context) {
		defer close(lines)
		scanner := bufio.NewScanner(p.master)
		for scanner.Scan() {
			line := scanner.Text()
			p.bytesIn.Add(uint64(len(line) + 1))
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && !p.closed.Load() {
			p.logger.WithFields(logrus.Fields{"tty": p.name, "error": err}).Warn("PTY read failed")
		}
	})
	return lines
}

// Stats returns the current byte counters.
func (p *Port) Stats() Stats {
	return Stats{BytesIn: p.bytesIn.Load(), BytesOut: p.bytesOut.Load()}
}

// Close releases both ends of the pair. It is safe to call more than once.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.logger.WithFields(logrus.Fields{
		"tty":       p.name,
		"bytes_in":  p.bytesIn.Load(),
		"bytes_out": p.bytesOut.Load(),
	}).Debug("PTY closed")
	return errors.Join(p.slave.Close(), p.master.Close())
}
