// Package serial reads gesture lines from the button device and writes
// feedback lines back to it.
package serial

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	bugserial "go.bug.st/serial"
)

// MaxLineLength bounds a single inbound line. Longer lines are noise.
const MaxLineLength = 256

//go:generate mockgen -destination=mock_port_test.go -package=serial . Port

// Port is the part of a serial device the link uses.
// go.bug.st/serial's Port satisfies it.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Opener opens a device at a baud rate.
type Opener func(address string, baud int) (Port, error)

// DeviceOpener opens a real serial device.
func DeviceOpener(address string, baud int) (Port, error) {
	return bugserial.Open(address, &bugserial.Mode{BaudRate: baud})
}

// Ports lists the serial devices present on this machine.
func Ports() ([]string, error) {
	return bugserial.GetPortsList()
}

// Pusher receives complete lines. *queue.Queue satisfies it.
type Pusher interface {
	Push(token string)
}

// Options tunes a Link. Zero values take defaults.
type Options struct {
	ReadTimeout time.Duration // per-read timeout (default 100ms)
	RetryDelay  time.Duration // pause after a read error (default 500ms)
	ReopenAfter int           // consecutive read errors before reopening (default 5)
	OutboxSize  int           // pending feedback lines (default 8)
	Opener      Opener        // default DeviceOpener
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 100 * time.Millisecond
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.ReopenAfter <= 0 {
		o.ReopenAfter = 5
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 8
	}
	if o.Opener == nil {
		o.Opener = DeviceOpener
	}
	return o
}

// Link owns one serial connection.
//
// ReadLine belongs to the reader goroutine. Writes go through WriteLine,
// which holds the link mutex, or through Send, which hands the line to the
// writer goroutine started by Run.
type Link struct {
	address string
	baud    int
	opts    Options

	mu     sync.Mutex
	port   Port
	closed bool

	buf     []byte
	scratch []byte

	live    atomic.Bool
	running atomic.Bool
	outbox  chan string
}

// Open connects to the device.
func Open(address string, baud int, opts Options) (*Link, error) {
	opts = opts.withDefaults()

	port, err := openPort(opts, address, baud)
	if err != nil {
		return nil, err
	}

	l := &Link{
		address: address,
		baud:    baud,
		opts:    opts,
		port:    port,
		scratch: make([]byte, 64),
		outbox:  make(chan string, opts.OutboxSize),
	}
	l.live.Store(true)
	return l, nil
}

func openPort(opts Options, address string, baud int) (Port, error) {
	port, err := opts.Opener(address, baud)
	if err != nil {
		return nil, &ConnectionError{Address: address, Cause: err}
	}
	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, &ConnectionError{Address: address, Cause: err}
	}
	return port, nil
}

// Address returns the device address.
func (l *Link) Address() string {
	return l.address
}

// Live reports whether the last read attempt succeeded or timed out
// cleanly, i.e. whether the device is still answering.
func (l *Link) Live() bool {
	return l.live.Load() && !l.isClosed()
}

func (l *Link) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Link) current() (Port, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	return l.port, nil
}

// ReadLine returns the next trimmed, non-empty line. Bytes of an
// unfinished line are kept for the next call.
func (l *Link) ReadLine() (string, error) {
	for {
		line, ok, tooLong := l.popLine()
		if tooLong {
			return "", ErrLineTooLong
		}
		if ok {
			return line, nil
		}

		port, err := l.current()
		if err != nil {
			return "", err
		}

		n, err := port.Read(l.scratch)
		if err != nil {
			return "", &ReadError{Cause: err}
		}
		if n == 0 {
			return "", ErrReadTimeout
		}
		l.buf = append(l.buf, l.scratch[:n]...)

		if len(l.buf) > MaxLineLength && bytes.IndexByte(l.buf, '\n') < 0 {
			l.buf = l.buf[:0]
			return "", ErrLineTooLong
		}
	}
}

// popLine takes the first complete line out of the buffer, skipping blank
// ones.
func (l *Link) popLine() (line string, ok bool, tooLong bool) {
	for {
		idx := bytes.IndexByte(l.buf, '\n')
		if idx < 0 {
			return "", false, false
		}
		raw := string(l.buf[:idx])
		rest := copy(l.buf, l.buf[idx+1:])
		l.buf = l.buf[:rest]

		if len(raw) > MaxLineLength {
			return "", false, true
		}
		if line = strings.TrimSpace(raw); line != "" {
			return line, true, false
		}
	}
}

// WriteLine writes one newline-terminated line.
func (l *Link) WriteLine(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return &WriteError{Line: line, Cause: ErrClosed}
	}
	if _, err := l.port.Write([]byte(line + "\n")); err != nil {
		return &WriteError{Line: line, Cause: err}
	}
	return nil
}

// Send queues a line for the writer goroutine. It never blocks and reports
// false when the line was dropped.
func (l *Link) Send(line string) bool {
	if !l.running.Load() {
		return false
	}
	select {
	case l.outbox <- line:
		return true
	default:
		return false
	}
}

// Run reads lines into p until ctx is cancelled. Timeouts are retried
// silently; read errors are logged, retried, and after ReopenAfter in a row
// the port is reopened. Run also drains the Send outbox. It returns once
// both the reader and the writer have stopped; only then is it safe to
// Close the link.
func (l *Link) Run(ctx context.Context, p Pusher) {
	l.running.Store(true)
	defer l.running.Store(false)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.writeLoop(ctx)
	}()

	l.readLoop(ctx, p)
	wg.Wait()
}

func (l *Link) readLoop(ctx context.Context, p Pusher) {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := l.ReadLine()
		switch {
		case err == nil:
			failures = 0
			l.live.Store(true)
			p.Push(line)

		case errors.Is(err, ErrReadTimeout):
			failures = 0
			l.live.Store(true)

		case errors.Is(err, ErrLineTooLong):
			slog.Debug("serial: dropped oversized line", "address", l.address)

		case errors.Is(err, ErrClosed):
			return

		default:
			failures++
			l.live.Store(false)
			slog.Warn("serial: read failed", "address", l.address, "failures", failures, "err", err)

			if failures >= l.opts.ReopenAfter {
				if err := l.reopen(); err != nil {
					slog.Warn("serial: reopen failed", "address", l.address, "err", err)
				} else {
					slog.Info("serial: reopened", "address", l.address)
					failures = 0
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(l.opts.RetryDelay):
			}
		}
	}
}

func (l *Link) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-l.outbox:
			if err := l.WriteLine(line); err != nil {
				slog.Debug("serial: feedback write failed", "err", err)
			}
		}
	}
}

// reopen swaps in a fresh port. The old port stays in place if opening
// fails.
func (l *Link) reopen() error {
	port, err := openPort(l.opts, l.address, l.baud)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		port.Close()
		return ErrClosed
	}
	old := l.port
	l.port = port
	l.buf = l.buf[:0]
	if old != nil {
		old.Close()
	}
	return nil
}

// Close closes the device. Call it only after Run has returned.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.live.Store(false)
	if l.port == nil {
		return nil
	}
	return l.port.Close()
}

// FormatMood encodes the outbound mood feedback line.
func FormatMood(mood int) string {
	return "MOOD:" + strconv.Itoa(mood)
}
