package serial

import (
	"errors"
	"fmt"
)

var (
	// ErrReadTimeout means no complete line arrived within the read timeout.
	// It is expected and callers simply retry.
	ErrReadTimeout = errors.New("serial: read timeout")

	// ErrLineTooLong means a line exceeded MaxLineLength and was discarded.
	ErrLineTooLong = errors.New("serial: line too long")

	// ErrClosed means the link was closed.
	ErrClosed = errors.New("serial: link closed")
)

// ConnectionError means the device could not be opened.
type ConnectionError struct {
	Address string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("serial: connect %s: %v", e.Address, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// ReadError is a non-timeout I/O failure while reading, e.g. the device was
// unplugged.
type ReadError struct {
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("serial: read: %v", e.Cause)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}

// WriteError is a failed write of a feedback line.
type WriteError struct {
	Line  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("serial: write %q: %v", e.Line, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
