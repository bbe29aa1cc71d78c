// Package transport defines the byte stream sources an ingestion session reads.
package transport

import (
	"errors"
	"fmt"
	"io"
)

// Port is an opened byte stream, usually a serial device.
type Port interface {
	io.Reader
	io.Closer
}

// Error is a failure opening, reading or closing a Port.
type Error struct {
	Op   string
	Path string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNotConnected indicates no Port is open.
var ErrNotConnected = errors.New("not connected")

// IsTransportError tells if err is or wraps an *Error.
func IsTransportError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
