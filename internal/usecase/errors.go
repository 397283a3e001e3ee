package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("printer not found")
	ErrNotConnected = errors.New("printer not connected")
	ErrDuplicate    = errors.New("duplicate idempotency key")
)

// ConnectionError reports a failed attempt to open a printer.
type ConnectionError struct {
	PrinterID string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect printer %s: %v", e.PrinterID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError reports a device I/O failure.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// asTransportError wraps err unless it already carries a *TransportError.
func asTransportError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return NewTransportError(op, err)
}
