package wstask

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidURL is returned when the endpoint is not a ws:// or wss:// URL, or the
	// requested subprotocols are malformed.
	ErrInvalidURL = errors.New("invalid websocket url")
	// ErrAlreadyConnected is returned by Connect while a previous connection is still live.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotReady is returned by a direct send while the handshake is still in progress.
	ErrNotReady = errors.New("connection is not open yet")
	// ErrClosed is returned by any send once closing has begun.
	ErrClosed = errors.New("connection has been closed")
	// ErrQueueFull is returned when the outbound buffer reached its configured cap.
	ErrQueueFull = errors.New("outbound queue is full")

	// ErrMalformedFrame is returned when the transport delivers a payload the codec does not accept.
	ErrMalformedFrame           = errors.New("malformed frame")
	ErrReceivedTextForBinary    = errors.New("received text for a binary format")
	ErrReceivedBinaryForText    = errors.New("received binary for a text format")
	ErrCannotEncodeBinaryAsText = errors.New("trying to encode a binary format as text")

	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrConnectionClosed = errors.New("connection closed unexpectedly")
)

// ConnectError describes why a connection could not be started.
type ConnectError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func newConnectError(op, rawURL string, err error) *ConnectError {
	if err == nil {
		return nil
	}
	return &ConnectError{Op: op, URL: rawURL, Err: err}
}

// malformedFrameError matches both ErrMalformedFrame and its specific cause under errors.Is.
type malformedFrameError struct {
	cause error
}

func (e malformedFrameError) Error() string {
	return ErrMalformedFrame.Error() + ": " + e.cause.Error()
}

func (e malformedFrameError) Is(target error) bool { return target == ErrMalformedFrame }

func (e malformedFrameError) Unwrap() error { return e.cause }

func malformed(cause error) error {
	return malformedFrameError{cause: cause}
}
