package wstask

import (
	"context"
)

type (
	// Client is the interface the host interacts with. It covers the connection lifecycle,
	// outbound messages and a single point of event notification.
	Client interface {
		// Connect starts a connection and registers the event handler. It does not block.
		Connect(ctx context.Context, handler EventHandler) error
		// Send encodes payload with the configured frame mode and sends or buffers it.
		Send(payload []byte) error
		// SendText sends a text frame regardless of the frame mode.
		SendText(s string) error
		// SendBinary sends a binary frame regardless of the frame mode.
		SendBinary(b []byte) error
		// SendValue serializes v with f and sends it.
		SendValue(f Format, v any) error
		// Close closes the connection with a normal closure.
		Close()
		// CloseWithReason closes the connection with the given code and reason.
		CloseWithReason(code int, reason string)
		// Dispose closes the connection and releases every resource right away.
		Dispose()
		// State returns the state of the current connection.
		State() ConnectionState
		// Done returns a channel that is closed once the current connection delivered its
		// terminal event or was disposed.
		Done() CloseChan
	}

	CloseChan chan struct{}

	// EventHandler receives every lifecycle and message event of a connection, one at a time.
	EventHandler func(Client, Event)

	ClientFactory func() Client
)
