package wstask

import (
	"context"
	"fmt"
	"net/url"
)

type (
	// TransportEventKind names the four notifications a transport raises.
	TransportEventKind uint8

	// TransportEvent is a raw notification from the socket primitive.
	TransportEvent struct {
		Kind     TransportEventKind
		Protocol string    // TransportOpen
		Frame    WireFrame // TransportMessage
		Err      error     // TransportError
		Code     int       // TransportClose
		Reason   string    // TransportClose
	}

	// Transport is the socket capability driven by a ConnectionHandle. Implementations
	// run the websocket protocol and report progress through their notifications.
	//
	// A transport raises at most one TransportOpen, delivers notifications in real-time
	// order and must eventually raise TransportClose (optionally preceded by
	// TransportError) once Dial was called, whether the handshake succeeded or not.
	Transport interface {
		// On registers a listener for one notification kind.
		On(kind TransportEventKind, listener func(TransportEvent)) Subscription
		// Dial starts the handshake. It does not block.
		Dial(ctx context.Context, u *url.URL, protocols []string)
		// Write queues a frame for transmission. It does not block on the network.
		Write(w WireFrame) error
		// Close starts the closing handshake with the given code and reason.
		Close(code int, reason string) error
		// Release drops the socket and every resource held. It is idempotent.
		Release()
	}

	// TransportFactory builds a fresh transport for each connection.
	TransportFactory func(logger logger) Transport
)

const (
	TransportOpen TransportEventKind = iota + 1
	TransportMessage
	TransportError
	TransportClose
)

func (k TransportEventKind) String() string {
	switch k {
	case TransportOpen:
		return "open"
	case TransportMessage:
		return "message"
	case TransportError:
		return "error"
	case TransportClose:
		return "close"
	default:
		return fmt.Sprintf("transport_event(%d)", uint8(k))
	}
}

// Close codes, as defined by RFC 6455.
const (
	CloseNormalClosure   = 1000
	CloseGoingAway       = 1001
	CloseAbnormalClosure = 1006

	maxCloseReasonBytes = 123
)

// ValidCloseCode reports whether code may be sent by an application: 1000 or 3000-4999.
func ValidCloseCode(code int) bool {
	return code == CloseNormalClosure || (code >= 3000 && code <= 4999)
}
