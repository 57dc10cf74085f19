package wstask

import "fmt"

// EventKind discriminates the events delivered to an EventHandler.
type EventKind uint8

const (
	// EventOpened is delivered exactly once, when the handshake completes.
	EventOpened EventKind = iota + 1
	// EventMessage carries an inbound Frame, or a malformed frame error.
	EventMessage
	// EventError is terminal: the transport failed.
	EventError
	// EventClosed is terminal: the connection finished with Code and Reason.
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further event follows for the connection.
func (k EventKind) IsTerminal() bool {
	return k == EventError || k == EventClosed
}

// Event is a lifecycle transition or an inbound message.
//
// Protocol is set for EventOpened, Frame (or Err when malformed) for EventMessage,
// Err for EventError and Code/Reason for EventClosed.
type Event struct {
	Kind     EventKind
	Frame    Frame
	Code     int
	Reason   string
	Protocol string
	Err      error
}

func (e Event) String() string {
	switch e.Kind {
	case EventOpened:
		return fmt.Sprintf("Event{opened,protocol=%q}", e.Protocol)
	case EventMessage:
		if e.Err != nil {
			return fmt.Sprintf("Event{message,err=%s}", e.Err)
		}
		return fmt.Sprintf("Event{message,%s}", e.Frame)
	case EventError:
		return fmt.Sprintf("Event{error,err=%s}", e.Err)
	case EventClosed:
		return fmt.Sprintf("Event{closed,code=%d,reason=%q}", e.Code, e.Reason)
	default:
		return "Event{unknown}"
	}
}

func openedEvent(protocol string) Event {
	return Event{Kind: EventOpened, Protocol: protocol}
}

func messageEvent(f Frame) Event {
	return Event{Kind: EventMessage, Frame: f}
}

func malformedEvent(err error) Event {
	return Event{Kind: EventMessage, Err: err}
}

func errorEvent(err error) Event {
	return Event{Kind: EventError, Err: err}
}

func closedEvent(code int, reason string) Event {
	return Event{Kind: EventClosed, Code: code, Reason: reason}
}
