package wstask

// ConnectionState is the lifecycle state of a single connection. Exactly one value is active at a time.
type ConnectionState int32

const (
	// StateConnecting means the handshake has been requested but not yet completed.
	StateConnecting ConnectionState = iota
	// StateOpen means frames can be exchanged.
	StateOpen
	// StateClosing means a local close has been requested and the transport is tearing down.
	StateClosing
	// StateClosed is terminal: the connection finished, either locally or by the peer.
	StateClosed
	// StateErrored is terminal: the transport reported a failure.
	StateErrored
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s ConnectionState) IsTerminal() bool {
	return s == StateClosed || s == StateErrored
}

// CanTransition reports whether moving from s to next keeps the lifecycle monotonic.
// Connecting -> Open -> Closing -> Closed is the forward path, Closed may be reached
// from any live state when the peer closes first, and Errored absorbs any live state.
func (s ConnectionState) CanTransition(next ConnectionState) bool {
	if s.IsTerminal() {
		return false
	}

	switch next {
	case StateOpen:
		return s == StateConnecting
	case StateClosing:
		return s == StateConnecting || s == StateOpen
	case StateClosed, StateErrored:
		return true
	default:
		return false
	}
}
