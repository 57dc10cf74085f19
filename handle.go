package wstask

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ConnectionHandle owns a Transport and the lifecycle state of its connection. Every
// other component reads the state through the handle and never touches the transport.
type ConnectionHandle struct {
	mu        sync.Mutex
	state     ConnectionState
	protocol  string
	transport Transport

	url       *url.URL
	protocols []string

	logger      logger
	metrics     *Metrics
	startOnce   sync.Once
	releaseOnce sync.Once
}

// NewConnectionHandle validates the endpoint and returns a handle in StateConnecting.
// The handshake does not begin until Start is called, so listeners can be attached first.
func NewConnectionHandle(rawURL string, protocols []string, transport Transport, logger logger) (*ConnectionHandle, error) {
	u, err := parseWebsocketURL(rawURL)
	if err != nil {
		return nil, newConnectError("open", rawURL, err)
	}
	if err := validateProtocols(protocols); err != nil {
		return nil, newConnectError("open", rawURL, err)
	}

	return &ConnectionHandle{
		state:     StateConnecting,
		transport: transport,
		url:       u,
		protocols: append([]string(nil), protocols...),
		logger:    logger.WithField("type", "connection_handle").WithField("url", u.Redacted()),
	}, nil
}

// Start begins the asynchronous handshake. It returns immediately; completion is
// reported through the transport notifications. Only the first call has effect.
func (h *ConnectionHandle) Start(ctx context.Context) {
	if h.State() != StateConnecting {
		return
	}
	h.startOnce.Do(func() {
		h.logger.Debugf("dialing with protocols %v", h.protocols)
		h.transport.Dial(ctx, h.url, h.protocols)
	})
}

func (h *ConnectionHandle) State() ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *ConnectionHandle) URL() *url.URL {
	u := *h.url
	return &u
}

func (h *ConnectionHandle) Protocols() []string {
	return append([]string(nil), h.protocols...)
}

// Protocol is the subprotocol selected by the server, empty until open.
func (h *ConnectionHandle) Protocol() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.protocol
}

// Send transmits the frame when open. It fails with ErrNotReady while connecting and with
// ErrClosed once closing has begun.
func (h *ConnectionHandle) Send(f Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateConnecting:
		return ErrNotReady
	case StateOpen:
		if err := h.transport.Write(f.Wire()); err != nil {
			if errors.Is(err, ErrClosed) {
				return ErrClosed
			}
			return errors.Wrap(err, "cannot write frame")
		}
		h.metrics.frameSent(f.Kind())
		return nil
	default:
		return ErrClosed
	}
}

// Close moves the connection to StateClosing and asks the transport to tear down.
// It is a no-op once closing has begun. Codes other than 1000 and 3000-4999, or reasons
// longer than 123 bytes, are replaced by a plain normal closure.
func (h *ConnectionHandle) Close(code int, reason string) {
	if !ValidCloseCode(code) || len(reason) > maxCloseReasonBytes {
		h.logger.Warnf("invalid close code %d or reason %q, using normal closure", code, reason)
		code, reason = CloseNormalClosure, ""
	}

	if _, ok := h.transition(StateClosing); !ok {
		return
	}

	h.logger.Debugf("closing with code %d", code)
	if err := h.transport.Close(code, reason); err != nil {
		h.logger.Warnf("transport refused close: %s", err)
	}
}

// transition applies next if the lifecycle allows it and returns the previous state.
func (h *ConnectionHandle) transition(next ConnectionState) (ConnectionState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.state
	if !prev.CanTransition(next) {
		return prev, false
	}
	h.state = next
	h.logger.Debugf("state %s -> %s", prev, next)
	return prev, true
}

func (h *ConnectionHandle) setProtocol(p string) {
	h.mu.Lock()
	h.protocol = p
	h.mu.Unlock()
}

// release drops the transport socket. Only the first call has effect.
func (h *ConnectionHandle) release() {
	h.releaseOnce.Do(h.transport.Release)
}

func parseWebsocketURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidURL, err.Error())
	}

	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
		u.Scheme = strings.ToLower(u.Scheme)
	default:
		return nil, errors.Wrapf(ErrInvalidURL, "unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" || u.Hostname() == "" {
		return nil, errors.Wrap(ErrInvalidURL, "missing host")
	}
	if u.Fragment != "" || strings.Contains(rawURL, "#") {
		return nil, errors.Wrap(ErrInvalidURL, "fragments are not allowed")
	}
	return u, nil
}

func validateProtocols(protocols []string) error {
	seen := make(map[string]struct{}, len(protocols))
	for _, p := range protocols {
		if !isToken(p) {
			return errors.Wrapf(ErrInvalidURL, "invalid subprotocol %q", p)
		}
		if _, dup := seen[p]; dup {
			return errors.Wrapf(ErrInvalidURL, "duplicated subprotocol %q", p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// isToken reports whether s is an RFC 7230 token.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= 0x20 || c >= 0x7f || strings.IndexByte(`()<>@,;:\"/[]?={}`, c) >= 0 {
			return false
		}
	}
	return true
}
