package wstask

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// Config describes the endpoint and the framing of a Service.
type Config struct {
	// URL is the ws:// or wss:// endpoint.
	URL string
	// Protocols are the subprotocols offered during the handshake, in preference order.
	Protocols []string
	// FrameMode selects which frame kinds are produced and accepted.
	FrameMode FrameMode
	// MaxQueue caps the frames buffered before open. Zero means unbounded.
	MaxQueue int

	// Header is sent with the handshake request.
	Header http.Header
	// Backend selects the websocket library. Default: BackendFasthttp.
	Backend Backend
	// HandshakeTimeout bounds the opening handshake. Default: 10s.
	HandshakeTimeout time.Duration
	// CloseTimeout bounds the wait for the peer's close frame. Default: 5s.
	CloseTimeout time.Duration
	// PingInterval enables keep-alive pings when positive.
	PingInterval time.Duration
}

// Validate checks the configuration without touching the network.
func (c Config) Validate() error {
	if _, err := parseWebsocketURL(c.URL); err != nil {
		return err
	}
	if err := validateProtocols(c.Protocols); err != nil {
		return err
	}
	if !c.FrameMode.valid() {
		return errors.Errorf("invalid frame mode %d", c.FrameMode)
	}
	if c.MaxQueue < 0 {
		return errors.Errorf("max queue must not be negative, got %d", c.MaxQueue)
	}
	if c.Backend != "" && !c.Backend.valid() {
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.HandshakeTimeout < 0 || c.CloseTimeout < 0 || c.PingInterval < 0 {
		return errors.New("timeouts and intervals must not be negative")
	}
	return nil
}

func (c Config) transportOptions() WsTransportOptions {
	return WsTransportOptions{
		Header:           c.Header,
		HandshakeTimeout: c.HandshakeTimeout,
		CloseTimeout:     c.CloseTimeout,
		PingInterval:     c.PingInterval,
	}
}

func (c Config) backend() Backend {
	if c.Backend == "" {
		return BackendFasthttp
	}
	return c.Backend
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: logrus at warn level.
func WithLogger(l logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithMetrics records every connection of the service in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for connection spans. Default: the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTransportFactory replaces the websocket transport, e.g. for tests or other runtimes.
func WithTransportFactory(f TransportFactory) Option {
	return func(s *Service) {
		s.transportFactory = f
	}
}
