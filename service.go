package wstask

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// Service is the entry point owned by the host. It runs at most one live connection at a
// time; every connection gets its own handle, bridge, outbound queue and dispatcher.
type Service struct {
	cfg   Config
	codec Codec

	logger           logger
	metrics          *Metrics
	tracer           trace.Tracer
	transportFactory TransportFactory

	mu       sync.Mutex
	conn     *connection
	disposed bool
}

// connection groups the components created by one Connect call.
type connection struct {
	handle     *ConnectionHandle
	bridge     *eventBridge
	queue      *OutboundQueue
	dispatcher *dispatcher
}

var _ Client = (*Service)(nil)

func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		codec: NewCodec(cfg.FrameMode),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = defaultLogger()
	}
	if s.tracer == nil {
		s.tracer = defaultTracer()
	}
	if s.transportFactory == nil {
		s.transportFactory = NewWebsocketTransportFactory(cfg.backend(), cfg.transportOptions())
	}
	s.logger = s.logger.WithField("client", "wstask")

	return s
}

func NewServiceFactory(cfg Config, opts ...Option) ClientFactory {
	return func() Client {
		return NewService(cfg, opts...)
	}
}

// Connect wires a new connection and starts the handshake. It fails with
// ErrAlreadyConnected while the previous connection is not terminal and with
// ErrInvalidURL when the configuration is rejected. The outcome of the handshake is
// reported to handler as EventOpened, or EventError/EventClosed. Events of the new
// connection are held back until the previous connection delivered its terminal event.
func (s *Service) Connect(ctx context.Context, handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return newConnectError("connect", s.cfg.URL, ErrClosed)
	}
	if s.conn != nil && !s.conn.handle.State().IsTerminal() {
		return newConnectError("connect", s.cfg.URL, ErrAlreadyConnected)
	}
	if err := s.cfg.Validate(); err != nil {
		return newConnectError("connect", s.cfg.URL, err)
	}
	if handler == nil {
		handler = func(Client, Event) {}
	}

	transport := s.transportFactory(s.logger)
	handle, err := NewConnectionHandle(s.cfg.URL, s.cfg.Protocols, transport, s.logger)
	if err != nil {
		transport.Release()
		return err
	}
	handle.metrics = s.metrics

	var prev CloseChan
	if s.conn != nil {
		prev = s.conn.dispatcher.done
	}

	c := &connection{handle: handle}
	c.dispatcher = newDispatcher(s, handler, prev, s.logger)
	c.queue = NewOutboundQueue(handle, s.cfg.MaxQueue, s.logger, s.metrics)
	span := startConnSpan(ctx, s.tracer, handle.URL(), handle.Protocols())
	c.bridge = newEventBridge(handle, s.codec, c.queue, c.dispatcher.push, span, s.logger, s.metrics)
	c.bridge.attach(transport)

	s.conn = c
	handle.Start(ctx)
	return nil
}

// Send encodes payload according to the frame mode and submits it.
func (s *Service) Send(payload []byte) error {
	f, err := s.codec.Encode(payload)
	if err != nil {
		return err
	}
	return s.submit(f)
}

func (s *Service) SendText(text string) error {
	f, err := s.codec.EncodeText(text)
	if err != nil {
		return err
	}
	return s.submit(f)
}

func (s *Service) SendBinary(b []byte) error {
	return s.submit(s.codec.EncodeBinary(b))
}

func (s *Service) SendValue(format Format, v any) error {
	f, err := EncodeValue(format, v)
	if err != nil {
		return err
	}
	return s.submit(f)
}

func (s *Service) submit(f Frame) error {
	c := s.current()
	if c == nil {
		return ErrClosed
	}
	return c.queue.Submit(f)
}

func (s *Service) Close() {
	s.CloseWithReason(CloseNormalClosure, "")
}

// CloseWithReason begins the closing handshake. Sends fail with ErrClosed from now on;
// the EventClosed event follows once the transport finished. Repeated calls are no-ops.
func (s *Service) CloseWithReason(code int, reason string) {
	c := s.current()
	if c == nil {
		return
	}
	c.handle.Close(code, reason)
	c.queue.Discard()
}

// Dispose closes the connection, removes every transport listener, releases the socket and
// stops event delivery, whatever state the connection is in. Events not yet delivered are
// dropped. The service cannot connect again afterwards.
func (s *Service) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	c := s.conn
	s.mu.Unlock()

	if c == nil {
		return
	}

	c.handle.Close(CloseNormalClosure, "disposed")
	c.bridge.dispose()
	c.dispatcher.abort()
}

// State returns the state of the current connection, StateClosed when there is none.
func (s *Service) State() ConnectionState {
	c := s.current()
	if c == nil {
		return StateClosed
	}
	return c.handle.State()
}

func (s *Service) Done() CloseChan {
	c := s.current()
	if c == nil {
		done := make(CloseChan)
		close(done)
		return done
	}
	return c.dispatcher.done
}

// Buffered returns the number of frames waiting for the connection to open.
func (s *Service) Buffered() int {
	c := s.current()
	if c == nil {
		return 0
	}
	return c.queue.Len()
}

// Protocol returns the subprotocol negotiated by the current connection.
func (s *Service) Protocol() string {
	c := s.current()
	if c == nil {
		return ""
	}
	return c.handle.Protocol()
}

func (s *Service) current() *connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
