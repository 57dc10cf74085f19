package wstask

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/pkg/errors"
)

type (
	// wsConn is the subset of a websocket connection used by WsTransport. Both
	// github.com/fasthttp/websocket and github.com/gorilla/websocket satisfy it.
	wsConn interface {
		ReadMessage() (messageType int, p []byte, err error)
		WriteMessage(messageType int, data []byte) error
		WriteControl(messageType int, data []byte, deadline time.Time) error
		SetWriteDeadline(t time.Time) error
		Subprotocol() string
		Close() error
	}

	WsTransportOptions struct {
		Header           http.Header
		HandshakeTimeout time.Duration
		// CloseTimeout bounds the wait for the peer's close frame after we sent ours.
		CloseTimeout time.Duration
		WriteTimeout time.Duration
		// PingInterval enables keep-alive pings when positive.
		PingInterval time.Duration
	}

	closeRequest struct {
		code   int
		reason string
	}

	// WsTransport is a Transport over a websocket library. Dialing, reading and writing
	// happen on their own goroutines; notifications are raised from those goroutines.
	WsTransport struct {
		*EventEmitterCallback[TransportEventKind, TransportEvent]

		backend wsBackend
		opts    WsTransportOptions
		logger  logger

		mu             sync.Mutex
		conn           wsConn
		cancelDial     context.CancelFunc
		closeRequested bool
		closeCode      int
		closeReason    string
		closeTimer     *time.Timer
		released       bool
		outbox         *queue.Queue

		wake         chan struct{}
		done         chan struct{}
		dialOnce       sync.Once
		closeFrameOnce sync.Once
		terminalOnce   sync.Once
		releaseOnce    sync.Once
	}
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultCloseTimeout     = 5 * time.Second
	defaultWriteTimeout     = time.Second
)

func NewWebsocketTransport(backend Backend, opts WsTransportOptions, logger logger) *WsTransport {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = defaultCloseTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	return &WsTransport{
		EventEmitterCallback: NewEventEmitter[TransportEventKind, TransportEvent](),
		backend:              backendFor(backend),
		opts:                 opts,
		logger:               logger.WithField("net", "ws_transport").WithField("backend", string(backend)),
		outbox:               queue.New(),
		wake:                 make(chan struct{}, 1),
		done:                 make(chan struct{}),
	}
}

func NewWebsocketTransportFactory(backend Backend, opts WsTransportOptions) TransportFactory {
	return func(logger logger) Transport {
		return NewWebsocketTransport(backend, opts, logger)
	}
}

// Dial starts the handshake on a new goroutine. Only the first call has effect.
func (w *WsTransport) Dial(ctx context.Context, u *url.URL, protocols []string) {
	w.dialOnce.Do(func() {
		go w.start(ctx, u, protocols)
	})
}

// Write queues a data or ping frame for the writer goroutine.
func (w *WsTransport) Write(f WireFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released || w.closeRequested {
		return ErrClosed
	}
	if w.conn == nil {
		return ErrNotReady
	}

	w.push(f)
	return nil
}

// Close sends a close frame once the connection is up, or aborts an in-flight dial.
// Subsequent calls are no-ops.
func (w *WsTransport) Close(code int, reason string) error {
	w.mu.Lock()
	if w.closeRequested || w.released {
		w.mu.Unlock()
		return nil
	}
	w.closeRequested = true
	w.closeCode, w.closeReason = code, reason
	conn, cancel := w.conn, w.cancelDial

	if conn != nil {
		w.push(closeRequest{code: code, reason: reason})
	}
	w.mu.Unlock()

	if conn == nil && cancel != nil {
		cancel()
	}
	return nil
}

// Release drops the socket and stops every goroutine. A close requested but not yet
// written is sent before the socket goes away.
func (w *WsTransport) Release() {
	w.releaseOnce.Do(func() {
		w.mu.Lock()
		w.released = true
		conn, cancel, timer := w.conn, w.cancelDial, w.closeTimer
		pending, req := w.closeRequested, closeRequest{code: w.closeCode, reason: w.closeReason}
		w.outbox = queue.New()
		w.mu.Unlock()

		if conn != nil && pending {
			if err := w.writeClose(conn, req); err != nil {
				w.logger.Debugf("cannot send close frame on release: %s", err)
			}
		}

		close(w.done)
		if timer != nil {
			timer.Stop()
		}
		if cancel != nil {
			cancel()
		}
		if conn != nil {
			_ = conn.Close()
		}
		w.logger.Debugln("transport released")
	})
}

// push must be called with mu held.
func (w *WsTransport) push(item any) {
	w.outbox.Add(item)
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *WsTransport) pop() (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released || w.outbox.Length() == 0 {
		return nil, false
	}
	return w.outbox.Remove(), true
}

func (w *WsTransport) start(ctx context.Context, u *url.URL, protocols []string) {
	dialCtx, cancel := context.WithTimeout(ctx, w.opts.HandshakeTimeout)
	defer cancel()

	w.mu.Lock()
	if w.closeRequested || w.released {
		w.mu.Unlock()
		w.finishRequested()
		return
	}
	w.cancelDial = cancel
	w.mu.Unlock()

	conn, resp, err := w.backend.dial(dialCtx, u.String(), protocols, w.opts.Header, w.opts.HandshakeTimeout)
	if err != nil {
		if w.isCloseRequested() {
			w.finishRequested()
			return
		}
		err = w.handleDialError(resp, err)
		w.logger.Errorf("connection err to %s: %s", u.Redacted(), err)
		w.finish(err, CloseAbnormalClosure, "")
		return
	}

	w.mu.Lock()
	if w.closeRequested || w.released {
		w.mu.Unlock()
		_ = conn.Close()
		w.finishRequested()
		return
	}
	w.conn = conn
	w.cancelDial = nil
	w.mu.Unlock()

	w.logger.Debugf("success opening connection to %s", u.Redacted())

	w.Emit(TransportOpen, TransportEvent{Kind: TransportOpen, Protocol: conn.Subprotocol()})

	go w.read(conn)
	go w.write(conn)

	if w.opts.PingInterval > 0 {
		ka := newActiveKeepAlive(w.logger, w.opts.PingInterval, NewKeepAliveMessageFactory(PingMessage, nil), w.Write)
		go ka.run(w.done)
	}
}

func (w *WsTransport) read(conn wsConn) {
	for {
		messageType, bts, err := conn.ReadMessage()
		if err != nil {
			w.handleReadError(err)
			return
		}

		// message types from ReadMessage are either binary or text
		switch MessageType(messageType) {
		case BinaryMessage:
			w.logger.Debugln("<= [BIN]")
			w.Emit(TransportMessage, TransportEvent{Kind: TransportMessage, Frame: WireFrame{Type: BinaryMessage, Data: bts}})
		default:
			w.logger.Debugf("<= [TEXT] %s", bts)
			w.Emit(TransportMessage, TransportEvent{Kind: TransportMessage, Frame: WireFrame{Type: TextMessage, Data: bts}})
		}
	}
}

func (w *WsTransport) write(conn wsConn) {
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
		}

		for {
			item, ok := w.pop()
			if !ok {
				break
			}

			deadline := time.Now().Add(w.opts.WriteTimeout)

			var err error
			switch msg := item.(type) {
			case closeRequest:
				err = w.writeClose(conn, msg)
				w.armCloseTimer(msg)
			case WireFrame:
				if msg.Type.IsControl() {
					w.logger.Debugf("=> [%s]", msg.Type)
					err = conn.WriteControl(int(msg.Type), msg.Data, deadline)
				} else {
					w.logger.Debugf("=> [%s] %d bytes", msg.Type, len(msg.Data))
					_ = conn.SetWriteDeadline(deadline)
					err = conn.WriteMessage(int(msg.Type), msg.Data)
				}
			}

			if err != nil {
				w.handleWriteError(err)
				return
			}
		}
	}
}

// writeClose sends our close frame. Only the first call writes; concurrent callers wait for it.
func (w *WsTransport) writeClose(conn wsConn, req closeRequest) error {
	var err error
	w.closeFrameOnce.Do(func() {
		w.logger.Infoln("=> [CLOSE] closing connection from our side")
		deadline := time.Now().Add(w.opts.WriteTimeout)
		err = conn.WriteControl(int(CloseMessage), w.backend.formatClose(req.code, req.reason), deadline)
	})
	return err
}

// armCloseTimer gives up on the peer's close frame after CloseTimeout.
func (w *WsTransport) armCloseTimer(req closeRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released || w.closeTimer != nil {
		return
	}
	w.closeTimer = time.AfterFunc(w.opts.CloseTimeout, func() {
		w.logger.Warnf("peer did not answer close within %s", w.opts.CloseTimeout)
		w.finish(nil, req.code, req.reason)
	})
}

func (w *WsTransport) handleReadError(err error) {
	// both libraries report an unexpected EOF as a 1006 close error; that is a failure,
	// not a close frame from the peer
	if code, reason, ok := w.backend.closeStatus(err); ok && code != CloseAbnormalClosure {
		w.logger.Debugf("<= [CLOSE] code=%d reason=%q", code, reason)
		w.finish(nil, code, reason)
		return
	}
	if w.isReleased() {
		return
	}
	if w.isCloseRequested() {
		w.finishRequested()
		return
	}

	w.logger.Errorf("error occurred on websocket read: %s", err)
	w.finish(errors.Wrap(ErrConnectionClosed, "error occurred on websocket read: "+err.Error()), CloseAbnormalClosure, "")
}

func (w *WsTransport) handleWriteError(err error) {
	if w.isReleased() {
		return
	}
	if w.isCloseRequested() {
		w.finishRequested()
		return
	}

	w.logger.Errorf("error occurred on websocket write: %s", err)
	w.finish(errors.Wrap(ErrConnectionClosed, "error occurred on websocket write: "+err.Error()), CloseAbnormalClosure, "")
}

// finish raises the terminal notifications once and releases the socket.
func (w *WsTransport) finish(err error, code int, reason string) {
	w.terminalOnce.Do(func() {
		if err != nil {
			w.Emit(TransportError, TransportEvent{Kind: TransportError, Err: err})
		}
		w.Emit(TransportClose, TransportEvent{Kind: TransportClose, Code: code, Reason: reason})
	})
	w.Release()
}

func (w *WsTransport) finishRequested() {
	w.mu.Lock()
	code, reason := w.closeCode, w.closeReason
	w.mu.Unlock()

	w.finish(nil, code, reason)
}

func (w *WsTransport) isCloseRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeRequested
}

func (w *WsTransport) isReleased() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}

func (w *WsTransport) handleDialError(resp *http.Response, err error) error {
	// 1. Check HTTP errors first
	if resp != nil {
		var msg string
		if resp.Body != nil {
			bts, readErr := io.ReadAll(resp.Body)
			if readErr == nil {
				msg = string(bts)
			}
			_ = resp.Body.Close()
		}
		return errors.Wrapf(ErrCannotConnect, "handshake rejected with status %d: %s", resp.StatusCode, msg)
	}

	// 2. Network errors
	return errors.Wrap(ErrCannotConnect, err.Error())
}
