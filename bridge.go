package wstask

import (
	"sync"
)

// eventBridge turns transport notifications into Events. It registers its four listeners
// once and removes them exactly once, when the connection reaches a terminal state or is
// disposed. Translation runs under mu so delivered events keep the transport's order.
type eventBridge struct {
	mu       sync.Mutex
	handle   *ConnectionHandle
	codec    Codec
	queue    *OutboundQueue
	deliver  func(Event)
	subs     []Subscription
	released bool

	span    *connSpan
	logger  logger
	metrics *Metrics
}

func newEventBridge(
	handle *ConnectionHandle,
	codec Codec,
	queue *OutboundQueue,
	deliver func(Event),
	span *connSpan,
	logger logger,
	metrics *Metrics,
) *eventBridge {
	return &eventBridge{
		handle:  handle,
		codec:   codec,
		queue:   queue,
		deliver: deliver,
		span:    span,
		logger:  logger.WithField("type", "event_bridge"),
		metrics: metrics,
	}
}

// attach registers the listeners. It must run before the transport dials.
func (b *eventBridge) attach(t Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released || len(b.subs) > 0 {
		return
	}

	b.subs = []Subscription{
		t.On(TransportOpen, b.onOpen),
		t.On(TransportMessage, b.onMessage),
		t.On(TransportError, b.onError),
		t.On(TransportClose, b.onClose),
	}
}

func (b *eventBridge) onOpen(ev TransportEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	if prev, ok := b.handle.transition(StateOpen); !ok {
		b.logger.Debugf("ignoring open notification in state %s", prev)
		return
	}

	b.handle.setProtocol(ev.Protocol)
	b.emit(openedEvent(ev.Protocol))
	b.span.opened(ev.Protocol)

	if err := b.queue.Flush(); err != nil {
		b.logger.Warnf("cannot flush outbound queue: %s", err)
	}
}

func (b *eventBridge) onMessage(ev TransportEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released || b.handle.State().IsTerminal() {
		return
	}

	frame, err := b.codec.Decode(ev.Frame)
	if err != nil {
		b.logger.Warnf("dropping %s: %s", ev.Frame, err)
		b.metrics.frameMalformed()
		b.emit(malformedEvent(err))
		return
	}

	b.metrics.frameReceived(frame.Kind())
	b.emit(messageEvent(frame))
}

func (b *eventBridge) onError(ev TransportEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	if prev, ok := b.handle.transition(StateErrored); !ok {
		b.logger.Debugf("ignoring error notification in state %s", prev)
		return
	}

	b.logger.Errorf("connection failed: %s", ev.Err)
	b.emit(errorEvent(ev.Err))
	b.span.failed(ev.Err)
	b.teardown()
}

func (b *eventBridge) onClose(ev TransportEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	if prev, ok := b.handle.transition(StateClosed); !ok {
		b.logger.Debugf("ignoring close notification in state %s", prev)
		return
	}

	b.logger.Infof("connection closed with code %d", ev.Code)
	b.emit(closedEvent(ev.Code, ev.Reason))
	b.span.closed(ev.Code, ev.Reason)
	b.teardown()
}

// dispose tears everything down without delivering a terminal event.
func (b *eventBridge) dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	b.handle.transition(StateClosed)
	b.span.closed(CloseGoingAway, "disposed")
	b.teardown()
}

// teardown must be called with mu held.
func (b *eventBridge) teardown() {
	b.released = true
	for _, sub := range b.subs {
		sub.Off()
	}
	b.subs = nil
	b.queue.Discard()
	b.handle.release()
}

func (b *eventBridge) emit(ev Event) {
	b.metrics.lifecycleEvent(ev.Kind)
	b.deliver(ev)
}
