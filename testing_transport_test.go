package wstask

import (
	"context"
	"io"
	"net/url"
	"sync"

	"go.opentelemetry.io/otel/trace/noop"
)

// fakeTransport is an in-memory Transport whose notifications are raised by hand.
type fakeTransport struct {
	*EventEmitterCallback[TransportEventKind, TransportEvent]

	mu            sync.Mutex
	dials         int
	dialURL       *url.URL
	dialProtocols []string
	written       []WireFrame
	writeErr      error
	closeCalls    int
	closeCode     int
	closeReason   string
	releases      int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{EventEmitterCallback: NewEventEmitter[TransportEventKind, TransportEvent]()}
}

func (f *fakeTransport) Dial(_ context.Context, u *url.URL, protocols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	f.dialURL = u
	f.dialProtocols = protocols
}

func (f *fakeTransport) Write(w WireFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, w)
	return nil
}

func (f *fakeTransport) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	f.closeCode, f.closeReason = code, reason
	return nil
}

func (f *fakeTransport) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
}

func (f *fakeTransport) open(protocol string) {
	f.Emit(TransportOpen, TransportEvent{Kind: TransportOpen, Protocol: protocol})
}

func (f *fakeTransport) text(s string) {
	f.Emit(TransportMessage, TransportEvent{Kind: TransportMessage, Frame: WireFrame{Type: TextMessage, Data: []byte(s)}})
}

func (f *fakeTransport) binary(b []byte) {
	f.Emit(TransportMessage, TransportEvent{Kind: TransportMessage, Frame: WireFrame{Type: BinaryMessage, Data: b}})
}

func (f *fakeTransport) fail(err error) {
	f.Emit(TransportError, TransportEvent{Kind: TransportError, Err: err})
}

func (f *fakeTransport) closed(code int, reason string) {
	f.Emit(TransportClose, TransportEvent{Kind: TransportClose, Code: code, Reason: reason})
}

func (f *fakeTransport) Written() []WireFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WireFrame(nil), f.written...)
}

func (f *fakeTransport) WrittenText() []string {
	var out []string
	for _, w := range f.Written() {
		out = append(out, string(w.Data))
	}
	return out
}

func (f *fakeTransport) Releases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

func (f *fakeTransport) CloseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeTransport) Dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// eventRecorder collects delivered events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) handler(_ Client, ev Event) {
	r.record(ev)
}

func (r *eventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) Kinds() []EventKind {
	var kinds []EventKind
	for _, ev := range r.Events() {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (r *eventRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newFakeService(cfg Config, ft *fakeTransport, opts ...Option) *Service {
	opts = append([]Option{
		WithTransportFactory(func(logger) Transport { return ft }),
		WithLogger(newTestLogger(io.Discard)),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
	}, opts...)
	return NewService(cfg, opts...)
}
