package wstask

import (
	"context"
	"net/url"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sonirico/wstask"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// connSpan covers one connection from Connect to its terminal event.
// A nil *connSpan records nothing.
type connSpan struct {
	span trace.Span
	once sync.Once
}

func startConnSpan(ctx context.Context, tracer trace.Tracer, u *url.URL, protocols []string) *connSpan {
	_, span := tracer.Start(ctx, "wstask.connection",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ws.url", u.Redacted()),
			attribute.StringSlice("ws.protocols", protocols),
		),
	)
	return &connSpan{span: span}
}

func (s *connSpan) opened(protocol string) {
	if s == nil {
		return
	}
	s.span.AddEvent("opened", trace.WithAttributes(attribute.String("ws.protocol", protocol)))
}

func (s *connSpan) failed(err error) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.span.End()
	})
}

func (s *connSpan) closed(code int, reason string) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.span.SetAttributes(
			attribute.Int("ws.close_code", code),
			attribute.String("ws.close_reason", reason),
		)
		s.span.End()
	})
}
