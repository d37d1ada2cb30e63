// Package tracing wires OpenTelemetry spans into the structured log.
package tracing

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const eventMessage = "observability.event"

// LogProcessor logs every finished span as one observability event. Spans
// ending in error are logged at warn level, others at debug.
type LogProcessor struct {
	logger *log.Logger
}

// NewLogProcessor creates a processor writing to logger.
func NewLogProcessor(logger *log.Logger) *LogProcessor {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogProcessor{logger: logger}
}

func (p *LogProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *LogProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	attrs := make(map[string]any, len(s.Attributes()))
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":  s.Name(),
		"trace_id":    s.SpanContext().TraceID().String(),
		"span_id":     s.SpanContext().SpanID().String(),
		"duration_ms": float64(s.EndTime().Sub(s.StartTime())) / float64(time.Millisecond),
		"attributes":  attrs,
	}
	entry := p.logger.WithFields(fields)
	if st := s.Status(); st.Code == codes.Error {
		entry.WithFields(log.Fields{"severity_text": "WARN", "status": st.Description}).Warn(eventMessage)
		return
	}
	entry.WithField("severity_text", "DEBUG").Debug(eventMessage)
}

func (p *LogProcessor) Shutdown(context.Context) error   { return nil }
func (p *LogProcessor) ForceFlush(context.Context) error { return nil }

// NewProvider returns a tracer provider that logs spans through logger.
func NewProvider(logger *log.Logger, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append([]sdktrace.TracerProviderOption{sdktrace.WithSpanProcessor(NewLogProcessor(logger))}, opts...)
	return sdktrace.NewTracerProvider(opts...)
}

// Install registers a logging tracer provider globally and returns its shutdown func.
func Install(logger *log.Logger) func(context.Context) error {
	tp := NewProvider(logger)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

var _ sdktrace.SpanProcessor = (*LogProcessor)(nil)
