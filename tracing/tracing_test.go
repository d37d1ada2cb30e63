package tracing

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestLogProcessorLogsSpans(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	tp := NewProvider(logger)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "board.create")
	span.SetAttributes(attribute.String("board.id", "b1"))
	span.End()

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Message != eventMessage || entry.Level != log.DebugLevel {
		t.Fatalf("unexpected entry %s at %s", entry.Message, entry.Level)
	}
	if entry.Data["event.name"] != "board.create" {
		t.Fatalf("unexpected event name %v", entry.Data["event.name"])
	}
	attrs, ok := entry.Data["attributes"].(map[string]any)
	if !ok || attrs["board.id"] != "b1" {
		t.Fatalf("unexpected attributes %#v", entry.Data["attributes"])
	}
}

func TestLogProcessorWarnsOnErrorStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tp := NewProvider(logger)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "board.rename")
	span.SetStatus(codes.Error, "not_creator")
	span.End()

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel {
		t.Fatalf("expected warn entry, got %+v", entry)
	}
	if entry.Data["status"] != "not_creator" || entry.Data["severity_text"] != "WARN" {
		t.Fatalf("unexpected fields %#v", entry.Data)
	}
}
