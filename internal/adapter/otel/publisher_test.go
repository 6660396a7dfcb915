package otel_test

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/codes"

	adapter "github.com/Sergiocharata1977/9001app-v6-sub009/internal/adapter/otel"
	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// --- Mock publishers ---

type mockPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	event domain.Event
	env   domain.EventEnvelope
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event, env domain.EventEnvelope) error {
	m.events = append(m.events, publishedEvent{event: e, env: env})
	return nil
}

type failingPublisher struct{}

func (p *failingPublisher) Publish(_ context.Context, _ domain.Event, _ domain.EventEnvelope) error {
	return fmt.Errorf("publish failed")
}

// --- Tests ---

func TestTracingPublisher_Publish_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockPublisher{}
	pub := adapter.NewTracingPublisher(inner)

	env := domain.EventEnvelope{
		ProcessID: "p-1",
		OrgID:     "org-1",
		RecordID:  "r-1",
		StageID:   "s-2",
		Actor:     "ana",
	}
	if err := pub.Publish(context.Background(), domain.EventRecordTransitioned, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "EventPublisher.Publish" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "EventPublisher.Publish")
	}

	assertAttribute(t, spans[0], "event.type", "record.transitioned")
	assertAttribute(t, spans[0], "process.id", "p-1")
	assertAttribute(t, spans[0], "record.id", "r-1")

	if len(inner.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(inner.events))
	}
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	pub := adapter.NewTracingPublisher(&failingPublisher{})

	env := domain.EventEnvelope{ProcessID: "p-1", OrgID: "org-1"}
	err := pub.Publish(context.Background(), domain.EventStagesDefined, env)
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
