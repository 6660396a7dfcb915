package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// WorkflowJobArgs carries a workflow domain event for asynchronous
// processing. River serializes this as JSON into its job queue table.
// The envelope snapshot means the worker never needs to query the
// engine's tables.
type WorkflowJobArgs struct {
	Event     string `json:"event"`
	ProcessID string `json:"process_id"`
	OrgID     string `json:"org_id,omitempty"`
	RecordID  string `json:"record_id,omitempty"`
	StageID   string `json:"stage_id,omitempty"`
	Actor     string `json:"actor,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (WorkflowJobArgs) Kind() string { return "workflow.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a workflow event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, env domain.EventEnvelope) error {
	_, err := p.client.Insert(ctx, WorkflowJobArgs{
		Event:     string(event),
		ProcessID: env.ProcessID,
		OrgID:     env.OrgID,
		RecordID:  env.RecordID,
		StageID:   env.StageID,
		Actor:     env.Actor,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing workflow event job: %w", err)
	}
	return nil
}
