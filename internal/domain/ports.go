package domain

import "context"

// ProcessRepository defines the persistence contract for process
// definitions and their stage sets.
type ProcessRepository interface {
	Create(ctx context.Context, def ProcessDefinition) error
	GetByID(ctx context.Context, id string) (ProcessDefinition, error)
	List(ctx context.Context, filter ListFilter) ([]ProcessDefinition, error)
	// Update persists the definition's metadata and flags, leaving the
	// stage set untouched.
	Update(ctx context.Context, def ProcessDefinition) error
	// SaveStages replaces the definition's full stage set and revision
	// atomically.
	SaveStages(ctx context.Context, def ProcessDefinition) error
}

// ListFilter holds optional criteria for listing process definitions.
type ListFilter struct {
	OrgID     string
	Lifecycle *Lifecycle
	Limit     int
	Offset    int
}

// RecordRepository defines the persistence contract for process
// records and their history.
type RecordRepository interface {
	Create(ctx context.Context, rec ProcessRecord) error
	GetByID(ctx context.Context, id string) (ProcessRecord, error)
	ListByProcess(ctx context.Context, processID string) ([]ProcessRecord, error)
	// Update commits the record and any unpersisted history entries in
	// one transaction, guarded by the record's version. It returns
	// ErrVersionConflict when the stored version has moved on.
	Update(ctx context.Context, rec ProcessRecord) error
	// StageRefCounts reports, per stage id, how many records of the
	// process currently sit on that stage.
	StageRefCounts(ctx context.Context, processID string) (map[string]int, error)
}

// Event represents a workflow domain event emitted after a successful
// mutation.
type Event string

const (
	EventStagesDefined      Event = "stages.defined"
	EventProcessArchived    Event = "process.archived"
	EventRecordCreated      Event = "record.created"
	EventRecordTransitioned Event = "record.transitioned"
	EventRecordUpdated      Event = "record.updated"
	EventRecordArchived     Event = "record.archived"
)

// EventEnvelope carries a snapshot of the affected aggregate so event
// consumers never need to re-query the store.
type EventEnvelope struct {
	ProcessID string
	OrgID     string
	RecordID  string
	StageID   string
	Actor     string
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, env EventEnvelope) error
}

// TransitionValidator checks that a stage-to-stage move is legal for
// the given definition and returns the resulting stage id.
type TransitionValidator interface {
	Apply(ctx context.Context, def ProcessDefinition, currentStageID, targetStageID string) (string, error)
}
