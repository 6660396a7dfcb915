package domain

import "time"

// CustomData maps field definition ids to values. Values for fields no
// longer declared on the record's current stage are retained but not
// validated.
type CustomData map[string]any

// HistoryEntry is one append-only stage-change record. Seq is assigned
// by the store on commit; entries with Seq zero have not been
// persisted yet.
type HistoryEntry struct {
	Seq       int64
	StageID   string
	ChangedAt time.Time
	ChangedBy string
	Comment   string
}

// ProcessRecord is one instance of work flowing through a
// ProcessDefinition's stages. CurrentStageID always resolves to a
// stage of the owning definition. Version implements per-record
// optimistic concurrency: the store rejects an update whose version
// does not match the stored row.
type ProcessRecord struct {
	ID             string
	ProcessID      string
	Title          string
	CurrentStageID string
	CustomData     CustomData
	Progress       int
	Lifecycle      Lifecycle
	Version        int64
	StateHistory   []HistoryEntry
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProcessRecord creates a record on the given stage with its first
// history entry. The caller has already resolved the definition's
// initial stage and computed progress.
func NewProcessRecord(id, processID, title string, stage Stage, progress int, data CustomData, actor, comment string) ProcessRecord {
	now := time.Now().UTC()
	if data == nil {
		data = CustomData{}
	}
	return ProcessRecord{
		ID:             id,
		ProcessID:      processID,
		Title:          title,
		CurrentStageID: stage.ID,
		CustomData:     data,
		Progress:       progress,
		Lifecycle:      LifecycleActive,
		Version:        1,
		StateHistory: []HistoryEntry{{
			StageID:   stage.ID,
			ChangedAt: now,
			ChangedBy: actor,
			Comment:   comment,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendHistory adds an unpersisted history entry for the given stage
// and stamps UpdatedAt.
func (r *ProcessRecord) AppendHistory(stageID, actor, comment string) {
	now := time.Now().UTC()
	r.StateHistory = append(r.StateHistory, HistoryEntry{
		StageID:   stageID,
		ChangedAt: now,
		ChangedBy: actor,
		Comment:   comment,
	})
	r.UpdatedAt = now
}

// LastMovedAt returns the timestamp of the most recent history entry,
// falling back to CreatedAt for a record with no history.
func (r ProcessRecord) LastMovedAt() time.Time {
	if len(r.StateHistory) == 0 {
		return r.CreatedAt
	}
	return r.StateHistory[len(r.StateHistory)-1].ChangedAt
}
