package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// RecordService owns the record side of the workflow engine: creating
// records, transitioning them across stages, and maintaining custom
// data and history.
type RecordService struct {
	processes domain.ProcessRepository
	records   domain.RecordRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	locks     *ProcessLocks
}

// NewRecordService creates the service with the given adapters. locks
// must be the same registry handed to the configuration service.
func NewRecordService(processes domain.ProcessRepository, records domain.RecordRepository, publisher domain.EventPublisher, validator domain.TransitionValidator, locks *ProcessLocks) *RecordService {
	return &RecordService{
		processes: processes,
		records:   records,
		publisher: publisher,
		validator: validator,
		locks:     locks,
	}
}

// Get returns a record by id.
func (s *RecordService) Get(ctx context.Context, id string) (domain.ProcessRecord, error) {
	return s.records.GetByID(ctx, id)
}

// ListByProcess returns all records of a process.
func (s *RecordService) ListByProcess(ctx context.Context, processID string) ([]domain.ProcessRecord, error) {
	return s.records.ListByProcess(ctx, processID)
}

// Create opens a new record on the process's initial stage. Initial
// data is validated against that stage's fields: a required field with
// no value supplied at all rejects the creation; every other violation
// is returned as a warning and noted in the first history entry.
func (s *RecordService) Create(ctx context.Context, processID, title string, data domain.CustomData, actor string) (domain.ProcessRecord, []domain.FieldViolation, error) {
	unlock := s.locks.RLock(processID)
	defer unlock()

	def, err := s.processes.GetByID(ctx, processID)
	if err != nil {
		return domain.ProcessRecord{}, nil, err
	}
	if def.Lifecycle != domain.LifecycleActive || !def.AllowsRecords {
		return domain.ProcessRecord{}, nil, domain.ErrRecordsNotAllowed
	}

	initial, ok := def.InitialStage()
	if !ok {
		return domain.ProcessRecord{}, nil, domain.ErrNoInitialStage
	}

	violations := domain.ValidateFields(initial, data)
	var blocking []domain.FieldViolation
	for _, v := range violations {
		if v.Required && v.Missing {
			blocking = append(blocking, v)
		}
	}
	if len(blocking) > 0 {
		return domain.ProcessRecord{}, violations, &domain.ValidationError{Violations: blocking}
	}

	id, err := generateID()
	if err != nil {
		return domain.ProcessRecord{}, nil, fmt.Errorf("generating record id: %w", err)
	}

	comment := "created"
	if summary := domain.ViolationSummary(violations); summary != "" {
		comment += " (" + summary + ")"
	}

	rec := domain.NewProcessRecord(id, processID, title, initial, def.ProgressAt(initial.ID), data, actor, comment)

	if err := s.records.Create(ctx, rec); err != nil {
		return domain.ProcessRecord{}, nil, fmt.Errorf("creating record: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventRecordCreated, domain.EventEnvelope{
		ProcessID: def.ID,
		OrgID:     def.OrgID,
		RecordID:  rec.ID,
		StageID:   rec.CurrentStageID,
		Actor:     actor,
	}); err != nil {
		return domain.ProcessRecord{}, nil, fmt.Errorf("publishing creation event: %w", err)
	}

	return rec, violations, nil
}

// Transition moves a record to another stage of its process. Any
// stage-to-stage move is permitted, including backward and out of the
// final stage; the workflow is a free graph, not a pipeline. Custom
// data is re-validated against the target stage, and violations are
// returned as warnings attached to the history entry, never blocking
// the move.
func (s *RecordService) Transition(ctx context.Context, recordID, targetStageID, actor, comment string) (domain.ProcessRecord, []domain.FieldViolation, error) {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return domain.ProcessRecord{}, nil, err
	}

	unlock := s.locks.RLock(rec.ProcessID)
	defer unlock()

	def, err := s.processes.GetByID(ctx, rec.ProcessID)
	if err != nil {
		return domain.ProcessRecord{}, nil, err
	}

	newStageID, err := s.validator.Apply(ctx, def, rec.CurrentStageID, targetStageID)
	if err != nil {
		return domain.ProcessRecord{}, nil, err
	}

	target, _ := def.StageByID(newStageID)
	violations := domain.ValidateFields(target, rec.CustomData)

	entryComment := comment
	if summary := domain.ViolationSummary(violations); summary != "" {
		if entryComment != "" {
			entryComment += " "
		}
		entryComment += "(" + summary + ")"
	}

	rec.CurrentStageID = newStageID
	rec.Progress = def.ProgressAt(newStageID)
	rec.AppendHistory(newStageID, actor, entryComment)

	if err := s.records.Update(ctx, rec); err != nil {
		return domain.ProcessRecord{}, nil, err
	}
	// Mirror the store's version bump so callers see the committed state.
	rec.Version++

	if err := s.publisher.Publish(ctx, domain.EventRecordTransitioned, domain.EventEnvelope{
		ProcessID: def.ID,
		OrgID:     def.OrgID,
		RecordID:  rec.ID,
		StageID:   newStageID,
		Actor:     actor,
	}); err != nil {
		return domain.ProcessRecord{}, nil, fmt.Errorf("publishing transition event: %w", err)
	}

	return rec, violations, nil
}

// UpdateCustomData merges the patch into the record's custom data
// without changing stage. Validation is transition-gated, so none runs
// here; the change is noted in the history for the audit trail.
func (s *RecordService) UpdateCustomData(ctx context.Context, recordID string, patch domain.CustomData, actor string) (domain.ProcessRecord, error) {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return domain.ProcessRecord{}, err
	}

	unlock := s.locks.RLock(rec.ProcessID)
	defer unlock()

	if rec.CustomData == nil {
		rec.CustomData = domain.CustomData{}
	}
	changed := make([]string, 0, len(patch))
	for k, v := range patch {
		rec.CustomData[k] = v
		changed = append(changed, k)
	}
	sort.Strings(changed)

	rec.AppendHistory(rec.CurrentStageID, actor, "updated fields: "+strings.Join(changed, ", "))

	if err := s.records.Update(ctx, rec); err != nil {
		return domain.ProcessRecord{}, err
	}
	rec.Version++

	if err := s.publisher.Publish(ctx, domain.EventRecordUpdated, domain.EventEnvelope{
		ProcessID: rec.ProcessID,
		RecordID:  rec.ID,
		StageID:   rec.CurrentStageID,
		Actor:     actor,
	}); err != nil {
		return domain.ProcessRecord{}, fmt.Errorf("publishing update event: %w", err)
	}

	return rec, nil
}

// Archive flags a record inactive. Records are never deleted.
func (s *RecordService) Archive(ctx context.Context, recordID, actor string) (domain.ProcessRecord, error) {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return domain.ProcessRecord{}, err
	}

	unlock := s.locks.RLock(rec.ProcessID)
	defer unlock()

	rec.Lifecycle = domain.LifecycleArchived
	rec.AppendHistory(rec.CurrentStageID, actor, "archived")

	if err := s.records.Update(ctx, rec); err != nil {
		return domain.ProcessRecord{}, err
	}
	rec.Version++

	if err := s.publisher.Publish(ctx, domain.EventRecordArchived, domain.EventEnvelope{
		ProcessID: rec.ProcessID,
		RecordID:  rec.ID,
		StageID:   rec.CurrentStageID,
		Actor:     actor,
	}); err != nil {
		return domain.ProcessRecord{}, fmt.Errorf("publishing archive event: %w", err)
	}

	return rec, nil
}
