package app

import (
	"context"
	"fmt"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// ProcessConfigService owns the definition side of the workflow
// engine: creating processes, replacing stage sets, and the flags
// gating record creation.
type ProcessConfigService struct {
	processes domain.ProcessRepository
	records   domain.RecordRepository
	publisher domain.EventPublisher
	locks     *ProcessLocks
}

// NewProcessConfigService creates the service with the given adapters.
// locks must be the same registry handed to the record service.
func NewProcessConfigService(processes domain.ProcessRepository, records domain.RecordRepository, publisher domain.EventPublisher, locks *ProcessLocks) *ProcessConfigService {
	return &ProcessConfigService{
		processes: processes,
		records:   records,
		publisher: publisher,
		locks:     locks,
	}
}

// CreateProcess persists a new, empty process definition.
func (s *ProcessConfigService) CreateProcess(ctx context.Context, orgID, code, name string) (domain.ProcessDefinition, error) {
	id, err := generateID()
	if err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("generating process id: %w", err)
	}

	def := domain.NewProcessDefinition(id, orgID, code, name)
	if err := s.processes.Create(ctx, def); err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("creating process: %w", err)
	}

	return def, nil
}

// GetProcess returns a definition by id.
func (s *ProcessConfigService) GetProcess(ctx context.Context, id string) (domain.ProcessDefinition, error) {
	return s.processes.GetByID(ctx, id)
}

// ListProcesses returns definitions matching the given filter.
func (s *ProcessConfigService) ListProcesses(ctx context.Context, filter domain.ListFilter) ([]domain.ProcessDefinition, error) {
	return s.processes.List(ctx, filter)
}

// DefineStagesOptions controls how stage removal conflicts are
// handled. With Force set, records sitting on a removed stage are
// migrated to MigrateTo, which must belong to the new stage set.
type DefineStagesOptions struct {
	Force     bool
	MigrateTo string
}

// DefineStages replaces the process's full stage set. Candidates
// without an id get a generated one; supplied ids stay stable across
// revisions. The replacement is rejected with StageInUseConflictError
// when it would strand records on a removed stage, unless the caller
// opts into force-cascade migration.
func (s *ProcessConfigService) DefineStages(ctx context.Context, processID string, candidates []domain.Stage, opts DefineStagesOptions, actor string) (domain.ProcessDefinition, error) {
	unlock := s.locks.Lock(processID)
	defer unlock()

	def, err := s.processes.GetByID(ctx, processID)
	if err != nil {
		return domain.ProcessDefinition{}, err
	}

	for i := range candidates {
		if candidates[i].ID == "" {
			id, err := generateID()
			if err != nil {
				return domain.ProcessDefinition{}, fmt.Errorf("generating stage id: %w", err)
			}
			candidates[i].ID = id
		}
		for j := range candidates[i].Fields {
			if candidates[i].Fields[j].ID == "" {
				id, err := generateID()
				if err != nil {
					return domain.ProcessDefinition{}, fmt.Errorf("generating field id: %w", err)
				}
				candidates[i].Fields[j].ID = id
			}
		}
	}

	stages, err := domain.NormalizeStages(candidates)
	if err != nil {
		return domain.ProcessDefinition{}, err
	}

	kept := make(map[string]bool, len(stages))
	for _, st := range stages {
		kept[st.ID] = true
	}

	refs, err := s.records.StageRefCounts(ctx, processID)
	if err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("checking stage references: %w", err)
	}

	for stageID, count := range refs {
		if kept[stageID] || count == 0 {
			continue
		}
		if !opts.Force {
			return domain.ProcessDefinition{}, &domain.StageInUseConflictError{StageID: stageID, Records: count}
		}
		if !kept[opts.MigrateTo] {
			return domain.ProcessDefinition{}, &domain.UnknownStageError{StageID: opts.MigrateTo, ProcessID: processID}
		}
	}

	def.Stages = stages
	def.StageRevision++

	if err := s.processes.SaveStages(ctx, def); err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("saving stage set: %w", err)
	}

	// Force-cascade: move stranded records onto the migration target so
	// every record keeps resolving to a stage of its process.
	if opts.Force {
		if err := s.migrateStranded(ctx, def, kept, opts.MigrateTo, actor); err != nil {
			return domain.ProcessDefinition{}, err
		}
	}

	if err := s.publisher.Publish(ctx, domain.EventStagesDefined, domain.EventEnvelope{
		ProcessID: def.ID,
		OrgID:     def.OrgID,
		Actor:     actor,
	}); err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("publishing stage event: %w", err)
	}

	return def, nil
}

func (s *ProcessConfigService) migrateStranded(ctx context.Context, def domain.ProcessDefinition, kept map[string]bool, target, actor string) error {
	records, err := s.records.ListByProcess(ctx, def.ID)
	if err != nil {
		return fmt.Errorf("listing records for migration: %w", err)
	}

	for _, rec := range records {
		if kept[rec.CurrentStageID] {
			continue
		}
		removed := rec.CurrentStageID
		rec.CurrentStageID = target
		rec.Progress = def.ProgressAt(target)
		rec.AppendHistory(target, actor, fmt.Sprintf("migrated from removed stage %s", removed))
		if err := s.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("migrating record %s: %w", rec.ID, err)
		}
	}

	return nil
}

// ToggleAllowsRecords flips the flag gating record creation. Enabling
// requires the stage set to have an initial stage.
func (s *ProcessConfigService) ToggleAllowsRecords(ctx context.Context, processID string, enabled bool) (domain.ProcessDefinition, error) {
	def, err := s.processes.GetByID(ctx, processID)
	if err != nil {
		return domain.ProcessDefinition{}, err
	}

	if enabled {
		if _, ok := def.InitialStage(); !ok {
			return domain.ProcessDefinition{}, domain.ErrNoInitialStage
		}
	}

	def.AllowsRecords = enabled
	if err := s.processes.Update(ctx, def); err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("updating process: %w", err)
	}

	return def, nil
}

// ArchiveProcess soft-deletes a definition. Existing records keep
// resolving their stages; new records can no longer be created.
func (s *ProcessConfigService) ArchiveProcess(ctx context.Context, processID, actor string) (domain.ProcessDefinition, error) {
	def, err := s.processes.GetByID(ctx, processID)
	if err != nil {
		return domain.ProcessDefinition{}, err
	}

	def.Lifecycle = domain.LifecycleArchived
	def.AllowsRecords = false
	if err := s.processes.Update(ctx, def); err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("archiving process: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventProcessArchived, domain.EventEnvelope{
		ProcessID: def.ID,
		OrgID:     def.OrgID,
		Actor:     actor,
	}); err != nil {
		return domain.ProcessDefinition{}, fmt.Errorf("publishing archive event: %w", err)
	}

	return def, nil
}
