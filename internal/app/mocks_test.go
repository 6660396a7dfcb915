package app_test

import (
	"context"
	"sync"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

// --- Mocks ---

type mockProcessRepo struct {
	mu        sync.Mutex
	processes map[string]domain.ProcessDefinition
}

func newMockProcessRepo() *mockProcessRepo {
	return &mockProcessRepo{processes: make(map[string]domain.ProcessDefinition)}
}

func (m *mockProcessRepo) Create(_ context.Context, def domain.ProcessDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes[def.ID] = def
	return nil
}

func (m *mockProcessRepo) GetByID(_ context.Context, id string) (domain.ProcessDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.processes[id]
	if !ok {
		return domain.ProcessDefinition{}, domain.ErrProcessNotFound
	}
	return def, nil
}

func (m *mockProcessRepo) List(_ context.Context, _ domain.ListFilter) ([]domain.ProcessDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ProcessDefinition, 0, len(m.processes))
	for _, def := range m.processes {
		out = append(out, def)
	}
	return out, nil
}

func (m *mockProcessRepo) Update(_ context.Context, def domain.ProcessDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.processes[def.ID]
	if !ok {
		return domain.ErrProcessNotFound
	}
	def.Stages = stored.Stages
	def.StageRevision = stored.StageRevision
	m.processes[def.ID] = def
	return nil
}

func (m *mockProcessRepo) SaveStages(_ context.Context, def domain.ProcessDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processes[def.ID]; !ok {
		return domain.ErrProcessNotFound
	}
	m.processes[def.ID] = def
	return nil
}

type mockRecordRepo struct {
	mu      sync.Mutex
	records map[string]domain.ProcessRecord
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]domain.ProcessRecord)}
}

func (m *mockRecordRepo) Create(_ context.Context, rec domain.ProcessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *mockRecordRepo) GetByID(_ context.Context, id string) (domain.ProcessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.ProcessRecord{}, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (m *mockRecordRepo) ListByProcess(_ context.Context, processID string) ([]domain.ProcessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ProcessRecord
	for _, rec := range m.records {
		if rec.ProcessID == processID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) Update(_ context.Context, rec domain.ProcessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[rec.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if stored.Version != rec.Version {
		return domain.ErrVersionConflict
	}
	rec.Version++
	for i := range rec.StateHistory {
		if rec.StateHistory[i].Seq == 0 {
			rec.StateHistory[i].Seq = int64(i + 1)
		}
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *mockRecordRepo) StageRefCounts(_ context.Context, processID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, rec := range m.records {
		if rec.ProcessID == processID {
			counts[rec.CurrentStageID]++
		}
	}
	return counts, nil
}

type capturedEvent struct {
	event domain.Event
	env   domain.EventEnvelope
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.Event, env domain.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{event: event, env: env})
	return nil
}

func (p *capturingPublisher) last() (capturedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return capturedEvent{}, false
	}
	return p.events[len(p.events)-1], true
}

// stageValidator is a local TransitionValidator: any target belonging
// to the definition is legal.
type stageValidator struct{}

func (stageValidator) Apply(_ context.Context, def domain.ProcessDefinition, _, targetStageID string) (string, error) {
	if _, ok := def.StageByID(targetStageID); !ok {
		return "", &domain.UnknownStageError{StageID: targetStageID, ProcessID: def.ID}
	}
	return targetStageID, nil
}
