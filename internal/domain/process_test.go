package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

func threeStages() []domain.Stage {
	return []domain.Stage{
		{ID: "s-1", Name: "iniciado", Color: "#2ecc71", Order: 0, IsInitial: true},
		{ID: "s-2", Name: "en_progreso", Color: "#f1c40f", Order: 1},
		{ID: "s-3", Name: "completado", Color: "#3498db", Order: 2, IsFinal: true},
	}
}

func TestNewProcessDefinition(t *testing.T) {
	before := time.Now().UTC()
	def := domain.NewProcessDefinition("p-1", "org-1", "QM-01", "Auditorías internas")
	after := time.Now().UTC()

	if def.ID != "p-1" {
		t.Errorf("ID = %q, want %q", def.ID, "p-1")
	}
	if def.OrgID != "org-1" {
		t.Errorf("OrgID = %q, want %q", def.OrgID, "org-1")
	}
	if def.Lifecycle != domain.LifecycleActive {
		t.Errorf("Lifecycle = %q, want %q", def.Lifecycle, domain.LifecycleActive)
	}
	if def.AllowsRecords {
		t.Error("AllowsRecords should start false")
	}
	if len(def.Stages) != 0 {
		t.Errorf("new definition has %d stages, want 0", len(def.Stages))
	}
	if def.CreatedAt.Before(before) || def.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want between %v and %v", def.CreatedAt, before, after)
	}
}

func TestNormalizeStages_Valid(t *testing.T) {
	stages, err := domain.NormalizeStages(threeStages())
	if err != nil {
		t.Fatalf("NormalizeStages failed: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(stages))
	}
	if stages[0].ID != "s-1" || stages[2].ID != "s-3" {
		t.Errorf("unexpected order: %q..%q", stages[0].ID, stages[2].ID)
	}
}

func TestNormalizeStages_SortsByOrder_TiesByPosition(t *testing.T) {
	candidates := []domain.Stage{
		{ID: "b", Name: "b", Order: 5, IsFinal: true},
		{ID: "a", Name: "a", Order: 1, IsInitial: true},
		{ID: "c", Name: "c", Order: 5},
	}

	stages, err := domain.NormalizeStages(candidates)
	if err != nil {
		t.Fatalf("NormalizeStages failed: %v", err)
	}

	got := []string{stages[0].ID, stages[1].ID, stages[2].ID}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeStages_TwoInitials(t *testing.T) {
	candidates := threeStages()
	candidates[1].IsInitial = true

	_, err := domain.NormalizeStages(candidates)
	var cfgErr *domain.InvalidStageConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidStageConfigurationError, got %v", err)
	}
}

func TestNormalizeStages_NoFinal(t *testing.T) {
	candidates := threeStages()
	candidates[2].IsFinal = false

	_, err := domain.NormalizeStages(candidates)
	var cfgErr *domain.InvalidStageConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidStageConfigurationError, got %v", err)
	}
}

func TestNormalizeStages_Empty(t *testing.T) {
	_, err := domain.NormalizeStages(nil)
	var cfgErr *domain.InvalidStageConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidStageConfigurationError, got %v", err)
	}
}

func TestNormalizeStages_SingleStageBothInitialAndFinal(t *testing.T) {
	stages, err := domain.NormalizeStages([]domain.Stage{
		{ID: "only", Name: "only", IsInitial: true, IsFinal: true},
	})
	if err != nil {
		t.Fatalf("single-stage set should be valid: %v", err)
	}
	if len(stages) != 1 {
		t.Fatalf("got %d stages, want 1", len(stages))
	}
}

func TestNormalizeStages_SharedInitialFinalInMultiStageSet(t *testing.T) {
	candidates := threeStages()
	candidates[0].IsInitial = false
	candidates[2].IsFinal = false
	candidates[1].IsInitial = true
	candidates[1].IsFinal = true

	_, err := domain.NormalizeStages(candidates)
	var cfgErr *domain.InvalidStageConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidStageConfigurationError, got %v", err)
	}
}

func TestNormalizeStages_DuplicateStageID(t *testing.T) {
	candidates := threeStages()
	candidates[1].ID = "s-1"

	_, err := domain.NormalizeStages(candidates)
	var cfgErr *domain.InvalidStageConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidStageConfigurationError, got %v", err)
	}
}

func TestNormalizeStages_SelectWithoutOptions(t *testing.T) {
	candidates := threeStages()
	candidates[0].Fields = []domain.FieldDefinition{
		{ID: "f-1", Name: "severidad", Type: domain.FieldSelect},
	}

	_, err := domain.NormalizeStages(candidates)
	var cfgErr *domain.InvalidStageConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidStageConfigurationError, got %v", err)
	}
}

func TestProgressAt_Formula(t *testing.T) {
	def := domain.NewProcessDefinition("p-1", "org-1", "QM-01", "test")
	def.Stages = threeStages()

	cases := []struct {
		stageID string
		want    int
	}{
		{"s-1", 0},
		{"s-2", 50},
		{"s-3", 100},
	}
	for _, tc := range cases {
		if got := def.ProgressAt(tc.stageID); got != tc.want {
			t.Errorf("ProgressAt(%q) = %d, want %d", tc.stageID, got, tc.want)
		}
	}
}

func TestProgressAt_FinalStageForced100(t *testing.T) {
	// The final stage sits in the middle by order; progress must still
	// be forced to 100 when a record reaches it.
	def := domain.NewProcessDefinition("p-1", "org-1", "QM-01", "test")
	def.Stages = []domain.Stage{
		{ID: "a", Order: 0, IsInitial: true},
		{ID: "b", Order: 1, IsFinal: true},
		{ID: "c", Order: 2},
	}

	if got := def.ProgressAt("b"); got != 100 {
		t.Errorf("ProgressAt(final) = %d, want 100", got)
	}
	if got := def.ProgressAt("c"); got != 100 {
		t.Errorf("ProgressAt(last index) = %d, want 100", got)
	}
}

func TestProgressAt_SingleStage(t *testing.T) {
	def := domain.NewProcessDefinition("p-1", "org-1", "QM-01", "test")
	def.Stages = []domain.Stage{{ID: "only", IsInitial: true, IsFinal: true}}

	if got := def.ProgressAt("only"); got != 100 {
		t.Errorf("ProgressAt(only) = %d, want 100", got)
	}
}

func TestStageLookups(t *testing.T) {
	def := domain.NewProcessDefinition("p-1", "org-1", "QM-01", "test")
	def.Stages = threeStages()

	if _, ok := def.StageByID("s-2"); !ok {
		t.Error("StageByID(s-2) not found")
	}
	if _, ok := def.StageByID("nope"); ok {
		t.Error("StageByID(nope) should not be found")
	}

	initial, ok := def.InitialStage()
	if !ok || initial.ID != "s-1" {
		t.Errorf("InitialStage = %q, want s-1", initial.ID)
	}
	final, ok := def.FinalStage()
	if !ok || final.ID != "s-3" {
		t.Errorf("FinalStage = %q, want s-3", final.ID)
	}
	if idx := def.StageIndex("s-2"); idx != 1 {
		t.Errorf("StageIndex(s-2) = %d, want 1", idx)
	}
	if idx := def.StageIndex("nope"); idx != -1 {
		t.Errorf("StageIndex(nope) = %d, want -1", idx)
	}
}

func TestNewProcessRecord(t *testing.T) {
	stage := domain.Stage{ID: "s-1", Name: "iniciado", IsInitial: true}
	rec := domain.NewProcessRecord("r-1", "p-1", "No conformidad 42", stage, 0, nil, "user-7", "created")

	if rec.CurrentStageID != "s-1" {
		t.Errorf("CurrentStageID = %q, want s-1", rec.CurrentStageID)
	}
	if rec.Version != 1 {
		t.Errorf("Version = %d, want 1", rec.Version)
	}
	if rec.Lifecycle != domain.LifecycleActive {
		t.Errorf("Lifecycle = %q, want active", rec.Lifecycle)
	}
	if len(rec.StateHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(rec.StateHistory))
	}
	entry := rec.StateHistory[0]
	if entry.StageID != "s-1" || entry.ChangedBy != "user-7" || entry.Comment != "created" {
		t.Errorf("unexpected first history entry: %+v", entry)
	}
	if rec.CustomData == nil {
		t.Error("CustomData should be initialized")
	}
}

func TestAppendHistory(t *testing.T) {
	stage := domain.Stage{ID: "s-1", IsInitial: true}
	rec := domain.NewProcessRecord("r-1", "p-1", "t", stage, 0, nil, "u", "created")

	rec.AppendHistory("s-2", "u2", "moved")

	if len(rec.StateHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(rec.StateHistory))
	}
	last := rec.StateHistory[1]
	if last.Seq != 0 {
		t.Errorf("new entry Seq = %d, want 0 (unpersisted)", last.Seq)
	}
	if last.StageID != "s-2" || last.ChangedBy != "u2" {
		t.Errorf("unexpected entry: %+v", last)
	}
	if rec.LastMovedAt() != last.ChangedAt {
		t.Error("LastMovedAt should match the newest entry")
	}
}
