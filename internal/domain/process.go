package domain

import (
	"math"
	"sort"
	"time"
)

// Lifecycle represents the soft-delete state shared by process
// definitions and process records. Nothing is ever hard-deleted.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleArchived Lifecycle = "archived"
)

// FieldType enumerates the value kinds a stage field can declare.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldSelect, FieldCheckbox, FieldFile:
		return true
	}
	return false
}

// FieldDefinition describes one custom field declared by a stage.
// Options is meaningful only when Type is FieldSelect.
type FieldDefinition struct {
	ID       string
	Name     string
	Type     FieldType
	Required bool
	Options  []string
}

// Stage is one named step in a process's workflow. A stage is owned
// exclusively by its ProcessDefinition and carries its own field schema.
type Stage struct {
	ID        string
	Name      string
	Color     string
	Order     int
	IsInitial bool
	IsFinal   bool
	Fields    []FieldDefinition
}

// ProcessDefinition is the template describing a workflow: an ordered
// stage set plus the flag gating record creation. Stages are mutated
// only through full replacement; each replacement bumps StageRevision.
type ProcessDefinition struct {
	ID            string
	OrgID         string
	Code          string
	Name          string
	Stages        []Stage
	AllowsRecords bool
	Lifecycle     Lifecycle
	StageRevision int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewProcessDefinition creates a definition with no stages. Records
// cannot be created until stages are defined and the flag is enabled.
func NewProcessDefinition(id, orgID, code, name string) ProcessDefinition {
	now := time.Now().UTC()
	return ProcessDefinition{
		ID:        id,
		OrgID:     orgID,
		Code:      code,
		Name:      name,
		Lifecycle: LifecycleActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StageByID returns the stage with the given id, if it belongs to this
// definition.
func (d ProcessDefinition) StageByID(id string) (Stage, bool) {
	for _, s := range d.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// InitialStage returns the stage marked IsInitial.
func (d ProcessDefinition) InitialStage() (Stage, bool) {
	for _, s := range d.Stages {
		if s.IsInitial {
			return s, true
		}
	}
	return Stage{}, false
}

// FinalStage returns the stage marked IsFinal.
func (d ProcessDefinition) FinalStage() (Stage, bool) {
	for _, s := range d.Stages {
		if s.IsFinal {
			return s, true
		}
	}
	return Stage{}, false
}

// StageIndex returns the position of the stage in the ordered stage
// set, or -1 if the id does not belong to this definition.
func (d ProcessDefinition) StageIndex(id string) int {
	for i, s := range d.Stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// ProgressAt computes the progress percentage of a record sitting on
// the given stage: round(i/(N-1)*100) over the ordered stage set,
// clamped to 0..100, forced to 100 on the final stage. A single-stage
// process is always at 100.
func (d ProcessDefinition) ProgressAt(stageID string) int {
	stage, ok := d.StageByID(stageID)
	if !ok {
		return 0
	}
	if stage.IsFinal || len(d.Stages) == 1 {
		return 100
	}
	i := d.StageIndex(stageID)
	pct := int(math.Round(float64(i) / float64(len(d.Stages)-1) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// NormalizeStages validates a candidate stage set and returns it in
// canonical order (ascending Order, ties broken by input position).
// Every stage must already carry an id; ids must be unique within the
// set. Exactly one stage must be initial and exactly one final, which
// may be the same stage only when the set has a single stage.
func NormalizeStages(candidates []Stage) ([]Stage, error) {
	if len(candidates) == 0 {
		return nil, &InvalidStageConfigurationError{Reason: "stage set is empty"}
	}

	initial, final := 0, 0
	var initialID, finalID string
	seen := make(map[string]bool, len(candidates))
	for _, s := range candidates {
		if s.ID == "" {
			return nil, &InvalidStageConfigurationError{Reason: "stage without id"}
		}
		if seen[s.ID] {
			return nil, &InvalidStageConfigurationError{Reason: "duplicate stage id " + s.ID}
		}
		seen[s.ID] = true
		if s.IsInitial {
			initial++
			initialID = s.ID
		}
		if s.IsFinal {
			final++
			finalID = s.ID
		}
		if err := validateFieldDefs(s); err != nil {
			return nil, err
		}
	}
	if initial != 1 {
		return nil, &InvalidStageConfigurationError{Reason: "exactly one stage must be initial"}
	}
	if final != 1 {
		return nil, &InvalidStageConfigurationError{Reason: "exactly one stage must be final"}
	}
	if len(candidates) > 1 && initialID == finalID {
		return nil, &InvalidStageConfigurationError{Reason: "stage " + initialID + " cannot be both initial and final"}
	}

	out := make([]Stage, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func validateFieldDefs(s Stage) error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.ID == "" {
			return &InvalidStageConfigurationError{Reason: "field without id in stage " + s.ID}
		}
		if seen[f.ID] {
			return &InvalidStageConfigurationError{Reason: "duplicate field id " + f.ID + " in stage " + s.ID}
		}
		seen[f.ID] = true
		if !f.Type.Valid() {
			return &InvalidStageConfigurationError{Reason: "field " + f.ID + " has unknown type " + string(f.Type)}
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return &InvalidStageConfigurationError{Reason: "select field " + f.ID + " declares no options"}
		}
		if f.Type != FieldSelect && len(f.Options) > 0 {
			return &InvalidStageConfigurationError{Reason: "field " + f.ID + " declares options but is not a select"}
		}
	}
	return nil
}
