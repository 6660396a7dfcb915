package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/app"
	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

// FieldResponse is the API representation of a stage field definition.
type FieldResponse struct {
	ID       string   `json:"id" doc:"Field identifier, unique within its stage"`
	Name     string   `json:"name" doc:"Display name"`
	Type     string   `json:"type" doc:"Field type" enum:"text,number,date,select,checkbox,file"`
	Required bool     `json:"required" doc:"Whether a value is required on entry"`
	Options  []string `json:"options,omitempty" doc:"Allowed values (select fields only)"`
}

// StageResponse is the API representation of a workflow stage.
type StageResponse struct {
	ID        string          `json:"id" doc:"Stage identifier, unique within its process"`
	Name      string          `json:"name" doc:"Display name"`
	Color     string          `json:"color,omitempty" doc:"Board column color"`
	Order     int             `json:"order" doc:"Position in the workflow"`
	IsInitial bool            `json:"is_initial" doc:"Entry stage for new records"`
	IsFinal   bool            `json:"is_final" doc:"Completion stage"`
	Fields    []FieldResponse `json:"fields,omitempty" doc:"Field schema collected on this stage"`
}

// ProcessResponse is the API representation of a process definition.
type ProcessResponse struct {
	ID            string          `json:"id" doc:"Unique identifier"`
	OrgID         string          `json:"org_id" doc:"Owning organization"`
	Code          string          `json:"code" doc:"Short process code"`
	Name          string          `json:"name" doc:"Display name"`
	Stages        []StageResponse `json:"stages" doc:"Ordered stage set"`
	AllowsRecords bool            `json:"allows_records" doc:"Whether new records may be created"`
	Lifecycle     string          `json:"lifecycle" doc:"Lifecycle state" enum:"active,archived"`
	StageRevision int             `json:"stage_revision" doc:"Bumped on every stage replacement"`
	CreatedAt     string          `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt     string          `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

// HistoryEntryResponse is one stage-change entry of a record's history.
type HistoryEntryResponse struct {
	Seq       int64  `json:"seq" doc:"Commit order, assigned by the store"`
	StageID   string `json:"stage_id" doc:"Stage entered"`
	ChangedAt string `json:"changed_at" doc:"Timestamp of the change (ISO 8601)"`
	ChangedBy string `json:"changed_by" doc:"Actor who made the change"`
	Comment   string `json:"comment,omitempty" doc:"Free-form comment"`
}

// RecordResponse is the API representation of a process record.
type RecordResponse struct {
	ID             string                 `json:"id" doc:"Unique identifier"`
	ProcessID      string                 `json:"process_id" doc:"Owning process"`
	Title          string                 `json:"title" doc:"Display title"`
	CurrentStageID string                 `json:"current_stage_id" doc:"Stage the record sits on"`
	CustomData     map[string]any         `json:"custom_data" doc:"Field values keyed by field id"`
	Progress       int                    `json:"progress" doc:"Workflow completion percentage (0-100)"`
	Lifecycle      string                 `json:"lifecycle" doc:"Lifecycle state" enum:"active,archived"`
	Version        int64                  `json:"version" doc:"Optimistic concurrency version"`
	StateHistory   []HistoryEntryResponse `json:"state_history" doc:"Append-only stage history, oldest first"`
	Warnings       []string               `json:"warnings,omitempty" doc:"Non-blocking field validation warnings from the last mutation"`
	CreatedAt      string                 `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt      string                 `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

// BoardCardResponse is the board projection of one record.
type BoardCardResponse struct {
	ID       string `json:"id" doc:"Record identifier"`
	Title    string `json:"title" doc:"Display title"`
	Progress int    `json:"progress" doc:"Workflow completion percentage"`
	MovedAt  string `json:"moved_at" doc:"When the record entered its current stage (ISO 8601)"`
}

// BoardColumnResponse is one column of the Kanban board projection.
type BoardColumnResponse struct {
	StageID   string              `json:"stage_id" doc:"Stage identifier"`
	StageName string              `json:"stage_name" doc:"Stage display name"`
	Color     string              `json:"color,omitempty" doc:"Column color"`
	Records   []BoardCardResponse `json:"records" doc:"Active records on this stage, most recently moved first"`
}

func toProcessResponse(def domain.ProcessDefinition) ProcessResponse {
	stages := make([]StageResponse, len(def.Stages))
	for i, s := range def.Stages {
		fields := make([]FieldResponse, len(s.Fields))
		for j, f := range s.Fields {
			fields[j] = FieldResponse{
				ID:       f.ID,
				Name:     f.Name,
				Type:     string(f.Type),
				Required: f.Required,
				Options:  f.Options,
			}
		}
		stages[i] = StageResponse{
			ID:        s.ID,
			Name:      s.Name,
			Color:     s.Color,
			Order:     s.Order,
			IsInitial: s.IsInitial,
			IsFinal:   s.IsFinal,
			Fields:    fields,
		}
	}
	return ProcessResponse{
		ID:            def.ID,
		OrgID:         def.OrgID,
		Code:          def.Code,
		Name:          def.Name,
		Stages:        stages,
		AllowsRecords: def.AllowsRecords,
		Lifecycle:     string(def.Lifecycle),
		StageRevision: def.StageRevision,
		CreatedAt:     def.CreatedAt.Format(timeLayout),
		UpdatedAt:     def.UpdatedAt.Format(timeLayout),
	}
}

func toRecordResponse(rec domain.ProcessRecord, warnings []domain.FieldViolation) RecordResponse {
	history := make([]HistoryEntryResponse, len(rec.StateHistory))
	for i, h := range rec.StateHistory {
		history[i] = HistoryEntryResponse{
			Seq:       h.Seq,
			StageID:   h.StageID,
			ChangedAt: h.ChangedAt.Format(timeLayout),
			ChangedBy: h.ChangedBy,
			Comment:   h.Comment,
		}
	}
	var warns []string
	for _, w := range warnings {
		warns = append(warns, w.String())
	}
	return RecordResponse{
		ID:             rec.ID,
		ProcessID:      rec.ProcessID,
		Title:          rec.Title,
		CurrentStageID: rec.CurrentStageID,
		CustomData:     rec.CustomData,
		Progress:       rec.Progress,
		Lifecycle:      string(rec.Lifecycle),
		Version:        rec.Version,
		StateHistory:   history,
		Warnings:       warns,
		CreatedAt:      rec.CreatedAt.Format(timeLayout),
		UpdatedAt:      rec.UpdatedAt.Format(timeLayout),
	}
}

// FieldInput is the request body shape of a stage field definition.
type FieldInput struct {
	ID       string   `json:"id,omitempty" doc:"Field identifier; generated when empty"`
	Name     string   `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	Type     string   `json:"type" enum:"text,number,date,select,checkbox,file" doc:"Field type"`
	Required bool     `json:"required,omitempty" doc:"Whether a value is required on entry"`
	Options  []string `json:"options,omitempty" doc:"Allowed values (select fields only)"`
}

// StageInput is the request body shape of a workflow stage.
type StageInput struct {
	ID        string       `json:"id,omitempty" doc:"Stage identifier; generated when empty, stable when supplied"`
	Name      string       `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	Color     string       `json:"color,omitempty" doc:"Board column color"`
	Order     int          `json:"order" doc:"Position in the workflow"`
	IsInitial bool         `json:"is_initial,omitempty" doc:"Entry stage for new records"`
	IsFinal   bool         `json:"is_final,omitempty" doc:"Completion stage"`
	Fields    []FieldInput `json:"fields,omitempty" doc:"Field schema collected on this stage"`
}

func toDomainStages(inputs []StageInput) []domain.Stage {
	stages := make([]domain.Stage, len(inputs))
	for i, in := range inputs {
		fields := make([]domain.FieldDefinition, len(in.Fields))
		for j, f := range in.Fields {
			fields[j] = domain.FieldDefinition{
				ID:       f.ID,
				Name:     f.Name,
				Type:     domain.FieldType(f.Type),
				Required: f.Required,
				Options:  f.Options,
			}
		}
		stages[i] = domain.Stage{
			ID:        in.ID,
			Name:      in.Name,
			Color:     in.Color,
			Order:     in.Order,
			IsInitial: in.IsInitial,
			IsFinal:   in.IsFinal,
			Fields:    fields,
		}
	}
	return stages
}

// --- Create Process ---

type CreateProcessInput struct {
	Body struct {
		OrgID string `json:"org_id" minLength:"1" maxLength:"100" doc:"Owning organization"`
		Code  string `json:"code" minLength:"1" maxLength:"50" doc:"Short process code"`
		Name  string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	}
}

type CreateProcessOutput struct {
	Body ProcessResponse
}

// --- Get Process ---

type GetProcessInput struct {
	ID string `path:"id" doc:"Process ID"`
}

type GetProcessOutput struct {
	Body ProcessResponse
}

// --- List Processes ---

type ListProcessesInput struct {
	OrgID     string `query:"org_id" required:"false" doc:"Filter by organization"`
	Lifecycle string `query:"lifecycle" required:"false" enum:"active,archived" doc:"Filter by lifecycle state"`
	Limit     int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset    int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListProcessesOutput struct {
	Body []ProcessResponse
}

// --- Define Stages ---

type DefineStagesInput struct {
	ID        string `path:"id" doc:"Process ID"`
	Force     bool   `query:"force" required:"false" doc:"Migrate records off removed stages instead of rejecting"`
	MigrateTo string `query:"migrate_to" required:"false" doc:"Target stage for force-migrated records"`
	Actor     string `header:"X-Actor" required:"false" doc:"Acting user"`
	Body      struct {
		Stages []StageInput `json:"stages" minItems:"1" doc:"Full replacement stage set"`
	}
}

type DefineStagesOutput struct {
	Body ProcessResponse
}

// --- Toggle Records Allowed ---

type ToggleRecordsAllowedInput struct {
	ID   string `path:"id" doc:"Process ID"`
	Body struct {
		Enabled bool `json:"enabled" doc:"Whether new records may be created"`
	}
}

type ToggleRecordsAllowedOutput struct {
	Body ProcessResponse
}

// --- Archive Process ---

type ArchiveProcessInput struct {
	ID    string `path:"id" doc:"Process ID"`
	Actor string `header:"X-Actor" required:"false" doc:"Acting user"`
}

type ArchiveProcessOutput struct {
	Body ProcessResponse
}

// --- Create Record ---

type CreateRecordInput struct {
	ID    string `path:"id" doc:"Process ID"`
	Actor string `header:"X-Actor" required:"false" doc:"Acting user"`
	Body  struct {
		Title      string         `json:"title" minLength:"1" maxLength:"255" doc:"Display title"`
		CustomData map[string]any `json:"custom_data,omitempty" doc:"Initial field values keyed by field id"`
	}
}

type CreateRecordOutput struct {
	Body RecordResponse
}

// --- Get Record ---

type GetRecordInput struct {
	ID string `path:"id" doc:"Record ID"`
}

type GetRecordOutput struct {
	Body RecordResponse
}

// --- List Records ---

type ListRecordsInput struct {
	ID string `path:"id" doc:"Process ID"`
}

type ListRecordsOutput struct {
	Body []RecordResponse
}

// --- Transition Record ---

type TransitionRecordInput struct {
	ID    string `path:"id" doc:"Record ID"`
	Actor string `header:"X-Actor" required:"false" doc:"Acting user"`
	Body  struct {
		TargetStageID string `json:"target_stage_id" minLength:"1" doc:"Stage to move the record to"`
		Comment       string `json:"comment,omitempty" maxLength:"1000" doc:"Free-form comment for the history entry"`
	}
}

type TransitionRecordOutput struct {
	Body RecordResponse
}

// --- Update Record Data ---

type UpdateRecordDataInput struct {
	ID    string `path:"id" doc:"Record ID"`
	Actor string `header:"X-Actor" required:"false" doc:"Acting user"`
	Body  struct {
		CustomData map[string]any `json:"custom_data" doc:"Field values to merge into the record"`
	}
}

type UpdateRecordDataOutput struct {
	Body RecordResponse
}

// --- Archive Record ---

type ArchiveRecordInput struct {
	ID    string `path:"id" doc:"Record ID"`
	Actor string `header:"X-Actor" required:"false" doc:"Acting user"`
}

type ArchiveRecordOutput struct {
	Body RecordResponse
}

// --- Board ---

type GetBoardInput struct {
	ID string `path:"id" doc:"Process ID"`
}

type GetBoardOutput struct {
	Body []BoardColumnResponse
}

// Register adds all workflow API routes to the Huma API.
func Register(api huma.API, config *app.ProcessConfigService, records *app.RecordService, board *app.BoardService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-process",
		Method:      http.MethodPost,
		Path:        "/api/v1/processes",
		Summary:     "Create a new process definition",
		Tags:        []string{"Processes"},
	}, func(ctx context.Context, input *CreateProcessInput) (*CreateProcessOutput, error) {
		def, err := config.CreateProcess(ctx, input.Body.OrgID, input.Body.Code, input.Body.Name)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateProcessOutput{Body: toProcessResponse(def)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-process",
		Method:      http.MethodGet,
		Path:        "/api/v1/processes/{id}",
		Summary:     "Get a process definition by ID",
		Tags:        []string{"Processes"},
	}, func(ctx context.Context, input *GetProcessInput) (*GetProcessOutput, error) {
		def, err := config.GetProcess(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetProcessOutput{Body: toProcessResponse(def)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-processes",
		Method:      http.MethodGet,
		Path:        "/api/v1/processes",
		Summary:     "List process definitions",
		Tags:        []string{"Processes"},
	}, func(ctx context.Context, input *ListProcessesInput) (*ListProcessesOutput, error) {
		filter := domain.ListFilter{
			OrgID:  input.OrgID,
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Lifecycle != "" {
			l := domain.Lifecycle(input.Lifecycle)
			filter.Lifecycle = &l
		}

		defs, err := config.ListProcesses(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]ProcessResponse, len(defs))
		for i, def := range defs {
			resp[i] = toProcessResponse(def)
		}
		return &ListProcessesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "define-stages",
		Method:      http.MethodPut,
		Path:        "/api/v1/processes/{id}/stages",
		Summary:     "Replace a process's full stage set",
		Tags:        []string{"Processes"},
	}, func(ctx context.Context, input *DefineStagesInput) (*DefineStagesOutput, error) {
		opts := app.DefineStagesOptions{
			Force:     input.Force,
			MigrateTo: input.MigrateTo,
		}
		def, err := config.DefineStages(ctx, input.ID, toDomainStages(input.Body.Stages), opts, input.Actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DefineStagesOutput{Body: toProcessResponse(def)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-records-allowed",
		Method:      http.MethodPost,
		Path:        "/api/v1/processes/{id}/records-allowed",
		Summary:     "Enable or disable record creation for a process",
		Tags:        []string{"Processes"},
	}, func(ctx context.Context, input *ToggleRecordsAllowedInput) (*ToggleRecordsAllowedOutput, error) {
		def, err := config.ToggleAllowsRecords(ctx, input.ID, input.Body.Enabled)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ToggleRecordsAllowedOutput{Body: toProcessResponse(def)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-process",
		Method:      http.MethodDelete,
		Path:        "/api/v1/processes/{id}",
		Summary:     "Archive a process definition",
		Tags:        []string{"Processes"},
	}, func(ctx context.Context, input *ArchiveProcessInput) (*ArchiveProcessOutput, error) {
		def, err := config.ArchiveProcess(ctx, input.ID, input.Actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ArchiveProcessOutput{Body: toProcessResponse(def)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-record",
		Method:      http.MethodPost,
		Path:        "/api/v1/processes/{id}/records",
		Summary:     "Create a record on a process's initial stage",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *CreateRecordInput) (*CreateRecordOutput, error) {
		rec, warnings, err := records.Create(ctx, input.ID, input.Body.Title, input.Body.CustomData, input.Actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateRecordOutput{Body: toRecordResponse(rec, warnings)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/api/v1/processes/{id}/records",
		Summary:     "List a process's records",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
		recs, err := records.ListByProcess(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]RecordResponse, len(recs))
		for i, rec := range recs {
			resp[i] = toRecordResponse(rec, nil)
		}
		return &ListRecordsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}",
		Summary:     "Get a record by ID",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *GetRecordInput) (*GetRecordOutput, error) {
		rec, err := records.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetRecordOutput{Body: toRecordResponse(rec, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-record",
		Method:      http.MethodPost,
		Path:        "/api/v1/records/{id}/transitions",
		Summary:     "Move a record to another stage",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *TransitionRecordInput) (*TransitionRecordOutput, error) {
		rec, warnings, err := records.Transition(ctx, input.ID, input.Body.TargetStageID, input.Actor, input.Body.Comment)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionRecordOutput{Body: toRecordResponse(rec, warnings)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-record-data",
		Method:      http.MethodPatch,
		Path:        "/api/v1/records/{id}/data",
		Summary:     "Merge field values into a record",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *UpdateRecordDataInput) (*UpdateRecordDataOutput, error) {
		rec, err := records.UpdateCustomData(ctx, input.ID, input.Body.CustomData, input.Actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &UpdateRecordDataOutput{Body: toRecordResponse(rec, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-record",
		Method:      http.MethodDelete,
		Path:        "/api/v1/records/{id}",
		Summary:     "Archive a record",
		Tags:        []string{"Records"},
	}, func(ctx context.Context, input *ArchiveRecordInput) (*ArchiveRecordOutput, error) {
		rec, err := records.Archive(ctx, input.ID, input.Actor)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ArchiveRecordOutput{Body: toRecordResponse(rec, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/api/v1/processes/{id}/board",
		Summary:     "Get the Kanban board projection of a process",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		columns, err := board.Project(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]BoardColumnResponse, len(columns))
		for i, col := range columns {
			cards := make([]BoardCardResponse, len(col.Records))
			for j, card := range col.Records {
				cards[j] = BoardCardResponse{
					ID:       card.ID,
					Title:    card.Title,
					Progress: card.Progress,
					MovedAt:  card.MovedAt.Format(timeLayout),
				}
			}
			resp[i] = BoardColumnResponse{
				StageID:   col.StageID,
				StageName: col.StageName,
				Color:     col.Color,
				Records:   cards,
			}
		}
		return &GetBoardOutput{Body: resp}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrProcessNotFound):
		return huma.Error404NotFound("process not found")
	case errors.Is(err, domain.ErrRecordNotFound):
		return huma.Error404NotFound("record not found")
	case errors.Is(err, domain.ErrRecordsNotAllowed):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		return huma.Error412PreconditionFailed(err.Error())
	case errors.Is(err, domain.ErrNoInitialStage):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var inUseErr *domain.StageInUseConflictError
	if errors.As(err, &inUseErr) {
		return huma.Error409Conflict(inUseErr.Error())
	}

	var cfgErr *domain.InvalidStageConfigurationError
	if errors.As(err, &cfgErr) {
		return huma.Error422UnprocessableEntity(cfgErr.Error())
	}

	var stageErr *domain.UnknownStageError
	if errors.As(err, &stageErr) {
		return huma.Error422UnprocessableEntity(stageErr.Error())
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error422UnprocessableEntity(valErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
