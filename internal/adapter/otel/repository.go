package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sergiocharata1977/9001app-v6-sub009/internal/domain"
)

const tracerName = "github.com/Sergiocharata1977/9001app-v6-sub009/internal/adapter/otel"

// TracingProcessRepository wraps a domain.ProcessRepository with
// OpenTelemetry tracing. Each method creates a span with semantic
// attributes and records errors.
type TracingProcessRepository struct {
	next   domain.ProcessRepository
	tracer trace.Tracer
}

// Compile-time check: TracingProcessRepository implements domain.ProcessRepository.
var _ domain.ProcessRepository = (*TracingProcessRepository)(nil)

// NewTracingProcessRepository creates a tracing decorator around the
// given repository.
func NewTracingProcessRepository(next domain.ProcessRepository) *TracingProcessRepository {
	return &TracingProcessRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingProcessRepository) Create(ctx context.Context, def domain.ProcessDefinition) error {
	ctx, span := r.tracer.Start(ctx, "ProcessRepository.Create",
		trace.WithAttributes(
			attribute.String("process.id", def.ID),
			attribute.String("process.org_id", def.OrgID),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, def)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingProcessRepository) GetByID(ctx context.Context, id string) (domain.ProcessDefinition, error) {
	ctx, span := r.tracer.Start(ctx, "ProcessRepository.GetByID",
		trace.WithAttributes(attribute.String("process.id", id)),
	)
	defer span.End()

	def, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return def, err
}

func (r *TracingProcessRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.ProcessDefinition, error) {
	ctx, span := r.tracer.Start(ctx, "ProcessRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.OrgID != "" {
		span.SetAttributes(attribute.String("filter.org_id", filter.OrgID))
	}
	if filter.Lifecycle != nil {
		span.SetAttributes(attribute.String("filter.lifecycle", string(*filter.Lifecycle)))
	}

	defs, err := r.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(defs)))
	}
	return defs, err
}

func (r *TracingProcessRepository) Update(ctx context.Context, def domain.ProcessDefinition) error {
	ctx, span := r.tracer.Start(ctx, "ProcessRepository.Update",
		trace.WithAttributes(
			attribute.String("process.id", def.ID),
			attribute.String("process.lifecycle", string(def.Lifecycle)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, def)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingProcessRepository) SaveStages(ctx context.Context, def domain.ProcessDefinition) error {
	ctx, span := r.tracer.Start(ctx, "ProcessRepository.SaveStages",
		trace.WithAttributes(
			attribute.String("process.id", def.ID),
			attribute.Int("process.stage_revision", def.StageRevision),
			attribute.Int("stages.count", len(def.Stages)),
		),
	)
	defer span.End()

	err := r.next.SaveStages(ctx, def)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// TracingRecordRepository wraps a domain.RecordRepository with
// OpenTelemetry tracing.
type TracingRecordRepository struct {
	next   domain.RecordRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRecordRepository implements domain.RecordRepository.
var _ domain.RecordRepository = (*TracingRecordRepository)(nil)

// NewTracingRecordRepository creates a tracing decorator around the
// given repository.
func NewTracingRecordRepository(next domain.RecordRepository) *TracingRecordRepository {
	return &TracingRecordRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRecordRepository) Create(ctx context.Context, rec domain.ProcessRecord) error {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Create",
		trace.WithAttributes(
			attribute.String("record.id", rec.ID),
			attribute.String("record.process_id", rec.ProcessID),
			attribute.String("record.stage_id", rec.CurrentStageID),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRecordRepository) GetByID(ctx context.Context, id string) (domain.ProcessRecord, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.GetByID",
		trace.WithAttributes(attribute.String("record.id", id)),
	)
	defer span.End()

	rec, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rec, err
}

func (r *TracingRecordRepository) ListByProcess(ctx context.Context, processID string) ([]domain.ProcessRecord, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.ListByProcess",
		trace.WithAttributes(attribute.String("process.id", processID)),
	)
	defer span.End()

	records, err := r.next.ListByProcess(ctx, processID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(records)))
	}
	return records, err
}

func (r *TracingRecordRepository) Update(ctx context.Context, rec domain.ProcessRecord) error {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Update",
		trace.WithAttributes(
			attribute.String("record.id", rec.ID),
			attribute.String("record.stage_id", rec.CurrentStageID),
			attribute.Int64("record.version", rec.Version),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRecordRepository) StageRefCounts(ctx context.Context, processID string) (map[string]int, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.StageRefCounts",
		trace.WithAttributes(attribute.String("process.id", processID)),
	)
	defer span.End()

	counts, err := r.next.StageRefCounts(ctx, processID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return counts, err
}
