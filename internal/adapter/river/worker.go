package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// WorkflowEventWorker processes workflow event jobs from the River
// queue. For now it logs the event; future versions will dispatch to
// notification channels and compliance reporting.
type WorkflowEventWorker struct {
	river.WorkerDefaults[WorkflowJobArgs]
}

// Work processes a single workflow event job.
func (w *WorkflowEventWorker) Work(ctx context.Context, job *river.Job[WorkflowJobArgs]) error {
	slog.InfoContext(ctx, "processing workflow event",
		"event", job.Args.Event,
		"process_id", job.Args.ProcessID,
		"record_id", job.Args.RecordID,
		"stage_id", job.Args.StageID,
		"actor", job.Args.Actor,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
