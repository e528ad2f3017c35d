package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yshk0402/word-merger-app/internal/merge"
)

// Worker executes one merge job at a time.
type Worker struct {
	log *slog.Logger
}

func NewWorker(log *slog.Logger) *Worker {
	return &Worker{log: log}
}

// Process runs the merge for a job. A started merge runs to
// completion or failure; there is no mid-merge cancellation, only a
// check before work begins.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "sources", job.SourceCount, "output", job.OutputName)

	if ctx.Err() != nil {
		job.AddError("shutting down before merge started")
		job.SetStatus(StatusFailed, "shutdown")
		return
	}

	job.SetStatus(StatusMerging, "merging")

	blob, err := merge.Merge(job.Sources(), merge.Options{
		KeepStyles: job.KeepStyles,
		KeepImages: job.KeepImages,
		OnProgress: job.SetProgress,
	})
	if err != nil {
		log.Error("merge failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, failurePhase(err))
		return
	}

	job.SetResult(blob)
	job.SetStatus(StatusCompleted, "done")
	log.Info("merge complete", "bytes", len(blob), "result_hash", job.ResultHash)
}

// failurePhase maps a merge error to the phase it died in.
func failurePhase(err error) string {
	var merr *merge.Error
	if errors.As(err, &merr) {
		return string(merr.Stage)
	}
	return "merging"
}
