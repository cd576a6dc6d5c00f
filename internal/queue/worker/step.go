package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/workerhub/internal/actorctx"
	"github.com/geocoder89/workerhub/internal/domain/job"
	"github.com/geocoder89/workerhub/internal/jobs"
	"github.com/geocoder89/workerhub/internal/notifications"
	"github.com/geocoder89/workerhub/internal/observability"
)

// ProcessOne claims and runs at most one job. processed is false when the queue was empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("claim job: %w", err)
	}

	w.stats.Claimed()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	// a claimed job finishes even if shutdown starts; Run bounds that with ShutdownGrace
	execCtx, cancelExec := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.JobTimeout)
	defer cancelExec()

	start := time.Now()
	err = w.execute(execCtx, j)
	elapsed := time.Since(start)

	// bookkeeping gets its own deadline; the job may have used up execCtx
	bookCtx, cancelBook := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancelBook()

	if err != nil {
		w.observe(j, w.handleFailure(bookCtx, j, err), elapsed)
		return true, nil
	}

	if err := w.repo.MarkDone(bookCtx, j.ID); err != nil {
		_ = w.repo.MarkFailed(bookCtx, j.ID, "mark_done_failed: "+err.Error())
		w.observe(j, observability.OutcomeFailed, elapsed)
		return true, fmt.Errorf("mark job %s done: %w", j.ID, err)
	}

	w.observe(j, observability.OutcomeDone, elapsed)
	w.log.InfoContext(bookCtx, "job done", "job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1, "duration_ms", elapsed.Milliseconds())

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	t := jobs.JobType(j.Type)

	decoded, err := jobs.DecodePayload(t, j.Payload)
	if err != nil {
		return err
	}
	if err := jobs.ValidatePayload(t, decoded); err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.SendEmailPayload:
		if p.RequestID != "" {
			ctx = actorctx.WithRequestID(ctx, p.RequestID)
		}
		if j.UserID != nil {
			ctx = actorctx.WithUserID(ctx, *j.UserID)
		}
		if w.sender == nil {
			return errors.New("no email sender configured")
		}
		return w.sender.Send(ctx, p.Message)

	default:
		return jobs.ErrInvalidJobType
	}
}

// handleFailure reschedules transient failures with backoff and fails the rest for good.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	msg := cause.Error()

	if !retryable(cause) || j.Exhausted() {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.ErrorContext(ctx, "mark job failed", "job_id", j.ID, "err", err)
		}

		outcome := observability.OutcomeFailed
		if j.Exhausted() {
			outcome = observability.OutcomeExhausted
		}
		w.log.ErrorContext(ctx, "job failed", "job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1, "outcome", outcome, "err", msg)
		return outcome
	}

	runAt := w.now().Add(w.backoff(j.Attempts))
	if err := w.repo.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.log.ErrorContext(ctx, "reschedule job", "job_id", j.ID, "err", err)
	}

	w.log.WarnContext(ctx, "job will retry", "job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1, "run_at", runAt, "err", msg)
	return observability.OutcomeRetry
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, jobs.ErrInvalidJobType),
		errors.Is(err, jobs.ErrInvalidJobPayload),
		errors.Is(err, jobs.ErrPayloadTypeMismatch):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return notifications.IsRetryable(err)
	}
}

func (w *Worker) observe(j job.Job, outcome string, d time.Duration) {
	w.stats.Finished(outcome, d)
	if w.prom != nil {
		w.prom.ObserveJob(j.Type, outcome, d)
	}
}
