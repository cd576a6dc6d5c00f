package jobs

import (
	"context"
	"fmt"

	"github.com/geocoder89/workerhub/internal/actorctx"
	"github.com/geocoder89/workerhub/internal/domain/job"
	"github.com/geocoder89/workerhub/internal/notifications"
)

type Enqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

// OutboxSender satisfies notifications.Sender by queueing a send_email job. The worker
// process delivers it with retries.
type OutboxSender struct {
	jobs        Enqueuer
	maxAttempts int
}

func NewOutboxSender(jobs Enqueuer, maxAttempts int) *OutboxSender {
	return &OutboxSender{jobs: jobs, maxAttempts: maxAttempts}
}

func (s *OutboxSender) Send(ctx context.Context, msg notifications.Message) error {
	payload := SendEmailPayload{Message: msg}
	if rid, ok := actorctx.RequestIDFrom(ctx); ok {
		payload.RequestID = rid
	}

	if err := ValidatePayload(JobSendEmail, payload); err != nil {
		return err
	}

	b, err := EncodePayload(JobSendEmail, payload)
	if err != nil {
		return err
	}

	req := job.CreateRequest{
		Type:        string(JobSendEmail),
		Payload:     b,
		MaxAttempts: s.maxAttempts,
		Priority:    JobSendEmail.Priority(),
	}
	if uid, ok := actorctx.UserIDFrom(ctx); ok {
		req.UserID = &uid
	}

	if _, err := s.jobs.Create(ctx, req); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}

	return nil
}
