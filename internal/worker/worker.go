package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/pkg/mailer"
	"github.com/ecohaven/backend/pkg/queue"
)

// JobQueue is the job source consumed by EmailProcessor.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// DeliveryLog records email delivery outcomes.
type DeliveryLog interface {
	Record(ctx context.Context, id uuid.UUID, emailType, reference, recipient, subject string) error
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// EmailProcessor delivers queued email jobs and logs each outcome.
type EmailProcessor struct {
	queue   JobQueue
	sender  mailer.Sender
	logs    DeliveryLog
	backoff time.Duration
	logger  *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(q JobQueue, sender mailer.Sender, logs DeliveryLog, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{queue: q, sender: sender, logs: logs, backoff: queue.RetryBackoff, logger: logger}
}

// Process delivers one email job. The job id doubles as the email log id.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	logID, err := uuid.Parse(job.ID)
	if err != nil {
		logID = uuid.New()
	}
	if err := p.logs.Record(ctx, logID, payload.EmailType, payload.Reference, payload.RecipientEmail, payload.Subject); err != nil {
		p.logger.Warn("record email log failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	if err := p.sender.Send(ctx, payload.RecipientEmail, payload.Subject, payload.BodyHTML); err != nil {
		if mErr := p.logs.MarkFailed(ctx, logID, err.Error()); mErr != nil {
			p.logger.Warn("mark email failed failed", zap.String("job_id", job.ID), zap.Error(mErr))
		}
		return err
	}
	if err := p.logs.MarkSent(ctx, logID); err != nil {
		p.logger.Warn("mark email sent failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	p.logger.Info("email delivered",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("reference", payload.Reference),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
