package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"hireflow-backend/internal/config"
	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/metrics"
	"hireflow-backend/internal/repository"

	"github.com/google/uuid"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room.
var ErrQueueFull = errors.New("notification queue is full")

// Job is one message addressed to one recipient.
type Job struct {
	ID        string           `json:"id"`
	Message   domain.Message   `json:"message"`
	Recipient domain.Recipient `json:"recipient"`
	Retries   int              `json:"retries"`
	InAppDone bool             `json:"in_app_done"`
	CreatedAt time.Time        `json:"created_at"`
}

// Dispatcher delivers workflow notices after commit. Each recipient becomes
// its own job so a failing mailbox does not hold back the others. Member
// recipients get an in-app row; recipients with an address get an email.
type Dispatcher struct {
	sender     Sender
	notes      repository.NotificationRepository
	journal    Journal
	jobs       chan Job
	workers    int
	maxRetries int
	backoff    time.Duration
	wg         sync.WaitGroup
}

// NewDispatcher builds a dispatcher. journal may be nil.
func NewDispatcher(sender Sender, notes repository.NotificationRepository, journal Journal, cfg config.NotificationConfig) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		sender:     sender,
		notes:      notes,
		journal:    journal,
		jobs:       make(chan Job, cfg.QueueSize),
		workers:    workers,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff(),
	}
}

// Start replays journaled jobs and launches the workers. Workers stop when
// ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.journal != nil {
		pending, err := d.journal.Pending(ctx)
		if err != nil {
			logger.Error("Failed to replay notification journal", "error", err)
		}
		for _, job := range pending {
			if !d.offer(job) {
				logger.Warn("Notification queue full during replay", "jobID", job.ID)
				break
			}
		}
		if len(pending) > 0 {
			logger.Info("Replayed pending notifications", "count", len(pending))
		}
	}

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue splits msg into one job per recipient. It never blocks.
func (d *Dispatcher) Enqueue(ctx context.Context, msg domain.Message) error {
	if !Known(msg.Template) {
		return fmt.Errorf("unknown notification template %q", msg.Template)
	}

	for _, to := range msg.Recipients {
		if to.UserID == 0 && to.Email == "" {
			continue
		}
		job := Job{
			ID:        uuid.NewString(),
			Message:   msg,
			Recipient: to,
			CreatedAt: time.Now(),
		}
		if d.journal != nil {
			if err := d.journal.Save(ctx, job); err != nil {
				logger.WarnContext(ctx, "Failed to journal notification", "jobID", job.ID, "error", err)
			}
		}
		if !d.offer(job) {
			metrics.RecordNotification(msg.Template, "dropped")
			d.forget(ctx, job.ID)
			return ErrQueueFull
		}
	}
	return nil
}

func (d *Dispatcher) offer(job Job) bool {
	select {
	case d.jobs <- job:
		metrics.NotificationQueueDepth.Set(float64(len(d.jobs)))
		return true
	default:
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	logger.Debug("Notification worker started", "worker", id)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Notification worker stopping", "worker", id)
			return
		case job := <-d.jobs:
			metrics.NotificationQueueDepth.Set(float64(len(d.jobs)))
			d.process(ctx, job)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	msg := job.Message
	subject, body, err := Render(msg, job.Recipient)
	if err != nil {
		logger.Error("Failed to render notification", "jobID", job.ID, "template", msg.Template, "error", err)
		metrics.RecordNotification(msg.Template, "failed")
		d.forget(ctx, job.ID)
		return
	}

	if job.Recipient.UserID != 0 && !job.InAppDone {
		note := &domain.Notification{
			UserID:   job.Recipient.UserID,
			OrgID:    msg.OrganizationID,
			Template: msg.Template,
			Title:    subject,
			Message:  body,
			Attributes: map[string]string{
				"entity_type": msg.EntityType,
				"entity_id":   strconv.Itoa(int(msg.EntityID)),
			},
		}
		if err := d.notes.Create(ctx, note); err != nil {
			d.retry(ctx, job, fmt.Errorf("failed to store in-app notification: %w", err))
			return
		}
		job.InAppDone = true
	}

	if job.Recipient.Email != "" {
		if err := d.sender.Send(ctx, job.Recipient.Email, job.Recipient.Name, subject, body); err != nil {
			d.retry(ctx, job, err)
			return
		}
	}

	metrics.RecordNotification(msg.Template, "sent")
	d.forget(ctx, job.ID)
}

// retry re-queues job after a quadratic backoff until maxRetries is reached.
func (d *Dispatcher) retry(ctx context.Context, job Job, cause error) {
	if job.Retries >= d.maxRetries || ctx.Err() != nil {
		logger.Error("Notification delivery failed",
			"jobID", job.ID, "template", job.Message.Template, "retries", job.Retries, "error", cause)
		metrics.RecordNotification(job.Message.Template, "failed")
		if ctx.Err() == nil {
			d.forget(ctx, job.ID)
		}
		return
	}

	job.Retries++
	wait := d.backoff * time.Duration(job.Retries*job.Retries)
	logger.Warn("Retrying notification",
		"jobID", job.ID, "template", job.Message.Template, "attempt", job.Retries, "maxRetries", d.maxRetries, "in", wait, "error", cause)
	metrics.RecordNotification(job.Message.Template, "retried")
	if d.journal != nil {
		if err := d.journal.Save(ctx, job); err != nil {
			logger.Warn("Failed to update notification journal", "jobID", job.ID, "error", err)
		}
	}

	time.AfterFunc(wait, func() {
		if ctx.Err() != nil {
			return
		}
		if !d.offer(job) {
			logger.Warn("Notification queue full, retry left in journal", "jobID", job.ID)
		}
	})
}

func (d *Dispatcher) forget(ctx context.Context, jobID string) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Remove(ctx, jobID); err != nil {
		logger.Warn("Failed to clear notification journal entry", "jobID", jobID, "error", err)
	}
}
