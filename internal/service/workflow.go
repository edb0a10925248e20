package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/metrics"
	"hireflow-backend/internal/repository"
)

// workflow carries what every entry point needs: one transaction per call,
// an authorization check, audit rows inside the transaction and
// notifications after commit.
type workflow struct {
	name       string
	tx         repository.Transactor
	notifier   Notifier
	authorizer Authorizer
	now        Clock
}

func newWorkflow(name string, tx repository.Transactor, notifier Notifier, authorizer Authorizer, now Clock) workflow {
	if now == nil {
		now = time.Now
	}
	return workflow{name: name, tx: tx, notifier: notifier, authorizer: authorizer, now: now}
}

// outbox collects what to do once the transaction has committed.
type outbox struct {
	messages []domain.Message
	events   []string
}

func (o *outbox) notify(msg domain.Message) {
	if len(msg.Recipients) == 0 {
		return
	}
	o.messages = append(o.messages, msg)
}

func (o *outbox) transitioned(event string) {
	o.events = append(o.events, event)
}

func (w *workflow) authorize(ctx context.Context, rc domain.RequestContext, resource, action string) error {
	if w.authorizer == nil || w.authorizer.Authorize(ctx, rc, resource, action) {
		return nil
	}
	logger.WithRequest(rc).InfoContext(ctx, "Workflow action denied",
		"workflow", w.name, "resource", resource, "action", action, "role", rc.Role)
	metrics.RecordFailure(w.name, string(domain.FailureNotAuthorized))
	return domain.Fail(domain.FailureNotAuthorized, fmt.Sprintf("%s on %s is not permitted", action, resource))
}

// run executes fn in one transaction. Failures are counted; on commit the
// outbox is flushed.
func (w *workflow) run(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories, out *outbox) error) error {
	var out outbox
	err := w.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		out = outbox{}
		return fn(ctx, repos, &out)
	})
	if err != nil {
		if f, ok := domain.AsFailure(err); ok {
			metrics.RecordFailure(w.name, string(f.Code))
			logger.Rejected(w.name, string(f.Code), f.Messages)
		}
		return err
	}

	for _, ev := range out.events {
		metrics.RecordTransition(w.name, ev)
		logger.Transition(w.name, ev)
	}
	w.dispatch(ctx, out.messages)
	return nil
}

// dispatch hands messages to the notifier. Errors are logged and dropped:
// the state change has already committed.
func (w *workflow) dispatch(ctx context.Context, messages []domain.Message) {
	if w.notifier == nil {
		return
	}
	for _, msg := range messages {
		if err := w.notifier.Enqueue(ctx, msg); err != nil {
			logger.WarnContext(ctx, "Failed to enqueue notification",
				"workflow", w.name, "template", msg.Template, "entityID", msg.EntityID, "error", err)
		}
	}
}

// audit appends one entry per audit effect.
func (w *workflow) audit(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, effects []domain.Effect, entityType string, entityID int32, metadata map[string]any) error {
	for _, e := range domain.FilterEffects(effects, domain.EffectAudit) {
		entry := domain.NewAuditEntry(rc, e.Action, entityType, entityID, metadata)
		entry.CreatedAt = w.now()
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry %s: %w", e.Action, err)
		}
	}
	return nil
}

// templates returns the notify templates among effects.
func templates(effects []domain.Effect) []string {
	var out []string
	for _, e := range domain.FilterEffects(effects, domain.EffectNotify) {
		out = append(out, e.Template)
	}
	return out
}

// lookupFailure maps a missing row to code and wraps anything else.
func lookupFailure(err error, code domain.FailureCode, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Fail(code)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// staleFailure maps a lost compare-and-set to code.
func staleFailure(err error, code domain.FailureCode, msg string) error {
	if errors.Is(err, repository.ErrStaleState) {
		return domain.Fail(code, msg)
	}
	return err
}

// loadApplication reads an application in the caller's organization. Rows of
// other organizations are reported as missing.
func loadApplication(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, id int32, lock bool) (*domain.Application, error) {
	var app *domain.Application
	var err error
	if lock {
		app, err = repos.Applications.GetForUpdate(ctx, id)
	} else {
		app, err = repos.Applications.GetByID(ctx, id)
	}
	if err != nil {
		return nil, lookupFailure(err, domain.FailureApplicationNotFound, "application")
	}
	if app.OrganizationID != rc.OrganizationID {
		return nil, domain.Fail(domain.FailureApplicationNotFound)
	}
	return app, nil
}

// memberRecipients resolves users into notification recipients, skipping
// duplicates, excluded ids and users that cannot be found.
func memberRecipients(ctx context.Context, repos *repository.Repositories, exclude int32, userIDs ...int32) []domain.Recipient {
	seen := map[int32]bool{exclude: true, 0: true}
	var out []domain.Recipient
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		user, err := repos.Users.GetByID(ctx, id)
		if err != nil {
			logger.WarnContext(ctx, "Skipping notification recipient", "userID", id, "error", err)
			continue
		}
		out = append(out, domain.Recipient{UserID: user.ID, Email: user.Email, Name: user.Name})
	}
	return out
}

// candidateRecipient addresses the candidate behind an application.
func candidateRecipient(ctx context.Context, repos *repository.Repositories, app *domain.Application) (*domain.Candidate, []domain.Recipient) {
	candidate, err := repos.Candidates.GetByID(ctx, app.CandidateID)
	if err != nil {
		logger.WarnContext(ctx, "Candidate lookup failed", "applicationID", app.ID, "error", err)
		return nil, nil
	}
	if candidate.Email == "" {
		return candidate, nil
	}
	return candidate, []domain.Recipient{{Email: candidate.Email, Name: candidate.FullName()}}
}
