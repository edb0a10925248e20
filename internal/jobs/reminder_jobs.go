package jobs

import (
	"context"
	"fmt"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/notify"
	"hireflow-backend/internal/utils"
)

const (
	entityI9Verification = "i9_verification"
	entityAdverseAction  = "adverse_action"

	// authorizationNoticeDays is how far ahead expiring work authorizations
	// are reported.
	authorizationNoticeDays = 30
)

// SendI9DeadlineReminders reminds organization admins about I-9s whose
// section 2 deadline is close or already missed.
func (jr *JobRunner) SendI9DeadlineReminders() {
	jr.runWithRecovery("SendI9DeadlineReminders", jr.sendI9DeadlineReminders)
}

func (jr *JobRunner) sendI9DeadlineReminders(ctx context.Context) error {
	today := utils.DateOnly(jr.now().UTC())
	dueBy := utils.AddBusinessDays(today, jr.config.Workflow.I9ReminderDaysBefore)

	verifications, err := jr.repos.I9.ListBySection2Deadline(ctx, dueBy)
	if err != nil {
		return fmt.Errorf("failed to list i9 verifications due by %s: %w", utils.FormatDate(dueBy), err)
	}

	admins := jr.adminCache()
	count := 0
	for _, v := range verifications {
		key := fmt.Sprintf("%s:%d:%s", notify.TemplateI9Section2Due, v.ID, utils.FormatDate(today))
		if !jr.first(ctx, key, 36*time.Hour) {
			continue
		}

		overdue := v.DeadlineSection2.Before(today)
		msg := domain.Message{
			Template:       notify.TemplateI9Section2Due,
			OrganizationID: v.OrganizationID,
			Recipients:     admins(ctx, v.OrganizationID),
			EntityType:     entityI9Verification,
			EntityID:       v.ID,
			Data: map[string]string{
				"status":            string(v.Status),
				"deadline_section2": utils.FormatDate(v.DeadlineSection2),
				"overdue":           fmt.Sprint(overdue),
			},
		}
		if jr.send(ctx, msg) {
			count++
		}
	}

	logger.Info("I-9 deadline reminders sent", "count", count, "candidates", len(verifications))
	return nil
}

// SendAuthorizationExpiryReminders reports time-limited work authorizations
// that lapse within the notice window so reverification can be scheduled.
func (jr *JobRunner) SendAuthorizationExpiryReminders() {
	jr.runWithRecovery("SendAuthorizationExpiryReminders", jr.sendAuthorizationExpiryReminders)
}

func (jr *JobRunner) sendAuthorizationExpiryReminders(ctx context.Context) error {
	today := utils.DateOnly(jr.now().UTC())
	until := utils.AddCalendarDays(today, authorizationNoticeDays)

	auths, err := jr.repos.I9.ListExpiringWorkAuthorizations(ctx, today, until)
	if err != nil {
		return fmt.Errorf("failed to list expiring work authorizations: %w", err)
	}

	admins := jr.adminCache()
	count := 0
	for _, auth := range auths {
		if auth.ValidUntil == nil {
			continue
		}
		validUntil := utils.FormatDate(*auth.ValidUntil)
		key := fmt.Sprintf("%s:%d:%s", notify.TemplateI9AuthExpiring, auth.ID, validUntil)
		if !jr.first(ctx, key, (authorizationNoticeDays+1)*24*time.Hour) {
			continue
		}

		v, err := jr.repos.I9.GetByID(ctx, auth.VerificationID)
		if err != nil {
			logger.Warn("Failed to load verification for expiring authorization",
				"verificationID", auth.VerificationID, "error", err)
			continue
		}
		msg := domain.Message{
			Template:       notify.TemplateI9AuthExpiring,
			OrganizationID: v.OrganizationID,
			Recipients:     admins(ctx, v.OrganizationID),
			EntityType:     entityI9Verification,
			EntityID:       v.ID,
			Data: map[string]string{
				"authorization_type": string(auth.AuthorizationType),
				"valid_until":        validUntil,
			},
		}
		if jr.send(ctx, msg) {
			count++
		}
	}

	logger.Info("Work authorization expiry reminders sent", "count", count, "candidates", len(auths))
	return nil
}

// SendWaitingPeriodNotices tells the initiator of an adverse action that its
// FCRA waiting period is over and the final notice may be sent.
func (jr *JobRunner) SendWaitingPeriodNotices() {
	jr.runWithRecovery("SendWaitingPeriodNotices", jr.sendWaitingPeriodNotices)
}

func (jr *JobRunner) sendWaitingPeriodNotices(ctx context.Context) error {
	now := jr.now()
	actions, err := jr.repos.AdverseActions.ListWaitingPeriodEnded(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list adverse actions past their waiting period: %w", err)
	}

	count := 0
	for _, a := range actions {
		key := fmt.Sprintf("%s:%d", notify.TemplateFinalActionDue, a.ID)
		if !jr.first(ctx, key, 30*24*time.Hour) {
			continue
		}

		data := map[string]string{"action_type": string(a.ActionType)}
		if a.WaitingPeriodEndsAt != nil {
			data["waiting_period_ends_at"] = utils.FormatDate(*a.WaitingPeriodEndsAt)
		}
		msg := domain.Message{
			Template:       notify.TemplateFinalActionDue,
			OrganizationID: a.OrganizationID,
			Recipients:     jr.userRecipients(ctx, a.InitiatedBy),
			EntityType:     entityAdverseAction,
			EntityID:       a.ID,
			Data:           data,
		}
		if jr.send(ctx, msg) {
			count++
		}
	}

	logger.Info("Waiting period notices sent", "count", count, "candidates", len(actions))
	return nil
}

// first consults the deduper. A deduper error sends the reminder anyway.
func (jr *JobRunner) first(ctx context.Context, key string, ttl time.Duration) bool {
	if jr.dedupe == nil {
		return true
	}
	ok, err := jr.dedupe.First(ctx, key, ttl)
	if err != nil {
		logger.Warn("Reminder dedupe unavailable", "key", key, "error", err)
		return true
	}
	return ok
}

func (jr *JobRunner) send(ctx context.Context, msg domain.Message) bool {
	if len(msg.Recipients) == 0 {
		logger.Warn("Reminder has no recipients", "template", msg.Template, "entityID", msg.EntityID)
		return false
	}
	if err := jr.notifier.Enqueue(ctx, msg); err != nil {
		logger.Error("Failed to enqueue reminder", "template", msg.Template, "entityID", msg.EntityID, "error", err)
		return false
	}
	return true
}

// adminCache returns a lookup of admin recipients that loads each
// organization once per run.
func (jr *JobRunner) adminCache() func(ctx context.Context, orgID int32) []domain.Recipient {
	cache := map[int32][]domain.Recipient{}
	return func(ctx context.Context, orgID int32) []domain.Recipient {
		if recipients, ok := cache[orgID]; ok {
			return recipients
		}
		members, err := jr.repos.Members.ListAdmins(ctx, orgID)
		if err != nil {
			logger.Warn("Failed to list admins", "orgID", orgID, "error", err)
			return nil
		}
		ids := make([]int32, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		recipients := jr.userRecipients(ctx, ids...)
		cache[orgID] = recipients
		return recipients
	}
}

func (jr *JobRunner) userRecipients(ctx context.Context, ids ...int32) []domain.Recipient {
	var out []domain.Recipient
	for _, id := range ids {
		if id == 0 {
			continue
		}
		user, err := jr.repos.Users.GetByID(ctx, id)
		if err != nil {
			logger.Warn("Skipping reminder recipient", "userID", id, "error", err)
			continue
		}
		out = append(out, domain.Recipient{UserID: user.ID, Email: user.Email, Name: user.Name})
	}
	return out
}
