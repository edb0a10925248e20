package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
	"hireflow-backend/internal/statemachine"
	"hireflow-backend/internal/utils"
)

const entityAdverseAction = "adverse_action"

type adverseActionService struct {
	workflow
	waitingPeriodDays int
}

// NewAdverseActionService wires the FCRA workflow. waitingPeriodDays is the
// default applied when an action does not set its own.
func NewAdverseActionService(tx repository.Transactor, notifier Notifier, authorizer Authorizer, now Clock, waitingPeriodDays int) AdverseActionService {
	if waitingPeriodDays <= 0 {
		waitingPeriodDays = domain.DefaultWaitingPeriodDays
	}
	return &adverseActionService{
		workflow:          newWorkflow("adverse_action", tx, notifier, authorizer, now),
		waitingPeriodDays: waitingPeriodDays,
	}
}

func (s *adverseActionService) Initiate(ctx context.Context, rc domain.RequestContext, params InitiateAdverseActionParams) (*domain.AdverseAction, error) {
	logger.EnterMethod("adverseActionService.Initiate", "applicationID", params.ApplicationID, "type", params.ActionType)
	if err := s.authorize(ctx, rc, domain.ResourceAdverseAction, domain.ActionCreate); err != nil {
		return nil, err
	}
	if !params.ActionType.Valid() {
		return nil, domain.Fail(domain.FailureInvalidAdverseActionType, fmt.Sprintf("unknown action type %q", params.ActionType))
	}
	days := params.WaitingPeriodDays
	if days <= 0 {
		days = s.waitingPeriodDays
	}

	var action *domain.AdverseAction
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		app, err := loadApplication(ctx, repos, rc, params.ApplicationID, true)
		if err != nil {
			return err
		}
		if !app.IsActive() || app.IsDiscarded() {
			return domain.Fail(domain.FailureApplicationNotActive, fmt.Sprintf("application is %s", app.Status))
		}
		active, err := repos.AdverseActions.HasActive(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("failed to check active adverse actions: %w", err)
		}
		if active {
			return domain.Fail(domain.FailureAdverseActionInProgress)
		}

		now := s.now()
		action = &domain.AdverseAction{
			ApplicationID:           app.ID,
			OrganizationID:          app.OrganizationID,
			InitiatedBy:             rc.ActorID,
			Status:                  domain.AdverseActionDraft,
			ActionType:              params.ActionType,
			ReasonCategory:          params.ReasonCategory,
			ReasonDetails:           params.ReasonDetails,
			BackgroundCheckProvider: params.BackgroundCheckProvider,
			WaitingPeriodDays:       days,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if err := repos.AdverseActions.Create(ctx, action); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.Fail(domain.FailureAdverseActionInProgress)
			}
			return fmt.Errorf("failed to create adverse action: %w", err)
		}
		out.transitioned("initiate")
		return s.effects(ctx, repos, rc, out, action, domain.AdverseActionInitiatedEffects)
	})
	if err != nil {
		logger.ExitMethodWithError("adverseActionService.Initiate", err)
		return nil, err
	}
	logger.ExitMethod("adverseActionService.Initiate", "actionID", action.ID)
	return action, nil
}

// SendPreAdverse records the pre-adverse notice and opens the waiting period,
// which ends a fixed number of calendar days after sending.
func (s *adverseActionService) SendPreAdverse(ctx context.Context, rc domain.RequestContext, actionID int32, content string, method domain.DeliveryMethod) (*domain.AdverseAction, error) {
	if err := s.authorize(ctx, rc, domain.ResourceAdverseAction, domain.ActionSend); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, domain.Fail(domain.FailureInvalidDeliveryMethod, fmt.Sprintf("unknown delivery method %q", method))
	}

	var action *domain.AdverseAction
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if action, err = loadAdverseAction(ctx, repos, rc, actionID); err != nil {
			return err
		}
		from := action.Status
		state, effects, err := advance(from, out, domain.AdverseEventSendPreAdverse, domain.AdverseEventStartWaitingPeriod)
		if err != nil {
			return err
		}

		app, err := repos.Applications.GetByID(ctx, action.ApplicationID)
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		candidate, _ := candidateRecipient(ctx, repos, app)
		if candidate == nil || strings.TrimSpace(candidate.Email) == "" {
			return domain.Fail(domain.FailureCandidateEmailMissing)
		}

		now := s.now()
		endsAt := utils.WaitingPeriodEnd(now, action.WaitingPeriodDays)
		action.PreAdverseSentAt = &now
		action.PreAdverseContent = content
		action.PreAdverseDeliveryMethod = &method
		action.WaitingPeriodEndsAt = &endsAt
		action.Status = state
		return s.save(ctx, repos, rc, out, action, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

// RecordDispute flags a candidate dispute. It does not hold back SendFinal;
// what to do about the dispute is left to the people handling it.
func (s *adverseActionService) RecordDispute(ctx context.Context, rc domain.RequestContext, actionID int32, details string) (*domain.AdverseAction, error) {
	if err := s.authorize(ctx, rc, domain.ResourceAdverseAction, domain.ActionDispute); err != nil {
		return nil, err
	}

	var action *domain.AdverseAction
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if action, err = lockAdverseAction(ctx, repos, rc, actionID); err != nil {
			return err
		}
		from := action.Status
		state, effects, err := advance(from, out, domain.AdverseEventRecordDispute)
		if err != nil {
			return err
		}
		// later disputes add to the first; the received date stays the first one
		if action.CandidateDisputed && action.DisputeReceivedAt != nil {
			action.DisputeDetails = strings.TrimSpace(action.DisputeDetails + "\n\n" + details)
		} else {
			now := s.now()
			action.CandidateDisputed = true
			action.DisputeDetails = details
			action.DisputeReceivedAt = &now
		}
		action.Status = state
		return s.save(ctx, repos, rc, out, action, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (s *adverseActionService) SendFinal(ctx context.Context, rc domain.RequestContext, actionID int32, content string, method domain.DeliveryMethod) (*domain.AdverseAction, error) {
	if err := s.authorize(ctx, rc, domain.ResourceAdverseAction, domain.ActionSend); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, domain.Fail(domain.FailureInvalidDeliveryMethod, fmt.Sprintf("unknown delivery method %q", method))
	}

	var action *domain.AdverseAction
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if action, err = loadAdverseAction(ctx, repos, rc, actionID); err != nil {
			return err
		}
		from := action.Status
		if !domain.CanAdvanceAdverseAction(from, domain.AdverseEventSendFinal) {
			return domain.Fail(domain.FailureInvalidTransition,
				fmt.Sprintf("final notice cannot be sent while %s", from))
		}
		now := s.now()
		if !action.WaitingPeriodElapsed(now) {
			return domain.Fail(domain.FailureWaitingPeriodNotElapsed,
				fmt.Sprintf("waiting period ends at %s", action.WaitingPeriodEndsAt.Format(time.RFC3339)))
		}
		state, effects, err := advance(from, out, domain.AdverseEventSendFinal, domain.AdverseEventComplete)
		if err != nil {
			return err
		}

		action.FinalAdverseSentAt = &now
		action.FinalAdverseContent = content
		action.FinalAdverseDeliveryMethod = &method
		action.Status = state
		return s.save(ctx, repos, rc, out, action, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (s *adverseActionService) Cancel(ctx context.Context, rc domain.RequestContext, actionID int32, reason string) (*domain.AdverseAction, error) {
	if err := s.authorize(ctx, rc, domain.ResourceAdverseAction, domain.ActionCancel); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.Fail(domain.FailureReasonRequired)
	}

	var action *domain.AdverseAction
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		member, err := activeMember(ctx, repos, rc)
		if err != nil {
			return err
		}
		if member == nil || !member.IsAdmin() {
			return domain.Fail(domain.FailureNotAuthorized, "only an admin can cancel an adverse action")
		}
		if action, err = loadAdverseAction(ctx, repos, rc, actionID); err != nil {
			return err
		}
		from := action.Status
		state, effects, err := advance(from, out, domain.AdverseEventCancel)
		if err != nil {
			return err
		}
		now := s.now()
		actor := rc.ActorID
		action.CancelledAt = &now
		action.CancelledBy = &actor
		action.CancelledReason = reason
		action.Status = state
		return s.save(ctx, repos, rc, out, action, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (s *adverseActionService) Get(ctx context.Context, rc domain.RequestContext, actionID int32) (*domain.AdverseAction, error) {
	if err := s.authorize(ctx, rc, domain.ResourceAdverseAction, domain.ActionRead); err != nil {
		return nil, err
	}
	var action *domain.AdverseAction
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		action, err = loadAdverseAction(ctx, repos, rc, actionID)
		return err
	})
	return action, err
}

func (s *adverseActionService) HasLegalHold(ctx context.Context, rc domain.RequestContext, applicationID int32) (bool, error) {
	if err := s.authorize(ctx, rc, domain.ResourceAdverseAction, domain.ActionRead); err != nil {
		return false, err
	}
	var hold bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if _, err := loadApplication(ctx, repos, rc, applicationID, false); err != nil {
			return err
		}
		var err error
		hold, err = repos.AdverseActions.HasActive(ctx, applicationID)
		return err
	})
	return hold, err
}

// advance applies events in order and returns the final state with every
// effect produced on the way.
func advance(from domain.AdverseActionStatus, out *outbox, events ...statemachine.Event) (domain.AdverseActionStatus, []domain.Effect, error) {
	state := from
	var effects []domain.Effect
	for _, ev := range events {
		next, fx, err := domain.AdverseActionTransition(state, ev)
		if err != nil {
			return "", nil, err
		}
		state = next
		effects = append(effects, fx...)
		out.transitioned(string(ev))
	}
	return state, effects, nil
}

func (s *adverseActionService) save(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, out *outbox, a *domain.AdverseAction, from domain.AdverseActionStatus, effects []domain.Effect) error {
	a.UpdatedAt = s.now()
	if err := repos.AdverseActions.Update(ctx, a, from); err != nil {
		return staleFailure(err, domain.FailureInvalidTransition, "adverse action changed concurrently")
	}
	return s.effects(ctx, repos, rc, out, a, effects)
}

// effects writes audit rows and addresses notices. Notices about the
// candidate's own case go to the candidate; dispute alerts go to the
// initiator.
func (s *adverseActionService) effects(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, out *outbox, a *domain.AdverseAction, effects []domain.Effect) error {
	if err := s.audit(ctx, repos, rc, effects, entityAdverseAction, a.ID,
		map[string]any{"application_id": a.ApplicationID, "status": a.Status}); err != nil {
		return err
	}

	for _, tmpl := range templates(effects) {
		var recipients []domain.Recipient
		if tmpl == "adverse_action_disputed" {
			recipients = memberRecipients(ctx, repos, 0, a.InitiatedBy)
		} else if app, err := repos.Applications.GetByID(ctx, a.ApplicationID); err == nil {
			_, recipients = candidateRecipient(ctx, repos, app)
		}
		data := map[string]string{"action_type": string(a.ActionType)}
		if a.WaitingPeriodEndsAt != nil {
			data["waiting_period_ends_at"] = utils.FormatDate(*a.WaitingPeriodEndsAt)
		}
		out.notify(domain.Message{
			Template:       tmpl,
			OrganizationID: a.OrganizationID,
			Recipients:     recipients,
			EntityType:     entityAdverseAction,
			EntityID:       a.ID,
			Data:           data,
		})
	}
	return nil
}

func loadAdverseAction(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, id int32) (*domain.AdverseAction, error) {
	a, err := repos.AdverseActions.GetByID(ctx, id)
	return inOrganization(a, err, rc)
}

// lockAdverseAction is loadAdverseAction holding the row lock for the rest of
// the transaction.
func lockAdverseAction(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, id int32) (*domain.AdverseAction, error) {
	a, err := repos.AdverseActions.GetForUpdate(ctx, id)
	return inOrganization(a, err, rc)
}

func inOrganization(a *domain.AdverseAction, err error, rc domain.RequestContext) (*domain.AdverseAction, error) {
	if err != nil {
		return nil, lookupFailure(err, domain.FailureAdverseActionNotFound, "adverse action")
	}
	if a.OrganizationID != rc.OrganizationID {
		return nil, domain.Fail(domain.FailureAdverseActionNotFound)
	}
	return a, nil
}
