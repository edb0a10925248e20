package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

const (
	entityHiringDecision = "hiring_decision"

	templateDecisionApprovalRequested = "hiring_decision_approval_requested"
	templateDecisionResolved          = "hiring_decision_resolved"
)

type hiringDecisionService struct {
	workflow
	gate DecisionGate
}

// NewHiringDecisionService wires the workflow. A nil gate falls back to
// StageGate.
func NewHiringDecisionService(tx repository.Transactor, gate DecisionGate, notifier Notifier, authorizer Authorizer, now Clock) HiringDecisionService {
	if gate == nil {
		gate = StageGate{}
	}
	return &hiringDecisionService{
		workflow: newWorkflow("hiring_decision", tx, notifier, authorizer, now),
		gate:     gate,
	}
}

// StageGate allows a decision once an application sits in a non-terminal
// pipeline stage.
type StageGate struct{}

func (StageGate) CanReceiveDecision(ctx context.Context, repos *repository.Repositories, app *domain.Application) (bool, error) {
	if app.CurrentStageID == nil {
		return false, nil
	}
	stage, err := repos.Stages.GetByID(ctx, *app.CurrentStageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return !stage.IsTerminal(), nil
}

func (s *hiringDecisionService) Create(ctx context.Context, rc domain.RequestContext, params CreateDecisionParams) (*domain.HiringDecision, error) {
	logger.EnterMethod("hiringDecisionService.Create", "applicationID", params.ApplicationID, "decision", params.Decision)
	if err := s.authorize(ctx, rc, domain.ResourceHiringDecision, domain.ActionCreate); err != nil {
		return nil, err
	}
	if !params.Decision.Valid() {
		return nil, domain.Fail(domain.FailureInvalidDecision, fmt.Sprintf("unknown decision %q", params.Decision))
	}

	var decision *domain.HiringDecision
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		app, err := loadApplication(ctx, repos, rc, params.ApplicationID, true)
		if err != nil {
			return err
		}
		if !app.IsActive() || app.IsDiscarded() {
			return domain.Fail(domain.FailureApplicationNotActive, fmt.Sprintf("application is %s", app.Status))
		}
		ok, err := s.gate.CanReceiveDecision(ctx, repos, app)
		if err != nil {
			return fmt.Errorf("failed to evaluate decision gate: %w", err)
		}
		if !ok {
			return domain.Fail(domain.FailureCannotReceiveDecision)
		}

		job, err := repos.Jobs.GetByID(ctx, app.JobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}
		member, err := activeMember(ctx, repos, rc)
		if err != nil {
			return err
		}
		if !canDecide(member, job, rc.ActorID) {
			return domain.Fail(domain.FailureNotAuthorizedToDecide)
		}

		pending, err := repos.Decisions.HasPending(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("failed to check pending decisions: %w", err)
		}
		if pending {
			return domain.Fail(domain.FailurePendingDecisionExists)
		}

		now := s.now()
		decision = &domain.HiringDecision{
			ApplicationID:     app.ID,
			OrganizationID:    app.OrganizationID,
			DecidedBy:         rc.ActorID,
			Decision:          params.Decision,
			Status:            domain.DecisionStatusPending,
			Rationale:         params.Rationale,
			ProposedSalary:    params.ProposedSalary,
			ProposedStartDate: params.ProposedStartDate,
			DecidedAt:         now,
		}
		if params.SkipApproval {
			approver := rc.ActorID
			decision.Status = domain.DecisionStatusApproved
			decision.ApprovedBy = &approver
			decision.ApprovedAt = &now
		}
		if err := repos.Decisions.Create(ctx, decision); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.Fail(domain.FailurePendingDecisionExists)
			}
			return fmt.Errorf("failed to create hiring decision: %w", err)
		}

		out.transitioned("create")
		if err := s.audit(ctx, repos, rc, []domain.Effect{domain.Audit("hiring_decision.created")},
			entityHiringDecision, decision.ID, map[string]any{
				"application_id":   app.ID,
				"decision":         decision.Decision,
				"status":           decision.Status,
				"require_approval": !params.SkipApproval,
			}); err != nil {
			return err
		}

		if !params.SkipApproval {
			var approvers []int32
			if job.HiringManagerID != nil {
				approvers = append(approvers, *job.HiringManagerID)
			}
			approvers = append(approvers, job.OwnerID)
			out.notify(domain.Message{
				Template:       templateDecisionApprovalRequested,
				OrganizationID: app.OrganizationID,
				Recipients:     memberRecipients(ctx, repos, rc.ActorID, approvers...),
				EntityType:     entityHiringDecision,
				EntityID:       decision.ID,
				Data:           map[string]string{"decision": string(decision.Decision), "job_title": job.Title},
			})
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("hiringDecisionService.Create", err)
		return nil, err
	}
	logger.ExitMethod("hiringDecisionService.Create", "decisionID", decision.ID)
	return decision, nil
}

func (s *hiringDecisionService) Resolve(ctx context.Context, rc domain.RequestContext, decisionID int32, action domain.DecisionAction, reason string) (*domain.HiringDecision, error) {
	logger.EnterMethod("hiringDecisionService.Resolve", "decisionID", decisionID, "action", action)
	if err := s.authorize(ctx, rc, domain.ResourceHiringDecision, domain.ActionApprove); err != nil {
		return nil, err
	}

	var status domain.DecisionStatus
	switch action {
	case domain.DecisionActionApprove:
		status = domain.DecisionStatusApproved
	case domain.DecisionActionReject:
		status = domain.DecisionStatusRejected
		if strings.TrimSpace(reason) == "" {
			return nil, domain.Fail(domain.FailureReasonRequiredForRejection)
		}
	default:
		return nil, domain.Fail(domain.FailureInvalidAction, fmt.Sprintf("unknown action %q", action))
	}

	var decision *domain.HiringDecision
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		decision, err = repos.Decisions.GetByID(ctx, decisionID)
		if err != nil {
			return lookupFailure(err, domain.FailureDecisionNotFound, "hiring decision")
		}
		if decision.OrganizationID != rc.OrganizationID {
			return domain.Fail(domain.FailureDecisionNotFound)
		}
		if !decision.IsPending() {
			return domain.Fail(domain.FailureDecisionNotPending, fmt.Sprintf("decision is %s", decision.Status))
		}

		if rc.ActorID == 0 {
			return domain.Fail(domain.FailureApproverNotFound)
		}
		if _, err := repos.Users.GetByID(ctx, rc.ActorID); err != nil {
			return lookupFailure(err, domain.FailureApproverNotFound, "approver")
		}
		if rc.ActorID == decision.DecidedBy {
			return domain.Fail(domain.FailureSelfApprovalForbidden, "a decision cannot be approved by the person who made it")
		}

		app, err := repos.Applications.GetByID(ctx, decision.ApplicationID)
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		job, err := repos.Jobs.GetByID(ctx, app.JobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}
		member, err := activeMember(ctx, repos, rc)
		if err != nil {
			return err
		}
		if !canApprove(member, job, rc.ActorID) {
			return domain.Fail(domain.FailureNotAuthorizedToApprove)
		}

		now := s.now()
		var rejection string
		if status == domain.DecisionStatusRejected {
			rejection = reason
		}
		if err := repos.Decisions.Resolve(ctx, decision.ID, status, rc.ActorID, rejection, now); err != nil {
			return staleFailure(err, domain.FailureDecisionNotPending, "decision was resolved concurrently")
		}
		approver := rc.ActorID
		decision.Status = status
		decision.ApprovedBy = &approver
		decision.ApprovedAt = &now
		decision.RejectionReason = rejection

		out.transitioned(string(action))
		if err := s.audit(ctx, repos, rc, []domain.Effect{domain.Audit("hiring_decision." + string(status))},
			entityHiringDecision, decision.ID, map[string]any{"reason": rejection}); err != nil {
			return err
		}
		out.notify(domain.Message{
			Template:       templateDecisionResolved,
			OrganizationID: decision.OrganizationID,
			Recipients:     memberRecipients(ctx, repos, rc.ActorID, decision.DecidedBy),
			EntityType:     entityHiringDecision,
			EntityID:       decision.ID,
			Data:           map[string]string{"status": string(status), "reason": rejection},
		})
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("hiringDecisionService.Resolve", err)
		return nil, err
	}
	logger.ExitMethod("hiringDecisionService.Resolve", "status", decision.Status)
	return decision, nil
}

func (s *hiringDecisionService) List(ctx context.Context, rc domain.RequestContext, applicationID int32) ([]domain.HiringDecision, error) {
	if err := s.authorize(ctx, rc, domain.ResourceHiringDecision, domain.ActionRead); err != nil {
		return nil, err
	}
	var decisions []domain.HiringDecision
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if _, err := loadApplication(ctx, repos, rc, applicationID, false); err != nil {
			return err
		}
		var err error
		decisions, err = repos.Decisions.ListByApplication(ctx, applicationID)
		return err
	})
	return decisions, err
}

// activeMember returns the caller's membership, or nil when they are not an
// active member of the organization.
func activeMember(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext) (*domain.Member, error) {
	member, err := repos.Members.Get(ctx, rc.OrganizationID, rc.ActorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !member.Active {
		return nil, nil
	}
	return member, nil
}

func canDecide(m *domain.Member, job *domain.Job, actorID int32) bool {
	if job.IsHiringManager(actorID) {
		return true
	}
	return m != nil && (m.IsAdmin() || m.IsRecruiter())
}

func canApprove(m *domain.Member, job *domain.Job, actorID int32) bool {
	if job.IsHiringManager(actorID) {
		return true
	}
	return m != nil && (m.IsAdmin() || m.Role == domain.MemberRoleSeniorRecruiter)
}
