package service

import (
	"context"
	"fmt"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
	"hireflow-backend/internal/utils"
)

const templateApprovalRequested = "approval_requested"

type approvalChainService struct {
	workflow
}

func NewApprovalChainService(tx repository.Transactor, notifier Notifier, authorizer Authorizer, now Clock) ApprovalChainService {
	return &approvalChainService{workflow: newWorkflow("approval_chain", tx, notifier, authorizer, now)}
}

// RequestApprovals starts a new round on a draft parent. Sequences run 1..N
// in the order approverIDs are given.
func (s *approvalChainService) RequestApprovals(ctx context.Context, rc domain.RequestContext, parent domain.ApprovableRef, approverIDs []int32) ([]domain.ApprovalRecord, error) {
	if err := s.authorize(ctx, rc, domain.ResourceApproval, domain.ActionRequest); err != nil {
		return nil, err
	}
	if len(approverIDs) == 0 {
		return nil, domain.Fail(domain.FailureApproversRequired)
	}

	var records []domain.ApprovalRecord
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		orgID, status, err := repos.Approvables.Lock(ctx, parent)
		if err != nil {
			return lookupFailure(err, domain.FailureApprovableNotFound, string(parent.Type))
		}
		if orgID != rc.OrganizationID {
			return domain.Fail(domain.FailureApprovableNotFound)
		}
		if status != domain.ApprovableDraft {
			return domain.Fail(domain.FailureApprovableNotDraft, fmt.Sprintf("%s %d is %s", parent.Type, parent.ID, status))
		}

		details, err := s.offerDetails(ctx, repos, parent, orgID)
		if err != nil {
			return err
		}

		previous, err := repos.Approvals.ListByApprovable(ctx, parent)
		if err != nil {
			return fmt.Errorf("failed to list approvals: %w", err)
		}
		round := int32(1)
		if len(previous) > 0 {
			round = previous[0].Round + 1
		}

		now := s.now()
		for i, approverID := range approverIDs {
			record := domain.ApprovalRecord{
				OrganizationID: orgID,
				ApprovableType: parent.Type,
				ApprovableID:   parent.ID,
				ApproverID:     approverID,
				Round:          round,
				Sequence:       int32(i + 1),
				Status:         domain.ApprovalStatusPending,
				RequestedAt:    now,
			}
			if err := repos.Approvals.Create(ctx, &record); err != nil {
				return fmt.Errorf("failed to create approval record: %w", err)
			}
			records = append(records, record)
		}

		err = repos.Approvables.SetStatus(ctx, parent, domain.ApprovableDraft, domain.ApprovablePendingApproval)
		if err != nil {
			return staleFailure(err, domain.FailureApprovableNotDraft, "status changed concurrently")
		}
		out.transitioned("request")
		if err := s.audit(ctx, repos, rc, []domain.Effect{domain.Audit("approval.requested")},
			string(parent.Type), parent.ID, map[string]any{"approver_ids": approverIDs, "round": round}); err != nil {
			return err
		}
		s.notifyApprover(ctx, repos, out, records[0], details)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *approvalChainService) Approve(ctx context.Context, rc domain.RequestContext, recordID int32, comments string) (domain.ChainOutcome, error) {
	return s.respond(ctx, rc, recordID, domain.ApprovalStatusApproved, comments)
}

func (s *approvalChainService) Reject(ctx context.Context, rc domain.RequestContext, recordID int32, comments string) (domain.ChainOutcome, error) {
	return s.respond(ctx, rc, recordID, domain.ApprovalStatusRejected, comments)
}

func (s *approvalChainService) Chain(ctx context.Context, rc domain.RequestContext, parent domain.ApprovableRef) ([]domain.ApprovalRecord, error) {
	if err := s.authorize(ctx, rc, domain.ResourceApproval, domain.ActionRead); err != nil {
		return nil, err
	}
	var records []domain.ApprovalRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		records, err = repos.Approvals.ListByApprovable(ctx, parent)
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.OrganizationID != rc.OrganizationID {
				return domain.Fail(domain.FailureApprovableNotFound)
			}
		}
		return nil
	})
	return records, err
}

// respond resolves one record. The pending→status write is a compare-and-set,
// so of two concurrent responders only one succeeds.
func (s *approvalChainService) respond(ctx context.Context, rc domain.RequestContext, recordID int32, status domain.ApprovalStatus, comments string) (domain.ChainOutcome, error) {
	logger.EnterMethod("approvalChainService.respond", "recordID", recordID, "status", status)
	if err := s.authorize(ctx, rc, domain.ResourceApproval, domain.ActionApprove); err != nil {
		return "", err
	}

	var outcome domain.ChainOutcome
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		record, err := repos.Approvals.GetByID(ctx, recordID)
		if err != nil {
			return lookupFailure(err, domain.FailureApprovalNotFound, "approval record")
		}
		if record.OrganizationID != rc.OrganizationID {
			return domain.Fail(domain.FailureApprovalNotFound)
		}
		if record.Status != domain.ApprovalStatusPending {
			return domain.Fail(domain.FailureApprovalNotPending)
		}
		if record.ApproverID != rc.ActorID {
			return domain.Fail(domain.FailureNotApprover)
		}

		parent := record.Parent()
		if _, _, err := repos.Approvables.Lock(ctx, parent); err != nil {
			return lookupFailure(err, domain.FailureApprovableNotFound, string(parent.Type))
		}
		chain, err := repos.Approvals.ListByApprovable(ctx, parent)
		if err != nil {
			return fmt.Errorf("failed to list approvals: %w", err)
		}
		if current := domain.CurrentSequence(chain); current != record.Sequence {
			return domain.Fail(domain.FailureOutOfSequence, fmt.Sprintf("sequence %d is awaiting a response", current))
		}

		now := s.now()
		if err := repos.Approvals.Resolve(ctx, record.ID, status, comments, now); err != nil {
			return staleFailure(err, domain.FailureApprovalNotPending, "record was resolved concurrently")
		}
		for i := range chain {
			if chain[i].ID == record.ID {
				chain[i].Status = status
				chain[i].RespondedAt = &now
			}
		}

		outcome = domain.EvaluateChain(chain)
		switch outcome {
		case domain.ChainComplete:
			err = repos.Approvables.SetStatus(ctx, parent, domain.ApprovablePendingApproval, domain.ApprovableApproved)
		case domain.ChainRejected:
			if _, err = repos.Approvals.CloseRemaining(ctx, parent, now); err == nil {
				err = repos.Approvables.SetStatus(ctx, parent, domain.ApprovablePendingApproval, domain.ApprovableDraft)
			}
		case domain.ChainPending:
			for _, next := range chain {
				if next.Sequence == record.Sequence+1 {
					s.notifyApprover(ctx, repos, out, next, nil)
				}
			}
		}
		if err != nil {
			return staleFailure(err, domain.FailureApprovalNotPending, "parent changed concurrently")
		}

		out.transitioned(string(status))
		return s.audit(ctx, repos, rc, []domain.Effect{domain.Audit("approval." + string(status))},
			string(parent.Type), parent.ID, map[string]any{"record_id": record.ID, "sequence": record.Sequence, "outcome": outcome})
	})
	if err != nil {
		logger.ExitMethodWithError("approvalChainService.respond", err)
		return "", err
	}
	logger.ExitMethod("approvalChainService.respond", "outcome", outcome)
	return outcome, nil
}

// offerDetails checks that an offer still belongs to an open application of
// the organization and returns the terms shown to approvers. Jobs carry no
// extra details.
func (s *approvalChainService) offerDetails(ctx context.Context, repos *repository.Repositories, parent domain.ApprovableRef, orgID int32) (map[string]string, error) {
	if parent.Type != domain.ApprovableOffer {
		return nil, nil
	}
	offer, err := repos.Offers.GetByID(ctx, parent.ID)
	if err != nil {
		return nil, lookupFailure(err, domain.FailureApprovableNotFound, string(parent.Type))
	}
	app, err := repos.Applications.GetByID(ctx, offer.ApplicationID)
	if err != nil {
		return nil, lookupFailure(err, domain.FailureApplicationNotFound, "application")
	}
	if app.OrganizationID != orgID {
		return nil, domain.Fail(domain.FailureApprovableNotFound)
	}
	if !app.IsActive() || app.IsDiscarded() {
		return nil, domain.Fail(domain.FailureApplicationNotActive, fmt.Sprintf("application %d is %s", app.ID, app.Status))
	}

	details := map[string]string{"salary": offer.Salary.StringFixed(2)}
	if offer.StartDate != nil {
		details["start_date"] = utils.FormatDate(*offer.StartDate)
	}
	return details, nil
}

func (s *approvalChainService) notifyApprover(ctx context.Context, repos *repository.Repositories, out *outbox, record domain.ApprovalRecord, details map[string]string) {
	data := map[string]string{"sequence": fmt.Sprint(record.Sequence)}
	for k, v := range details {
		data[k] = v
	}
	out.notify(domain.Message{
		Template:       templateApprovalRequested,
		OrganizationID: record.OrganizationID,
		Recipients:     memberRecipients(ctx, repos, 0, record.ApproverID),
		EntityType:     string(record.ApprovableType),
		EntityID:       record.ApprovableID,
		Data:           data,
	})
}
