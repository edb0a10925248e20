package service

import (
	"context"
	"fmt"
	"strings"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

const (
	entityApplication = "application"

	templateApplicationRejected = "application_rejected"
)

type pipelineService struct {
	workflow
}

func NewPipelineService(tx repository.Transactor, notifier Notifier, authorizer Authorizer, now Clock) PipelineService {
	return &pipelineService{workflow: newWorkflow("pipeline", tx, notifier, authorizer, now)}
}

func (s *pipelineService) MoveStage(ctx context.Context, rc domain.RequestContext, applicationID, toStageID int32, notes string) (*domain.StageTransition, error) {
	logger.EnterMethod("pipelineService.MoveStage", "applicationID", applicationID, "toStageID", toStageID)
	if err := s.authorize(ctx, rc, domain.ResourceApplication, domain.ActionMove); err != nil {
		return nil, err
	}

	var transition *domain.StageTransition
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		app, err := loadApplication(ctx, repos, rc, applicationID, true)
		if err != nil {
			return err
		}
		if !app.IsActive() {
			return domain.Fail(domain.FailureApplicationNotActive, fmt.Sprintf("application is %s", app.Status))
		}
		if app.IsDiscarded() {
			return domain.Fail(domain.FailureApplicationDiscarded)
		}

		stage, err := repos.Stages.GetByID(ctx, toStageID)
		if err != nil {
			return lookupFailure(err, domain.FailureStageNotFound, "stage")
		}
		if stage.OrganizationID != app.OrganizationID {
			return domain.Fail(domain.FailureStageWrongOrganization)
		}
		if app.CurrentStageID != nil && *app.CurrentStageID == stage.ID {
			return domain.Fail(domain.FailureSameStage, fmt.Sprintf("application is already in %s", stage.Name))
		}
		configured, err := repos.StageCatalog.StagesFor(ctx, app.JobID)
		if err != nil {
			return fmt.Errorf("failed to load job stages: %w", err)
		}
		if !containsStage(configured, stage.ID) {
			return domain.Fail(domain.FailureStageNotInJob, fmt.Sprintf("%s is not a stage of job %d", stage.Name, app.JobID))
		}

		transition, err = s.transition(ctx, repos, app, stage.ID, rc.ActorID, notes)
		if err != nil {
			return err
		}
		out.transitioned("move_stage")
		return s.audit(ctx, repos, rc, []domain.Effect{domain.Audit("application.stage_changed")},
			entityApplication, app.ID, map[string]any{"from_stage_id": transition.FromStageID, "to_stage_id": stage.ID})
	})
	if err != nil {
		logger.ExitMethodWithError("pipelineService.MoveStage", err)
		return nil, err
	}
	logger.ExitMethod("pipelineService.MoveStage", "transitionID", transition.ID)
	return transition, nil
}

func (s *pipelineService) Reject(ctx context.Context, rc domain.RequestContext, applicationID, rejectionReasonID int32, notes string) (*domain.StageTransition, error) {
	logger.EnterMethod("pipelineService.Reject", "applicationID", applicationID, "reasonID", rejectionReasonID)
	if err := s.authorize(ctx, rc, domain.ResourceApplication, domain.ActionReject); err != nil {
		return nil, err
	}

	var transition *domain.StageTransition
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		app, err := loadApplication(ctx, repos, rc, applicationID, true)
		if err != nil {
			return err
		}
		if !app.IsActive() || app.IsDiscarded() {
			return domain.Fail(domain.FailureCannotReject, fmt.Sprintf("application is %s", app.Status))
		}

		reason, err := repos.RejectionReasons.GetByID(ctx, rejectionReasonID)
		if err != nil {
			return lookupFailure(err, domain.FailureRejectionReasonNotFound, "rejection reason")
		}
		if reason.OrganizationID != app.OrganizationID {
			return domain.Fail(domain.FailureRejectionReasonNotFound)
		}

		rejected, err := repos.Stages.FindOrCreateRejected(ctx, app.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to resolve rejected stage: %w", err)
		}
		transition, err = s.transition(ctx, repos, app, rejected.ID, rc.ActorID, rejectionNotes(reason.Name, notes))
		if err != nil {
			return err
		}
		err = repos.Applications.UpdateStatus(ctx, app.ID, domain.ApplicationStatusActive, domain.ApplicationStatusRejected, s.now())
		if err != nil {
			return staleFailure(err, domain.FailureCannotReject, "application changed concurrently")
		}

		out.transitioned("reject")
		if err := s.audit(ctx, repos, rc, []domain.Effect{domain.Audit("application.rejected")},
			entityApplication, app.ID, map[string]any{"rejection_reason_id": reason.ID, "to_stage_id": rejected.ID}); err != nil {
			return err
		}

		_, recipients := candidateRecipient(ctx, repos, app)
		out.notify(domain.Message{
			Template:       templateApplicationRejected,
			OrganizationID: app.OrganizationID,
			Recipients:     recipients,
			EntityType:     entityApplication,
			EntityID:       app.ID,
		})
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("pipelineService.Reject", err)
		return nil, err
	}
	logger.ExitMethod("pipelineService.Reject", "transitionID", transition.ID)
	return transition, nil
}

func (s *pipelineService) History(ctx context.Context, rc domain.RequestContext, applicationID int32) ([]domain.StageTransition, error) {
	if err := s.authorize(ctx, rc, domain.ResourceApplication, domain.ActionRead); err != nil {
		return nil, err
	}
	var history []domain.StageTransition
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if _, err := loadApplication(ctx, repos, rc, applicationID, false); err != nil {
			return err
		}
		var err error
		history, err = repos.Transitions.ListByApplication(ctx, applicationID)
		return err
	})
	return history, err
}

// transition appends the immutable transition row and points the application
// at its target. Both writes share the caller's transaction, so current_stage
// always matches the latest row.
func (s *pipelineService) transition(ctx context.Context, repos *repository.Repositories, app *domain.Application, toStageID, movedBy int32, notes string) (*domain.StageTransition, error) {
	now := s.now()
	t := &domain.StageTransition{
		ApplicationID: app.ID,
		FromStageID:   app.CurrentStageID,
		ToStageID:     toStageID,
		MovedBy:       movedBy,
		Notes:         notes,
		CreatedAt:     now,
	}
	if err := repos.Transitions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to record stage transition: %w", err)
	}
	if err := repos.Applications.UpdateStage(ctx, app.ID, toStageID, now); err != nil {
		return nil, fmt.Errorf("failed to update current stage: %w", err)
	}
	return t, nil
}

func rejectionNotes(reason, notes string) string {
	compiled := "Reason: " + reason
	if strings.TrimSpace(notes) != "" {
		compiled += "\n" + notes
	}
	return compiled
}

func containsStage(stages []domain.Stage, id int32) bool {
	for _, st := range stages {
		if st.ID == id {
			return true
		}
	}
	return false
}
