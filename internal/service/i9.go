package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
	"hireflow-backend/internal/statemachine"
	"hireflow-backend/internal/utils"
)

const entityI9Verification = "i9_verification"

// Templates the candidate receives in addition to the organization admins.
var candidateI9Templates = map[string]bool{
	"i9_initiated":   true,
	"i9_everify_tnc": true,
}

type i9Service struct {
	workflow
}

func NewI9Service(tx repository.Transactor, notifier Notifier, authorizer Authorizer, now Clock) I9Service {
	return &i9Service{workflow: newWorkflow("i9", tx, notifier, authorizer, now)}
}

func (s *i9Service) Initiate(ctx context.Context, rc domain.RequestContext, applicationID int32, expectedStartDate time.Time) (*domain.I9Verification, error) {
	logger.EnterMethod("i9Service.Initiate", "applicationID", applicationID, "startDate", utils.FormatDate(expectedStartDate))
	if err := s.authorize(ctx, rc, domain.ResourceI9Verification, domain.ActionCreate); err != nil {
		return nil, err
	}

	var v *domain.I9Verification
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		app, err := loadApplication(ctx, repos, rc, applicationID, true)
		if err != nil {
			return err
		}
		if app.Status != domain.ApplicationStatusOffered {
			return domain.Fail(domain.FailureApplicationNotOffered, fmt.Sprintf("application is %s", app.Status))
		}
		if !app.I9Required {
			return domain.Fail(domain.FailureI9NotRequired)
		}
		if _, err := repos.I9.GetByApplication(ctx, app.ID); err == nil {
			return domain.Fail(domain.FailureI9AlreadyExists)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check existing verification: %w", err)
		}

		section1, section2 := utils.I9Deadlines(expectedStartDate)
		now := s.now()
		v = &domain.I9Verification{
			ApplicationID:     app.ID,
			OrganizationID:    app.OrganizationID,
			Status:            domain.I9StatusPendingSection1,
			ExpectedStartDate: utils.DateOnly(expectedStartDate),
			DeadlineSection1:  section1,
			DeadlineSection2:  section2,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := repos.I9.Create(ctx, v); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.Fail(domain.FailureI9AlreadyExists)
			}
			return fmt.Errorf("failed to create verification: %w", err)
		}
		if err := repos.Applications.UpdateI9Status(ctx, app.ID, v.Status, now); err != nil {
			return fmt.Errorf("failed to mirror i9 status: %w", err)
		}

		out.transitioned("initiate")
		return s.effects(ctx, repos, rc, out, v, domain.I9InitiatedEffects)
	})
	if err != nil {
		logger.ExitMethodWithError("i9Service.Initiate", err)
		return nil, err
	}
	logger.ExitMethod("i9Service.Initiate", "verificationID", v.ID, "deadlineSection2", utils.FormatDate(v.DeadlineSection2))
	return v, nil
}

func (s *i9Service) CompleteSection1(ctx context.Context, rc domain.RequestContext, verificationID int32, in domain.Section1Input) (*domain.I9Verification, error) {
	if err := s.authorize(ctx, rc, domain.ResourceI9Verification, domain.ActionEmployee); err != nil {
		return nil, err
	}

	var v *domain.I9Verification
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if v, err = loadVerification(ctx, repos, rc, verificationID); err != nil {
			return err
		}
		from := v.Status
		next, effects, err := domain.I9Transition(from, domain.I9EventCompleteSection1)
		if err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}

		now := s.now()
		citizenship := in.CitizenshipStatus
		v.CitizenshipStatus = &citizenship
		v.AlienNumber = in.AlienNumber
		v.I94Number = in.I94Number
		v.ForeignPassportNumber = in.ForeignPassportNumber
		v.ForeignPassportCountry = in.ForeignPassportCountry
		v.AlienExpirationDate = in.AlienExpirationDate
		v.AttestationAccepted = true
		v.Section1CompletedAt = &now
		v.Section1SignatureIP = rc.IP
		v.Section1SignatureUserAgent = rc.UserAgent
		v.Status = next

		out.transitioned(string(domain.I9EventCompleteSection1))
		return s.save(ctx, repos, rc, out, v, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CompleteSection2 records the employer review. Documents, the work
// authorization and the status change commit together or not at all.
func (s *i9Service) CompleteSection2(ctx context.Context, rc domain.RequestContext, verificationID int32, in domain.Section2Input) (*domain.I9Verification, error) {
	logger.EnterMethod("i9Service.CompleteSection2", "verificationID", verificationID, "documents", len(in.Documents))
	if err := s.authorize(ctx, rc, domain.ResourceI9Verification, domain.ActionEmployer); err != nil {
		return nil, err
	}

	var v *domain.I9Verification
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if v, err = loadVerification(ctx, repos, rc, verificationID); err != nil {
			return err
		}
		from := v.Status

		var effects []domain.Effect
		state := from
		if state == domain.I9StatusSection1Complete {
			if state, err = s.step(state, domain.I9EventRequestSection2, &effects, out); err != nil {
				return err
			}
		}
		if state, err = s.step(state, domain.I9EventCompleteSection2, &effects, out); err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}

		now := s.now()
		for i := range in.Documents {
			doc := in.Documents[i]
			doc.VerificationID = v.ID
			doc.VerifiedBy = rc.ActorID
			doc.VerifiedAt = now
			if err := repos.I9.AddDocument(ctx, &doc); err != nil {
				return fmt.Errorf("failed to add %s document: %w", doc.ListType, err)
			}
		}

		actor := rc.ActorID
		v.EmployerTitle = in.EmployerTitle
		v.EmployerOrgName = in.EmployerOrgName
		v.EmployerOrgAddress = in.EmployerOrgAddress
		v.Section2CompletedAt = &now
		v.Section2CompletedBy = &actor
		v.Section2SignatureIP = rc.IP
		if daysLate := utils.DaysLate(v.DeadlineSection2, now); daysLate > 0 {
			v.LateCompletion = true
			v.LateCompletionReason = in.LateReason
			if v.LateCompletionReason == "" {
				v.LateCompletionReason = domain.LateCompletionReason(daysLate, v.DeadlineSection2)
			}
		}

		if _, err := repos.I9.GetWorkAuthorization(ctx, v.ID); err == nil {
			return domain.Fail(domain.FailureWorkAuthorizationExists)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check work authorization: %w", err)
		}
		auth := domain.WorkAuthorizationFor(v, v.ExpectedStartDate)
		if err := repos.I9.CreateWorkAuthorization(ctx, &auth); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.Fail(domain.FailureWorkAuthorizationExists)
			}
			return fmt.Errorf("failed to create work authorization: %w", err)
		}

		org, err := repos.Organizations.GetByID(ctx, v.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to load organization: %w", err)
		}
		if org.RequiresEVerify {
			state, err = s.step(state, domain.I9EventSubmitEVerify, &effects, out)
			v.EVerifySubmittedAt = &now
		} else {
			state, err = s.step(state, domain.I9EventVerify, &effects, out)
		}
		if err != nil {
			return err
		}
		v.Status = state
		return s.save(ctx, repos, rc, out, v, from, effects)
	})
	if err != nil {
		logger.ExitMethodWithError("i9Service.CompleteSection2", err)
		return nil, err
	}
	logger.ExitMethod("i9Service.CompleteSection2", "status", v.Status, "late", v.LateCompletion)
	return v, nil
}

func (s *i9Service) RecordEVerifyResult(ctx context.Context, rc domain.RequestContext, verificationID int32, caseNumber string, result domain.EVerifyResult) (*domain.I9Verification, error) {
	if err := s.authorize(ctx, rc, domain.ResourceI9Verification, domain.ActionEmployer); err != nil {
		return nil, err
	}
	event, ok := result.Event()
	if !ok {
		return nil, domain.Fail(domain.FailureInvalidEVerifyResult, fmt.Sprintf("unknown result %q", result))
	}

	var v *domain.I9Verification
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if v, err = loadVerification(ctx, repos, rc, verificationID); err != nil {
			return err
		}
		from := v.Status
		next, effects, err := domain.I9Transition(from, event)
		if err != nil {
			return err
		}
		if caseNumber != "" {
			v.EVerifyCaseNumber = caseNumber
		}
		v.EVerifyResult = &result
		v.Status = next

		out.transitioned(string(event))
		return s.save(ctx, repos, rc, out, v, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CompleteSection3 reverifies a verified employee and extends a time limited
// work authorization to the new document's expiration.
func (s *i9Service) CompleteSection3(ctx context.Context, rc domain.RequestContext, verificationID int32, in domain.Section3Input) (*domain.I9Verification, error) {
	if err := s.authorize(ctx, rc, domain.ResourceI9Verification, domain.ActionEmployer); err != nil {
		return nil, err
	}

	var v *domain.I9Verification
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if v, err = loadVerification(ctx, repos, rc, verificationID); err != nil {
			return err
		}
		from := v.Status
		next, effects, err := domain.I9Transition(from, domain.I9EventReverify)
		if err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}

		now := s.now()
		v.Section3CompletedAt = &now
		v.Section3RehireDate = in.RehireDate
		v.Section3DocumentTitle = in.DocumentTitle
		v.Section3DocumentNumber = in.DocumentNumber
		v.Section3DocumentExpiration = in.DocumentExpiration
		v.Status = next

		auth, err := repos.I9.GetWorkAuthorization(ctx, v.ID)
		switch {
		case err == nil && !auth.Indefinite:
			// a rehire may present no new document; the current limit stands
			if in.DocumentExpiration == nil {
				if in.RehireDate == nil {
					return domain.Fail(domain.FailureReverificationDocument,
						"reverifying a time limited authorization requires the new document's expiration date")
				}
				break
			}
			if err := repos.I9.ExtendWorkAuthorization(ctx, auth.ID, *in.DocumentExpiration); err != nil {
				return fmt.Errorf("failed to extend work authorization: %w", err)
			}
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("failed to load work authorization: %w", err)
		}

		out.transitioned(string(domain.I9EventReverify))
		return s.save(ctx, repos, rc, out, v, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Expire marks a verified employee expired once a time limited authorization
// has lapsed. Nothing calls it on a timer.
func (s *i9Service) Expire(ctx context.Context, rc domain.RequestContext, verificationID int32) (*domain.I9Verification, error) {
	if err := s.authorize(ctx, rc, domain.ResourceI9Verification, domain.ActionEmployer); err != nil {
		return nil, err
	}

	var v *domain.I9Verification
	err := s.run(ctx, func(ctx context.Context, repos *repository.Repositories, out *outbox) error {
		var err error
		if v, err = loadVerification(ctx, repos, rc, verificationID); err != nil {
			return err
		}
		from := v.Status
		next, effects, err := domain.I9Transition(from, domain.I9EventExpire)
		if err != nil {
			return err
		}
		auth, err := repos.I9.GetWorkAuthorization(ctx, v.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to load work authorization: %w", err)
		}
		if auth == nil || !auth.ExpiredOn(utils.DateOnly(s.now())) {
			return domain.Fail(domain.FailureAuthorizationNotExpired)
		}
		v.Status = next

		out.transitioned(string(domain.I9EventExpire))
		return s.save(ctx, repos, rc, out, v, from, effects)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *i9Service) Get(ctx context.Context, rc domain.RequestContext, verificationID int32) (*domain.I9Verification, error) {
	if err := s.authorize(ctx, rc, domain.ResourceI9Verification, domain.ActionRead); err != nil {
		return nil, err
	}
	var v *domain.I9Verification
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if v, err = loadVerification(ctx, repos, rc, verificationID); err != nil {
			return err
		}
		if v.Documents, err = repos.I9.ListDocuments(ctx, v.ID); err != nil {
			return fmt.Errorf("failed to list i9 documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// step applies one event and accumulates its effects.
func (s *i9Service) step(state domain.I9Status, event statemachine.Event, effects *[]domain.Effect, out *outbox) (domain.I9Status, error) {
	next, fx, err := domain.I9Transition(state, event)
	if err != nil {
		return "", err
	}
	*effects = append(*effects, fx...)
	out.transitioned(string(event))
	return next, nil
}

// save writes v if its stored status is still from, mirrors the status onto
// the application and runs the effects.
func (s *i9Service) save(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, out *outbox, v *domain.I9Verification, from domain.I9Status, effects []domain.Effect) error {
	now := s.now()
	v.UpdatedAt = now
	if err := repos.I9.Update(ctx, v, from); err != nil {
		return staleFailure(err, domain.FailureInvalidTransition, "verification changed concurrently")
	}
	if err := repos.Applications.UpdateI9Status(ctx, v.ApplicationID, v.Status, now); err != nil {
		return fmt.Errorf("failed to mirror i9 status: %w", err)
	}
	return s.effects(ctx, repos, rc, out, v, effects)
}

func (s *i9Service) effects(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, out *outbox, v *domain.I9Verification, effects []domain.Effect) error {
	if err := s.audit(ctx, repos, rc, effects, entityI9Verification, v.ID,
		map[string]any{"application_id": v.ApplicationID, "status": v.Status}); err != nil {
		return err
	}

	tmpls := templates(effects)
	if len(tmpls) == 0 {
		return nil
	}
	admins, err := repos.Members.ListAdmins(ctx, v.OrganizationID)
	if err != nil {
		logger.WarnContext(ctx, "Failed to list admins for i9 notification", "verificationID", v.ID, "error", err)
	}
	adminIDs := make([]int32, 0, len(admins))
	for _, m := range admins {
		adminIDs = append(adminIDs, m.UserID)
	}
	staff := memberRecipients(ctx, repos, 0, adminIDs...)

	var candidate []domain.Recipient
	data := map[string]string{
		"status":            string(v.Status),
		"deadline_section1": utils.FormatDate(v.DeadlineSection1),
		"deadline_section2": utils.FormatDate(v.DeadlineSection2),
	}
	for _, tmpl := range tmpls {
		recipients := staff
		if candidateI9Templates[tmpl] {
			if candidate == nil {
				if app, err := repos.Applications.GetByID(ctx, v.ApplicationID); err == nil {
					_, candidate = candidateRecipient(ctx, repos, app)
				}
			}
			recipients = append(append([]domain.Recipient{}, staff...), candidate...)
		}
		out.notify(domain.Message{
			Template:       tmpl,
			OrganizationID: v.OrganizationID,
			Recipients:     recipients,
			EntityType:     entityI9Verification,
			EntityID:       v.ID,
			Data:           data,
		})
	}
	return nil
}

// loadVerification reads a verification in the caller's organization.
func loadVerification(ctx context.Context, repos *repository.Repositories, rc domain.RequestContext, id int32) (*domain.I9Verification, error) {
	v, err := repos.I9.GetByID(ctx, id)
	if err != nil {
		return nil, lookupFailure(err, domain.FailureVerificationNotFound, "verification")
	}
	if v.OrganizationID != rc.OrganizationID {
		return nil, domain.Fail(domain.FailureVerificationNotFound)
	}
	return v, nil
}
