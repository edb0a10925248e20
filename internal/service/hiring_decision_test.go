package service_test

import (
	"context"
	"testing"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"
	"hireflow-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func engineeringJob() *domain.Job {
	return &domain.Job{ID: 5, OrganizationID: 10, Title: "Engineer", Status: domain.JobStatusApproved, OwnerID: 7, HiringManagerID: int32Ptr(8)}
}

func member(userID int32, role domain.MemberRole) *domain.Member {
	return &domain.Member{UserID: userID, OrganizationID: 10, Role: role, Active: true}
}

func TestHiringDecisionService_Create(t *testing.T) {
	ctx := context.Background()
	params := service.CreateDecisionParams{
		ApplicationID:  1,
		Decision:       domain.DecisionHire,
		Rationale:      "Great interviews",
		ProposedSalary: decimal.NewNullDecimal(decimal.RequireFromString("125000.00")),
	}

	setup := func(m *mocks, job *domain.Job, decider *domain.Member) {
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.stages.On("GetByID", ctx, int32(2)).Return(&domain.Stage{ID: 2, OrganizationID: 10, StageType: domain.StageTypeStandard}, nil)
		m.jobs.On("GetByID", ctx, int32(5)).Return(job, nil)
		if decider == nil {
			m.members.On("Get", ctx, int32(10), int32(7)).Return(nil, repository.ErrNotFound)
		} else {
			m.members.On("Get", ctx, int32(10), int32(7)).Return(decider, nil)
		}
		m.decisions.On("HasPending", ctx, int32(1)).Return(false, nil)
		m.decisions.On("Create", ctx, mock.AnythingOfType("*domain.HiringDecision")).Return(nil)
		m.allowAudit()
	}

	t.Run("Pending decision notifies approvers except the decider", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, engineeringJob(), member(7, domain.MemberRoleRecruiter))
		m.users.On("GetByID", ctx, int32(8)).Return(&domain.User{ID: 8, Email: "hm@example.com", Name: "Hiring Manager"}, nil)
		m.notifier.On("Enqueue", ctx, mock.MatchedBy(func(msg domain.Message) bool {
			return msg.Template == "hiring_decision_approval_requested" &&
				len(msg.Recipients) == 1 && msg.Recipients[0].UserID == 8
		})).Return(nil)

		decision, err := svc.Create(ctx, rc, params)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionStatusPending, decision.Status)
		assert.Nil(t, decision.ApprovedBy)
		assert.Equal(t, int32(7), decision.DecidedBy)
		assert.True(t, decision.ProposedSalary.Valid)
		assert.Equal(t, fixedNow, decision.DecidedAt)
		m.users.AssertNotCalled(t, "GetByID", mock.Anything, int32(7))
		m.notifier.AssertExpectations(t)
	})

	t.Run("Approvers are deduplicated", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		job := engineeringJob()
		job.OwnerID = 8
		setup(m, job, member(7, domain.MemberRoleAdmin))
		m.users.On("GetByID", ctx, int32(8)).Return(&domain.User{ID: 8, Email: "hm@example.com"}, nil).Once()
		m.notifier.On("Enqueue", ctx, mock.MatchedBy(func(msg domain.Message) bool {
			return len(msg.Recipients) == 1
		})).Return(nil)

		_, err := svc.Create(ctx, rc, params)
		require.NoError(t, err)
		m.users.AssertExpectations(t)
	})

	t.Run("Without approval the decider approves", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, engineeringJob(), member(7, domain.MemberRoleAdmin))

		direct := params
		direct.SkipApproval = true
		decision, err := svc.Create(ctx, rc, direct)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionStatusApproved, decision.Status)
		require.NotNil(t, decision.ApprovedBy)
		assert.Equal(t, int32(7), *decision.ApprovedBy)
		require.NotNil(t, decision.ApprovedAt)
		assert.Equal(t, decision.DecidedAt, *decision.ApprovedAt)
		m.notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("Omitted approval flag leaves the decision pending", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, engineeringJob(), member(7, domain.MemberRoleRecruiter))
		m.users.On("GetByID", ctx, int32(8)).Return(&domain.User{ID: 8, Email: "hm@example.com"}, nil)
		m.notifier.On("Enqueue", ctx, mock.Anything).Return(nil)

		decision, err := svc.Create(ctx, rc, service.CreateDecisionParams{
			ApplicationID: 1,
			Decision:      domain.DecisionHire,
			Rationale:     "x",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionStatusPending, decision.Status)
		assert.Nil(t, decision.ApprovedBy)
		assert.Nil(t, decision.ApprovedAt)
	})

	t.Run("Hiring manager may decide without a privileged role", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		job := engineeringJob()
		job.HiringManagerID = int32Ptr(7)
		job.OwnerID = 7
		setup(m, job, member(7, domain.MemberRoleInterviewer))

		_, err := svc.Create(ctx, rc, params)
		assert.NoError(t, err)
	})

	t.Run("Second pending decision", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.stages.On("GetByID", ctx, int32(2)).Return(&domain.Stage{ID: 2, OrganizationID: 10}, nil)
		m.jobs.On("GetByID", ctx, int32(5)).Return(engineeringJob(), nil)
		m.members.On("Get", ctx, int32(10), int32(7)).Return(member(7, domain.MemberRoleRecruiter), nil)
		m.decisions.On("HasPending", ctx, int32(1)).Return(true, nil)

		_, err := svc.Create(ctx, rc, params)
		assert.True(t, domain.IsFailure(err, domain.FailurePendingDecisionExists))
		m.decisions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Unique index race", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.stages.On("GetByID", ctx, int32(2)).Return(&domain.Stage{ID: 2, OrganizationID: 10}, nil)
		m.jobs.On("GetByID", ctx, int32(5)).Return(engineeringJob(), nil)
		m.members.On("Get", ctx, int32(10), int32(7)).Return(member(7, domain.MemberRoleRecruiter), nil)
		m.decisions.On("HasPending", ctx, int32(1)).Return(false, nil)
		m.decisions.On("Create", ctx, mock.Anything).Return(repository.ErrConflict)

		_, err := svc.Create(ctx, rc, params)
		assert.True(t, domain.IsFailure(err, domain.FailurePendingDecisionExists))
	})

	t.Run("Interviewer cannot decide", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, engineeringJob(), member(7, domain.MemberRoleInterviewer))

		_, err := svc.Create(ctx, rc, params)
		assert.True(t, domain.IsFailure(err, domain.FailureNotAuthorizedToDecide))
	})

	t.Run("Non member cannot decide", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, engineeringJob(), nil)

		_, err := svc.Create(ctx, rc, params)
		assert.True(t, domain.IsFailure(err, domain.FailureNotAuthorizedToDecide))
	})

	t.Run("Terminal stage cannot receive a decision", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.stages.On("GetByID", ctx, int32(2)).Return(&domain.Stage{ID: 2, OrganizationID: 10, StageType: domain.StageTypeHired}, nil)

		_, err := svc.Create(ctx, rc, params)
		assert.True(t, domain.IsFailure(err, domain.FailureCannotReceiveDecision))
	})

	t.Run("Inactive application", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		app := activeApplication()
		app.Status = domain.ApplicationStatusWithdrawn
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(app, nil)

		_, err := svc.Create(ctx, rc, params)
		assert.True(t, domain.IsFailure(err, domain.FailureApplicationNotActive))
	})

	t.Run("Unknown decision", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		bad := params
		bad.Decision = "maybe"

		_, err := svc.Create(ctx, rc, bad)
		assert.True(t, domain.IsFailure(err, domain.FailureInvalidDecision))
		assert.Equal(t, 0, m.tx.calls)
	})
}

func TestHiringDecisionService_Resolve(t *testing.T) {
	ctx := context.Background()
	pending := func() *domain.HiringDecision {
		return &domain.HiringDecision{
			ID:             3,
			ApplicationID:  1,
			OrganizationID: 10,
			DecidedBy:      7,
			Decision:       domain.DecisionHire,
			Status:         domain.DecisionStatusPending,
			DecidedAt:      fixedNow,
		}
	}
	setup := func(m *mocks, approver int32, role domain.MemberRole) {
		m.decisions.On("GetByID", ctx, int32(3)).Return(pending(), nil)
		m.users.On("GetByID", ctx, approver).Return(&domain.User{ID: approver, Email: "approver@example.com"}, nil)
		m.users.On("GetByID", ctx, int32(7)).Return(&domain.User{ID: 7, Email: "decider@example.com"}, nil)
		m.apps.On("GetByID", ctx, int32(1)).Return(activeApplication(), nil)
		m.jobs.On("GetByID", ctx, int32(5)).Return(engineeringJob(), nil)
		m.members.On("Get", ctx, int32(10), approver).Return(member(approver, role), nil)
		m.allowAudit()
	}

	t.Run("Hiring manager approves", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, 8, domain.MemberRoleHiringManager)
		m.decisions.On("Resolve", ctx, int32(3), domain.DecisionStatusApproved, int32(8), "", fixedNow).Return(nil)
		m.notifier.On("Enqueue", ctx, mock.MatchedBy(func(msg domain.Message) bool {
			return msg.Template == "hiring_decision_resolved" && msg.Recipients[0].UserID == 7
		})).Return(nil)

		decision, err := svc.Resolve(ctx, as(8), 3, domain.DecisionActionApprove, "")
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionStatusApproved, decision.Status)
		assert.Equal(t, int32(8), *decision.ApprovedBy)
		assert.Equal(t, fixedNow, *decision.ApprovedAt)
		m.notifier.AssertExpectations(t)
	})

	t.Run("Senior recruiter rejects with reason", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, 9, domain.MemberRoleSeniorRecruiter)
		m.decisions.On("Resolve", ctx, int32(3), domain.DecisionStatusRejected, int32(9), "Budget freeze", fixedNow).Return(nil)
		m.notifier.On("Enqueue", ctx, mock.Anything).Return(nil)

		decision, err := svc.Resolve(ctx, as(9), 3, domain.DecisionActionReject, "Budget freeze")
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionStatusRejected, decision.Status)
		assert.Equal(t, "Budget freeze", decision.RejectionReason)
	})

	t.Run("Self approval is forbidden even for admins", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, 7, domain.MemberRoleAdmin)

		_, err := svc.Resolve(ctx, as(7), 3, domain.DecisionActionApprove, "")
		assert.True(t, domain.IsFailure(err, domain.FailureSelfApprovalForbidden))
		m.decisions.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Plain recruiter cannot approve", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, 9, domain.MemberRoleRecruiter)

		_, err := svc.Resolve(ctx, as(9), 3, domain.DecisionActionApprove, "")
		assert.True(t, domain.IsFailure(err, domain.FailureNotAuthorizedToApprove))
	})

	t.Run("Reject needs a reason", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)

		_, err := svc.Resolve(ctx, as(8), 3, domain.DecisionActionReject, " ")
		assert.True(t, domain.IsFailure(err, domain.FailureReasonRequiredForRejection))
	})

	t.Run("Unknown action", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)

		_, err := svc.Resolve(ctx, as(8), 3, "escalate", "")
		assert.True(t, domain.IsFailure(err, domain.FailureInvalidAction))
	})

	t.Run("Not pending", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		done := pending()
		done.Status = domain.DecisionStatusApproved
		m.decisions.On("GetByID", ctx, int32(3)).Return(done, nil)

		_, err := svc.Resolve(ctx, as(8), 3, domain.DecisionActionApprove, "")
		assert.True(t, domain.IsFailure(err, domain.FailureDecisionNotPending))
	})

	t.Run("Missing decision", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		m.decisions.On("GetByID", ctx, int32(3)).Return(nil, repository.ErrNotFound)

		_, err := svc.Resolve(ctx, as(8), 3, domain.DecisionActionApprove, "")
		assert.True(t, domain.IsFailure(err, domain.FailureDecisionNotFound))
	})

	t.Run("Unknown approver", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		m.decisions.On("GetByID", ctx, int32(3)).Return(pending(), nil)
		m.users.On("GetByID", ctx, int32(8)).Return(nil, repository.ErrNotFound)

		_, err := svc.Resolve(ctx, as(8), 3, domain.DecisionActionApprove, "")
		assert.True(t, domain.IsFailure(err, domain.FailureApproverNotFound))
	})

	t.Run("Concurrent resolution loses", func(t *testing.T) {
		m := newMocks()
		svc := service.NewHiringDecisionService(m.tx, nil, m.notifier, nil, clock)
		setup(m, 8, domain.MemberRoleHiringManager)
		m.decisions.On("Resolve", ctx, int32(3), domain.DecisionStatusApproved, int32(8), "", fixedNow).Return(repository.ErrStaleState)

		_, err := svc.Resolve(ctx, as(8), 3, domain.DecisionActionApprove, "")
		assert.True(t, domain.IsFailure(err, domain.FailureDecisionNotPending))
		m.notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})
}
