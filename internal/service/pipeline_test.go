package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"
	"hireflow-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 1, 23, 10, 0, 0, 0, time.UTC)
	clock    = func() time.Time { return fixedNow }
	rc       = domain.RequestContext{ActorID: 7, OrganizationID: 10, IP: "10.0.0.1", UserAgent: "test"}
)

func int32Ptr(v int32) *int32 { return &v }

func activeApplication() *domain.Application {
	return &domain.Application{
		ID:             1,
		OrganizationID: 10,
		JobID:          5,
		CandidateID:    30,
		Status:         domain.ApplicationStatusActive,
		CurrentStageID: int32Ptr(2),
	}
}

func TestPipelineService_MoveStage(t *testing.T) {
	ctx := context.Background()
	interview := &domain.Stage{ID: 3, OrganizationID: 10, Name: "Interview", Position: 2}

	t.Run("Success", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)

		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.stages.On("GetByID", ctx, int32(3)).Return(interview, nil)
		m.catalog.On("StagesFor", ctx, int32(5)).Return([]domain.Stage{{ID: 2}, {ID: 3}}, nil)
		m.transitions.On("Create", ctx, mock.AnythingOfType("*domain.StageTransition")).Return(nil)
		m.apps.On("UpdateStage", ctx, int32(1), int32(3), fixedNow).Return(nil)
		m.allowAudit()

		transition, err := svc.MoveStage(ctx, rc, 1, 3, "strong screen")
		require.NoError(t, err)
		require.NotNil(t, transition.FromStageID)
		assert.Equal(t, int32(2), *transition.FromStageID)
		assert.Equal(t, int32(3), transition.ToStageID)
		assert.Equal(t, int32(7), transition.MovedBy)
		assert.Equal(t, fixedNow, transition.CreatedAt)

		// the application's current stage is the transition's target
		m.apps.AssertCalled(t, "UpdateStage", ctx, int32(1), transition.ToStageID, fixedNow)
		assert.Equal(t, []string{"application.stage_changed"}, m.auditActions())
		m.notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("First stage has no from stage", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		app := activeApplication()
		app.CurrentStageID = nil

		m.apps.On("GetForUpdate", ctx, int32(1)).Return(app, nil)
		m.stages.On("GetByID", ctx, int32(3)).Return(interview, nil)
		m.catalog.On("StagesFor", ctx, int32(5)).Return([]domain.Stage{{ID: 3}}, nil)
		m.transitions.On("Create", ctx, mock.AnythingOfType("*domain.StageTransition")).Return(nil)
		m.apps.On("UpdateStage", ctx, int32(1), int32(3), fixedNow).Return(nil)
		m.allowAudit()

		transition, err := svc.MoveStage(ctx, rc, 1, 3, "")
		require.NoError(t, err)
		assert.Nil(t, transition.FromStageID)
	})

	failures := []struct {
		name  string
		app   func() *domain.Application
		stage *domain.Stage
		err   error
		code  domain.FailureCode
	}{
		{
			name: "Application missing",
			err:  repository.ErrNotFound,
			code: domain.FailureApplicationNotFound,
		},
		{
			name: "Other organization",
			app: func() *domain.Application {
				a := activeApplication()
				a.OrganizationID = 99
				return a
			},
			code: domain.FailureApplicationNotFound,
		},
		{
			name: "Not active",
			app: func() *domain.Application {
				a := activeApplication()
				a.Status = domain.ApplicationStatusHired
				return a
			},
			code: domain.FailureApplicationNotActive,
		},
		{
			name: "Discarded",
			app: func() *domain.Application {
				a := activeApplication()
				a.DiscardedAt = &fixedNow
				return a
			},
			code: domain.FailureApplicationDiscarded,
		},
		{
			name:  "Stage of another organization",
			app:   activeApplication,
			stage: &domain.Stage{ID: 3, OrganizationID: 11},
			code:  domain.FailureStageWrongOrganization,
		},
		{
			name:  "Same stage",
			app:   activeApplication,
			stage: &domain.Stage{ID: 2, OrganizationID: 10, Name: "Screen"},
			code:  domain.FailureSameStage,
		},
		{
			name:  "Stage outside job",
			app:   activeApplication,
			stage: &domain.Stage{ID: 4, OrganizationID: 10, Name: "Offer"},
			code:  domain.FailureStageNotInJob,
		},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			m := newMocks()
			svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)

			if tc.app == nil {
				m.apps.On("GetForUpdate", ctx, int32(1)).Return(nil, tc.err)
			} else {
				m.apps.On("GetForUpdate", ctx, int32(1)).Return(tc.app(), nil)
			}
			stage := tc.stage
			if stage == nil {
				stage = interview
			}
			m.stages.On("GetByID", ctx, stage.ID).Return(stage, nil)
			m.catalog.On("StagesFor", ctx, int32(5)).Return([]domain.Stage{{ID: 2}, {ID: 3}}, nil)

			transition, err := svc.MoveStage(ctx, rc, 1, stage.ID, "")
			assert.Nil(t, transition)
			assert.True(t, domain.IsFailure(err, tc.code), "got %v", err)
			m.transitions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			m.apps.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("Unknown stage", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.stages.On("GetByID", ctx, int32(42)).Return(nil, repository.ErrNotFound)

		_, err := svc.MoveStage(ctx, rc, 1, 42, "")
		assert.True(t, domain.IsFailure(err, domain.FailureStageNotFound))
	})

	t.Run("Not authorized", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, denyAll{}, clock)

		_, err := svc.MoveStage(ctx, rc, 1, 3, "")
		assert.True(t, domain.IsFailure(err, domain.FailureNotAuthorized))
		assert.Equal(t, 0, m.tx.calls)
	})
}

func TestPipelineService_Reject(t *testing.T) {
	ctx := context.Background()
	rejected := &domain.Stage{ID: 99, OrganizationID: 10, Name: domain.RejectedStageName, StageType: domain.StageTypeRejected}
	reason := &domain.RejectionReason{ID: 4, OrganizationID: 10, Name: "Not a fit"}

	setup := func(m *mocks) {
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.reasons.On("GetByID", ctx, int32(4)).Return(reason, nil)
		m.stages.On("FindOrCreateRejected", ctx, int32(10)).Return(rejected, nil)
		m.transitions.On("Create", ctx, mock.AnythingOfType("*domain.StageTransition")).Return(nil)
		m.apps.On("UpdateStage", ctx, int32(1), int32(99), fixedNow).Return(nil)
		m.apps.On("UpdateStatus", ctx, int32(1), domain.ApplicationStatusActive, domain.ApplicationStatusRejected, fixedNow).Return(nil)
		m.candidates.On("GetByID", ctx, int32(30)).Return(&domain.Candidate{ID: 30, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, nil)
		m.allowAudit()
	}

	t.Run("Success", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		setup(m)
		m.notifier.On("Enqueue", ctx, mock.MatchedBy(func(msg domain.Message) bool {
			return msg.Template == "application_rejected" && len(msg.Recipients) == 1 &&
				msg.Recipients[0].Email == "ada@example.com" && msg.Recipients[0].UserID == 0
		})).Return(nil)

		transition, err := svc.Reject(ctx, rc, 1, 4, "Went with another candidate")
		require.NoError(t, err)
		assert.Equal(t, int32(99), transition.ToStageID)
		assert.Equal(t, "Reason: Not a fit\nWent with another candidate", transition.Notes)
		assert.Equal(t, []string{"application.rejected"}, m.auditActions())
		m.notifier.AssertExpectations(t)
	})

	t.Run("Notes omitted", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		setup(m)
		m.notifier.On("Enqueue", ctx, mock.Anything).Return(nil)

		transition, err := svc.Reject(ctx, rc, 1, 4, "  ")
		require.NoError(t, err)
		assert.Equal(t, "Reason: Not a fit", transition.Notes)
	})

	t.Run("Notification failure keeps the rejection", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		setup(m)
		m.notifier.On("Enqueue", ctx, mock.Anything).Return(errors.New("queue full"))

		_, err := svc.Reject(ctx, rc, 1, 4, "")
		assert.NoError(t, err)
	})

	t.Run("Already rejected", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		app := activeApplication()
		app.Status = domain.ApplicationStatusRejected
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(app, nil)

		_, err := svc.Reject(ctx, rc, 1, 4, "")
		assert.True(t, domain.IsFailure(err, domain.FailureCannotReject))
		m.stages.AssertNotCalled(t, "FindOrCreateRejected", mock.Anything, mock.Anything)
		m.notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("Unknown reason", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.reasons.On("GetByID", ctx, int32(4)).Return(nil, repository.ErrNotFound)

		_, err := svc.Reject(ctx, rc, 1, 4, "")
		assert.True(t, domain.IsFailure(err, domain.FailureRejectionReasonNotFound))
	})

	t.Run("Concurrent status change", func(t *testing.T) {
		m := newMocks()
		svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)
		m.apps.On("GetForUpdate", ctx, int32(1)).Return(activeApplication(), nil)
		m.reasons.On("GetByID", ctx, int32(4)).Return(reason, nil)
		m.stages.On("FindOrCreateRejected", ctx, int32(10)).Return(rejected, nil)
		m.transitions.On("Create", ctx, mock.Anything).Return(nil)
		m.apps.On("UpdateStage", ctx, int32(1), int32(99), fixedNow).Return(nil)
		m.apps.On("UpdateStatus", ctx, int32(1), domain.ApplicationStatusActive, domain.ApplicationStatusRejected, fixedNow).
			Return(repository.ErrStaleState)

		_, err := svc.Reject(ctx, rc, 1, 4, "")
		assert.True(t, domain.IsFailure(err, domain.FailureCannotReject))
		m.notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})
}

func TestPipelineService_History(t *testing.T) {
	ctx := context.Background()
	m := newMocks()
	svc := service.NewPipelineService(m.tx, m.notifier, nil, clock)

	m.apps.On("GetByID", ctx, int32(1)).Return(activeApplication(), nil)
	m.transitions.On("ListByApplication", ctx, int32(1)).Return([]domain.StageTransition{
		{ID: 1, ApplicationID: 1, ToStageID: 1},
		{ID: 2, ApplicationID: 1, FromStageID: int32Ptr(1), ToStageID: 2},
	}, nil)

	history, err := svc.History(ctx, rc, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// latest transition matches the application's current stage
	assert.Equal(t, *activeApplication().CurrentStageID, history[len(history)-1].ToStageID)
}
