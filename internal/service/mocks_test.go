package service_test

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// fakeTx runs fn directly against the mocked repositories.
type fakeTx struct {
	repos *repository.Repositories
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	f.calls++
	return fn(ctx, f.repos)
}

// mocks bundles one mock per repository.
type mocks struct {
	apps        *MockApplicationRepo
	candidates  *MockCandidateRepo
	stages      *MockStageRepo
	catalog     *MockStageCatalog
	transitions *MockTransitionRepo
	reasons     *MockRejectionReasonRepo
	jobs        *MockJobRepo
	offers      *MockOfferRepo
	approvables *MockApprovableRepo
	approvals   *MockApprovalRepo
	decisions   *MockDecisionRepo
	i9          *MockI9Repo
	adverse     *MockAdverseActionRepo
	audit       *MockAuditRepo
	users       *MockUserRepo
	members     *MockMemberRepo
	orgs        *MockOrganizationRepo
	notifier    *MockNotifier
	tx          *fakeTx
}

func newMocks() *mocks {
	m := &mocks{
		apps:        new(MockApplicationRepo),
		candidates:  new(MockCandidateRepo),
		stages:      new(MockStageRepo),
		catalog:     new(MockStageCatalog),
		transitions: new(MockTransitionRepo),
		reasons:     new(MockRejectionReasonRepo),
		jobs:        new(MockJobRepo),
		offers:      new(MockOfferRepo),
		approvables: new(MockApprovableRepo),
		approvals:   new(MockApprovalRepo),
		decisions:   new(MockDecisionRepo),
		i9:          new(MockI9Repo),
		adverse:     new(MockAdverseActionRepo),
		audit:       new(MockAuditRepo),
		users:       new(MockUserRepo),
		members:     new(MockMemberRepo),
		orgs:        new(MockOrganizationRepo),
		notifier:    new(MockNotifier),
	}
	m.tx = &fakeTx{repos: &repository.Repositories{
		Applications:     m.apps,
		Candidates:       m.candidates,
		Stages:           m.stages,
		StageCatalog:     m.catalog,
		Transitions:      m.transitions,
		RejectionReasons: m.reasons,
		Jobs:             m.jobs,
		Offers:           m.offers,
		Approvables:      m.approvables,
		Approvals:        m.approvals,
		Decisions:        m.decisions,
		I9:               m.i9,
		AdverseActions:   m.adverse,
		Audit:            m.audit,
		Users:            m.users,
		Members:          m.members,
		Organizations:    m.orgs,
	}}
	return m
}

// allowAudit accepts any audit append.
func (m *mocks) allowAudit() {
	m.audit.On("Append", mock.Anything, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)
}

// auditActions lists the actions appended so far.
func (m *mocks) auditActions() []string {
	var actions []string
	for _, c := range m.audit.Calls {
		if c.Method == "Append" {
			actions = append(actions, c.Arguments.Get(1).(*domain.AuditEntry).Action)
		}
	}
	return actions
}

// MockApplicationRepo
type MockApplicationRepo struct {
	mock.Mock
}

func (m *MockApplicationRepo) GetByID(ctx context.Context, id int32) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) GetForUpdate(ctx context.Context, id int32) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) UpdateStage(ctx context.Context, id, stageID int32, at time.Time) error {
	args := m.Called(ctx, id, stageID, at)
	return args.Error(0)
}
func (m *MockApplicationRepo) UpdateStatus(ctx context.Context, id int32, from, to domain.ApplicationStatus, at time.Time) error {
	args := m.Called(ctx, id, from, to, at)
	return args.Error(0)
}
func (m *MockApplicationRepo) UpdateI9Status(ctx context.Context, id int32, status domain.I9Status, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

// MockCandidateRepo
type MockCandidateRepo struct {
	mock.Mock
}

func (m *MockCandidateRepo) GetByID(ctx context.Context, id int32) (*domain.Candidate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Candidate), args.Error(1)
}

// MockStageRepo
type MockStageRepo struct {
	mock.Mock
}

func (m *MockStageRepo) GetByID(ctx context.Context, id int32) (*domain.Stage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stage), args.Error(1)
}
func (m *MockStageRepo) FindOrCreateRejected(ctx context.Context, orgID int32) (*domain.Stage, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stage), args.Error(1)
}

// MockStageCatalog
type MockStageCatalog struct {
	mock.Mock
}

func (m *MockStageCatalog) StagesFor(ctx context.Context, jobID int32) ([]domain.Stage, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]domain.Stage), args.Error(1)
}

// MockTransitionRepo
type MockTransitionRepo struct {
	mock.Mock
}

func (m *MockTransitionRepo) Create(ctx context.Context, t *domain.StageTransition) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
func (m *MockTransitionRepo) ListByApplication(ctx context.Context, applicationID int32) ([]domain.StageTransition, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).([]domain.StageTransition), args.Error(1)
}

// MockRejectionReasonRepo
type MockRejectionReasonRepo struct {
	mock.Mock
}

func (m *MockRejectionReasonRepo) GetByID(ctx context.Context, id int32) (*domain.RejectionReason, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RejectionReason), args.Error(1)
}

// MockJobRepo
type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) GetByID(ctx context.Context, id int32) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

// MockApprovableRepo
type MockOfferRepo struct {
	mock.Mock
}

func (m *MockOfferRepo) GetByID(ctx context.Context, id int32) (*domain.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

type MockApprovableRepo struct {
	mock.Mock
}

func (m *MockApprovableRepo) Lock(ctx context.Context, ref domain.ApprovableRef) (int32, domain.ApprovableStatus, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(int32), args.Get(1).(domain.ApprovableStatus), args.Error(2)
}
func (m *MockApprovableRepo) SetStatus(ctx context.Context, ref domain.ApprovableRef, from, to domain.ApprovableStatus) error {
	args := m.Called(ctx, ref, from, to)
	return args.Error(0)
}

// MockApprovalRepo
type MockApprovalRepo struct {
	mock.Mock
}

func (m *MockApprovalRepo) Create(ctx context.Context, r *domain.ApprovalRecord) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockApprovalRepo) GetByID(ctx context.Context, id int32) (*domain.ApprovalRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApprovalRecord), args.Error(1)
}
func (m *MockApprovalRepo) ListByApprovable(ctx context.Context, ref domain.ApprovableRef) ([]domain.ApprovalRecord, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).([]domain.ApprovalRecord), args.Error(1)
}
func (m *MockApprovalRepo) Resolve(ctx context.Context, id int32, status domain.ApprovalStatus, comments string, at time.Time) error {
	args := m.Called(ctx, id, status, comments, at)
	return args.Error(0)
}
func (m *MockApprovalRepo) CloseRemaining(ctx context.Context, ref domain.ApprovableRef, at time.Time) (int64, error) {
	args := m.Called(ctx, ref, at)
	return args.Get(0).(int64), args.Error(1)
}

// MockDecisionRepo
type MockDecisionRepo struct {
	mock.Mock
}

func (m *MockDecisionRepo) Create(ctx context.Context, d *domain.HiringDecision) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
func (m *MockDecisionRepo) GetByID(ctx context.Context, id int32) (*domain.HiringDecision, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HiringDecision), args.Error(1)
}
func (m *MockDecisionRepo) HasPending(ctx context.Context, applicationID int32) (bool, error) {
	args := m.Called(ctx, applicationID)
	return args.Bool(0), args.Error(1)
}
func (m *MockDecisionRepo) ListByApplication(ctx context.Context, applicationID int32) ([]domain.HiringDecision, error) {
	args := m.Called(ctx, applicationID)
	return args.Get(0).([]domain.HiringDecision), args.Error(1)
}
func (m *MockDecisionRepo) Resolve(ctx context.Context, id int32, status domain.DecisionStatus, approvedBy int32, rejectionReason string, at time.Time) error {
	args := m.Called(ctx, id, status, approvedBy, rejectionReason, at)
	return args.Error(0)
}

// MockI9Repo
type MockI9Repo struct {
	mock.Mock
}

func (m *MockI9Repo) Create(ctx context.Context, v *domain.I9Verification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}
func (m *MockI9Repo) GetByID(ctx context.Context, id int32) (*domain.I9Verification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.I9Verification), args.Error(1)
}
func (m *MockI9Repo) GetByApplication(ctx context.Context, applicationID int32) (*domain.I9Verification, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.I9Verification), args.Error(1)
}
func (m *MockI9Repo) Update(ctx context.Context, v *domain.I9Verification, from domain.I9Status) error {
	args := m.Called(ctx, v, from)
	return args.Error(0)
}
func (m *MockI9Repo) ListBySection2Deadline(ctx context.Context, dueBy time.Time) ([]domain.I9Verification, error) {
	args := m.Called(ctx, dueBy)
	return args.Get(0).([]domain.I9Verification), args.Error(1)
}
func (m *MockI9Repo) ListExpiringWorkAuthorizations(ctx context.Context, from, to time.Time) ([]domain.WorkAuthorization, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.WorkAuthorization), args.Error(1)
}
func (m *MockI9Repo) AddDocument(ctx context.Context, d *domain.I9Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
func (m *MockI9Repo) ListDocuments(ctx context.Context, verificationID int32) ([]domain.I9Document, error) {
	args := m.Called(ctx, verificationID)
	return args.Get(0).([]domain.I9Document), args.Error(1)
}
func (m *MockI9Repo) CreateWorkAuthorization(ctx context.Context, w *domain.WorkAuthorization) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}
func (m *MockI9Repo) GetWorkAuthorization(ctx context.Context, verificationID int32) (*domain.WorkAuthorization, error) {
	args := m.Called(ctx, verificationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkAuthorization), args.Error(1)
}
func (m *MockI9Repo) ExtendWorkAuthorization(ctx context.Context, id int32, validUntil time.Time) error {
	args := m.Called(ctx, id, validUntil)
	return args.Error(0)
}

// MockAdverseActionRepo
type MockAdverseActionRepo struct {
	mock.Mock
}

func (m *MockAdverseActionRepo) Create(ctx context.Context, a *domain.AdverseAction) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAdverseActionRepo) GetByID(ctx context.Context, id int32) (*domain.AdverseAction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdverseAction), args.Error(1)
}
func (m *MockAdverseActionRepo) GetForUpdate(ctx context.Context, id int32) (*domain.AdverseAction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdverseAction), args.Error(1)
}
func (m *MockAdverseActionRepo) HasActive(ctx context.Context, applicationID int32) (bool, error) {
	args := m.Called(ctx, applicationID)
	return args.Bool(0), args.Error(1)
}
func (m *MockAdverseActionRepo) Update(ctx context.Context, a *domain.AdverseAction, from domain.AdverseActionStatus) error {
	args := m.Called(ctx, a, from)
	return args.Error(0)
}
func (m *MockAdverseActionRepo) ListWaitingPeriodEnded(ctx context.Context, now time.Time) ([]domain.AdverseAction, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.AdverseAction), args.Error(1)
}

// MockAuditRepo
type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Append(ctx context.Context, e *domain.AuditEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *MockAuditRepo) ListByEntity(ctx context.Context, entityType string, entityID int32) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, entityType, entityID)
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockMemberRepo
type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) Get(ctx context.Context, orgID, userID int32) (*domain.Member, error) {
	args := m.Called(ctx, orgID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMemberRepo) ListAdmins(ctx context.Context, orgID int32) ([]domain.Member, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).([]domain.Member), args.Error(1)
}

// MockOrganizationRepo
type MockOrganizationRepo struct {
	mock.Mock
}

func (m *MockOrganizationRepo) GetByID(ctx context.Context, id int32) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int32) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Enqueue(ctx context.Context, msg domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// templatesSent lists the templates enqueued so far.
func (m *MockNotifier) templatesSent() []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "Enqueue" {
			out = append(out, c.Arguments.Get(1).(domain.Message).Template)
		}
	}
	return out
}

// denyAll rejects every authorization check.
type denyAll struct{}

func (denyAll) Authorize(context.Context, domain.RequestContext, string, string) bool { return false }
