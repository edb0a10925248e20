package repository

import (
	"context"
	"errors"
	"time"

	"hireflow-backend/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStaleState is returned by compare-and-set updates when the row is no
	// longer in the expected state.
	ErrStaleState = errors.New("record state changed concurrently")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("record conflicts with an existing row")
)

type ApplicationRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Application, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.Application, error)
	UpdateStage(ctx context.Context, id, stageID int32, at time.Time) error
	UpdateStatus(ctx context.Context, id int32, from, to domain.ApplicationStatus, at time.Time) error
	UpdateI9Status(ctx context.Context, id int32, status domain.I9Status, at time.Time) error
}

type CandidateRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Candidate, error)
}

type StageRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Stage, error)
	// FindOrCreateRejected returns the organization's terminal rejected stage,
	// creating it on first use. Safe under concurrent callers.
	FindOrCreateRejected(ctx context.Context, orgID int32) (*domain.Stage, error)
}

// StageCatalog is the read model answering which stages a job uses.
type StageCatalog interface {
	StagesFor(ctx context.Context, jobID int32) ([]domain.Stage, error)
}

// StageTransitionRepository is append-only.
type StageTransitionRepository interface {
	Create(ctx context.Context, t *domain.StageTransition) error
	ListByApplication(ctx context.Context, applicationID int32) ([]domain.StageTransition, error)
}

type RejectionReasonRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.RejectionReason, error)
}

type JobRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Job, error)
}

type OfferRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Offer, error)
}

// ApprovableRepository reads and flips the status of whatever an approval
// chain is attached to.
type ApprovableRepository interface {
	// Lock returns the parent's organization and status, locking the row.
	Lock(ctx context.Context, ref domain.ApprovableRef) (int32, domain.ApprovableStatus, error)
	SetStatus(ctx context.Context, ref domain.ApprovableRef, from, to domain.ApprovableStatus) error
}

type ApprovalRepository interface {
	Create(ctx context.Context, r *domain.ApprovalRecord) error
	GetByID(ctx context.Context, id int32) (*domain.ApprovalRecord, error)
	ListByApprovable(ctx context.Context, ref domain.ApprovableRef) ([]domain.ApprovalRecord, error)
	// Resolve moves a pending record to status. Returns ErrStaleState when the
	// record was no longer pending.
	Resolve(ctx context.Context, id int32, status domain.ApprovalStatus, comments string, at time.Time) error
	// CloseRemaining rejects every still pending record in the chain.
	CloseRemaining(ctx context.Context, ref domain.ApprovableRef, at time.Time) (int64, error)
}

// HiringDecisionRepository has no general update or delete: a decision only
// ever leaves pending through Resolve.
type HiringDecisionRepository interface {
	Create(ctx context.Context, d *domain.HiringDecision) error
	GetByID(ctx context.Context, id int32) (*domain.HiringDecision, error)
	HasPending(ctx context.Context, applicationID int32) (bool, error)
	ListByApplication(ctx context.Context, applicationID int32) ([]domain.HiringDecision, error)
	Resolve(ctx context.Context, id int32, status domain.DecisionStatus, approvedBy int32, rejectionReason string, at time.Time) error
}

type I9Repository interface {
	Create(ctx context.Context, v *domain.I9Verification) error
	GetByID(ctx context.Context, id int32) (*domain.I9Verification, error)
	GetByApplication(ctx context.Context, applicationID int32) (*domain.I9Verification, error)
	// Update persists v only if the stored status still equals from.
	Update(ctx context.Context, v *domain.I9Verification, from domain.I9Status) error
	ListBySection2Deadline(ctx context.Context, dueBy time.Time) ([]domain.I9Verification, error)

	AddDocument(ctx context.Context, d *domain.I9Document) error
	ListDocuments(ctx context.Context, verificationID int32) ([]domain.I9Document, error)

	CreateWorkAuthorization(ctx context.Context, w *domain.WorkAuthorization) error
	GetWorkAuthorization(ctx context.Context, verificationID int32) (*domain.WorkAuthorization, error)
	ExtendWorkAuthorization(ctx context.Context, id int32, validUntil time.Time) error
	// ListExpiringWorkAuthorizations returns time-limited authorizations of
	// verified employees whose valid_until falls in [from, to).
	ListExpiringWorkAuthorizations(ctx context.Context, from, to time.Time) ([]domain.WorkAuthorization, error)
}

type AdverseActionRepository interface {
	Create(ctx context.Context, a *domain.AdverseAction) error
	GetByID(ctx context.Context, id int32) (*domain.AdverseAction, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.AdverseAction, error)
	HasActive(ctx context.Context, applicationID int32) (bool, error)
	// Update persists a only if the stored status still equals from.
	Update(ctx context.Context, a *domain.AdverseAction, from domain.AdverseActionStatus) error
	ListWaitingPeriodEnded(ctx context.Context, now time.Time) ([]domain.AdverseAction, error)
}

// AuditRepository is an append-only sink.
type AuditRepository interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
	ListByEntity(ctx context.Context, entityType string, entityID int32) ([]domain.AuditEntry, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
}

type MemberRepository interface {
	Get(ctx context.Context, orgID, userID int32) (*domain.Member, error)
	ListAdmins(ctx context.Context, orgID int32) ([]domain.Member, error)
}

type OrganizationRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Organization, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

// Repositories groups every repository bound to the same database handle.
type Repositories struct {
	Applications     ApplicationRepository
	Candidates       CandidateRepository
	Stages           StageRepository
	StageCatalog     StageCatalog
	Transitions      StageTransitionRepository
	RejectionReasons RejectionReasonRepository
	Jobs             JobRepository
	Offers           OfferRepository
	Approvables      ApprovableRepository
	Approvals        ApprovalRepository
	Decisions        HiringDecisionRepository
	I9               I9Repository
	AdverseActions   AdverseActionRepository
	Audit            AuditRepository
	Users            UserRepository
	Members          MemberRepository
	Organizations    OrganizationRepository
	Notifications    NotificationRepository
}

// Transactor runs fn inside one database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}
