package service

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type PipelineService interface {
	MoveStage(ctx context.Context, rc domain.RequestContext, applicationID, toStageID int32, notes string) (*domain.StageTransition, error)
	Reject(ctx context.Context, rc domain.RequestContext, applicationID, rejectionReasonID int32, notes string) (*domain.StageTransition, error)
	History(ctx context.Context, rc domain.RequestContext, applicationID int32) ([]domain.StageTransition, error)
}

type ApprovalChainService interface {
	RequestApprovals(ctx context.Context, rc domain.RequestContext, parent domain.ApprovableRef, approverIDs []int32) ([]domain.ApprovalRecord, error)
	Approve(ctx context.Context, rc domain.RequestContext, recordID int32, comments string) (domain.ChainOutcome, error)
	Reject(ctx context.Context, rc domain.RequestContext, recordID int32, comments string) (domain.ChainOutcome, error)
	Chain(ctx context.Context, rc domain.RequestContext, parent domain.ApprovableRef) ([]domain.ApprovalRecord, error)
}

// CreateDecisionParams describes a new hiring decision. Decisions wait for
// approval unless SkipApproval is set, in which case the decider is recorded
// as the approver.
type CreateDecisionParams struct {
	ApplicationID     int32
	Decision          domain.DecisionType
	Rationale         string
	ProposedSalary    decimal.NullDecimal
	ProposedStartDate *time.Time
	SkipApproval      bool
}

type HiringDecisionService interface {
	Create(ctx context.Context, rc domain.RequestContext, params CreateDecisionParams) (*domain.HiringDecision, error)
	Resolve(ctx context.Context, rc domain.RequestContext, decisionID int32, action domain.DecisionAction, reason string) (*domain.HiringDecision, error)
	List(ctx context.Context, rc domain.RequestContext, applicationID int32) ([]domain.HiringDecision, error)
}

type I9Service interface {
	Initiate(ctx context.Context, rc domain.RequestContext, applicationID int32, expectedStartDate time.Time) (*domain.I9Verification, error)
	CompleteSection1(ctx context.Context, rc domain.RequestContext, verificationID int32, in domain.Section1Input) (*domain.I9Verification, error)
	CompleteSection2(ctx context.Context, rc domain.RequestContext, verificationID int32, in domain.Section2Input) (*domain.I9Verification, error)
	RecordEVerifyResult(ctx context.Context, rc domain.RequestContext, verificationID int32, caseNumber string, result domain.EVerifyResult) (*domain.I9Verification, error)
	CompleteSection3(ctx context.Context, rc domain.RequestContext, verificationID int32, in domain.Section3Input) (*domain.I9Verification, error)
	Expire(ctx context.Context, rc domain.RequestContext, verificationID int32) (*domain.I9Verification, error)
	Get(ctx context.Context, rc domain.RequestContext, verificationID int32) (*domain.I9Verification, error)
}

type InitiateAdverseActionParams struct {
	ApplicationID           int32
	ActionType              domain.AdverseActionType
	ReasonCategory          domain.ReasonCategory
	ReasonDetails           string
	BackgroundCheckProvider string
	WaitingPeriodDays       int // 0 means the configured default
}

type AdverseActionService interface {
	Initiate(ctx context.Context, rc domain.RequestContext, params InitiateAdverseActionParams) (*domain.AdverseAction, error)
	SendPreAdverse(ctx context.Context, rc domain.RequestContext, actionID int32, content string, method domain.DeliveryMethod) (*domain.AdverseAction, error)
	RecordDispute(ctx context.Context, rc domain.RequestContext, actionID int32, details string) (*domain.AdverseAction, error)
	SendFinal(ctx context.Context, rc domain.RequestContext, actionID int32, content string, method domain.DeliveryMethod) (*domain.AdverseAction, error)
	Cancel(ctx context.Context, rc domain.RequestContext, actionID int32, reason string) (*domain.AdverseAction, error)
	Get(ctx context.Context, rc domain.RequestContext, actionID int32) (*domain.AdverseAction, error)
	// HasLegalHold is consulted by data retention before deleting an
	// application. It never writes.
	HasLegalHold(ctx context.Context, rc domain.RequestContext, applicationID int32) (bool, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, rc domain.RequestContext, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, rc domain.RequestContext, notificationID int32) error
}

// Authorizer decides whether the caller may perform action on resource.
type Authorizer interface {
	Authorize(ctx context.Context, rc domain.RequestContext, resource, action string) bool
}

// Notifier queues a message for asynchronous delivery. Enqueue must not
// block on delivery.
type Notifier interface {
	Enqueue(ctx context.Context, msg domain.Message) error
}

// DecisionGate is the job and stage specific rule for whether an application
// may receive a hiring decision right now.
type DecisionGate interface {
	CanReceiveDecision(ctx context.Context, repos *repository.Repositories, app *domain.Application) (bool, error)
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time
