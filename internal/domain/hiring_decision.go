package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DecisionType string

const (
	DecisionHire   DecisionType = "hire"
	DecisionReject DecisionType = "reject"
	DecisionHold   DecisionType = "hold"
)

func (d DecisionType) Valid() bool {
	return d == DecisionHire || d == DecisionReject || d == DecisionHold
}

type DecisionStatus string

const (
	DecisionStatusPending  DecisionStatus = "pending"
	DecisionStatusApproved DecisionStatus = "approved"
	DecisionStatusRejected DecisionStatus = "rejected"
)

// DecisionAction is what an approver does to a pending decision.
type DecisionAction string

const (
	DecisionActionApprove DecisionAction = "approve"
	DecisionActionReject  DecisionAction = "reject"
)

// HiringDecision is immutable once created except for the single
// pending -> approved|rejected transition.
type HiringDecision struct {
	ID                int32               `json:"id"`
	ApplicationID     int32               `json:"application_id"`
	OrganizationID    int32               `json:"organization_id"`
	DecidedBy         int32               `json:"decided_by"`
	ApprovedBy        *int32              `json:"approved_by,omitempty"`
	Decision          DecisionType        `json:"decision"`
	Status            DecisionStatus      `json:"status"`
	Rationale         string              `json:"rationale"`
	ProposedSalary    decimal.NullDecimal `json:"proposed_salary"`
	ProposedStartDate *time.Time          `json:"proposed_start_date,omitempty"`
	RejectionReason   string              `json:"rejection_reason,omitempty"`
	DecidedAt         time.Time           `json:"decided_at"`
	ApprovedAt        *time.Time          `json:"approved_at,omitempty"`
}

func (d *HiringDecision) IsPending() bool {
	return d.Status == DecisionStatusPending
}
