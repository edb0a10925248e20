package domain

import (
	"sort"
	"time"
)

// ApprovableType names the parent resource an approval chain belongs to.
type ApprovableType string

const (
	ApprovableOffer ApprovableType = "offer"
	ApprovableJob   ApprovableType = "job"
)

// ApprovableStatus is the lifecycle shared by approvable parents. Offers and
// jobs both use these values for their approval related states.
type ApprovableStatus string

const (
	ApprovableDraft           ApprovableStatus = "draft"
	ApprovablePendingApproval ApprovableStatus = "pending_approval"
	ApprovableApproved        ApprovableStatus = "approved"
)

type ApprovableRef struct {
	Type ApprovableType `json:"type"`
	ID   int32          `json:"id"`
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

type ApprovalRecord struct {
	ID             int32          `json:"id"`
	OrganizationID int32          `json:"organization_id"`
	ApprovableType ApprovableType `json:"approvable_type"`
	ApprovableID   int32          `json:"approvable_id"`
	ApproverID     int32          `json:"approver_id"`
	Round          int32          `json:"round"` // increments each time the parent is resubmitted
	Sequence       int32          `json:"sequence"`
	Status         ApprovalStatus `json:"status"`
	RequestedAt    time.Time      `json:"requested_at"`
	RespondedAt    *time.Time     `json:"responded_at,omitempty"`
	Comments       string         `json:"comments"`
}

func (r *ApprovalRecord) Parent() ApprovableRef {
	return ApprovableRef{Type: r.ApprovableType, ID: r.ApprovableID}
}

// ChainOutcome is what a single approve/reject means for the whole chain.
type ChainOutcome string

const (
	ChainPending  ChainOutcome = "pending"
	ChainComplete ChainOutcome = "complete"
	ChainRejected ChainOutcome = "rejected"
)

// CurrentSequence returns the lowest pending sequence in the chain, or 0
// when nothing is pending.
func CurrentSequence(records []ApprovalRecord) int32 {
	var current int32
	for _, r := range records {
		if r.Status != ApprovalStatusPending {
			continue
		}
		if current == 0 || r.Sequence < current {
			current = r.Sequence
		}
	}
	return current
}

// EvaluateChain derives the chain outcome after a record was acted on.
func EvaluateChain(records []ApprovalRecord) ChainOutcome {
	if len(records) == 0 {
		return ChainPending
	}
	sorted := make([]ApprovalRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	for _, r := range sorted {
		switch r.Status {
		case ApprovalStatusRejected:
			return ChainRejected
		case ApprovalStatusPending:
			return ChainPending
		}
	}
	return ChainComplete
}
