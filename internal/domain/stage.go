package domain

import "time"

type StageType string

const (
	StageTypeStandard StageType = "standard"
	StageTypeHired    StageType = "hired"
	StageTypeRejected StageType = "rejected"
)

// RejectedStageName is the name of the terminal stage created per organization.
const RejectedStageName = "Rejected"

// Stage is an ordered, organization scoped pipeline step.
type Stage struct {
	ID             int32     `json:"id"`
	OrganizationID int32     `json:"organization_id"`
	Name           string    `json:"name"`
	Position       int32     `json:"position"`
	StageType      StageType `json:"stage_type"`
}

func (s *Stage) IsTerminal() bool {
	return s.StageType == StageTypeHired || s.StageType == StageTypeRejected
}

// StageTransition is an append-only record of a move between stages. It has
// no UpdatedAt: rows are never modified.
type StageTransition struct {
	ID            int32     `json:"id"`
	ApplicationID int32     `json:"application_id"`
	FromStageID   *int32    `json:"from_stage_id,omitempty"`
	ToStageID     int32     `json:"to_stage_id"`
	MovedBy       int32     `json:"moved_by"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// RejectionReason is an organization configured reason for rejecting a candidate.
type RejectionReason struct {
	ID             int32  `json:"id"`
	OrganizationID int32  `json:"organization_id"`
	Name           string `json:"name"`
}
