package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusActive    ApplicationStatus = "active"
	ApplicationStatusOffered   ApplicationStatus = "offered"
	ApplicationStatusHired     ApplicationStatus = "hired"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn ApplicationStatus = "withdrawn"
)

// Application is the aggregate shared by every workflow. It is only mutated
// through workflow entry points.
type Application struct {
	ID             int32             `json:"id"`
	OrganizationID int32             `json:"organization_id"`
	JobID          int32             `json:"job_id"`
	CandidateID    int32             `json:"candidate_id"`
	Status         ApplicationStatus `json:"status"`
	CurrentStageID *int32            `json:"current_stage_id,omitempty"`
	LastActivityAt *time.Time        `json:"last_activity_at,omitempty"`
	DiscardedAt    *time.Time        `json:"discarded_at,omitempty"` // soft delete
	I9Required     bool              `json:"i9_required"`
	I9Status       *I9Status         `json:"i9_status,omitempty"` // mirror of the verification status
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (a *Application) IsActive() bool {
	return a.Status == ApplicationStatusActive
}

func (a *Application) IsDiscarded() bool {
	return a.DiscardedAt != nil
}

// Candidate is the person behind an application.
type Candidate struct {
	ID             int32  `json:"id"`
	OrganizationID int32  `json:"organization_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
}

func (c *Candidate) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
