package domain

type Organization struct {
	ID              int32  `json:"id"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	RequiresEVerify bool   `json:"requires_everify"`
	CreatedOn       string `json:"created_on"`
}

type JobStatus string

const (
	JobStatusDraft           JobStatus = "draft"
	JobStatusPendingApproval JobStatus = "pending_approval"
	JobStatusApproved        JobStatus = "approved"
	JobStatusClosed          JobStatus = "closed"
)

type Job struct {
	ID              int32     `json:"id"`
	OrganizationID  int32     `json:"organization_id"`
	Title           string    `json:"title"`
	Status          JobStatus `json:"status"`
	OwnerID         int32     `json:"owner_id"`
	HiringManagerID *int32    `json:"hiring_manager_id,omitempty"`
}

// IsHiringManager reports whether userID manages hiring for the job.
func (j *Job) IsHiringManager(userID int32) bool {
	return j.HiringManagerID != nil && *j.HiringManagerID == userID
}
