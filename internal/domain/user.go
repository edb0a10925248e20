package domain

type User struct {
	ID    int32  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type MemberRole string

const (
	MemberRoleAdmin           MemberRole = "admin"
	MemberRoleRecruiter       MemberRole = "recruiter"
	MemberRoleSeniorRecruiter MemberRole = "senior_recruiter"
	MemberRoleHiringManager   MemberRole = "hiring_manager"
	MemberRoleInterviewer     MemberRole = "interviewer"
	MemberRoleMember          MemberRole = "member"
)

// Member is a user's membership in an organization.
type Member struct {
	UserID         int32      `json:"user_id"`
	OrganizationID int32      `json:"organization_id"`
	Role           MemberRole `json:"role"`
	Active         bool       `json:"active"`
}

func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}

// IsRecruiter covers both recruiter grades.
func (m *Member) IsRecruiter() bool {
	return m.Role == MemberRoleRecruiter || m.Role == MemberRoleSeniorRecruiter
}
