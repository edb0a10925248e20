package domain

import "time"

// Notification is an in-app notice shown to a member. Rows are written by the
// notification dispatcher after the originating workflow commits.
type Notification struct {
	ID         int32             `json:"id"`
	UserID     int32             `json:"user_id"`
	OrgID      int32             `json:"org_id"`
	Template   string            `json:"template"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedOn  time.Time         `json:"created_on"`
}

// Recipient addresses a notification. A member recipient gets an in-app row
// and an email; a candidate recipient (UserID == 0) only gets an email.
type Recipient struct {
	UserID int32  `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Message is a templated notice queued for asynchronous delivery.
type Message struct {
	Template       string            `json:"template"`
	OrganizationID int32             `json:"organization_id"`
	Recipients     []Recipient       `json:"recipients"`
	EntityType     string            `json:"entity_type"`
	EntityID       int32             `json:"entity_id"`
	Data           map[string]string `json:"data,omitempty"`
}
