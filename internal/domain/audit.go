package domain

import "time"

// AuditEntry is an append-only record of a workflow state change.
type AuditEntry struct {
	ID             int64          `json:"id"`
	OrganizationID int32          `json:"organization_id"`
	ActorID        *int32         `json:"actor_id,omitempty"`
	Action         string         `json:"action"`
	EntityType     string         `json:"entity_type"`
	EntityID       int32          `json:"entity_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IP             string         `json:"ip,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewAuditEntry stamps an entry with the caller's identity.
func NewAuditEntry(rc RequestContext, action, entityType string, entityID int32, metadata map[string]any) *AuditEntry {
	var actor *int32
	if rc.ActorID != 0 {
		id := rc.ActorID
		actor = &id
	}
	return &AuditEntry{
		OrganizationID: rc.OrganizationID,
		ActorID:        actor,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		Metadata:       metadata,
		IP:             rc.IP,
		UserAgent:      rc.UserAgent,
	}
}
