package security

import (
	"context"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
)

type roleSet map[domain.MemberRole]bool

func roles(rs ...domain.MemberRole) roleSet {
	set := make(roleSet, len(rs))
	for _, r := range rs {
		set[r] = true
	}
	return set
}

var (
	staff       = roles(domain.MemberRoleAdmin, domain.MemberRoleRecruiter, domain.MemberRoleSeniorRecruiter, domain.MemberRoleHiringManager)
	recruiting  = roles(domain.MemberRoleAdmin, domain.MemberRoleRecruiter, domain.MemberRoleSeniorRecruiter)
	anyMember   = roles(domain.MemberRoleAdmin, domain.MemberRoleRecruiter, domain.MemberRoleSeniorRecruiter, domain.MemberRoleHiringManager, domain.MemberRoleInterviewer, domain.MemberRoleMember)
	adminsOnly  = roles(domain.MemberRoleAdmin)
	deciders    = roles(domain.MemberRoleAdmin, domain.MemberRoleSeniorRecruiter, domain.MemberRoleHiringManager)
	i9Employers = roles(domain.MemberRoleAdmin, domain.MemberRoleRecruiter, domain.MemberRoleSeniorRecruiter)
)

// DefaultPolicy is the coarse role gate applied before a workflow runs.
// Services still check the fine-grained rules, such as who may approve which
// decision.
var DefaultPolicy = map[string]map[string]roleSet{
	domain.ResourceApplication: {
		domain.ActionRead:   anyMember,
		domain.ActionMove:   staff,
		domain.ActionReject: staff,
	},
	domain.ResourceApproval: {
		domain.ActionRead:    anyMember,
		domain.ActionRequest: staff,
		domain.ActionApprove: anyMember,
	},
	domain.ResourceHiringDecision: {
		domain.ActionRead:    staff,
		domain.ActionCreate:  staff,
		domain.ActionApprove: deciders,
	},
	domain.ResourceI9Verification: {
		domain.ActionRead:     i9Employers,
		domain.ActionCreate:   i9Employers,
		domain.ActionEmployee: anyMember,
		domain.ActionEmployer: i9Employers,
	},
	domain.ResourceAdverseAction: {
		domain.ActionRead:    recruiting,
		domain.ActionCreate:  recruiting,
		domain.ActionSend:    recruiting,
		domain.ActionDispute: recruiting,
		domain.ActionCancel:  adminsOnly,
	},
}

// RoleAuthorizer grants an action when the caller's role appears in the
// policy. Callers without a role, such as service tokens, may only read.
type RoleAuthorizer struct {
	policy map[string]map[string]roleSet
}

func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{policy: DefaultPolicy}
}

func (a *RoleAuthorizer) Authorize(ctx context.Context, rc domain.RequestContext, resource, action string) bool {
	if rc.OrganizationID == 0 {
		return false
	}
	if rc.Role == "" {
		return action == domain.ActionRead
	}
	allowed := a.policy[resource][action][rc.Role]
	if !allowed {
		logger.DebugContext(ctx, "Authorization denied",
			"actorID", rc.ActorID, "role", rc.Role, "resource", resource, "action", action)
	}
	return allowed
}
