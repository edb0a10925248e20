package domain

// Resources checked by the authorizer before a workflow runs.
const (
	ResourceApplication    = "application"
	ResourceApproval       = "approval"
	ResourceHiringDecision = "hiring_decision"
	ResourceI9Verification = "i9_verification"
	ResourceAdverseAction  = "adverse_action"
)

// Actions checked by the authorizer.
const (
	ActionRead     = "read"
	ActionMove     = "move_stage"
	ActionReject   = "reject"
	ActionCreate   = "create"
	ActionApprove  = "approve"
	ActionRequest  = "request"
	ActionEmployee = "employee_section"
	ActionEmployer = "employer_section"
	ActionSend     = "send"
	ActionDispute  = "dispute"
	ActionCancel   = "cancel"
)
