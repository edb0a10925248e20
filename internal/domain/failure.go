package domain

import (
	"errors"
	"strings"
)

// FailureCode tags an expected domain violation. Callers branch on the code;
// mapping it to a transport status is their concern.
type FailureCode string

const (
	// shared
	FailureNotAuthorized     FailureCode = "not_authorized"
	FailureInvalidTransition FailureCode = "invalid_transition"

	// applications & pipeline
	FailureApplicationNotFound     FailureCode = "application_not_found"
	FailureApplicationNotActive    FailureCode = "application_not_active"
	FailureApplicationDiscarded    FailureCode = "application_discarded"
	FailureStageNotFound           FailureCode = "stage_not_found"
	FailureStageWrongOrganization  FailureCode = "stage_wrong_organization"
	FailureSameStage               FailureCode = "same_stage"
	FailureStageNotInJob           FailureCode = "stage_not_in_job"
	FailureCannotReject            FailureCode = "cannot_reject"
	FailureRejectionReasonNotFound FailureCode = "rejection_reason_not_found"

	// approval chain
	FailureApprovalNotFound   FailureCode = "approval_not_found"
	FailureApprovalNotPending FailureCode = "approval_not_pending"
	FailureNotApprover        FailureCode = "not_approver"
	FailureOutOfSequence      FailureCode = "out_of_sequence"
	FailureApproversRequired  FailureCode = "approvers_required"
	FailureApprovableNotFound FailureCode = "approvable_not_found"
	FailureApprovableNotDraft FailureCode = "approvable_not_draft"

	// hiring decisions
	FailureCannotReceiveDecision      FailureCode = "cannot_receive_decision"
	FailureNotAuthorizedToDecide      FailureCode = "not_authorized_to_decide"
	FailureInvalidDecision            FailureCode = "invalid_decision"
	FailurePendingDecisionExists      FailureCode = "pending_decision_exists"
	FailureDecisionNotFound           FailureCode = "decision_not_found"
	FailureDecisionNotPending         FailureCode = "decision_not_pending"
	FailureApproverNotFound           FailureCode = "approver_not_found"
	FailureSelfApprovalForbidden      FailureCode = "self_approval_forbidden"
	FailureNotAuthorizedToApprove     FailureCode = "not_authorized_to_approve"
	FailureInvalidAction              FailureCode = "invalid_action"
	FailureReasonRequiredForRejection FailureCode = "reason_required_for_rejection"

	// I-9
	FailureApplicationNotOffered      FailureCode = "application_not_offered"
	FailureI9NotRequired              FailureCode = "i9_not_required"
	FailureI9AlreadyExists            FailureCode = "i9_already_exists"
	FailureVerificationNotFound       FailureCode = "verification_not_found"
	FailureAttestationRequired        FailureCode = "attestation_required"
	FailureInvalidCitizenshipStatus   FailureCode = "invalid_citizenship_status"
	FailureAlienDocumentRequired      FailureCode = "alien_document_required"
	FailureEmployerFieldsRequired     FailureCode = "employer_fields_required"
	FailureInvalidDocumentCombination FailureCode = "invalid_document_combination"
	FailureWorkAuthorizationExists    FailureCode = "work_authorization_exists"
	FailureInvalidEVerifyResult       FailureCode = "invalid_everify_result"
	FailureAuthorizationNotExpired    FailureCode = "authorization_not_expired"
	FailureReverificationDocument     FailureCode = "reverification_document_required"

	// adverse action
	FailureAdverseActionInProgress  FailureCode = "adverse_action_in_progress"
	FailureAdverseActionNotFound    FailureCode = "adverse_action_not_found"
	FailureCandidateEmailMissing    FailureCode = "candidate_email_missing"
	FailureInvalidDeliveryMethod    FailureCode = "invalid_delivery_method"
	FailureWaitingPeriodNotElapsed  FailureCode = "waiting_period_not_elapsed"
	FailureReasonRequired           FailureCode = "reason_required"
	FailureInvalidAdverseActionType FailureCode = "invalid_action_type"
)

// Failure is the tagged result of a rejected workflow operation. No state
// has changed when a Failure is returned.
type Failure struct {
	Code     FailureCode
	Messages []string
}

// Fail builds a Failure with optional human readable messages.
func Fail(code FailureCode, messages ...string) *Failure {
	return &Failure{Code: code, Messages: messages}
}

func (f *Failure) Error() string {
	if len(f.Messages) == 0 {
		return string(f.Code)
	}
	return string(f.Code) + ": " + strings.Join(f.Messages, "; ")
}

// AsFailure unwraps err into a Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsFailure reports whether err is a Failure carrying code.
func IsFailure(err error, code FailureCode) bool {
	f, ok := AsFailure(err)
	return ok && f.Code == code
}
