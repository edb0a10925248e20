package domain

import (
	"time"

	"hireflow-backend/internal/statemachine"
)

type AdverseActionStatus string

const (
	AdverseActionDraft          AdverseActionStatus = "draft"
	AdverseActionPreAdverseSent AdverseActionStatus = "pre_adverse_sent"
	AdverseActionWaitingPeriod  AdverseActionStatus = "waiting_period"
	AdverseActionFinalSent      AdverseActionStatus = "final_sent"
	AdverseActionCompleted      AdverseActionStatus = "completed"
	AdverseActionCancelled      AdverseActionStatus = "cancelled"
)

// NonTerminalAdverseActionStatuses are the states that place an application
// under legal hold.
var NonTerminalAdverseActionStatuses = []AdverseActionStatus{
	AdverseActionDraft,
	AdverseActionPreAdverseSent,
	AdverseActionWaitingPeriod,
	AdverseActionFinalSent,
}

const (
	AdverseEventSendPreAdverse     statemachine.Event = "send_pre_adverse"
	AdverseEventStartWaitingPeriod statemachine.Event = "start_waiting_period"
	AdverseEventRecordDispute      statemachine.Event = "record_dispute"
	AdverseEventSendFinal          statemachine.Event = "send_final"
	AdverseEventComplete           statemachine.Event = "complete"
	AdverseEventCancel             statemachine.Event = "cancel"
)

var adverseActionMachine = statemachine.New[AdverseActionStatus]("adverse_action").
	Allow(AdverseActionDraft, AdverseEventSendPreAdverse, AdverseActionPreAdverseSent).
	Allow(AdverseActionPreAdverseSent, AdverseEventStartWaitingPeriod, AdverseActionWaitingPeriod).
	Allow(AdverseActionWaitingPeriod, AdverseEventRecordDispute, AdverseActionWaitingPeriod).
	Allow(AdverseActionWaitingPeriod, AdverseEventSendFinal, AdverseActionFinalSent).
	Allow(AdverseActionFinalSent, AdverseEventComplete, AdverseActionCompleted).
	AllowFrom(NonTerminalAdverseActionStatuses, AdverseEventCancel, AdverseActionCancelled).
	Terminal(AdverseActionCompleted, AdverseActionCancelled)

var adverseActionEffects = map[statemachine.Event][]Effect{
	AdverseEventSendPreAdverse:     {Audit("adverse_action.pre_adverse_sent"), Notify("pre_adverse_action")},
	AdverseEventStartWaitingPeriod: {Audit("adverse_action.waiting_period_started")},
	AdverseEventRecordDispute:      {Audit("adverse_action.dispute_recorded"), Notify("adverse_action_disputed")},
	AdverseEventSendFinal:          {Audit("adverse_action.final_sent"), Notify("final_adverse_action")},
	AdverseEventComplete:           {Audit("adverse_action.completed")},
	AdverseEventCancel:             {Audit("adverse_action.cancelled")},
}

// AdverseActionInitiatedEffects are produced when a draft is created.
var AdverseActionInitiatedEffects = []Effect{Audit("adverse_action.initiated")}

// CanAdvanceAdverseAction reports whether event is accepted in state.
func CanAdvanceAdverseAction(state AdverseActionStatus, event statemachine.Event) bool {
	return adverseActionMachine.Can(state, event)
}

// AdverseActionTransition is the pure FCRA transition function.
func AdverseActionTransition(state AdverseActionStatus, event statemachine.Event) (AdverseActionStatus, []Effect, error) {
	next, err := adverseActionMachine.Next(state, event)
	if err != nil {
		return "", nil, Fail(FailureInvalidTransition, err.Error())
	}
	effects := make([]Effect, len(adverseActionEffects[event]))
	copy(effects, adverseActionEffects[event])
	return next, effects, nil
}

type AdverseActionType string

const (
	AdverseActionTypeRejection        AdverseActionType = "rejection"
	AdverseActionTypeOfferWithdrawal  AdverseActionType = "offer_withdrawal"
	AdverseActionTypeTermination      AdverseActionType = "termination"
	AdverseActionTypeConditionChanged AdverseActionType = "conditions_changed"
)

func (t AdverseActionType) Valid() bool {
	switch t {
	case AdverseActionTypeRejection, AdverseActionTypeOfferWithdrawal, AdverseActionTypeTermination, AdverseActionTypeConditionChanged:
		return true
	}
	return false
}

type ReasonCategory string

const (
	ReasonBackgroundCheck    ReasonCategory = "background_check"
	ReasonCreditReport       ReasonCategory = "credit_report"
	ReasonMotorVehicleRecord ReasonCategory = "motor_vehicle_record"
	ReasonDrugScreen         ReasonCategory = "drug_screen"
	ReasonOther              ReasonCategory = "other"
)

type DeliveryMethod string

const (
	DeliveryEmail        DeliveryMethod = "email"
	DeliveryMail         DeliveryMethod = "mail"
	DeliveryEmailAndMail DeliveryMethod = "email_and_mail"
)

func (d DeliveryMethod) Valid() bool {
	return d == DeliveryEmail || d == DeliveryMail || d == DeliveryEmailAndMail
}

// UsesEmail reports whether the notice goes to the candidate's inbox.
func (d DeliveryMethod) UsesEmail() bool {
	return d == DeliveryEmail || d == DeliveryEmailAndMail
}

// DefaultWaitingPeriodDays is the FCRA waiting period in calendar days.
const DefaultWaitingPeriodDays = 5

type AdverseAction struct {
	ID                      int32               `json:"id"`
	ApplicationID           int32               `json:"application_id"`
	OrganizationID          int32               `json:"organization_id"`
	InitiatedBy             int32               `json:"initiated_by"`
	Status                  AdverseActionStatus `json:"status"`
	ActionType              AdverseActionType   `json:"action_type"`
	ReasonCategory          ReasonCategory      `json:"reason_category"`
	ReasonDetails           string              `json:"reason_details"`
	BackgroundCheckProvider string              `json:"background_check_provider"`
	WaitingPeriodDays       int                 `json:"waiting_period_days"`

	PreAdverseSentAt         *time.Time      `json:"pre_adverse_sent_at,omitempty"`
	PreAdverseContent        string          `json:"pre_adverse_content,omitempty"`
	PreAdverseDeliveryMethod *DeliveryMethod `json:"pre_adverse_delivery_method,omitempty"`
	WaitingPeriodEndsAt      *time.Time      `json:"waiting_period_ends_at,omitempty"`

	CandidateDisputed bool       `json:"candidate_disputed"`
	DisputeDetails    string     `json:"dispute_details,omitempty"`
	DisputeReceivedAt *time.Time `json:"dispute_received_at,omitempty"`

	FinalAdverseSentAt         *time.Time      `json:"final_adverse_sent_at,omitempty"`
	FinalAdverseContent        string          `json:"final_adverse_content,omitempty"`
	FinalAdverseDeliveryMethod *DeliveryMethod `json:"final_adverse_delivery_method,omitempty"`

	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy     *int32     `json:"cancelled_by,omitempty"`
	CancelledReason string     `json:"cancelled_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the action no longer holds the application.
func (a *AdverseAction) IsTerminal() bool {
	return a.Status == AdverseActionCompleted || a.Status == AdverseActionCancelled
}

// WaitingPeriodElapsed reports whether a final notice may be sent at now.
func (a *AdverseAction) WaitingPeriodElapsed(now time.Time) bool {
	return a.WaitingPeriodEndsAt != nil && !now.Before(*a.WaitingPeriodEndsAt)
}
