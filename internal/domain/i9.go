package domain

import (
	"fmt"
	"strings"
	"time"

	"hireflow-backend/internal/statemachine"
)

type I9Status string

const (
	I9StatusPendingSection1  I9Status = "pending_section1"
	I9StatusSection1Complete I9Status = "section1_complete"
	I9StatusPendingSection2  I9Status = "pending_section2"
	I9StatusSection2Complete I9Status = "section2_complete"
	I9StatusPendingEVerify   I9Status = "pending_everify"
	I9StatusEVerifyTNC       I9Status = "everify_tnc"
	I9StatusVerified         I9Status = "verified"
	I9StatusFailed           I9Status = "failed"
	I9StatusExpired          I9Status = "expired"
)

// I-9 events.
const (
	I9EventCompleteSection1    statemachine.Event = "complete_section1"
	I9EventRequestSection2     statemachine.Event = "request_section2"
	I9EventCompleteSection2    statemachine.Event = "complete_section2"
	I9EventVerify              statemachine.Event = "verify"
	I9EventSubmitEVerify       statemachine.Event = "submit_everify"
	I9EventEVerifyAuthorized   statemachine.Event = "everify_authorized"
	I9EventEVerifyTNC          statemachine.Event = "everify_tnc"
	I9EventEVerifyNonconfirmed statemachine.Event = "everify_final_nonconfirmation"
	I9EventReverify            statemachine.Event = "reverify"
	I9EventExpire              statemachine.Event = "expire"
)

var i9Machine = statemachine.New[I9Status]("i9").
	Allow(I9StatusPendingSection1, I9EventCompleteSection1, I9StatusSection1Complete).
	Allow(I9StatusSection1Complete, I9EventRequestSection2, I9StatusPendingSection2).
	Allow(I9StatusPendingSection2, I9EventCompleteSection2, I9StatusSection2Complete).
	Allow(I9StatusSection2Complete, I9EventVerify, I9StatusVerified).
	Allow(I9StatusSection2Complete, I9EventSubmitEVerify, I9StatusPendingEVerify).
	Allow(I9StatusPendingEVerify, I9EventEVerifyAuthorized, I9StatusVerified).
	Allow(I9StatusPendingEVerify, I9EventEVerifyTNC, I9StatusEVerifyTNC).
	Allow(I9StatusEVerifyTNC, I9EventEVerifyAuthorized, I9StatusVerified).
	Allow(I9StatusEVerifyTNC, I9EventEVerifyNonconfirmed, I9StatusFailed).
	Allow(I9StatusVerified, I9EventReverify, I9StatusVerified).
	Allow(I9StatusVerified, I9EventExpire, I9StatusExpired).
	Terminal(I9StatusFailed, I9StatusExpired)

var i9Effects = map[statemachine.Event][]Effect{
	I9EventCompleteSection1:    {Audit("i9.section1_completed"), Notify("i9_section1_completed")},
	I9EventRequestSection2:     {Audit("i9.section2_requested")},
	I9EventCompleteSection2:    {Audit("i9.section2_completed")},
	I9EventVerify:              {Audit("i9.verified"), Notify("i9_verified")},
	I9EventSubmitEVerify:       {Audit("i9.everify_submitted"), Notify("i9_everify_pending")},
	I9EventEVerifyAuthorized:   {Audit("i9.everify_authorized"), Notify("i9_verified")},
	I9EventEVerifyTNC:          {Audit("i9.everify_tnc"), Notify("i9_everify_tnc")},
	I9EventEVerifyNonconfirmed: {Audit("i9.everify_failed"), Notify("i9_failed")},
	I9EventReverify:            {Audit("i9.section3_completed")},
	I9EventExpire:              {Audit("i9.expired"), Notify("i9_expired")},
}

// I9InitiatedEffects are produced when a verification is created.
var I9InitiatedEffects = []Effect{Audit("i9.initiated"), Notify("i9_initiated")}

// I9Transition is the pure I-9 transition function. It never touches storage;
// the caller persists next and executes the returned effects.
func I9Transition(state I9Status, event statemachine.Event) (I9Status, []Effect, error) {
	next, err := i9Machine.Next(state, event)
	if err != nil {
		return "", nil, Fail(FailureInvalidTransition, err.Error())
	}
	effects := make([]Effect, len(i9Effects[event]))
	copy(effects, i9Effects[event])
	return next, effects, nil
}

type CitizenshipStatus string

const (
	CitizenshipCitizen            CitizenshipStatus = "citizen"
	CitizenshipNoncitizenNational CitizenshipStatus = "noncitizen_national"
	CitizenshipPermanentResident  CitizenshipStatus = "permanent_resident"
	CitizenshipAlienAuthorized    CitizenshipStatus = "alien_authorized"
)

func (c CitizenshipStatus) Valid() bool {
	switch c {
	case CitizenshipCitizen, CitizenshipNoncitizenNational, CitizenshipPermanentResident, CitizenshipAlienAuthorized:
		return true
	}
	return false
}

type EVerifyResult string

const (
	EVerifyEmploymentAuthorized     EVerifyResult = "employment_authorized"
	EVerifyTentativeNonconfirmation EVerifyResult = "tentative_nonconfirmation"
	EVerifyFinalNonconfirmation     EVerifyResult = "final_nonconfirmation"
)

// Event maps an E-Verify case result onto the machine.
func (r EVerifyResult) Event() (statemachine.Event, bool) {
	switch r {
	case EVerifyEmploymentAuthorized:
		return I9EventEVerifyAuthorized, true
	case EVerifyTentativeNonconfirmation:
		return I9EventEVerifyTNC, true
	case EVerifyFinalNonconfirmation:
		return I9EventEVerifyNonconfirmed, true
	}
	return "", false
}

type I9Verification struct {
	ID                int32     `json:"id"`
	ApplicationID     int32     `json:"application_id"`
	OrganizationID    int32     `json:"organization_id"`
	Status            I9Status  `json:"status"`
	ExpectedStartDate time.Time `json:"expected_start_date"`
	DeadlineSection1  time.Time `json:"deadline_section1"`
	DeadlineSection2  time.Time `json:"deadline_section2"`

	// Section 1
	CitizenshipStatus          *CitizenshipStatus `json:"citizenship_status,omitempty"`
	AlienNumber                string             `json:"alien_number,omitempty"`
	I94Number                  string             `json:"i94_number,omitempty"`
	ForeignPassportNumber      string             `json:"foreign_passport_number,omitempty"`
	ForeignPassportCountry     string             `json:"foreign_passport_country,omitempty"`
	AlienExpirationDate        *time.Time         `json:"alien_expiration_date,omitempty"`
	AttestationAccepted        bool               `json:"attestation_accepted"`
	Section1CompletedAt        *time.Time         `json:"section1_completed_at,omitempty"`
	Section1SignatureIP        string             `json:"section1_signature_ip,omitempty"`
	Section1SignatureUserAgent string             `json:"section1_signature_user_agent,omitempty"`

	// Section 2
	EmployerTitle        string     `json:"employer_title,omitempty"`
	EmployerOrgName      string     `json:"employer_org_name,omitempty"`
	EmployerOrgAddress   string     `json:"employer_org_address,omitempty"`
	Section2CompletedAt  *time.Time `json:"section2_completed_at,omitempty"`
	Section2CompletedBy  *int32     `json:"section2_completed_by,omitempty"`
	Section2SignatureIP  string     `json:"section2_signature_ip,omitempty"`
	LateCompletion       bool       `json:"late_completion"`
	LateCompletionReason string     `json:"late_completion_reason,omitempty"`

	// E-Verify
	EVerifyCaseNumber  string         `json:"everify_case_number,omitempty"`
	EVerifyResult      *EVerifyResult `json:"everify_result,omitempty"`
	EVerifySubmittedAt *time.Time     `json:"everify_submitted_at,omitempty"`

	// Section 3
	Section3CompletedAt        *time.Time `json:"section3_completed_at,omitempty"`
	Section3RehireDate         *time.Time `json:"section3_rehire_date,omitempty"`
	Section3DocumentTitle      string     `json:"section3_document_title,omitempty"`
	Section3DocumentNumber     string     `json:"section3_document_number,omitempty"`
	Section3DocumentExpiration *time.Time `json:"section3_document_expiration,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// loaded on read, never written through the verification row
	Documents []I9Document `json:"documents,omitempty"`
}

type DocumentList string

const (
	DocumentListA DocumentList = "A"
	DocumentListB DocumentList = "B"
	DocumentListC DocumentList = "C"
)

type I9Document struct {
	ID               int32        `json:"id"`
	VerificationID   int32        `json:"verification_id"`
	ListType         DocumentList `json:"list_type"`
	DocumentType     string       `json:"document_type"`
	Title            string       `json:"title"`
	IssuingAuthority string       `json:"issuing_authority"`
	Number           string       `json:"number"`
	ExpirationDate   *time.Time   `json:"expiration_date,omitempty"`
	VerifiedBy       int32        `json:"verified_by"`
	VerifiedAt       time.Time    `json:"verified_at"`
}

// ValidDocumentCombination accepts one or more List A documents with nothing
// else, or at least one List B plus at least one List C document and no List A.
func ValidDocumentCombination(docs []I9Document) bool {
	var a, b, c int
	for _, d := range docs {
		switch d.ListType {
		case DocumentListA:
			a++
		case DocumentListB:
			b++
		case DocumentListC:
			c++
		default:
			return false
		}
	}
	if a > 0 {
		return b == 0 && c == 0
	}
	return b > 0 && c > 0
}

type AuthorizationType string

const (
	AuthorizationCitizen           AuthorizationType = "citizen"
	AuthorizationPermanentResident AuthorizationType = "permanent_resident"
	AuthorizationEAD               AuthorizationType = "ead"
	AuthorizationOther             AuthorizationType = "other"
)

type WorkAuthorization struct {
	ID                int32             `json:"id"`
	VerificationID    int32             `json:"verification_id"`
	AuthorizationType AuthorizationType `json:"authorization_type"`
	Indefinite        bool              `json:"indefinite"`
	ValidFrom         time.Time         `json:"valid_from"`
	ValidUntil        *time.Time        `json:"valid_until,omitempty"`
}

// ExpiredOn reports whether a time-limited authorization lapsed before day.
func (w *WorkAuthorization) ExpiredOn(day time.Time) bool {
	if w.Indefinite || w.ValidUntil == nil {
		return false
	}
	return w.ValidUntil.Before(day)
}

// WorkAuthorizationFor derives the authorization recorded at section 2 from
// the employee's section 1 attestation.
func WorkAuthorizationFor(v *I9Verification, validFrom time.Time) WorkAuthorization {
	auth := WorkAuthorization{VerificationID: v.ID, ValidFrom: validFrom, AuthorizationType: AuthorizationOther}
	if v.CitizenshipStatus == nil {
		return auth
	}
	switch *v.CitizenshipStatus {
	case CitizenshipCitizen, CitizenshipNoncitizenNational:
		auth.AuthorizationType = AuthorizationCitizen
		auth.Indefinite = true
	case CitizenshipPermanentResident:
		auth.AuthorizationType = AuthorizationPermanentResident
		auth.Indefinite = true
	case CitizenshipAlienAuthorized:
		auth.AuthorizationType = AuthorizationEAD
		auth.ValidUntil = v.AlienExpirationDate
	}
	return auth
}

// Section1Input is the employee's section 1 submission.
type Section1Input struct {
	CitizenshipStatus      CitizenshipStatus
	AlienNumber            string
	I94Number              string
	ForeignPassportNumber  string
	ForeignPassportCountry string
	AlienExpirationDate    *time.Time
	AttestationAccepted    bool
}

// Validate checks the attestation, citizenship status and alien documents.
func (in Section1Input) Validate() error {
	if !in.AttestationAccepted {
		return Fail(FailureAttestationRequired, "employee must accept the attestation")
	}
	if !in.CitizenshipStatus.Valid() {
		return Fail(FailureInvalidCitizenshipStatus, fmt.Sprintf("unknown citizenship status %q", in.CitizenshipStatus))
	}
	if in.CitizenshipStatus == CitizenshipAlienAuthorized &&
		blank(in.AlienNumber) && blank(in.I94Number) && blank(in.ForeignPassportNumber) {
		return Fail(FailureAlienDocumentRequired, "alien number, I-94 number or foreign passport number is required")
	}
	return nil
}

// Section2Input is the employer's section 2 review.
type Section2Input struct {
	EmployerTitle      string
	EmployerOrgName    string
	EmployerOrgAddress string
	Documents          []I9Document
	// LateReason overrides the synthesized reason when section 2 is late.
	LateReason string
}

func (in Section2Input) Validate() error {
	var missing []string
	if blank(in.EmployerTitle) {
		missing = append(missing, "employer title is required")
	}
	if blank(in.EmployerOrgName) {
		missing = append(missing, "employer organization name is required")
	}
	if blank(in.EmployerOrgAddress) {
		missing = append(missing, "employer organization address is required")
	}
	if len(missing) > 0 {
		return Fail(FailureEmployerFieldsRequired, missing...)
	}
	if !ValidDocumentCombination(in.Documents) {
		return Fail(FailureInvalidDocumentCombination, "provide one List A document, or one List B and one List C document")
	}
	return nil
}

// Section3Input records a reverification or rehire.
type Section3Input struct {
	RehireDate         *time.Time
	DocumentTitle      string
	DocumentNumber     string
	DocumentExpiration *time.Time
}

func (in Section3Input) Validate() error {
	if blank(in.DocumentTitle) || blank(in.DocumentNumber) {
		return Fail(FailureReverificationDocument, "document title and number are required")
	}
	return nil
}

// LateCompletionReason formats the reason stored when section 2 is
// completed after its deadline.
func LateCompletionReason(daysLate int, deadline time.Time) string {
	return fmt.Sprintf("Section 2 completed %d day(s) after the deadline of %s", daysLate, deadline.Format("2006-01-02"))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
