package domain

import (
	"testing"
	"time"

	"hireflow-backend/internal/statemachine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI9Transition(t *testing.T) {
	t.Run("Happy path without E-Verify", func(t *testing.T) {
		state := I9StatusPendingSection1
		for _, step := range []struct {
			event statemachine.Event
			want  I9Status
		}{
			{I9EventCompleteSection1, I9StatusSection1Complete},
			{I9EventRequestSection2, I9StatusPendingSection2},
			{I9EventCompleteSection2, I9StatusSection2Complete},
			{I9EventVerify, I9StatusVerified},
		} {
			next, _, err := I9Transition(state, step.event)
			require.NoError(t, err, step.event)
			assert.Equal(t, step.want, next)
			state = next
		}
	})

	t.Run("Tentative nonconfirmation can still be authorized", func(t *testing.T) {
		next, effects, err := I9Transition(I9StatusEVerifyTNC, I9EventEVerifyAuthorized)
		require.NoError(t, err)
		assert.Equal(t, I9StatusVerified, next)
		assert.Len(t, FilterEffects(effects, EffectNotify), 1)
	})

	t.Run("Cannot skip section 1", func(t *testing.T) {
		_, effects, err := I9Transition(I9StatusPendingSection1, I9EventCompleteSection2)
		assert.True(t, IsFailure(err, FailureInvalidTransition))
		assert.Nil(t, effects)
	})

	t.Run("Terminal states accept nothing", func(t *testing.T) {
		for _, s := range []I9Status{I9StatusFailed, I9StatusExpired} {
			_, _, err := I9Transition(s, I9EventVerify)
			assert.Error(t, err)
		}
	})

	t.Run("Effects are copies", func(t *testing.T) {
		_, effects, err := I9Transition(I9StatusSection2Complete, I9EventVerify)
		require.NoError(t, err)
		effects[0].Action = "tampered"
		_, again, _ := I9Transition(I9StatusSection2Complete, I9EventVerify)
		assert.Equal(t, "i9.verified", again[0].Action)
	})
}

func TestValidDocumentCombination(t *testing.T) {
	a := I9Document{ListType: DocumentListA}
	b := I9Document{ListType: DocumentListB}
	c := I9Document{ListType: DocumentListC}

	tests := []struct {
		name string
		docs []I9Document
		want bool
	}{
		{"List A alone", []I9Document{a}, true},
		{"List B and C", []I9Document{b, c}, true},
		{"List B alone", []I9Document{b}, false},
		{"List C alone", []I9Document{c}, false},
		{"List A with B", []I9Document{a, b}, false},
		{"List A with B and C", []I9Document{a, b, c}, false},
		{"No documents", nil, false},
		{"Unknown list", []I9Document{{ListType: "D"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidDocumentCombination(tt.docs))
		})
	}
}

func TestSection1InputValidate(t *testing.T) {
	t.Run("Attestation required", func(t *testing.T) {
		err := Section1Input{CitizenshipStatus: CitizenshipCitizen}.Validate()
		assert.True(t, IsFailure(err, FailureAttestationRequired))
	})

	t.Run("Unknown citizenship", func(t *testing.T) {
		err := Section1Input{CitizenshipStatus: "tourist", AttestationAccepted: true}.Validate()
		assert.True(t, IsFailure(err, FailureInvalidCitizenshipStatus))
	})

	t.Run("Alien needs a document number", func(t *testing.T) {
		in := Section1Input{CitizenshipStatus: CitizenshipAlienAuthorized, AttestationAccepted: true}
		assert.True(t, IsFailure(in.Validate(), FailureAlienDocumentRequired))

		in.I94Number = "12345678901"
		assert.NoError(t, in.Validate())
	})
}

func TestSection2InputValidate(t *testing.T) {
	in := Section2Input{
		EmployerTitle:      "HR Manager",
		EmployerOrgName:    "Acme",
		EmployerOrgAddress: "1 Main St",
		Documents:          []I9Document{{ListType: DocumentListB}},
	}
	assert.True(t, IsFailure(in.Validate(), FailureInvalidDocumentCombination))

	in.Documents = []I9Document{{ListType: DocumentListA}}
	assert.NoError(t, in.Validate())

	in.EmployerTitle = "  "
	f, ok := AsFailure(in.Validate())
	require.True(t, ok)
	assert.Equal(t, FailureEmployerFieldsRequired, f.Code)
	assert.Len(t, f.Messages, 1)
}

func TestWorkAuthorizationFor(t *testing.T) {
	from := time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)
	until := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)

	status := func(c CitizenshipStatus) *CitizenshipStatus { return &c }

	tests := []struct {
		citizenship *CitizenshipStatus
		wantType    AuthorizationType
		indefinite  bool
	}{
		{status(CitizenshipCitizen), AuthorizationCitizen, true},
		{status(CitizenshipNoncitizenNational), AuthorizationCitizen, true},
		{status(CitizenshipPermanentResident), AuthorizationPermanentResident, true},
		{status(CitizenshipAlienAuthorized), AuthorizationEAD, false},
		{nil, AuthorizationOther, false},
	}
	for _, tt := range tests {
		v := &I9Verification{ID: 7, CitizenshipStatus: tt.citizenship, AlienExpirationDate: &until}
		auth := WorkAuthorizationFor(v, from)
		assert.Equal(t, tt.wantType, auth.AuthorizationType)
		assert.Equal(t, tt.indefinite, auth.Indefinite)
		assert.Equal(t, int32(7), auth.VerificationID)
		if tt.wantType == AuthorizationEAD {
			require.NotNil(t, auth.ValidUntil)
			assert.Equal(t, until, *auth.ValidUntil)
			assert.True(t, auth.ExpiredOn(until.AddDate(0, 0, 1)))
			assert.False(t, auth.ExpiredOn(until))
		}
	}
}

func TestLateCompletionReason(t *testing.T) {
	deadline := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Section 2 completed 2 day(s) after the deadline of 2026-01-28", LateCompletionReason(2, deadline))
}
