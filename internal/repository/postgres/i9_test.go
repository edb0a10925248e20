package postgres

import (
	"context"
	"testing"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI9Repository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewI9Repository(db)
	start := time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)

	v := &domain.I9Verification{
		ApplicationID:     1,
		OrganizationID:    10,
		Status:            domain.I9StatusPendingSection1,
		ExpectedStartDate: start,
		DeadlineSection1:  start,
		DeadlineSection2:  start.AddDate(0, 0, 5),
		CreatedAt:         time.Now(),
	}

	mock.ExpectQuery("INSERT INTO i9_verifications").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	require.NoError(t, repo.Create(context.Background(), v))
	assert.Equal(t, int32(4), v.ID)

	mock.ExpectQuery("INSERT INTO i9_verifications").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "i9_verifications_application_id_key"})
	assert.ErrorIs(t, repo.Create(context.Background(), v), repository.ErrConflict)
}

func TestI9Repository_UpdateStale(t *testing.T) {
	db, mock := newMock(t)
	repo := NewI9Repository(db)

	v := &domain.I9Verification{ID: 4, Status: domain.I9StatusSection1Complete, UpdatedAt: time.Now()}
	mock.ExpectExec("UPDATE i9_verifications SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), v, domain.I9StatusPendingSection1)
	assert.ErrorIs(t, err, repository.ErrStaleState)
}

func TestI9Repository_GetWorkAuthorizationNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewI9Repository(db)

	mock.ExpectQuery("SELECT (.+) FROM work_authorizations WHERE verification_id").
		WithArgs(int32(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetWorkAuthorization(context.Background(), 4)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestI9Repository_ListExpiringWorkAuthorizations(t *testing.T) {
	db, mock := newMock(t)
	repo := NewI9Repository(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)
	until := from.AddDate(0, 0, 10)

	rows := sqlmock.NewRows([]string{"id", "verification_id", "authorization_type", "indefinite", "valid_from", "valid_until"}).
		AddRow(2, 4, "ead", false, from.AddDate(-1, 0, 0), until)
	mock.ExpectQuery("SELECT (.+) FROM work_authorizations w JOIN i9_verifications v").
		WithArgs(from, to).
		WillReturnRows(rows)

	auths, err := repo.ListExpiringWorkAuthorizations(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, auths, 1)
	assert.Equal(t, int32(4), auths[0].VerificationID)
	assert.Equal(t, domain.AuthorizationEAD, auths[0].AuthorizationType)
	require.NotNil(t, auths[0].ValidUntil)
	assert.True(t, until.Equal(*auths[0].ValidUntil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestI9Repository_ListDocuments(t *testing.T) {
	db, mock := newMock(t)
	repo := NewI9Repository(db)
	verifiedAt := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "verification_id", "list_type", "document_type", "title",
		"issuing_authority", "number", "expiration_date", "verified_by", "verified_at"}).
		AddRow(1, 4, "B", "drivers_license", "Driver's License", "CA DMV", "D123", nil, 7, verifiedAt).
		AddRow(2, 4, "C", "ssn_card", "Social Security Card", "SSA", "", nil, 7, verifiedAt)
	mock.ExpectQuery("SELECT (.+) FROM i9_documents WHERE verification_id = \\$1").
		WithArgs(int32(4)).
		WillReturnRows(rows)

	docs, err := repo.ListDocuments(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.DocumentListB, docs[0].ListType)
	assert.Nil(t, docs[0].ExpirationDate)
	assert.Equal(t, domain.DocumentListC, docs[1].ListType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
