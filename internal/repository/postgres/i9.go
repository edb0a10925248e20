package postgres

import (
	"context"
	"time"

	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"
)

const i9Columns = `id, application_id, organization_id, status, expected_start_date, deadline_section1, deadline_section2,
	citizenship_status, COALESCE(alien_number, ''), COALESCE(i94_number, ''), COALESCE(foreign_passport_number, ''),
	COALESCE(foreign_passport_country, ''), alien_expiration_date, attestation_accepted, section1_completed_at,
	COALESCE(section1_signature_ip, ''), COALESCE(section1_signature_user_agent, ''),
	COALESCE(employer_title, ''), COALESCE(employer_org_name, ''), COALESCE(employer_org_address, ''),
	section2_completed_at, section2_completed_by, COALESCE(section2_signature_ip, ''),
	late_completion, COALESCE(late_completion_reason, ''),
	COALESCE(everify_case_number, ''), everify_result, everify_submitted_at,
	section3_completed_at, section3_rehire_date, COALESCE(section3_document_title, ''),
	COALESCE(section3_document_number, ''), section3_document_expiration,
	created_at, updated_at`

type i9Repository struct {
	db DBTX
}

func NewI9Repository(db DBTX) repository.I9Repository {
	return &i9Repository{db: db}
}

func scanVerification(scan func(dest ...any) error, v *domain.I9Verification) error {
	return scan(
		&v.ID, &v.ApplicationID, &v.OrganizationID, &v.Status, &v.ExpectedStartDate, &v.DeadlineSection1, &v.DeadlineSection2,
		&v.CitizenshipStatus, &v.AlienNumber, &v.I94Number, &v.ForeignPassportNumber,
		&v.ForeignPassportCountry, &v.AlienExpirationDate, &v.AttestationAccepted, &v.Section1CompletedAt,
		&v.Section1SignatureIP, &v.Section1SignatureUserAgent,
		&v.EmployerTitle, &v.EmployerOrgName, &v.EmployerOrgAddress,
		&v.Section2CompletedAt, &v.Section2CompletedBy, &v.Section2SignatureIP,
		&v.LateCompletion, &v.LateCompletionReason,
		&v.EVerifyCaseNumber, &v.EVerifyResult, &v.EVerifySubmittedAt,
		&v.Section3CompletedAt, &v.Section3RehireDate, &v.Section3DocumentTitle,
		&v.Section3DocumentNumber, &v.Section3DocumentExpiration,
		&v.CreatedAt, &v.UpdatedAt,
	)
}

func (r *i9Repository) Create(ctx context.Context, v *domain.I9Verification) error {
	logger.EnterMethod("i9Repository.Create", "applicationID", v.ApplicationID)

	query := `INSERT INTO i9_verifications (
			application_id, organization_id, status, expected_start_date, deadline_section1, deadline_section2,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		v.ApplicationID, v.OrganizationID, v.Status, v.ExpectedStartDate, v.DeadlineSection1, v.DeadlineSection2, v.CreatedAt,
	).Scan(&v.ID)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("i9Repository.Create", err, "applicationID", v.ApplicationID)
		return err
	}

	v.UpdatedAt = v.CreatedAt
	logger.ExitMethod("i9Repository.Create", "verificationID", v.ID)
	return nil
}

func (r *i9Repository) GetByID(ctx context.Context, id int32) (*domain.I9Verification, error) {
	v := &domain.I9Verification{}
	query := `SELECT ` + i9Columns + ` FROM i9_verifications WHERE id = $1`
	if err := scanVerification(r.db.QueryRowContext(ctx, query, id).Scan, v); err != nil {
		return nil, mapError(err)
	}
	return v, nil
}

func (r *i9Repository) GetByApplication(ctx context.Context, applicationID int32) (*domain.I9Verification, error) {
	v := &domain.I9Verification{}
	query := `SELECT ` + i9Columns + ` FROM i9_verifications WHERE application_id = $1`
	if err := scanVerification(r.db.QueryRowContext(ctx, query, applicationID).Scan, v); err != nil {
		return nil, mapError(err)
	}
	return v, nil
}

func (r *i9Repository) Update(ctx context.Context, v *domain.I9Verification, from domain.I9Status) error {
	logger.DatabaseCall("UPDATE", "i9_verifications", "verificationID", v.ID, "from", from, "to", v.Status)

	query := `UPDATE i9_verifications SET
			status = $1, citizenship_status = $2, alien_number = $3, i94_number = $4,
			foreign_passport_number = $5, foreign_passport_country = $6, alien_expiration_date = $7,
			attestation_accepted = $8, section1_completed_at = $9, section1_signature_ip = $10,
			section1_signature_user_agent = $11, employer_title = $12, employer_org_name = $13,
			employer_org_address = $14, section2_completed_at = $15, section2_completed_by = $16,
			section2_signature_ip = $17, late_completion = $18, late_completion_reason = $19,
			everify_case_number = $20, everify_result = $21, everify_submitted_at = $22,
			section3_completed_at = $23, section3_rehire_date = $24, section3_document_title = $25,
			section3_document_number = $26, section3_document_expiration = $27, updated_at = $28
		WHERE id = $29 AND status = $30`
	result, err := r.db.ExecContext(ctx, query,
		v.Status, v.CitizenshipStatus, nullString(v.AlienNumber), nullString(v.I94Number),
		nullString(v.ForeignPassportNumber), nullString(v.ForeignPassportCountry), v.AlienExpirationDate,
		v.AttestationAccepted, v.Section1CompletedAt, nullString(v.Section1SignatureIP),
		nullString(v.Section1SignatureUserAgent), nullString(v.EmployerTitle), nullString(v.EmployerOrgName),
		nullString(v.EmployerOrgAddress), v.Section2CompletedAt, v.Section2CompletedBy,
		nullString(v.Section2SignatureIP), v.LateCompletion, nullString(v.LateCompletionReason),
		nullString(v.EVerifyCaseNumber), v.EVerifyResult, v.EVerifySubmittedAt,
		v.Section3CompletedAt, v.Section3RehireDate, nullString(v.Section3DocumentTitle),
		nullString(v.Section3DocumentNumber), v.Section3DocumentExpiration, v.UpdatedAt,
		v.ID, from,
	)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return expectOneRow(result)
}

// ListBySection2Deadline returns verifications still waiting on section 2
// whose deadline falls on or before dueBy.
func (r *i9Repository) ListBySection2Deadline(ctx context.Context, dueBy time.Time) ([]domain.I9Verification, error) {
	query := `SELECT ` + i9Columns + ` FROM i9_verifications
	          WHERE status IN ('pending_section1', 'section1_complete', 'pending_section2')
	            AND deadline_section2 <= $1
	          ORDER BY deadline_section2, id`
	rows, err := r.db.QueryContext(ctx, query, dueBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.I9Verification
	for rows.Next() {
		var v domain.I9Verification
		if err := scanVerification(rows.Scan, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *i9Repository) AddDocument(ctx context.Context, d *domain.I9Document) error {
	query := `INSERT INTO i9_documents (
			verification_id, list_type, document_type, title, issuing_authority, number,
			expiration_date, verified_by, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		d.VerificationID, d.ListType, d.DocumentType, d.Title, nullString(d.IssuingAuthority), nullString(d.Number),
		d.ExpirationDate, d.VerifiedBy, d.VerifiedAt,
	).Scan(&d.ID)
}

func (r *i9Repository) ListDocuments(ctx context.Context, verificationID int32) ([]domain.I9Document, error) {
	query := `SELECT id, verification_id, list_type, document_type, title, COALESCE(issuing_authority, ''),
	                 COALESCE(number, ''), expiration_date, verified_by, verified_at
	          FROM i9_documents WHERE verification_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, verificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.I9Document
	for rows.Next() {
		var d domain.I9Document
		if err := rows.Scan(&d.ID, &d.VerificationID, &d.ListType, &d.DocumentType, &d.Title, &d.IssuingAuthority,
			&d.Number, &d.ExpirationDate, &d.VerifiedBy, &d.VerifiedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *i9Repository) CreateWorkAuthorization(ctx context.Context, w *domain.WorkAuthorization) error {
	query := `INSERT INTO work_authorizations (verification_id, authorization_type, indefinite, valid_from, valid_until)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, w.VerificationID, w.AuthorizationType, w.Indefinite, w.ValidFrom, w.ValidUntil).Scan(&w.ID)
	return mapError(err)
}

func (r *i9Repository) GetWorkAuthorization(ctx context.Context, verificationID int32) (*domain.WorkAuthorization, error) {
	w := &domain.WorkAuthorization{}
	query := `SELECT id, verification_id, authorization_type, indefinite, valid_from, valid_until
	          FROM work_authorizations WHERE verification_id = $1`
	err := r.db.QueryRowContext(ctx, query, verificationID).Scan(&w.ID, &w.VerificationID, &w.AuthorizationType, &w.Indefinite, &w.ValidFrom, &w.ValidUntil)
	if err != nil {
		return nil, mapError(err)
	}
	return w, nil
}

func (r *i9Repository) ExtendWorkAuthorization(ctx context.Context, id int32, validUntil time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE work_authorizations SET valid_until = $1 WHERE id = $2`, validUntil, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (r *i9Repository) ListExpiringWorkAuthorizations(ctx context.Context, from, to time.Time) ([]domain.WorkAuthorization, error) {
	query := `SELECT w.id, w.verification_id, w.authorization_type, w.indefinite, w.valid_from, w.valid_until
	          FROM work_authorizations w
	          JOIN i9_verifications v ON v.id = w.verification_id
	          WHERE v.status = 'verified' AND NOT w.indefinite
	            AND w.valid_until >= $1 AND w.valid_until < $2
	          ORDER BY w.valid_until, w.id`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WorkAuthorization
	for rows.Next() {
		var w domain.WorkAuthorization
		if err := rows.Scan(&w.ID, &w.VerificationID, &w.AuthorizationType, &w.Indefinite, &w.ValidFrom, &w.ValidUntil); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
