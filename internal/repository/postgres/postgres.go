package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hireflow-backend/internal/config"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/repository"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const uniqueViolation = "23505"

// Open connects to PostgreSQL, sizes the pool and waits for the server.
func Open(ctx context.Context, cfg config.DatabaseConfig, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleMinutes) * time.Minute)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	deadline := time.Now().Add(30 * time.Second)
	backoff := 500 * time.Millisecond
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Warn("Database not ready yet", "error", err, "retryIn", backoff)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

// Store owns the connection pool and hands out repositories bound either to
// the pool or to a transaction.
type Store struct {
	db *sql.DB
	*repository.Repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Repositories: newRepositories(db),
	}
}

func newRepositories(q DBTX) *repository.Repositories {
	stages := NewStageRepository(q)
	return &repository.Repositories{
		Applications:     NewApplicationRepository(q),
		Candidates:       NewCandidateRepository(q),
		Stages:           stages,
		StageCatalog:     stages,
		Transitions:      NewStageTransitionRepository(q),
		RejectionReasons: NewRejectionReasonRepository(q),
		Jobs:             NewJobRepository(q),
		Offers:           NewOfferRepository(q),
		Approvables:      NewApprovableRepository(q),
		Approvals:        NewApprovalRepository(q),
		Decisions:        NewHiringDecisionRepository(q),
		I9:               NewI9Repository(q),
		AdverseActions:   NewAdverseActionRepository(q),
		Audit:            NewAuditRepository(q),
		Users:            NewUserRepository(q),
		Members:          NewMemberRepository(q),
		Organizations:    NewOrganizationRepository(q),
		Notifications:    NewNotificationRepository(q),
	}
}

// WithinTx runs fn in a transaction. Any error from fn rolls back every write
// made through the repositories it was handed.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError converts driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pqErr.Constraint)
	}
	return err
}

// expectOneRow turns a zero-row compare-and-set update into ErrStaleState.
func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrStaleState
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
