package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"medlenswaitlist/internal/domain"
)

// Names of the unique indexes on the entrants table. Violations are mapped
// to the matching sentinel error so the storage constraint, not the
// application-level check, is the authoritative signal under races.
const (
	uniqueEmailConstraint        = "entrants_email_key"
	uniqueReferralCodeConstraint = "entrants_referral_code_key"
)

const pqUniqueViolation = "23505"

type entrantRepository struct {
	DB *sql.DB
}

// NewEntrantRepository returns a domain.EntrantRepository implemented with Postgres.
func NewEntrantRepository(db *sql.DB) domain.EntrantRepository {
	return &entrantRepository{DB: db}
}

func (r *entrantRepository) Create(ctx context.Context, e *domain.Entrant) error {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	query := `
		INSERT INTO entrants (full_name, email, year_of_study, is_beta_tester, referral_code, referred_by, referral_count, questions, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query,
		e.FullName, e.Email, e.YearOfStudy, e.IsBetaTester,
		e.ReferralCode, e.ReferredBy, e.ReferralCount, questions, e.JoinedAt,
	).Scan(&e.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			switch pqErr.Constraint {
			case uniqueReferralCodeConstraint:
				return domain.ErrDuplicateReferralCode
			default:
				return domain.ErrDuplicateEmail
			}
		}
		return err
	}
	return nil
}

func (r *entrantRepository) FindByEmail(ctx context.Context, email string) (*domain.Entrant, error) {
	query := `
		SELECT id, full_name, email, year_of_study, is_beta_tester, referral_code, referred_by, referral_count, questions, joined_at
		FROM entrants
		WHERE email = $1
	`
	return r.scanEntrant(r.DB.QueryRowContext(ctx, query, email))
}

func (r *entrantRepository) FindByReferralCode(ctx context.Context, code string) (*domain.Entrant, error) {
	query := `
		SELECT id, full_name, email, year_of_study, is_beta_tester, referral_code, referred_by, referral_count, questions, joined_at
		FROM entrants
		WHERE referral_code = $1
	`
	return r.scanEntrant(r.DB.QueryRowContext(ctx, query, code))
}

// IncrementReferralCount adds one to the entrant's referral count as a
// single atomic UPDATE; concurrent credits against the same entrant
// cannot lose updates.
func (r *entrantRepository) IncrementReferralCount(ctx context.Context, entrantID string) error {
	query := `
		UPDATE entrants
		SET referral_count = referral_count + 1
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query, entrantID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrEntrantNotFound
	}
	return nil
}

func (r *entrantRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM entrants`).Scan(&count)
	return count, err
}

func (r *entrantRepository) CountBetaTesters(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM entrants WHERE is_beta_tester = TRUE`).Scan(&count)
	return count, err
}

func (r *entrantRepository) scanEntrant(row *sql.Row) (*domain.Entrant, error) {
	e := &domain.Entrant{}
	var questions []byte
	err := row.Scan(
		&e.ID, &e.FullName, &e.Email, &e.YearOfStudy, &e.IsBetaTester,
		&e.ReferralCode, &e.ReferredBy, &e.ReferralCount, &questions, &e.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntrantNotFound
		}
		return nil, err
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &e.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
	}
	return e, nil
}
