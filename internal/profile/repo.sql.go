package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/platform/db"
	"github.com/zarforum/zarforum/internal/roles"
	"github.com/zarforum/zarforum/internal/shared"
)

const profileColumns = `
	p.user_id, p.username, p.email, p.description, p.avatar_url, p.is_banned,
	p.last_email_change, p.last_avatar_change, p.created_at,
	COALESCE(r.role, 'zawodnik')`

// PGRepository is the PostgreSQL implementation of Repository.
type PGRepository struct {
	pool     *pgxpool.Pool
	recorder *audit.Recorder
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool, recorder *audit.Recorder) *PGRepository {
	return &PGRepository{pool: pool, recorder: recorder}
}

// GetByUserID fetches a profile with its role assignment.
func (r *PGRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles p
		LEFT JOIN user_roles r ON r.user_id = p.user_id
		WHERE p.user_id = $1`
	return scanProfile(r.pool.QueryRow(ctx, query, userID))
}

// List returns every profile ordered by join date.
func (r *PGRepository) List(ctx context.Context) ([]Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles p
		LEFT JOIN user_roles r ON r.user_id = p.user_id
		ORDER BY p.created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// WithTx runs fn against a transaction-scoped TxRepository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx, recorder: r.recorder})
	})
}

type pgTxRepository struct {
	tx       pgx.Tx
	recorder *audit.Recorder
}

func (r *pgTxRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles p
		LEFT JOIN user_roles r ON r.user_id = p.user_id
		WHERE p.user_id = $1
		FOR UPDATE OF p`
	return scanProfile(r.tx.QueryRow(ctx, query, userID))
}

func (r *pgTxRepository) UpdateEmail(ctx context.Context, userID uuid.UUID, email string, changedAt time.Time) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE profiles SET email = $2, last_email_change = $3 WHERE user_id = $1`,
		userID, email, changedAt)
	return err
}

func (r *pgTxRepository) UpdateAvatar(ctx context.Context, userID uuid.UUID, url string, changedAt time.Time) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE profiles SET avatar_url = $2, last_avatar_change = $3 WHERE user_id = $1`,
		userID, url, changedAt)
	return err
}

func (r *pgTxRepository) UpdateDescription(ctx context.Context, userID uuid.UUID, description string) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE profiles SET description = $2 WHERE user_id = $1`,
		userID, description)
	return err
}

func (r *pgTxRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, username, email, description string) (int64, error) {
	tag, err := r.tx.Exec(ctx,
		`UPDATE profiles SET username = $2, email = $3, description = $4 WHERE user_id = $1`,
		userID, username, email, description)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) (int64, error) {
	tag, err := r.tx.Exec(ctx,
		`UPDATE profiles SET is_banned = $2 WHERE user_id = $1`,
		userID, banned)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) RecordAudit(ctx context.Context, e audit.Entry) error {
	return r.recorder.Record(ctx, r.tx, e)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var role string
	err := row.Scan(
		&p.UserID, &p.Username, &p.Email, &p.Description, &p.AvatarURL, &p.Banned,
		&p.LastEmailChange, &p.LastAvatarChange, &p.CreatedAt, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p.Role = roles.Parse(role)
	return &p, nil
}
