package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/platform/db"
	"github.com/zarforum/zarforum/internal/roles"
)

// PGRepository is the PostgreSQL implementation of Repository.
type PGRepository struct {
	pool     *pgxpool.Pool
	recorder *audit.Recorder
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool, recorder *audit.Recorder) *PGRepository {
	return &PGRepository{pool: pool, recorder: recorder}
}

// ListGrants returns every (role, permission) pair.
func (r *PGRepository) ListGrants(ctx context.Context) ([]Grant, error) {
	const query = `SELECT role, permission, created_at FROM role_permissions`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var role string
		if err := rows.Scan(&role, &g.Permission, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Role = roles.Parse(role)
		grants = append(grants, g)
	}
	return grants, rows.Err()
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

func (r *pgTxRepository) InsertGrant(ctx context.Context, role roles.Role, permission string) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO role_permissions (id, role, permission, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (role, permission) DO NOTHING`,
		uuid.New(), string(role), permission)
	return err
}

func (r *pgTxRepository) DeleteGrant(ctx context.Context, role roles.Role, permission string) (int64, error) {
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM role_permissions WHERE role = $1 AND permission = $2`,
		string(role), permission)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) UpdateUserRole(ctx context.Context, userID uuid.UUID, role roles.Role) (int64, error) {
	tag, err := r.tx.Exec(ctx,
		`UPDATE user_roles SET role = $2 WHERE user_id = $1`,
		userID, string(role))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) RecordAudit(ctx context.Context, e audit.Entry) error {
	return r.recorder.Record(ctx, r.tx, e)
}
