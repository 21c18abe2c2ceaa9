package transfers

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/platform/db"
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

// List returns transfers newest first.
func (r *PGRepository) List(ctx context.Context) ([]Transfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, player_name, age, position, from_club, to_club, fee, created_by, created_at
		FROM transfers
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.ID, &t.PlayerName, &t.Age, &t.Position, &t.FromClub, &t.ToClub, &t.Fee, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
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

func (r *pgTxRepository) Insert(ctx context.Context, t Transfer) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO transfers (id, player_name, age, position, from_club, to_club, fee, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.PlayerName, t.Age, t.Position, t.FromClub, t.ToClub, t.Fee, t.CreatedBy, t.CreatedAt)
	return err
}

func (r *pgTxRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM transfers WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) RecordAudit(ctx context.Context, e audit.Entry) error {
	return r.recorder.Record(ctx, r.tx, e)
}
