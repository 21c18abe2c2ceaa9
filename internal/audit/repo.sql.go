package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads admin_logs from PostgreSQL. Only SELECT statements live
// here; writes go through Recorder inside the mutating transaction and
// nothing in the codebase updates or deletes a logged entry.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListEntries returns a page of entries ordered newest first.
func (r *PGRepository) ListEntries(ctx context.Context, limit, offset int) ([]Entry, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("audit: repository not initialised")
	}
	const query = `
		SELECT id, admin_id, action, target_user_id, details, created_at
		FROM admin_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.TargetID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
