package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
// Callers pass their open transaction so the entry commits or rolls back
// together with the mutation it documents.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder appends entries to admin_logs.
type Recorder struct{}

// NewRecorder returns a new Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record persists the entry through q. A failed write surfaces as an error
// and must abort the caller's transaction; logging is not best-effort.
func (r *Recorder) Record(ctx context.Context, q Querier, e Entry) error {
	if e.Action == "" {
		return errors.New("audit: entry requires an action")
	}
	if e.AdminID == uuid.Nil {
		return errors.New("audit: entry requires an admin actor")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`INSERT INTO admin_logs (id, admin_id, action, target_user_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		e.ID, e.AdminID, e.Action, e.TargetID, detailsJSON)
	return err
}
