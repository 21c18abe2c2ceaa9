package transfers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/authz"
	"github.com/zarforum/zarforum/internal/shared"
)

// Repository defines read access and transaction entry for transfers.
type Repository interface {
	List(ctx context.Context) ([]Transfer, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes transfer mutations inside a transaction.
type TxRepository interface {
	Insert(ctx context.Context, t Transfer) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// Authorizer answers permission questions; satisfied by *authz.Service.
type Authorizer interface {
	Require(ctx context.Context, actor shared.Actor, permission string) error
}

// CreateInput carries the fields of a new transfer entry.
type CreateInput struct {
	PlayerName string
	Age        int
	Position   string
	FromClub   string
	ToClub     string
	Fee        string
}

// Service handles the transfer board.
type Service struct {
	repo  Repository
	authz Authorizer
	now   func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, authorizer Authorizer) *Service {
	return &Service{repo: repo, authz: authorizer, now: time.Now}
}

// List returns transfers newest first.
func (s *Service) List(ctx context.Context) ([]Transfer, error) {
	return s.repo.List(ctx)
}

// Create adds a transfer entry, audited as CREATE_TRANSFER.
func (s *Service) Create(ctx context.Context, actor shared.Actor, in CreateInput) (*Transfer, error) {
	if err := s.authz.Require(ctx, actor, authz.PermManageTransfers); err != nil {
		return nil, err
	}
	in.PlayerName = strings.TrimSpace(in.PlayerName)
	if in.PlayerName == "" {
		return nil, &shared.ValidationError{Field: "player_name", Reason: "required"}
	}
	if in.Age <= 0 {
		return nil, &shared.ValidationError{Field: "age", Reason: "must be positive"}
	}
	transfer := Transfer{
		ID:         uuid.New(),
		PlayerName: in.PlayerName,
		Age:        in.Age,
		Position:   strings.TrimSpace(in.Position),
		FromClub:   strings.TrimSpace(in.FromClub),
		ToClub:     strings.TrimSpace(in.ToClub),
		Fee:        strings.TrimSpace(in.Fee),
		CreatedBy:  &actor.ID,
		CreatedAt:  s.now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Insert(ctx, transfer); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  audit.ActionCreateTransfer,
			Details: map[string]any{"player_name": transfer.PlayerName},
		})
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// Delete removes a transfer entry, audited as DELETE_TRANSFER.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.authz.Require(ctx, actor, authz.PermManageTransfers); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.Delete(ctx, id)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  audit.ActionDeleteTransfer,
			Details: map[string]any{"transfer_id": id.String()},
		})
	})
}
