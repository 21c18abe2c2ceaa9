package audit

import (
	"context"
	"fmt"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Repository provides read access to admin_logs.
type Repository interface {
	ListEntries(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Service serves the read side of the audit log.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns entries newest first. Limit defaults to 50 and is capped at
// 100; offset below zero is treated as zero.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListEntries(ctx, limit, offset)
}
