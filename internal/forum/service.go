package forum

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/authz"
	"github.com/zarforum/zarforum/internal/shared"
)

// Repository defines read access and transaction entry for forum data.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	CountCategories(ctx context.Context) (int, error)
	ListThreads(ctx context.Context, categoryID uuid.UUID) ([]Thread, error)
	GetThread(ctx context.Context, id uuid.UUID) (*Thread, error)
	ListPosts(ctx context.Context, threadID uuid.UUID) ([]Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	IncrementViews(ctx context.Context, threadID uuid.UUID) error
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes forum mutations inside a transaction.
type TxRepository interface {
	InsertCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error)
	CountThreadsInCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
	InsertThread(ctx context.Context, t Thread) error
	GetThreadForUpdate(ctx context.Context, id uuid.UUID) (*Thread, error)
	SetThreadPinned(ctx context.Context, id uuid.UUID, pinned bool) (int64, error)
	SetThreadLocked(ctx context.Context, id uuid.UUID, locked bool) (int64, error)
	TouchThread(ctx context.Context, id uuid.UUID, at time.Time) error
	InsertPost(ctx context.Context, p Post) error
	DeletePost(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteThreadPosts(ctx context.Context, threadID uuid.UUID) (int64, error)
	DeleteThread(ctx context.Context, id uuid.UUID) (int64, error)
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// Authorizer answers permission questions; satisfied by *authz.Service.
type Authorizer interface {
	Require(ctx context.Context, actor shared.Actor, permission string) error
}

// ViewMarker decides whether a viewer sees a thread for the first time
// within the dedup window.
type ViewMarker interface {
	FirstView(ctx context.Context, viewer string, threadID uuid.UUID) (bool, error)
}

// Service handles forum business logic.
type Service struct {
	repo  Repository
	authz Authorizer
	views ViewMarker
	now   func() time.Time
}

// NewService builds a Service instance. views may be nil, in which case
// every view increments the counter.
func NewService(repo Repository, authorizer Authorizer, views ViewMarker) *Service {
	return &Service{repo: repo, authz: authorizer, views: views, now: time.Now}
}

// ListCategories returns categories in sort order.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory adds a category at the end of the board, audited as
// CREATE_CATEGORY.
func (s *Service) CreateCategory(ctx context.Context, actor shared.Actor, name, description, icon string) (*Category, error) {
	if err := s.authz.Require(ctx, actor, authz.PermManageCategories); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &shared.ValidationError{Field: "name", Reason: "required"}
	}
	order, err := s.repo.CountCategories(ctx)
	if err != nil {
		return nil, err
	}
	category := Category{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Icon:        icon,
		SortOrder:   order,
		CreatedBy:   &actor.ID,
		CreatedAt:   s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertCategory(ctx, category); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  audit.ActionCreateCategory,
			Details: map[string]any{"name": category.Name},
		})
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory removes an empty category, audited as DELETE_CATEGORY.
// Categories still holding threads are refused.
func (s *Service) DeleteCategory(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.authz.Require(ctx, actor, authz.PermManageCategories); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.CountThreadsInCategory(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrInvalidState
		}
		rows, err := tx.DeleteCategory(ctx, id)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  audit.ActionDeleteCategory,
			Details: map[string]any{"category_id": id.String()},
		})
	})
}

// ListThreads returns the category's threads, pinned first, then most
// recently active.
func (s *Service) ListThreads(ctx context.Context, categoryID uuid.UUID) ([]Thread, error) {
	return s.repo.ListThreads(ctx, categoryID)
}

// GetThread returns one thread.
func (s *Service) GetThread(ctx context.Context, id uuid.UUID) (*Thread, error) {
	return s.repo.GetThread(ctx, id)
}

// CreateThread starts a new thread. Not permission-gated, but banned
// actors are refused like every other mutation.
func (s *Service) CreateThread(ctx context.Context, actor shared.Actor, categoryID uuid.UUID, title, content string) (*Thread, error) {
	if actor.Banned {
		return nil, shared.ErrPermissionDenied
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &shared.ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &shared.ValidationError{Field: "content", Reason: "required"}
	}
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	now := s.now()
	thread := Thread{
		ID:         uuid.New(),
		CategoryID: categoryID,
		AuthorID:   &actor.ID,
		Title:      title,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertThread(ctx, thread)
	})
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// Pin marks the thread pinned. Requires the moderation permission; audited.
func (s *Service) Pin(ctx context.Context, actor shared.Actor, threadID uuid.UUID) error {
	return s.setFlag(ctx, actor, threadID, audit.ActionPinThread, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.SetThreadPinned(ctx, threadID, true)
	})
}

// Unpin clears the pinned flag.
func (s *Service) Unpin(ctx context.Context, actor shared.Actor, threadID uuid.UUID) error {
	return s.setFlag(ctx, actor, threadID, audit.ActionUnpinThread, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.SetThreadPinned(ctx, threadID, false)
	})
}

// Lock closes the thread for replies.
func (s *Service) Lock(ctx context.Context, actor shared.Actor, threadID uuid.UUID) error {
	return s.setFlag(ctx, actor, threadID, audit.ActionLockThread, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.SetThreadLocked(ctx, threadID, true)
	})
}

// Unlock reopens the thread.
func (s *Service) Unlock(ctx context.Context, actor shared.Actor, threadID uuid.UUID) error {
	return s.setFlag(ctx, actor, threadID, audit.ActionUnlockThread, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.SetThreadLocked(ctx, threadID, false)
	})
}

func (s *Service) setFlag(ctx context.Context, actor shared.Actor, threadID uuid.UUID, action string, set func(context.Context, TxRepository) (int64, error)) error {
	if err := s.authz.Require(ctx, actor, authz.PermDeleteThreads); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := set(ctx, tx)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  action,
			Details: map[string]any{"thread_id": threadID.String()},
		})
	})
}

// ListPosts returns the thread's replies oldest first.
func (s *Service) ListPosts(ctx context.Context, threadID uuid.UUID) ([]Post, error) {
	return s.repo.ListPosts(ctx, threadID)
}

// CreatePost adds a reply. The locked flag is re-read inside the
// transaction, so a lock that lands between check and write still wins.
func (s *Service) CreatePost(ctx context.Context, actor shared.Actor, threadID uuid.UUID, text string, imageURLs []string, flameStyle bool) (*Post, error) {
	if actor.Banned {
		return nil, shared.ErrPermissionDenied
	}
	content, err := composeContent(text, imageURLs)
	if err != nil {
		return nil, err
	}
	post := Post{
		ID:         uuid.New(),
		ThreadID:   threadID,
		AuthorID:   &actor.ID,
		Content:    content,
		FlameStyle: flameStyle,
		CreatedAt:  s.now(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		thread, err := tx.GetThreadForUpdate(ctx, threadID)
		if err != nil {
			return err
		}
		if thread.Locked {
			return shared.ErrInvalidState
		}
		if err := tx.InsertPost(ctx, post); err != nil {
			return err
		}
		return tx.TouchThread(ctx, threadID, post.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a reply. The author may always delete their own post;
// anyone else needs the moderation permission. Audited as DELETE_POST.
func (s *Service) DeletePost(ctx context.Context, actor shared.Actor, postID uuid.UUID) error {
	if actor.Banned {
		return shared.ErrPermissionDenied
	}
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	own := post.AuthorID != nil && *post.AuthorID == actor.ID
	if !own {
		if err := s.authz.Require(ctx, actor, authz.PermDeleteThreads); err != nil {
			return err
		}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.DeletePost(ctx, postID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID:  actor.ID,
			Action:   audit.ActionDeletePost,
			TargetID: post.AuthorID,
			Details:  map[string]any{"post_id": postID.String(), "thread_id": post.ThreadID.String()},
		})
	})
}

// DeleteThread removes the thread and every post in it as one transaction,
// with exactly one DELETE_THREAD audit entry. No orphan posts survive a
// partial failure because there is no partial failure.
func (s *Service) DeleteThread(ctx context.Context, actor shared.Actor, threadID uuid.UUID) error {
	if err := s.authz.Require(ctx, actor, authz.PermDeleteThreads); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		thread, err := tx.GetThreadForUpdate(ctx, threadID)
		if err != nil {
			return err
		}
		posts, err := tx.DeleteThreadPosts(ctx, threadID)
		if err != nil {
			return err
		}
		rows, err := tx.DeleteThread(ctx, threadID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  audit.ActionDeleteThread,
			Details: map[string]any{
				"thread_id": threadID.String(),
				"title":     thread.Title,
				"posts":     posts,
			},
		})
	})
}

// RecordView bumps the view counter for first-time viewers within the dedup
// window. The counter only ever grows. Without a marker, or when the marker
// is unreachable, every view counts; losing dedup beats losing views.
func (s *Service) RecordView(ctx context.Context, viewer string, threadID uuid.UUID) error {
	if s.views != nil && viewer != "" {
		first, err := s.views.FirstView(ctx, viewer, threadID)
		if err == nil && !first {
			return nil
		}
	}
	return s.repo.IncrementViews(ctx, threadID)
}
