package forum

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/platform/db"
	"github.com/zarforum/zarforum/internal/shared"
)

const threadColumns = `
	id, category_id, author_id, title, content, is_pinned, is_locked, views,
	created_at, updated_at`

// PGRepository is the PostgreSQL implementation of Repository.
type PGRepository struct {
	pool     *pgxpool.Pool
	recorder *audit.Recorder
}

// NewPGRepository constructs the repository.
func NewPGRepository(pool *pgxpool.Pool, recorder *audit.Recorder) *PGRepository {
	return &PGRepository{pool: pool, recorder: recorder}
}

// ListCategories returns categories in board order.
func (r *PGRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, icon, sort_order, created_by, created_at
		FROM categories
		ORDER BY sort_order ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory fetches one category.
func (r *PGRepository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, icon, sort_order, created_by, created_at
		FROM categories
		WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CountCategories returns the number of categories on the board.
func (r *PGRepository) CountCategories(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}

// ListThreads returns a category's threads, pinned first, then by recent
// activity.
func (r *PGRepository) ListThreads(ctx context.Context, categoryID uuid.UUID) ([]Thread, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE category_id = $1
		ORDER BY is_pinned DESC, updated_at DESC`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, *t)
	}
	return threads, rows.Err()
}

// GetThread fetches one thread.
func (r *PGRepository) GetThread(ctx context.Context, id uuid.UUID) (*Thread, error) {
	return scanThread(r.pool.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE id = $1`, id))
}

// ListPosts returns the thread's replies oldest first.
func (r *PGRepository) ListPosts(ctx context.Context, threadID uuid.UUID) ([]Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, thread_id, author_id, content, flame_style, created_at
		FROM posts
		WHERE thread_id = $1
		ORDER BY created_at ASC`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.ThreadID, &p.AuthorID, &p.Content, &p.FlameStyle, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost fetches one post.
func (r *PGRepository) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	var p Post
	err := r.pool.QueryRow(ctx, `
		SELECT id, thread_id, author_id, content, flame_style, created_at
		FROM posts
		WHERE id = $1`, id).
		Scan(&p.ID, &p.ThreadID, &p.AuthorID, &p.Content, &p.FlameStyle, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// IncrementViews bumps the thread's view counter.
func (r *PGRepository) IncrementViews(ctx context.Context, threadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE threads SET views = views + 1 WHERE id = $1`, threadID)
	return err
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

func (r *pgTxRepository) InsertCategory(ctx context.Context, c Category) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO categories (id, name, description, icon, sort_order, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Description, c.Icon, c.SortOrder, c.CreatedBy, c.CreatedAt)
	return err
}

func (r *pgTxRepository) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) CountThreadsInCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM threads WHERE category_id = $1`, categoryID).Scan(&n)
	return n, err
}

func (r *pgTxRepository) InsertThread(ctx context.Context, t Thread) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO threads (id, category_id, author_id, title, content, is_pinned, is_locked, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.CategoryID, t.AuthorID, t.Title, t.Content, t.Pinned, t.Locked, t.Views, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *pgTxRepository) GetThreadForUpdate(ctx context.Context, id uuid.UUID) (*Thread, error) {
	return scanThread(r.tx.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE id = $1
		FOR UPDATE`, id))
}

func (r *pgTxRepository) SetThreadPinned(ctx context.Context, id uuid.UUID, pinned bool) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE threads SET is_pinned = $2 WHERE id = $1`, id, pinned)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) SetThreadLocked(ctx context.Context, id uuid.UUID, locked bool) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE threads SET is_locked = $2 WHERE id = $1`, id, locked)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) TouchThread(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE threads SET updated_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *pgTxRepository) InsertPost(ctx context.Context, p Post) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO posts (id, thread_id, author_id, content, flame_style, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ThreadID, p.AuthorID, p.Content, p.FlameStyle, p.CreatedAt)
	return err
}

func (r *pgTxRepository) DeletePost(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) DeleteThreadPosts(ctx context.Context, threadID uuid.UUID) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM posts WHERE thread_id = $1`, threadID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) DeleteThread(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM threads WHERE id = $1`, id)
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

func scanThread(row rowScanner) (*Thread, error) {
	var t Thread
	err := row.Scan(
		&t.ID, &t.CategoryID, &t.AuthorID, &t.Title, &t.Content, &t.Pinned, &t.Locked,
		&t.Views, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
