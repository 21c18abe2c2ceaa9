package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/zarforum/zarforum/internal/jobs"
)

// Cached stats go stale after this long; the cron schedule refreshes them
// well before.
const statsTTL = 15 * time.Minute

// StatsWarmupJob precomputes board statistics into redis so list pages
// never count rows on the hot path.
type StatsWarmupJob struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewStatsWarmupJob wires dependencies for the warmup handler.
func NewStatsWarmupJob(pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatsWarmupJob {
	return &StatsWarmupJob{
		Pool:    pool,
		Redis:   rdb,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes stats warmup tasks.
func (j *StatsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil || j.Redis == nil {
		return errors.New("stats warmup: handler not configured")
	}
	var payload StatsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskStatsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	logger.Info("starting stats warmup")

	if resultErr = j.warmCategoryCounts(ctx, payload.CategoryIDs); resultErr != nil {
		logger.Error("warm category counts", slog.Any("error", resultErr))
		return resultErr
	}
	if resultErr = j.warmThreadCounts(ctx); resultErr != nil {
		logger.Error("warm thread counts", slog.Any("error", resultErr))
		return resultErr
	}

	logger.Info("completed stats warmup", slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *StatsWarmupJob) warmCategoryCounts(ctx context.Context, categoryIDs []string) error {
	query := `
		SELECT c.id, COUNT(t.id)
		FROM categories c
		LEFT JOIN threads t ON t.category_id = c.id
		GROUP BY c.id`
	args := []any{}
	if len(categoryIDs) > 0 {
		query = `
			SELECT c.id, COUNT(t.id)
			FROM categories c
			LEFT JOIN threads t ON t.category_id = c.id
			WHERE c.id = ANY($1)
			GROUP BY c.id`
		args = append(args, categoryIDs)
	}
	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := map[string]any{}
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}
	pipe := j.Redis.Pipeline()
	pipe.HSet(ctx, "stats:threads_by_category", counts)
	pipe.Expire(ctx, "stats:threads_by_category", statsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (j *StatsWarmupJob) warmThreadCounts(ctx context.Context) error {
	rows, err := j.Pool.Query(ctx, `
		SELECT t.id, COUNT(p.id)
		FROM threads t
		LEFT JOIN posts p ON p.thread_id = t.id
		GROUP BY t.id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := map[string]any{}
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(counts) == 0 {
		return nil
	}
	pipe := j.Redis.Pipeline()
	pipe.HSet(ctx, "stats:posts_by_thread", counts)
	pipe.Expire(ctx, "stats:posts_by_thread", statsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (j *StatsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskStatsWarmup))
}

func (j *StatsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *StatsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
