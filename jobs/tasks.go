// Package jobs defines the asynq task types and handlers run by the worker
// binary.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatsWarmup refreshes the cached board statistics in redis.
	TaskStatsWarmup = "stats:warmup"
	// TaskSessionSweep prunes expired session rows from postgres.
	TaskSessionSweep = "sessions:sweep"
)

// StatsWarmupPayload scopes a warmup run. An empty payload warms everything.
type StatsWarmupPayload struct {
	CategoryIDs []string `json:"category_ids,omitempty"`
}

// NewStatsWarmupTask constructs an asynq task for a stats warmup run.
func NewStatsWarmupTask(payload StatsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatsWarmup, data), nil
}

// NewSessionSweepTask constructs an asynq task for a session sweep run.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}
