// Package jobrunner runs background jobs with bounded concurrency, retries
// and per-job cancellation.
package jobrunner

import (
	"context"
	"errors"
	"time"
)

// ErrQueueFull is returned by Submit when the job queue cannot accept more
// work right now. Callers treat it as transient and resubmit later.
var ErrQueueFull = errors.New("job queue full")

// JobSpec describes one unit of background work. ID is the idempotency key:
// submitting a spec whose ID is already pending or running is a no-op. The
// ID doubles as the store row key, so executors load their work from there.
type JobSpec struct {
	ID  string
	Tag string
}

// JobInfo is a snapshot of a tracked job.
type JobInfo struct {
	ID        string
	Tag       string
	Running   bool
	StartedAt time.Time
}

// Executor performs the actual work of a job. OnFailed is called once per
// job after all retries are exhausted.
type Executor interface {
	Execute(ctx context.Context, spec JobSpec) error
	OnFailed(spec JobSpec, err error)
}

// Runner is the narrow surface the rest of the application sees.
type Runner interface {
	Submit(ctx context.Context, spec JobSpec) error
	CancelByID(id string) bool
	ActiveCount(tag string) int
	JobsByTag(tag string) []JobInfo
}
