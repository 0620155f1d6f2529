// Package queue drives queued downloads into the job runner while keeping
// the number of concurrent downloads under the configured cap.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ds17f/deadarchive/internal/constants"
	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/jobrunner"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/store"
)

// CycleResult reports what one queue cycle did.
type CycleResult struct {
	Started   int
	Remaining int
}

// Manager polls the store for queued downloads and submits them to the
// runner. The runner's active count is the authoritative concurrency gauge;
// database status is only an optimistic mirror.
type Manager struct {
	store         *store.DB
	runner        jobrunner.Runner
	log           *logger.Logger
	maxConcurrent int
	pollInterval  time.Duration

	kick chan struct{}
	wg   sync.WaitGroup
	stop context.CancelFunc
}

// NewManager creates a queue manager.
func NewManager(db *store.DB, runner jobrunner.Runner, maxConcurrent int, pollInterval time.Duration, log *logger.Logger) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = constants.DefaultConcurrency
	}
	if pollInterval <= 0 {
		pollInterval = constants.DefaultPollInterval
	}
	return &Manager{
		store:         db,
		runner:        runner,
		log:           log.WithComponent("queue"),
		maxConcurrent: maxConcurrent,
		pollInterval:  pollInterval,
		kick:          make(chan struct{}, 1),
	}
}

// Start launches the polling loop. Downloads stuck in downloading from a
// previous run are re-queued first.
func (m *Manager) Start() {
	if err := m.store.ResetStuckDownloads(); err != nil {
		m.log.Error("failed to reset stuck downloads", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.stop = cancel
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop halts the polling loop. Jobs already handed to the runner keep
// running until the runner itself stops.
func (m *Manager) Stop() {
	if m.stop != nil {
		m.stop()
	}
	m.wg.Wait()
}

// Kick requests an immediate cycle without waiting for the next tick.
func (m *Manager) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.kick:
		}

		res, err := m.RunQueueCycle(ctx)
		if err != nil {
			m.log.Error("queue cycle failed", "error", err)
			continue
		}
		// Capacity may free up before the next tick; chase the backlog
		// as long as cycles keep making progress.
		if res.Started > 0 && res.Remaining > 0 {
			m.Kick()
		}
	}
}

// RunQueueCycle starts as many queued downloads as the concurrency cap
// allows. A failure on one row never aborts the rest of the cycle.
func (m *Manager) RunQueueCycle(ctx context.Context) (CycleResult, error) {
	queue, err := m.store.GetQueue()
	if err != nil {
		return CycleResult{}, err
	}
	if len(queue) == 0 {
		return CycleResult{}, nil
	}

	active := m.runner.ActiveCount(constants.TagDownload)
	available := m.maxConcurrent - active
	if available <= 0 {
		return CycleResult{Remaining: len(queue)}, nil
	}

	var started int
	for _, dl := range queue {
		if started >= available {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if m.startDownload(ctx, dl) {
			started++
		}
	}

	remaining := len(queue) - started
	if started > 0 {
		m.log.Info("queue cycle", "started", started, "remaining", remaining, "active", active)
	}
	return CycleResult{Started: started, Remaining: remaining}, nil
}

// startDownload optimistically marks the row downloading, then submits it.
// A submission failure reverts the row so a later cycle retries it.
func (m *Manager) startDownload(ctx context.Context, dl *domain.Download) bool {
	if err := m.store.UpdateStatus(dl.ID, domain.StatusDownloading, nil); err != nil {
		m.log.Warn("failed to mark downloading", "download_id", dl.ID, "error", err)
		return false
	}

	err := m.runner.Submit(ctx, jobrunner.JobSpec{
		ID:  dl.ID,
		Tag: constants.TagDownload,
	})
	if err != nil {
		if revertErr := m.store.UpdateStatus(dl.ID, domain.StatusQueued, nil); revertErr != nil {
			m.log.Error("failed to revert download to queued", "download_id", dl.ID, "error", revertErr)
		}
		if !errors.Is(err, jobrunner.ErrQueueFull) {
			m.log.Warn("failed to submit download", "download_id", dl.ID, "error", err)
		}
		return false
	}
	return true
}
