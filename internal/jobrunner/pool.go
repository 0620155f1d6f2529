package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ds17f/deadarchive/internal/constants"
	"github.com/ds17f/deadarchive/internal/logger"
)

type jobState struct {
	spec      JobSpec
	cancel    context.CancelFunc
	running   bool
	startedAt time.Time
}

// Pool runs submitted jobs on a fixed number of workers.
type Pool struct {
	exec      Executor
	log       *logger.Logger
	retries   int
	retryBase time.Duration

	jobs chan JobSpec

	mu     sync.Mutex
	states map[string]*jobState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Runner = (*Pool)(nil)

// NewPool creates a pool with the given worker count. Retry behavior uses
// the application defaults.
func NewPool(workers int, exec Executor, log *logger.Logger) *Pool {
	if workers <= 0 {
		workers = constants.DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		exec:      exec,
		log:       log.WithComponent("jobrunner"),
		retries:   constants.DefaultRetryCount,
		retryBase: constants.DefaultRetryBase,
		jobs:      make(chan JobSpec, constants.JobQueueDepth),
		states:    make(map[string]*jobState),
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// SetRetryPolicy overrides the default retry behavior. Call before
// submitting any jobs.
func (p *Pool) SetRetryPolicy(retries int, base time.Duration) {
	p.retries = retries
	p.retryBase = base
}

// Stop cancels all running jobs and waits for the workers to drain.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Submit queues a job. Submitting an ID that is already pending or running
// returns nil without queueing a second copy. A full queue returns
// ErrQueueFull.
func (p *Pool) Submit(ctx context.Context, spec JobSpec) error {
	if spec.ID == "" {
		return errors.New("job spec needs an ID")
	}

	p.mu.Lock()
	if _, exists := p.states[spec.ID]; exists {
		p.mu.Unlock()
		return nil
	}
	p.states[spec.ID] = &jobState{spec: spec}
	p.mu.Unlock()

	select {
	case p.jobs <- spec:
		return nil
	case <-ctx.Done():
		p.forget(spec.ID)
		return ctx.Err()
	default:
		p.forget(spec.ID)
		return ErrQueueFull
	}
}

// CancelByID cancels a pending or running job. It reports whether the ID
// was known to the pool.
func (p *Pool) CancelByID(id string) bool {
	p.mu.Lock()
	st, ok := p.states[id]
	if ok && st.cancel != nil {
		st.cancel()
	}
	if ok && !st.running {
		// Pending jobs have no context yet; mark them cancelled so the
		// worker skips them when they surface from the queue.
		delete(p.states, id)
	}
	p.mu.Unlock()
	return ok
}

// ActiveCount returns the number of pending plus running jobs with the tag.
func (p *Pool) ActiveCount(tag string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, st := range p.states {
		if st.spec.Tag == tag {
			n++
		}
	}
	return n
}

// JobsByTag returns a snapshot of all tracked jobs with the tag.
func (p *Pool) JobsByTag(tag string) []JobInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	var infos []JobInfo
	for _, st := range p.states {
		if st.spec.Tag != tag {
			continue
		}
		infos = append(infos, JobInfo{
			ID:        st.spec.ID,
			Tag:       st.spec.Tag,
			Running:   st.running,
			StartedAt: st.startedAt,
		})
	}
	return infos
}

func (p *Pool) forget(id string) {
	p.mu.Lock()
	delete(p.states, id)
	p.mu.Unlock()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case spec := <-p.jobs:
			p.run(spec)
		}
	}
}

func (p *Pool) run(spec JobSpec) {
	jobCtx, jobCancel := context.WithCancel(p.ctx)
	defer jobCancel()

	p.mu.Lock()
	st, ok := p.states[spec.ID]
	if !ok {
		// Cancelled while still queued.
		p.mu.Unlock()
		return
	}
	st.cancel = jobCancel
	st.running = true
	st.startedAt = time.Now()
	p.mu.Unlock()

	defer p.forget(spec.ID)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job panicked: %v", r)
			p.log.Error("job panic", "job_id", spec.ID, "panic", r)
			p.exec.OnFailed(spec, err)
		}
	}()

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			backoff := p.retryBase << (attempt - 1)
			p.log.Info("retrying job", "job_id", spec.ID, "attempt", attempt, "backoff", backoff)
			timer := time.NewTimer(backoff)
			select {
			case <-jobCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		lastErr = p.exec.Execute(jobCtx, spec)
		if lastErr == nil {
			return
		}
		if errors.Is(lastErr, context.Canceled) || jobCtx.Err() != nil {
			// Cancelled jobs are not failures; whoever cancelled has
			// already recorded the outcome.
			return
		}
		p.log.Warn("job attempt failed", "job_id", spec.ID, "attempt", attempt, "error", lastErr)
	}

	p.exec.OnFailed(spec, lastErr)
}
