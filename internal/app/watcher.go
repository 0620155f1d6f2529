package app

import (
	"sync"

	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/store"
)

// Snapshot is one recomputed view over the whole downloads table.
type Snapshot struct {
	// States maps recordingID to its aggregated download state.
	States map[string]domain.ShowDownloadState
	// Completion maps recordingID to per-track completion flags.
	Completion map[string]map[string]bool
}

// StateWatcher recomputes aggregated download states whenever the store
// changes and broadcasts the result to subscribers. Derived state is never
// mutated incrementally; every notification rebuilds it from the row set.
type StateWatcher struct {
	db  *store.DB
	log *logger.Logger

	mu      sync.Mutex
	subs    map[int]chan Snapshot
	nextID  int
	current Snapshot

	dirty chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewStateWatcher creates a watcher over the store. Call Start to hook the
// store's change notifications.
func NewStateWatcher(db *store.DB, log *logger.Logger) *StateWatcher {
	return &StateWatcher{
		db:    db,
		log:   log.WithComponent("watcher"),
		subs:  make(map[int]chan Snapshot),
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Start computes the initial snapshot and begins listening for changes.
func (w *StateWatcher) Start() {
	w.db.SetOnChange(func() {
		select {
		case w.dirty <- struct{}{}:
		default:
		}
	})

	w.recompute()
	w.wg.Add(1)
	go w.loop()
}

// Stop detaches from the store and ends the recompute loop.
func (w *StateWatcher) Stop() {
	w.db.SetOnChange(nil)
	close(w.done)
	w.wg.Wait()
}

// Subscribe returns a channel of snapshots plus a cancel function. The
// current snapshot is delivered immediately; slow subscribers miss
// intermediate snapshots but always eventually see the latest one.
func (w *StateWatcher) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	ch <- w.current
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		if _, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(ch)
		}
		w.mu.Unlock()
	}
	return ch, cancel
}

// Current returns the latest snapshot.
func (w *StateWatcher) Current() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *StateWatcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-w.dirty:
			w.recompute()
		}
	}
}

func (w *StateWatcher) recompute() {
	rows, err := w.db.ListAllDownloads()
	if err != nil {
		w.log.Error("snapshot recompute failed", "error", err)
		return
	}

	grouped := map[string][]domain.Download{}
	for _, r := range rows {
		grouped[r.RecordingID] = append(grouped[r.RecordingID], *r)
	}

	snap := Snapshot{
		States:     make(map[string]domain.ShowDownloadState, len(grouped)),
		Completion: make(map[string]map[string]bool, len(grouped)),
	}
	for recID, group := range grouped {
		snap.States[recID] = domain.Aggregate(group)
		snap.Completion[recID] = domain.TrackCompletion(group)
	}

	w.mu.Lock()
	w.current = snap
	for _, ch := range w.subs {
		// Replace a pending snapshot rather than blocking on it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	w.mu.Unlock()
}
