package app

import (
	"testing"
	"time"

	"github.com/ds17f/deadarchive/internal/domain"
)

func TestStateWatcherBroadcastsOnChange(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusQueued)

	w := NewStateWatcher(f.db, f.svc.log)
	w.Start()
	defer w.Stop()

	ch, cancel := w.Subscribe()
	defer cancel()

	// Initial snapshot reflects the seeded queued row.
	snap := <-ch
	if _, ok := snap.States["rec1"].(domain.Downloading); !ok {
		t.Fatalf("initial state = %T, want Downloading (queued rows count as active)", snap.States["rec1"])
	}

	if err := f.db.UpdateStatus("dl-1", domain.StatusDownloading, nil); err != nil {
		t.Fatal(err)
	}
	if err := f.db.UpdateStatus("dl-1", domain.StatusCompleted, nil); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if _, ok := snap.States["rec1"].(domain.Downloaded); ok {
				if !snap.Completion["rec1"]["t1.flac"] {
					t.Error("completion flag should be set")
				}
				return
			}
		case <-deadline:
			t.Fatal("never observed the Downloaded snapshot")
		}
	}
}

func TestStateWatcherSnapshotIsPure(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusCompleted)
	f.seedRow(t, "dl-2", "rec1", "t2.flac", domain.StatusFailed)

	w := NewStateWatcher(f.db, f.svc.log)
	w.Start()
	defer w.Stop()

	first := w.Current().States["rec1"]
	w.recompute()
	second := w.Current().States["rec1"]
	if first != second {
		t.Errorf("unchanged rows must aggregate identically: %v vs %v", first, second)
	}
	if _, ok := first.(domain.Failed); !ok {
		t.Errorf("state = %T, want Failed", first)
	}
}

func TestStateWatcherUnsubscribe(t *testing.T) {
	f := setup(t)
	w := NewStateWatcher(f.db, f.svc.log)
	w.Start()
	defer w.Stop()

	ch, cancel := w.Subscribe()
	cancel()
	// Cancelling twice is safe.
	cancel()

	if _, open := <-ch; open {
		// The initial snapshot may still be buffered; the channel must be
		// closed after it drains.
		if _, open := <-ch; open {
			t.Error("channel should be closed after unsubscribe")
		}
	}
}
