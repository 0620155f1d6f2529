package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ds17f/deadarchive/internal/archive"
	"github.com/ds17f/deadarchive/internal/constants"
	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/jobrunner"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/queue"
	"github.com/ds17f/deadarchive/internal/storage"
	"github.com/ds17f/deadarchive/internal/store"
)

type fakeRunner struct {
	mu        sync.Mutex
	active    map[string]bool
	cancelled []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{active: make(map[string]bool)}
}

func (r *fakeRunner) Submit(ctx context.Context, spec jobrunner.JobSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[spec.ID] = true
	return nil
}

func (r *fakeRunner) CancelByID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, id)
	if r.active[id] {
		delete(r.active, id)
		return true
	}
	return false
}

func (r *fakeRunner) ActiveCount(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *fakeRunner) JobsByTag(tag string) []jobrunner.JobInfo { return nil }

type fixture struct {
	db           *store.DB
	settings     *store.SettingsRepo
	runner       *fakeRunner
	svc          *DownloadService
	downloadsDir string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.Default()
	runner := newFakeRunner()
	qm := queue.NewManager(db, runner, constants.DefaultConcurrency, time.Hour, log)
	settings := store.NewSettingsRepo(db)
	ac := archive.NewClient("http://127.0.0.1:0", log)
	dir := t.TempDir()
	svc := NewDownloadService(db, settings, ac, runner, qm, dir, constants.FormatFLAC, log)

	return &fixture{db: db, settings: settings, runner: runner, svc: svc, downloadsDir: dir}
}

func (f *fixture) seedShow(t *testing.T, show *domain.Show) {
	t.Helper()
	if err := f.db.UpsertShow(show); err != nil {
		t.Fatal(err)
	}
	for i := range show.Recordings {
		if err := f.db.UpsertRecording(&show.Recordings[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *fixture) seedRow(t *testing.T, id, recID, filename string, status domain.DownloadStatus) {
	t.Helper()
	err := f.db.CreateDownload(&domain.Download{
		ID:            id,
		RecordingID:   recID,
		TrackFilename: filename,
		Status:        status,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func rating(v float64) *float64 { return &v }

func testShow() *domain.Show {
	return &domain.Show{
		ID:    "1977-05-08",
		Date:  "1977-05-08",
		Venue: "Barton Hall",
		Recordings: []domain.Recording{
			{
				ID:         "sbd",
				ShowID:     "1977-05-08",
				SourceType: domain.SourceSoundboard,
				Rating:     rating(4.8),
				Tracks: domain.TrackList{
					{Filename: "d1t01.flac", Title: "Minglewood", TrackNumber: 1},
					{Filename: "d1t02.flac", Title: "Loser", TrackNumber: 2},
				},
			},
			{
				ID:         "aud",
				ShowID:     "1977-05-08",
				SourceType: domain.SourceAudience,
				Tracks: domain.TrackList{
					{Filename: "a1.flac", TrackNumber: 1},
				},
			},
		},
	}
}

func TestDownloadShowQueuesBestRecording(t *testing.T) {
	f := setup(t)
	f.seedShow(t, testShow())

	best, err := f.svc.DownloadShow(context.Background(), "1977-05-08")
	if err != nil {
		t.Fatalf("DownloadShow: %v", err)
	}
	if best.ID != "sbd" {
		t.Errorf("best = %s, want the rated soundboard", best.ID)
	}

	rows, err := f.db.ListByRecording("sbd")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want one per track", len(rows))
	}
	for _, row := range rows {
		if row.Status != domain.StatusQueued {
			t.Errorf("row %s status = %s, want queued", row.TrackFilename, row.Status)
		}
	}
}

func TestDownloadShowHonorsPin(t *testing.T) {
	f := setup(t)
	f.seedShow(t, testShow())
	if err := f.settings.SetRecordingPreference("1977-05-08", "aud"); err != nil {
		t.Fatal(err)
	}

	best, err := f.svc.DownloadShow(context.Background(), "1977-05-08")
	if err != nil {
		t.Fatal(err)
	}
	if best.ID != "aud" {
		t.Errorf("best = %s, want the pinned recording", best.ID)
	}
}

func TestDownloadRecordingIsIdempotent(t *testing.T) {
	f := setup(t)
	f.seedShow(t, testShow())

	for i := 0; i < 2; i++ {
		if err := f.svc.DownloadRecording(context.Background(), "sbd"); err != nil {
			t.Fatalf("DownloadRecording #%d: %v", i+1, err)
		}
	}

	rows, err := f.db.ListByRecording("sbd")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, repeat download must not duplicate rows", len(rows))
	}
}

func TestPauseAndResume(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusDownloading)
	f.seedRow(t, "dl-2", "rec1", "t2.flac", domain.StatusCompleted)
	f.runner.active["dl-1"] = true

	if err := f.svc.Pause("rec1"); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	dl, _ := f.db.GetDownload("dl-1")
	if dl.Status != domain.StatusPaused {
		t.Errorf("active row = %s, want paused", dl.Status)
	}
	dl, _ = f.db.GetDownload("dl-2")
	if dl.Status != domain.StatusCompleted {
		t.Errorf("completed row = %s, must stay completed", dl.Status)
	}
	if len(f.runner.cancelled) == 0 || f.runner.cancelled[0] != "dl-1" {
		t.Errorf("running job should be cancelled, got %v", f.runner.cancelled)
	}

	if err := f.svc.Resume("rec1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	dl, _ = f.db.GetDownload("dl-1")
	if dl.Status != domain.StatusQueued {
		t.Errorf("resumed row = %s, want queued so the cap applies", dl.Status)
	}
}

func TestPauseCoversQueuedRows(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-run", "rec1", "t1.flac", domain.StatusDownloading)
	f.seedRow(t, "dl-wait", "rec1", "t2.flac", domain.StatusQueued)
	f.runner.active["dl-run"] = true

	if err := f.svc.Pause("rec1"); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	for _, id := range []string{"dl-run", "dl-wait"} {
		dl, _ := f.db.GetDownload(id)
		if dl.Status != domain.StatusPaused {
			t.Errorf("%s status = %s, want paused", id, dl.Status)
		}
	}

	// Nothing of the paused group may be eligible for the next cycle.
	pending, err := f.db.GetQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("queue still holds %d row(s) after pause", len(pending))
	}

	if err := f.svc.Resume("rec1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	pending, err = f.db.GetQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Errorf("queue = %d rows after resume, want 2", len(pending))
	}
}

func TestResumeLeavesFailedAndCancelledAlone(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-p", "rec1", "t1.flac", domain.StatusPaused)
	f.seedRow(t, "dl-f", "rec1", "t2.flac", domain.StatusFailed)
	f.seedRow(t, "dl-c", "rec1", "t3.flac", domain.StatusCancelled)

	if err := f.svc.Resume("rec1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	dl, _ := f.db.GetDownload("dl-p")
	if dl.Status != domain.StatusQueued {
		t.Errorf("paused row = %s, want queued", dl.Status)
	}
	dl, _ = f.db.GetDownload("dl-f")
	if dl.Status != domain.StatusFailed {
		t.Errorf("failed row = %s, resume must not retry it", dl.Status)
	}
	dl, _ = f.db.GetDownload("dl-c")
	if dl.Status != domain.StatusCancelled {
		t.Errorf("cancelled row = %s, resume must not retry it", dl.Status)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusDownloading)

	if err := f.svc.Cancel("rec1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	dl, _ := f.db.GetDownload("dl-1")
	if dl.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", dl.Status)
	}
	first := dl.UpdatedAt

	// Cancelling again must not error or mutate anything.
	if err := f.svc.Cancel("rec1"); err != nil {
		t.Fatalf("re-cancel: %v", err)
	}
	dl, _ = f.db.GetDownload("dl-1")
	if dl.Status != domain.StatusCancelled {
		t.Errorf("status after re-cancel = %s", dl.Status)
	}
	if !dl.UpdatedAt.Equal(first) {
		t.Error("re-cancel must not touch the row")
	}
}

func TestRetryRequeuesFailedAndCancelled(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-f", "rec1", "t1.flac", domain.StatusFailed)
	f.seedRow(t, "dl-c", "rec1", "t2.flac", domain.StatusCancelled)
	f.seedRow(t, "dl-done", "rec1", "t3.flac", domain.StatusCompleted)

	if err := f.svc.Retry("rec1"); err != nil {
		t.Fatalf("Retry: %v", err)
	}

	for _, id := range []string{"dl-f", "dl-c"} {
		dl, _ := f.db.GetDownload(id)
		if dl.Status != domain.StatusQueued {
			t.Errorf("%s status = %s, want queued", id, dl.Status)
		}
	}
	dl, _ := f.db.GetDownload("dl-done")
	if dl.Status != domain.StatusCompleted {
		t.Errorf("completed row must not be retried, got %s", dl.Status)
	}
}

func TestForceDownloadBumpsPriority(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-q", "rec1", "t1.flac", domain.StatusQueued)
	f.seedRow(t, "dl-f", "rec1", "t2.flac", domain.StatusFailed)

	if err := f.svc.ForceDownload("rec1"); err != nil {
		t.Fatalf("ForceDownload: %v", err)
	}

	for _, id := range []string{"dl-q", "dl-f"} {
		dl, _ := f.db.GetDownload(id)
		if dl.Status != domain.StatusQueued {
			t.Errorf("%s status = %s, want queued", id, dl.Status)
		}
		if dl.Priority != constants.ForceStartPriority {
			t.Errorf("%s priority = %d, want force priority", id, dl.Priority)
		}
	}
}

func TestRemoveDeletesRowsAndFiles(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusCompleted)

	dir := storage.RecordingDir(f.downloadsDir, "rec1")
	if err := storage.EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	path := storage.TrackPath(f.downloadsDir, "rec1", "t1.flac")
	if err := storage.WriteFile(path, []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Remove("rec1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	dl, err := f.db.GetDownload("dl-1")
	if err != nil {
		t.Fatal(err)
	}
	if dl != nil {
		t.Error("row should be hard-deleted")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be removed")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("empty recording folder should be removed")
	}
}

func TestMarkForDeletionAndCleanup(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusCompleted)

	if err := storage.EnsureDir(storage.RecordingDir(f.downloadsDir, "rec1")); err != nil {
		t.Fatal(err)
	}
	path := storage.TrackPath(f.downloadsDir, "rec1", "t1.flac")
	if err := storage.WriteFile(path, []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.MarkForDeletion("rec1"); err != nil {
		t.Fatalf("MarkForDeletion: %v", err)
	}

	// Soft-deleted rows are invisible to aggregation.
	st, err := f.svc.RecordingState("rec1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(domain.NotDownloaded); !ok {
		t.Errorf("state = %T, want NotDownloaded after soft delete", st)
	}

	f.svc.CleanupDeleted()

	dl, err := f.db.GetDownload("dl-1")
	if err != nil {
		t.Fatal(err)
	}
	if dl != nil {
		t.Error("cleanup should hard-delete soft-deleted rows")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup should remove the file")
	}
}

func TestCleanupSkipsRowsWithLiveJobs(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusDownloading)
	f.runner.active["dl-1"] = true

	if err := f.svc.MarkForDeletion("rec1"); err != nil {
		t.Fatal(err)
	}
	// MarkForDeletion already cancelled the job; simulate the runner still
	// tearing it down when cleanup runs.
	f.runner.mu.Lock()
	f.runner.active["dl-1"] = true
	f.runner.mu.Unlock()

	f.svc.CleanupDeleted()

	dl, err := f.db.GetDownload("dl-1")
	if err != nil {
		t.Fatal(err)
	}
	if dl == nil {
		t.Error("row with a live job must survive until the next pass")
	}
}

func TestStatesAndTrackCompletion(t *testing.T) {
	f := setup(t)
	f.seedRow(t, "dl-1", "rec1", "t1.flac", domain.StatusCompleted)
	f.seedRow(t, "dl-2", "rec1", "t2.flac", domain.StatusDownloading)
	f.seedRow(t, "dl-3", "rec2", "t1.flac", domain.StatusCompleted)

	states, err := f.svc.States()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := states["rec1"].(domain.Downloading); !ok {
		t.Errorf("rec1 state = %T, want Downloading", states["rec1"])
	}
	if _, ok := states["rec2"].(domain.Downloaded); !ok {
		t.Errorf("rec2 state = %T, want Downloaded", states["rec2"])
	}

	completion, err := f.svc.TrackCompletion("rec1")
	if err != nil {
		t.Fatal(err)
	}
	if !completion["t1.flac"] || completion["t2.flac"] {
		t.Errorf("completion = %v", completion)
	}
}
