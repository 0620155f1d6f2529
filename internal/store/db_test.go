package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ds17f/deadarchive/internal/domain"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
	})
	return db
}

func newDownload(id, recordingID, filename string, status domain.DownloadStatus) *domain.Download {
	return &domain.Download{
		ID:            id,
		RecordingID:   recordingID,
		TrackFilename: filename,
		Status:        status,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestDB_Downloads(t *testing.T) {
	db := setupTestDB(t)

	d := newDownload("dl-1", "gd1977-05-08.sbd.miller", "d1t01.flac", domain.StatusQueued)
	if err := db.CreateDownload(d); err != nil {
		t.Fatalf("CreateDownload failed: %v", err)
	}

	fetched, err := db.GetDownload("dl-1")
	if err != nil {
		t.Fatalf("GetDownload failed: %v", err)
	}
	if fetched == nil || fetched.ID != "dl-1" {
		t.Fatalf("Expected dl-1, got %+v", fetched)
	}
	if fetched.Status != domain.StatusQueued {
		t.Errorf("Expected status queued, got %s", fetched.Status)
	}

	// Duplicate (recording, track) inserts are ignored
	dup := newDownload("dl-1b", "gd1977-05-08.sbd.miller", "d1t01.flac", domain.StatusQueued)
	if err := db.CreateDownload(dup); err != nil {
		t.Fatalf("CreateDownload duplicate failed: %v", err)
	}
	if got, _ := db.GetDownload("dl-1b"); got != nil {
		t.Error("Expected duplicate track insert to be ignored")
	}

	if err := db.UpdateStatus("dl-1", domain.StatusDownloading, nil); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if err := db.UpdateProgress("dl-1", 0.5, 512, 1024); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	fetched, _ = db.GetDownload("dl-1")
	if fetched.Status != domain.StatusDownloading {
		t.Errorf("Expected status downloading, got %s", fetched.Status)
	}
	if fetched.Progress != 0.5 || fetched.BytesDownloaded != 512 || fetched.TotalBytes != 1024 {
		t.Errorf("Unexpected progress fields: %+v", fetched)
	}

	if err := db.UpdateStatus("dl-1", domain.StatusCompleted, nil); err != nil {
		t.Fatalf("UpdateStatus to completed failed: %v", err)
	}
	fetched, _ = db.GetDownload("dl-1")
	if fetched.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
	if fetched.Progress != 1.0 {
		t.Errorf("Expected progress 1.0 on completion, got %f", fetched.Progress)
	}
}

func TestDB_GetQueueOrdering(t *testing.T) {
	db := setupTestDB(t)

	base := time.Now()
	rows := []*domain.Download{
		{ID: "low", RecordingID: "r", TrackFilename: "a.flac", Status: domain.StatusQueued, Priority: 0, CreatedAt: base, UpdatedAt: base},
		{ID: "high", RecordingID: "r", TrackFilename: "b.flac", Status: domain.StatusQueued, Priority: 10, CreatedAt: base.Add(time.Second), UpdatedAt: base},
		{ID: "older", RecordingID: "r", TrackFilename: "c.flac", Status: domain.StatusQueued, Priority: 0, CreatedAt: base.Add(-time.Second), UpdatedAt: base},
		{ID: "running", RecordingID: "r", TrackFilename: "d.flac", Status: domain.StatusDownloading, CreatedAt: base, UpdatedAt: base},
	}
	for _, d := range rows {
		if err := db.CreateDownload(d); err != nil {
			t.Fatalf("CreateDownload %s failed: %v", d.ID, err)
		}
	}

	queue, err := db.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("Expected 3 queued rows, got %d", len(queue))
	}
	wantOrder := []string{"high", "older", "low"}
	for i, want := range wantOrder {
		if queue[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, queue[i].ID)
		}
	}
}

func TestDB_GetQueueSkipsDeleted(t *testing.T) {
	db := setupTestDB(t)

	d := newDownload("dl-1", "rec", "a.flac", domain.StatusQueued)
	if err := db.CreateDownload(d); err != nil {
		t.Fatalf("CreateDownload failed: %v", err)
	}
	if err := db.MarkForDeletion("dl-1"); err != nil {
		t.Fatalf("MarkForDeletion failed: %v", err)
	}

	queue, err := db.GetQueue()
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("Expected empty queue, got %d rows", len(queue))
	}

	marked, err := db.ListMarkedForDeletion()
	if err != nil {
		t.Fatalf("ListMarkedForDeletion failed: %v", err)
	}
	if len(marked) != 1 {
		t.Errorf("Expected 1 marked row, got %d", len(marked))
	}
}

func TestDB_ResetStuckDownloads(t *testing.T) {
	db := setupTestDB(t)

	if err := db.CreateDownload(newDownload("stuck", "rec", "a.flac", domain.StatusDownloading)); err != nil {
		t.Fatalf("CreateDownload failed: %v", err)
	}
	if err := db.CreateDownload(newDownload("done", "rec", "b.flac", domain.StatusCompleted)); err != nil {
		t.Fatalf("CreateDownload failed: %v", err)
	}

	if err := db.ResetStuckDownloads(); err != nil {
		t.Fatalf("ResetStuckDownloads failed: %v", err)
	}

	stuck, _ := db.GetDownload("stuck")
	if stuck.Status != domain.StatusQueued {
		t.Errorf("Expected stuck row to be re-queued, got %s", stuck.Status)
	}
	done, _ := db.GetDownload("done")
	if done.Status != domain.StatusCompleted {
		t.Errorf("Expected completed row untouched, got %s", done.Status)
	}
}

func TestDB_ChangeNotification(t *testing.T) {
	db := setupTestDB(t)

	var fired int
	db.SetOnChange(func() { fired++ })

	if err := db.CreateDownload(newDownload("dl-1", "rec", "a.flac", domain.StatusQueued)); err != nil {
		t.Fatalf("CreateDownload failed: %v", err)
	}
	if err := db.UpdateStatus("dl-1", domain.StatusDownloading, nil); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if err := db.DeleteDownload("dl-1"); err != nil {
		t.Fatalf("DeleteDownload failed: %v", err)
	}

	if fired != 3 {
		t.Errorf("Expected 3 change notifications, got %d", fired)
	}
}

func TestDB_ShowsAndRecordings(t *testing.T) {
	db := setupTestDB(t)

	show := &domain.Show{
		ID:    "1977-05-08",
		Date:  "1977-05-08",
		Venue: "Barton Hall",
		City:  "Ithaca",
		State: "NY",
	}
	if err := db.UpsertShow(show); err != nil {
		t.Fatalf("UpsertShow failed: %v", err)
	}

	rating := 4.8
	rec := &domain.Recording{
		ID:          "gd1977-05-08.sbd.miller",
		ShowID:      show.ID,
		SourceType:  domain.SourceSoundboard,
		Rating:      &rating,
		RatingCount: 120,
		Tracks: domain.TrackList{
			{Filename: "d1t01.flac", Title: "New Minglewood Blues", TrackNumber: 1},
		},
	}
	if err := db.UpsertRecording(rec); err != nil {
		t.Fatalf("UpsertRecording failed: %v", err)
	}

	fetched, err := db.GetShow(show.ID)
	if err != nil {
		t.Fatalf("GetShow failed: %v", err)
	}
	if fetched == nil || fetched.Venue != "Barton Hall" {
		t.Fatalf("Unexpected show: %+v", fetched)
	}
	if len(fetched.Recordings) != 1 {
		t.Fatalf("Expected 1 recording, got %d", len(fetched.Recordings))
	}
	got := fetched.Recordings[0]
	if got.SourceType != domain.SourceSoundboard || got.RatingOrZero() != 4.8 {
		t.Errorf("Unexpected recording: %+v", got)
	}
	if len(got.Tracks) != 1 || got.Tracks[0].Filename != "d1t01.flac" {
		t.Errorf("Unexpected tracks: %+v", got.Tracks)
	}

	// Upsert replaces
	rec.RatingCount = 200
	if err := db.UpsertRecording(rec); err != nil {
		t.Fatalf("UpsertRecording replace failed: %v", err)
	}
	replaced, _ := db.GetRecording(rec.ID)
	if replaced.RatingCount != 200 {
		t.Errorf("Expected rating count 200, got %d", replaced.RatingCount)
	}

	missing, err := db.GetShow("nope")
	if err != nil {
		t.Fatalf("GetShow missing failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing show")
	}
}

func TestDB_Library(t *testing.T) {
	db := setupTestDB(t)

	if err := db.AddToLibrary("1977-05-08"); err != nil {
		t.Fatalf("AddToLibrary failed: %v", err)
	}
	// Idempotent
	if err := db.AddToLibrary("1977-05-08"); err != nil {
		t.Fatalf("AddToLibrary repeat failed: %v", err)
	}

	in, err := db.IsInLibrary("1977-05-08")
	if err != nil || !in {
		t.Errorf("Expected show in library, got %v %v", in, err)
	}

	entries, err := db.ListLibrary()
	if err != nil {
		t.Fatalf("ListLibrary failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 library entry, got %d", len(entries))
	}

	if err := db.RemoveFromLibrary("1977-05-08"); err != nil {
		t.Fatalf("RemoveFromLibrary failed: %v", err)
	}
	in, _ = db.IsInLibrary("1977-05-08")
	if in {
		t.Error("Expected show removed from library")
	}
}

func TestSettingsRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)

	val, err := repo.Get("missing")
	if err != nil || val != "" {
		t.Errorf("Expected empty value for missing key, got %q %v", val, err)
	}

	if err := repo.SetRecordingPreference("1977-05-08", "gd1977-05-08.sbd.miller"); err != nil {
		t.Fatalf("SetRecordingPreference failed: %v", err)
	}
	pref, err := repo.GetRecordingPreference("1977-05-08")
	if err != nil {
		t.Fatalf("GetRecordingPreference failed: %v", err)
	}
	if pref != "gd1977-05-08.sbd.miller" {
		t.Errorf("Unexpected preference: %q", pref)
	}

	if err := repo.ClearRecordingPreference("1977-05-08"); err != nil {
		t.Fatalf("ClearRecordingPreference failed: %v", err)
	}
	pref, _ = repo.GetRecordingPreference("1977-05-08")
	if pref != "" {
		t.Errorf("Expected cleared preference, got %q", pref)
	}

	prefs, err := repo.GetSelectionPrefs()
	if err != nil {
		t.Fatalf("GetSelectionPrefs failed: %v", err)
	}
	if prefs != nil {
		t.Errorf("Expected nil prefs before save, got %+v", prefs)
	}

	want := &domain.RecordingPreferences{
		MinimumRating:     3.5,
		PreferredSource:   domain.SourceSoundboard,
		PreferHigherRated: true,
	}
	if err := repo.SetSelectionPrefs(want); err != nil {
		t.Fatalf("SetSelectionPrefs failed: %v", err)
	}
	prefs, err = repo.GetSelectionPrefs()
	if err != nil {
		t.Fatalf("GetSelectionPrefs failed: %v", err)
	}
	if prefs == nil || *prefs != *want {
		t.Errorf("Expected %+v, got %+v", want, prefs)
	}
}
