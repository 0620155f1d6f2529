// Package app holds the orchestration facades between the HTTP layer and
// the store, job runner and archive client.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ds17f/deadarchive/internal/archive"
	"github.com/ds17f/deadarchive/internal/constants"
	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/jobrunner"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/queue"
	"github.com/ds17f/deadarchive/internal/selection"
	"github.com/ds17f/deadarchive/internal/storage"
	"github.com/ds17f/deadarchive/internal/store"
)

// DownloadService translates user download commands into store mutations and
// job submissions.
type DownloadService struct {
	db           *store.DB
	settings     *store.SettingsRepo
	archive      *archive.Client
	runner       jobrunner.Runner
	queue        *queue.Manager
	log          *logger.Logger
	downloadsDir string
	format       string
}

// NewDownloadService wires the download facade.
func NewDownloadService(db *store.DB, settings *store.SettingsRepo, ac *archive.Client, runner jobrunner.Runner, qm *queue.Manager, downloadsDir, format string, log *logger.Logger) *DownloadService {
	return &DownloadService{
		db:           db,
		settings:     settings,
		archive:      ac,
		runner:       runner,
		queue:        qm,
		log:          log.WithComponent("downloads"),
		downloadsDir: downloadsDir,
		format:       format,
	}
}

// DownloadShow picks the best recording of a show and queues one download
// row per track.
func (s *DownloadService) DownloadShow(ctx context.Context, showID string) (*domain.Recording, error) {
	show, err := s.resolveShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	if len(show.Recordings) == 0 {
		return nil, fmt.Errorf("show %s has no recordings", showID)
	}

	pinned, err := s.settings.GetRecordingPreference(showID)
	if err != nil {
		s.log.Warn("failed to read pinned recording", "show_id", showID, "error", err)
	}
	prefs, err := s.settings.GetSelectionPrefs()
	if err != nil {
		s.log.Warn("failed to read selection preferences", "error", err)
	}

	best := selection.SelectBest(show.Recordings, pinned, prefs)
	if best == nil {
		return nil, fmt.Errorf("no recording selectable for show %s", showID)
	}

	if err := s.DownloadRecording(ctx, best.ID); err != nil {
		return nil, err
	}
	return best, nil
}

// DownloadRecording queues every track of a recording. Tracks already queued
// or downloaded are left alone.
func (s *DownloadService) DownloadRecording(ctx context.Context, recordingID string) error {
	rec, err := s.resolveRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	if len(rec.Tracks) == 0 {
		return fmt.Errorf("recording %s has no tracks in format %s", recordingID, s.format)
	}

	now := time.Now()
	for _, track := range rec.Tracks {
		row := &domain.Download{
			ID:            uuid.New().String(),
			RecordingID:   recordingID,
			TrackFilename: track.Filename,
			Status:        domain.StatusQueued,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		// INSERT OR IGNORE keeps existing rows for this track untouched.
		if err := s.db.CreateDownload(row); err != nil {
			return fmt.Errorf("queue track %s: %w", track.Filename, err)
		}
	}

	s.log.Info("recording queued", "recording_id", recordingID, "tracks", len(rec.Tracks))
	s.queue.Kick()
	return nil
}

// Pause suspends a recording's downloads as a group: running jobs are
// cancelled and waiting rows leave the queue, so the next cycle starts
// nothing for this recording. Partial files stay for the resume.
func (s *DownloadService) Pause(recordingID string) error {
	return s.transitionRecording(recordingID, domain.StatusPaused, true)
}

// Resume re-queues paused rows only; failed and cancelled rows need an
// explicit Retry. Rows re-enter through the queue so the concurrency cap
// still applies.
func (s *DownloadService) Resume(recordingID string) error {
	if err := s.transitionRecording(recordingID, domain.StatusQueued, false, domain.StatusPaused); err != nil {
		return err
	}
	s.queue.Kick()
	return nil
}

// Cancel cancels all non-terminal downloads of a recording. Cancelling rows
// that are already cancelled is a no-op.
func (s *DownloadService) Cancel(recordingID string) error {
	return s.transitionRecording(recordingID, domain.StatusCancelled, true)
}

// Retry re-queues failed and cancelled rows of a recording.
func (s *DownloadService) Retry(recordingID string) error {
	rows, err := s.db.ListByRecording(recordingID)
	if err != nil {
		return fmt.Errorf("list downloads for %s: %w", recordingID, err)
	}

	requeued := 0
	for _, row := range rows {
		if row.Status != domain.StatusFailed && row.Status != domain.StatusCancelled {
			continue
		}
		if !domain.CanTransition(row.Status, domain.StatusQueued) {
			continue
		}
		if err := s.db.UpdateStatus(row.ID, domain.StatusQueued, nil); err != nil {
			s.log.Warn("retry failed for row", "download_id", row.ID, "error", err)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		s.log.Info("downloads retried", "recording_id", recordingID, "count", requeued)
		s.queue.Kick()
	}
	return nil
}

// ForceDownload bumps a recording's pending rows to the front of the queue
// and triggers an immediate cycle. Failed and cancelled rows are re-queued
// as part of the bump.
func (s *DownloadService) ForceDownload(recordingID string) error {
	rows, err := s.db.ListByRecording(recordingID)
	if err != nil {
		return fmt.Errorf("list downloads for %s: %w", recordingID, err)
	}

	for _, row := range rows {
		switch row.Status {
		case domain.StatusFailed, domain.StatusCancelled, domain.StatusPaused:
			if domain.CanTransition(row.Status, domain.StatusQueued) {
				if err := s.db.UpdateStatus(row.ID, domain.StatusQueued, nil); err != nil {
					s.log.Warn("force re-queue failed", "download_id", row.ID, "error", err)
					continue
				}
			}
		case domain.StatusQueued:
		default:
			continue
		}
		if err := s.db.SetPriority(row.ID, constants.ForceStartPriority); err != nil {
			s.log.Warn("force priority failed", "download_id", row.ID, "error", err)
		}
	}

	s.queue.Kick()
	return nil
}

// MarkForDeletion soft-deletes a recording's downloads. Files and rows are
// reclaimed later by CleanupDeleted.
func (s *DownloadService) MarkForDeletion(recordingID string) error {
	rows, err := s.db.ListByRecording(recordingID)
	if err != nil {
		return fmt.Errorf("list downloads for %s: %w", recordingID, err)
	}
	for _, row := range rows {
		if row.Status.Active() {
			s.runner.CancelByID(row.ID)
		}
	}
	if err := s.db.MarkRecordingForDeletion(recordingID); err != nil {
		return fmt.Errorf("mark recording %s for deletion: %w", recordingID, err)
	}
	s.log.Info("recording marked for deletion", "recording_id", recordingID)
	return nil
}

// Remove hard-deletes a recording's downloads and their files.
func (s *DownloadService) Remove(recordingID string) error {
	rows, err := s.db.ListByRecording(recordingID)
	if err != nil {
		return fmt.Errorf("list downloads for %s: %w", recordingID, err)
	}

	for _, row := range rows {
		s.runner.CancelByID(row.ID)
		if err := storage.RemoveTrack(s.downloadsDir, row.RecordingID, row.TrackFilename); err != nil {
			s.log.Warn("file cleanup failed", "download_id", row.ID, "error", err)
		}
		if err := s.db.DeleteDownload(row.ID); err != nil {
			return fmt.Errorf("delete download %s: %w", row.ID, err)
		}
	}

	if err := storage.DeleteFolderIfEmpty(storage.RecordingDir(s.downloadsDir, recordingID)); err != nil {
		s.log.Warn("folder cleanup failed", "recording_id", recordingID, "error", err)
	}
	s.log.Info("recording removed", "recording_id", recordingID, "rows", len(rows))
	return nil
}

// CleanupDeleted reclaims soft-deleted rows whose jobs are no longer active.
// Best effort: failures are logged and retried on the next pass.
func (s *DownloadService) CleanupDeleted() {
	rows, err := s.db.ListMarkedForDeletion()
	if err != nil {
		s.log.Error("cleanup listing failed", "error", err)
		return
	}

	cleaned := map[string]bool{}
	for _, row := range rows {
		// A still-tracked job means the cancel has not landed yet.
		if s.runner.CancelByID(row.ID) {
			continue
		}
		if err := storage.RemoveTrack(s.downloadsDir, row.RecordingID, row.TrackFilename); err != nil {
			s.log.Warn("cleanup file removal failed", "download_id", row.ID, "error", err)
			continue
		}
		if err := s.db.DeleteDownload(row.ID); err != nil {
			s.log.Warn("cleanup row removal failed", "download_id", row.ID, "error", err)
			continue
		}
		cleaned[row.RecordingID] = true
	}

	for recordingID := range cleaned {
		if err := storage.DeleteFolderIfEmpty(storage.RecordingDir(s.downloadsDir, recordingID)); err != nil {
			s.log.Warn("cleanup folder removal failed", "recording_id", recordingID, "error", err)
		}
	}
}

// States aggregates every recording's download rows into its coarse state.
func (s *DownloadService) States() (map[string]domain.ShowDownloadState, error) {
	rows, err := s.db.ListAllDownloads()
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	return aggregateByRecording(rows), nil
}

// RecordingState aggregates one recording's rows.
func (s *DownloadService) RecordingState(recordingID string) (domain.ShowDownloadState, error) {
	rows, err := s.db.ListByRecording(recordingID)
	if err != nil {
		return nil, fmt.Errorf("list downloads for %s: %w", recordingID, err)
	}
	return domain.Aggregate(derefRows(rows)), nil
}

// TrackCompletion reports which tracks of a recording are fully downloaded.
func (s *DownloadService) TrackCompletion(recordingID string) (map[string]bool, error) {
	rows, err := s.db.ListByRecording(recordingID)
	if err != nil {
		return nil, fmt.Errorf("list downloads for %s: %w", recordingID, err)
	}
	return domain.TrackCompletion(derefRows(rows)), nil
}

// ListDownloads returns every download row.
func (s *DownloadService) ListDownloads() ([]*domain.Download, error) {
	return s.db.ListAllDownloads()
}

// transitionRecording applies one target status to every row of a recording
// whose current status legally transitions to it. A non-empty `only` set
// further restricts which current statuses are touched. Illegal transitions
// are skipped silently, which makes repeated commands idempotent.
func (s *DownloadService) transitionRecording(recordingID string, target domain.DownloadStatus, cancelJobs bool, only ...domain.DownloadStatus) error {
	rows, err := s.db.ListByRecording(recordingID)
	if err != nil {
		return fmt.Errorf("list downloads for %s: %w", recordingID, err)
	}

	changed := 0
	for _, row := range rows {
		if len(only) > 0 && !statusIn(row.Status, only) {
			continue
		}
		if !domain.CanTransition(row.Status, target) {
			continue
		}
		if err := s.db.UpdateStatus(row.ID, target, nil); err != nil {
			s.log.Warn("status update failed", "download_id", row.ID, "target", target, "error", err)
			continue
		}
		if cancelJobs {
			s.runner.CancelByID(row.ID)
		}
		changed++
	}

	if changed > 0 {
		s.log.Info("recording transition", "recording_id", recordingID, "target", target, "rows", changed)
	}
	return nil
}

// resolveShow loads a show from the store, falling back to the archive and
// caching the result.
func (s *DownloadService) resolveShow(ctx context.Context, showID string) (*domain.Show, error) {
	show, err := s.db.GetShow(showID)
	if err != nil {
		return nil, fmt.Errorf("load show %s: %w", showID, err)
	}
	if show != nil {
		return show, nil
	}

	show, err = s.archive.FetchShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("fetch show %s: %w", showID, err)
	}
	if err := s.db.UpsertShow(show); err != nil {
		return nil, fmt.Errorf("cache show %s: %w", showID, err)
	}
	for i := range show.Recordings {
		if err := s.db.UpsertRecording(&show.Recordings[i]); err != nil {
			return nil, fmt.Errorf("cache recording %s: %w", show.Recordings[i].ID, err)
		}
	}
	return show, nil
}

// resolveRecording loads a recording with tracks, fetching the item metadata
// when the cached copy has no track list yet.
func (s *DownloadService) resolveRecording(ctx context.Context, recordingID string) (*domain.Recording, error) {
	rec, err := s.db.GetRecording(recordingID)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", recordingID, err)
	}
	if rec != nil && len(rec.Tracks) > 0 {
		return rec, nil
	}

	item, err := s.archive.GetItem(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("fetch recording %s: %w", recordingID, err)
	}

	showID := archive.ShowID(item.Metadata.Date.String())
	if rec != nil {
		showID = rec.ShowID
	}
	full := archive.RecordingFromItem(showID, item, s.format)
	if err := s.db.UpsertRecording(&full); err != nil {
		return nil, fmt.Errorf("cache recording %s: %w", recordingID, err)
	}
	return &full, nil
}

func statusIn(s domain.DownloadStatus, set []domain.DownloadStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func derefRows(rows []*domain.Download) []domain.Download {
	out := make([]domain.Download, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out
}

func aggregateByRecording(rows []*domain.Download) map[string]domain.ShowDownloadState {
	grouped := map[string][]domain.Download{}
	for _, r := range rows {
		grouped[r.RecordingID] = append(grouped[r.RecordingID], *r)
	}
	states := make(map[string]domain.ShowDownloadState, len(grouped))
	for recID, group := range grouped {
		states[recID] = domain.Aggregate(group)
	}
	return states
}
