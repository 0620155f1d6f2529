package app

import (
	"context"
	"fmt"

	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/store"
)

// LibraryItem is one library entry joined with its download state.
type LibraryItem struct {
	Show  *domain.Show             `json:"show"`
	State domain.ShowDownloadState `json:"-"`
}

// LibraryService manages the user's saved shows.
type LibraryService struct {
	db        *store.DB
	downloads *DownloadService
	log       *logger.Logger
}

func NewLibraryService(db *store.DB, downloads *DownloadService, log *logger.Logger) *LibraryService {
	return &LibraryService{
		db:        db,
		downloads: downloads,
		log:       log.WithComponent("library"),
	}
}

// AddShow saves a show to the library, fetching its metadata if needed.
func (s *LibraryService) AddShow(ctx context.Context, showID string) error {
	if _, err := s.downloads.resolveShow(ctx, showID); err != nil {
		return err
	}
	if err := s.db.AddToLibrary(showID); err != nil {
		return fmt.Errorf("add show %s to library: %w", showID, err)
	}
	s.log.Info("show added to library", "show_id", showID)
	return nil
}

// RemoveShow takes a show out of the library and soft-deletes its downloads.
// The files are reclaimed later by the cleanup pass.
func (s *LibraryService) RemoveShow(showID string) error {
	if err := s.db.RemoveFromLibrary(showID); err != nil {
		return fmt.Errorf("remove show %s from library: %w", showID, err)
	}

	recs, err := s.db.ListRecordingsByShow(showID)
	if err != nil {
		return fmt.Errorf("list recordings for %s: %w", showID, err)
	}
	for _, rec := range recs {
		if err := s.downloads.MarkForDeletion(rec.ID); err != nil {
			s.log.Warn("soft delete failed", "recording_id", rec.ID, "error", err)
		}
	}

	s.log.Info("show removed from library", "show_id", showID)
	return nil
}

// IsInLibrary reports whether a show is saved.
func (s *LibraryService) IsInLibrary(showID string) (bool, error) {
	return s.db.IsInLibrary(showID)
}

// ListLibrary returns the saved shows with their aggregated download states.
// The state reported for a show is its best recording's state, or the first
// recording with any download activity.
func (s *LibraryService) ListLibrary() ([]LibraryItem, error) {
	entries, err := s.db.ListLibrary()
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	states, err := s.downloads.States()
	if err != nil {
		return nil, err
	}

	items := make([]LibraryItem, 0, len(entries))
	for _, entry := range entries {
		show, err := s.db.GetShow(entry.ShowID)
		if err != nil {
			return nil, fmt.Errorf("load show %s: %w", entry.ShowID, err)
		}
		if show == nil {
			// Library references a show whose metadata cache was cleared.
			show = &domain.Show{ID: entry.ShowID}
		}
		items = append(items, LibraryItem{
			Show:  show,
			State: showState(show, states),
		})
	}
	return items, nil
}

func showState(show *domain.Show, states map[string]domain.ShowDownloadState) domain.ShowDownloadState {
	if st, ok := states[show.BestRecordingID]; ok {
		return st
	}
	for _, rec := range show.Recordings {
		if st, ok := states[rec.ID]; ok {
			return st
		}
	}
	return domain.NotDownloaded{}
}
