package domain

import (
	"strings"
	"time"
)

// DownloadStatus is the persisted status of a single track download.
type DownloadStatus string

const (
	StatusQueued      DownloadStatus = "queued"
	StatusDownloading DownloadStatus = "downloading"
	StatusPaused      DownloadStatus = "paused"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusCancelled   DownloadStatus = "cancelled"
)

// Active reports whether the status represents work that is in the queue or
// in flight.
func (s DownloadStatus) Active() bool {
	return s == StatusQueued || s == StatusDownloading
}

// Download is one persisted record tracking the download of a single track
// file of a recording.
//
// Progress is only meaningful while the status is downloading or paused; a
// completed row is semantically at 1.0 even if the column was never updated.
type Download struct {
	ID                string         `json:"id" db:"id"`
	RecordingID       string         `json:"recording_id" db:"recording_id"`
	TrackFilename     string         `json:"track_filename" db:"track_filename"`
	Status            DownloadStatus `json:"status" db:"status"`
	Progress          float64        `json:"progress" db:"progress"`
	BytesDownloaded   int64          `json:"bytes_downloaded" db:"bytes_downloaded"`
	TotalBytes        int64          `json:"total_bytes" db:"total_bytes"`
	Priority          int            `json:"priority" db:"priority"`
	Error             *string        `json:"error,omitempty" db:"error"`
	MarkedForDeletion bool           `json:"marked_for_deletion" db:"marked_for_deletion"`
	FilePath          string         `json:"file_path,omitempty" db:"file_path"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// SourceType classifies who captured a recording.
type SourceType string

const (
	SourceSoundboard SourceType = "SBD"
	SourceMatrix     SourceType = "MATRIX"
	SourceFM         SourceType = "FM"
	SourceAudience   SourceType = "AUD"
	SourceUnknown    SourceType = "UNKNOWN"
)

// Priority orders source types for selection; lower is better.
func (s SourceType) Priority() int {
	switch s {
	case SourceSoundboard:
		return 1
	case SourceMatrix:
		return 2
	case SourceFM:
		return 3
	case SourceAudience:
		return 4
	default:
		return 5
	}
}

// ParseSourceType maps the free-form source description found in archive
// metadata to a SourceType.
func ParseSourceType(raw string) SourceType {
	s := strings.ToLower(raw)
	switch {
	// Matrix lineages usually mention SBD too, so check matrix first.
	case strings.Contains(s, "matrix"):
		return SourceMatrix
	case strings.Contains(s, "sbd"), strings.Contains(s, "soundboard"):
		return SourceSoundboard
	case strings.Contains(s, "fm"):
		return SourceFM
	case strings.Contains(s, "aud"):
		return SourceAudience
	default:
		return SourceUnknown
	}
}

// Track is one audio file within a recording.
type Track struct {
	Filename    string  `json:"filename"`
	Title       string  `json:"title,omitempty"`
	TrackNumber int     `json:"track_number,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	Format      string  `json:"format,omitempty"`
	Size        int64   `json:"size,omitempty"`
}

// Recording is one taper's capture of a show.
type Recording struct {
	ID          string     `json:"id" db:"id"`
	ShowID      string     `json:"show_id" db:"show_id"`
	SourceType  SourceType `json:"source_type" db:"source_type"`
	Rating      *float64   `json:"rating,omitempty" db:"rating"`
	RatingCount int        `json:"rating_count" db:"rating_count"`
	Tracks      TrackList  `json:"tracks" db:"tracks"`
}

// HasRating reports whether the recording carries any numeric rating.
func (r *Recording) HasRating() bool {
	return r.Rating != nil
}

// RatingOrZero returns the rating value, or 0 when unrated.
func (r *Recording) RatingOrZero() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

// Show is a single concert event with one or more candidate recordings.
// BestRecordingID, when set, pins a specific recording regardless of
// algorithmic scoring.
type Show struct {
	ID              string `json:"id" db:"id"`
	Date            string `json:"date" db:"date"`
	Venue           string `json:"venue" db:"venue"`
	City            string `json:"city" db:"city"`
	State           string `json:"state" db:"state"`
	BestRecordingID string `json:"best_recording_id,omitempty" db:"best_recording_id"`

	Recordings []Recording `json:"recordings,omitempty" db:"-"`
}

// RecordingPreferences are user settings steering recording selection.
type RecordingPreferences struct {
	MinimumRating     float64    `json:"minimum_rating"`
	PreferredSource   SourceType `json:"preferred_source"`
	PreferHigherRated bool       `json:"prefer_higher_rated"`
}

// LibraryEntry marks a show as saved to the user's library.
type LibraryEntry struct {
	ShowID  string    `json:"show_id" db:"show_id"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}
