package store

import (
	"database/sql"
	"time"

	"github.com/ds17f/deadarchive/internal/domain"
)

func (db *DB) CreateDownload(d *domain.Download) error {
	query := `INSERT OR IGNORE INTO downloads
		(id, recording_id, track_filename, status, progress, bytes_downloaded, total_bytes,
		 priority, marked_for_deletion, file_path, created_at, updated_at)
		VALUES (:id, :recording_id, :track_filename, :status, :progress, :bytes_downloaded,
		 :total_bytes, :priority, :marked_for_deletion, :file_path, :created_at, :updated_at)`

	_, err := db.NamedExec(query, d)
	if err == nil {
		db.notify()
	}
	return err
}

func (db *DB) GetDownload(id string) (*domain.Download, error) {
	query := `SELECT * FROM downloads WHERE id = ?`

	d := &domain.Download{}
	err := db.Get(d, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetQueue returns rows waiting to be started, highest priority first,
// insertion order breaking ties.
func (db *DB) GetQueue() ([]*domain.Download, error) {
	query := `SELECT * FROM downloads
		WHERE status = ? AND marked_for_deletion = 0
		ORDER BY priority DESC, created_at ASC, id ASC`

	var rows []*domain.Download
	err := db.Select(&rows, query, domain.StatusQueued)
	return rows, err
}

func (db *DB) ListAllDownloads() ([]*domain.Download, error) {
	query := `SELECT * FROM downloads ORDER BY created_at ASC, id ASC`

	var rows []*domain.Download
	err := db.Select(&rows, query)
	return rows, err
}

func (db *DB) ListByRecording(recordingID string) ([]*domain.Download, error) {
	query := `SELECT * FROM downloads WHERE recording_id = ? ORDER BY created_at ASC, id ASC`

	var rows []*domain.Download
	err := db.Select(&rows, query, recordingID)
	return rows, err
}

// UpdateStatus moves a row to a new status. A completion timestamp is
// recorded when the row completes; the error column carries a message only
// for failed rows and is cleared on every other transition.
func (db *DB) UpdateStatus(id string, status domain.DownloadStatus, errMsg *string) error {
	now := time.Now()
	var err error
	if status == domain.StatusCompleted {
		query := `UPDATE downloads SET status = ?, progress = 1.0, error = NULL,
			completed_at = ?, updated_at = ? WHERE id = ?`
		_, err = db.Exec(query, status, now, now, id)
	} else {
		query := `UPDATE downloads SET status = ?, error = ?, updated_at = ? WHERE id = ?`
		_, err = db.Exec(query, status, errMsg, now, id)
	}
	if err == nil {
		db.notify()
	}
	return err
}

func (db *DB) UpdateProgress(id string, progress float64, bytesDownloaded, totalBytes int64) error {
	query := `UPDATE downloads SET progress = ?, bytes_downloaded = ?, total_bytes = ?,
		updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, progress, bytesDownloaded, totalBytes, time.Now(), id)
	if err == nil {
		db.notify()
	}
	return err
}

func (db *DB) SetFilePath(id, path string) error {
	query := `UPDATE downloads SET file_path = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, path, time.Now(), id)
	return err
}

func (db *DB) SetPriority(id string, priority int) error {
	query := `UPDATE downloads SET priority = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, priority, time.Now(), id)
	if err == nil {
		db.notify()
	}
	return err
}

func (db *DB) MarkForDeletion(id string) error {
	query := `UPDATE downloads SET marked_for_deletion = 1, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, time.Now(), id)
	if err == nil {
		db.notify()
	}
	return err
}

func (db *DB) MarkRecordingForDeletion(recordingID string) error {
	query := `UPDATE downloads SET marked_for_deletion = 1, updated_at = ? WHERE recording_id = ?`
	_, err := db.Exec(query, time.Now(), recordingID)
	if err == nil {
		db.notify()
	}
	return err
}

func (db *DB) ListMarkedForDeletion() ([]*domain.Download, error) {
	query := `SELECT * FROM downloads WHERE marked_for_deletion = 1`

	var rows []*domain.Download
	err := db.Select(&rows, query)
	return rows, err
}

func (db *DB) DeleteDownload(id string) error {
	_, err := db.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	if err == nil {
		db.notify()
	}
	return err
}

// ResetStuckDownloads re-queues rows left in downloading by a previous
// process. Called once at startup; the partial files on disk are picked up
// by the resumable downloader.
func (db *DB) ResetStuckDownloads() error {
	query := `UPDATE downloads SET status = ?, updated_at = ? WHERE status = ?`
	_, err := db.Exec(query, domain.StatusQueued, time.Now(), domain.StatusDownloading)
	if err == nil {
		db.notify()
	}
	return err
}

type DownloadStats struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
	Failed    int `db:"failed"`
	Cancelled int `db:"cancelled"`
}

func (db *DB) GetDownloadStats() (*DownloadStats, error) {
	query := `SELECT
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) as completed,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed,
		COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0) as cancelled
	FROM downloads`

	stats := &DownloadStats{}
	err := db.Get(stats, query)
	return stats, err
}
