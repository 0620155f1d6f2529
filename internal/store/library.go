package store

import (
	"database/sql"
	"time"

	"github.com/ds17f/deadarchive/internal/domain"
)

func (db *DB) AddToLibrary(showID string) error {
	query := `INSERT OR IGNORE INTO library (show_id, added_at) VALUES (?, ?)`
	_, err := db.Exec(query, showID, time.Now())
	return err
}

func (db *DB) RemoveFromLibrary(showID string) error {
	_, err := db.Exec(`DELETE FROM library WHERE show_id = ?`, showID)
	return err
}

func (db *DB) IsInLibrary(showID string) (bool, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM library WHERE show_id = ?`, showID)
	return count > 0, err
}

func (db *DB) ListLibrary() ([]*domain.LibraryEntry, error) {
	var entries []*domain.LibraryEntry
	err := db.Select(&entries, `SELECT show_id, added_at FROM library ORDER BY added_at DESC`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entries, err
}
