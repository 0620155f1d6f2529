package store

import (
	"database/sql"

	"github.com/ds17f/deadarchive/internal/domain"
)

// Shows and recordings are read models cached from the archive metadata API;
// they are upserted wholesale whenever fresh metadata arrives.

func (db *DB) UpsertShow(show *domain.Show) error {
	query := `INSERT INTO shows (id, date, venue, city, state, best_recording_id)
		VALUES (:id, :date, :venue, :city, :state, :best_recording_id)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			venue = excluded.venue,
			city = excluded.city,
			state = excluded.state,
			best_recording_id = excluded.best_recording_id`

	_, err := db.NamedExec(query, show)
	return err
}

func (db *DB) GetShow(id string) (*domain.Show, error) {
	show := &domain.Show{}
	err := db.Get(show, `SELECT * FROM shows WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	recordings, err := db.ListRecordingsByShow(id)
	if err != nil {
		return nil, err
	}
	show.Recordings = recordings
	return show, nil
}

func (db *DB) UpsertRecording(rec *domain.Recording) error {
	query := `INSERT INTO recordings (id, show_id, source_type, rating, rating_count, tracks)
		VALUES (:id, :show_id, :source_type, :rating, :rating_count, :tracks)
		ON CONFLICT(id) DO UPDATE SET
			show_id = excluded.show_id,
			source_type = excluded.source_type,
			rating = excluded.rating,
			rating_count = excluded.rating_count,
			tracks = excluded.tracks`

	_, err := db.NamedExec(query, rec)
	return err
}

func (db *DB) GetRecording(id string) (*domain.Recording, error) {
	rec := &domain.Recording{}
	err := db.Get(rec, `SELECT * FROM recordings WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (db *DB) ListRecordingsByShow(showID string) ([]domain.Recording, error) {
	var recs []domain.Recording
	err := db.Select(&recs, `SELECT * FROM recordings WHERE show_id = ? ORDER BY id ASC`, showID)
	return recs, err
}
