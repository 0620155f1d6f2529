package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ds17f/deadarchive/internal/domain"
)

type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(key string) (string, error) {
	var value string
	err := r.db.Get(&value, "SELECT value FROM settings WHERE key = ?", key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SettingsRepo) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

func (r *SettingsRepo) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

const (
	SettingSelectionPrefs      = "selection_preferences"
	settingRecordingPrefPrefix = "recording_preference:"
)

// GetRecordingPreference returns the user's pinned recording for a show, or
// empty when none is stored.
func (r *SettingsRepo) GetRecordingPreference(showID string) (string, error) {
	return r.Get(settingRecordingPrefPrefix + showID)
}

func (r *SettingsRepo) SetRecordingPreference(showID, recordingID string) error {
	return r.Set(settingRecordingPrefPrefix+showID, recordingID)
}

func (r *SettingsRepo) ClearRecordingPreference(showID string) error {
	return r.Delete(settingRecordingPrefPrefix + showID)
}

// GetSelectionPrefs returns the stored recording-selection preferences, or
// nil when the user never saved any (callers fall back to the algorithmic
// default in that case).
func (r *SettingsRepo) GetSelectionPrefs() (*domain.RecordingPreferences, error) {
	raw, err := r.Get(SettingSelectionPrefs)
	if err != nil || raw == "" {
		return nil, err
	}

	prefs := &domain.RecordingPreferences{}
	if err := json.Unmarshal([]byte(raw), prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

func (r *SettingsRepo) SetSelectionPrefs(prefs *domain.RecordingPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return r.Set(SettingSelectionPrefs, string(raw))
}
