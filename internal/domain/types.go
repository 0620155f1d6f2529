package domain

import (
	"database/sql/driver"
	"encoding/json"
)

// TrackList stores a recording's ordered track list as a JSON column.
type TrackList []Track

func (t TrackList) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	return json.Marshal(t)
}

func (t *TrackList) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*t = nil
		return nil
	}

	return json.Unmarshal(data, t)
}
