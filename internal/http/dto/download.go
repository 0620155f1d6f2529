package dto

import (
	"time"

	"github.com/ds17f/deadarchive/internal/domain"
)

type DownloadResponse struct {
	ID              string  `json:"id"`
	RecordingID     string  `json:"recording_id"`
	TrackFilename   string  `json:"track_filename"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	BytesDownloaded int64   `json:"bytes_downloaded"`
	TotalBytes      int64   `json:"total_bytes"`
	Priority        int     `json:"priority"`
	Error           string  `json:"error,omitempty"`
	CreatedAt       string  `json:"created_at"`
	CompletedAt     string  `json:"completed_at,omitempty"`
}

func NewDownloadResponse(d *domain.Download) DownloadResponse {
	resp := DownloadResponse{
		ID:              d.ID,
		RecordingID:     d.RecordingID,
		TrackFilename:   d.TrackFilename,
		Status:          string(d.Status),
		Progress:        d.Progress,
		BytesDownloaded: d.BytesDownloaded,
		TotalBytes:      d.TotalBytes,
		Priority:        d.Priority,
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
	}
	if d.Error != nil {
		resp.Error = *d.Error
	}
	if d.CompletedAt != nil {
		resp.CompletedAt = d.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// StateResponse is the wire form of a ShowDownloadState variant. Only the
// fields of the active variant are populated.
type StateResponse struct {
	State           string  `json:"state"`
	Progress        float64 `json:"progress,omitempty"`
	CompletedTracks int     `json:"completed_tracks,omitempty"`
	TotalTracks     int     `json:"total_tracks,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func NewStateResponse(s domain.ShowDownloadState) StateResponse {
	resp := StateResponse{State: s.StateName()}
	switch v := s.(type) {
	case domain.Downloading:
		resp.Progress = v.Progress
		resp.CompletedTracks = v.CompletedTracks
		resp.TotalTracks = v.TotalTracks
	case domain.Paused:
		resp.Progress = v.Progress
		resp.CompletedTracks = v.CompletedTracks
		resp.TotalTracks = v.TotalTracks
	case domain.Cancelled:
		resp.Progress = v.Progress
		resp.CompletedTracks = v.CompletedTracks
		resp.TotalTracks = v.TotalTracks
	case domain.Failed:
		resp.Error = v.Message
	}
	return resp
}

func NewStateMapResponse(states map[string]domain.ShowDownloadState) map[string]StateResponse {
	out := make(map[string]StateResponse, len(states))
	for id, st := range states {
		out[id] = NewStateResponse(st)
	}
	return out
}

// StatesEventResponse is one frame of the event stream: the aggregated state
// per recording plus per-track completion flags per recording.
type StatesEventResponse struct {
	States     map[string]StateResponse   `json:"states"`
	Completion map[string]map[string]bool `json:"completion"`
}

func NewStatesEventResponse(states map[string]domain.ShowDownloadState, completion map[string]map[string]bool) StatesEventResponse {
	return StatesEventResponse{
		States:     NewStateMapResponse(states),
		Completion: completion,
	}
}

type DownloadStatsResponse struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
