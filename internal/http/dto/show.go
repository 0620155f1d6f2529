package dto

import (
	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/selection"
)

type TrackResponse struct {
	Filename    string  `json:"filename"`
	Title       string  `json:"title,omitempty"`
	TrackNumber int     `json:"track_number,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

type RecordingResponse struct {
	ID          string          `json:"id"`
	SourceType  string          `json:"source_type"`
	Rating      *float64        `json:"rating,omitempty"`
	RatingCount int             `json:"rating_count,omitempty"`
	Tracks      []TrackResponse `json:"tracks,omitempty"`
}

func NewRecordingResponse(r *domain.Recording) RecordingResponse {
	resp := RecordingResponse{
		ID:          r.ID,
		SourceType:  string(r.SourceType),
		Rating:      r.Rating,
		RatingCount: r.RatingCount,
	}
	for _, t := range r.Tracks {
		resp.Tracks = append(resp.Tracks, TrackResponse{
			Filename:    t.Filename,
			Title:       t.Title,
			TrackNumber: t.TrackNumber,
			Duration:    t.Duration,
		})
	}
	return resp
}

type ShowResponse struct {
	ID              string              `json:"id"`
	Date            string              `json:"date"`
	Venue           string              `json:"venue,omitempty"`
	City            string              `json:"city,omitempty"`
	State           string              `json:"state,omitempty"`
	BestRecordingID string              `json:"best_recording_id,omitempty"`
	Recordings      []RecordingResponse `json:"recordings,omitempty"`
}

func NewShowResponse(s *domain.Show) ShowResponse {
	resp := ShowResponse{
		ID:              s.ID,
		Date:            s.Date,
		Venue:           s.Venue,
		City:            s.City,
		State:           s.State,
		BestRecordingID: s.BestRecordingID,
	}
	for i := range s.Recordings {
		resp.Recordings = append(resp.Recordings, NewRecordingResponse(&s.Recordings[i]))
	}
	return resp
}

type RecordingOptionResponse struct {
	RecordingResponse
	IsRecommended bool   `json:"is_recommended"`
	MatchReason   string `json:"match_reason,omitempty"`
}

func NewRecordingOptionResponse(o selection.RecordingOption) RecordingOptionResponse {
	return RecordingOptionResponse{
		RecordingResponse: NewRecordingResponse(&o.Recording),
		IsRecommended:     o.IsRecommended,
		MatchReason:       o.MatchReason,
	}
}

// PreferenceRequest pins a recording for a show.
type PreferenceRequest struct {
	RecordingID string `json:"recording_id"`
}

type LibraryItemResponse struct {
	Show  ShowResponse  `json:"show"`
	State StateResponse `json:"state"`
}
