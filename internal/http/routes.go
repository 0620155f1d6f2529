package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ds17f/deadarchive/internal/app"
	"github.com/ds17f/deadarchive/internal/http/dto"
	"github.com/ds17f/deadarchive/internal/selection"
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/downloads", h.ListDownloads)
		r.Get("/downloads/states", h.DownloadStates)
		r.Get("/downloads/stats", h.DownloadStats)
		r.Get("/events", h.Events)

		r.Route("/shows/{id}", func(r chi.Router) {
			r.Get("/", h.GetShow)
			r.Get("/options", h.RecordingOptions)
			r.Post("/download", h.DownloadShow)
			r.Put("/preference", h.SetPreference)
			r.Delete("/preference", h.ClearPreference)
		})

		r.Route("/recordings/{id}", func(r chi.Router) {
			r.Get("/state", h.RecordingState)
			r.Get("/tracks", h.TrackCompletion)
			r.Post("/download", h.DownloadRecording)
			r.Post("/pause", h.Pause)
			r.Post("/resume", h.Resume)
			r.Post("/cancel", h.Cancel)
			r.Post("/retry", h.Retry)
			r.Post("/force", h.Force)
			r.Delete("/", h.Remove)
		})

		r.Get("/library", h.ListLibrary)
		r.Post("/library/{showID}", h.AddToLibrary)
		r.Delete("/library/{showID}", h.RemoveFromLibrary)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Downloads.ListDownloads()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]dto.DownloadResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NewDownloadResponse(row))
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) DownloadStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.Downloads.States()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.NewStateMapResponse(states))
}

func (h *Handler) DownloadStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDownloadStats()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.DownloadStatsResponse{
		Total:     stats.Total,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Cancelled: stats.Cancelled,
	})
}

func (h *Handler) GetShow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	show, err := h.Store.GetShow(id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if show == nil {
		h.respondError(w, http.StatusNotFound, fmt.Errorf("show %s not found", id))
		return
	}
	h.respondJSON(w, http.StatusOK, dto.NewShowResponse(show))
}

func (h *Handler) RecordingOptions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	show, err := h.Store.GetShow(id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if show == nil {
		h.respondError(w, http.StatusNotFound, fmt.Errorf("show %s not found", id))
		return
	}

	pinned, err := h.Settings.GetRecordingPreference(id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	prefs, err := h.Settings.GetSelectionPrefs()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	current := ""
	if best := selection.SelectBest(show.Recordings, pinned, prefs); best != nil {
		current = best.ID
	}

	options := selection.GetRecordingOptions(show.Recordings, current, show.BestRecordingID, prefs)
	out := make([]dto.RecordingOptionResponse, 0, len(options))
	for _, o := range options {
		out = append(out, dto.NewRecordingOptionResponse(o))
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) DownloadShow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	best, err := h.Downloads.DownloadShow(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]string{"recording_id": best.ID})
}

func (h *Handler) DownloadRecording(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Downloads.DownloadRecording(r.Context(), id); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, nil)
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.command(w, chi.URLParam(r, "id"), h.Downloads.Pause)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.command(w, chi.URLParam(r, "id"), h.Downloads.Resume)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.command(w, chi.URLParam(r, "id"), h.Downloads.Cancel)
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	h.command(w, chi.URLParam(r, "id"), h.Downloads.Retry)
}

func (h *Handler) Force(w http.ResponseWriter, r *http.Request) {
	h.command(w, chi.URLParam(r, "id"), h.Downloads.ForceDownload)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	h.command(w, chi.URLParam(r, "id"), h.Downloads.Remove)
}

func (h *Handler) command(w http.ResponseWriter, recordingID string, fn func(string) error) {
	if recordingID == "" {
		h.respondError(w, http.StatusBadRequest, errors.New("missing recording id"))
		return
	}
	if err := fn(recordingID); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, nil)
}

func (h *Handler) RecordingState(w http.ResponseWriter, r *http.Request) {
	st, err := h.Downloads.RecordingState(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, dto.NewStateResponse(st))
}

func (h *Handler) TrackCompletion(w http.ResponseWriter, r *http.Request) {
	completion, err := h.Downloads.TrackCompletion(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, completion)
}

func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")
	var req dto.PreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordingID == "" {
		h.respondError(w, http.StatusBadRequest, errors.New("recording_id required"))
		return
	}
	if err := h.Settings.SetRecordingPreference(showID, req.RecordingID); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, nil)
}

func (h *Handler) ClearPreference(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.ClearRecordingPreference(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, nil)
}

func (h *Handler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	items, err := h.Library.ListLibrary()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]dto.LibraryItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.LibraryItemResponse{
			Show:  dto.NewShowResponse(item.Show),
			State: dto.NewStateResponse(item.State),
		})
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) AddToLibrary(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	if err := h.Library.AddShow(r.Context(), showID); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, nil)
}

func (h *Handler) RemoveFromLibrary(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	if err := h.Library.RemoveShow(showID); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, nil)
}

// Events streams download state snapshots as server-sent events. One event
// is sent immediately, then one per store change.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots, cancel := h.Watcher.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-snapshots:
			if !open {
				return
			}
			if err := writeStateEvent(w, snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeStateEvent(w http.ResponseWriter, snap app.Snapshot) error {
	payload, err := json.Marshal(dto.NewStatesEventResponse(snap.States, snap.Completion))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: states\ndata: %s\n\n", payload)
	return err
}
