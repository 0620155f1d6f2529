// Package httpapp exposes the download and library services as a JSON API.
package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/ds17f/deadarchive/internal/app"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/store"
)

type Handler struct {
	Downloads *app.DownloadService
	Library   *app.LibraryService
	Watcher   *app.StateWatcher
	Settings  *store.SettingsRepo
	Store     *store.DB
	Logger    *logger.Logger
}

func NewHandler(downloads *app.DownloadService, library *app.LibraryService, watcher *app.StateWatcher, settings *store.SettingsRepo, db *store.DB, log *logger.Logger) *Handler {
	return &Handler{
		Downloads: downloads,
		Library:   library,
		Watcher:   watcher,
		Settings:  settings,
		Store:     db,
		Logger:    log.WithComponent("http"),
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("response encoding failed", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	h.Logger.Warn("request failed", "status", status, "error", err)
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}
