// Package downloader executes track download jobs against the archive.
package downloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cavaliergopher/grab/v3"

	"github.com/ds17f/deadarchive/internal/archive"
	"github.com/ds17f/deadarchive/internal/constants"
	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/jobrunner"
	"github.com/ds17f/deadarchive/internal/logger"
	"github.com/ds17f/deadarchive/internal/storage"
	"github.com/ds17f/deadarchive/internal/store"
	"github.com/ds17f/deadarchive/internal/tagging"
)

// TrackDownloader downloads a single track per job. The job ID is the
// download row ID; all job state lives in the store.
type TrackDownloader struct {
	store        *store.DB
	log          *logger.Logger
	client       *grab.Client
	baseURL      string
	downloadsDir string
}

var _ jobrunner.Executor = (*TrackDownloader)(nil)

// New creates a track downloader writing under downloadsDir.
func New(db *store.DB, baseURL, downloadsDir string, log *logger.Logger) *TrackDownloader {
	client := grab.NewClient()
	client.HTTPClient = &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			DisableCompression:    true,
			IdleConnTimeout:       60 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
	return &TrackDownloader{
		store:        db,
		log:          log.WithComponent("downloader"),
		client:       client,
		baseURL:      baseURL,
		downloadsDir: downloadsDir,
	}
}

// Execute downloads one track. Partial files are resumed from where the
// previous attempt stopped.
func (d *TrackDownloader) Execute(ctx context.Context, spec jobrunner.JobSpec) error {
	dl, err := d.store.GetDownload(spec.ID)
	if err != nil {
		return fmt.Errorf("load download %s: %w", spec.ID, err)
	}
	if dl == nil || dl.MarkedForDeletion {
		return nil
	}
	// Paused or cancelled between submission and pickup; nothing to do.
	if dl.Status != domain.StatusDownloading {
		return nil
	}

	log := d.log.WithDownload(dl.ID, dl.RecordingID)

	destDir := storage.RecordingDir(d.downloadsDir, dl.RecordingID)
	if err := storage.EnsureDir(destDir); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}

	partial := storage.PartialPath(d.downloadsDir, dl.RecordingID, dl.TrackFilename)
	url := archive.DownloadURL(d.baseURL, dl.RecordingID, dl.TrackFilename)

	req, err := grab.NewRequest(partial, url)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	req = req.WithContext(ctx)

	resp := d.client.Do(req)
	log.Info("download started", "url", url, "size", resp.Size())

	ticker := time.NewTicker(constants.ProgressUpdateFreq)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			if err := d.store.UpdateProgress(dl.ID, resp.Progress(), resp.BytesComplete(), resp.Size()); err != nil {
				log.Warn("progress update failed", "error", err)
			}
		case <-resp.Done:
			break loop
		}
	}

	if err := resp.Err(); err != nil {
		if ctx.Err() != nil {
			// Pause and cancel cancel the job context; the partial file
			// stays on disk so a resume picks up where it stopped.
			log.Info("download interrupted", "bytes", resp.BytesComplete())
			return ctx.Err()
		}
		return fmt.Errorf("download %s: %w", url, err)
	}

	final := storage.TrackPath(d.downloadsDir, dl.RecordingID, dl.TrackFilename)
	if err := storage.MoveFile(partial, final); err != nil {
		return err
	}
	if err := d.store.SetFilePath(dl.ID, final); err != nil {
		return fmt.Errorf("record file path: %w", err)
	}

	d.tagTrack(final, dl, log)

	if err := d.store.UpdateStatus(dl.ID, domain.StatusCompleted, nil); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	log.Info("download completed", "path", final, "bytes", resp.BytesComplete())
	return nil
}

// tagTrack writes show metadata into the finished file. Tagging failures are
// logged but never fail the download.
func (d *TrackDownloader) tagTrack(path string, dl *domain.Download, log *logger.Logger) {
	rec, err := d.store.GetRecording(dl.RecordingID)
	if err != nil || rec == nil {
		return
	}
	show, err := d.store.GetShow(rec.ShowID)
	if err != nil || show == nil {
		return
	}

	track := domain.Track{Filename: dl.TrackFilename}
	for _, t := range rec.Tracks {
		if t.Filename == dl.TrackFilename {
			track = t
			break
		}
	}

	if err := tagging.TagFile(path, tagging.MetaForTrack(show, track)); err != nil {
		log.Warn("tagging failed", "path", path, "error", err)
	}
}

// OnFailed marks the download row failed after the runner exhausts retries.
func (d *TrackDownloader) OnFailed(spec jobrunner.JobSpec, err error) {
	msg := "download failed"
	if err != nil {
		msg = err.Error()
	}
	if updateErr := d.store.UpdateStatus(spec.ID, domain.StatusFailed, &msg); updateErr != nil {
		d.log.Error("failed to record failure", "download_id", spec.ID, "error", updateErr)
	}
	d.log.Warn("download failed", "download_id", spec.ID, "error", err)
}
