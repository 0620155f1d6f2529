package domain

// Aggregate folds the set of download rows for one recording into a single
// ShowDownloadState. It is a pure function of the row set: recomputing it
// over unchanged rows yields a structurally equal result.
//
// Precedence: failed only surfaces when nothing else is active, and paused
// wins over stray cancelled rows. Clients render controls off this order.
func Aggregate(rows []Download) ShowDownloadState {
	if len(rows) == 0 {
		return NotDownloaded{}
	}

	// Soft-deleted rows are invisible: the whole group reads as absent.
	for _, r := range rows {
		if r.MarkedForDeletion {
			return NotDownloaded{}
		}
	}

	var completed int
	var anyQueued, anyDownloading, anyPaused, anyCancelled bool
	var firstFailed *Download
	for i := range rows {
		switch rows[i].Status {
		case StatusCompleted:
			completed++
		case StatusQueued:
			anyQueued = true
		case StatusDownloading:
			anyDownloading = true
		case StatusPaused:
			anyPaused = true
		case StatusCancelled:
			anyCancelled = true
		case StatusFailed:
			if firstFailed == nil {
				firstFailed = &rows[i]
			}
		}
	}

	total := len(rows)
	active := anyQueued || anyDownloading

	switch {
	case completed == total:
		return Downloaded{}
	case firstFailed != nil && !active && !anyPaused && !anyCancelled:
		msg := ""
		if firstFailed.Error != nil {
			msg = *firstFailed.Error
		}
		return Failed{Message: msg}
	case anyPaused && !active:
		return Paused{Progress: averageProgress(rows), CompletedTracks: completed, TotalTracks: total}
	case anyCancelled && !active && !anyPaused:
		return Cancelled{Progress: averageProgress(rows), CompletedTracks: completed, TotalTracks: total}
	case active || completed > 0:
		return Downloading{Progress: averageProgress(rows), CompletedTracks: completed, TotalTracks: total}
	default:
		return NotDownloaded{}
	}
}

// averageProgress averages per-row progress over every row in the group.
// Completed rows count as 1.0 regardless of their persisted column; queued,
// failed and cancelled rows contribute 0.
func averageProgress(rows []Download) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		switch r.Status {
		case StatusCompleted:
			sum += 1.0
		case StatusDownloading, StatusPaused:
			sum += r.Progress
		}
	}
	return sum / float64(len(rows))
}

// TrackCompletion returns per-filename completion flags for one recording's
// rows. Soft-deleted rows are treated as absent.
func TrackCompletion(rows []Download) map[string]bool {
	flags := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.MarkedForDeletion {
			continue
		}
		flags[r.TrackFilename] = r.Status == StatusCompleted
	}
	return flags
}
