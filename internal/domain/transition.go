package domain

// CanTransition reports whether a download row may move from one status to
// another. Every mutation site checks this table so that illegal moves (for
// example completed to downloading) are rejected up front instead of
// silently corrupting state. Callers treat a rejected user command as a
// no-op, not an error.
//
// The machine:
//
//	queued -> downloading -> {completed | failed | cancelled}
//	queued -> paused (pause is a group command; waiting rows must leave the queue too)
//	downloading <-> paused
//	any non-terminal -> cancelled
//	failed/cancelled -> queued (retry)
//	paused -> queued (resume re-enters the queue so the concurrency cap holds)
func CanTransition(from, to DownloadStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusQueued:
		return to == StatusDownloading || to == StatusPaused || to == StatusCancelled
	case StatusDownloading:
		return to == StatusPaused || to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	case StatusPaused:
		return to == StatusDownloading || to == StatusQueued || to == StatusCancelled
	case StatusFailed:
		return to == StatusQueued || to == StatusCancelled
	case StatusCancelled:
		return to == StatusQueued
	case StatusCompleted:
		return false
	default:
		return false
	}
}
