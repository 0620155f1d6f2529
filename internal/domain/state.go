package domain

// ShowDownloadState is the derived, never-persisted summary of all download
// rows belonging to one recording. It is a closed set of value types: one
// variant per state, each carrying only the fields that state needs. All
// variants are comparable, so two aggregations over the same row set are
// structurally equal.
type ShowDownloadState interface {
	StateName() string
}

// NotDownloaded means no (visible) rows exist for the recording.
type NotDownloaded struct{}

func (NotDownloaded) StateName() string { return "not_downloaded" }

// Downloading means at least one row is queued or in flight, or some tracks
// have already completed while others are still pending.
type Downloading struct {
	Progress        float64
	CompletedTracks int
	TotalTracks     int
}

func (Downloading) StateName() string { return "downloading" }

// Paused means the user paused the group and nothing is actively running.
type Paused struct {
	Progress        float64
	CompletedTracks int
	TotalTracks     int
}

func (Paused) StateName() string { return "paused" }

// Cancelled means the group was cancelled and nothing is active or paused.
type Cancelled struct {
	Progress        float64
	CompletedTracks int
	TotalTracks     int
}

func (Cancelled) StateName() string { return "cancelled" }

// Downloaded means every row completed.
type Downloaded struct{}

func (Downloaded) StateName() string { return "downloaded" }

// Failed means at least one row failed and nothing else is active.
type Failed struct {
	Message string
}

func (Failed) StateName() string { return "failed" }
