// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "deadarchive.db"
	DefaultArchiveURL   = "https://archive.org"
	DefaultConcurrency  = 3
	DefaultPollInterval = 5 * time.Second
	DefaultHTTPTimeout  = 5 * time.Minute
	MetadataHTTPTimeout = 30 * time.Second
	DefaultRetryCount   = 3
	DefaultRetryBase    = 30 * time.Second
	MetadataRetryBase   = 1 * time.Second
	MinRequestInterval  = 250 * time.Millisecond
)

// Archive.org endpoints. DownloadPathTemplate is the contract with the remote
// archive: download URLs must follow this exact path shape.
const (
	MetadataPath         = "/metadata/"
	SearchPath           = "/advancedsearch.php"
	DownloadPathTemplate = "%s/download/%s/%s"
	DeadCollection       = "GratefulDead"
)

// Audio formats as reported by the archive metadata API.
const (
	FormatFLAC   = "Flac"
	Format24Flac = "24bit Flac"
	FormatVBRMP3 = "VBR MP3"
	FormatOgg    = "Ogg Vorbis"
)

// MIME types
const (
	MimeTypeFLAC = "audio/flac"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeJPEG = "image/jpeg"
)

// File extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtOgg  = ".ogg"
	ExtJPG  = ".jpg"
)

// File permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Job runner
const (
	TagDownload        = "download"
	ProgressUpdateFreq = 1 * time.Second
	JobQueueDepth      = 64
)

// ForceStartPriority is the priority assigned by force-start; it sorts ahead
// of every user-assigned priority.
const ForceStartPriority = int(^uint32(0) >> 1)

// UI/API limits
const (
	MaxSearchResults = 50
	MaxHistoryItems  = 20
)

// Characters stripped from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
