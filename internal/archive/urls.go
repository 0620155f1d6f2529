package archive

import (
	"fmt"
	"net/url"

	"github.com/ds17f/deadarchive/internal/constants"
)

// DownloadURL builds the direct download URL for a track of a recording.
// The path shape is fixed by the remote archive.
func DownloadURL(baseURL, recordingID, trackFilename string) string {
	return fmt.Sprintf(constants.DownloadPathTemplate, baseURL, recordingID, url.PathEscape(trackFilename))
}

// MetadataURL builds the item metadata endpoint URL for a recording.
func MetadataURL(baseURL, recordingID string) string {
	return baseURL + constants.MetadataPath + url.PathEscape(recordingID)
}
