// Package storage handles the on-disk layout of downloaded audio files.
// Tracks live under downloadsDir/<recordingID>/<trackFilename>.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ds17f/deadarchive/internal/constants"
)

// Sanitize strips characters that are invalid in file names and trims
// trailing dots and spaces.
func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

// RecordingDir returns the directory that holds one recording's tracks.
func RecordingDir(downloadsDir, recordingID string) string {
	return filepath.Join(downloadsDir, Sanitize(recordingID))
}

// TrackPath returns the final on-disk path for one track of a recording.
func TrackPath(downloadsDir, recordingID, trackFilename string) string {
	return filepath.Join(RecordingDir(downloadsDir, recordingID), Sanitize(trackFilename))
}

// PartialPath returns the in-progress path for a track. The file is renamed
// to its final name once the download completes.
func PartialPath(downloadsDir, recordingID, trackFilename string) string {
	return TrackPath(downloadsDir, recordingID, trackFilename) + ".partial"
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return fmt.Errorf("failed to move %s to %s", src, dst)
}

func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, constants.FilePermissions)
}

// RemoveFile deletes a file, treating a missing file as success.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveTrack deletes a track plus any leftover partial file.
func RemoveTrack(downloadsDir, recordingID, trackFilename string) error {
	if err := RemoveFile(TrackPath(downloadsDir, recordingID, trackFilename)); err != nil {
		return err
	}
	return RemoveFile(PartialPath(downloadsDir, recordingID, trackFilename))
}

// DeleteFolderIfEmpty removes a directory only when it holds no entries.
func DeleteFolderIfEmpty(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(entries) == 0 {
		return os.Remove(dirPath)
	}
	return nil
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}
