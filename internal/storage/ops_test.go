package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Normal Name", "Normal Name"},
		{"Slash/Name", "SlashName"},
		{"Colon:Name", "ColonName"},
		{"Trailing Dot.", "Trailing Dot"},
		{"gd77-05-08d1t01.flac", "gd77-05-08d1t01.flac"},
		{"<Invalid>", "Invalid"},
	}

	for _, tt := range tests {
		got := Sanitize(tt.input)
		if got != tt.expected {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTrackPath(t *testing.T) {
	got := TrackPath("/data", "gd1977-05-08.sbd.hicks", "d1t01.flac")
	want := filepath.Join("/data", "gd1977-05-08.sbd.hicks", "d1t01.flac")
	if got != want {
		t.Errorf("TrackPath = %q, want %q", got, want)
	}
}

func TestRemoveTrack(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureDir(RecordingDir(dir, "rec1")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(TrackPath(dir, "rec1", "t1.flac"), []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(PartialPath(dir, "rec1", "t1.flac"), []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := RemoveTrack(dir, "rec1", "t1.flac"); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if _, err := os.Stat(TrackPath(dir, "rec1", "t1.flac")); !os.IsNotExist(err) {
		t.Error("track file still exists")
	}
	if _, err := os.Stat(PartialPath(dir, "rec1", "t1.flac")); !os.IsNotExist(err) {
		t.Error("partial file still exists")
	}

	// Removing a missing track is not an error.
	if err := RemoveTrack(dir, "rec1", "t1.flac"); err != nil {
		t.Errorf("second RemoveTrack: %v", err)
	}
}

func TestDeleteFolderIfEmpty(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "rec1")
	if err := EnsureDir(sub); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(filepath.Join(sub, "t1.flac"), []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := DeleteFolderIfEmpty(sub); err != nil {
		t.Fatalf("DeleteFolderIfEmpty: %v", err)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Error("non-empty folder should survive")
	}

	if err := os.Remove(filepath.Join(sub, "t1.flac")); err != nil {
		t.Fatal(err)
	}
	if err := DeleteFolderIfEmpty(sub); err != nil {
		t.Fatalf("DeleteFolderIfEmpty: %v", err)
	}
	if _, err := os.Stat(sub); !os.IsNotExist(err) {
		t.Error("empty folder should be removed")
	}

	// Missing folder is fine.
	if err := DeleteFolderIfEmpty(filepath.Join(dir, "nope")); err != nil {
		t.Errorf("missing folder: %v", err)
	}
}
