package tagging

import (
	"testing"

	"github.com/ds17f/deadarchive/internal/domain"
)

func TestMetaForTrack(t *testing.T) {
	show := &domain.Show{
		ID:    "1977-05-08",
		Date:  "1977-05-08",
		Venue: "Barton Hall",
	}
	track := domain.Track{
		Filename:    "d1t02.flac",
		Title:       "Loser",
		TrackNumber: 2,
	}

	meta := MetaForTrack(show, track)
	if meta.Title != "Loser" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Album != "1977-05-08 Barton Hall" {
		t.Errorf("album = %q", meta.Album)
	}
	if meta.TrackNumber != 2 {
		t.Errorf("track number = %d", meta.TrackNumber)
	}
}

func TestMetaForTrackUntitled(t *testing.T) {
	show := &domain.Show{ID: "1972-08-27", Date: "1972-08-27"}
	track := domain.Track{Filename: "d2t05.flac"}

	meta := MetaForTrack(show, track)
	if meta.Title != "d2t05" {
		t.Errorf("title fallback = %q, want filename stem", meta.Title)
	}
	if meta.Album != "1972-08-27" {
		t.Errorf("album without venue = %q", meta.Album)
	}
}

func TestTagFileUnsupportedFormat(t *testing.T) {
	if err := TagFile("track.wav", TrackMeta{Title: "x"}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestTagFileOggIsNoop(t *testing.T) {
	if err := TagFile("track.ogg", TrackMeta{Title: "x"}); err != nil {
		t.Errorf("ogg should be a no-op, got %v", err)
	}
}
