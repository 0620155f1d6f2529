// Package tagging writes show metadata into downloaded audio files.
package tagging

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"

	"github.com/ds17f/deadarchive/internal/constants"
	"github.com/ds17f/deadarchive/internal/domain"
)

// ArtistName is written as the artist tag on every track.
const ArtistName = "Grateful Dead"

// TrackMeta is the tag set written to one audio file.
type TrackMeta struct {
	Title       string
	Album       string
	TrackNumber int
	Date        string
	Venue       string
	CoverArt    []byte
}

// MetaForTrack builds the tag set for one track of a show.
func MetaForTrack(show *domain.Show, track domain.Track) TrackMeta {
	album := show.Date
	if show.Venue != "" {
		album = fmt.Sprintf("%s %s", show.Date, show.Venue)
	}
	title := track.Title
	if title == "" {
		title = strings.TrimSuffix(track.Filename, filepath.Ext(track.Filename))
	}
	return TrackMeta{
		Title:       title,
		Album:       album,
		TrackNumber: track.TrackNumber,
		Date:        show.Date,
		Venue:       show.Venue,
	}
}

// TagFile writes metadata tags to the audio file at filePath,
// dispatching on the file extension.
func TagFile(filePath string, meta TrackMeta) error {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case constants.ExtFLAC:
		return tagFLAC(filePath, meta)
	case constants.ExtMP3:
		return tagMP3(filePath, meta)
	case constants.ExtOgg:
		// Ogg Vorbis files are left untagged; the archive already ships
		// them with embedded comments.
		return nil
	default:
		return fmt.Errorf("unsupported file format: %s", filepath.Ext(filePath))
	}
}

func tagFLAC(filePath string, meta TrackMeta) error {
	f, err := goflac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	cmt := flacvorbis.New()
	cmt.Add(flacvorbis.FIELD_TITLE, meta.Title)
	cmt.Add(flacvorbis.FIELD_ARTIST, ArtistName)
	cmt.Add(flacvorbis.FIELD_ALBUM, meta.Album)
	if meta.TrackNumber > 0 {
		cmt.Add(flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(meta.TrackNumber))
	}
	if meta.Date != "" {
		cmt.Add(flacvorbis.FIELD_DATE, meta.Date)
	}
	if meta.Venue != "" {
		cmt.Add("VENUE", meta.Venue)
	}

	block := cmt.Marshal()
	f.Meta = replaceBlock(f.Meta, goflac.VorbisComment, &block)

	if len(meta.CoverArt) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", meta.CoverArt, constants.MimeTypeJPEG)
		if err != nil {
			return fmt.Errorf("build picture block: %w", err)
		}
		picBlock := pic.Marshal()
		f.Meta = replaceBlock(f.Meta, goflac.Picture, &picBlock)
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}

// replaceBlock swaps out any existing metadata block of the given type so
// repeated tagging does not accumulate duplicates.
func replaceBlock(blocks []*goflac.MetaDataBlock, typ goflac.BlockType, replacement *goflac.MetaDataBlock) []*goflac.MetaDataBlock {
	kept := blocks[:0]
	for _, b := range blocks {
		if b.Type != typ {
			kept = append(kept, b)
		}
	}
	return append(kept, replacement)
}

func tagMP3(filePath string, meta TrackMeta) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open mp3: %w", err)
	}
	defer tag.Close()

	tag.SetTitle(meta.Title)
	tag.SetArtist(ArtistName)
	tag.SetAlbum(meta.Album)
	if meta.TrackNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), strconv.Itoa(meta.TrackNumber))
	}
	if meta.Date != "" {
		tag.AddTextFrame(tag.CommonID("Recording time"), tag.DefaultEncoding(), meta.Date)
	}
	if len(meta.CoverArt) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    tag.DefaultEncoding(),
			MimeType:    constants.MimeTypeJPEG,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     meta.CoverArt,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save mp3 tags: %w", err)
	}
	return nil
}
