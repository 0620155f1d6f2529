// Package archive talks to the archive.org metadata and search APIs and
// converts their responses to domain types.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ds17f/deadarchive/internal/constants"
	"github.com/ds17f/deadarchive/internal/domain"
	"github.com/ds17f/deadarchive/internal/httpclient"
	"github.com/ds17f/deadarchive/internal/logger"
)

// Client fetches item metadata and show listings from the archive.
type Client struct {
	baseURL string
	http    *httpclient.Client
	log     *logger.Logger
}

// NewClient creates an archive client against the given base URL.
func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(nil, constants.MinRequestInterval),
		log:     log.WithComponent("archive"),
	}
}

// BaseURL returns the configured archive base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// GetItem fetches the full metadata record of one archive item.
func (c *Client) GetItem(ctx context.Context, identifier string) (*Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, MetadataURL(c.baseURL, identifier), nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %s: %w", identifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata for %s: unexpected status %d", identifier, resp.StatusCode)
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", identifier, err)
	}
	// The metadata API returns an empty object for unknown identifiers.
	if item.Metadata.Identifier == "" {
		return nil, fmt.Errorf("item %s not found", identifier)
	}
	return &item, nil
}

// SearchShows queries the collection for recordings matching the given query
// fragment, typically a date like "1977-05-08".
func (c *Client) SearchShows(ctx context.Context, query string, rows int) ([]ShowDoc, error) {
	if rows <= 0 || rows > constants.MaxSearchResults {
		rows = constants.MaxSearchResults
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("collection:%s AND %s", constants.DeadCollection, query))
	for _, fl := range []string{"identifier", "date", "venue", "coverage", "source", "avg_rating", "num_reviews"} {
		params.Add("fl[]", fl)
	}
	params.Set("rows", strconv.Itoa(rows))
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+constants.SearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: unexpected status %d", query, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	c.log.Debug("search complete", "query", query, "found", sr.Response.NumFound)
	return sr.Response.Docs, nil
}

// FetchShow assembles a show and its recordings for one date. Each search hit
// becomes a recording; track lists are left empty until an item is fetched.
func (c *Client) FetchShow(ctx context.Context, date string) (*domain.Show, error) {
	docs, err := c.SearchShows(ctx, fmt.Sprintf("date:%s", date), constants.MaxSearchResults)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no recordings found for %s", date)
	}

	show := &domain.Show{
		ID:   ShowID(date),
		Date: date,
	}
	for _, doc := range docs {
		if show.Venue == "" {
			show.Venue = doc.Venue.String()
		}
		if show.City == "" {
			show.City, show.State = splitCoverage(doc.Coverage.String())
		}
		show.Recordings = append(show.Recordings, RecordingFromDoc(show.ID, doc))
	}
	c.log.WithShow(show.ID).Debug("fetched show", "recordings", len(show.Recordings))
	return show, nil
}

// ShowID derives the canonical show identifier from a date.
func ShowID(date string) string {
	return strings.TrimSpace(date)
}

// RecordingFromDoc converts a search hit to a recording without tracks.
func RecordingFromDoc(showID string, doc ShowDoc) domain.Recording {
	rec := domain.Recording{
		ID:         doc.Identifier.String(),
		ShowID:     showID,
		SourceType: domain.ParseSourceType(doc.Source.String() + " " + doc.Identifier.String()),
	}
	if v, ok := doc.AvgRating.Float(); ok && v > 0 {
		rec.Rating = &v
	}
	if n, ok := doc.NumReviews.Int(); ok {
		rec.RatingCount = n
	}
	return rec
}

// RecordingFromItem converts a full metadata record to a recording with its
// track list in the preferred audio format.
func RecordingFromItem(showID string, item *Item, preferredFormat string) domain.Recording {
	rec := domain.Recording{
		ID:         item.Metadata.Identifier.String(),
		ShowID:     showID,
		SourceType: domain.ParseSourceType(item.Metadata.Source.String() + " " + item.Metadata.Identifier.String()),
		Tracks:     TracksFromFiles(item.Files, preferredFormat),
	}

	if v, ok := item.Metadata.AvgRating.Float(); ok && v > 0 {
		rec.Rating = &v
	} else if avg, n := averageStars(item.Reviews); n > 0 {
		rec.Rating = &avg
	}
	if n, ok := item.Metadata.NumReviews.Int(); ok && n > 0 {
		rec.RatingCount = n
	} else {
		rec.RatingCount = len(item.Reviews)
	}
	return rec
}

// TracksFromFiles extracts the audio tracks of the preferred format,
// falling back through the known formats when the item lacks it.
func TracksFromFiles(files []File, preferredFormat string) []domain.Track {
	order := []string{preferredFormat, constants.FormatFLAC, constants.Format24Flac, constants.FormatVBRMP3, constants.FormatOgg}
	for _, format := range order {
		if format == "" {
			continue
		}
		tracks := tracksOfFormat(files, format)
		if len(tracks) > 0 {
			return tracks
		}
	}
	return nil
}

func tracksOfFormat(files []File, format string) []domain.Track {
	var tracks []domain.Track
	for _, f := range files {
		if !strings.EqualFold(f.Format, format) {
			continue
		}
		t := domain.Track{
			Filename: f.Name,
			Title:    f.Title.String(),
			Format:   f.Format,
			Duration: parseLength(f.Length.String()),
		}
		if n, ok := f.Track.Int(); ok {
			t.TrackNumber = n
		}
		if size, err := strconv.ParseInt(f.Size.String(), 10, 64); err == nil {
			t.Size = size
		}
		tracks = append(tracks, t)
	}
	return tracks
}

// parseLength handles both "mm:ss" and plain-seconds length values.
func parseLength(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ":") {
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	}
	var total float64
	for _, part := range strings.Split(raw, ":") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0
		}
		total = total*60 + v
	}
	return total
}

func averageStars(reviews []Review) (float64, int) {
	var sum float64
	var n int
	for _, r := range reviews {
		if v, ok := r.Stars.Float(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// splitCoverage splits an archive coverage value like "Ithaca, NY" into
// city and state.
func splitCoverage(coverage string) (city, state string) {
	parts := strings.SplitN(coverage, ",", 2)
	city = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		state = strings.TrimSpace(parts[1])
	}
	return city, state
}
