package archive

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString absorbs archive.org metadata values, which show up as strings,
// numbers, or arrays of strings depending on the item.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '[':
		var arr []FlexString
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		if len(arr) > 0 {
			*f = arr[0]
		} else {
			*f = ""
		}
	default:
		// Bare number or bool; keep the raw token.
		*f = FlexString(strings.Trim(string(data), `"`))
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

func (f FlexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (f FlexString) Int() (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return 0, false
	}
	return v, true
}

// Item is the response of the /metadata/{identifier} endpoint, reduced to
// the fields this application reads.
type Item struct {
	Server   string       `json:"server"`
	Dir      string       `json:"dir"`
	Files    []File       `json:"files"`
	Metadata ItemMetadata `json:"metadata"`
	Reviews  []Review     `json:"reviews"`
}

// File is one file of an archive item.
type File struct {
	Name   string     `json:"name"`
	Format string     `json:"format"`
	Title  FlexString `json:"title"`
	Track  FlexString `json:"track"`
	Length FlexString `json:"length"`
	Size   FlexString `json:"size"`
	Source string     `json:"source"`
}

type ItemMetadata struct {
	Identifier FlexString `json:"identifier"`
	Title      FlexString `json:"title"`
	Date       FlexString `json:"date"`
	Venue      FlexString `json:"venue"`
	Coverage   FlexString `json:"coverage"`
	Source     FlexString `json:"source"`
	AvgRating  FlexString `json:"avg_rating"`
	NumReviews FlexString `json:"num_reviews"`
}

type Review struct {
	Stars FlexString `json:"stars"`
}

// ShowDoc is one search result row of advancedsearch.php.
type ShowDoc struct {
	Identifier FlexString `json:"identifier"`
	Date       FlexString `json:"date"`
	Venue      FlexString `json:"venue"`
	Coverage   FlexString `json:"coverage"`
	Source     FlexString `json:"source"`
	AvgRating  FlexString `json:"avg_rating"`
	NumReviews FlexString `json:"num_reviews"`
}

type searchResponse struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []ShowDoc `json:"docs"`
	} `json:"response"`
}
