// Package selection picks the best recording of a show out of several
// candidates. Everything here is pure and side-effect free: malformed input
// yields nil or an empty slice, never an error.
package selection

import (
	"fmt"
	"sort"

	"github.com/ds17f/deadarchive/internal/domain"
)

// SelectBest returns the recording that should be played and downloaded for
// a show. An explicit pin always wins. Without user preferences the pick is
// a fixed lexicographic tie-break: having any rating dominates source type,
// which dominates the exact rating value.
func SelectBest(recordings []domain.Recording, pinnedID string, prefs *domain.RecordingPreferences) *domain.Recording {
	if len(recordings) == 0 {
		return nil
	}
	if len(recordings) == 1 {
		return &recordings[0]
	}

	if pinnedID != "" {
		for i := range recordings {
			if recordings[i].ID == pinnedID {
				return &recordings[i]
			}
		}
	}

	if prefs == nil {
		return selectByScore(recordings)
	}
	return selectByPreferences(recordings, prefs)
}

// score computes the composite selection score; lower is better. A rated
// recording always scores below an unrated one, source type breaks the next
// tie, and the rating value nudges within a source tier.
func score(r *domain.Recording) float64 {
	ratingPriority := 1.0
	ratingBonus := 0.0
	if r.HasRating() {
		ratingPriority = 0
		ratingBonus = (5 - *r.Rating) / 10
	}
	return ratingPriority*10 + float64(r.SourceType.Priority()) + ratingBonus
}

func selectByScore(recordings []domain.Recording) *domain.Recording {
	best := &recordings[0]
	bestScore := score(best)
	for i := 1; i < len(recordings); i++ {
		if s := score(&recordings[i]); s < bestScore {
			best = &recordings[i]
			bestScore = s
		}
	}
	return best
}

func selectByPreferences(recordings []domain.Recording, prefs *domain.RecordingPreferences) *domain.Recording {
	filtered := filterByPreferences(recordings, prefs)
	// Too-strict filters never turn existing candidates into "none".
	if len(filtered) == 0 {
		filtered = recordings
	}

	best := &filtered[0]
	for i := 1; i < len(filtered); i++ {
		if preferencesLess(&filtered[i], best, prefs.PreferHigherRated) {
			best = &filtered[i]
		}
	}
	return best
}

func filterByPreferences(recordings []domain.Recording, prefs *domain.RecordingPreferences) []domain.Recording {
	var out []domain.Recording
	for _, r := range recordings {
		if prefs.MinimumRating > 0 && r.RatingOrZero() < prefs.MinimumRating {
			continue
		}
		if prefs.PreferredSource != "" && prefs.PreferredSource != domain.SourceUnknown && r.SourceType != prefs.PreferredSource {
			continue
		}
		out = append(out, r)
	}
	return out
}

// preferencesLess reports whether a should be picked over b. With
// preferHigherRated the rating dominates and source breaks ties; otherwise
// source dominates and rating breaks ties. Degenerate comparisons keep the
// earlier element.
func preferencesLess(a, b *domain.Recording, preferHigherRated bool) bool {
	if preferHigherRated {
		if a.RatingOrZero() != b.RatingOrZero() {
			return a.RatingOrZero() > b.RatingOrZero()
		}
		return a.SourceType.Priority() < b.SourceType.Priority()
	}
	if a.SourceType.Priority() != b.SourceType.Priority() {
		return a.SourceType.Priority() < b.SourceType.Priority()
	}
	return a.RatingOrZero() > b.RatingOrZero()
}

// RecordingOption is one alternative recording offered to the user.
type RecordingOption struct {
	Recording     domain.Recording `json:"recording"`
	IsRecommended bool             `json:"is_recommended"`
	MatchReason   string           `json:"match_reason"`
}

// GetRecordingOptions lists every recording other than the current one,
// annotated and display-ordered: the externally flagged ratings-best
// recording first, then the recommended pick, then raw rating descending,
// then source priority.
func GetRecordingOptions(recordings []domain.Recording, currentID, ratingsBestID string, prefs *domain.RecordingPreferences) []RecordingOption {
	if len(recordings) == 0 {
		return nil
	}

	recommended := SelectBest(recordings, "", prefs)

	var options []RecordingOption
	for _, r := range recordings {
		if r.ID == currentID {
			continue
		}
		isRecommended := recommended != nil && r.ID == recommended.ID
		options = append(options, RecordingOption{
			Recording:     r,
			IsRecommended: isRecommended,
			MatchReason:   matchReason(&r, isRecommended, ratingsBestID, prefs),
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if ab, bb := a.Recording.ID == ratingsBestID, b.Recording.ID == ratingsBestID; ab != bb {
			return ab
		}
		if a.IsRecommended != b.IsRecommended {
			return a.IsRecommended
		}
		if ar, br := a.Recording.RatingOrZero(), b.Recording.RatingOrZero(); ar != br {
			return ar > br
		}
		return a.Recording.SourceType.Priority() < b.Recording.SourceType.Priority()
	})

	return options
}

func matchReason(r *domain.Recording, isRecommended bool, ratingsBestID string, prefs *domain.RecordingPreferences) string {
	switch {
	case r.ID == ratingsBestID:
		return "Highest rated by listeners"
	case isRecommended:
		return "Recommended"
	case prefs != nil && prefs.PreferredSource != "" && r.SourceType == prefs.PreferredSource:
		return fmt.Sprintf("Matches your preferred source (%s)", r.SourceType)
	case r.HasRating():
		return fmt.Sprintf("Rated %.1f (%s)", *r.Rating, sourceLabel(r.SourceType))
	default:
		return sourceLabel(r.SourceType)
	}
}

func sourceLabel(s domain.SourceType) string {
	switch s {
	case domain.SourceSoundboard:
		return "Soundboard recording"
	case domain.SourceMatrix:
		return "Matrix recording"
	case domain.SourceFM:
		return "FM broadcast"
	case domain.SourceAudience:
		return "Audience recording"
	default:
		return "Unknown source"
	}
}
