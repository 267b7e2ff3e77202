package domain

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Matches on the visible label outrank matches buried in the URL
	ScoreLabelBonus = 20.0
)

// BookmarkCandidate represents a bookmark candidate with its match score
type BookmarkCandidate struct {
	Bookmark *Bookmark
	Score    float64
}

// ScoreBookmark calculates the lexical match score of a bookmark
// against a query string. Fuzzy matching is done in bulk by
// RankBookmarkCandidates.
func ScoreBookmark(queryStr string, bookmark *Bookmark) float64 {
	if bookmark == nil {
		return 0.0
	}

	queryStr = strings.ToLower(strings.TrimSpace(queryStr))
	if queryStr == "" {
		return 0.0
	}

	best := scoreField(queryStr, strings.ToLower(bookmark.Label()))
	if best > 0 {
		best += ScoreLabelBonus
	}

	for _, field := range []string{bookmark.Hostname(), bookmark.URL, deref(bookmark.Description)} {
		if s := scoreField(queryStr, strings.ToLower(field)); s > best {
			best = s
		}
	}

	return best
}

func scoreField(query, field string) float64 {
	if field == "" {
		return 0.0
	}

	// Exact match
	if query == field {
		return ScoreExactMatch
	}

	// Prefix match
	if strings.HasPrefix(field, query) {
		return ScorePrefixMatch
	}

	// Substring match
	if index := strings.Index(field, query); index >= 0 {
		// Earlier substring matches get higher score
		substringBonus := ScorePositionBonus * (1.0 - float64(index)/float64(len(field)))
		return ScoreSubstringMatch + substringBonus
	}

	// Word match: every query word appears somewhere in the field
	queryWords := strings.Fields(query)
	if len(queryWords) > 1 {
		for _, word := range queryWords {
			if !strings.Contains(field, word) {
				return 0.0
			}
		}
		return ScoreSubstringMatch
	}

	return 0.0
}

// bookmarkLabels implements fuzzy.Source over bookmark labels.
type bookmarkLabels []*Bookmark

func (bl bookmarkLabels) String(i int) string { return bl[i].Label() }

func (bl bookmarkLabels) Len() int { return len(bl) }

// RankBookmarkCandidates ranks bookmarks by score, best first. Equal
// scores keep their input order.
func RankBookmarkCandidates(queryStr string, bookmarks []*Bookmark) []*BookmarkCandidate {
	candidates := make([]*BookmarkCandidate, 0, len(bookmarks))
	var unmatched bookmarkLabels

	for _, bookmark := range bookmarks {
		if bookmark == nil {
			continue
		}

		score := ScoreBookmark(queryStr, bookmark)
		if score == 0.0 {
			unmatched = append(unmatched, bookmark)
			continue
		}

		candidates = append(candidates, &BookmarkCandidate{
			Bookmark: bookmark,
			Score:    score,
		})
	}

	// Fuzzy tier for whatever the lexical pass missed
	query := strings.TrimSpace(queryStr)
	if query != "" && len(unmatched) > 0 {
		for _, m := range fuzzy.FindFrom(query, unmatched) {
			coverage := float64(len(m.MatchedIndexes)) / float64(len(m.Str))
			candidates = append(candidates, &BookmarkCandidate{
				Bookmark: unmatched[m.Index],
				Score:    ScoreFuzzyMatch * coverage,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}

// FindBestBookmark finds the best matching bookmark for a query
func FindBestBookmark(queryStr string, bookmarks []*Bookmark) *Bookmark {
	candidates := RankBookmarkCandidates(queryStr, bookmarks)
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0].Bookmark
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
