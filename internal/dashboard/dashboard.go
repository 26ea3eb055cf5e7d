// Package dashboard holds the narrative list pipeline: risk banding,
// search and band filtering, stable sorting, CSV export, and the
// debounce scheduler. Everything is a plain function over narrative
// slices so the contracts stay testable without any view layer.
package dashboard

import (
	"sort"
	"strings"

	"github.com/opennarrative/opennarrative/internal/database"
)

// Band is a risk classification band.
type Band string

const (
	BandAll      Band = "all"
	BandCritical Band = "critical"
	BandHigh     Band = "high"
	BandMedium   Band = "medium"
	BandLow      Band = "low"
)

// SortKey selects the sort column.
type SortKey string

const (
	SortByRisk  SortKey = "riskScore"
	SortByTitle SortKey = "title"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Classify maps a risk score to its band. Thresholds are a product
// contract shared with the CSV export and metrics: critical >= 8,
// high [5,8), medium [3,5), low < 3.
func Classify(score float64) Band {
	switch {
	case score >= 8:
		return BandCritical
	case score >= 5:
		return BandHigh
	case score >= 3:
		return BandMedium
	default:
		return BandLow
	}
}

// Filter returns the narratives whose title or summary contains query as
// a case-insensitive substring and whose risk score falls in band.
// BandAll matches every score.
func Filter(narratives []database.Narrative, query string, band Band) []database.Narrative {
	q := strings.ToLower(query)
	var out []database.Narrative
	for _, n := range narratives {
		matchesSearch := strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Summary), q)
		if !matchesSearch {
			continue
		}
		if band != BandAll && Classify(n.RiskScore) != band {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Sort orders narratives by key and direction. The sort is stable: ties
// keep their relative order. Missing values compare as 0 (risk) or ""
// (title).
func Sort(narratives []database.Narrative, key SortKey, dir SortDirection) []database.Narrative {
	out := make([]database.Narrative, len(narratives))
	copy(out, narratives)

	less := func(a, b database.Narrative) bool {
		if key == SortByTitle {
			return a.Title < b.Title
		}
		return a.RiskScore < b.RiskScore
	}

	sort.SliceStable(out, func(i, j int) bool {
		if dir == Asc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

// Apply runs the full filter-then-sort pipeline.
func Apply(narratives []database.Narrative, query string, band Band, key SortKey, dir SortDirection) []database.Narrative {
	return Sort(Filter(narratives, query, band), key, dir)
}

// ParseBand validates a band query value, defaulting to all.
func ParseBand(s string) Band {
	switch Band(s) {
	case BandCritical, BandHigh, BandMedium, BandLow:
		return Band(s)
	default:
		return BandAll
	}
}

// ParseSortKey validates a sort key, defaulting to risk score.
func ParseSortKey(s string) SortKey {
	if SortKey(s) == SortByTitle {
		return SortByTitle
	}
	return SortByRisk
}

// ParseDirection validates a sort direction, defaulting to descending.
func ParseDirection(s string) SortDirection {
	if SortDirection(s) == Asc {
		return Asc
	}
	return Desc
}
