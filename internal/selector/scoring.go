package selector

import (
	"sort"

	"github.com/meigsy/shift/internal/repository/db"
)

// Suppression and scoring constants.
const (
	// annoyanceCap prevents permanent surface lockout: even a 100% dismissal
	// rate is capped so the surface can recover as preferences evolve.
	annoyanceCap = 0.9
	// suppressMinShown is the minimum exposure before suppression applies.
	suppressMinShown = 5
	// suppressAnnoyance is the capped annoyance rate above which a
	// sufficiently shown surface is withheld.
	suppressAnnoyance = 0.7
	// baseScore anchors final_score so a neutral preference still ranks.
	baseScore = 1.0
)

// ScoredCandidate is a catalog entry that survived suppression, with its
// computed score.
type ScoredCandidate struct {
	Entry           db.CatalogEntry
	FinalScore      float64
	PreferenceScore float64
}

// Suppressed reports whether a surface with the given history must be
// withheld from consideration.
func Suppressed(shownCount int64, annoyanceRate float64) bool {
	capped := annoyanceRate
	if capped > annoyanceCap {
		capped = annoyanceCap
	}
	return shownCount >= suppressMinShown && capped > suppressAnnoyance
}

// Rank scores each candidate by its surface's preference history, drops
// suppressed surfaces, and returns survivors ordered best-first. Ordering is
// fully deterministic: score descending, then intervention key ascending.
func Rank(candidates []db.CatalogEntry, prefs map[string]db.SurfacePreference) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		pref, ok := prefs[c.Surface]

		var shownCount int64
		var annoyanceRate, preferenceScore float64
		if ok {
			shownCount = pref.ShownCount
			if pref.AnnoyanceRate.Valid {
				annoyanceRate = pref.AnnoyanceRate.Float64
			}
			if pref.PreferenceScore.Valid {
				preferenceScore = pref.PreferenceScore.Float64
			}
		}

		if Suppressed(shownCount, annoyanceRate) {
			continue
		}

		scored = append(scored, ScoredCandidate{
			Entry:           c,
			FinalScore:      baseScore + preferenceScore,
			PreferenceScore: preferenceScore,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].FinalScore != scored[j].FinalScore {
			return scored[i].FinalScore > scored[j].FinalScore
		}
		return scored[i].Entry.InterventionKey < scored[j].Entry.InterventionKey
	})
	return scored
}
