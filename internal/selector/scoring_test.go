package selector

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigsy/shift/internal/repository/db"
)

func pref(surface string, shown int64, annoyance, score float64) db.SurfacePreference {
	return db.SurfacePreference{
		Surface:         surface,
		ShownCount:      shown,
		AnnoyanceRate:   pgtype.Float8{Float64: annoyance, Valid: true},
		PreferenceScore: pgtype.Float8{Float64: score, Valid: true},
	}
}

func entry(key, surface string) db.CatalogEntry {
	return db.CatalogEntry{InterventionKey: key, Surface: surface, Enabled: true}
}

func TestSuppressed(t *testing.T) {
	cases := []struct {
		name      string
		shown     int64
		annoyance float64
		want      bool
	}{
		{"fresh surface", 0, 1.0, false},
		{"under exposure threshold", 4, 1.0, false},
		{"at exposure threshold with max annoyance", 5, 1.0, true},
		{"annoyance exactly at limit", 5, 0.7, false},
		{"annoyance above limit", 5, 0.71, true},
		{"heavily shown but liked", 100, 0.1, false},
		{"cap keeps suppression reachable", 5, 0.95, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Suppressed(tc.shown, tc.annoyance))
		})
	}
}

func TestRankOrdersByScoreThenKey(t *testing.T) {
	candidates := []db.CatalogEntry{
		entry("breath_box", "card"),
		entry("walk_outside", "notification"),
		entry("body_scan", "card"),
	}
	prefs := map[string]db.SurfacePreference{
		"card":         pref("card", 3, 0.0, 0.4),
		"notification": pref("notification", 3, 0.0, 0.9),
	}

	ranked := Rank(candidates, prefs)
	require.Len(t, ranked, 3)

	assert.Equal(t, "walk_outside", ranked[0].Entry.InterventionKey)
	assert.InDelta(t, 1.9, ranked[0].FinalScore, 1e-9)

	// Same surface, same score: lexicographic key order breaks the tie.
	assert.Equal(t, "body_scan", ranked[1].Entry.InterventionKey)
	assert.Equal(t, "breath_box", ranked[2].Entry.InterventionKey)
}

func TestRankDropsSuppressedSurfaces(t *testing.T) {
	candidates := []db.CatalogEntry{
		entry("breath_box", "notification"),
		entry("body_scan", "card"),
	}
	prefs := map[string]db.SurfacePreference{
		"notification": pref("notification", 10, 0.95, 0.8),
	}

	ranked := Rank(candidates, prefs)
	require.Len(t, ranked, 1)
	assert.Equal(t, "body_scan", ranked[0].Entry.InterventionKey)
	// No preference row means a neutral score.
	assert.InDelta(t, 1.0, ranked[0].FinalScore, 1e-9)
}

func TestRankNoPreferenceHistory(t *testing.T) {
	ranked := Rank([]db.CatalogEntry{entry("breath_box", "card")}, map[string]db.SurfacePreference{})
	require.Len(t, ranked, 1)
	assert.InDelta(t, 1.0, ranked[0].FinalScore, 1e-9)
	assert.Zero(t, ranked[0].PreferenceScore)
}
