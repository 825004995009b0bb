// Package selector implements the intervention selection stage: stress
// bucketing, preference-scored candidate ranking with surface suppression,
// the onboarding gate, the per-user rate limit, and best-effort push
// delivery.
package selector

// Bucketing thresholds for the stress score.
const (
	stressHighThreshold   = 0.7
	stressMediumThreshold = 0.3
)

// Stress levels produced by BucketStress.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// BucketStress maps a stress score in [0,1] to a level. The high threshold
// is exclusive and the medium threshold inclusive, so exactly 0.7 buckets as
// medium and exactly 0.3 as medium.
func BucketStress(stress float64) string {
	switch {
	case stress > stressHighThreshold:
		return LevelHigh
	case stress >= stressMediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
