package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketStress(t *testing.T) {
	cases := []struct {
		name   string
		stress float64
		want   string
	}{
		{"zero", 0.0, LevelLow},
		{"just below medium", 0.2999, LevelLow},
		{"medium boundary is inclusive", 0.3, LevelMedium},
		{"mid range", 0.5, LevelMedium},
		{"high boundary is exclusive", 0.7, LevelMedium},
		{"just above high boundary", 0.7001, LevelHigh},
		{"max", 1.0, LevelHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BucketStress(tc.stress))
		})
	}
}
