package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyIsStableAcrossZones(t *testing.T) {
	utc := time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))

	assert.Equal(t, Key("u1", utc), Key("u1", est))
}

func TestKeyDistinguishesUsersAndTimes(t *testing.T) {
	at := time.Date(2026, 8, 20, 7, 30, 0, 0, time.UTC)

	assert.NotEqual(t, Key("u1", at), Key("u2", at))
	assert.NotEqual(t, Key("u1", at), Key("u1", at.Add(time.Second)))
}

func TestKeySanitizesIllegalCharacters(t *testing.T) {
	at := time.Date(2026, 8, 20, 7, 30, 0, 500_000_000, time.UTC)
	key := Key("user@example.com", at)

	assert.NotContains(t, key, "@")
	assert.NotContains(t, key, ":")
	// The user/time separator is the only dot in the key.
	assert.Equal(t, 1, countDots(key))
}

func countDots(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			n++
		}
	}
	return n
}
