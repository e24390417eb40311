// Package stability compares freshly claimed identity fields against the
// cross-call memory of a phone number.
package stability

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/voicesentinel/voicesentinel/internal/models"
)

// changedThreshold is the similarity below which a name is considered changed.
const changedThreshold = 0.8

// ambiguousScore is returned when the current claim is missing: mildly
// penalized but not flagged as a change.
const ambiguousScore = 0.5

// trendDeadBand is how far the current trust score must deviate from the
// recent mean before the trend leaves "stable".
const trendDeadBand = 5.0

// Name scores the similarity between the currently claimed name and the
// remembered one. A first-time caller (no remembered name) is neutral, never
// penalized. A missing current claim is ambiguous: mildly penalized, not
// flagged.
func Name(current, remembered string) (score float64, changed bool) {
	if remembered == "" {
		return 1, false
	}
	if current == "" {
		return ambiguousScore, false
	}

	a := strings.ToLower(strings.TrimSpace(current))
	b := strings.ToLower(strings.TrimSpace(remembered))
	score = similarity(a, b)
	return score, score < changedThreshold
}

// DOB scores date-of-birth stability. Dates are hard facts, so the comparison
// is exact: anything but an identical claim counts as a mismatch.
func DOB(current, remembered string) (score float64, mismatches int) {
	if remembered == "" {
		return 1, 0
	}
	if current == "" {
		return ambiguousScore, 0
	}
	if strings.TrimSpace(current) == strings.TrimSpace(remembered) {
		return 1, 0
	}
	return 0, 1
}

// TrustTrend compares the current trust score against the mean of the last
// three remembered trust scores. No history yields a stable trend.
func TrustTrend(currentScore float64, trustScores []float64) models.Trend {
	if len(trustScores) == 0 {
		return models.TrendStable
	}

	recent := trustScores
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var sum float64
	for _, score := range recent {
		sum += score
	}
	mean := sum / float64(len(recent))

	switch {
	case currentScore > mean+trendDeadBand:
		return models.TrendIncreasing
	case currentScore < mean-trendDeadBand:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// similarity is a normalized edit-distance ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	score := 1 - float64(distance)/float64(longest)
	if score < 0 {
		score = 0
	}
	return score
}
