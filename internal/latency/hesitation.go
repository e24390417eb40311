// Package latency scores the response delay between a prompt finishing and
// the caller starting to speak. Unnaturally fast answers suggest scripted
// playback; long pauses suggest a coached or distracted caller.
package latency

import (
	"time"

	"github.com/voicesentinel/voicesentinel/internal/models"
)

const (
	tooFastThreshold  = 200 * time.Millisecond
	slowThreshold     = 3 * time.Second
	verySlowThreshold = 5 * time.Second

	tooFastScore  = 0.4
	slowScore     = 0.3
	verySlowScore = 0.7
)

// HesitationRisk bands the delay between the prompt's expected end time and
// the arrival of the first response chunk.
func HesitationRisk(promptEnd, firstResponse time.Time) (models.RiskLevel, float64, time.Duration) {
	hesitation := firstResponse.Sub(promptEnd)

	switch {
	case hesitation < tooFastThreshold:
		// Answering before the prompt finished reads like scripted playback.
		return models.RiskMedium, tooFastScore, hesitation
	case hesitation > verySlowThreshold:
		return models.RiskHigh, verySlowScore, hesitation
	case hesitation > slowThreshold:
		return models.RiskMedium, slowScore, hesitation
	default:
		return models.RiskLow, 0, hesitation
	}
}

// Average returns the mean hesitation score across recorded steps, 0 when
// nothing was recorded.
func Average(measurements []models.Hesitation) float64 {
	if len(measurements) == 0 {
		return 0
	}
	var sum float64
	for _, m := range measurements {
		sum += m.Score
	}
	return sum / float64(len(measurements))
}
