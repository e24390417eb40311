// Package history derives a bounded risk modifier from a caller's past
// verification outcomes.
package history

import (
	"fmt"
	"time"

	"github.com/voicesentinel/voicesentinel/internal/models"
)

const velocityWindow = time.Hour

// Analyze inspects past verification records, ordered most-recent-first, and
// returns a modifier in {-1, 0, +1} together with the explanations for it.
//
// Rules that raise the modifier: the three most recent calls sharing one
// intent, the most recent call ending HIGH, and three calls within one hour.
// Five consecutive LOW calls lower it. The sum is clamped to [-1, 1] because
// the risk engine treats the modifier as a single-step nudge.
func Analyze(records []models.VerificationRecord) (int, []string) {
	if len(records) == 0 {
		return 0, []string{"no prior history"}
	}

	var (
		modifier     int
		explanations []string
	)

	if len(records) >= 3 {
		intent := records[0].Intent
		if intent != "" && records[1].Intent == intent && records[2].Intent == intent {
			modifier++
			explanations = append(explanations, fmt.Sprintf("repeated intent across last 3 calls: %s", intent))
		}
	}

	if records[0].RiskLevel == models.RiskHigh {
		modifier++
		explanations = append(explanations, "most recent call was HIGH risk")
	}

	if len(records) >= 3 {
		if records[0].CreatedAt.Sub(records[2].CreatedAt) < velocityWindow {
			modifier++
			explanations = append(explanations, "high call velocity: 3 calls within 1 hour")
		}
	}

	if len(records) >= 5 {
		allLow := true
		for _, record := range records[:5] {
			if record.RiskLevel != models.RiskLow {
				allLow = false
				break
			}
		}
		if allLow {
			modifier--
			explanations = append(explanations, "consistent LOW risk across last 5 calls")
		}
	}

	if modifier > 1 {
		modifier = 1
	}
	if modifier < -1 {
		modifier = -1
	}

	if modifier == 0 && len(explanations) == 0 {
		explanations = append(explanations, "normal history")
	}

	return modifier, explanations
}
