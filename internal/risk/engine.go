// Package risk fuses the heterogeneous verification signals of a call into a
// single fraud-risk verdict with a bounded, explainable history adjustment.
package risk

import (
	"fmt"

	"github.com/voicesentinel/voicesentinel/internal/models"
)

// Weights for each signal's contribution to the raw score. MaxScore is the
// sum of every signal's maximum and must be recomputed if a weight changes.
const (
	credentialWeight    = 1.0
	identityWeight      = 2.0
	syntheticWeight     = 35.0
	biometricWeight     = 15.0
	maxIntentWeight     = 4.0
	countryWeight       = 2.0
	nameStabilityWeight = 2.0
	dobStabilityWeight  = 3.0
	trustTrendWeight    = 1.0
	hesitationWeight    = 2.0

	MaxScore = credentialWeight + identityWeight + syntheticWeight + biometricWeight +
		maxIntentWeight + countryWeight + nameStabilityWeight + dobStabilityWeight +
		trustTrendWeight + hesitationWeight
)

// Percentage thresholds for the base categorical level.
const (
	highThreshold   = 60.0
	mediumThreshold = 40.0
)

// intentWeights maps each intent category to its fixed contribution. Unknown
// categories default to defaultIntentWeight.
var intentWeights = map[string]float64{
	"REFUND":           1.0,
	"SIM_SWAP":         2.0,
	"KYC_UPDATE":       3.0,
	"ACCOUNT_RECOVERY": 4.0,
}

const defaultIntentWeight = 2.0

// Compute fuses the signals into a RiskResult. The historyModifier shifts the
// base categorical level by at most one step in either direction; it never
// changes the percentage.
func Compute(signals models.RiskSignals, historyModifier int) models.RiskResult {
	var (
		raw       float64
		breakdown = make(map[string]float64)
		reasons   []string
	)

	credential := 0.0
	if signals.CredentialFailed {
		credential = credentialWeight
	}
	raw += credential
	breakdown["credential"] = credential

	identity := 0.0
	if signals.IdentityMismatches > 0 {
		identity = identityWeight
	}
	raw += identity
	breakdown["identity"] = identity

	synthetic := clamp01(signals.SyntheticVoiceProb) * syntheticWeight
	raw += synthetic
	breakdown["synthetic_voice"] = synthetic

	biometric := (1 - clamp01(signals.VoiceMatchScore)) * biometricWeight
	raw += biometric
	breakdown["biometric"] = biometric

	intent, ok := intentWeights[signals.Intent]
	if !ok {
		intent = defaultIntentWeight
	}
	raw += intent
	breakdown["intent"] = intent

	country := 0.0
	if signals.CountryMismatch {
		country = countryWeight
	}
	raw += country
	breakdown["country"] = country

	nameStability := (1 - clamp01(signals.NameStability)) * nameStabilityWeight
	raw += nameStability
	breakdown["name_stability"] = nameStability

	dobStability := (1 - clamp01(signals.DOBStability)) * dobStabilityWeight
	raw += dobStability
	breakdown["dob_stability"] = dobStability

	trend := 0.0
	if signals.TrustTrend == models.TrendDecreasing {
		trend = trustTrendWeight
	}
	raw += trend
	breakdown["trust_trend"] = trend

	hesitation := clamp01(signals.HesitationScore) * hesitationWeight
	raw += hesitation
	breakdown["hesitation"] = hesitation

	percentage := raw / MaxScore * 100
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	baseLevel := models.RiskLow
	switch {
	case percentage >= highThreshold:
		baseLevel = models.RiskHigh
	case percentage >= mediumThreshold:
		baseLevel = models.RiskMedium
	}

	// History can never move the verdict by more than one category.
	shift := historyModifier
	if shift > 1 {
		shift = 1
	}
	if shift < -1 {
		shift = -1
	}
	level := models.LevelAt(baseLevel.Index() + shift)

	if level.Index() > baseLevel.Index() {
		reasons = append(reasons, fmt.Sprintf("history raised risk level from %s to %s", baseLevel, level))
	} else if level.Index() < baseLevel.Index() {
		reasons = append(reasons, fmt.Sprintf("history lowered risk level from %s to %s", baseLevel, level))
	}

	return models.RiskResult{
		RawScore:        raw,
		Percentage:      percentage,
		Level:           level,
		Breakdown:       breakdown,
		HistoryModifier: shift,
		Reasons:         reasons,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
