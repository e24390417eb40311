package history_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/voicesentinel/voicesentinel/internal/history"
	"github.com/voicesentinel/voicesentinel/internal/models"
)

// callsAt builds records most-recent-first with the given intents and levels,
// spaced spacing apart starting from now.
func callsAt(now time.Time, spacing time.Duration, intents []string, levels []models.RiskLevel) []models.VerificationRecord {
	records := make([]models.VerificationRecord, len(intents))
	for i := range intents {
		records[i] = models.VerificationRecord{
			Intent:    intents[i],
			RiskLevel: levels[i],
			CreatedAt: now.Add(-time.Duration(i) * spacing),
		}
	}
	return records
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		records      []models.VerificationRecord
		wantModifier int
		wantReason   string
	}{
		{
			name:         "no history",
			records:      nil,
			wantModifier: 0,
			wantReason:   "no prior history",
		},
		{
			name: "normal history",
			records: callsAt(now, 24*time.Hour,
				[]string{"REFUND", "KYC_UPDATE"},
				[]models.RiskLevel{models.RiskLow, models.RiskMedium}),
			wantModifier: 0,
			wantReason:   "normal history",
		},
		{
			name: "repeated intent",
			records: callsAt(now, 24*time.Hour,
				[]string{"SIM_SWAP", "SIM_SWAP", "SIM_SWAP"},
				[]models.RiskLevel{models.RiskLow, models.RiskLow, models.RiskMedium}),
			wantModifier: 1,
			wantReason:   "repeated intent",
		},
		{
			name: "last call high risk",
			records: callsAt(now, 24*time.Hour,
				[]string{"REFUND"},
				[]models.RiskLevel{models.RiskHigh}),
			wantModifier: 1,
			wantReason:   "HIGH risk",
		},
		{
			name: "high velocity",
			records: callsAt(now, 10*time.Minute,
				[]string{"REFUND", "KYC_UPDATE", "SIM_SWAP"},
				[]models.RiskLevel{models.RiskLow, models.RiskLow, models.RiskLow}),
			wantModifier: 1,
			wantReason:   "velocity",
		},
		{
			name: "five low calls earn redemption",
			records: callsAt(now, 24*time.Hour,
				[]string{"REFUND", "KYC_UPDATE", "REFUND", "REFUND", "KYC_UPDATE"},
				[]models.RiskLevel{models.RiskLow, models.RiskLow, models.RiskLow, models.RiskLow, models.RiskLow}),
			wantModifier: -1,
			wantReason:   "consistent LOW risk",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			modifier, explanations := history.Analyze(tt.records)
			require.Equal(t, tt.wantModifier, modifier)
			require.NotEmpty(t, explanations)
			found := false
			for _, explanation := range explanations {
				if strings.Contains(explanation, tt.wantReason) {
					found = true
				}
			}
			require.True(t, found, "no explanation mentioning %q in %v", tt.wantReason, explanations)
		})
	}
}

func TestAnalyzeClampsStackedRules(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

	// Three SIM_SWAP calls within an hour, most recent HIGH: three separate
	// rules fire but the modifier stays a single-step nudge.
	records := callsAt(now, 5*time.Minute,
		[]string{"SIM_SWAP", "SIM_SWAP", "SIM_SWAP"},
		[]models.RiskLevel{models.RiskHigh, models.RiskMedium, models.RiskMedium})

	modifier, explanations := history.Analyze(records)
	require.Equal(t, 1, modifier)
	require.Len(t, explanations, 3)
}
