package stability_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voicesentinel/voicesentinel/internal/models"
	"github.com/voicesentinel/voicesentinel/internal/stability"
)

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		current     string
		remembered  string
		wantScore   float64
		wantChanged bool
		exact       bool
	}{
		{name: "first-time caller is neutral", current: "Ravi Kumar", remembered: "", wantScore: 1, wantChanged: false, exact: true},
		{name: "missing current claim is ambiguous", current: "", remembered: "Ravi Kumar", wantScore: 0.5, wantChanged: false, exact: true},
		{name: "identical names", current: "Ravi Kumar", remembered: "Ravi Kumar", wantScore: 1, wantChanged: false, exact: true},
		{name: "case and whitespace normalized", current: "  ravi KUMAR ", remembered: "Ravi Kumar", wantScore: 1, wantChanged: false, exact: true},
		{name: "minor transcription drift stays stable", current: "Ravi Kumaar", remembered: "Ravi Kumar", wantScore: 0.8, wantChanged: false},
		{name: "different person flags a change", current: "Suresh Patel", remembered: "Ravi Kumar", wantScore: 0.5, wantChanged: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			score, changed := stability.Name(tt.current, tt.remembered)
			if tt.exact {
				require.InDelta(t, tt.wantScore, score, 1e-9)
			} else if tt.wantChanged {
				require.Less(t, score, 0.8)
			} else {
				require.GreaterOrEqual(t, score, 0.8)
			}
			require.Equal(t, tt.wantChanged, changed)
			require.GreaterOrEqual(t, score, 0.0)
			require.LessOrEqual(t, score, 1.0)
		})
	}
}

func TestDOB(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		current        string
		remembered     string
		wantScore      float64
		wantMismatches int
	}{
		{name: "first-time caller is neutral", current: "15 July 2005", remembered: "", wantScore: 1, wantMismatches: 0},
		{name: "missing current claim is ambiguous", current: "", remembered: "15 July 2005", wantScore: 0.5, wantMismatches: 0},
		{name: "exact match", current: "15 July 2005", remembered: "15 July 2005", wantScore: 1, wantMismatches: 0},
		{name: "no fuzziness for dates", current: "16 July 2005", remembered: "15 July 2005", wantScore: 0, wantMismatches: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			score, mismatches := stability.DOB(tt.current, tt.remembered)
			require.InDelta(t, tt.wantScore, score, 1e-9)
			require.Equal(t, tt.wantMismatches, mismatches)
		})
	}
}

func TestTrustTrend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current float64
		history []float64
		want    models.Trend
	}{
		{name: "no history is stable", current: 80, history: nil, want: models.TrendStable},
		{name: "within dead band", current: 52, history: []float64{50, 50, 50}, want: models.TrendStable},
		{name: "rising", current: 60, history: []float64{50, 50, 50}, want: models.TrendIncreasing},
		{name: "falling", current: 40, history: []float64{50, 50, 50}, want: models.TrendDecreasing},
		{name: "only last three considered", current: 40, history: []float64{10, 10, 50, 50, 50}, want: models.TrendDecreasing},
		{name: "short history", current: 70, history: []float64{55}, want: models.TrendIncreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, stability.TrustTrend(tt.current, tt.history))
		})
	}
}
