package collaborators_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voicesentinel/voicesentinel/internal/collaborators"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF fake audio"), 0o600))
	return path
}

func TestHTTPSyntheticVoiceScorer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/synthetic-voice/score", r.URL.Path)
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		_ = json.NewEncoder(w).Encode(map[string]float64{"probability": 0.73})
	}))
	t.Cleanup(server.Close)

	scorer := collaborators.NewSyntheticVoiceScorer(server.URL)
	probability, err := scorer.Score(context.Background(), writeTempAudio(t))
	require.NoError(t, err)
	require.InDelta(t, 0.73, probability, 1e-9)
}

func TestHTTPSyntheticVoiceScorerRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]float64{"probability": 1.7})
	}))
	t.Cleanup(server.Close)

	scorer := collaborators.NewSyntheticVoiceScorer(server.URL)
	_, err := scorer.Score(context.Background(), writeTempAudio(t))
	require.Error(t, err)
}

func TestHTTPBiometricExtractEmbedding(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/speaker/embed", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string][]float64{"embedding": {0.6, 0.8}})
	}))
	t.Cleanup(server.Close)

	biometric := collaborators.NewBiometric(server.URL)
	embedding, err := biometric.ExtractEmbedding(context.Background(), writeTempAudio(t))
	require.NoError(t, err)
	require.Equal(t, []float64{0.6, 0.8}, embedding)
}

func TestDisabledCollaborators(t *testing.T) {
	t.Parallel()

	_, err := collaborators.NewSyntheticVoiceScorer("").Score(context.Background(), "x.wav")
	require.ErrorIs(t, err, collaborators.ErrUnavailable)

	_, err = collaborators.NewBiometric("").ExtractEmbedding(context.Background(), "x.wav")
	require.ErrorIs(t, err, collaborators.ErrUnavailable)

	_, err = collaborators.NewWhisperTranscriber("").Transcribe(context.Background(), "x.wav")
	require.ErrorIs(t, err, collaborators.ErrUnavailable)
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite clips to zero", a: []float64{1, 0}, b: []float64{-1, 0}, want: 0},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1}, want: 0},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.InDelta(t, tt.want, collaborators.CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
