// Package collaborators defines the contracts of the external analysis
// services the verification core depends on, together with their production
// clients. Every collaborator may fail; the orchestrator degrades to
// risk-neutral defaults instead of failing the session.
package collaborators

import (
	"context"

	"github.com/voicesentinel/voicesentinel/internal/errors"
)

// ErrUnavailable is returned by collaborators that are not configured. The
// orchestrator treats it like any other collaborator failure.
var ErrUnavailable = errors.NewSentinel("collaborator not configured")

// Transcriber converts accumulated call audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// SyntheticVoiceScorer estimates the probability in [0, 1] that the audio was
// machine-generated.
type SyntheticVoiceScorer interface {
	Score(ctx context.Context, audioPath string) (float64, error)
}

// Biometric extracts speaker embeddings and compares them. Compare returns a
// similarity in [0, 1].
type Biometric interface {
	ExtractEmbedding(ctx context.Context, audioPath string) ([]float64, error)
	Compare(a, b []float64) float64
}
