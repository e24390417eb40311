package orchestrator

import (
	"context"
	"log/slog"
	"os"

	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/session"
)

// runAnalysis runs one full pass over the session's accumulated audio:
// transcription and claim extraction, synthetic-voice scoring and biometric
// comparison. The caller must hold the session's analysis slot.
//
// Each collaborator is independent. A failure is logged and leaves the
// corresponding signal at its risk-neutral value; it never fails the pass.
func (o *Orchestrator) runAnalysis(ctx context.Context, sess *session.Session) {
	sess.Mu.Lock()
	audioPath := sess.AccumulatedAudio
	phoneNumber := sess.PhoneNumber
	sess.Mu.Unlock()

	if _, err := os.Stat(audioPath); err != nil {
		o.logger.Debug("no accumulated audio yet, skipping analysis", slog.String("session_id", sess.ID))
		return
	}

	o.analyzeTranscript(ctx, sess, audioPath)
	o.analyzeSyntheticVoice(ctx, sess, audioPath)
	o.analyzeBiometrics(ctx, sess, audioPath, phoneNumber)
}

func (o *Orchestrator) analyzeTranscript(ctx context.Context, sess *session.Session, audioPath string) {
	transcript, err := o.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		o.logger.Warn("transcription failed, keeping previous claims",
			slog.String("session_id", sess.ID), errors.SlogError(err))
		return
	}

	extracted := o.extractor.Extract(transcript)
	sess.Mu.Lock()
	sess.Transcript = transcript
	sess.Claims.Merge(extracted)
	sess.Mu.Unlock()
}

func (o *Orchestrator) analyzeSyntheticVoice(ctx context.Context, sess *session.Session, audioPath string) {
	probability, err := o.voiceScorer.Score(ctx, audioPath)
	if err != nil {
		o.logger.Warn("synthetic voice scoring failed, keeping previous probability",
			slog.String("session_id", sess.ID), errors.SlogError(err))
		return
	}

	sess.Mu.Lock()
	sess.SyntheticProb = probability
	sess.Mu.Unlock()
}

func (o *Orchestrator) analyzeBiometrics(ctx context.Context, sess *session.Session, audioPath, phoneNumber string) {
	embedding, err := o.biometric.ExtractEmbedding(ctx, audioPath)
	if err != nil {
		o.logger.Warn("voice embedding extraction failed",
			slog.String("session_id", sess.ID), errors.SlogError(err))
		sess.Mu.Lock()
		if !sess.VoiceMatchMeasured {
			// Without a single successful comparison the signal stays neutral.
			sess.VoiceMatchScore = 1.0
		}
		sess.Mu.Unlock()
		return
	}

	baseline, err := o.baselines.Get(ctx, phoneNumber)
	if err != nil {
		o.logger.Warn("voice baseline lookup failed",
			slog.String("phone_number", phoneNumber), errors.SlogError(err))
		baseline = nil
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	if baseline == nil {
		// First contact: nothing to compare against. The embedding is enrolled
		// as the baseline once the call completes.
		sess.VoiceMatchScore = 1.0
		sess.PendingBaseline = embedding
		return
	}
	sess.VoiceMatchScore = o.biometric.Compare(embedding, baseline)
	sess.VoiceMatchMeasured = true
}
