// Package orchestrator drives the verification dialogue for a call: it
// advances scripted steps, accepts audio chunks, coordinates background
// analysis and produces the terminal fraud-risk verdict.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/voicesentinel/voicesentinel/internal/audio"
	"github.com/voicesentinel/voicesentinel/internal/authgraph"
	"github.com/voicesentinel/voicesentinel/internal/claims"
	"github.com/voicesentinel/voicesentinel/internal/collaborators"
	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/ivr"
	"github.com/voicesentinel/voicesentinel/internal/latency"
	"github.com/voicesentinel/voicesentinel/internal/models"
	"github.com/voicesentinel/voicesentinel/internal/repositories"
	"github.com/voicesentinel/voicesentinel/internal/session"
)

var (
	ErrSessionCompleted = errors.NewSentinel("session already completed")
	ErrPhoneRequired    = errors.NewSentinel("phone number required")
)

// Options wires the orchestrator's collaborators and stores.
type Options struct {
	Logger      *slog.Logger
	Sessions    *session.Store
	Records     *repositories.VerificationRepository
	Memories    *repositories.MemoryRepository
	Baselines   *repositories.BaselineRepository
	Profiles    claims.ProfileSource
	Transcriber collaborators.Transcriber
	VoiceScorer collaborators.SyntheticVoiceScorer
	Biometric   collaborators.Biometric
	Extractor   claims.Extractor
	AccountRefs authgraph.AccountRefExtractor
	AudioDir    string

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

type Orchestrator struct {
	logger      *slog.Logger
	sessions    *session.Store
	records     *repositories.VerificationRepository
	memories    *repositories.MemoryRepository
	baselines   *repositories.BaselineRepository
	profiles    claims.ProfileSource
	validator   *claims.Validator
	transcriber collaborators.Transcriber
	voiceScorer collaborators.SyntheticVoiceScorer
	biometric   collaborators.Biometric
	extractor   claims.Extractor
	accountRefs authgraph.AccountRefExtractor
	audioDir    string
	now         func() time.Time
}

func New(opts Options) *Orchestrator {
	if opts.Extractor == nil {
		opts.Extractor = claims.NewRegexpExtractor()
	}
	if opts.AccountRefs == nil {
		opts.AccountRefs = authgraph.NewDigitRunExtractor()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		logger:      opts.Logger.With("source", "Orchestrator"),
		sessions:    opts.Sessions,
		records:     opts.Records,
		memories:    opts.Memories,
		baselines:   opts.Baselines,
		profiles:    opts.Profiles,
		validator:   claims.NewValidator(opts.Profiles),
		transcriber: opts.Transcriber,
		voiceScorer: opts.VoiceScorer,
		biometric:   opts.Biometric,
		extractor:   opts.Extractor,
		accountRefs: opts.AccountRefs,
		audioDir:    opts.AudioDir,
		now:         opts.Now,
	}
}

// StartResult is returned when a call session is created.
type StartResult struct {
	SessionID string   `json:"session_id"`
	Step      ivr.Step `json:"step"`
}

// ChunkResult is returned for each submitted chunk: either the next prompt or
// the terminal report.
type ChunkResult struct {
	Status        string             `json:"status"`
	NextStep      *ivr.Step          `json:"next_step,omitempty"`
	Report        *models.RiskResult `json:"report,omitempty"`
	PersistFailed bool               `json:"persist_failed,omitempty"`
}

// Statuses reported by ChunkResult.
const (
	StatusContinued = "continued"
	StatusCompleted = "completed"
)

// StartCall creates a session in the first dialogue step and returns the
// first prompt. The claimed country is checked against the registered country
// of the claimed account when a profile exists.
func (o *Orchestrator) StartCall(ctx context.Context, phoneNumber, countryCode, accountID string) (*StartResult, error) {
	if phoneNumber == "" {
		return nil, ErrPhoneRequired
	}

	countryMismatch := false
	profile, err := o.profiles.Profile(ctx, accountID)
	if err != nil {
		// A failed lookup must not block the call; the mismatch signal stays
		// neutral.
		o.logger.Warn("caller profile lookup failed", slog.String("account_id", accountID), errors.SlogError(err))
	} else if profile != nil && countryCode != "" && profile.RegisteredCountry != "" {
		countryMismatch = profile.RegisteredCountry != countryCode
	}

	id := uuid.NewString()
	sess := &session.Session{
		ID:               id,
		PhoneNumber:      phoneNumber,
		AccountID:        accountID,
		CountryCode:      countryCode,
		CountryMismatch:  countryMismatch,
		StepStartedAt:    o.now(),
		AccumulatedAudio: filepath.Join(o.audioDir, fmt.Sprintf("temp_%s_full.wav", id)),
	}
	o.sessions.Put(sess)

	first, _ := ivr.Next(0)
	o.logger.Info("call started",
		slog.String("session_id", id),
		slog.String("phone_number", phoneNumber),
		slog.Bool("country_mismatch", countryMismatch))

	return &StartResult{SessionID: id, Step: first}, nil
}

// SubmitChunk accepts one audio chunk for the session's current step. If no
// analysis pass is in flight one is started in the background; otherwise the
// chunk is only accumulated and picked up by the next pass. Submitting the
// last step's chunk runs the completion sequence synchronously.
func (o *Orchestrator) SubmitChunk(ctx context.Context, sessionID string, chunk io.Reader) (*ChunkResult, error) {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "submit chunk", slog.String("session_id", sessionID))
	}

	sess.Mu.Lock()
	if sess.Completed {
		sess.Mu.Unlock()
		return nil, ErrSessionCompleted
	}

	step, ok := ivr.Next(sess.StepIndex)
	if !ok {
		sess.Mu.Unlock()
		return nil, ErrSessionCompleted
	}

	if len(sess.Chunks) == sess.StepFirstChunk {
		o.measureHesitation(sess, step)
	}

	chunkPath := filepath.Join(o.audioDir, fmt.Sprintf("temp_%s_%d.wav", sess.ID, len(sess.Chunks)))
	if err = saveChunk(chunkPath, chunk); err != nil {
		// A chunk that cannot be stored is treated like a corrupt chunk:
		// skipped, never fatal to the session.
		o.logger.Warn("could not save audio chunk", slog.String("session_id", sess.ID), errors.SlogError(err))
	} else {
		sess.Chunks = append(sess.Chunks, chunkPath)
		if err = audio.Merge(o.logger, sess.AccumulatedAudio, sess.Chunks); err != nil {
			o.logger.Warn("could not merge session audio", slog.String("session_id", sess.ID), errors.SlogError(err))
		}
	}

	o.triggerAnalysis(ctx, sess)

	sess.StepIndex++
	sess.StepFirstChunk = len(sess.Chunks)
	next, more := ivr.Next(sess.StepIndex)
	if more {
		sess.StepStartedAt = o.now()
		sess.Mu.Unlock()
		return &ChunkResult{Status: StatusContinued, NextStep: &next}, nil
	}
	sess.Mu.Unlock()

	return o.complete(ctx, sess)
}

// Snapshot exposes the live state of a session for monitoring.
type Snapshot struct {
	SessionID          string              `json:"session_id"`
	PhoneNumber        string              `json:"phone_number"`
	StepIndex          int                 `json:"step_index"`
	Claims             models.Claims       `json:"claims"`
	Transcript         string              `json:"transcript"`
	SyntheticVoiceProb float64             `json:"synthetic_voice_probability"`
	VoiceMatchScore    float64             `json:"voice_match_score"`
	Hesitations        []models.Hesitation `json:"hesitations"`
}

func (o *Orchestrator) Snapshot(_ context.Context, sessionID string) (*Snapshot, error) {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot", slog.String("session_id", sessionID))
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	hesitations := make([]models.Hesitation, len(sess.Hesitations))
	copy(hesitations, sess.Hesitations)

	return &Snapshot{
		SessionID:          sess.ID,
		PhoneNumber:        sess.PhoneNumber,
		StepIndex:          sess.StepIndex,
		Claims:             sess.Claims,
		Transcript:         sess.Transcript,
		SyntheticVoiceProb: sess.SyntheticProb,
		VoiceMatchScore:    sess.VoiceMatchScore,
		Hesitations:        hesitations,
	}, nil
}

// measureHesitation records the response latency for the first chunk of a
// step. Callers hold sess.Mu.
func (o *Orchestrator) measureHesitation(sess *session.Session, step ivr.Step) {
	promptEnd := sess.StepStartedAt.Add(step.PromptDuration)
	level, score, hesitation := latency.HesitationRisk(promptEnd, o.now())
	sess.Hesitations = append(sess.Hesitations, models.Hesitation{
		Step:       step.ID,
		Seconds:    hesitation.Seconds(),
		Score:      score,
		Level:      level,
		MeasuredAt: o.now(),
	})
}

// triggerAnalysis starts a background analysis pass unless one is already in
// flight for this session; skipping is the at-most-one-concurrent-analysis
// policy, not an error. Callers hold sess.Mu.
func (o *Orchestrator) triggerAnalysis(ctx context.Context, sess *session.Session) {
	if !sess.TryAnalysis() {
		o.logger.Debug("analysis already in flight, chunk queued for next pass", slog.String("session_id", sess.ID))
		return
	}
	// The pass outlives the submitting request.
	analysisCtx := context.WithoutCancel(ctx)
	go func() {
		defer sess.ReleaseAnalysis()
		o.runAnalysis(analysisCtx, sess)
	}()
}

func saveChunk(path string, chunk io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create chunk file")
	}
	if _, err = io.Copy(file, chunk); err != nil {
		_ = file.Close()
		return errors.Wrap(err, "write chunk file")
	}
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "close chunk file")
	}
	return nil
}
