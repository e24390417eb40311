package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/voicesentinel/voicesentinel/internal/authgraph"
	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/history"
	"github.com/voicesentinel/voicesentinel/internal/latency"
	"github.com/voicesentinel/voicesentinel/internal/models"
	"github.com/voicesentinel/voicesentinel/internal/risk"
	"github.com/voicesentinel/voicesentinel/internal/session"
	"github.com/voicesentinel/voicesentinel/internal/stability"
)

// historyDepth is how many prior calls the history analyzer considers.
const historyDepth = 5

// provisionalTrustScore stands in for the call's own trust score while the
// trend over prior calls is judged, since the real score only exists after
// fusion.
const provisionalTrustScore = 50.0

// complete runs the terminal sequence for a session: a final synchronous
// analysis pass over all audio, risk fusion with cross-call signals, the
// authorization check, persistence and session eviction. Persistence failures
// degrade to a flagged in-memory report; the caller still gets a verdict.
func (o *Orchestrator) complete(ctx context.Context, sess *session.Session) (*ChunkResult, error) {
	// The terminal pass must see every chunk, so it waits out any background
	// pass instead of skipping.
	sess.LockAnalysis()
	o.runAnalysis(ctx, sess)
	sess.ReleaseAnalysis()

	defer o.cleanupAudio(sess)

	sess.Mu.Lock()
	callID := sess.ID
	phoneNumber := sess.PhoneNumber
	accountID := sess.AccountID
	countryCode := sess.CountryCode
	countryMismatch := sess.CountryMismatch
	callerClaims := sess.Claims
	transcript := sess.Transcript
	syntheticProb := sess.SyntheticProb
	voiceMatch := sess.VoiceMatchScore
	pendingBaseline := sess.PendingBaseline
	hesitations := make([]models.Hesitation, len(sess.Hesitations))
	copy(hesitations, sess.Hesitations)
	sess.Mu.Unlock()

	result, otpCorrect, mismatches := o.fuse(ctx, phoneNumber, accountID, countryMismatch, callerClaims, syntheticProb, voiceMatch, hesitations)

	violation := o.checkAuthorization(ctx, &result, transcript, phoneNumber, accountID)
	if result.Level == models.RiskLow && !violation && accountID != "" {
		if err := o.memories.LinkAccount(ctx, phoneNumber, accountID); err != nil {
			o.logger.Warn("could not link account", slog.String("phone_number", phoneNumber), errors.SlogError(err))
		}
	}

	persistFailed := o.persistOutcome(ctx, persistInput{
		sess:            sess,
		result:          &result,
		callerClaims:    callerClaims,
		pendingBaseline: pendingBaseline,
		otpVerified:     otpCorrect,
		mismatches:      mismatches,
		syntheticProb:   syntheticProb,
		voiceMatch:      voiceMatch,
	})

	sess.Mu.Lock()
	sess.Completed = true
	sess.Report = &result
	sess.PersistFailed = persistFailed
	sess.Mu.Unlock()
	o.sessions.Delete(sess.ID)

	o.logger.Info("call completed",
		slog.String("session_id", callID),
		slog.String("phone_number", phoneNumber),
		slog.String("country_code", countryCode),
		slog.String("risk_level", string(result.Level)),
		slog.Float64("risk_percentage", result.Percentage),
		slog.Bool("persist_failed", persistFailed))

	return &ChunkResult{Status: StatusCompleted, Report: &result, PersistFailed: persistFailed}, nil
}

// fuse gathers every cross-call signal and runs the risk engine. Signal
// sources that fail are logged and fall back to their neutral values.
func (o *Orchestrator) fuse(
	ctx context.Context,
	phoneNumber, accountID string,
	countryMismatch bool,
	callerClaims models.Claims,
	syntheticProb, voiceMatch float64,
	hesitations []models.Hesitation,
) (result models.RiskResult, otpCorrect bool, mismatches int) {
	priorCalls, err := o.records.ListRecent(ctx, phoneNumber, historyDepth)
	if err != nil {
		o.logger.Warn("could not read verification history", slog.String("phone_number", phoneNumber), errors.SlogError(err))
		priorCalls = nil
	}
	modifier, explanations := history.Analyze(priorCalls)

	memory, err := o.memories.Get(ctx, phoneNumber)
	if err != nil {
		o.logger.Warn("could not read cross-call memory", slog.String("phone_number", phoneNumber), errors.SlogError(err))
		memory = nil
	}
	var rememberedName, rememberedDOB string
	var trustScores []float64
	if memory != nil {
		rememberedName = memory.LastVerifiedName
		rememberedDOB = memory.LastVerifiedDOB
		trustScores = memory.TrustScores
	}

	nameStability, nameChanged := stability.Name(callerClaims.Name, rememberedName)
	dobStability, _ := stability.DOB(callerClaims.DOB, rememberedDOB)
	trend := stability.TrustTrend(provisionalTrustScore, trustScores)

	otpCorrect, mismatches, err = o.validator.Validate(ctx, accountID, callerClaims)
	if err != nil {
		o.logger.Warn("claim validation failed", slog.String("account_id", accountID), errors.SlogError(err))
		otpCorrect, mismatches = false, 0
	}

	result = risk.Compute(models.RiskSignals{
		CredentialFailed:   !otpCorrect,
		IdentityMismatches: mismatches,
		SyntheticVoiceProb: syntheticProb,
		VoiceMatchScore:    voiceMatch,
		Intent:             callerClaims.Intent,
		CountryMismatch:    countryMismatch,
		NameStability:      nameStability,
		DOBStability:       dobStability,
		TrustTrend:         trend,
		HesitationScore:    latency.Average(hesitations),
	}, modifier)

	result.Reasons = append(result.Reasons, explanations...)
	if nameChanged {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("claimed name %q differs from last verified %q", callerClaims.Name, rememberedName))
	}
	return result, otpCorrect, mismatches
}

// checkAuthorization scans the transcript for references to accounts the
// phone number is not linked to and escalates the verdict on a violation.
func (o *Orchestrator) checkAuthorization(ctx context.Context, result *models.RiskResult, transcript, phoneNumber, accountID string) bool {
	target := o.accountRefs.TargetAccount(transcript, phoneNumber, accountID)
	if target == "" {
		return false
	}

	linked, err := o.memories.LinkedAccounts(ctx, phoneNumber)
	if err != nil {
		o.logger.Warn("could not read linked accounts", slog.String("phone_number", phoneNumber), errors.SlogError(err))
		linked = nil
	}

	if !authgraph.Apply(result, target, linked) {
		return false
	}

	o.logger.Warn("unauthorized account reference",
		slog.String("phone_number", phoneNumber),
		slog.String("target_account", target))
	if err = o.memories.PenalizeTrust(ctx, phoneNumber, authgraph.ViolationPenalty, o.now()); err != nil {
		o.logger.Error("could not persist trust penalty", slog.String("phone_number", phoneNumber), errors.SlogError(err))
	}
	return true
}

// persistInput carries everything the outcome writes need.
type persistInput struct {
	sess            *session.Session
	result          *models.RiskResult
	callerClaims    models.Claims
	pendingBaseline []float64
	otpVerified     bool
	mismatches      int
	syntheticProb   float64
	voiceMatch      float64
}

// persistOutcome writes the verification record, enrolls a pending voice
// baseline and updates cross-call memory. It reports whether any write failed.
func (o *Orchestrator) persistOutcome(ctx context.Context, in persistInput) bool {
	now := o.now()
	phoneNumber := in.sess.PhoneNumber

	status := models.StatusFailed
	if in.result.Level == models.RiskLow {
		status = models.StatusVerified
	}

	linked, err := o.memories.LinkedAccounts(ctx, phoneNumber)
	if err != nil {
		o.logger.Warn("could not read linked accounts for record", slog.String("phone_number", phoneNumber), errors.SlogError(err))
		linked = nil
	}

	record := models.VerificationRecord{
		CallID:             in.sess.ID,
		PhoneNumber:        phoneNumber,
		CountryCode:        in.sess.CountryCode,
		OTPVerified:        in.otpVerified,
		IdentityMismatches: in.mismatches,
		SyntheticVoiceProb: in.syntheticProb,
		VoiceMatchScore:    in.voiceMatch,
		Intent:             in.callerClaims.Intent,
		RiskPercentage:     in.result.Percentage,
		RiskLevel:          in.result.Level,
		RelatedAccounts:    linked,
		Status:             status,
		CreatedAt:          now,
	}

	persistFailed := false
	if err = o.records.Insert(ctx, &record); err != nil {
		o.logger.Error("could not persist verification record",
			slog.String("session_id", in.sess.ID), errors.SlogError(err))
		persistFailed = true
	}

	if in.pendingBaseline != nil {
		if err = o.baselines.Save(ctx, phoneNumber, in.pendingBaseline, now); err != nil {
			o.logger.Error("could not enroll voice baseline",
				slog.String("phone_number", phoneNumber), errors.SlogError(err))
			persistFailed = true
		}
	}

	trustScore := 100 - in.result.Percentage
	if err = o.memories.Record(ctx, phoneNumber, in.callerClaims.Name, in.callerClaims.DOB, trustScore, now); err != nil {
		o.logger.Error("could not update cross-call memory",
			slog.String("phone_number", phoneNumber), errors.SlogError(err))
		persistFailed = true
	}

	return persistFailed
}

// cleanupAudio removes the session's temporary chunk files and the merged
// recording. The durable audio reference on the record points at archived
// storage, not these temp files.
func (o *Orchestrator) cleanupAudio(sess *session.Session) {
	sess.Mu.Lock()
	paths := make([]string, 0, len(sess.Chunks)+1)
	paths = append(paths, sess.Chunks...)
	paths = append(paths, sess.AccumulatedAudio)
	sess.Mu.Unlock()

	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("could not remove temp audio", slog.String("path", path), errors.SlogError(err))
		}
	}
}
