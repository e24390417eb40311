// Package session holds the in-flight state of active verification calls.
package session

import (
	"sync"
	"time"

	"github.com/voicesentinel/voicesentinel/internal/models"
)

// Session is the mutable state of one verification call. The orchestrator
// owns it for its lifetime: created at call start, mutated by chunk
// submissions and analysis completions, evicted once the terminal report has
// been delivered.
//
// All mutable fields are guarded by Mu. The analysis mutex is separate so
// that a long-running analysis pass never blocks chunk submission.
type Session struct {
	ID              string
	PhoneNumber     string
	AccountID       string
	CountryCode     string
	CountryMismatch bool

	// Mu guards every field below.
	Mu sync.Mutex

	StepIndex        int
	StepStartedAt    time.Time
	StepFirstChunk   int
	Chunks           []string
	AccumulatedAudio string
	Claims           models.Claims
	Transcript       string
	SyntheticProb    float64
	VoiceMatchScore  float64
	// VoiceMatchMeasured distinguishes a genuine comparison result from the
	// zero value, so a later biometric failure does not clobber it.
	VoiceMatchMeasured bool
	PendingBaseline    []float64
	Hesitations        []models.Hesitation
	Completed          bool
	PersistFailed      bool
	Report             *models.RiskResult

	// analysisMu is the single-slot analysis guard: background passes take it
	// with TryAnalysis and give up when it is held; the terminal pass blocks
	// on LockAnalysis so it always observes the latest audio.
	analysisMu sync.Mutex
}

// TryAnalysis claims the analysis slot without blocking. It returns false when
// a pass is already in flight, which the caller treats as "skip", not error.
func (s *Session) TryAnalysis() bool {
	return s.analysisMu.TryLock()
}

// LockAnalysis claims the analysis slot, waiting for any in-flight background
// pass to finish first.
func (s *Session) LockAnalysis() {
	s.analysisMu.Lock()
}

// ReleaseAnalysis frees the analysis slot.
func (s *Session) ReleaseAnalysis() {
	s.analysisMu.Unlock()
}
