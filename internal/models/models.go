// Package models defines the domain types shared by the verification core:
// identity claims, risk signals and verdicts, persisted verification records
// and the per-phone-number cross-call memory.
package models

import "time"

// RiskLevel is the categorical fraud-risk verdict of a call.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// riskLevels is ordered from least to most severe so that history modifiers
// can shift the verdict by index.
var riskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// Index returns the position of the level on the LOW..HIGH scale.
func (l RiskLevel) Index() int {
	for i, level := range riskLevels {
		if level == l {
			return i
		}
	}
	return 0
}

// LevelAt returns the risk level for an index, clamped to the LOW..HIGH scale.
func LevelAt(index int) RiskLevel {
	if index < 0 {
		index = 0
	}
	if index >= len(riskLevels) {
		index = len(riskLevels) - 1
	}
	return riskLevels[index]
}

// Trend is the direction of a phone number's recent trust scores.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// Claims holds the identity information extracted from caller speech during a
// single call. Empty string means the claim has not been extracted yet.
type Claims struct {
	OTP    string `json:"otp"`
	Name   string `json:"name"`
	DOB    string `json:"dob"`
	Intent string `json:"intent"`
}

// Merge overlays the non-empty fields of other on top of c. Later analysis
// passes see more audio, so their extractions win over earlier ones.
func (c *Claims) Merge(other Claims) {
	if other.OTP != "" {
		c.OTP = other.OTP
	}
	if other.Name != "" {
		c.Name = other.Name
	}
	if other.DOB != "" {
		c.DOB = other.DOB
	}
	if other.Intent != "" {
		c.Intent = other.Intent
	}
}

// RiskSignals carries every input the risk fusion engine combines into a
// verdict.
type RiskSignals struct {
	CredentialFailed   bool      `json:"credential_failed"`
	IdentityMismatches int       `json:"identity_mismatches"`
	SyntheticVoiceProb float64   `json:"synthetic_voice_probability"`
	VoiceMatchScore    float64   `json:"voice_match_score"`
	Intent             string    `json:"intent"`
	CountryMismatch    bool      `json:"country_mismatch"`
	NameStability      float64   `json:"name_stability"`
	DOBStability       float64   `json:"dob_stability"`
	TrustTrend         Trend     `json:"trust_trend"`
	HesitationScore    float64   `json:"hesitation_score"`
}

// RiskResult is the verdict produced for a single call.
type RiskResult struct {
	RawScore        float64            `json:"raw_score"`
	Percentage      float64            `json:"risk_percentage"`
	Level           RiskLevel          `json:"risk_level"`
	Breakdown       map[string]float64 `json:"breakdown"`
	HistoryModifier int                `json:"history_modifier"`
	Reasons         []string           `json:"reasons"`
}

// Hesitation is the response-latency measurement for a single dialogue step.
type Hesitation struct {
	Step       string    `json:"step"`
	Seconds    float64   `json:"hesitation_seconds"`
	Score      float64   `json:"score"`
	Level      RiskLevel `json:"level"`
	MeasuredAt time.Time `json:"measured_at"`
}

// VerificationRecord is the immutable per-call outcome persisted once the
// terminal verdict is computed. Seq is assigned by the database and is
// strictly increasing across all calls; AudioRef is derived from it.
type VerificationRecord struct {
	Seq                int64     `db:"seq" json:"seq"`
	CallID             string    `db:"call_id" json:"call_id"`
	PhoneNumber        string    `db:"phone_number" json:"phone_number"`
	CountryCode        string    `db:"country_code" json:"country_code"`
	OTPVerified        bool      `db:"otp_verified" json:"otp_verified"`
	IdentityMismatches int       `db:"identity_mismatches" json:"identity_mismatches"`
	SyntheticVoiceProb float64   `db:"synthetic_voice_probability" json:"synthetic_voice_probability"`
	VoiceMatchScore    float64   `db:"voice_match_score" json:"voice_match_score"`
	Intent             string    `db:"intent" json:"intent"`
	RiskPercentage     float64   `db:"risk_percentage" json:"risk_percentage"`
	RiskLevel          RiskLevel `db:"risk_level" json:"risk_level"`
	RelatedAccounts    []string  `db:"-" json:"related_accounts"`
	Status             string    `db:"verification_status" json:"verification_status"`
	AudioRef           string    `db:"audio_ref" json:"audio_ref"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Verification statuses persisted on a record.
const (
	StatusVerified = "VERIFIED"
	StatusFailed   = "FAILED"
)

// CrossCallMemory is the durable per-phone-number record of previously
// verified claims and trust history. There is at most one per phone number.
// TrustScores and CallTimestamps only ever grow; the last-verified fields are
// overwritten on each update.
type CrossCallMemory struct {
	PhoneNumber      string      `json:"phone_number"`
	LastVerifiedName string      `json:"last_verified_name"`
	LastVerifiedDOB  string      `json:"last_verified_dob"`
	TrustScores      []float64   `json:"trust_scores"`
	CallTimestamps   []time.Time `json:"call_timestamps"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// LastTrustScore returns the most recent trust score, or the neutral default
// of 50 when no history exists.
func (m *CrossCallMemory) LastTrustScore() float64 {
	if m == nil || len(m.TrustScores) == 0 {
		return 50
	}
	return m.TrustScores[len(m.TrustScores)-1]
}

// CallerProfile is the registered identity a caller's claims are validated
// against.
type CallerProfile struct {
	AccountID         string `db:"account_id" json:"account_id"`
	OTP               string `db:"otp" json:"otp"`
	FullName          string `db:"full_name" json:"full_name"`
	DateOfBirth       string `db:"date_of_birth" json:"date_of_birth"`
	RegisteredCountry string `db:"registered_country" json:"registered_country"`
}
