package claims

import (
	"context"
	"regexp"
	"strings"

	"github.com/voicesentinel/voicesentinel/internal/models"
)

// ProfileSource looks up the registered profile for an account. A nil profile
// with nil error means no profile is on record.
type ProfileSource interface {
	Profile(ctx context.Context, accountID string) (*models.CallerProfile, error)
}

// Validator checks extracted claims against the registered caller profile.
// Speech transcription is lossy, so all comparisons are deliberately fuzzy.
type Validator struct {
	profiles ProfileSource
}

func NewValidator(profiles ProfileSource) *Validator {
	return &Validator{profiles: profiles}
}

var nonDigits = regexp.MustCompile(`\D`)

// Validate returns whether the spoken OTP matches and how many of the two
// identity fields (name, date of birth) disagree with the profile.
//
// With no profile on record the credential cannot be corroborated (reported
// as failed) but the identity fields are not counted against the caller.
func (v *Validator) Validate(ctx context.Context, accountID string, c models.Claims) (otpCorrect bool, mismatches int, err error) {
	profile, err := v.profiles.Profile(ctx, accountID)
	if err != nil {
		return false, 0, err
	}
	if profile == nil {
		return false, 0, nil
	}

	otpCorrect = matchOTP(c.OTP, profile.OTP)

	if !matchName(c.Name, profile.FullName) {
		mismatches++
	}
	if !matchDOB(c.DOB, profile.DateOfBirth) {
		mismatches++
	}
	return otpCorrect, mismatches, nil
}

func matchOTP(claimed, expected string) bool {
	digits := nonDigits.ReplaceAllString(claimed, "")
	if digits == expected {
		return true
	}
	// Transcripts sometimes glue surrounding digits onto the OTP.
	return expected != "" && strings.Contains(claimed, expected)
}

func matchName(claimed, expected string) bool {
	a := strings.ToLower(strings.TrimSpace(claimed))
	b := strings.ToLower(strings.TrimSpace(expected))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// matchDOB accepts either the full registered date or at least its day and
// month, since callers often omit the year.
func matchDOB(claimed, expected string) bool {
	a := strings.ToLower(strings.TrimSpace(claimed))
	b := strings.ToLower(strings.TrimSpace(expected))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) {
		return true
	}
	parts := strings.Fields(b)
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts[:2] {
		if !strings.Contains(a, part) {
			return false
		}
	}
	return true
}
