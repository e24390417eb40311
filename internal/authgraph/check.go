// Package authgraph decides whether a caller may act on an account other than
// their own, based on the phone number's learned set of linked accounts.
package authgraph

import (
	"fmt"
	"regexp"

	"github.com/voicesentinel/voicesentinel/internal/models"
)

// Escalation applied to a verdict when an unauthorized account is referenced.
const (
	ViolationPenalty    = 20.0
	ViolationEscalation = 30.0
)

// AccountRefExtractor finds an account identifier referenced in free text
// that is neither the caller's phone number nor their claimed account.
// Implementations are pluggable so extraction strategy stays decoupled from
// the authorization decision.
type AccountRefExtractor interface {
	TargetAccount(text, callerPhone, claimedAccount string) string
}

// DigitRunExtractor matches runs of five or more digits, the shape of account
// identifiers in this system.
type DigitRunExtractor struct{}

func NewDigitRunExtractor() *DigitRunExtractor {
	return &DigitRunExtractor{}
}

var accountRefPattern = regexp.MustCompile(`\b\d{5,}\b`)

func (e *DigitRunExtractor) TargetAccount(text, callerPhone, claimedAccount string) string {
	for _, match := range accountRefPattern.FindAllString(text, -1) {
		if match != callerPhone && match != claimedAccount {
			return match
		}
	}
	return ""
}

// Apply checks targetAccount against the linked-accounts set and, on a
// violation, escalates the verdict in place: +30 percentage points clamped to
// 100 and a forced HIGH level. It returns whether a violation occurred; the
// caller is responsible for persisting the trust penalty.
//
// An empty targetAccount or one already linked leaves the result untouched.
func Apply(result *models.RiskResult, targetAccount string, linkedAccounts []string) bool {
	if targetAccount == "" {
		return false
	}
	for _, linked := range linkedAccounts {
		if linked == targetAccount {
			return false
		}
	}

	result.Percentage += ViolationEscalation
	if result.Percentage > 100 {
		result.Percentage = 100
	}
	result.Level = models.RiskHigh
	result.Reasons = append(result.Reasons, fmt.Sprintf("UNAUTHORIZED_ACCESS_ATTEMPT: %s", targetAccount))
	return true
}
