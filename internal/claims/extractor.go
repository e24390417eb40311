// Package claims extracts identity claims from call transcripts and validates
// them against registered caller profiles.
package claims

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/voicesentinel/voicesentinel/internal/models"
)

// Extractor derives identity claims from a transcript. Implementations are
// interchangeable so that extraction strategy can evolve without touching the
// risk logic.
type Extractor interface {
	Extract(transcript string) models.Claims
}

// RegexpExtractor is the default pattern-based extraction strategy.
type RegexpExtractor struct{}

func NewRegexpExtractor() *RegexpExtractor {
	return &RegexpExtractor{}
}

var (
	// groupedDigits normalizes "5,646" to "5646" before digit matching.
	groupedDigits = regexp.MustCompile(`(\d+),(\d+)`)
	otpPattern    = regexp.MustCompile(`\b(\d{4})\b`)
	namePattern   = regexp.MustCompile(`(?:my name is|this is|i am|name's)\s+([a-z]+(?:\s+[a-z]+)?)`)
	dobPattern    = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?(?:\s+(?:of|day of)\s+|\s+)` +
		`(january|february|march|april|may|june|july|august|september|october|november|december)` +
		`(?:\s+(\d{4}))?`)
	dobMonthFirst = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)` +
		`\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*,?\s*(\d{4}))?`)
)

// fillerWords are discarded from the tail of a captured name.
var fillerWords = map[string]bool{
	"and": true, "calling": true, "speaking": true, "here": true,
}

func (e *RegexpExtractor) Extract(transcript string) models.Claims {
	text := strings.ToLower(transcript)
	text = groupedDigits.ReplaceAllString(text, "$1$2")

	return models.Claims{
		OTP:    extractOTP(text),
		Name:   extractName(text),
		DOB:    extractDOB(text),
		Intent: extractIntent(text),
	}
}

// extractOTP finds the first four-digit group that does not look like a year.
// OTPs and birth years collide in transcripts, so 19xx/20xx groups are only
// accepted when nothing else matches.
func extractOTP(text string) string {
	matches := otpPattern.FindAllString(text, -1)
	for _, m := range matches {
		if strings.HasPrefix(m, "19") || strings.HasPrefix(m, "20") {
			continue
		}
		return m
	}
	return ""
}

func extractName(text string) string {
	match := namePattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	words := strings.Fields(match[1])
	var kept []string
	for _, word := range words {
		if fillerWords[word] {
			break
		}
		kept = append(kept, title(word))
	}
	return strings.Join(kept, " ")
}

func extractDOB(text string) string {
	if match := dobPattern.FindStringSubmatch(text); match != nil {
		return formatDOB(match[1], match[2], match[3])
	}
	if match := dobMonthFirst.FindStringSubmatch(text); match != nil {
		return formatDOB(match[2], match[1], match[3])
	}
	return ""
}

func formatDOB(day, month, year string) string {
	day = strings.TrimLeft(day, "0")
	if year == "" {
		return fmt.Sprintf("%s %s", day, title(month))
	}
	return fmt.Sprintf("%s %s %s", day, title(month), year)
}

func extractIntent(text string) string {
	switch {
	case strings.Contains(text, "refund"):
		return "REFUND"
	case strings.Contains(text, "sim") && (strings.Contains(text, "swap") || strings.Contains(text, "change")):
		return "SIM_SWAP"
	case strings.Contains(text, "kyc"):
		return "KYC_UPDATE"
	case strings.Contains(text, "recover"):
		return "ACCOUNT_RECOVERY"
	default:
		return ""
	}
}

func title(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
