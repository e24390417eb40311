// Package ivr defines the scripted verification dialogue. Prompt audio is
// produced by an external text-to-speech service; steps carry stable audio
// references and the cached prompt durations used for hesitation timing.
package ivr

import "time"

// Step is one scripted dialogue turn.
type Step struct {
	ID             string        `json:"id"`
	Prompt         string        `json:"prompt"`
	AudioRef       string        `json:"audio_ref"`
	ExpectedField  string        `json:"expected_field"`
	PromptDuration time.Duration `json:"-"`
}

// Script is the ordered verification dialogue: OTP, name, date of birth and
// finally the caller's intent.
var Script = []Step{
	{
		ID:             "welcome_otp",
		Prompt:         "Welcome to Voice Sentinel. For verification, please provide the one time password sent to your registered mobile.",
		AudioRef:       "ivr_audio/welcome_otp.wav",
		ExpectedField:  "otp",
		PromptDuration: 7 * time.Second,
	},
	{
		ID:             "ask_name",
		Prompt:         "Thank you. Please say your full name.",
		AudioRef:       "ivr_audio/ask_name.wav",
		ExpectedField:  "name",
		PromptDuration: 3 * time.Second,
	},
	{
		ID:             "ask_dob",
		Prompt:         "Please state your date of birth.",
		AudioRef:       "ivr_audio/ask_dob.wav",
		ExpectedField:  "dob",
		PromptDuration: 3 * time.Second,
	},
	{
		ID:             "ask_intent",
		Prompt:         "How can I help you today?",
		AudioRef:       "ivr_audio/ask_intent.wav",
		ExpectedField:  "intent",
		PromptDuration: 2 * time.Second,
	},
}

// Next returns the step at index i, or ok=false when the script is finished.
func Next(i int) (Step, bool) {
	if i < 0 || i >= len(Script) {
		return Step{}, false
	}
	return Script[i], true
}

// Len is the number of scripted steps.
func Len() int {
	return len(Script)
}
