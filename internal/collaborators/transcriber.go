package collaborators

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/voicesentinel/voicesentinel/internal/errors"
)

// WhisperTranscriber transcribes call audio with the OpenAI Whisper API.
type WhisperTranscriber struct {
	client *openai.Client
}

// NewWhisperTranscriber builds a transcriber, or a disabled one when no API
// key is configured.
func NewWhisperTranscriber(apiKey string) Transcriber {
	if apiKey == "" {
		return disabledTranscriber{}
	}
	return &WhisperTranscriber{client: openai.NewClient(apiKey)}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	response, err := t.client.CreateTranscription(ctx, openai.AudioRequest{ //nolint:exhaustruct // this is better for readability
		Model:    openai.Whisper1,
		FilePath: audioPath,
	})
	if err != nil {
		return "", errors.Wrap(err, "create transcription")
	}
	return response.Text, nil
}

type disabledTranscriber struct{}

func (disabledTranscriber) Transcribe(context.Context, string) (string, error) {
	return "", ErrUnavailable
}
