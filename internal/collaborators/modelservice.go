package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/voicesentinel/voicesentinel/internal/errors"
)

const modelServiceTimeout = 30 * time.Second

// modelServiceClient posts audio files to a JSON-over-HTTP model service.
type modelServiceClient struct {
	baseURL    string
	httpClient *http.Client
}

func newModelServiceClient(baseURL string) modelServiceClient {
	return modelServiceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: modelServiceTimeout},
	}
}

// postAudio uploads the audio file as multipart form data and decodes the
// JSON response body into out.
func (c modelServiceClient) postAudio(ctx context.Context, path, audioPath string, out any) error {
	file, err := os.Open(audioPath)
	if err != nil {
		return errors.Wrap(err, "open audio file", slog.String("audio_path", audioPath))
	}
	defer func() {
		_ = file.Close()
	}()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return errors.Wrap(err, "create form file")
	}
	if _, err = io.Copy(part, file); err != nil {
		return errors.Wrap(err, "copy audio into request")
	}
	if err = writer.Close(); err != nil {
		return errors.Wrap(err, "finalize multipart body")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return errors.Wrap(err, "call model service", slog.String("path", path))
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return errors.New("model service returned non-OK status",
			slog.String("path", path), slog.Int("status", response.StatusCode))
	}

	if err = json.NewDecoder(response.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode model service response", slog.String("path", path))
	}
	return nil
}

// HTTPSyntheticVoiceScorer calls a deepfake-detection model service.
type HTTPSyntheticVoiceScorer struct {
	client modelServiceClient
}

// NewSyntheticVoiceScorer builds a scorer, or a disabled one when no base URL
// is configured.
func NewSyntheticVoiceScorer(baseURL string) SyntheticVoiceScorer {
	if baseURL == "" {
		return disabledScorer{}
	}
	return &HTTPSyntheticVoiceScorer{client: newModelServiceClient(baseURL)}
}

func (s *HTTPSyntheticVoiceScorer) Score(ctx context.Context, audioPath string) (float64, error) {
	var response struct {
		Probability float64 `json:"probability"`
	}
	if err := s.client.postAudio(ctx, "/v1/synthetic-voice/score", audioPath, &response); err != nil {
		return 0, err
	}
	if response.Probability < 0 || response.Probability > 1 {
		return 0, errors.New("probability out of range", slog.Float64("probability", response.Probability))
	}
	return response.Probability, nil
}

type disabledScorer struct{}

func (disabledScorer) Score(context.Context, string) (float64, error) {
	return 0, ErrUnavailable
}

// HTTPBiometric calls a speaker-embedding model service and compares the
// resulting embeddings by cosine similarity.
type HTTPBiometric struct {
	client modelServiceClient
}

// NewBiometric builds a biometric collaborator, or a disabled one when no
// base URL is configured.
func NewBiometric(baseURL string) Biometric {
	if baseURL == "" {
		return disabledBiometric{}
	}
	return &HTTPBiometric{client: newModelServiceClient(baseURL)}
}

func (b *HTTPBiometric) ExtractEmbedding(ctx context.Context, audioPath string) ([]float64, error) {
	var response struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := b.client.postAudio(ctx, "/v1/speaker/embed", audioPath, &response); err != nil {
		return nil, err
	}
	if len(response.Embedding) == 0 {
		return nil, errors.New("empty embedding")
	}
	return response.Embedding, nil
}

// Compare returns the cosine similarity of two embeddings clipped to [0, 1].
func (b *HTTPBiometric) Compare(a, c []float64) float64 {
	return CosineSimilarity(a, c)
}

type disabledBiometric struct{}

func (disabledBiometric) ExtractEmbedding(context.Context, string) ([]float64, error) {
	return nil, ErrUnavailable
}

func (disabledBiometric) Compare(a, b []float64) float64 {
	return CosineSimilarity(a, b)
}

// CosineSimilarity computes the cosine similarity of two vectors clipped to
// [0, 1]. Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}
