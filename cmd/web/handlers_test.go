package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicesentinel/voicesentinel/internal/collaborators"
	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/ivr"
	"github.com/voicesentinel/voicesentinel/internal/orchestrator"
	"github.com/voicesentinel/voicesentinel/internal/repositories"
	"github.com/voicesentinel/voicesentinel/internal/session"
	"github.com/voicesentinel/voicesentinel/internal/testhelpers"
)

// newTestApplication wires the application against an in-memory database with
// every external collaborator disabled.
func newTestApplication(t *testing.T) *application {
	t.Helper()

	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := db.New(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})

	records := repositories.NewVerificationRepository(dbs, logger)
	memories := repositories.NewMemoryRepository(dbs, logger)

	return &application{
		logger:   logger,
		records:  records,
		memories: memories,
		orchestrator: orchestrator.New(orchestrator.Options{
			Logger:      logger,
			Sessions:    session.NewStore(),
			Records:     records,
			Memories:    memories,
			Baselines:   repositories.NewBaselineRepository(dbs, logger),
			Profiles:    repositories.NewProfileRepository(dbs, logger),
			Transcriber: collaborators.NewWhisperTranscriber(""),
			VoiceScorer: collaborators.NewSyntheticVoiceScorer(""),
			Biometric:   collaborators.NewBiometric(""),
			AudioDir:    t.TempDir(),
		}),
	}
}

func chunkUpload(t *testing.T) (io.Reader, string) {
	t.Helper()

	format := make([]byte, 16)
	binary.LittleEndian.PutUint16(format[0:2], 1)
	binary.LittleEndian.PutUint16(format[2:4], 1)
	binary.LittleEndian.PutUint32(format[4:8], 8000)
	binary.LittleEndian.PutUint32(format[8:12], 16000)
	binary.LittleEndian.PutUint16(format[12:14], 2)
	binary.LittleEndian.PutUint16(format[14:16], 16)
	frames := []byte{1, 2, 3, 4}

	var wav []byte
	wav = append(wav, "RIFF"...)
	wav = binary.LittleEndian.AppendUint32(wav, uint32(4+(8+len(format))+(8+len(frames))))
	wav = append(wav, "WAVE"...)
	wav = append(wav, "fmt "...)
	wav = binary.LittleEndian.AppendUint32(wav, uint32(len(format)))
	wav = append(wav, format...)
	wav = append(wav, "data"...)
	wav = binary.LittleEndian.AppendUint32(wav, uint32(len(frames)))
	wav = append(wav, frames...)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "chunk.wav")
	require.NoError(t, err)
	_, err = part.Write(wav)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func Test_application_callFlow(t *testing.T) {
	t.Parallel()

	app := newTestApplication(t)
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)

	res, err := srv.Client().Get(srv.URL + "/api/healthy")
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	require.Equal(t, http.StatusOK, res.StatusCode)

	// Start a call.
	res, err = srv.Client().Post(srv.URL+"/api/call/start", "application/json",
		bytes.NewReader([]byte(`{"phone_number":"+358401234567","country_code":"FI","account_id":"12345"}`)))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var start orchestrator.StartResult
	require.NoError(t, json.NewDecoder(res.Body).Decode(&start))
	require.NoError(t, res.Body.Close())
	require.NotEmpty(t, start.SessionID)
	require.Equal(t, "welcome_otp", start.Step.ID)

	// Drive the session through every scripted step.
	var result orchestrator.ChunkResult
	for i := 0; i < ivr.Len(); i++ {
		body, contentType := chunkUpload(t)
		res, err = srv.Client().Post(
			fmt.Sprintf("%s/api/call/%s/chunk", srv.URL, start.SessionID), contentType, body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.NoError(t, json.NewDecoder(res.Body).Decode(&result))
		require.NoError(t, res.Body.Close())
	}
	require.Equal(t, orchestrator.StatusCompleted, result.Status)
	require.NotNil(t, result.Report)

	// The record is now queryable through the history endpoint.
	res, err = srv.Client().Get(srv.URL + "/api/history/+358401234567")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var history struct {
		Records []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&history))
	require.NoError(t, res.Body.Close())
	assert.Len(t, history.Records, 1)

	// The completed session is gone.
	res, err = srv.Client().Get(fmt.Sprintf("%s/api/call/%s/snapshot", srv.URL, start.SessionID))
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func Test_application_startCallValidation(t *testing.T) {
	t.Parallel()

	app := newTestApplication(t)
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)

	res, err := srv.Client().Post(srv.URL+"/api/call/start", "application/json",
		bytes.NewReader([]byte(`{"country_code":"FI"}`)))
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = srv.Client().Post(srv.URL+"/api/call/start", "application/json",
		bytes.NewReader([]byte(`not json`)))
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func Test_application_submitChunkUnknownSession(t *testing.T) {
	t.Parallel()

	app := newTestApplication(t)
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)

	body, contentType := chunkUpload(t)
	res, err := srv.Client().Post(srv.URL+"/api/call/nope/chunk", contentType, body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
