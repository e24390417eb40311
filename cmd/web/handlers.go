package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/orchestrator"
	"github.com/voicesentinel/voicesentinel/internal/session"
)

// maxChunkBytes bounds a single uploaded audio chunk.
const maxChunkBytes = 10 << 20

// healthy responds with a JSON object indicating that the server is healthy.
func (app *application) healthy(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type startCallRequest struct {
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
	AccountID   string `json:"account_id"`
}

func (app *application) startCall(w http.ResponseWriter, r *http.Request) {
	var req startCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	result, err := app.orchestrator.StartCall(r.Context(), req.PhoneNumber, req.CountryCode, req.AccountID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrPhoneRequired) {
			app.clientError(w, r, http.StatusBadRequest)
			return
		}
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusCreated, result)
}

func (app *application) submitChunk(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	if err := r.ParseMultipartForm(maxChunkBytes); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := app.orchestrator.SubmitChunk(r.Context(), sessionID, file)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			app.clientError(w, r, http.StatusNotFound)
		case errors.Is(err, orchestrator.ErrSessionCompleted):
			app.clientError(w, r, http.StatusConflict)
		default:
			app.serverError(w, r, err)
		}
		return
	}

	app.writeJSON(w, r, http.StatusOK, result)
}

func (app *application) snapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	snapshot, err := app.orchestrator.Snapshot(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			app.clientError(w, r, http.StatusNotFound)
			return
		}
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, snapshot)
}

func (app *application) callHistory(w http.ResponseWriter, r *http.Request) {
	phoneNumber := r.PathValue("phoneNumber")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			app.clientError(w, r, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := app.records.ListRecent(r.Context(), phoneNumber, limit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	memory, err := app.memories.Get(r.Context(), phoneNumber)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{
		"phone_number": phoneNumber,
		"records":      records,
		"memory":       memory,
	})
}
