package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.HandleFunc("POST /api/call/start", app.startCall)
	mux.HandleFunc("POST /api/call/{sessionID}/chunk", app.submitChunk)
	mux.HandleFunc("GET /api/call/{sessionID}/snapshot", app.snapshot)
	mux.HandleFunc("GET /api/history/{phoneNumber}", app.callHistory)

	base := alice.New(app.recoverPanic, app.logRequest, commonHeaders)
	return base.Then(mux)
}
