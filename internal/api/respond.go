package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"gigwork-engine/internal/engine"
)

// envelope is the uniform response shape: a success flag, a stable
// machine-readable code, and either the mutated entity or an error message.
type envelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Code: string(engine.CodeOK), Data: data})
}

func respondCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Code: string(engine.CodeOK), Data: data})
}

func respondError(w http.ResponseWriter, err error) {
	code := engine.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case engine.CodeValidation:
		status = http.StatusBadRequest
	case engine.CodeNotFound:
		status = http.StatusNotFound
	case engine.CodeStateConflict, engine.CodeWorkerUnavailable, engine.CodeReviewExists:
		status = http.StatusConflict
	}

	msg := "internal error"
	var e *engine.Error
	if errors.As(err, &e) && code != engine.CodeInternal {
		msg = e.Message
	}
	writeJSON(w, status, envelope{Success: false, Code: string(code), Error: msg})
}
