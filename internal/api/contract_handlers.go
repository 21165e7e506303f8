package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gigwork-engine/internal/engine"
	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/models"
)

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	c, err := s.engine.GetContract(r.Context(), partyFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, c)
}

func (s *Server) handleStartWork(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.StartWork)
}

func (s *Server) handleCompleteWork(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.CompleteWork)
}

func (s *Server) handleConfirmCompletion(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.ConfirmWorkCompletion)
}

func (s *Server) handleCancelContract(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.engine.CancelContract)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, identity.Party, string) (models.WorkContract, error)) {
	c, err := op(r.Context(), partyFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, c)
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating   int    `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &engine.Error{Code: engine.CodeValidation, Message: "invalid json"})
		return
	}
	review, err := s.engine.SubmitFeedback(r.Context(), partyFrom(r), chi.URLParam(r, "id"), req.Rating, req.Feedback)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, review)
}

func (s *Server) handleRatingSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.RatingSummary(r.Context(), chi.URLParam(r, "revieweeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, sum)
}

func (s *Server) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &engine.Error{Code: engine.CodeValidation, Message: "invalid json"})
		return
	}
	worker, err := s.engine.SetWorkerAvailability(r.Context(), partyFrom(r), req.Available)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, worker)
}
