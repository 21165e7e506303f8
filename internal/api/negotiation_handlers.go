package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gigwork-engine/internal/engine"
	"gigwork-engine/internal/models"
)

type proposalRequest struct {
	JobID        string  `json:"job_id"`
	WorkerID     string  `json:"worker_id,omitempty"`
	Message      string  `json:"message"`
	ProposedRate float64 `json:"proposed_rate"`
	DurationDays *int    `json:"duration_days,omitempty"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &engine.Error{Code: engine.CodeValidation, Message: "invalid json"})
		return
	}
	n, err := s.engine.Apply(r.Context(), partyFrom(r), engine.ProposalParams{
		JobID:        req.JobID,
		Message:      req.Message,
		ProposedRate: req.ProposedRate,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, n)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &engine.Error{Code: engine.CodeValidation, Message: "invalid json"})
		return
	}
	n, err := s.engine.Invite(r.Context(), partyFrom(r), engine.ProposalParams{
		JobID:        req.JobID,
		WorkerID:     req.WorkerID,
		Message:      req.Message,
		ProposedRate: req.ProposedRate,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, n)
}

func (s *Server) handleGetNegotiation(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.GetNegotiation(r.Context(), partyFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, n)
}

type negotiationResult struct {
	Negotiation models.Negotiation   `json:"negotiation"`
	Contract    *models.WorkContract `json:"contract,omitempty"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &engine.Error{Code: engine.CodeValidation, Message: "invalid json"})
		return
	}
	n, contract, err := s.engine.Respond(r.Context(), partyFrom(r), chi.URLParam(r, "id"), engine.RespondAction(req.Action), clientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, negotiationResult{Negotiation: n, Contract: contract})
}

func (s *Server) handleStartDiscussion(w http.ResponseWriter, r *http.Request) {
	n, counterpart, err := s.engine.StartDiscussion(r.Context(), partyFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, struct {
		Negotiation models.Negotiation `json:"negotiation"`
		Counterpart string             `json:"counterpart_id"`
	}{Negotiation: n, Counterpart: counterpart})
}

func (s *Server) handleMarkAgreement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agreed bool `json:"agreed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &engine.Error{Code: engine.CodeValidation, Message: "invalid json"})
		return
	}
	n, contract, err := s.engine.MarkAgreement(r.Context(), partyFrom(r), chi.URLParam(r, "id"), req.Agreed, clientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, negotiationResult{Negotiation: n, Contract: contract})
}
