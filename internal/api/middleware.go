package api

import (
	"context"
	"net"
	"net/http"

	"gigwork-engine/internal/engine"
	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/models"
	"gigwork-engine/internal/ratelimit"
	"gigwork-engine/internal/telemetry"
)

type contextKey string

const partyKey contextKey = "party"

// withIdentity resolves the upstream-authenticated credential to its role
// profile and injects it as identity.Party. The gateway in front of this
// service owns authentication; these headers are its verdict.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credentialID := r.Header.Get("X-Credential-ID")
		userType := r.Header.Get("X-User-Type")
		if credentialID == "" || userType == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Code: "UNAUTHENTICATED", Error: "missing identity headers"})
			return
		}

		var party identity.Party
		switch models.Role(userType) {
		case models.RoleWorker:
			profile, err := s.store.GetWorkerByCredential(r.Context(), credentialID)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Code: "UNAUTHENTICATED", Error: "unknown worker credential"})
				return
			}
			party = identity.WorkerParty{Profile: profile}
		case models.RoleClient:
			profile, err := s.store.GetClientByCredential(r.Context(), credentialID)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Code: "UNAUTHENTICATED", Error: "unknown client credential"})
				return
			}
			party = identity.ClientParty{Profile: profile}
		default:
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Code: "UNAUTHENTICATED", Error: "unknown user type"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), partyKey, party)))
	})
}

func partyFrom(r *http.Request) identity.Party {
	party, _ := r.Context().Value(partyKey).(identity.Party)
	return party
}

// withRateLimit throttles mutating calls per credential.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		party := partyFrom(r)
		if party == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, _, err := s.limiter.Allow(r.Context(), ratelimit.KeyFor(party.CredentialID()))
		if err != nil {
			respondError(w, &engine.Error{Code: engine.CodeInternal, Message: "rate limiter"})
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Code: "RATE_LIMITED", Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from the remote address; the value is stored on
// contracts for audit only and never serialized outward.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
