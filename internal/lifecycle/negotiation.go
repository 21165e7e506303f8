// Package lifecycle holds the transition tables for negotiations and
// contracts. Every status change in the engine routes through these
// functions, so an illegal transition is a single exhaustive match away from
// being caught rather than a string comparison scattered across handlers.
package lifecycle

import (
	"fmt"

	"gigwork-engine/internal/models"
)

// NegotiationEvent is an input to the negotiation state machine.
type NegotiationEvent string

const (
	EventAccept          NegotiationEvent = "accept"
	EventReject          NegotiationEvent = "reject"
	EventStartDiscussion NegotiationEvent = "start_discussion"
	EventClientAgree     NegotiationEvent = "client_agree"
	EventWorkerAgree     NegotiationEvent = "worker_agree"
	EventDisagree        NegotiationEvent = "disagree"
)

// ErrTransition reports an event applied in a state that does not permit it.
type ErrTransition struct {
	Entity string
	State  string
	Event  string
}

func (e *ErrTransition) Error() string {
	return fmt.Sprintf("%s in state %q does not permit %s", e.Entity, e.State, e.Event)
}

// AgreeEvent maps a caller role onto its agreement event.
func AgreeEvent(role models.Role) NegotiationEvent {
	if role == models.RoleClient {
		return EventClientAgree
	}
	return EventWorkerAgree
}

// NegotiationNext returns the state that follows event in state, or an
// ErrTransition if the pair is illegal. Idempotent re-agreement by the same
// party returns the current state unchanged.
func NegotiationNext(state models.NegotiationStatus, event NegotiationEvent) (models.NegotiationStatus, error) {
	switch state {
	case models.NegotiationPending:
		switch event {
		case EventAccept:
			return models.NegotiationAccepted, nil
		case EventReject:
			return models.NegotiationRejected, nil
		case EventStartDiscussion:
			return models.NegotiationInDiscussion, nil
		}
	case models.NegotiationInDiscussion:
		switch event {
		case EventClientAgree:
			return models.NegotiationClientAgreed, nil
		case EventWorkerAgree:
			return models.NegotiationWorkerAgreed, nil
		case EventDisagree:
			return models.NegotiationRejected, nil
		}
	case models.NegotiationClientAgreed:
		switch event {
		case EventClientAgree:
			return models.NegotiationClientAgreed, nil
		case EventWorkerAgree:
			return models.NegotiationAccepted, nil
		case EventDisagree:
			return models.NegotiationRejected, nil
		}
	case models.NegotiationWorkerAgreed:
		switch event {
		case EventWorkerAgree:
			return models.NegotiationWorkerAgreed, nil
		case EventClientAgree:
			return models.NegotiationAccepted, nil
		case EventDisagree:
			return models.NegotiationRejected, nil
		}
	case models.NegotiationAccepted, models.NegotiationRejected:
		// terminal
	}
	return state, &ErrTransition{Entity: "negotiation", State: string(state), Event: string(event)}
}
