package lifecycle

import (
	"errors"
	"testing"

	"gigwork-engine/internal/models"
)

func TestNegotiationHappyPaths(t *testing.T) {
	cases := []struct {
		state models.NegotiationStatus
		event NegotiationEvent
		want  models.NegotiationStatus
	}{
		{models.NegotiationPending, EventAccept, models.NegotiationAccepted},
		{models.NegotiationPending, EventReject, models.NegotiationRejected},
		{models.NegotiationPending, EventStartDiscussion, models.NegotiationInDiscussion},
		{models.NegotiationInDiscussion, EventClientAgree, models.NegotiationClientAgreed},
		{models.NegotiationInDiscussion, EventWorkerAgree, models.NegotiationWorkerAgreed},
		{models.NegotiationInDiscussion, EventDisagree, models.NegotiationRejected},
		{models.NegotiationClientAgreed, EventWorkerAgree, models.NegotiationAccepted},
		{models.NegotiationWorkerAgreed, EventClientAgree, models.NegotiationAccepted},
		{models.NegotiationClientAgreed, EventDisagree, models.NegotiationRejected},
		{models.NegotiationWorkerAgreed, EventDisagree, models.NegotiationRejected},
	}
	for _, c := range cases {
		got, err := NegotiationNext(c.state, c.event)
		if err != nil {
			t.Fatalf("%s + %s: unexpected error %v", c.state, c.event, err)
		}
		if got != c.want {
			t.Fatalf("%s + %s: got %s want %s", c.state, c.event, got, c.want)
		}
	}
}

func TestNegotiationSelfReagreementIsNoOp(t *testing.T) {
	got, err := NegotiationNext(models.NegotiationClientAgreed, EventClientAgree)
	if err != nil || got != models.NegotiationClientAgreed {
		t.Fatalf("client re-agree: got %s err %v", got, err)
	}
	got, err = NegotiationNext(models.NegotiationWorkerAgreed, EventWorkerAgree)
	if err != nil || got != models.NegotiationWorkerAgreed {
		t.Fatalf("worker re-agree: got %s err %v", got, err)
	}
}

func TestNegotiationTerminalStatesRejectEverything(t *testing.T) {
	events := []NegotiationEvent{EventAccept, EventReject, EventStartDiscussion, EventClientAgree, EventWorkerAgree, EventDisagree}
	for _, state := range []models.NegotiationStatus{models.NegotiationAccepted, models.NegotiationRejected} {
		for _, ev := range events {
			got, err := NegotiationNext(state, ev)
			var te *ErrTransition
			if !errors.As(err, &te) {
				t.Fatalf("%s + %s: want ErrTransition, got %v", state, ev, err)
			}
			if got != state {
				t.Fatalf("%s + %s: state moved to %s", state, ev, got)
			}
		}
	}
}

func TestNegotiationDiscussionOnlyFromPending(t *testing.T) {
	for _, state := range []models.NegotiationStatus{
		models.NegotiationInDiscussion,
		models.NegotiationClientAgreed,
		models.NegotiationWorkerAgreed,
	} {
		if _, err := NegotiationNext(state, EventStartDiscussion); err == nil {
			t.Fatalf("%s: start_discussion should be rejected", state)
		}
	}
}

func TestContractLinearPath(t *testing.T) {
	state := models.ContractActive
	for _, step := range []struct {
		event ContractEvent
		want  models.ContractStatus
	}{
		{EventStartWork, models.ContractInProgress},
		{EventCompleteWork, models.ContractAwaitingClient},
		{EventConfirm, models.ContractCompleted},
	} {
		next, err := ContractNext(state, step.event)
		if err != nil {
			t.Fatalf("%s + %s: %v", state, step.event, err)
		}
		if next != step.want {
			t.Fatalf("%s + %s: got %s want %s", state, step.event, next, step.want)
		}
		state = next
	}
}

func TestContractCancelReachability(t *testing.T) {
	for _, state := range []models.ContractStatus{models.ContractActive, models.ContractInProgress} {
		next, err := ContractNext(state, EventCancel)
		if err != nil || next != models.ContractCancelled {
			t.Fatalf("%s + cancel: got %s err %v", state, next, err)
		}
	}
	for _, state := range []models.ContractStatus{models.ContractAwaitingClient, models.ContractCompleted, models.ContractCancelled} {
		next, err := ContractNext(state, EventCancel)
		var te *ErrTransition
		if !errors.As(err, &te) {
			t.Fatalf("%s + cancel: want ErrTransition, got %v", state, err)
		}
		if next != state {
			t.Fatalf("%s + cancel: state moved to %s", state, next)
		}
	}
}

func TestContractIllegalSkips(t *testing.T) {
	if _, err := ContractNext(models.ContractActive, EventCompleteWork); err == nil {
		t.Fatal("complete_work from active should fail")
	}
	if _, err := ContractNext(models.ContractActive, EventConfirm); err == nil {
		t.Fatal("confirm from active should fail")
	}
	if _, err := ContractNext(models.ContractCompleted, EventStartWork); err == nil {
		t.Fatal("start_work from completed should fail")
	}
}
