package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/models"
	"gigwork-engine/internal/notify"
	"gigwork-engine/internal/store"
)

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Emit(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name
	}
	return out
}

type world struct {
	mem    *store.Memory
	eng    *Engine
	sink   *recordingNotifier
	worker identity.WorkerParty
	client identity.ClientParty
	job    models.JobPosting
}

func newWorld(t *testing.T) *world {
	t.Helper()
	mem := store.NewMemory()
	sink := &recordingNotifier{}

	worker := models.WorkerProfile{
		ID:           uuid.New().String(),
		CredentialID: "cred-worker",
		Name:         "Wera",
		Status:       models.WorkerAvailable,
		IsVerified:   true,
	}
	client := models.ClientProfile{
		ID:           uuid.New().String(),
		CredentialID: "cred-client",
		Name:         "Chandra",
	}
	job := models.JobPosting{
		ID:       uuid.New().String(),
		ClientID: client.ID,
		Status:   models.JobOpen,
		Price:    120,
	}
	mem.PutWorker(worker)
	mem.PutClient(client)
	mem.PutJob(job)

	return &world{
		mem:    mem,
		eng:    New(mem, sink),
		sink:   sink,
		worker: identity.WorkerParty{Profile: worker},
		client: identity.ClientParty{Profile: client},
		job:    job,
	}
}

func (w *world) apply(t *testing.T) models.Negotiation {
	t.Helper()
	n, err := w.eng.Apply(context.Background(), w.worker, ProposalParams{JobID: w.job.ID, ProposedRate: 100})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return n
}

func (w *world) discuss(t *testing.T, id string) {
	t.Helper()
	if _, _, err := w.eng.StartDiscussion(context.Background(), w.client, id); err != nil {
		t.Fatalf("start discussion: %v", err)
	}
}

func TestApplyCreatesPendingApplication(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)
	if n.Status != models.NegotiationPending || n.Kind != models.KindApplication {
		t.Fatalf("unexpected record: %+v", n)
	}
	if n.ClientID != w.client.Profile.ID || n.WorkerID != w.worker.Profile.ID {
		t.Fatalf("parties not resolved from job: %+v", n)
	}
}

func TestApplyRequiresOpenJob(t *testing.T) {
	w := newWorld(t)
	w.job.Status = models.JobHired
	w.mem.PutJob(w.job)
	_, err := w.eng.Apply(context.Background(), w.worker, ProposalParams{JobID: w.job.ID, ProposedRate: 100})
	if CodeOf(err) != CodeStateConflict {
		t.Fatalf("want STATE_CONFLICT, got %v", err)
	}
}

func TestInviteRequiresOwnJob(t *testing.T) {
	w := newWorld(t)
	other := models.ClientProfile{ID: uuid.New().String(), CredentialID: "cred-other"}
	w.mem.PutClient(other)
	_, err := w.eng.Invite(context.Background(), identity.ClientParty{Profile: other}, ProposalParams{
		JobID: w.job.ID, WorkerID: w.worker.Profile.ID, ProposedRate: 90,
	})
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("foreign job must look nonexistent, got %v", err)
	}
}

func TestRespondAcceptShortCircuitsToContract(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)

	updated, contract, err := w.eng.Respond(context.Background(), w.client, n.ID, ActionAccept, "203.0.113.9")
	if err != nil {
		t.Fatalf("respond accept: %v", err)
	}
	if updated.Status != models.NegotiationAccepted {
		t.Fatalf("negotiation status = %s", updated.Status)
	}
	if contract == nil || contract.Status != models.ContractActive || contract.ContractType != models.TypeJobApplication {
		t.Fatalf("unexpected contract: %+v", contract)
	}
	if contract.AgreedRate != 100 {
		t.Fatalf("agreed rate should come from the proposal, got %v", contract.AgreedRate)
	}

	job, _ := w.mem.GetJob(context.Background(), w.job.ID)
	if job.Status != models.JobHired || job.HiredWorker == nil || *job.HiredWorker != w.worker.Profile.ID {
		t.Fatalf("job not marked hired: %+v", job)
	}
}

func TestRespondOnlyByReceivingParty(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)

	// The applying worker is a party, but not the receiver.
	_, _, err := w.eng.Respond(context.Background(), w.worker, n.ID, ActionAccept, "")
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("initiator responding must read as not found, got %v", err)
	}

	stranger := identity.ClientParty{Profile: models.ClientProfile{ID: uuid.New().String()}}
	_, _, err = w.eng.Respond(context.Background(), stranger, n.ID, ActionReject, "")
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("stranger must read as not found, got %v", err)
	}
}

func TestRespondFromTerminalStateConflicts(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)
	if _, _, err := w.eng.Respond(context.Background(), w.client, n.ID, ActionReject, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, _, err := w.eng.Respond(context.Background(), w.client, n.ID, ActionAccept, "")
	if CodeOf(err) != CodeStateConflict {
		t.Fatalf("terminal respond must conflict, got %v", err)
	}
}

func TestStartDiscussionReturnsCounterpartAndIsGuarded(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)

	updated, counterpart, err := w.eng.StartDiscussion(context.Background(), w.client, n.ID)
	if err != nil {
		t.Fatalf("start discussion: %v", err)
	}
	if updated.Status != models.NegotiationInDiscussion {
		t.Fatalf("status = %s", updated.Status)
	}
	if counterpart != w.worker.Profile.ID {
		t.Fatalf("counterpart = %s, want worker %s", counterpart, w.worker.Profile.ID)
	}

	// Second call finds the record already in discussion.
	if _, _, err := w.eng.StartDiscussion(context.Background(), w.client, n.ID); CodeOf(err) != CodeStateConflict {
		t.Fatalf("repeat discussion must conflict, got %v", err)
	}
}

func TestMarkAgreementBothPartiesCreatesOneContract(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)
	w.discuss(t, n.ID)

	mid, contract, err := w.eng.MarkAgreement(context.Background(), w.worker, n.ID, true, "")
	if err != nil || contract != nil {
		t.Fatalf("first agreement: n=%+v contract=%v err=%v", mid, contract, err)
	}
	if mid.Status != models.NegotiationWorkerAgreed || mid.WorkerAgreedAt == nil {
		t.Fatalf("worker agreement not recorded: %+v", mid)
	}

	final, contract, err := w.eng.MarkAgreement(context.Background(), w.client, n.ID, true, "198.51.100.7")
	if err != nil {
		t.Fatalf("second agreement: %v", err)
	}
	if final.Status != models.NegotiationAccepted || contract == nil {
		t.Fatalf("mutual agreement should finalize: %+v contract=%v", final, contract)
	}
	if w.mem.ContractCount() != 1 {
		t.Fatalf("contract count = %d", w.mem.ContractCount())
	}
}

func TestMarkAgreementSelfReconfirmationIsNoOp(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)
	w.discuss(t, n.ID)

	first, _, err := w.eng.MarkAgreement(context.Background(), w.worker, n.ID, true, "")
	if err != nil {
		t.Fatalf("first agreement: %v", err)
	}
	second, contract, err := w.eng.MarkAgreement(context.Background(), w.worker, n.ID, true, "")
	if err != nil || contract != nil {
		t.Fatalf("re-agreement must be a no-op, got contract=%v err=%v", contract, err)
	}
	if second.Status != models.NegotiationWorkerAgreed {
		t.Fatalf("status = %s", second.Status)
	}
	if !second.WorkerAgreedAt.Equal(*first.WorkerAgreedAt) {
		t.Fatal("agreement timestamp must not change on re-confirmation")
	}
	if w.mem.ContractCount() != 0 {
		t.Fatalf("no contract expected, got %d", w.mem.ContractCount())
	}
}

func TestMarkAgreementDisagreeRejects(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)
	w.discuss(t, n.ID)

	updated, contract, err := w.eng.MarkAgreement(context.Background(), w.client, n.ID, false, "")
	if err != nil || contract != nil {
		t.Fatalf("disagree: contract=%v err=%v", contract, err)
	}
	if updated.Status != models.NegotiationRejected {
		t.Fatalf("status = %s", updated.Status)
	}

	_, _, err = w.eng.MarkAgreement(context.Background(), w.worker, n.ID, false, "")
	if CodeOf(err) != CodeStateConflict {
		t.Fatalf("rejected record must conflict, got %v", err)
	}
}

// Two near-simultaneous agreements from both parties must never both create a
// contract: the second writer detects the already-agreed state and converges.
func TestMarkAgreementConcurrentRaceCreatesExactlyOneContract(t *testing.T) {
	for i := 0; i < 50; i++ {
		w := newWorld(t)
		n := w.apply(t)
		w.discuss(t, n.ID)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = w.eng.MarkAgreement(context.Background(), w.worker, n.ID, true, "")
		}()
		go func() {
			defer wg.Done()
			_, _, _ = w.eng.MarkAgreement(context.Background(), w.client, n.ID, true, "")
		}()
		wg.Wait()

		if got := w.mem.ContractCount(); got != 1 {
			t.Fatalf("iteration %d: contract count = %d, want exactly 1", i, got)
		}
		final, err := w.eng.GetNegotiation(context.Background(), w.client, n.ID)
		if err != nil {
			t.Fatalf("iteration %d: reload: %v", i, err)
		}
		if final.Status != models.NegotiationAccepted || final.ContractID == nil {
			t.Fatalf("iteration %d: negotiation not finalized: %+v", i, final)
		}
	}
}

func TestNegotiationEventsAreEmitted(t *testing.T) {
	w := newWorld(t)
	n := w.apply(t)
	w.discuss(t, n.ID)
	if _, _, err := w.eng.MarkAgreement(context.Background(), w.worker, n.ID, true, ""); err != nil {
		t.Fatalf("agreement: %v", err)
	}

	names := w.sink.names()
	want := []string{"application:created", "application:discussion_started", "application:agreement_recorded"}
	if len(names) != len(want) {
		t.Fatalf("events = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
