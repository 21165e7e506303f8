package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/models"
)

// agreedContract drives a fresh world to a live contract via discussion and
// mutual agreement.
func agreedContract(t *testing.T, w *world) models.WorkContract {
	t.Helper()
	n := w.apply(t)
	w.discuss(t, n.ID)
	if _, _, err := w.eng.MarkAgreement(context.Background(), w.worker, n.ID, true, ""); err != nil {
		t.Fatalf("worker agreement: %v", err)
	}
	_, contract, err := w.eng.MarkAgreement(context.Background(), w.client, n.ID, true, "")
	if err != nil || contract == nil {
		t.Fatalf("client agreement: contract=%v err=%v", contract, err)
	}
	return *contract
}

func TestEndToEndApplicationLifecycle(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)

	if c.Status != models.ContractActive || c.ContractType != models.TypeJobApplication {
		t.Fatalf("fresh contract: %+v", c)
	}

	started, err := w.eng.StartWork(ctx, w.worker, c.ID)
	if err != nil {
		t.Fatalf("start work: %v", err)
	}
	if started.Status != models.ContractInProgress || started.StartDate == nil {
		t.Fatalf("after start: %+v", started)
	}
	worker, _ := w.mem.GetWorker(ctx, w.worker.Profile.ID)
	if worker.Status != models.WorkerWorking || worker.CurrentJob == nil || *worker.CurrentJob != w.job.ID {
		t.Fatalf("worker not flipped to working: %+v", worker)
	}

	completed, err := w.eng.CompleteWork(ctx, w.worker, c.ID)
	if err != nil {
		t.Fatalf("complete work: %v", err)
	}
	if completed.Status != models.ContractAwaitingClient || completed.WorkerCompletedAt == nil {
		t.Fatalf("after completion: %+v", completed)
	}
	worker, _ = w.mem.GetWorker(ctx, w.worker.Profile.ID)
	if worker.Status != models.WorkerAvailable || worker.CurrentJob != nil {
		t.Fatalf("worker capacity not freed on submission: %+v", worker)
	}

	confirmed, err := w.eng.ConfirmWorkCompletion(ctx, w.client, c.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.ContractCompleted || confirmed.CompletedAt == nil || confirmed.ActualEndDate == nil {
		t.Fatalf("after confirmation: %+v", confirmed)
	}
	worker, _ = w.mem.GetWorker(ctx, w.worker.Profile.ID)
	if worker.TotalJobsCompleted != 1 {
		t.Fatalf("total jobs completed = %d", worker.TotalJobsCompleted)
	}
	job, _ := w.mem.GetJob(ctx, w.job.ID)
	if job.Status != models.JobCompleted {
		t.Fatalf("job status = %s", job.Status)
	}

	if _, err := w.eng.SubmitFeedback(ctx, w.client, c.ID, 5, "great work"); err != nil {
		t.Fatalf("client feedback: %v", err)
	}
	if _, err := w.eng.SubmitFeedback(ctx, w.worker, c.ID, 4, "fair client"); err != nil {
		t.Fatalf("worker feedback: %v", err)
	}
	_, err = w.eng.SubmitFeedback(ctx, w.client, c.ID, 3, "second thoughts")
	if CodeOf(err) != CodeReviewExists {
		t.Fatalf("duplicate review must fail with REVIEW_ALREADY_EXISTS, got %v", err)
	}
}

func TestInvitationProducesDirectInvitationContract(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	n, err := w.eng.Invite(ctx, w.client, ProposalParams{
		JobID: w.job.ID, WorkerID: w.worker.Profile.ID, ProposedRate: 80,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if n.Kind != models.KindInvitation {
		t.Fatalf("kind = %s", n.Kind)
	}

	// The worker is the receiving party for an invitation.
	_, contract, err := w.eng.Respond(ctx, w.worker, n.ID, ActionAccept, "")
	if err != nil || contract == nil {
		t.Fatalf("worker accept: contract=%v err=%v", contract, err)
	}
	if contract.ContractType != models.TypeDirectInvitation || contract.AgreedRate != 80 {
		t.Fatalf("contract: %+v", contract)
	}
}

func TestStartWorkOnlyByAssignedWorker(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)

	if _, err := w.eng.StartWork(ctx, w.client, c.ID); CodeOf(err) != CodeNotFound {
		t.Fatalf("client starting work must read as not found, got %v", err)
	}
	other := identity.WorkerParty{Profile: models.WorkerProfile{ID: uuid.New().String()}}
	if _, err := w.eng.StartWork(ctx, other, c.ID); CodeOf(err) != CodeNotFound {
		t.Fatalf("stranger must read as not found, got %v", err)
	}
}

// A worker may hold at most one contract in {active, in_progress}: once they
// start one, the availability gate blocks starting another.
func TestSingleActiveContractPerWorker(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	first := agreedContract(t, w)

	secondJob := models.JobPosting{ID: uuid.New().String(), ClientID: w.client.Profile.ID, Status: models.JobOpen}
	w.mem.PutJob(secondJob)
	n2, err := w.eng.Apply(ctx, w.worker, ProposalParams{JobID: secondJob.ID, ProposedRate: 50})
	if err != nil {
		t.Fatalf("second application: %v", err)
	}
	_, second, err := w.eng.Respond(ctx, w.client, n2.ID, ActionAccept, "")
	if err != nil || second == nil {
		t.Fatalf("second contract: %v", err)
	}

	if _, err := w.eng.StartWork(ctx, w.worker, first.ID); err != nil {
		t.Fatalf("start first: %v", err)
	}
	_, err = w.eng.StartWork(ctx, w.worker, second.ID)
	if CodeOf(err) != CodeWorkerUnavailable {
		t.Fatalf("second start must fail with WORKER_UNAVAILABLE, got %v", err)
	}

	// After completion submission the worker is free again.
	if _, err := w.eng.CompleteWork(ctx, w.worker, first.ID); err != nil {
		t.Fatalf("complete first: %v", err)
	}
	if _, err := w.eng.StartWork(ctx, w.worker, second.ID); err != nil {
		t.Fatalf("start second after freeing capacity: %v", err)
	}
}

func TestStartWorkRequiresVerifiedUnblockedWorker(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)

	profile := w.worker.Profile
	profile.IsVerified = false
	w.mem.PutWorker(profile)

	_, err := w.eng.StartWork(ctx, w.worker, c.ID)
	if CodeOf(err) != CodeWorkerUnavailable {
		t.Fatalf("unverified worker must be rejected, got %v", err)
	}
}

func TestCancelOnlyBeforeCompletionSubmission(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)

	if _, err := w.eng.StartWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := w.eng.CompleteWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := w.eng.CancelContract(ctx, w.client, c.ID)
	if CodeOf(err) != CodeStateConflict {
		t.Fatalf("cancel after submission must conflict, got %v", err)
	}
	reloaded, _ := w.eng.GetContract(ctx, w.client, c.ID)
	if reloaded.Status != models.ContractAwaitingClient {
		t.Fatalf("contract must be unchanged, got %s", reloaded.Status)
	}

	if _, err := w.eng.ConfirmWorkCompletion(ctx, w.client, c.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := w.eng.CancelContract(ctx, w.worker, c.ID); CodeOf(err) != CodeStateConflict {
		t.Fatalf("cancel after completion must conflict, got %v", err)
	}
}

func TestCancelReopensJobAndFreesWorker(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)

	if _, err := w.eng.StartWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancelled, err := w.eng.CancelContract(ctx, w.worker, c.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.ContractCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}

	worker, _ := w.mem.GetWorker(ctx, w.worker.Profile.ID)
	if worker.Status != models.WorkerAvailable || worker.CurrentJob != nil {
		t.Fatalf("worker not freed: %+v", worker)
	}
	job, _ := w.mem.GetJob(ctx, w.job.ID)
	if job.Status != models.JobOpen || job.HiredWorker != nil {
		t.Fatalf("job not reopened: %+v", job)
	}
}

func TestConfirmOnlyByAssignedClient(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)
	if _, err := w.eng.StartWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := w.eng.CompleteWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := w.eng.ConfirmWorkCompletion(ctx, w.worker, c.ID); CodeOf(err) != CodeNotFound {
		t.Fatalf("worker confirming must read as not found, got %v", err)
	}
}

func TestFeedbackRequiresCompletedContract(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)

	_, err := w.eng.SubmitFeedback(ctx, w.client, c.ID, 5, "premature")
	if CodeOf(err) != CodeStateConflict {
		t.Fatalf("feedback on active contract must conflict, got %v", err)
	}
	if _, err := w.eng.SubmitFeedback(ctx, w.client, c.ID, 6, "x"); CodeOf(err) != CodeValidation {
		t.Fatalf("out-of-range rating must fail validation, got %v", err)
	}
}

func TestRatingSummaryDerivesFromReviews(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)
	if _, err := w.eng.StartWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := w.eng.CompleteWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := w.eng.ConfirmWorkCompletion(ctx, w.client, c.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := w.eng.SubmitFeedback(ctx, w.client, c.ID, 4, "solid"); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	sum, err := w.eng.RatingSummary(ctx, w.worker.Profile.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.ReviewCount != 1 || sum.AverageRating != 4 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestSetWorkerAvailabilityBlockedWhileWorking(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := agreedContract(t, w)
	if _, err := w.eng.StartWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := w.eng.SetWorkerAvailability(ctx, w.worker, false)
	if CodeOf(err) != CodeStateConflict {
		t.Fatalf("toggle while working must conflict, got %v", err)
	}

	if _, err := w.eng.CompleteWork(ctx, w.worker, c.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	updated, err := w.eng.SetWorkerAvailability(ctx, w.worker, false)
	if err != nil {
		t.Fatalf("toggle after completion: %v", err)
	}
	if updated.Status != models.WorkerNotAvailable {
		t.Fatalf("status = %s", updated.Status)
	}
}
