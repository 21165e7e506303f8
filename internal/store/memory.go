package store

import (
	"context"
	"sync"
	"time"

	"gigwork-engine/internal/models"
)

// Memory is an in-process implementation of the engine's store contract,
// used by tests and local development. A single mutex stands in for the
// database transaction: every multi-entity transition executes atomically
// with respect to every other call.
type Memory struct {
	mu            sync.Mutex
	workers       map[string]models.WorkerProfile
	clients       map[string]models.ClientProfile
	jobs          map[string]models.JobPosting
	negotiations  map[string]models.Negotiation
	contracts     map[string]models.WorkContract
	conversations map[string]models.Conversation
	reviews       map[string]models.Review
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		workers:       make(map[string]models.WorkerProfile),
		clients:       make(map[string]models.ClientProfile),
		jobs:          make(map[string]models.JobPosting),
		negotiations:  make(map[string]models.Negotiation),
		contracts:     make(map[string]models.WorkContract),
		conversations: make(map[string]models.Conversation),
		reviews:       make(map[string]models.Review),
	}
}

// Seed helpers for tests and local fixtures.

func (m *Memory) PutWorker(w models.WorkerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
}

func (m *Memory) PutClient(c models.ClientProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
}

func (m *Memory) PutJob(j models.JobPosting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
}

// ContractCount reports how many contracts exist, for race assertions.
func (m *Memory) ContractCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contracts)
}

func (m *Memory) GetWorker(_ context.Context, id string) (models.WorkerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return models.WorkerProfile{}, ErrNotFound
	}
	return w, nil
}

func (m *Memory) GetWorkerByCredential(_ context.Context, credentialID string) (models.WorkerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		if w.CredentialID == credentialID {
			return w, nil
		}
	}
	return models.WorkerProfile{}, ErrNotFound
}

func (m *Memory) GetClient(_ context.Context, id string) (models.ClientProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return models.ClientProfile{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) GetClientByCredential(_ context.Context, credentialID string) (models.ClientProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.CredentialID == credentialID {
			return c, nil
		}
	}
	return models.ClientProfile{}, ErrNotFound
}

func (m *Memory) SetWorkerAvailability(_ context.Context, workerID string, status models.WorkerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerID]
	if !ok {
		return ErrNotFound
	}
	w.Status = status
	w.CurrentJob = nil
	m.workers[workerID] = w
	return nil
}

func (m *Memory) IncrementJobsCompleted(_ context.Context, workerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[workerID]
	if !ok {
		return ErrNotFound
	}
	w.TotalJobsCompleted++
	m.workers[workerID] = w
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (models.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return models.JobPosting{}, ErrNotFound
	}
	return j, nil
}

func (m *Memory) CreateNegotiation(_ context.Context, n models.Negotiation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.negotiations[n.ID] = n
	return nil
}

func (m *Memory) GetNegotiation(_ context.Context, id string) (models.Negotiation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.negotiations[id]
	if !ok {
		return models.Negotiation{}, ErrNotFound
	}
	return n, nil
}

func statusIn(s models.NegotiationStatus, from []models.NegotiationStatus) bool {
	for _, f := range from {
		if s == f {
			return true
		}
	}
	return false
}

func (m *Memory) TransitionNegotiation(_ context.Context, t NegotiationTransition) (models.Negotiation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.negotiations[t.ID]
	if !ok || !statusIn(n.Status, t.From) {
		return models.Negotiation{}, false, nil
	}
	n.Status = t.To
	if t.RespondedAt != nil {
		n.RespondedAt = t.RespondedAt
	}
	if t.ClientAgreedAt != nil {
		n.ClientAgreedAt = t.ClientAgreedAt
	}
	if t.WorkerAgreedAt != nil {
		n.WorkerAgreedAt = t.WorkerAgreedAt
	}
	n.UpdatedAt = time.Now().UTC()
	m.negotiations[t.ID] = n
	return n, true, nil
}

func (m *Memory) AcceptNegotiation(_ context.Context, p AcceptNegotiationParams) (models.WorkContract, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.negotiations[p.NegotiationID]
	if !ok || !statusIn(n.Status, p.From) || n.ContractID != nil {
		return models.WorkContract{}, false, nil
	}

	c := p.Contract
	c.Status = models.ContractActive
	c.UpdatedAt = c.CreatedAt

	n.Status = models.NegotiationAccepted
	if p.RespondedAt != nil {
		n.RespondedAt = p.RespondedAt
	}
	if p.ClientAgreedAt != nil {
		n.ClientAgreedAt = p.ClientAgreedAt
	}
	if p.WorkerAgreedAt != nil {
		n.WorkerAgreedAt = p.WorkerAgreedAt
	}
	n.ContractID = &c.ID
	n.UpdatedAt = time.Now().UTC()
	m.negotiations[n.ID] = n
	m.contracts[c.ID] = c

	if j, ok := m.jobs[c.JobID]; ok {
		j.Status = models.JobHired
		worker := c.WorkerID
		j.HiredWorker = &worker
		m.jobs[j.ID] = j
	}
	return c, true, nil
}

func (m *Memory) EnsureConversation(_ context.Context, conv models.Conversation) (models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := conv.ClientID + "/" + conv.WorkerID
	if existing, ok := m.conversations[key]; ok {
		return existing, nil
	}
	m.conversations[key] = conv
	return conv, nil
}

func (m *Memory) GetContract(_ context.Context, id string) (models.WorkContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok || c.IsDeleted {
		return models.WorkContract{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) StartContractWork(_ context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok || c.IsDeleted || c.Status != models.ContractActive {
		return models.WorkContract{}, false, nil
	}
	w, ok := m.workers[c.WorkerID]
	if !ok {
		return models.WorkContract{}, false, ErrNotFound
	}
	if !w.CanAcceptNewContract() {
		return models.WorkContract{}, false, ErrWorkerUnavailable
	}

	c.Status = models.ContractInProgress
	c.StartDate = &now
	c.UpdatedAt = now
	m.contracts[c.ID] = c

	w.StartWorking(c.JobID)
	m.workers[w.ID] = w

	if j, ok := m.jobs[c.JobID]; ok {
		j.Status = models.JobInProgress
		m.jobs[j.ID] = j
	}
	return c, true, nil
}

func (m *Memory) CompleteContractWork(_ context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok || c.IsDeleted || c.Status != models.ContractInProgress {
		return models.WorkContract{}, false, nil
	}

	c.Status = models.ContractAwaitingClient
	c.WorkerCompletedAt = &now
	c.UpdatedAt = now
	m.contracts[c.ID] = c

	if w, ok := m.workers[c.WorkerID]; ok {
		w.BecomeAvailable()
		m.workers[w.ID] = w
	}
	if j, ok := m.jobs[c.JobID]; ok {
		j.Status = models.JobCompleted
		m.jobs[j.ID] = j
	}
	return c, true, nil
}

func (m *Memory) ConfirmContractCompletion(_ context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok || c.IsDeleted || c.Status != models.ContractAwaitingClient {
		return models.WorkContract{}, false, nil
	}

	c.Status = models.ContractCompleted
	c.ClientConfirmedAt = &now
	c.CompletedAt = &now
	c.ActualEndDate = &now
	c.UpdatedAt = now
	m.contracts[c.ID] = c

	if j, ok := m.jobs[c.JobID]; ok {
		j.Status = models.JobCompleted
		m.jobs[j.ID] = j
	}
	return c, true, nil
}

func (m *Memory) CancelContract(_ context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok || c.IsDeleted || (c.Status != models.ContractActive && c.Status != models.ContractInProgress) {
		return models.WorkContract{}, false, nil
	}

	c.Status = models.ContractCancelled
	c.ActualEndDate = &now
	c.UpdatedAt = now
	m.contracts[c.ID] = c

	if w, ok := m.workers[c.WorkerID]; ok {
		w.BecomeAvailable()
		m.workers[w.ID] = w
	}
	if j, ok := m.jobs[c.JobID]; ok {
		j.Status = models.JobOpen
		j.HiredWorker = nil
		m.jobs[j.ID] = j
	}
	return c, true, nil
}

func (m *Memory) CreateReview(_ context.Context, r models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.ContractID == r.ContractID && existing.ReviewerType == r.ReviewerType && !existing.IsDeleted {
			return ErrDuplicateReview
		}
	}
	m.reviews[r.ID] = r
	return nil
}

func (m *Memory) RatingSummary(_ context.Context, revieweeID string) (models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := models.RatingSummary{RevieweeID: revieweeID}
	total := 0
	for _, r := range m.reviews {
		if r.RevieweeID == revieweeID && !r.IsDeleted {
			total += r.Rating
			sum.ReviewCount++
		}
	}
	if sum.ReviewCount > 0 {
		sum.AverageRating = float64(total) / float64(sum.ReviewCount)
	}
	return sum, nil
}
