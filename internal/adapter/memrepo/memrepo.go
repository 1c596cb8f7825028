// Package memrepo keeps projects and jobs in memory. It mirrors the
// compare-and-set semantics of the Postgres repositories and backs tests
// and local runs without a database.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"genads/internal/domain"
)

// Store implements domain.ProjectRepository and domain.JobRepository.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	projects map[string]*domain.Project
	jobs     map[string]*domain.Job
	order    []string
}

func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		projects: map[string]*domain.Project{},
		jobs:     map[string]*domain.Job{},
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Projects and Jobs expose the two repository views of one store.
func (s *Store) Projects() domain.ProjectRepository { return projectView{s} }
func (s *Store) Jobs() domain.JobRepository { return jobView{s} }

type projectView struct{ s *Store }
type jobView struct{ s *Store }

func cloneProject(p *domain.Project) *domain.Project {
	cp := *p
	cp.Outputs = cloneMap(p.Outputs)
	return &cp
}

func cloneJob(j *domain.Job) *domain.Job {
	cp := *j
	cp.Outputs = cloneMap(j.Outputs)
	if j.ScenePlan != nil {
		cp.ScenePlan = append([]byte(nil), j.ScenePlan...)
	}
	cp.Ledger, _ = domain.NewCostLedger(j.Ledger.Entries())
	return &cp
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (v projectView) Create(ctx context.Context, p *domain.Project) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.StorageFolder = domain.StorageFolderFor(p.ID)
	p.Status = domain.ProjectStatusPending
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	if p.Outputs == nil {
		p.Outputs = map[string]string{}
	}
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (v projectView) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProject(p), nil
}

func (v projectView) GetForUser(ctx context.Context, userID, id string) (*domain.Project, error) {
	p, err := v.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (v projectView) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Project, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Project{}
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, *cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []domain.Project{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (v projectView) mutate(id string, fn func(p *domain.Project)) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(p)
	p.UpdatedAt = s.now()
	return nil
}

func (v projectView) SetStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	return v.mutate(id, func(p *domain.Project) { p.Status = status })
}

func (v projectView) Finish(ctx context.Context, id string, status domain.ProjectStatus, spentUSD float64, outputs map[string]string, errMsg string) error {
	return v.mutate(id, func(p *domain.Project) {
		p.Status = status
		p.CostUSD = domain.RoundUSD(p.CostUSD + spentUSD)
		p.Outputs = cloneMap(outputs)
		p.ErrorMessage = domain.TruncateMessage(errMsg, domain.MaxErrorMessageLen)
	})
}

func (v projectView) Reset(ctx context.Context, id string) error {
	return v.mutate(id, func(p *domain.Project) {
		p.Status = domain.ProjectStatusPending
		p.Outputs = map[string]string{}
		p.ErrorMessage = ""
	})
}

func (v projectView) PurgeFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.projects {
		if p.Status == domain.ProjectStatus(domain.JobStatusFailed) && p.UpdatedAt.Before(cutoff) {
			delete(s.projects, id)
			n++
		}
	}
	return n, nil
}

func (v jobView) Enqueue(ctx context.Context, projectID, userID string) (*domain.Job, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ProjectID == projectID && !j.Status.Terminal() {
			return nil, domain.ErrJobInFlight
		}
	}
	now := s.now()
	job := &domain.Job{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		UserID:      userID,
		Status:      domain.JobStatusQueued,
		CurrentStep: domain.JobStatusQueued.Label(),
		Outputs:     map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return cloneJob(job), nil
}

func (v jobView) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (v jobView) LatestForProject(ctx context.Context, projectID string) (*domain.Job, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		if j := s.jobs[s.order[i]]; j.ProjectID == projectID {
			return cloneJob(j), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v jobView) ClaimNext(ctx context.Context, workerID string) (*domain.Job, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Status == domain.JobStatusQueued && j.StartedAt == nil {
			now := s.now()
			j.StartedAt = &now
			j.UpdatedAt = now
			return cloneJob(j), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v jobView) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	j, err := v.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return j.Status, nil
}

// guarded runs fn while the job is in want (any non-terminal state when
// want is empty) and explains the miss otherwise.
func (v jobView) guarded(id string, want domain.JobStatus, fn func(j *domain.Job)) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if (want != "" && j.Status != want) || (want == "" && j.Status.Terminal()) {
		if j.Status == domain.JobStatusCancelled {
			return domain.ErrCancellationRequested
		}
		return fmt.Errorf("%w: job is %s", domain.ErrInvalidTransition, j.Status)
	}
	fn(j)
	j.UpdatedAt = s.now()
	return nil
}

func (v jobView) Advance(ctx context.Context, id string, from, to domain.JobStatus) error {
	if !domain.CanTransition(from, to) || to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return v.guarded(id, from, func(j *domain.Job) {
		j.Status = to
		if p, ok := to.Progress(); ok && p > j.Progress {
			j.Progress = p
		}
		j.CurrentStep = to.Label()
	})
}

func (v jobView) AppendCost(ctx context.Context, id string, entry domain.CostEntry) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	return j.Ledger.Append(entry)
}

func (v jobView) AddAbandonedCost(ctx context.Context, id string, amountUSD float64) error {
	if amountUSD < 0 {
		return fmt.Errorf("%w: abandoned %v", domain.ErrLedgerNegative, amountUSD)
	}
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.AbandonedCostUSD = domain.RoundUSD(j.AbandonedCostUSD + amountUSD)
	return nil
}

func (v jobView) SavePlan(ctx context.Context, id string, plan []byte) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.ScenePlan = append([]byte(nil), plan...)
	return nil
}

func (v jobView) Complete(ctx context.Context, id string, outputs map[string]string) error {
	return v.guarded(id, domain.JobStatusRendering, func(j *domain.Job) {
		now := v.s.now()
		j.Status = domain.JobStatusCompleted
		j.Progress = 100
		j.CurrentStep = domain.JobStatusCompleted.Label()
		j.Outputs = cloneMap(outputs)
		j.FinishedAt = &now
	})
}

func (v jobView) Fail(ctx context.Context, id string, kind domain.ErrorKind, msg string) error {
	return v.guarded(id, "", func(j *domain.Job) {
		now := v.s.now()
		j.Status = domain.JobStatusFailed
		j.CurrentStep = domain.JobStatusFailed.Label()
		j.ErrorKind = kind
		j.ErrorMessage = domain.TruncateMessage(msg, domain.MaxErrorMessageLen)
		j.FinishedAt = &now
	})
}

func (v jobView) Cancel(ctx context.Context, id string) error {
	err := v.guarded(id, "", func(j *domain.Job) {
		now := v.s.now()
		j.Status = domain.JobStatusCancelled
		j.CurrentStep = domain.JobStatusCancelled.Label()
		j.FinishedAt = &now
	})
	if err != nil && err != domain.ErrNotFound {
		return domain.ErrNotCancellable
	}
	return err
}

func (v jobView) ReapStale(ctx context.Context, startedBefore time.Time, msg string) ([]domain.Job, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var reaped []domain.Job
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Status.Terminal() || j.StartedAt == nil || !j.StartedAt.Before(startedBefore) {
			continue
		}
		now := s.now()
		j.Status = domain.JobStatusFailed
		j.CurrentStep = domain.JobStatusFailed.Label()
		j.ErrorKind = domain.KindTimeout
		j.ErrorMessage = domain.TruncateMessage(msg, domain.MaxErrorMessageLen)
		j.FinishedAt = &now
		j.UpdatedAt = now
		reaped = append(reaped, *cloneJob(j))
	}
	return reaped, nil
}
