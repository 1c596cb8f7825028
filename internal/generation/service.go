// Package generation is the lifecycle surface the API exposes for ad
// generation: trigger, poll, cancel and reset on top of the repositories
// the worker writes.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genads/internal/domain"
	"genads/internal/infra"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service struct {
	projects domain.ProjectRepository
	jobs     domain.JobRepository
	logger   *infra.Logger
}

func NewService(projects domain.ProjectRepository, jobs domain.JobRepository, logger *infra.Logger) *Service {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{projects: projects, jobs: jobs, logger: logger}
}

// Progress is what a polling client sees for one project.
type Progress struct {
	ProjectID      string               `json:"project_id"`
	JobID          string               `json:"job_id,omitempty"`
	Status         string               `json:"status"`
	ProjectStatus  domain.ProjectStatus `json:"project_status"`
	Progress       int                  `json:"progress"`
	CurrentStep    string               `json:"current_step"`
	CostUSD        float64              `json:"cost_usd"`
	ProjectCostUSD float64              `json:"project_cost_usd"`
	Ledger         []domain.CostEntry   `json:"cost_breakdown"`
	ErrorKind      domain.ErrorKind     `json:"error_kind,omitempty"`
	ErrorMessage   string               `json:"error_message,omitempty"`
	Outputs        map[string]string    `json:"outputs"`
	StartedAt      *time.Time           `json:"started_at,omitempty"`
	FinishedAt     *time.Time           `json:"finished_at,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (s *Service) CreateProject(ctx context.Context, userID string, p *domain.Project) (*domain.Project, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	p.UserID = userID
	p.ID = ""
	p.Status = ""
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("generation: create project: %w", err)
	}
	s.logger.Info().Str("project_id", p.ID).Str("user_id", userID).Msg("generation: project created")
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.projects.GetForUser(ctx, userID, projectID)
}

// ListProjects pages the user's projects, newest first.
func (s *Service) ListProjects(ctx context.Context, userID string, limit, offset int) ([]domain.Project, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.projects.ListByUser(ctx, userID, limit, offset)
}

// Trigger queues a fresh job. A project whose last job reached a terminal
// state has to be reset first.
func (s *Service) Trigger(ctx context.Context, userID, projectID string) (*domain.Job, error) {
	project, err := s.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	latest, err := s.latest(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if latest != nil && !latest.Status.Terminal() {
		return nil, domain.ErrJobInFlight
	}
	if project.Status != domain.ProjectStatusPending {
		return nil, domain.ErrResetRequired
	}

	job, err := s.jobs.Enqueue(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrJobInFlight) {
			return nil, err
		}
		return nil, fmt.Errorf("generation: enqueue: %w", err)
	}
	if err := s.projects.SetStatus(ctx, projectID, domain.ProjectStatusFor(domain.JobStatusQueued)); err != nil {
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("generation: project status not updated")
	}
	s.logger.Info().Str("project_id", projectID).Str("job_id", job.ID).Msg("generation: job queued")
	return job, nil
}

// Status reports the latest job of the project, or the bare project state
// when it never ran.
func (s *Service) Status(ctx context.Context, userID, projectID string) (*Progress, error) {
	project, err := s.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	out := &Progress{
		ProjectID:      project.ID,
		Status:         string(project.Status),
		ProjectStatus:  project.Status,
		ProjectCostUSD: project.CostUSD,
		Ledger:         []domain.CostEntry{},
		Outputs:        project.Outputs,
		ErrorMessage:   project.ErrorMessage,
		UpdatedAt:      project.UpdatedAt,
	}
	if out.Outputs == nil {
		out.Outputs = map[string]string{}
	}

	job, err := s.latest(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		out.CurrentStep = "Pending"
		return out, nil
	}
	out.JobID = job.ID
	out.Status = string(job.Status)
	out.Progress = job.Progress
	out.CurrentStep = job.Status.Label()
	out.CostUSD = job.SpentUSD()
	out.Ledger = job.Ledger.Entries()
	out.ErrorKind = job.ErrorKind
	out.ErrorMessage = job.ErrorMessage
	out.StartedAt = job.StartedAt
	out.FinishedAt = job.FinishedAt
	out.UpdatedAt = job.UpdatedAt
	if len(job.Outputs) > 0 {
		out.Outputs = job.Outputs
	}
	return out, nil
}

// Cancel stops the project's active job. The worker notices at its next
// step boundary.
func (s *Service) Cancel(ctx context.Context, userID, projectID string) (*domain.Job, error) {
	if _, err := s.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	job, err := s.latest(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.Status.Terminal() {
		return nil, domain.ErrNotCancellable
	}
	if err := s.jobs.Cancel(ctx, job.ID); err != nil {
		return nil, err
	}
	if err := s.projects.SetStatus(ctx, projectID, domain.ProjectStatusFor(domain.JobStatusCancelled)); err != nil {
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("generation: project status not updated")
	}
	s.logger.Info().Str("project_id", projectID).Str("job_id", job.ID).Str("step", string(job.Status)).Msg("generation: job cancelled")
	return s.jobs.GetByID(ctx, job.ID)
}

// Reset returns a project to PENDING so Trigger accepts it again. Earlier
// jobs and the accumulated cost are kept.
func (s *Service) Reset(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	if _, err := s.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	job, err := s.latest(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if job != nil && !job.Status.Terminal() {
		return nil, domain.ErrJobInFlight
	}
	if err := s.projects.Reset(ctx, projectID); err != nil {
		return nil, fmt.Errorf("generation: reset project: %w", err)
	}
	s.logger.Info().Str("project_id", projectID).Msg("generation: project reset")
	return s.projects.GetByID(ctx, projectID)
}

func (s *Service) latest(ctx context.Context, projectID string) (*domain.Job, error) {
	job, err := s.jobs.LatestForProject(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("generation: latest job: %w", err)
	}
	return job, nil
}
