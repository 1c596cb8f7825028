package domain

import (
	"context"
	"time"
)

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	GetForUser(ctx context.Context, userID, id string) (*Project, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Project, error)
	SetStatus(ctx context.Context, id string, status ProjectStatus) error
	// Finish records a terminal outcome and adds spentUSD to the project's
	// accumulated cost.
	Finish(ctx context.Context, id string, status ProjectStatus, spentUSD float64, outputs map[string]string, errMsg string) error
	Reset(ctx context.Context, id string) error
	PurgeFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobRepository persists generation jobs. Status changes are
// compare-and-set on the current status.
type JobRepository interface {
	Enqueue(ctx context.Context, projectID, userID string) (*Job, error)
	GetByID(ctx context.Context, id string) (*Job, error)
	LatestForProject(ctx context.Context, projectID string) (*Job, error)
	ClaimNext(ctx context.Context, workerID string) (*Job, error)
	Status(ctx context.Context, id string) (JobStatus, error)
	Advance(ctx context.Context, id string, from, to JobStatus) error
	AppendCost(ctx context.Context, id string, entry CostEntry) error
	AddAbandonedCost(ctx context.Context, id string, amountUSD float64) error
	SavePlan(ctx context.Context, id string, plan []byte) error
	Complete(ctx context.Context, id string, outputs map[string]string) error
	Fail(ctx context.Context, id string, kind ErrorKind, msg string) error
	Cancel(ctx context.Context, id string) error
	ReapStale(ctx context.Context, startedBefore time.Time, msg string) ([]Job, error)
}
