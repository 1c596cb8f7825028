package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"genads/internal/db"
	"genads/internal/domain"
	"genads/internal/infra"
	"genads/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository. Every status write is a
// compare-and-set so a concurrent cancel always wins over the orchestrator.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Enqueue creates a QUEUED job. The partial unique index turns a second
// active job for the same project into ErrJobInFlight.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, projectID, userID string) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QEnqueueJob, projectID, userID))
	if err != nil {
		if infra.IsUniqueViolation(err, db.ActiveJobIndex) {
			return nil, domain.ErrJobInFlight
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, id))
}

func (r *JobRepositoryPG) LatestForProject(ctx context.Context, projectID string) (*domain.Job, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, domain.ErrNotFound
	}
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectLatestJobForProject, projectID))
}

// ClaimNext returns ErrNotFound when the queue is empty.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context, workerID string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QClaimNextJob, workerID))
}

func (r *JobRepositoryPG) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	var status string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectJobStatus, id).Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return domain.JobStatus(status), nil
}

func (r *JobRepositoryPG) Advance(ctx context.Context, id string, from, to domain.JobStatus) error {
	if !domain.CanTransition(from, to) || to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	progress, _ := to.Progress()
	tag, err := r.sql.Exec(ctx, sqlinline.QAdvanceJob, id, string(from), string(to), progress, to.Label())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.casMiss(ctx, id, from, to)
	}
	return nil
}

func (r *JobRepositoryPG) AppendCost(ctx context.Context, id string, entry domain.CostEntry) error {
	if entry.AmountUSD < 0 {
		return fmt.Errorf("%w: %s %v", domain.ErrLedgerNegative, entry.Step, entry.AmountUSD)
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QAppendJobCost, id, raw, string(entry.Step))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Status(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", domain.ErrLedgerDuplicateStep, entry.Step)
	}
	return nil
}

func (r *JobRepositoryPG) AddAbandonedCost(ctx context.Context, id string, amountUSD float64) error {
	if amountUSD < 0 {
		return fmt.Errorf("%w: abandoned %v", domain.ErrLedgerNegative, amountUSD)
	}
	return r.execOne(ctx, sqlinline.QAddAbandonedCost, id, amountUSD)
}

func (r *JobRepositoryPG) SavePlan(ctx context.Context, id string, plan []byte) error {
	return r.execOne(ctx, sqlinline.QSaveJobPlan, id, plan)
}

func (r *JobRepositoryPG) Complete(ctx context.Context, id string, outputs map[string]string) error {
	raw, err := marshalOutputs(outputs)
	if err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteJob, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.casMiss(ctx, id, domain.JobStatusRendering, domain.JobStatusCompleted)
	}
	return nil
}

func (r *JobRepositoryPG) Fail(ctx context.Context, id string, kind domain.ErrorKind, msg string) error {
	msg = domain.TruncateMessage(msg, domain.MaxErrorMessageLen)
	tag, err := r.sql.Exec(ctx, sqlinline.QFailJob, id, string(kind), msg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.casMiss(ctx, id, "", domain.JobStatusFailed)
	}
	return nil
}

func (r *JobRepositoryPG) Cancel(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QCancelJob, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Status(ctx, id); err != nil {
			return err
		}
		return domain.ErrNotCancellable
	}
	return nil
}

func (r *JobRepositoryPG) ReapStale(ctx context.Context, startedBefore time.Time, msg string) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QReapStaleJobs, startedBefore, domain.TruncateMessage(msg, domain.MaxErrorMessageLen))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// casMiss explains why a guarded update touched no row.
func (r *JobRepositoryPG) casMiss(ctx context.Context, id string, from, to domain.JobStatus) error {
	current, err := r.Status(ctx, id)
	if err != nil {
		return err
	}
	if current == domain.JobStatusCancelled {
		return domain.ErrCancellationRequested
	}
	return fmt.Errorf("%w: job is %s, not %s (wanted %s)", domain.ErrInvalidTransition, current, from, to)
}

func (r *JobRepositoryPG) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job       domain.Job
		status    string
		kind      string
		ledgerRaw []byte
		planRaw   []byte
		outputs   []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&job.UserID,
		&status,
		&job.Progress,
		&job.CurrentStep,
		&ledgerRaw,
		&job.AbandonedCostUSD,
		&kind,
		&job.ErrorMessage,
		&planRaw,
		&outputs,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	job.ErrorKind = domain.ErrorKind(kind)
	job.ScenePlan = nullableBytes(planRaw)
	if len(ledgerRaw) > 0 {
		if err := json.Unmarshal(ledgerRaw, &job.Ledger); err != nil {
			return nil, fmt.Errorf("decode cost ledger: %w", err)
		}
	}
	var err error
	if job.Outputs, err = unmarshalOutputs(outputs); err != nil {
		return nil, fmt.Errorf("decode job outputs: %w", err)
	}
	return &job, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
