package main

import (
	"context"
	"errors"
	"time"

	"genads/internal/domain"
	"genads/internal/infra"
)

type jobRunner interface {
	Run(ctx context.Context, job *domain.Job) error
}

// jobWorker claims one job at a time and drives it to a terminal state.
type jobWorker struct {
	id           string
	jobs         domain.JobRepository
	runner       jobRunner
	logger       infra.Logger
	pollInterval time.Duration
	jobTimeout   time.Duration
}

// Run polls until ctx is done. A job already claimed runs to completion on
// its own deadline even after ctx is cancelled.
func (w *jobWorker) Run(ctx context.Context) error {
	w.logger.Info().Str("worker_id", w.id).Dur("job_timeout", w.jobTimeout).Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimNext(ctx, w.id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			if err := sleep(ctx, w.pollInterval); err != nil {
				return err
			}
			continue
		}

		w.handleJob(job)
	}
}

func (w *jobWorker) handleJob(job *domain.Job) {
	logger := w.logger.With().Str("job_id", job.ID).Str("project_id", job.ProjectID).Logger()
	logger.Info().Msg("worker: picked job")

	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	started := time.Now()
	err := w.runner.Run(ctx, job)
	switch {
	case err == nil:
		logger.Info().Dur("took", time.Since(started)).Msg("worker: job completed")
	case errors.Is(err, domain.ErrCancellationRequested):
		logger.Info().Dur("took", time.Since(started)).Msg("worker: job cancelled")
	default:
		logger.Error().Err(err).Str("kind", string(domain.KindOf(err))).Dur("took", time.Since(started)).Msg("worker: job failed")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
