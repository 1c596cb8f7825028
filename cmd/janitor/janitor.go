package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"genads/internal/domain"
)

type janitor struct {
	jobs     domain.JobRepository
	projects domain.ProjectRepository
	now      func() time.Time
	out      io.Writer
}

// run fails jobs that outlived timeout, moves their projects to FAILED with
// whatever they spent, and optionally purges old FAILED projects.
func (j *janitor) run(ctx context.Context, timeout time.Duration, purgeDays int) error {
	msg := reapMessage(timeout)
	reaped, err := j.jobs.ReapStale(ctx, j.now().Add(-timeout), msg)
	if err != nil {
		return fmt.Errorf("reap stale jobs: %w", err)
	}
	for _, job := range reaped {
		err := j.projects.Finish(ctx, job.ProjectID, domain.ProjectStatusFor(domain.JobStatusFailed), job.SpentUSD(), nil, msg)
		if err != nil {
			return fmt.Errorf("finish project %s: %w", job.ProjectID, err)
		}
		fmt.Fprintf(j.out, "failed job %s (project %s) after %s\n", job.ID, job.ProjectID, timeout)
	}
	fmt.Fprintf(j.out, "reaped %d stale job(s)\n", len(reaped))

	if purgeDays <= 0 {
		return nil
	}
	purged, err := j.projects.PurgeFailedBefore(ctx, j.now().AddDate(0, 0, -purgeDays))
	if err != nil {
		return fmt.Errorf("purge failed projects: %w", err)
	}
	fmt.Fprintf(j.out, "purged %d failed project(s) older than %d day(s)\n", purged, purgeDays)
	return nil
}
