// Package pipeline runs one generation job end to end: extraction,
// planning, per-scene video fan-out, compositing, text overlay, music and
// the final multi-aspect render.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"genads/internal/domain"
	"genads/internal/domain/sceneplan"
	"genads/internal/infra"
	"genads/internal/media"
	"genads/internal/providers/audio"
	"genads/internal/providers/extractor"
	"genads/internal/providers/planner"
	"genads/internal/providers/video"
	"genads/internal/storage"
)

// Compositor, TextOverlayer and Renderer are satisfied by the media package.
type Compositor interface {
	Composite(ctx context.Context, req media.CompositeRequest) error
}

type TextOverlayer interface {
	Apply(ctx context.Context, req media.TextRequest) error
}

type Renderer interface {
	Render(ctx context.Context, req media.RenderRequest) (map[string]string, error)
}

// Deps wires the orchestrator.
type Deps struct {
	Projects   domain.ProjectRepository
	Jobs       domain.JobRepository
	Store      storage.ObjectStore
	Extractor  extractor.Extractor
	Planner    planner.Planner
	Video      video.Generator
	Compositor Compositor
	Text       TextOverlayer
	Audio      audio.Engine
	Renderer   Renderer

	Profile           infra.Profile
	WorkDir           string
	KeepIntermediates bool
	Logger            *infra.Logger
	Tracer            trace.Tracer
}

// Orchestrator is the sole writer of a job while it runs.
type Orchestrator struct {
	d      Deps
	logger *infra.Logger
	tracer trace.Tracer
}

func New(d Deps) (*Orchestrator, error) {
	switch {
	case d.Projects == nil || d.Jobs == nil:
		return nil, errors.New("pipeline: repositories are required")
	case d.Store == nil:
		return nil, errors.New("pipeline: object store is required")
	case d.Extractor == nil || d.Planner == nil || d.Video == nil || d.Audio == nil:
		return nil, errors.New("pipeline: providers are required")
	case d.Compositor == nil || d.Text == nil || d.Renderer == nil:
		return nil, errors.New("pipeline: media tools are required")
	}
	if len(d.Profile.Render.Targets) == 0 {
		d.Profile = infra.DefaultProfile()
	}
	logger := d.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = otel.Tracer("genads/pipeline")
	}
	return &Orchestrator{d: d, logger: logger, tracer: tracer}, nil
}

// run is the per-job state threaded through the steps.
type run struct {
	job     *domain.Job
	project *domain.Project
	layout  storage.Layout
	dir     string
	status  domain.JobStatus
	logger  infra.Logger

	product     extractor.Result
	productPath string
	plan        *sceneplan.Plan
	clips       []string
	composited  []string
	texted      []string
	musicPath   string
	outputs     map[string]string
}

// Run executes job, which must have been claimed and still be QUEUED. A
// cancelled job returns an error wrapping domain.ErrCancellationRequested
// after its spend has been recorded on the project.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		infra.JobAttr.String(job.ID),
		attribute.String("project.id", job.ProjectID),
	))
	defer span.End()

	logger := o.logger.With().Str("job_id", job.ID).Str("project_id", job.ProjectID).Logger()
	r := &run{job: job, status: job.Status, logger: logger}

	err := o.execute(ctx, r)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		return nil
	case errors.Is(err, domain.ErrCancellationRequested):
		span.SetAttributes(attribute.Bool("cancelled", true))
		o.finishCancelled(ctx, r)
		return err
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.fail(ctx, r, err)
		return err
	}
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	project, err := o.d.Projects.GetByID(ctx, r.job.ProjectID)
	if err != nil {
		return fmt.Errorf("pipeline: load project: %w", err)
	}
	r.project = project
	folder := project.StorageFolder
	if folder == "" {
		folder = domain.StorageFolderFor(project.ID)
	}
	r.layout = storage.LayoutFor(folder)

	if o.d.WorkDir != "" {
		if err := os.MkdirAll(o.d.WorkDir, 0o755); err != nil {
			return fmt.Errorf("pipeline: work dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(o.d.WorkDir, "job-"+r.job.ID+"-")
	if err != nil {
		return fmt.Errorf("pipeline: work dir: %w", err)
	}
	defer os.RemoveAll(dir)
	r.dir = dir

	r.logger.Info().Msg("pipeline: job started")
	steps := []struct {
		to domain.JobStatus
		fn func(context.Context, *run) (float64, error)
	}{
		{domain.JobStatusExtracting, o.extract},
		{domain.JobStatusPlanning, o.planScenes},
		{domain.JobStatusGenerating, o.generate},
		{domain.JobStatusCompositing, o.composite},
		{domain.JobStatusTextOverlay, o.overlayText},
		{domain.JobStatusAudio, o.music},
		{domain.JobStatusRendering, o.render},
	}
	for _, s := range steps {
		if err := o.step(ctx, r, s.to, s.fn); err != nil {
			return err
		}
	}
	return o.complete(ctx, r)
}

// step advances to the next state, runs the component and records its
// cost. Cancellation is checked before the advance and after the call.
func (o *Orchestrator) step(ctx context.Context, r *run, to domain.JobStatus, fn func(context.Context, *run) (float64, error)) error {
	if err := o.checkCancelled(ctx, r); err != nil {
		return err
	}
	if err := o.d.Jobs.Advance(ctx, r.job.ID, r.status, to); err != nil {
		return fmt.Errorf("pipeline: advance %s -> %s: %w", r.status, to, err)
	}
	r.status = to
	if err := o.d.Projects.SetStatus(ctx, r.project.ID, domain.ProjectStatusFor(to)); err != nil {
		r.logger.Warn().Err(err).Str("step", string(to)).Msg("pipeline: project status not updated")
	}

	stepCtx, span := o.tracer.Start(ctx, "pipeline.step."+strings.ToLower(string(to)), trace.WithAttributes(
		infra.JobAttr.String(r.job.ID),
		attribute.String("step", string(to)),
	))
	started := time.Now()
	cost, err := fn(stepCtx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return err
	}
	span.SetAttributes(attribute.Float64("cost_usd", cost))
	span.End()

	costStep, ok := to.CostStep()
	if ok {
		entry := domain.CostEntry{Step: costStep, AmountUSD: domain.RoundUSD(cost), RecordedAt: time.Now().UTC()}
		if err := o.d.Jobs.AppendCost(ctx, r.job.ID, entry); err != nil {
			return fmt.Errorf("pipeline: record %s cost: %w", costStep, err)
		}
	}
	r.logger.Info().
		Str("step", string(to)).
		Float64("cost_usd", cost).
		Dur("took", time.Since(started)).
		Msg("pipeline: step completed")
	return o.checkCancelled(ctx, r)
}

func (o *Orchestrator) checkCancelled(ctx context.Context, r *run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	status, err := o.d.Jobs.Status(ctx, r.job.ID)
	if err != nil {
		return fmt.Errorf("pipeline: read job status: %w", err)
	}
	switch {
	case status == domain.JobStatusCancelled:
		return domain.ErrCancellationRequested
	case status.Terminal():
		return fmt.Errorf("%w: job is already %s", domain.ErrInvalidTransition, status)
	}
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, r *run) error {
	if err := o.checkCancelled(ctx, r); err != nil {
		return err
	}
	if err := o.d.Jobs.Complete(ctx, r.job.ID, r.outputs); err != nil {
		return fmt.Errorf("pipeline: complete job: %w", err)
	}
	r.status = domain.JobStatusCompleted
	spent := o.spent(ctx, r)
	if err := o.d.Projects.Finish(ctx, r.project.ID, domain.ProjectStatusFor(domain.JobStatusCompleted), spent, r.outputs, ""); err != nil {
		r.logger.Error().Err(err).Msg("pipeline: project not finished")
	}
	if !o.d.KeepIntermediates {
		removed, err := storage.DeletePrefix(ctx, o.d.Store, r.layout.DraftPrefix())
		if err != nil {
			r.logger.Warn().Err(err).Msg("pipeline: draft cleanup incomplete")
		} else {
			r.logger.Debug().Int("removed", removed).Msg("pipeline: drafts removed")
		}
	}
	r.logger.Info().Float64("cost_usd", spent).Msg("pipeline: job completed")
	return nil
}

// persistCtx survives the job's deadline so failures can still be written.
func persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
}

func (o *Orchestrator) spent(ctx context.Context, r *run) float64 {
	latest, err := o.d.Jobs.GetByID(ctx, r.job.ID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("pipeline: reload job for spend")
		return 0
	}
	return latest.SpentUSD()
}

func (o *Orchestrator) fail(ctx context.Context, r *run, cause error) {
	pctx, cancel := persistCtx(ctx)
	defer cancel()

	kind := domain.KindOf(cause)
	msg := cause.Error()
	if kind == domain.KindTimeout {
		msg = "job exceeded its time limit: " + msg
	}
	msg = domain.TruncateMessage(msg, domain.MaxErrorMessageLen)

	if err := o.d.Jobs.Fail(pctx, r.job.ID, kind, msg); err != nil {
		if errors.Is(err, domain.ErrCancellationRequested) {
			o.finishCancelled(ctx, r)
			return
		}
		r.logger.Error().Err(err).Msg("pipeline: job failure not persisted")
		return
	}
	r.logger.Error().Err(cause).Str("kind", string(kind)).Str("step", string(r.status)).Msg("pipeline: job failed")
	if r.project == nil {
		return
	}
	spent := o.spent(pctx, r)
	if err := o.d.Projects.Finish(pctx, r.project.ID, domain.ProjectStatusFor(domain.JobStatusFailed), spent, nil, msg); err != nil {
		r.logger.Error().Err(err).Msg("pipeline: project failure not persisted")
	}
}

func (o *Orchestrator) finishCancelled(ctx context.Context, r *run) {
	pctx, cancel := persistCtx(ctx)
	defer cancel()
	r.logger.Info().Str("step", string(r.status)).Msg("pipeline: job cancelled")
	if r.project == nil {
		return
	}
	spent := o.spent(pctx, r)
	if err := o.d.Projects.Finish(pctx, r.project.ID, domain.ProjectStatusFor(domain.JobStatusCancelled), spent, nil, ""); err != nil {
		r.logger.Error().Err(err).Msg("pipeline: project cancellation not persisted")
	}
}
