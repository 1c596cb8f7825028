package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"genads/internal/domain"
	"genads/internal/domain/sceneplan"
	"genads/internal/media"
	"genads/internal/providers/audio"
	"genads/internal/providers/extractor"
	"genads/internal/providers/planner"
	"genads/internal/providers/video"
)

func storageError(step domain.JobStatus, err error) error {
	return domain.NewPipelineError(domain.KindStorage, step, err)
}

// asStepError keeps typed pipeline errors and classifies everything else
// under kind.
func asStepError(kind domain.ErrorKind, step domain.JobStatus, err error) error {
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return domain.NewPipelineError(kind, step, err)
}

func (o *Orchestrator) extract(ctx context.Context, r *run) (float64, error) {
	res, err := o.d.Extractor.Extract(ctx, extractor.Source{URL: r.project.ProductImageURL})
	if err != nil {
		return 0, err
	}
	r.product = res
	evt := r.logger.Info().Str("step", "extraction").Str("result", string(res.Kind))
	if res.Reason != "" {
		evt = evt.Str("reason", res.Reason)
	}
	evt.Msg("pipeline: product extracted")
	if !res.HasImage() {
		return o.d.Profile.Costs.Extraction, nil
	}

	key := r.layout.ProductCutout()
	name := "product.png"
	if res.Kind == extractor.KindOriginal {
		ext := extensionFor(res.ContentType)
		key = r.layout.ProductOriginal(ext)
		name = "product" + ext
	}
	if _, err := o.d.Store.Put(ctx, key, res.Data, res.ContentType); err != nil {
		return 0, storageError(domain.JobStatusExtracting, err)
	}
	r.productPath = filepath.Join(r.dir, name)
	if err := os.WriteFile(r.productPath, res.Data, 0o644); err != nil {
		return 0, storageError(domain.JobStatusExtracting, err)
	}
	return o.d.Profile.Costs.Extraction, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func (o *Orchestrator) planScenes(ctx context.Context, r *run) (float64, error) {
	req := planner.RequestFor(*r.project)
	if req.TargetAudience == "" {
		req.TargetAudience = o.d.Profile.Planner.TargetAudience
	}
	plan, err := o.d.Planner.Plan(ctx, req)
	if err != nil {
		return 0, asStepError(domain.KindPlanning, domain.JobStatusPlanning, err)
	}
	raw, err := plan.Encode()
	if err != nil {
		return 0, asStepError(domain.KindPlanning, domain.JobStatusPlanning, err)
	}
	if err := o.d.Jobs.SavePlan(ctx, r.job.ID, raw); err != nil {
		return 0, fmt.Errorf("pipeline: save plan: %w", err)
	}
	r.plan = plan
	r.logger.Info().Int("scenes", len(plan.Scenes)).Float64("duration", plan.DurationSum()).Msg("pipeline: scenes planned")
	return o.d.Profile.Costs.ScenePlanning, nil
}

// generate fans out one video call per scene and waits for all of them.
// Any failed scene fails the step; spend on the scenes that did finish is
// recorded as abandoned cost on the job.
func (o *Orchestrator) generate(ctx context.Context, r *run) (float64, error) {
	scenes := r.plan.Scenes
	assets := make([]*video.Asset, len(scenes))
	errs := make([]error, len(scenes))

	var g errgroup.Group
	for i, sc := range scenes {
		g.Go(func() error {
			asset, err := o.d.Video.Generate(ctx, video.GenerateRequest{
				SceneID:         sc.ID,
				Prompt:          sc.Prompt,
				Style:           r.plan.Style,
				DurationSeconds: sc.Duration,
				RequestID:       fmt.Sprintf("%s-%02d", r.job.ID, sc.ID),
			})
			if err != nil {
				errs[i] = err
				r.logger.Warn().Err(err).Int("scene", sc.ID).Msg("pipeline: scene generation failed")
				return err
			}
			assets[i] = asset
			return nil
		})
	}
	_ = g.Wait()

	perScene := o.d.Profile.Costs.VideoPerScene
	var failed []int
	completed := 0
	for i := range scenes {
		if errs[i] != nil {
			failed = append(failed, scenes[i].ID)
		} else {
			completed++
		}
	}
	if len(failed) > 0 {
		o.abandon(ctx, r, float64(completed)*perScene)
		return 0, &domain.PipelineError{
			Kind:            domain.KindGeneration,
			Step:            domain.JobStatusGenerating,
			FailedScenes:    failed,
			CompletedScenes: completed,
			Err:             errors.Join(errs...),
		}
	}

	r.clips = make([]string, len(scenes))
	for i, sc := range scenes {
		local := filepath.Join(r.dir, "scenes", fmt.Sprintf("scene_%02d.mp4", sc.ID))
		if err := writeLocal(local, assets[i].Data); err != nil {
			o.abandon(ctx, r, float64(completed)*perScene)
			return 0, storageError(domain.JobStatusGenerating, err)
		}
		if _, err := o.d.Store.Put(ctx, r.layout.SceneClip(sc.ID), assets[i].Data, "video/mp4"); err != nil {
			o.abandon(ctx, r, float64(completed)*perScene)
			return 0, storageError(domain.JobStatusGenerating, err)
		}
		r.clips[i] = local
	}
	return float64(len(scenes)) * perScene, nil
}

func (o *Orchestrator) abandon(ctx context.Context, r *run, amount float64) {
	if amount <= 0 {
		return
	}
	pctx, cancel := persistCtx(ctx)
	defer cancel()
	if err := o.d.Jobs.AddAbandonedCost(pctx, r.job.ID, domain.RoundUSD(amount)); err != nil {
		r.logger.Error().Err(err).Float64("cost_usd", amount).Msg("pipeline: abandoned spend not recorded")
	}
}

func (o *Orchestrator) composite(ctx context.Context, r *run) (float64, error) {
	r.composited = make([]string, len(r.plan.Scenes))
	for i, sc := range r.plan.Scenes {
		out := filepath.Join(r.dir, "composited", fmt.Sprintf("scene_%02d.mp4", sc.ID))
		req := media.CompositeRequest{
			ClipPath:   r.clips[i],
			OutputPath: out,
			Position:   sc.ProductPosition,
			Scale:      sc.ProductScale,
			Opacity:    o.d.Profile.Compositing.Opacity,
		}
		if r.productPath != "" && sc.ProductUsage == sceneplan.UsageStaticInsert {
			req.ProductPath = r.productPath
		}
		if err := o.d.Compositor.Composite(ctx, req); err != nil {
			return 0, asStepError(domain.KindCompositing, domain.JobStatusCompositing, fmt.Errorf("scene %d: %w", sc.ID, err))
		}
		if _, err := o.d.Store.PutFile(ctx, r.layout.CompositedClip(sc.ID), out, "video/mp4"); err != nil {
			return 0, storageError(domain.JobStatusCompositing, err)
		}
		r.composited[i] = out
	}
	return o.d.Profile.Costs.Compositing, nil
}

func (o *Orchestrator) overlayText(ctx context.Context, r *run) (float64, error) {
	r.texted = make([]string, len(r.plan.Scenes))
	for i, sc := range r.plan.Scenes {
		out := filepath.Join(r.dir, "text_overlays", fmt.Sprintf("scene_%02d_text.mp4", sc.ID))
		err := o.d.Text.Apply(ctx, media.TextRequest{
			ClipPath:   r.composited[i],
			OutputPath: out,
			Overlays:   sc.Overlays,
		})
		if err != nil {
			return 0, asStepError(domain.KindTextOverlay, domain.JobStatusTextOverlay, fmt.Errorf("scene %d: %w", sc.ID, err))
		}
		if _, err := o.d.Store.PutFile(ctx, r.layout.TextOverlayClip(sc.ID), out, "video/mp4"); err != nil {
			return 0, storageError(domain.JobStatusTextOverlay, err)
		}
		r.texted[i] = out
	}
	return o.d.Profile.Costs.TextOverlay, nil
}

func (o *Orchestrator) music(ctx context.Context, r *run) (float64, error) {
	mood := string(r.project.Mood)
	track, err := o.d.Audio.Generate(ctx, audio.Request{
		Mood:            mood,
		DurationSeconds: r.plan.DurationSum(),
	})
	if err != nil {
		return 0, asStepError(domain.KindAudio, domain.JobStatusAudio, err)
	}
	r.musicPath = filepath.Join(r.dir, "music", "music_"+mood+".mp3")
	if err := writeLocal(r.musicPath, track.Data); err != nil {
		return 0, storageError(domain.JobStatusAudio, err)
	}
	if _, err := o.d.Store.Put(ctx, r.layout.Music(mood), track.Data, "audio/mpeg"); err != nil {
		return 0, storageError(domain.JobStatusAudio, err)
	}
	return o.d.Profile.Costs.Audio, nil
}

func (o *Orchestrator) render(ctx context.Context, r *run) (float64, error) {
	exports, err := o.d.Renderer.Render(ctx, media.RenderRequest{
		Clips:           r.texted,
		MusicPath:       r.musicPath,
		DurationSeconds: r.plan.DurationSum(),
		Targets:         o.d.Profile.Render.Targets,
		WorkDir:         filepath.Join(r.dir, "render"),
	})
	if err != nil {
		return 0, asStepError(domain.KindRender, domain.JobStatusRendering, err)
	}
	r.outputs = make(map[string]string, len(exports))
	for _, aspect := range o.d.Profile.Render.Targets {
		local, ok := exports[aspect]
		if !ok {
			return 0, domain.NewPipelineError(domain.KindRender, domain.JobStatusRendering, fmt.Errorf("missing %s export", aspect))
		}
		key, err := o.d.Store.PutFile(ctx, r.layout.Final(aspect), local, "video/mp4")
		if err != nil {
			return 0, storageError(domain.JobStatusRendering, err)
		}
		r.outputs[aspect] = o.d.Store.URL(key)
	}
	return o.d.Profile.Costs.Rendering, nil
}

func writeLocal(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
