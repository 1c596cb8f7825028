package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"genads/internal/adapter/repo"
	"genads/internal/db"
	"genads/internal/infra"
	"genads/internal/infra/credentials"
	"genads/internal/media"
	"genads/internal/pipeline"
	"genads/internal/providers/audio"
	"genads/internal/providers/extractor"
	"genads/internal/providers/planner"
	"genads/internal/providers/replicate"
	"genads/internal/providers/video"
	"genads/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg, infra.ProcessWorker)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, runner); err != nil {
			logger.Fatal().Err(err).Msg("worker: migrate failed")
		}
	}

	profile, err := infra.LoadProfile(cfg.PipelineConfigPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid pipeline profile")
	}

	shutdownTracing, err := infra.SetupTracing(ctx, "genads-worker", cfg.TracingEnabled, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: tracing setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}
	defer closeStore()

	creds := credentials.NewStore(runner)
	deps, err := buildDeps(ctx, cfg, profile, creds, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure providers")
	}
	deps.Projects = repo.NewProjectRepository(runner)
	deps.Jobs = repo.NewJobRepository(runner)
	deps.Store = store

	orchestrator, err := pipeline.New(deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to build pipeline")
	}

	hostname, _ := os.Hostname()
	worker := &jobWorker{
		id:           fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
		jobs:         deps.Jobs,
		runner:       orchestrator,
		logger:       logger,
		pollInterval: cfg.JobPollInterval,
		jobTimeout:   cfg.JobTimeout,
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// buildDeps wires the provider stack. A missing Replicate token is fatal;
// a missing LLM key falls back to the template planner.
func buildDeps(ctx context.Context, cfg *infra.Config, profile infra.Profile, creds *credentials.Store, logger infra.Logger) (pipeline.Deps, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	replicateToken, err := creds.Resolve(ctx, credentials.ProviderReplicate, cfg.ReplicateAPIToken)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load replicate token from store")
	}
	replicateLogger := infra.ComponentLogger(logger, "replicate")
	rep := replicate.NewClient(replicate.Options{
		Token:        replicateToken,
		BaseURL:      cfg.ReplicateBaseURL,
		HTTPClient:   httpClient,
		Logger:       &replicateLogger,
		PollInterval: time.Duration(profile.Polling.IntervalSeconds) * time.Second,
	})
	if !rep.HasCredentials() {
		return pipeline.Deps{}, replicate.ErrMissingToken
	}

	videoMaxWait := time.Duration(profile.Polling.VideoMaxWaitSecs) * time.Second
	musicMaxWait := time.Duration(profile.Polling.MusicMaxWaitSecs) * time.Second

	remover, err := extractor.NewReplicateRemover(rep, profile.Models.BackgroundRemove, videoMaxWait)
	if err != nil {
		return pipeline.Deps{}, err
	}
	extractLogger := infra.ComponentLogger(logger, "extractor")
	ext, err := extractor.NewService(extractor.Options{Remover: remover, HTTPClient: httpClient, Logger: &extractLogger})
	if err != nil {
		return pipeline.Deps{}, err
	}

	videoLogger := infra.ComponentLogger(logger, "video")
	gen, err := video.NewReplicateGenerator(video.ReplicateOptions{
		Client:  rep,
		Model:   profile.Models.Video,
		MaxWait: videoMaxWait,
		Logger:  &videoLogger,
	})
	if err != nil {
		return pipeline.Deps{}, err
	}

	audioLogger := infra.ComponentLogger(logger, "audio")
	music, err := audio.NewMusicGen(audio.MusicGenOptions{
		Client:  rep,
		Model:   profile.Models.Music,
		MaxWait: musicMaxWait,
		Logger:  &audioLogger,
	})
	if err != nil {
		return pipeline.Deps{}, err
	}

	plan, err := buildPlanner(ctx, cfg, profile, creds, httpClient, logger)
	if err != nil {
		return pipeline.Deps{}, err
	}

	mediaLogger := infra.ComponentLogger(logger, "media")
	tools := media.Tools{
		FFmpeg:  cfg.FFmpegPath,
		FFprobe: cfg.FFprobePath,
		Runner:  &media.ExecRunner{Logger: &mediaLogger},
	}
	pipelineLogger := infra.ComponentLogger(logger, "pipeline")

	return pipeline.Deps{
		Extractor:         ext,
		Planner:           plan,
		Video:             gen,
		Compositor:        media.NewCompositor(tools),
		Text:              media.NewTextRenderer(tools, cfg.FontFile),
		Audio:             music,
		Renderer:          media.NewRenderer(tools),
		Profile:           profile,
		WorkDir:           cfg.WorkDir,
		KeepIntermediates: cfg.KeepIntermediates,
		Logger:            &pipelineLogger,
	}, nil
}

func buildPlanner(ctx context.Context, cfg *infra.Config, profile infra.Profile, creds *credentials.Store, httpClient *http.Client, logger infra.Logger) (planner.Planner, error) {
	var completer planner.Completer
	switch cfg.PlannerProvider {
	case credentials.ProviderGemini:
		key, err := creds.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
		}
		if key != "" {
			c, err := planner.NewGeminiCompleter(ctx, planner.GeminiOptions{APIKey: key, Model: cfg.GeminiModel, HTTPClient: httpClient})
			if err != nil {
				return nil, err
			}
			completer = c
		}
	default:
		key, err := creds.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load openai api key from store")
		}
		if key != "" {
			c, err := planner.NewOpenAICompleter(planner.OpenAIOptions{APIKey: key, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL, HTTPClient: httpClient})
			if err != nil {
				return nil, err
			}
			completer = c
		}
	}

	if completer == nil {
		logger.Warn().Str("provider", cfg.PlannerProvider).Msg("worker: llm api key missing, using template scene plans")
		return planner.NewStaticPlanner(profile.Planner.DurationToleranceSeconds, profile.Compositing.Position, profile.Compositing.Scale), nil
	}
	plannerLogger := infra.ComponentLogger(logger, "planner")
	return planner.NewLLMPlanner(planner.Options{
		Completer:       completer,
		Tolerance:       profile.Planner.DurationToleranceSeconds,
		TargetAudience:  profile.Planner.TargetAudience,
		ProductPosition: profile.Compositing.Position,
		ProductScale:    profile.Compositing.Scale,
		Logger:          &plannerLogger,
	})
}
