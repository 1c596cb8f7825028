// Package planner turns a project brief into a validated scene plan.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"genads/internal/domain"
	"genads/internal/domain/sceneplan"
	"genads/internal/infra"
)

// Request carries the brief fields the planner reads.
type Request struct {
	Brief           string
	BrandName       string
	DurationSeconds int
	Mood            string
	TargetAudience  string
	BrandColors     []string
}

// RequestFor builds a planning request from a project.
func RequestFor(p domain.Project) Request {
	return Request{
		Brief:           p.Brief,
		BrandName:       p.BrandName,
		DurationSeconds: p.DurationSeconds,
		Mood:            string(p.Mood),
		TargetAudience:  p.TargetAudience,
		BrandColors:     p.BrandColors(),
	}
}

// Planner produces a scene plan. Every failure is a planning PipelineError.
type Planner interface {
	Plan(ctx context.Context, req Request) (*sceneplan.Plan, error)
}

// Completer is a chat-completion backend that answers one system+user turn.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options configures an LLMPlanner.
type Options struct {
	Completer       Completer
	Tolerance       float64
	TargetAudience  string
	ProductPosition string
	ProductScale    float64
	Logger          *infra.Logger
}

// LLMPlanner asks a language model for the plan and validates the answer
// before anything downstream sees it.
type LLMPlanner struct {
	completer       Completer
	tolerance       float64
	audience        string
	productPosition string
	productScale    float64
	logger          *infra.Logger
}

func NewLLMPlanner(opts Options) (*LLMPlanner, error) {
	if opts.Completer == nil {
		return nil, errors.New("planner: completer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = sceneplan.DefaultTolerance
	}
	return &LLMPlanner{
		completer:       opts.Completer,
		tolerance:       tolerance,
		audience:        coalesce(opts.TargetAudience, defaultAudience),
		productPosition: opts.ProductPosition,
		productScale:    opts.ProductScale,
		logger:          logger,
	}, nil
}

func (p *LLMPlanner) Plan(ctx context.Context, req Request) (*sceneplan.Plan, error) {
	if req.DurationSeconds <= 0 {
		return nil, planningError(fmt.Errorf("target duration must be positive, got %d", req.DurationSeconds))
	}
	req.TargetAudience = coalesce(req.TargetAudience, p.audience)
	system, user := buildPlanPrompt(req)

	text, err := p.completer.Complete(ctx, system, user)
	if err != nil {
		return nil, planningError(fmt.Errorf("%s completion: %w", p.completer.Name(), err))
	}
	plan, err := decodePlanPayload(text)
	if err != nil {
		p.logger.Warn().Err(err).Str("provider", p.completer.Name()).Str("payload", truncate(text, 300)).Msg("planner: unusable model output")
		return nil, planningError(fmt.Errorf("%s output: %w", p.completer.Name(), err))
	}
	if len(plan.Scenes) == 0 {
		return nil, planningError(fmt.Errorf("%s output: no scenes", p.completer.Name()))
	}
	plan.Normalize(sceneplan.Defaults{
		TotalDuration:   float64(req.DurationSeconds),
		BrandColors:     req.BrandColors,
		ProductPosition: p.productPosition,
		ProductScale:    p.productScale,
	})
	if err := plan.Validate(p.tolerance); err != nil {
		return nil, planningError(err)
	}
	p.logger.Debug().Str("provider", p.completer.Name()).Int("scenes", len(plan.Scenes)).Float64("duration", plan.DurationSum()).Msg("planner: plan accepted")
	return &plan, nil
}

func planningError(err error) error {
	return domain.NewPipelineError(domain.KindPlanning, domain.JobStatusPlanning, err)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Planner = (*LLMPlanner)(nil)
