// Package video generates one clip per planned scene.
package video

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"genads/internal/domain/sceneplan"
	"genads/internal/infra"
	"genads/internal/providers/replicate"
)

// MaxClipSeconds is the longest clip the video model produces.
const MaxClipSeconds = 10

type GenerateRequest struct {
	SceneID         int
	Prompt          string
	Style           sceneplan.StyleSpec
	DurationSeconds float64
	RequestID       string
}

// Asset is a generated clip. Data holds the downloaded bytes.
type Asset struct {
	URL    string
	Format string
	Length int
	Data   []byte
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

type ReplicateOptions struct {
	Client  *replicate.Client
	Model   string
	MaxWait time.Duration
	Logger  *infra.Logger
}

// ReplicateGenerator renders clips with a hosted text-to-video model.
type ReplicateGenerator struct {
	client  *replicate.Client
	model   string
	maxWait time.Duration
	logger  *infra.Logger
}

func NewReplicateGenerator(opts ReplicateOptions) (*ReplicateGenerator, error) {
	if opts.Client == nil {
		return nil, errors.New("video: replicate client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "bytedance/seedance-1-lite"
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &ReplicateGenerator{client: opts.Client, model: model, maxWait: maxWait, logger: logger}, nil
}

func (g *ReplicateGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	seconds := ClipSeconds(req.DurationSeconds)
	input := map[string]any{
		"prompt":       EnhancePrompt(req.Prompt, req.Style),
		"duration":     seconds,
		"resolution":   "720p",
		"aspect_ratio": "16:9",
		"fps":          24,
		"camera_fixed": false,
	}
	pred, err := g.client.Run(ctx, g.model, input, g.maxWait)
	if err != nil {
		return nil, fmt.Errorf("video: scene %d: %w", req.SceneID, err)
	}
	url, err := pred.OutputURL()
	if err != nil {
		return nil, fmt.Errorf("video: scene %d: %w", req.SceneID, err)
	}
	data, _, err := g.client.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("video: scene %d: %w", req.SceneID, err)
	}
	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsVideo(data) {
		return nil, fmt.Errorf("video: scene %d: output is not a video", req.SceneID)
	}
	g.logger.Debug().Str("provider", "replicate").Int("scene", req.SceneID).Str("prediction_id", pred.ID).Int("bytes", len(data)).Msg("video: clip generated")
	return &Asset{URL: url, Format: kind.MIME.Value, Length: seconds, Data: data}, nil
}

// ClipSeconds converts a scene slice to the whole-second duration the model
// accepts.
func ClipSeconds(d float64) int {
	s := int(math.Ceil(d))
	if s < 1 {
		s = 1
	}
	if s > MaxClipSeconds {
		s = MaxClipSeconds
	}
	return s
}

// EnhancePrompt appends the shared style so every scene renders in the same
// visual tone.
func EnhancePrompt(prompt string, style sceneplan.StyleSpec) string {
	parts := []string{strings.TrimRight(strings.TrimSpace(prompt), ".")}
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	add("Lighting", style.LightingDirection)
	add("Camera", style.CameraStyle)
	add("Mood", style.MoodAtmosphere)
	add("Grade", style.GradePostprocessing)
	parts = append(parts, "Professional product video")
	return strings.Join(parts, ". ") + "."
}

var _ Generator = (*ReplicateGenerator)(nil)
