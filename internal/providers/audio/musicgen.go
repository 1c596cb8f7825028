// Package audio generates the background music track.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"genads/internal/infra"
	"genads/internal/providers/replicate"
)

// MaxTrackSeconds is the longest track requested from the model. The
// renderer loops shorter tracks and trims to the video length.
const MaxTrackSeconds = 30

type Request struct {
	Mood            string
	Tempo           string
	DurationSeconds float64
}

// Track is a generated music file.
type Track struct {
	URL             string
	ContentType     string
	DurationSeconds int
	Data            []byte
}

type Engine interface {
	Generate(ctx context.Context, req Request) (*Track, error)
}

var moodDescriptions = map[string]string{
	"uplifting": "bright, positive, inspiring, motivational",
	"energetic": "dynamic, exciting, fast-paced, powerful",
	"calm":      "peaceful, soothing, relaxing, gentle",
	"modern":    "contemporary, sleek, trendy, sophisticated",
	"playful":   "fun, lighthearted, whimsical, joyful",
	"dramatic":  "intense, cinematic, epic, powerful",
	"corporate": "professional, confident, polished, business",
}

var tempoDescriptions = map[string]string{
	"slow":     "slow tempo, around 60 BPM",
	"moderate": "moderate tempo, around 100 BPM",
	"fast":     "fast tempo, around 140 BPM",
}

// TempoFor picks a default tempo for a mood.
func TempoFor(mood string) string {
	switch strings.ToLower(strings.TrimSpace(mood)) {
	case "energetic", "playful":
		return "fast"
	case "calm", "dramatic":
		return "slow"
	default:
		return "moderate"
	}
}

// TrackSeconds is the requested track length for a video duration.
func TrackSeconds(d float64) int {
	s := int(math.Ceil(d))
	if s < 1 {
		s = 1
	}
	if s > MaxTrackSeconds {
		s = MaxTrackSeconds
	}
	return s
}

// BuildPrompt renders the music prompt for a mood, tempo and duration.
func BuildPrompt(mood, tempo string, seconds int) string {
	mood = strings.ToLower(strings.TrimSpace(mood))
	desc, ok := moodDescriptions[mood]
	if !ok {
		desc = moodDescriptions["uplifting"]
	}
	tempo = strings.ToLower(strings.TrimSpace(tempo))
	if tempo == "" {
		tempo = TempoFor(mood)
	}
	tempoDesc, ok := tempoDescriptions[tempo]
	if !ok {
		tempoDesc = tempoDescriptions["moderate"]
	}
	return fmt.Sprintf("Background music for product video advertisement. Mood: %s. %s. Duration: %d seconds. Instrumental music, no vocals. Professional quality, suitable for commercial use.", desc, tempoDesc, seconds)
}

type MusicGenOptions struct {
	Client  *replicate.Client
	Model   string
	MaxWait time.Duration
	Logger  *infra.Logger
}

// MusicGen implements Engine on a hosted MusicGen model.
type MusicGen struct {
	client  *replicate.Client
	model   string
	maxWait time.Duration
	logger  *infra.Logger
}

func NewMusicGen(opts MusicGenOptions) (*MusicGen, error) {
	if opts.Client == nil {
		return nil, errors.New("audio: replicate client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "meta/musicgen:671ac645ce5e552cc63a54a2bbff63fcf798043055d2dac5fc9e36a837eedcfb"
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &MusicGen{client: opts.Client, model: model, maxWait: maxWait, logger: logger}, nil
}

func (m *MusicGen) Generate(ctx context.Context, req Request) (*Track, error) {
	seconds := TrackSeconds(req.DurationSeconds)
	input := map[string]any{
		"prompt":                   BuildPrompt(req.Mood, req.Tempo, seconds),
		"duration":                 seconds,
		"model_version":            "stereo-large",
		"output_format":            "mp3",
		"normalization_strategy":   "peak",
		"top_k":                    250,
		"top_p":                    0,
		"temperature":              1,
		"classifier_free_guidance": 3,
	}
	pred, err := m.client.Run(ctx, m.model, input, m.maxWait)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	url, err := pred.OutputURL()
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	data, _, err := m.client.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	if !filetype.IsAudio(data) {
		return nil, errors.New("audio: output is not an audio file")
	}
	kind, _ := filetype.Match(data)
	m.logger.Debug().Str("provider", "replicate").Str("prediction_id", pred.ID).Str("mood", req.Mood).Int("seconds", seconds).Msg("audio: track generated")
	return &Track{URL: url, ContentType: kind.MIME.Value, DurationSeconds: seconds, Data: data}, nil
}

var _ Engine = (*MusicGen)(nil)
