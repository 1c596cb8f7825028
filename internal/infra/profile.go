package infra

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile holds pipeline tuning that operators change more often than
// process configuration: the cost table, export targets and model choices.
type Profile struct {
	Costs       CostProfile      `toml:"costs"`
	Render      RenderProfile    `toml:"render"`
	Compositing CompositeProfile `toml:"compositing"`
	Planner     PlannerProfile   `toml:"planner"`
	Models      ModelProfile     `toml:"models"`
	Polling     PollingProfile   `toml:"polling"`
}

// CostProfile is the per-step spend in USD.
type CostProfile struct {
	ScenePlanning float64 `toml:"scene_planning"`
	Extraction    float64 `toml:"extraction"`
	VideoPerScene float64 `toml:"video_per_scene"`
	Compositing   float64 `toml:"compositing"`
	TextOverlay   float64 `toml:"text_overlay"`
	Audio         float64 `toml:"audio"`
	Rendering     float64 `toml:"rendering"`
}

type RenderProfile struct {
	Targets []string `toml:"targets"`
}

type CompositeProfile struct {
	Position string  `toml:"position"`
	Scale    float64 `toml:"scale"`
	Opacity  float64 `toml:"opacity"`
}

type PlannerProfile struct {
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	TargetAudience           string  `toml:"target_audience"`
}

type ModelProfile struct {
	Video            string `toml:"video"`
	Music            string `toml:"music"`
	BackgroundRemove string `toml:"background_remove"`
}

type PollingProfile struct {
	IntervalSeconds  int `toml:"interval_seconds"`
	VideoMaxWaitSecs int `toml:"video_max_wait_seconds"`
	MusicMaxWaitSecs int `toml:"music_max_wait_seconds"`
}

// DefaultProfile returns the built-in pipeline profile.
func DefaultProfile() Profile {
	return Profile{
		Costs: CostProfile{
			ScenePlanning: 0.01,
			Extraction:    0.00,
			VideoPerScene: 0.08,
			Compositing:   0.00,
			TextOverlay:   0.00,
			Audio:         0.10,
			Rendering:     0.00,
		},
		Render: RenderProfile{Targets: []string{"9:16", "1:1", "16:9"}},
		Compositing: CompositeProfile{
			Position: "center",
			Scale:    0.3,
			Opacity:  1.0,
		},
		Planner: PlannerProfile{
			DurationToleranceSeconds: 0.5,
			TargetAudience:           "general consumers",
		},
		Models: ModelProfile{
			Video:            "bytedance/seedance-1-lite",
			Music:            "meta/musicgen:671ac645ce5e552cc63a54a2bbff63fcf798043055d2dac5fc9e36a837eedcfb",
			BackgroundRemove: "cjwbw/rembg:fb8af171cfa1616ddcf1242c093f9c46bcada5ad4cf6f2fbe8b81b330ec5c003",
		},
		Polling: PollingProfile{
			IntervalSeconds:  5,
			VideoMaxWaitSecs: 300,
			MusicMaxWaitSecs: 300,
		},
	}
}

// LoadProfile decodes the TOML profile at path on top of DefaultProfile.
// An empty path yields the defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	path = strings.TrimSpace(path)
	if path == "" {
		return profile, nil
	}
	if _, err := toml.DecodeFile(path, &profile); err != nil {
		return Profile{}, fmt.Errorf("decode pipeline profile %s: %w", path, err)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Validate rejects profiles the pipeline cannot execute.
func (p Profile) Validate() error {
	costs := map[string]float64{
		"scene_planning":  p.Costs.ScenePlanning,
		"extraction":      p.Costs.Extraction,
		"video_per_scene": p.Costs.VideoPerScene,
		"compositing":     p.Costs.Compositing,
		"text_overlay":    p.Costs.TextOverlay,
		"audio":           p.Costs.Audio,
		"rendering":       p.Costs.Rendering,
	}
	for name, v := range costs {
		if v < 0 {
			return fmt.Errorf("pipeline profile: costs.%s must not be negative", name)
		}
	}
	if len(p.Render.Targets) == 0 {
		return fmt.Errorf("pipeline profile: render.targets must not be empty")
	}
	for _, target := range p.Render.Targets {
		switch target {
		case "9:16", "1:1", "16:9":
		default:
			return fmt.Errorf("pipeline profile: unsupported render target %q", target)
		}
	}
	if p.Compositing.Scale <= 0 || p.Compositing.Scale > 1 {
		return fmt.Errorf("pipeline profile: compositing.scale must be in (0, 1]")
	}
	if p.Compositing.Opacity <= 0 || p.Compositing.Opacity > 1 {
		return fmt.Errorf("pipeline profile: compositing.opacity must be in (0, 1]")
	}
	if p.Planner.DurationToleranceSeconds <= 0 {
		return fmt.Errorf("pipeline profile: planner.duration_tolerance_seconds must be positive")
	}
	if p.Polling.IntervalSeconds <= 0 {
		return fmt.Errorf("pipeline profile: polling.interval_seconds must be positive")
	}
	return nil
}
