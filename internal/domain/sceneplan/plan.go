// Package sceneplan holds the structured scene plan produced by the planner
// and consumed by every downstream pipeline step.
package sceneplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Role is the narrative job a scene performs in the ad.
type Role string

const (
	RoleHook        Role = "hook"
	RoleShowcase    Role = "showcase"
	RoleSocialProof Role = "social_proof"
	RoleCTA         Role = "cta"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHook, RoleShowcase, RoleSocialProof, RoleCTA:
		return true
	}
	return false
}

// ProductUsage says whether the product cutout is composited onto a scene.
type ProductUsage string

const (
	UsageStaticInsert ProductUsage = "static_insert"
	UsageNone         ProductUsage = "none"
)

// Overlay defaults.
const (
	DefaultOverlayPosition  = "bottom"
	DefaultOverlayFontSize  = 48
	DefaultOverlayColor     = "#FFFFFF"
	DefaultOverlayAnimation = "fade_in"
	DefaultFadeSeconds      = 0.3
)

// DefaultTolerance is the allowed gap between the scene duration sum and
// the requested total.
const DefaultTolerance = 0.5

var ErrInvalidPlan = errors.New("invalid scene plan")

// StyleSpec is the visual tone shared by every scene of one plan.
type StyleSpec struct {
	LightingDirection   string   `json:"lighting_direction"`
	CameraStyle         string   `json:"camera_style"`
	TextureMaterials    string   `json:"texture_materials"`
	MoodAtmosphere      string   `json:"mood_atmosphere"`
	ColorPalette        []string `json:"color_palette"`
	GradePostprocessing string   `json:"grade_postprocessing"`
}

// DefaultStyle is used field by field when the model leaves gaps.
func DefaultStyle(brandColors []string) StyleSpec {
	palette := brandColors
	if len(palette) > 3 {
		palette = palette[:3]
	}
	if len(palette) == 0 {
		palette = []string{"#3498DB", "#2ECC71", "#E74C3C"}
	}
	return StyleSpec{
		LightingDirection:   "soft diffused light from upper left",
		CameraStyle:         "product-centric, 45-degree angle",
		TextureMaterials:    "matte, modern, tactile",
		MoodAtmosphere:      "professional, uplifting",
		ColorPalette:        append([]string(nil), palette...),
		GradePostprocessing: "warm color temperature, lifted blacks",
	}
}

// Overlay is one burned-in text element. Times are seconds from scene start;
// an EndTime of zero means the end of the scene.
type Overlay struct {
	Text      string  `json:"text"`
	Position  string  `json:"position"`
	FontSize  int     `json:"font_size"`
	Color     string  `json:"color"`
	Animation string  `json:"animation"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	// Duration is accepted from model output as an alternative to EndTime.
	Duration float64 `json:"duration,omitempty"`
}

type Scene struct {
	ID              int          `json:"scene_id"`
	Role            Role         `json:"role"`
	Prompt          string       `json:"background_prompt"`
	Duration        float64      `json:"duration"`
	CameraMovement  string       `json:"camera_movement,omitempty"`
	ProductUsage    ProductUsage `json:"product_usage"`
	ProductPosition string       `json:"product_position"`
	ProductScale    float64      `json:"product_scale"`
	Overlays        []Overlay    `json:"overlays"`
}

// UnmarshalJSON accepts either "overlays" (list) or the single "overlay"
// object models tend to emit, and "prompt"/"video_prompt" as aliases of
// "background_prompt".
func (s *Scene) UnmarshalJSON(data []byte) error {
	type plain Scene
	aux := struct {
		*plain
		Overlay     json.RawMessage `json:"overlay"`
		PromptAlt   string          `json:"prompt"`
		VideoPrompt string          `json:"video_prompt"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.Prompt == "" {
		s.Prompt = coalesce(aux.VideoPrompt, aux.PromptAlt)
	}
	raw := strings.TrimSpace(string(aux.Overlay))
	if raw == "" || raw == "null" || len(s.Overlays) > 0 {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		return json.Unmarshal(aux.Overlay, &s.Overlays)
	}
	var one Overlay
	if err := json.Unmarshal(aux.Overlay, &one); err != nil {
		return err
	}
	s.Overlays = []Overlay{one}
	return nil
}

// Plan is the ordered scene list plus the shared style.
type Plan struct {
	TotalDuration float64   `json:"duration_total"`
	Style         StyleSpec `json:"style_spec"`
	Scenes        []Scene   `json:"scenes"`
}

// Defaults feeds Normalize with the project-level values it falls back to.
type Defaults struct {
	TotalDuration   float64
	BrandColors     []string
	ProductPosition string
	ProductScale    float64
}

// SceneCountFor picks the number of scenes for a target duration.
func SceneCountFor(durationSeconds int) int {
	switch {
	case durationSeconds <= 15:
		return 3
	case durationSeconds <= 45:
		return 4
	case durationSeconds <= 90:
		return 5
	default:
		return 6
	}
}

// RolesFor lays out n roles: hook first, cta last, social proof before the
// cta once there is room, showcases in between.
func RolesFor(n int) []Role {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []Role{RoleShowcase}
	case n == 2:
		return []Role{RoleHook, RoleCTA}
	case n == 3:
		return []Role{RoleHook, RoleShowcase, RoleCTA}
	}
	roles := []Role{RoleHook}
	for i := 0; i < n-3; i++ {
		roles = append(roles, RoleShowcase)
	}
	return append(roles, RoleSocialProof, RoleCTA)
}

// Normalize fills every optional field in place.
func (p *Plan) Normalize(d Defaults) {
	if d.TotalDuration > 0 {
		p.TotalDuration = d.TotalDuration
	}
	p.Style = mergeStyle(p.Style, DefaultStyle(d.BrandColors))

	position := coalesce(d.ProductPosition, "center")
	scale := d.ProductScale
	if scale <= 0 {
		scale = 0.3
	}

	var known float64
	missing := 0
	for _, sc := range p.Scenes {
		if sc.Duration > 0 {
			known += sc.Duration
		} else {
			missing++
		}
	}
	share := 0.0
	if missing > 0 && p.TotalDuration > known {
		share = (p.TotalDuration - known) / float64(missing)
	}

	for i := range p.Scenes {
		sc := &p.Scenes[i]
		sc.ID = i + 1
		sc.Role = Role(strings.ToLower(strings.TrimSpace(string(sc.Role))))
		sc.Prompt = strings.TrimSpace(sc.Prompt)
		if sc.Duration <= 0 {
			sc.Duration = share
		}
		if sc.ProductUsage == "" {
			sc.ProductUsage = UsageStaticInsert
		}
		sc.ProductPosition = coalesce(sc.ProductPosition, position)
		if sc.ProductScale <= 0 {
			sc.ProductScale = scale
		}
		for j := range sc.Overlays {
			normalizeOverlay(&sc.Overlays[j], sc.Duration)
		}
	}
}

func normalizeOverlay(o *Overlay, sceneDuration float64) {
	o.Text = strings.TrimSpace(o.Text)
	o.Position = coalesce(strings.ToLower(strings.TrimSpace(o.Position)), DefaultOverlayPosition)
	if o.FontSize <= 0 {
		o.FontSize = DefaultOverlayFontSize
	}
	o.Color = coalesce(strings.TrimSpace(o.Color), DefaultOverlayColor)
	o.Animation = coalesce(strings.ToLower(strings.TrimSpace(o.Animation)), DefaultOverlayAnimation)
	if o.StartTime < 0 {
		o.StartTime = 0
	}
	if o.EndTime <= 0 {
		if o.Duration > 0 {
			o.EndTime = o.StartTime + o.Duration
		} else {
			o.EndTime = sceneDuration
		}
	}
	if o.EndTime > sceneDuration {
		o.EndTime = sceneDuration
	}
	o.Duration = 0
}

func mergeStyle(got, def StyleSpec) StyleSpec {
	got.LightingDirection = coalesce(strings.TrimSpace(got.LightingDirection), def.LightingDirection)
	got.CameraStyle = coalesce(strings.TrimSpace(got.CameraStyle), def.CameraStyle)
	got.TextureMaterials = coalesce(strings.TrimSpace(got.TextureMaterials), def.TextureMaterials)
	got.MoodAtmosphere = coalesce(strings.TrimSpace(got.MoodAtmosphere), def.MoodAtmosphere)
	got.GradePostprocessing = coalesce(strings.TrimSpace(got.GradePostprocessing), def.GradePostprocessing)
	if len(got.ColorPalette) == 0 {
		got.ColorPalette = def.ColorPalette
	}
	return got
}

// DurationSum adds up scene durations.
func (p Plan) DurationSum() float64 {
	var sum float64
	for _, sc := range p.Scenes {
		sum += sc.Duration
	}
	return sum
}

// Validate checks a normalized plan. Every failure wraps ErrInvalidPlan.
func (p Plan) Validate(tolerance float64) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if len(p.Scenes) == 0 {
		return fmt.Errorf("%w: no scenes", ErrInvalidPlan)
	}
	for _, sc := range p.Scenes {
		if !sc.Role.Valid() {
			return fmt.Errorf("%w: scene %d has unknown role %q", ErrInvalidPlan, sc.ID, sc.Role)
		}
		if sc.Prompt == "" {
			return fmt.Errorf("%w: scene %d has no prompt", ErrInvalidPlan, sc.ID)
		}
		if sc.Duration <= 0 {
			return fmt.Errorf("%w: scene %d has non-positive duration", ErrInvalidPlan, sc.ID)
		}
		if sc.ProductUsage != UsageStaticInsert && sc.ProductUsage != UsageNone {
			return fmt.Errorf("%w: scene %d has unknown product usage %q", ErrInvalidPlan, sc.ID, sc.ProductUsage)
		}
		for _, o := range sc.Overlays {
			if o.Text == "" {
				return fmt.Errorf("%w: scene %d has an empty overlay", ErrInvalidPlan, sc.ID)
			}
			if o.StartTime >= o.EndTime || o.EndTime > sc.Duration+1e-9 {
				return fmt.Errorf("%w: scene %d overlay window [%.2f, %.2f] outside scene", ErrInvalidPlan, sc.ID, o.StartTime, o.EndTime)
			}
		}
	}
	if p.TotalDuration > 0 {
		if diff := math.Abs(p.DurationSum() - p.TotalDuration); diff > tolerance {
			return fmt.Errorf("%w: scene durations sum to %.2fs, want %.2fs ± %.2fs", ErrInvalidPlan, p.DurationSum(), p.TotalDuration, tolerance)
		}
	}
	return nil
}

// Decode parses a stored plan.
func Decode(raw []byte) (Plan, error) {
	var p Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return Plan{}, fmt.Errorf("decode scene plan: %w", err)
	}
	return p, nil
}

func (p Plan) Encode() ([]byte, error) {
	return json.Marshal(p)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
