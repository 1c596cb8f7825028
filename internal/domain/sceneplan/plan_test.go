package sceneplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneCountFor(t *testing.T) {
	cases := []struct {
		duration int
		want     int
	}{
		{12, 3}, {15, 3}, {16, 4}, {30, 4}, {45, 4}, {46, 5}, {90, 5}, {91, 6}, {120, 6},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SceneCountFor(tc.duration), "duration %d", tc.duration)
	}
}

func TestRolesFor(t *testing.T) {
	assert.Equal(t, []Role{RoleHook, RoleShowcase, RoleCTA}, RolesFor(3))
	assert.Equal(t, []Role{RoleHook, RoleShowcase, RoleSocialProof, RoleCTA}, RolesFor(4))
	assert.Equal(t, []Role{RoleHook, RoleShowcase, RoleShowcase, RoleShowcase, RoleSocialProof, RoleCTA}, RolesFor(6))
	assert.Nil(t, RolesFor(0))
}

func TestDecodeAcceptsSingleOverlayAndAliases(t *testing.T) {
	raw := []byte(`{
	  "duration_total": 12,
	  "style_spec": {"lighting_direction": "rim light"},
	  "scenes": [
	    {"scene_id": 0, "role": "Hook", "background_prompt": "serum bottle on marble", "duration": 4,
	     "overlay": {"text": "Glow Daily", "position": "top", "duration": 2}},
	    {"role": "showcase", "video_prompt": "drops on skin", "duration": 4,
	     "overlays": [{"text": "Pure", "start_time": 1, "end_time": 3}]},
	    {"role": "cta", "prompt": "logo reveal", "duration": 4, "overlay": null}
	  ]
	}`)
	plan, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, plan.Scenes, 3)
	assert.Equal(t, "serum bottle on marble", plan.Scenes[0].Prompt)
	assert.Equal(t, "drops on skin", plan.Scenes[1].Prompt)
	assert.Equal(t, "logo reveal", plan.Scenes[2].Prompt)
	require.Len(t, plan.Scenes[0].Overlays, 1)
	assert.Equal(t, "Glow Daily", plan.Scenes[0].Overlays[0].Text)
	assert.Len(t, plan.Scenes[1].Overlays, 1)
	assert.Empty(t, plan.Scenes[2].Overlays)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	plan := Plan{
		Scenes: []Scene{
			{Role: "HOOK", Prompt: "a", Duration: 4, Overlays: []Overlay{{Text: "Hi", Duration: 2}}},
			{Role: "showcase", Prompt: "b"},
			{Role: "cta", Prompt: "c", Overlays: []Overlay{{Text: "Buy"}}},
		},
	}
	plan.Normalize(Defaults{TotalDuration: 12, BrandColors: []string{"#F5E6D3", "#2C3E50"}})

	require.NoError(t, plan.Validate(DefaultTolerance))
	assert.InDelta(t, 12.0, plan.DurationSum(), 1e-9)
	assert.InDelta(t, 4.0, plan.Scenes[1].Duration, 1e-9)
	assert.Equal(t, RoleHook, plan.Scenes[0].Role)
	assert.Equal(t, 1, plan.Scenes[0].ID)
	assert.Equal(t, []string{"#F5E6D3", "#2C3E50"}, plan.Style.ColorPalette)
	assert.Equal(t, "soft diffused light from upper left", plan.Style.LightingDirection)

	hi := plan.Scenes[0].Overlays[0]
	assert.Equal(t, DefaultOverlayPosition, hi.Position)
	assert.Equal(t, DefaultOverlayFontSize, hi.FontSize)
	assert.Equal(t, DefaultOverlayColor, hi.Color)
	assert.Equal(t, DefaultOverlayAnimation, hi.Animation)
	assert.InDelta(t, 2.0, hi.EndTime, 1e-9)

	buy := plan.Scenes[2].Overlays[0]
	assert.InDelta(t, 4.0, buy.EndTime, 1e-9)

	assert.Equal(t, UsageStaticInsert, plan.Scenes[1].ProductUsage)
	assert.Equal(t, "center", plan.Scenes[1].ProductPosition)
	assert.InDelta(t, 0.3, plan.Scenes[1].ProductScale, 1e-9)
}

func TestValidateRejects(t *testing.T) {
	base := func() Plan {
		p := Plan{Scenes: []Scene{
			{Role: RoleHook, Prompt: "a", Duration: 4},
			{Role: RoleShowcase, Prompt: "b", Duration: 4},
			{Role: RoleCTA, Prompt: "c", Duration: 4},
		}}
		p.Normalize(Defaults{TotalDuration: 12})
		return p
	}
	require.NoError(t, base().Validate(0))

	cases := map[string]func(*Plan){
		"no scenes":     func(p *Plan) { p.Scenes = nil },
		"unknown role":  func(p *Plan) { p.Scenes[0].Role = "intro" },
		"empty prompt":  func(p *Plan) { p.Scenes[1].Prompt = "" },
		"zero duration": func(p *Plan) { p.Scenes[2].Duration = 0 },
		"sum too long":  func(p *Plan) { p.Scenes[2].Duration = 5 },
		"bad overlay":   func(p *Plan) { p.Scenes[0].Overlays = []Overlay{{Text: "x", StartTime: 3, EndTime: 2}} },
		"empty overlay": func(p *Plan) { p.Scenes[0].Overlays = []Overlay{{StartTime: 0, EndTime: 2}} },
		"unknown usage": func(p *Plan) { p.Scenes[0].ProductUsage = "float" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(DefaultTolerance), ErrInvalidPlan)
		})
	}
}

func TestValidateWithinTolerance(t *testing.T) {
	p := Plan{TotalDuration: 12, Scenes: []Scene{
		{Role: RoleHook, Prompt: "a", Duration: 4.2},
		{Role: RoleShowcase, Prompt: "b", Duration: 4.1},
		{Role: RoleCTA, Prompt: "c", Duration: 4.1},
	}}
	p.Normalize(Defaults{})
	assert.NoError(t, p.Validate(DefaultTolerance))
}

func TestEncodeRoundTrip(t *testing.T) {
	p := Plan{Scenes: []Scene{{Role: RoleHook, Prompt: "a", Overlays: []Overlay{{Text: "Hi"}}}}}
	p.Normalize(Defaults{TotalDuration: 15})
	raw, err := p.Encode()
	require.NoError(t, err)
	back, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}
