package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"genads/internal/domain/sceneplan"
)

const defaultAudience = "general consumers"

const systemPrompt = "You are a creative director who plans short product advertisement videos. Respond only with valid JSON."

type modelPlanPayload struct {
	StyleSpec *sceneplan.StyleSpec `json:"style_spec"`
	Style     *sceneplan.StyleSpec `json:"style"`
	Scenes    []sceneplan.Scene    `json:"scenes"`
}

func buildPlanPrompt(req Request) (string, string) {
	count := sceneplan.SceneCountFor(req.DurationSeconds)
	roles := sceneplan.RolesFor(count)
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Plan a %d-second video advertisement for the brand %q.\n", req.DurationSeconds, req.BrandName)
	fmt.Fprintf(sb, "Product brief: %s\n", strings.TrimSpace(req.Brief))
	fmt.Fprintf(sb, "Mood: %s. Target audience: %s.\n", coalesce(req.Mood, "uplifting"), coalesce(req.TargetAudience, defaultAudience))
	if len(req.BrandColors) > 0 {
		fmt.Fprintf(sb, "Brand colors: %s.\n", strings.Join(req.BrandColors, ", "))
	}
	fmt.Fprintf(sb, "Use exactly %d scenes with roles in this order: %s. ", count, strings.Join(names, ", "))
	fmt.Fprintf(sb, "Scene durations must add up to exactly %d seconds.\n", req.DurationSeconds)
	sb.WriteString("Each background_prompt describes the setting only; the product image is composited on top later, so never describe the product itself.\n")
	sb.WriteString("Overlay text must be short (at most six words). Positions: top, center, bottom.\n")
	sb.WriteString("Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"style_spec":{"lighting_direction":string,"camera_style":string,"texture_materials":string,"mood_atmosphere":string,"color_palette":string[],"grade_postprocessing":string},`)
	sb.WriteString(`"scenes":[{"scene_id":number,"role":string,"background_prompt":string,"duration":number,"camera_movement":string,"overlay":{"text":string,"position":string,"duration":number,"font_size":number,"color":string,"animation":"fade_in"|"none"}}]}`)
	return systemPrompt, sb.String()
}

// decodePlanPayload accepts an object with scenes and style_spec, or a bare
// scene array.
func decodePlanPayload(raw string) (sceneplan.Plan, error) {
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return sceneplan.Plan{}, errors.New("empty payload")
	}
	if strings.HasPrefix(fragment, "[") {
		var scenes []sceneplan.Scene
		if err := json.Unmarshal([]byte(fragment), &scenes); err != nil {
			return sceneplan.Plan{}, fmt.Errorf("decode scenes: %w", err)
		}
		canonicalRoles(scenes)
		return sceneplan.Plan{Scenes: scenes}, nil
	}
	var payload modelPlanPayload
	if err := json.Unmarshal([]byte(fragment), &payload); err != nil {
		return sceneplan.Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	plan := sceneplan.Plan{Scenes: payload.Scenes}
	canonicalRoles(plan.Scenes)
	switch {
	case payload.StyleSpec != nil:
		plan.Style = *payload.StyleSpec
	case payload.Style != nil:
		plan.Style = *payload.Style
	}
	return plan, nil
}

var roleAliases = map[string]sceneplan.Role{
	"call_to_action": sceneplan.RoleCTA,
	"call-to-action": sceneplan.RoleCTA,
	"social-proof":   sceneplan.RoleSocialProof,
	"socialproof":    sceneplan.RoleSocialProof,
	"product":        sceneplan.RoleShowcase,
	"intro":          sceneplan.RoleHook,
}

func canonicalRoles(scenes []sceneplan.Scene) {
	for i := range scenes {
		key := strings.ToLower(strings.TrimSpace(string(scenes[i].Role)))
		if alias, ok := roleAliases[key]; ok {
			scenes[i].Role = alias
		}
	}
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
