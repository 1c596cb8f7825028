package planner

import (
	"context"
	"fmt"
	"math"
	"strings"

	"genads/internal/domain/sceneplan"
)

// StaticPlanner builds a template plan without calling a model. The worker
// uses it when no LLM credentials are configured.
type StaticPlanner struct {
	tolerance       float64
	productPosition string
	productScale    float64
}

func NewStaticPlanner(tolerance float64, productPosition string, productScale float64) *StaticPlanner {
	return &StaticPlanner{tolerance: tolerance, productPosition: productPosition, productScale: productScale}
}

var staticPrompts = map[sceneplan.Role]string{
	sceneplan.RoleHook:        "Eye-catching opening shot, %s atmosphere, clean studio backdrop with soft gradients",
	sceneplan.RoleShowcase:    "Elegant surface with gentle reflections, %s atmosphere, slow cinematic light sweep",
	sceneplan.RoleSocialProof: "Warm lifestyle setting with happy people in soft focus, %s atmosphere",
	sceneplan.RoleCTA:         "Minimal brand-colored backdrop with subtle motion, %s atmosphere, space for a call to action",
}

func (s *StaticPlanner) Plan(ctx context.Context, req Request) (*sceneplan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, planningError(err)
	}
	if req.DurationSeconds <= 0 {
		return nil, planningError(fmt.Errorf("target duration must be positive, got %d", req.DurationSeconds))
	}
	roles := sceneplan.RolesFor(sceneplan.SceneCountFor(req.DurationSeconds))
	durations := splitDuration(float64(req.DurationSeconds), len(roles))
	mood := coalesce(req.Mood, "uplifting")
	brand := coalesce(req.BrandName, "the brand")

	plan := sceneplan.Plan{Scenes: make([]sceneplan.Scene, len(roles))}
	for i, role := range roles {
		sc := sceneplan.Scene{
			Role:     role,
			Prompt:   fmt.Sprintf(staticPrompts[role], mood),
			Duration: durations[i],
		}
		switch role {
		case sceneplan.RoleHook:
			sc.Overlays = []sceneplan.Overlay{{Text: brand, Position: "top"}}
		case sceneplan.RoleCTA:
			sc.Overlays = []sceneplan.Overlay{{Text: "Discover " + brand + " today"}}
		case sceneplan.RoleShowcase:
			if line := firstSentence(req.Brief); line != "" && i == 1 {
				sc.Overlays = []sceneplan.Overlay{{Text: line}}
			}
		}
		plan.Scenes[i] = sc
	}
	plan.Normalize(sceneplan.Defaults{
		TotalDuration:   float64(req.DurationSeconds),
		BrandColors:     req.BrandColors,
		ProductPosition: s.productPosition,
		ProductScale:    s.productScale,
	})
	if err := plan.Validate(s.tolerance); err != nil {
		return nil, planningError(err)
	}
	return &plan, nil
}

// splitDuration splits total into n slices rounded to tenths, with the last
// slice absorbing the rounding remainder.
func splitDuration(total float64, n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	share := math.Floor(total/float64(n)*10) / 10
	var used float64
	for i := 0; i < n-1; i++ {
		out[i] = share
		used += share
	}
	out[n-1] = math.Round((total-used)*10) / 10
	return out
}

func firstSentence(brief string) string {
	brief = strings.TrimSpace(brief)
	if idx := strings.IndexAny(brief, ".!?\n"); idx > 0 {
		brief = brief[:idx]
	}
	words := strings.Fields(brief)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

var _ Planner = (*StaticPlanner)(nil)
