package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"genads/internal/domain"
)

type createProjectRequest struct {
	Title           string `json:"title"`
	Brief           string `json:"brief"`
	BrandName       string `json:"brand_name"`
	PrimaryColor    string `json:"primary_color"`
	SecondaryColor  string `json:"secondary_color"`
	Mood            string `json:"mood"`
	DurationSeconds int    `json:"duration"`
	TargetAudience  string `json:"target_audience"`
	ProductImageURL string `json:"product_image_url"`
}

type projectResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Brief           string            `json:"brief"`
	BrandName       string            `json:"brand_name"`
	PrimaryColor    string            `json:"primary_color"`
	SecondaryColor  string            `json:"secondary_color,omitempty"`
	Mood            string            `json:"mood"`
	DurationSeconds int               `json:"duration"`
	TargetAudience  string            `json:"target_audience,omitempty"`
	ProductImageURL string            `json:"product_image_url,omitempty"`
	Status          string            `json:"status"`
	CostUSD         float64           `json:"cost_usd"`
	Outputs         map[string]string `json:"outputs"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toProjectResponse(p *domain.Project) projectResponse {
	outputs := p.Outputs
	if outputs == nil {
		outputs = map[string]string{}
	}
	return projectResponse{
		ID:              p.ID,
		Title:           p.Title,
		Brief:           p.Brief,
		BrandName:       p.BrandName,
		PrimaryColor:    p.PrimaryColor,
		SecondaryColor:  p.SecondaryColor,
		Mood:            string(p.Mood),
		DurationSeconds: p.DurationSeconds,
		TargetAudience:  p.TargetAudience,
		ProductImageURL: p.ProductImageURL,
		Status:          string(p.Status),
		CostUSD:         p.CostUSD,
		Outputs:         outputs,
		ErrorMessage:    p.ErrorMessage,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (a *App) ProjectsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	project, err := a.Generation.CreateProject(r.Context(), userID, &domain.Project{
		Title:           req.Title,
		Brief:           req.Brief,
		BrandName:       req.BrandName,
		PrimaryColor:    req.PrimaryColor,
		SecondaryColor:  req.SecondaryColor,
		Mood:            domain.Mood(req.Mood),
		DurationSeconds: req.DurationSeconds,
		TargetAudience:  req.TargetAudience,
		ProductImageURL: req.ProductImageURL,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toProjectResponse(project))
}

func (a *App) ProjectsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	projects, err := a.Generation.ListProjects(r.Context(), userID, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]projectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectResponse(&projects[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) ProjectsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	project, err := a.Generation.GetProject(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toProjectResponse(project))
}
