package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"genads/internal/domain"
	"genads/internal/middleware"
)

type jobResponse struct {
	JobID       string `json:"job_id"`
	ProjectID   string `json:"project_id"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		JobID:       j.ID,
		ProjectID:   j.ProjectID,
		Status:      string(j.Status),
		Progress:    j.Progress,
		CurrentStep: j.Status.Label(),
	}
}

func (a *App) GenerationTrigger(w http.ResponseWriter, r *http.Request) {
	job, err := a.Generation.Trigger(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Msg("generation: job queued")
	a.json(w, http.StatusAccepted, toJobResponse(job))
}

func (a *App) GenerationProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := a.Generation.Status(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, progress)
}

func (a *App) GenerationCancel(w http.ResponseWriter, r *http.Request) {
	job, err := a.Generation.Cancel(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

func (a *App) GenerationReset(w http.ResponseWriter, r *http.Request) {
	project, err := a.Generation.Reset(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toProjectResponse(project))
}
