package httpapi

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"genads/internal/http/handlers"
	"genads/internal/infra"
	"genads/internal/middleware"
)

type Options struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AllowedOrigins  []string
	RateLimitPerMin int
	Logger          infra.Logger
	// StaticDir serves finished exports under /static when set.
	StaticDir string
	// TrustProxyHeaders lets chi's RealIP replace RemoteAddr from
	// X-Forwarded-For and friends. Only enable behind a proxy that sets them.
	TrustProxyHeaders bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		r.Get("/static/*", finalMedia(dir).ServeHTTP)
	}

	r.Route("/v1/projects", func(r chi.Router) {
		r.Use(middleware.AuthJWT(middleware.Verifier{
			Secret:   opts.JWTSecret,
			Issuer:   opts.JWTIssuer,
			Audience: opts.JWTAudience,
			Leeway:   30 * time.Second,
		}))
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Post("/", app.ProjectsCreate)
		r.Get("/", app.ProjectsList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.ProjectsGet)
			r.Post("/generate", app.GenerationTrigger)
			r.Get("/progress", app.GenerationProgress)
			r.Post("/cancel", app.GenerationCancel)
			r.Post("/reset", app.GenerationReset)
		})
	})

	return r
}

// finalMedia serves projects/{id}/final/{file} only. Drafts stay private
// because the public URLs handed out are for final exports alone.
func finalMedia(dir string) http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean(r.URL.Path)
		parts := strings.Split(strings.TrimPrefix(clean, "/static/"), "/")
		if len(parts) != 4 || parts[0] != "projects" || parts[2] != "final" || parts[3] == "" {
			http.NotFound(w, r)
			return
		}
		u := *r.URL
		u.Path, u.RawPath = clean, ""
		r2 := r.Clone(r.Context())
		r2.URL = &u
		files.ServeHTTP(w, r2)
	})
}
