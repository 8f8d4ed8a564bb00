package app

import (
	"log/slog"

	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/class"
	"github.com/sahajkedia/student-profile-challenge/internal/config"
	"github.com/sahajkedia/student-profile-challenge/internal/file"
	"github.com/sahajkedia/student-profile-challenge/internal/health"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/middleware"
	"github.com/sahajkedia/student-profile-challenge/internal/notify"
	"github.com/sahajkedia/student-profile-challenge/internal/profile"
	"github.com/sahajkedia/student-profile-challenge/internal/survey"
	"github.com/sahajkedia/student-profile-challenge/internal/web"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
)

// Deps are the long-lived collaborators the HTTP surface is built from.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *bun.DB
	Sessions *auth.Sessions
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
}

// NewRouter mounts every API route under /api. In production it also
// serves the frontend bundle for all other paths.
func NewRouter(d Deps) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(middleware.CORS(d.Config.Server.FrontendURL))

	authService := auth.NewService(auth.NewRepository(d.DB, d.Metrics), d.Notifier, d.Config.Notify.ResetURL, d.Metrics, d.Logger)
	profileService := profile.NewService(profile.NewRepository(d.DB, d.Metrics))
	classService := class.NewService(class.NewRepository(d.DB, d.Metrics), d.Metrics)
	surveyService := survey.NewService(survey.NewRepository(d.DB, d.Metrics), d.Metrics)
	fileService := file.NewService(file.NewRepository(d.DB, d.Metrics), d.Metrics)

	router.Route("/api", func(r chi.Router) {
		health.NewHandler(d.DB, d.Metrics, d.Logger).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.LoadSession(d.Sessions, d.Logger))
			auth.NewHandler(authService, d.Sessions, d.Logger).RegisterRoutes(r)
			profile.NewHandler(profileService, d.Logger).RegisterRoutes(r)
			class.NewHandler(classService, d.Logger).RegisterRoutes(r)
			survey.NewHandler(surveyService, d.Logger).RegisterRoutes(r)
			file.NewHandler(fileService, d.Logger).RegisterRoutes(r)
		})
	})

	if d.Config.IsProduction() && d.Config.Server.StaticDir != "" {
		router.Handle("/*", web.SPA(d.Config.Server.StaticDir))
	}

	return router
}
