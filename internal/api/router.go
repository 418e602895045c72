package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	app.init()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", app.HomeHandler)
	r.Get("/signin", app.SignInPageHandler)
	r.Post("/signin", app.SignInHandler)
	r.Get("/signup", app.SignUpPageHandler)
	r.Post("/signup", app.SignUpHandler)
	r.Get("/logout", app.LogoutHandler)

	r.Get("/dashboard", app.DashboardHandler)

	r.Get("/video_feed", app.VideoFeedHandler)
	r.Post("/stop_feed", app.StopFeedHandler)
	r.Get("/download/{filename}", app.DownloadHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze-video", app.AnalyzeVideoHandler)
		r.Get("/dashboard-stats", app.DashboardStatsHandler)
		r.Get("/dashboard-charts", app.DashboardChartsHandler)
		r.Get("/database", app.DatabaseHandler)
		r.Post("/db-chat", app.DBChatHandler)
	})

	fileServer := http.FileServer(http.Dir("./web/static"))
	r.Handle("/static/*", http.StripPrefix("/static", fileServer))

	return r
}
