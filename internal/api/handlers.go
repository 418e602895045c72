package api

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/nabahlab/nabah/internal/chat"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/models"
	"github.com/nabahlab/nabah/internal/stats"
	"github.com/nabahlab/nabah/internal/storage"
	"github.com/nabahlab/nabah/internal/stream"
	"github.com/nabahlab/nabah/internal/video"
)

type App struct {
	Log     *slog.Logger
	DB      *database.DB
	Storage *storage.Local

	Users      *database.UserRepository
	Videos     *database.VideoRepository
	Persons    *database.PersonRepository
	Alerts     *database.AlertRepository
	Spills     *database.SpillRepository
	Detections *database.DetectionRepository

	Batch  *video.BatchService
	Stats  *stats.Service
	Chat   *chat.Dispatcher
	Stream *stream.Manager

	DetectorBaseURL string
	CameraDevice    string
	CameraFPS       int
	MaxUploadSize   int64
	TemplatesDir    string

	sessions *sessionStore
}

func (app *App) init() {
	if app.sessions == nil {
		app.sessions = newSessionStore()
	}
	if app.TemplatesDir == "" {
		app.TemplatesDir = filepath.Join("web", "templates")
	}
}

func (app *App) render(w http.ResponseWriter, name string, data any) {
	if data == nil {
		// Field lookups on a nil map resolve to zero values.
		data = map[string]any(nil)
	}
	tmpl, err := template.ParseFiles(filepath.Join(app.TemplatesDir, name))
	if err != nil {
		app.Log.Error("cannot load template", "template", name, "error", err)
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}
	if err := tmpl.Execute(w, data); err != nil {
		app.Log.Error("cannot render template", "template", name, "error", err)
	}
}

func (app *App) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.currentUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

func (app *App) SignInPageHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, "signin.html", nil)
}

func (app *App) SignUpPageHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, "signup.html", nil)
}

func (app *App) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := app.currentUserID(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}

	user, err := app.Users.GetByID(r.Context(), userID)
	if err != nil || user == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	app.render(w, "dashboard.html", map[string]any{"Username": user.Username})
}

func (app *App) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	if username == "" || email == "" || password == "" {
		app.render(w, "signup.html", map[string]any{"Error": "All fields are required"})
		return
	}

	existing, err := app.Users.GetByEmail(r.Context(), email)
	if err != nil {
		app.Log.Error("signup lookup failed", "error", err)
		app.render(w, "signup.html", map[string]any{"Error": "Something went wrong, try again"})
		return
	}
	if existing != nil {
		app.render(w, "signup.html", map[string]any{"Error": "An account with this email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		app.Log.Error("password hashing failed", "error", err)
		app.render(w, "signup.html", map[string]any{"Error": "Something went wrong, try again"})
		return
	}

	user := models.NewUser(username, email, string(hash), "user")
	if err := app.Users.Insert(r.Context(), user); err != nil {
		app.Log.Error("cannot insert user", "error", err)
		app.render(w, "signup.html", map[string]any{"Error": "Something went wrong, try again"})
		return
	}

	setSessionCookie(w, app.sessions.create(user.ID))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (app *App) SignInHandler(w http.ResponseWriter, r *http.Request) {
	login := strings.TrimSpace(r.FormValue("login"))
	password := r.FormValue("password")

	user, err := app.Users.GetByLogin(r.Context(), login)
	if err != nil {
		app.Log.Error("signin lookup failed", "error", err)
		app.render(w, "signin.html", map[string]any{"Error": "Something went wrong, try again"})
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		app.render(w, "signin.html", map[string]any{"Error": "Invalid credentials"})
		return
	}

	setSessionCookie(w, app.sessions.create(user.ID))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (app *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		app.sessions.delete(c.Value)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}
