package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nabahlab/nabah/internal/analyzer"
	"github.com/nabahlab/nabah/internal/chat"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/models"
	"github.com/nabahlab/nabah/internal/stats"
	"github.com/nabahlab/nabah/internal/storage"
	"github.com/nabahlab/nabah/internal/stream"
)

type noRetriever struct{}

func (noRetriever) Search(ctx context.Context, question string, limit int) ([]database.Snippet, error) {
	return nil, nil
}

type noLLM struct{}

func (noLLM) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	return "", nil
}

func newTestApp(t *testing.T) (*App, http.Handler, *database.DB) {
	t.Helper()

	db, err := database.NewDB(database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api_test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	base := t.TempDir()
	local, err := storage.NewLocal(filepath.Join(base, "uploads"), filepath.Join(base, "outputs"), 1<<20)
	if err != nil {
		t.Fatalf("Failed to init storage: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := database.NewUserRepository(db)
	videos := database.NewVideoRepository(db)
	persons := database.NewPersonRepository(db)
	alerts := database.NewAlertRepository(db)
	spills := database.NewSpillRepository(db)
	detections := database.NewDetectionRepository(db)

	app := &App{
		Log:        log,
		DB:         db,
		Storage:    local,
		Users:      users,
		Videos:     videos,
		Persons:    persons,
		Alerts:     alerts,
		Spills:     spills,
		Detections: detections,
		Stats:      stats.NewService(persons, alerts, spills, detections, videos),
		Chat: chat.NewDispatcher(
			chat.NewStore(persons, alerts, spills, detections, videos),
			noRetriever{}, noLLM{}, log),
		Stream:        stream.NewManager(analyzer.DefaultOptions(), videos, persons, alerts, spills, detections, nil, log),
		MaxUploadSize: 1 << 20,
		TemplatesDir:  filepath.Join("..", "..", "web", "templates"),
	}
	return app, NewRouter(app), db
}

func postForm(router http.Handler, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthFlow(t *testing.T) {
	_, router, _ := newTestApp(t)

	w := postForm(router, "/signup", url.Values{
		"username": {"dana"},
		"email":    {"dana@example.com"},
		"password": {"hunter22"},
	}, nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("Signup: code=%d location=%q", w.Code, w.Header().Get("Location"))
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Signup should set a session cookie")
	}

	// Authenticated dashboard access.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	dw := httptest.NewRecorder()
	router.ServeHTTP(dw, req)
	if dw.Code != http.StatusOK {
		t.Errorf("Dashboard with session: code=%d", dw.Code)
	}

	// Unauthenticated access redirects to sign-in.
	uw := httptest.NewRecorder()
	router.ServeHTTP(uw, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if uw.Code != http.StatusSeeOther || uw.Header().Get("Location") != "/signin" {
		t.Errorf("Dashboard without session: code=%d location=%q", uw.Code, uw.Header().Get("Location"))
	}

	// Sign in with the username works too.
	sw := postForm(router, "/signin", url.Values{
		"login":    {"dana"},
		"password": {"hunter22"},
	}, nil)
	if sw.Code != http.StatusSeeOther || sw.Header().Get("Location") != "/dashboard" {
		t.Errorf("Signin: code=%d location=%q", sw.Code, sw.Header().Get("Location"))
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	_, router, _ := newTestApp(t)

	postForm(router, "/signup", url.Values{
		"username": {"sam"},
		"email":    {"sam@example.com"},
		"password": {"correct-horse"},
	}, nil)

	w := postForm(router, "/signin", url.Values{
		"login":    {"sam"},
		"password": {"wrong"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected the sign-in page again, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid credentials") {
		t.Error("Expected an invalid-credentials message")
	}
}

func TestDBChat_CountQuestion(t *testing.T) {
	app, router, _ := newTestApp(t)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		alert := models.NewAlert("", models.AlertTypePPEViolation, "missing mask")
		if err := app.Alerts.Insert(ctx, alert); err != nil {
			t.Fatalf("Seeding alert failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/db-chat",
		strings.NewReader(`{"question":"How many alerts are in the database?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Chat: code=%d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad chat response: %v", err)
	}
	if !strings.Contains(resp["answer"], "3 alerts") {
		t.Errorf("Unexpected answer: %q", resp["answer"])
	}
}

func TestDBChat_MissingQuestion(t *testing.T) {
	_, router, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/db-chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	app, router, _ := newTestApp(t)

	ctx := context.Background()
	safe := models.NewPerson("", 1, true, true, true, true, false)
	unsafe := models.NewPerson("", 2, false, true, true, true, true)
	for _, p := range []*models.Person{safe, unsafe} {
		if err := app.Persons.Insert(ctx, p); err != nil {
			t.Fatalf("Seeding person failed: %v", err)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard-stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Stats: code=%d", w.Code)
	}

	var st stats.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("Bad stats response: %v", err)
	}
	if st.TotalPersons != 2 || st.SafeCount != 1 || st.ComplianceRate != 50 {
		t.Errorf("Unexpected stats: %+v", st)
	}
}

func TestDatabaseSample(t *testing.T) {
	_, router, _ := newTestApp(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/database", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Database sample: code=%d", w.Code)
	}

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Bad response: %v", err)
	}
	for _, table := range []string{"persons", "alerts", "spills", "detections", "videos"} {
		if _, ok := out[table]; !ok {
			t.Errorf("Missing table %q in sample", table)
		}
	}
}

func TestDownload_Unknown(t *testing.T) {
	_, router, _ := newTestApp(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/missing.mp4", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown artifact, got %d", w.Code)
	}
}

func TestStopFeed_Idempotent(t *testing.T) {
	_, router, _ := newTestApp(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stop_feed", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Stop feed: code=%d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "stopped") {
			t.Errorf("Unexpected stop response: %s", w.Body.String())
		}
	}
}
