package api

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const sessionCookie = "nabah_session"

// sessionStore keeps signed-in sessions in memory. A restart signs
// everyone out, which is acceptable for a single-node deployment.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]string // token -> user id
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: map[string]string{}}
}

func (s *sessionStore) create(userID string) string {
	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = userID
	s.mu.Unlock()
	return token
}

func (s *sessionStore) userID(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[token]
	return id, ok
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (app *App) currentUserID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	return app.sessions.userID(c.Value)
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
