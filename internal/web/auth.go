package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "session"
	sessionTTL        = 7 * 24 * time.Hour
)

// publicPaths never require a session. Entries ending in "/" match by prefix.
var publicPaths = []string{"/login", "/api/auth/login", "/healthz", "/static/"}

// sessionStore holds issued session tokens in memory. Restarting the server
// logs everyone out.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// issue creates a token valid for sessionTTL.
func (s *sessionStore) issue() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = s.now().Add(sessionTTL)
	s.mu.Unlock()
	return token
}

// valid reports whether token exists and has not expired. Expired tokens are dropped.
func (s *sessionStore) valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.now().After(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

func (s *sessionStore) revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// authEnabled reports whether a dashboard password is configured.
func (h *Handlers) authEnabled() bool {
	return h.cfg != nil && h.cfg.AuthSecret != ""
}

// hasSession reports whether the request carries a live session cookie.
func (h *Handlers) hasSession(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	return h.sessions.valid(cookie.Value)
}

// requireSession rejects unauthenticated requests: API calls get a 401 JSON
// body, pages are redirected to /login. It is a no-op when auth is disabled.
func (h *Handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authEnabled() || isPublicPath(r.URL.Path) || h.hasSession(r) {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/metrics" {
			renderJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

// HandleLogin handles POST /api/auth/login. It accepts a JSON body or, from
// the login page, a form post; form callers are redirected instead of getting JSON.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	fromForm := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

	var req loginRequest
	if fromForm {
		req.Password = r.PostFormValue("password")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}

	if !h.authEnabled() || subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AuthSecret)) != 1 {
		if fromForm {
			h.renderer.renderPageStatus(w, r, http.StatusUnauthorized, "login", LoginPageData{
				PageData: PageData{Title: "Sign in", Version: h.renderer.version},
				Error:    "Invalid password",
			})
			return
		}
		renderJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid password"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    h.sessions.issue(),
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	if fromForm {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleLogout handles POST /api/auth/logout.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		h.sessions.revoke(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleLoginPage handles GET /login. Signed-in users go straight to the dashboard.
func (h *Handlers) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if !h.authEnabled() || h.hasSession(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.renderer.renderPage(w, r, "login", LoginPageData{
		PageData: PageData{Title: "Sign in", Version: h.renderer.version},
	})
}
