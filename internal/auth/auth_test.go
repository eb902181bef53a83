package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naybourhood/naybourhood-server/internal/config"
)

func testManager(t *testing.T, enabled bool) *Manager {
	t.Helper()
	return NewManager(config.AuthConfig{
		Enabled:            enabled,
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		AllowedDomain:      "naybourhood.test",
		CookieName:         "naybourhood_session",
		CookieMaxAge:       3600,
	}, "http://localhost:8080", "http://localhost:3000")
}

func TestGetSessionNoCookie(t *testing.T) {
	m := testManager(t, true)
	r := httptest.NewRequest(http.MethodGet, "/api/buyers", nil)
	assert.Nil(t, m.GetSession(r))
	assert.False(t, m.IsAuthenticated(r))
}

func TestGetSessionDevBypass(t *testing.T) {
	m := testManager(t, false)
	r := httptest.NewRequest(http.MethodGet, "/api/buyers", nil)

	session := m.GetSession(r)
	require.NotNil(t, session)
	assert.Equal(t, "dev-user", session.UserID)
}

func TestGetSessionExpired(t *testing.T) {
	m := testManager(t, true)
	m.sessions["sid-1"] = &Session{
		UserID:    "u1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	r := httptest.NewRequest(http.MethodGet, "/api/buyers", nil)
	r.AddCookie(&http.Cookie{Name: "naybourhood_session", Value: "sid-1"})

	assert.Nil(t, m.GetSession(r))
	_, ok := m.sessions["sid-1"]
	assert.False(t, ok, "expired session should be deleted on access")
}

func TestMiddlewareRejectsUnauthenticated(t *testing.T) {
	m := testManager(t, true)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	w := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/buyers", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestMiddlewareStashesSession(t *testing.T) {
	m := testManager(t, true)
	m.sessions["sid-1"] = &Session{
		UserID:    "u1",
		Email:     "alex@naybourhood.test",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	var got *Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/api/buyers", nil)
	r.AddCookie(&http.Cookie{Name: "naybourhood_session", Value: "sid-1"})
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
}

func TestHandleLoginSetsStateAndRedirects(t *testing.T) {
	m := testManager(t, true)
	w := httptest.NewRecorder()
	m.HandleLogin(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	location := w.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "hd=naybourhood.test")

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.NotEmpty(t, stateCookie.Value)
	assert.Contains(t, location, "state="+stateCookie.Value)
}

func TestHandleCallbackStateMismatch(t *testing.T) {
	m := testManager(t, true)
	r := httptest.NewRequest(http.MethodGet, "/auth/callback?state=wrong&code=abc", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "right"})

	w := httptest.NewRecorder()
	m.HandleCallback(w, r)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "http://localhost:3000/?error=invalid_state", w.Header().Get("Location"))
}

func TestHandleLogoutClearsSession(t *testing.T) {
	m := testManager(t, true)
	m.sessions["sid-1"] = &Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}

	r := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: "naybourhood_session", Value: "sid-1"})

	w := httptest.NewRecorder()
	m.HandleLogout(w, r)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	_, ok := m.sessions["sid-1"]
	assert.False(t, ok)
}

func TestDomainAllowed(t *testing.T) {
	m := testManager(t, true)
	assert.True(t, m.domainAllowed("alex@naybourhood.test"))
	assert.False(t, m.domainAllowed("alex@example.com"))
	assert.False(t, m.domainAllowed("not-an-email"))

	m.cfg.AllowedDomain = ""
	assert.True(t, m.domainAllowed("anyone@anywhere.test"))
}
