package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newSessionRouter(t *testing.T) (*gin.Engine, *Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	iss, v := newHS256(t, "")

	r := gin.New()
	r.Use(LoadSession(v, "__session", nil))
	whoami := func(c *gin.Context) {
		id, _ := ExternalID(c.Request.Context())
		c.String(http.StatusOK, id)
	}
	r.GET("/open", whoami)
	r.GET("/dashboard", RequireSession("/sign-in"), whoami)
	r.GET("/api/users/me", RequireSession("/sign-in"), whoami)
	return r, iss
}

func TestLoadSession_BearerAndCookie(t *testing.T) {
	r, iss := newSessionRouter(t)
	tok, _ := iss.Issue(time.Now(), "user_a", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "user_a" {
		t.Fatalf("expected identity from bearer, got %q", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: tok})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "user_a" {
		t.Fatalf("expected identity from cookie, got %q", w.Body.String())
	}
}

func TestLoadSession_InvalidTokenStaysAnonymous(t *testing.T) {
	r, _ := newSessionRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("expected anonymous 200, got %d %q", w.Code, w.Body.String())
	}
}

func TestRequireSession_RedirectsPages(t *testing.T) {
	r, _ := newSessionRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/sign-in?redirect_url=%2Fdashboard" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestRequireSession_APIIs401(t *testing.T) {
	r, _ := newSessionRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireSession_PassesSignedIn(t *testing.T) {
	r, iss := newSessionRouter(t)
	tok, _ := iss.Issue(time.Now(), "user_b", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "user_b" {
		t.Fatalf("expected 200 user_b, got %d %q", w.Code, w.Body.String())
	}
}
