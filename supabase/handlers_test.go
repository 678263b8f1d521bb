package supabase

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authguard/guard"
	"github.com/kbukum/authguard/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func newHandlerEngine(t *testing.T, f *fakeGoTrue) (*gin.Engine, *Client) {
	t.Helper()
	c := newTestClient(t, f)
	engine := gin.New()
	NewHandlers(c, guard.Config{}, logger.NewNop()).Register(engine)
	return engine, c
}

func TestCallback(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		location string
	}{
		{"default destination", "?code=abc", "/dashboard"},
		{"local next", "?code=abc&next=%2Faccount%3Ftab%3D2", "/account?tab=2"},
		{"protocol relative next", "?code=abc&next=%2F%2Fevil.example", "/dashboard"},
		{"absolute next", "?code=abc&next=https%3A%2F%2Fevil.example%2F", "/dashboard"},
		{"backslash next", "?code=abc&next=%2F%5Cevil.example", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGoTrue(t)
			f.setToken(liveSession(t, testSecret))
			engine, c := newHandlerEngine(t, f)

			req := httptest.NewRequest(http.MethodGet, "/auth/callback"+tt.query, http.NoBody)
			req.AddCookie(&http.Cookie{Name: c.CodeVerifierCookie(), Value: "verifier"})
			rr := httptest.NewRecorder()
			engine.ServeHTTP(rr, req)

			if rr.Code != http.StatusTemporaryRedirect || rr.Header().Get("Location") != tt.location {
				t.Fatalf("expected 307 to %s, got %d %q", tt.location, rr.Code, rr.Header().Get("Location"))
			}
			if len(rr.Result().Cookies()) != 2 {
				t.Errorf("expected session cookie and verifier deletion, got %v", rr.Header().Values("Set-Cookie"))
			}
		})
	}
}

func TestCallback_Failures(t *testing.T) {
	f := newFakeGoTrue(t)
	f.setStatus(pathToken, http.StatusBadRequest)
	engine, c := newHandlerEngine(t, f)

	for _, target := range []string{"/auth/callback", "/auth/callback?error=access_denied", "/auth/callback?code=abc"} {
		req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
		req.AddCookie(&http.Cookie{Name: c.CodeVerifierCookie(), Value: "verifier"})
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, req)

		if rr.Code != http.StatusTemporaryRedirect || rr.Header().Get("Location") != "/login" {
			t.Errorf("%s: expected redirect to login, got %d %q", target, rr.Code, rr.Header().Get("Location"))
		}
	}
}

func TestSignOutHandler(t *testing.T) {
	f := newFakeGoTrue(t)
	f.setStatus(pathLogout, http.StatusBadGateway)
	engine, c := newHandlerEngine(t, f)

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", http.NoBody)
	for _, ck := range requestCookies(t, c, liveSession(t, testSecret)) {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected 303 to /login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != testCookie || cookies[0].MaxAge != -1 {
		t.Errorf("expected the session cookie to be cleared, got %v", cookies)
	}
}
