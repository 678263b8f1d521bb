package supabase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/authguard/auth/jwt"
	apperrors "github.com/kbukum/authguard/errors"
	"github.com/kbukum/authguard/logger"
	"github.com/kbukum/authguard/observability"
)

const (
	testAnonKey = "anon-key"
	testSecret  = "super-secret-jwt-token-with-at-least-32-characters"
)

// fakeGoTrue is a minimal Supabase Auth server.
type fakeGoTrue struct {
	srv *httptest.Server

	mu          sync.Mutex
	calls       map[string]int
	status      map[string]int
	requests    map[string]*http.Request
	bodies      map[string]map[string]string
	user        User
	tokenResult *Session
	jwks        []byte
}

func newFakeGoTrue(t *testing.T) *fakeGoTrue {
	t.Helper()
	f := &fakeGoTrue{
		calls:    map[string]int{},
		status:   map[string]int{},
		requests: map[string]*http.Request{},
		bodies:   map[string]map[string]string{},
		user:     User{ID: "u1", Email: "u1@example.com", Role: "authenticated"},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoTrue) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls[path]++
	f.requests[path] = r
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies[path] = body

	if r.Header.Get("apikey") != testAnonKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if code := f.status[path]; code != 0 {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":"forced"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch path {
	case pathUser:
		_ = json.NewEncoder(w).Encode(f.user)
	case pathToken:
		_ = json.NewEncoder(w).Encode(f.tokenResult)
	case pathJWKS:
		_, _ = w.Write(f.jwks)
	case pathLogout:
		w.WriteHeader(http.StatusNoContent)
	case pathHealth:
		_, _ = w.Write([]byte(`{"name":"GoTrue"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGoTrue) setStatus(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = code
}

func (f *fakeGoTrue) setToken(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenResult = s
}

func (f *fakeGoTrue) setJWKS(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jwks = b
}

func (f *fakeGoTrue) request(path string) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakeGoTrue) body(path string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func (f *fakeGoTrue) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func newTestClient(t *testing.T, f *fakeGoTrue, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{URL: f.srv.URL, AnonKey: testAnonKey, CookieName: testCookie, MaxFailures: 3}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func signHS(t *testing.T, sub string, exp time.Time, secret string) string {
	t.Helper()
	tok, err := jwt.Sign(&jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: sub, ExpiresAt: gojwt.NewNumericDate(exp)},
		Email:            sub + "@example.com",
		Role:             "authenticated",
		SessionID:        "sess-1",
		AAL:              "aal1",
	}, gojwt.SigningMethodHS256, []byte(secret), "")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// requestCookies turns a session into the cookies a browser would send.
func requestCookies(t *testing.T, c *Client, sess *Session) []*http.Cookie {
	t.Helper()
	set, err := c.SessionCookies(sess, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]*http.Cookie, 0, len(set))
	for _, s := range set {
		out = append(out, &http.Cookie{Name: s.Name, Value: s.Value})
	}
	return out
}

func liveSession(t *testing.T, secret string) *Session {
	exp := time.Now().Add(time.Hour)
	return &Session{
		AccessToken:  signHS(t, "u1", exp, secret),
		RefreshToken: "rt-1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    exp.Unix(),
	}
}

func isDeletionOf(cookies []*http.Cookie, name string) bool {
	for _, c := range cookies {
		if c.Name == name && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestConfig_DefaultsAndValidation(t *testing.T) {
	cfg := Config{URL: "https://abcd.supabase.co/", AnonKey: "k"}
	cfg.ApplyDefaults()
	if cfg.URL != "https://abcd.supabase.co" || cfg.CookieName != "sb-abcd-auth-token" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Timeout != 10*time.Second || cfg.RefreshMargin != 90*time.Second || cfg.VerifyMode != VerifyRemote {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Cookie.Path != "/" || cfg.Cookie.MaxAge != 400*24*3600 || cfg.Cookie.sameSite() != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie defaults %+v", cfg.Cookie)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := []Config{
		{AnonKey: "k"},
		{URL: "https://abcd.supabase.co"},
		{URL: "https://abcd.supabase.co", AnonKey: "k", VerifyMode: VerifySecret},
		{URL: "https://abcd.supabase.co", AnonKey: "k", VerifyMode: "magic"},
	}
	for i, c := range bad {
		c.ApplyDefaults()
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestGetUser_NoCookie(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)

	id, set, err := c.GetUser(context.Background(), []*http.Cookie{{Name: "theme", Value: "dark"}})
	if id != nil || set != nil || err != nil {
		t.Errorf("expected signed out with nothing to set, got %v %v %v", id, set, err)
	}
	if f.callCount(pathUser) != 0 {
		t.Error("no backend call expected without a session")
	}
}

func TestGetUser_Remote(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)
	sess := liveSession(t, testSecret)

	id, set, err := c.GetUser(context.Background(), requestCookies(t, c, sess))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == nil || id.UserID != "u1" || id.Email != "u1@example.com" || id.SessionID != "sess-1" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if len(set) != 0 {
		t.Errorf("a live session needs no cookies, got %v", set)
	}
	req := f.request(pathUser)
	if req.Header.Get("Authorization") != "Bearer "+sess.AccessToken {
		t.Errorf("expected bearer access token, got %q", req.Header.Get("Authorization"))
	}
}

func TestGetUser_RefreshesExpiringSession(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)

	old := liveSession(t, testSecret)
	old.ExpiresAt = time.Now().Add(30 * time.Second).Unix()
	f.setToken(&Session{
		AccessToken:  signHS(t, "u1", time.Now().Add(time.Hour), testSecret),
		RefreshToken: "rt-2",
		TokenType:    "bearer",
		ExpiresIn:    3600,
	})

	id, set, err := c.GetUser(context.Background(), requestCookies(t, c, old))
	if err != nil || id == nil {
		t.Fatalf("expected identity, got %v %v", id, err)
	}
	if f.request(pathToken).URL.Query().Get("grant_type") != "refresh_token" || f.body(pathToken)["refresh_token"] != "rt-1" {
		t.Errorf("unexpected refresh request")
	}
	if len(set) != 1 || set[0].Name != testCookie {
		t.Fatalf("expected the new session cookie, got %v", set)
	}
	stored, err := decodeSession(set[0].Value)
	if err != nil {
		t.Fatal(err)
	}
	if stored.RefreshToken != "rt-2" || stored.ExpiresAt == 0 {
		t.Errorf("unexpected stored session %+v", stored)
	}
	if f.request(pathUser).Header.Get("Authorization") != "Bearer "+stored.AccessToken {
		t.Error("verification must use the refreshed token")
	}
}

func TestGetUser_RejectedSessionIsCleared(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeGoTrue, s *Session)
	}{
		{"user 401", func(f *fakeGoTrue, _ *Session) { f.setStatus(pathUser, http.StatusUnauthorized) }},
		{"user 403", func(f *fakeGoTrue, _ *Session) { f.setStatus(pathUser, http.StatusForbidden) }},
		{"refresh token revoked", func(f *fakeGoTrue, s *Session) {
			s.ExpiresAt = time.Now().Unix()
			f.setStatus(pathToken, http.StatusBadRequest)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGoTrue(t)
			c := newTestClient(t, f)
			sess := liveSession(t, testSecret)
			tt.setup(f, sess)

			id, set, err := c.GetUser(context.Background(), requestCookies(t, c, sess))
			if err != nil || id != nil {
				t.Fatalf("expected a definitive sign-out, got %v %v", id, err)
			}
			if !isDeletionOf(set, testCookie) {
				t.Errorf("expected the session cookie to be deleted, got %v", set)
			}
		})
	}
}

func TestGetUser_UnreadableCookieIsCleared(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)

	id, set, err := c.GetUser(context.Background(), []*http.Cookie{{Name: testCookie, Value: "base64-!!"}})
	if id != nil || err != nil || !isDeletionOf(set, testCookie) {
		t.Errorf("unexpected result %v %v %v", id, set, err)
	}
}

func TestGetUser_UnavailableIsError(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)
	f.setStatus(pathUser, http.StatusServiceUnavailable)
	cookies := requestCookies(t, c, liveSession(t, testSecret))

	for i := 0; i < 3; i++ {
		id, set, err := c.GetUser(context.Background(), cookies)
		if err == nil || id != nil || len(set) != 0 {
			t.Fatalf("call %d: expected error without cookies, got %v %v %v", i, id, set, err)
		}
		ae, ok := apperrors.AsAppError(err)
		if !ok || !ae.Retryable {
			t.Errorf("expected retryable app error, got %v", err)
		}
	}

	// The breaker is open now; GoTrue is not called again.
	_, _, err := c.GetUser(context.Background(), cookies)
	if err == nil {
		t.Fatal("expected error while circuit is open")
	}
	if got := f.callCount(pathUser); got != 3 {
		t.Errorf("expected 3 backend calls, got %d", got)
	}
}

func TestGetUser_SecretMode(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f, func(cfg *Config) {
		cfg.VerifyMode = VerifySecret
		cfg.JWTSecret = testSecret
	})

	id, _, err := c.GetUser(context.Background(), requestCookies(t, c, liveSession(t, testSecret)))
	if err != nil || id == nil || id.UserID != "u1" || id.Metadata["aal"] != "aal1" {
		t.Fatalf("unexpected result %+v %v", id, err)
	}
	if f.callCount(pathUser) != 0 {
		t.Error("secret mode verifies locally")
	}

	forged := requestCookies(t, c, liveSession(t, "another-secret-that-is-long-enough-000"))
	id, set, err := c.GetUser(context.Background(), forged)
	if id != nil || err != nil || !isDeletionOf(set, testCookie) {
		t.Errorf("forged token must sign out, got %v %v %v", id, set, err)
	}

	// Cookie metadata says the session is live but the token itself has expired.
	stale := liveSession(t, testSecret)
	stale.AccessToken = signHS(t, "u1", time.Now().Add(-time.Minute), testSecret)
	id, set, err = c.GetUser(context.Background(), requestCookies(t, c, stale))
	if id != nil || err != nil || !isDeletionOf(set, testCookie) {
		t.Errorf("expired token must sign out, got %v %v %v", id, set, err)
	}
}

func rsaJWKS(t *testing.T, kid string, pub *rsa.PublicKey) []byte {
	t.Helper()
	doc := map[string]any{"keys": []map[string]string{{
		"kty": "RSA",
		"kid": kid,
		"use": "sig",
		"alg": "RS256",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestGetUser_JWKSMode(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	f := newFakeGoTrue(t)
	f.setJWKS(rsaJWKS(t, "k1", &key.PublicKey))
	c := newTestClient(t, f, func(cfg *Config) { cfg.VerifyMode = VerifyJWKS })

	exp := time.Now().Add(time.Hour)
	tok, err := jwt.Sign(&jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "u2", ExpiresAt: gojwt.NewNumericDate(exp)},
		Email:            "u2@example.com",
	}, gojwt.SigningMethodRS256, key, "k1")
	if err != nil {
		t.Fatal(err)
	}
	rsSession := &Session{AccessToken: tok, RefreshToken: "rt", ExpiresAt: exp.Unix()}

	id, _, err := c.GetUser(context.Background(), requestCookies(t, c, rsSession))
	if err != nil || id == nil || id.UserID != "u2" {
		t.Fatalf("unexpected result %+v %v", id, err)
	}
	if f.callCount(pathJWKS) != 1 || f.callCount(pathUser) != 0 {
		t.Errorf("expected one key fetch and no user call")
	}

	// HS256 tokens cannot be checked without the secret; GoTrue is asked.
	id, _, err = c.GetUser(context.Background(), requestCookies(t, c, liveSession(t, testSecret)))
	if err != nil || id == nil || id.UserID != "u1" {
		t.Fatalf("unexpected result %+v %v", id, err)
	}
	if f.callCount(pathUser) != 1 {
		t.Errorf("expected remote fallback for HS256")
	}
}

func TestGetUser_JWKSRotationKeepsSession(t *testing.T) {
	oldKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	newKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	f := newFakeGoTrue(t)
	f.setJWKS(rsaJWKS(t, "k1", &oldKey.PublicKey))
	c := newTestClient(t, f, func(cfg *Config) { cfg.VerifyMode = VerifyJWKS })

	exp := time.Now().Add(time.Hour)
	sign := func(key *rsa.PrivateKey, kid string) *Session {
		tok, err := jwt.Sign(&jwt.Claims{
			RegisteredClaims: gojwt.RegisteredClaims{Subject: "u1", ExpiresAt: gojwt.NewNumericDate(exp)},
		}, gojwt.SigningMethodRS256, key, kid)
		if err != nil {
			t.Fatal(err)
		}
		return &Session{AccessToken: tok, RefreshToken: "rt", ExpiresAt: exp.Unix()}
	}

	if id, _, err := c.GetUser(context.Background(), requestCookies(t, c, sign(oldKey, "k1"))); err != nil || id == nil {
		t.Fatalf("unexpected result %+v %v", id, err)
	}

	// The project rotated its signing key moments after the set was cached.
	f.setJWKS(rsaJWKS(t, "k2", &newKey.PublicKey))
	id, set, err := c.GetUser(context.Background(), requestCookies(t, c, sign(newKey, "k2")))
	if err != nil || id == nil || id.UserID != "u1" {
		t.Fatalf("unexpected result %+v %v", id, err)
	}
	if len(set) != 0 {
		t.Errorf("session cookies must be kept, got %v", set)
	}
	if f.callCount(pathJWKS) != 1 || f.callCount(pathUser) != 1 {
		t.Errorf("expected the auth server to confirm the token, jwks=%d user=%d",
			f.callCount(pathJWKS), f.callCount(pathUser))
	}
}

func TestGetUser_JWKSUnavailable(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	f := newFakeGoTrue(t)
	f.setStatus(pathJWKS, http.StatusBadGateway)
	c := newTestClient(t, f, func(cfg *Config) { cfg.VerifyMode = VerifyJWKS })

	exp := time.Now().Add(time.Hour)
	tok, _ := jwt.Sign(&jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "u2", ExpiresAt: gojwt.NewNumericDate(exp)},
	}, gojwt.SigningMethodRS256, key, "k1")

	id, set, err := c.GetUser(context.Background(), requestCookies(t, c, &Session{AccessToken: tok, ExpiresAt: exp.Unix()}))
	if err == nil || id != nil || len(set) != 0 {
		t.Errorf("key fetch failure must be an error, got %v %v %v", id, set, err)
	}
}

func TestExchangeCodeForSession(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)
	f.setToken(liveSession(t, testSecret))

	verifier := "base64-" + base64.RawURLEncoding.EncodeToString([]byte(`"pkce-verifier/"`))
	cookies := []*http.Cookie{{Name: c.CodeVerifierCookie(), Value: verifier}}

	sess, set, err := c.ExchangeCodeForSession(context.Background(), "auth-code", cookies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.RefreshToken != "rt-1" {
		t.Errorf("unexpected session %+v", sess)
	}
	req := f.request(pathToken)
	body := f.body(pathToken)
	if req.URL.Query().Get("grant_type") != "pkce" || body["auth_code"] != "auth-code" || body["code_verifier"] != "pkce-verifier" {
		t.Errorf("unexpected exchange request %s %v", req.URL.RawQuery, body)
	}
	if len(set) != 2 || set[0].Name != testCookie || !isDeletionOf(set, testCookie+"-code-verifier") {
		t.Errorf("expected session cookie and verifier deletion, got %v", set)
	}
}

func TestExchangeCodeForSession_Errors(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)

	if _, _, err := c.ExchangeCodeForSession(context.Background(), "code", nil); err == nil {
		t.Error("expected error without verifier cookie")
	}
	if _, _, err := c.ExchangeCodeForSession(context.Background(), "", nil); err == nil {
		t.Error("expected error without code")
	}

	f.setStatus(pathToken, http.StatusBadRequest)
	cookies := []*http.Cookie{{Name: c.CodeVerifierCookie(), Value: "v"}}
	if _, _, err := c.ExchangeCodeForSession(context.Background(), "code", cookies); err == nil {
		t.Error("expected error for rejected code")
	}
}

func TestSignOut(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)
	sess := liveSession(t, testSecret)
	cookies := requestCookies(t, c, sess)

	set, err := c.SignOut(context.Background(), cookies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isDeletionOf(set, testCookie) {
		t.Errorf("expected deletion, got %v", set)
	}
	req := f.request(pathLogout)
	if req.URL.Query().Get("scope") != "global" || !strings.HasSuffix(req.Header.Get("Authorization"), sess.AccessToken) {
		t.Errorf("unexpected logout request")
	}

	f.setStatus(pathLogout, http.StatusUnauthorized)
	if _, err := c.SignOut(context.Background(), cookies); err != nil {
		t.Errorf("an already revoked session is not an error: %v", err)
	}

	f.setStatus(pathLogout, http.StatusInternalServerError)
	set, err = c.SignOut(context.Background(), cookies)
	if err == nil || !isDeletionOf(set, testCookie) {
		t.Errorf("expected error and deletion, got %v %v", set, err)
	}
}

func TestCheckHealth(t *testing.T) {
	f := newFakeGoTrue(t)
	c := newTestClient(t, f)

	if h := c.CheckHealth(context.Background()); h.Status != observability.HealthStatusUp || h.Details["circuit"] != "closed" {
		t.Errorf("unexpected health %+v", h)
	}
	f.setStatus(pathHealth, http.StatusInternalServerError)
	if h := c.CheckHealth(context.Background()); h.Status != observability.HealthStatusDown || h.Message == "" {
		t.Errorf("unexpected health %+v", h)
	}
}
