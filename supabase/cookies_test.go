package supabase

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

const testCookie = "sb-abcd-auth-token"

func TestDefaultCookieName(t *testing.T) {
	tests := map[string]string{
		"https://abcd.supabase.co":   "sb-abcd-auth-token",
		"https://abcd.supabase.co/":  "sb-abcd-auth-token",
		"http://127.0.0.1:54321":     "sb-127-auth-token",
		"http://localhost:54321/sub": "sb-localhost-auth-token",
		"not a url":                  "",
	}
	for in, want := range tests {
		if got := DefaultCookieName(in); got != want {
			t.Errorf("DefaultCookieName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSessionCodec(t *testing.T) {
	sess := &Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: 1700000000, User: &User{ID: "u1"}}
	v, err := encodeSession(sess)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(v, "base64-") || strings.ContainsAny(v, "=+/") {
		t.Errorf("expected unpadded base64url value, got %q", v)
	}
	got, err := decodeSession(v)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "at" || got.RefreshToken != "rt" || got.User.ID != "u1" {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestDecodeSession_Legacy(t *testing.T) {
	raw := `{"access_token":"at","refresh_token":"rt"}`
	for _, v := range []string{raw, url.PathEscape(raw)} {
		s, err := decodeSession(v)
		if err != nil {
			t.Fatalf("decode %q: %v", v, err)
		}
		if s.AccessToken != "at" {
			t.Errorf("unexpected access token %q", s.AccessToken)
		}
	}
}

func TestDecodeSession_Invalid(t *testing.T) {
	for _, v := range []string{"base64-***", "{", `{"refresh_token":"rt"}`} {
		if _, err := decodeSession(v); err == nil {
			t.Errorf("expected error for %q", v)
		}
	}
}

func TestDecodeCodeVerifier(t *testing.T) {
	stored := "base64-" + base64.RawURLEncoding.EncodeToString([]byte(`"verifier-123/PASSWORD_RECOVERY"`))
	if got := decodeCodeVerifier(stored); got != "verifier-123" {
		t.Errorf("got %q", got)
	}
	if got := decodeCodeVerifier("plain"); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestWriteCookies_Chunked(t *testing.T) {
	value := "base64-" + strings.Repeat("x", 7000)
	existing := []*http.Cookie{
		{Name: testCookie, Value: "old"},
		{Name: testCookie + ".5", Value: "old"},
		{Name: "other", Value: "keep"},
	}
	opts := CookieOptions{Path: "/", MaxAge: 60, SameSite: "lax"}

	out := writeCookies(testCookie, value, opts, existing)

	var chunks []*http.Cookie
	deleted := map[string]bool{}
	for _, c := range out {
		if c.MaxAge < 0 {
			deleted[c.Name] = true
			continue
		}
		if len(c.Value) > maxChunkSize {
			t.Errorf("chunk %s too long: %d", c.Name, len(c.Value))
		}
		if c.Path != "/" || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 60 {
			t.Errorf("chunk %s lost its options: %+v", c.Name, c)
		}
		chunks = append(chunks, c)
	}
	if len(chunks) != 3 || chunks[0].Name != testCookie+".0" || chunks[2].Name != testCookie+".2" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
	if !deleted[testCookie] || !deleted[testCookie+".5"] || deleted["other"] {
		t.Errorf("unexpected deletions %v", deleted)
	}

	got, ok := readCookie(chunks, testCookie)
	if !ok || got != value {
		t.Errorf("chunks did not reassemble")
	}
}

func TestWriteCookies_SingleReplacesChunks(t *testing.T) {
	existing := []*http.Cookie{
		{Name: testCookie + ".0", Value: "a"},
		{Name: testCookie + ".1", Value: "b"},
		{Name: testCookie + "-code-verifier", Value: "v"},
	}
	out := writeCookies(testCookie, "short", CookieOptions{Path: "/"}, existing)
	if len(out) != 3 {
		t.Fatalf("expected value plus two deletions, got %d", len(out))
	}
	if out[0].Name != testCookie || out[0].Value != "short" {
		t.Errorf("unexpected cookie %+v", out[0])
	}
	for _, c := range out[1:] {
		if c.MaxAge != -1 || !strings.HasPrefix(c.Name, testCookie+".") {
			t.Errorf("unexpected deletion %+v", c)
		}
	}
}

func TestReadCookie(t *testing.T) {
	if _, ok := readCookie(nil, testCookie); ok {
		t.Error("expected no cookie")
	}
	cookies := []*http.Cookie{{Name: testCookie + ".1", Value: "b"}, {Name: testCookie + ".0", Value: "a"}}
	if v, _ := readCookie(cookies, testCookie); v != "ab" {
		t.Errorf("got %q", v)
	}
}

func TestClearCookies(t *testing.T) {
	existing := []*http.Cookie{
		{Name: testCookie + ".0"},
		{Name: testCookie + ".x"},
		{Name: "theme"},
	}
	out := clearCookies(testCookie, CookieOptions{Path: "/", Domain: "example.com"}, existing)
	if len(out) != 1 || out[0].Name != testCookie+".0" || out[0].Domain != "example.com" || out[0].MaxAge != -1 {
		t.Errorf("unexpected deletions %+v", out)
	}
}
