package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/config"
)

var secret = []byte("test-secret")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	raw, err := IssueToken(secret, "admin", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := ValidateToken(secret, raw)
	if err != nil {
		t.Fatal(err)
	}
	if sub != "admin" {
		t.Fatalf("subject = %q", sub)
	}

	if _, err := ValidateToken([]byte("other"), raw); err == nil {
		t.Fatal("token signed with another secret accepted")
	}

	expired, _ := IssueToken(secret, "admin", -time.Minute)
	if _, err := ValidateToken(secret, expired); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestAuthenticated(t *testing.T) {
	h := Authenticated(secret)(okHandler())
	raw, _ := IssueToken(secret, "admin", time.Minute)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    int
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) }, http.StatusNoContent},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: raw}) }, http.StatusNoContent},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestApplyAuthenticationByConfig(t *testing.T) {
	cfg := &config.Config{}

	rec := httptest.NewRecorder()
	ApplyAuthenticationByConfig(cfg)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("auth disabled: got %d", rec.Code)
	}

	cfg.Authentication.RequireAuth = true
	cfg.Authentication.TokenSecret = string(secret)

	rec = httptest.NewRecorder()
	ApplyAuthenticationByConfig(cfg)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("auth enabled: got %d", rec.Code)
	}
}
