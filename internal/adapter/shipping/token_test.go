package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenSource(t *testing.T, handler http.HandlerFunc) *tokenSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &tokenSource{
		endpoint:   srv.URL + "/oauth/token",
		clientID:   "shop",
		httpClient: srv.Client(),
		now:        time.Now,
	}
}

func TestTokenSourceSharesConcurrentRefresh(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	src := newTokenSource(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
	})

	var wg sync.WaitGroup
	tokens := make([]string, 6)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = src.Token(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected single refresh, got %d", calls.Load())
	}
	for _, tok := range tokens {
		if tok != "abc" {
			t.Fatalf("unexpected token %q", tok)
		}
	}
}

func TestTokenSourceRefreshesBeforeExpiry(t *testing.T) {
	var calls atomic.Int32
	src := newTokenSource(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":60}`))
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = now.Add(20 * time.Second)
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached token, got %d calls", calls.Load())
	}

	now = now.Add(15 * time.Second)
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected refresh inside skew window, got %d calls", calls.Load())
	}
}

func TestTokenSourceInvalidate(t *testing.T) {
	src := &tokenSource{token: "abc", expires: time.Now().Add(time.Hour)}
	src.Invalidate("other")
	if src.token != "abc" {
		t.Fatal("invalidating a different token must keep the cached one")
	}
	src.Invalidate("abc")
	if src.token != "" || !src.expires.IsZero() {
		t.Fatal("expected token to be dropped")
	}
}

func TestTokenSourceErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
		"json":   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`nope`)) },
		"empty":  func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"expires_in":10}`)) },
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			src := newTokenSource(t, handler)
			if _, err := src.Token(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTokenSourceDefaultsExpiry(t *testing.T) {
	src := newTokenSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"abc"}`))
	})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !src.expires.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", src.expires)
	}
}
