package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

func testFetcher(t *testing.T, cfg Config) Fetcher {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return NewFetcherWithConfig(log, cfg)
}

func TestFetchOK(t *testing.T) {
	body := "window.tcart = {};"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("user agent = %q", ua)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := testFetcher(t, Config{UserAgent: "test-agent"})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Content != body {
		t.Fatalf("content = %q, want %q", res.Content, body)
	}
	if res.Size != len(body) {
		t.Fatalf("size = %d, want %d", res.Size, len(body))
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestFetchNotFoundNoRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := testFetcher(t, Config{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("hits = %d, want 1 (404 must not retry)", n)
	}
	if got := ErrorClass(err); got != "NOT_FOUND" {
		t.Fatalf("ErrorClass = %q", got)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := testFetcher(t, Config{MaxRetries: 3})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Content != "recovered" {
		t.Fatalf("content = %q", res.Content)
	}
	if n := hits.Load(); n != 3 {
		t.Fatalf("hits = %d, want 3", n)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := testFetcher(t, Config{MaxRetries: 2})
	_, err := f.Fetch(context.Background(), srv.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", httpErr.StatusCode)
	}
	if n := hits.Load(); n != 3 {
		t.Fatalf("hits = %d, want 3 (initial + 2 retries)", n)
	}
	if got := ErrorClass(err); got != "HTTP_ERROR" {
		t.Fatalf("ErrorClass = %q", got)
	}
}

func TestFetchClientErrorTerminal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := testFetcher(t, Config{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), srv.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden {
		t.Fatalf("err = %v, want 403 *HTTPError", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("hits = %d, want 1 (403 must not retry)", n)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := testFetcher(t, Config{Timeout: 50 * time.Millisecond, MaxRetries: 1})
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if got := ErrorClass(err); got != "TIMEOUT" {
		t.Fatalf("ErrorClass = %q", got)
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := testFetcher(t, Config{MaxRetries: 1})
	_, err := f.Fetch(context.Background(), url)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if got := ErrorClass(err); got != "NETWORK" {
		t.Fatalf("ErrorClass = %q", got)
	}
}

func TestFetchHonorsCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := testFetcher(t, Config{MaxRetries: 3, RetryDelay: time.Hour})
	start := time.Now()
	_, err := f.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error on canceled context")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("canceled fetch blocked for %s", time.Since(start))
	}
}

func TestErrorClass(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "NOT_FOUND"},
		{ErrTimeout, "TIMEOUT"},
		{ErrNetwork, "NETWORK"},
		{&HTTPError{StatusCode: 502}, "HTTP_ERROR"},
		{errors.New("something else"), ""},
	}
	for _, tc := range cases {
		if got := ErrorClass(tc.err); got != tc.want {
			t.Errorf("ErrorClass(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
