package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/assetwatch-backend/internal/observability"
	"github.com/yungbote/assetwatch-backend/internal/pkg/httpx"
	"github.com/yungbote/assetwatch-backend/internal/platform/envutil"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

// Sentinel errors for the fetch taxonomy. Callers match with errors.Is
// (ErrNotFound, ErrTimeout, ErrNetwork) or errors.As (*HTTPError).
var (
	ErrNotFound = errors.New("fetch: not found")
	ErrTimeout  = errors.New("fetch: timeout")
	ErrNetwork  = errors.New("fetch: network error")
)

// HTTPError is any non-2xx response other than 404.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: http %d: %s", e.StatusCode, e.URL)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// ErrorClass maps a fetch error to its taxonomy code, for logs and metric
// labels. Unclassified errors (including context cancellation) return "".
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrNetwork):
		return "NETWORK"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return "HTTP_ERROR"
	}
	return ""
}

// Result is one successfully fetched asset payload.
type Result struct {
	URL        string
	StatusCode int
	Content    string
	Size       int
}

// Fetcher downloads asset content over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

type Config struct {
	Timeout    time.Duration
	UserAgent  string
	MaxRetries int
	RetryDelay time.Duration
}

type fetcher struct {
	log        *logger.Logger
	httpClient *http.Client
	userAgent  string
	maxRetries int
	retryDelay time.Duration
}

const maxRetrySleep = 30 * time.Second

// NewFetcher builds an env-configured Fetcher.
func NewFetcher(log *logger.Logger) Fetcher {
	cfg := Config{
		Timeout:    envutil.Duration("REQUEST_TIMEOUT", 30*time.Second),
		UserAgent:  envutil.Str("FETCH_USER_AGENT", "Mozilla/5.0 (compatible; AssetWatch/1.0)"),
		MaxRetries: envutil.Int("REQUEST_RETRY_COUNT", 3),
		RetryDelay: envutil.Duration("REQUEST_RETRY_DELAY", 5*time.Second),
	}
	return NewFetcherWithConfig(log, cfg)
}

func NewFetcherWithConfig(log *logger.Logger, cfg Config) Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &fetcher{
		log:        log.With("service", "fetch"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

func (f *fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	start := time.Now()
	res, err := f.fetchWithRetry(ctx, url)
	if m := observability.Current(); m != nil {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(ErrorClass(err))
			if outcome == "" {
				outcome = "error"
			}
		}
		m.ObserveFetch(outcome, time.Since(start))
	}
	return res, err
}

func (f *fetcher) fetchWithRetry(ctx context.Context, url string) (*Result, error) {
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		res, resp, err := f.fetchOnce(ctx, url)
		if err == nil {
			return res, nil
		}
		// 404 is terminal immediately; so is anything outside the
		// retryable taxonomy (4xx other than 408/429).
		if errors.Is(err, ErrNotFound) || !retryable(err) {
			return nil, err
		}
		if attempt == f.maxRetries {
			return nil, err
		}

		sleepFor := httpx.Backoff(attempt, f.retryDelay, maxRetrySleep)
		sleepFor = httpx.RetryAfterDuration(resp, sleepFor, maxRetrySleep)

		f.log.Warn("fetch retrying",
			"url", url,
			"attempt", attempt+1,
			"max_retries", f.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(sleepFor):
		}
	}
	return nil, fmt.Errorf("unreachable retry loop")
}

func (f *fetcher) fetchOnce(ctx context.Context, url string) (*Result, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, nil, classifyTransport(ctx, err)
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, errors.Join(ErrNetwork, readErr)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, resp, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	return &Result{
		URL:        url,
		StatusCode: resp.StatusCode,
		Content:    string(raw),
		Size:       len(raw),
	}, resp, nil
}

// classifyTransport wraps a client.Do error with the matching sentinel.
// Caller cancellation passes through unwrapped so it is never retried.
func classifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return errors.Join(ErrTimeout, err)
		}
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrNetwork, err)
}

// retryable treats timeouts and connection failures like retryable HTTP
// statuses. The transport can flake between polls of the same CDN.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) {
		return true
	}
	return httpx.IsRetryableError(err)
}
