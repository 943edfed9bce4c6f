package httpx

import (
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{301, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
		{599, true},
		{600, false},
	}
	for _, tc := range cases {
		if got := IsRetryableHTTPStatus(tc.code); got != tc.want {
			t.Errorf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	if got := RetryAfterDuration(resp, time.Second, time.Minute); got != 3*time.Second {
		t.Errorf("expected 3s, got %v", got)
	}
	if got := RetryAfterDuration(resp, time.Second, 2*time.Second); got != 2*time.Second {
		t.Errorf("expected cap at 2s, got %v", got)
	}
	if got := RetryAfterDuration(nil, time.Second, time.Minute); got != time.Second {
		t.Errorf("expected fallback 1s, got %v", got)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second
	prevHigh := time.Duration(0)
	for attempt := 0; attempt < 6; attempt++ {
		d := Backoff(attempt, base, max)
		if d < 0 {
			t.Fatalf("attempt %d: negative backoff %v", attempt, d)
		}
		// jitter is ±20%, so the upper bound is 1.2x the capped base
		high := time.Duration(float64(max) * 1.2)
		if d > high {
			t.Fatalf("attempt %d: backoff %v above jittered cap %v", attempt, d, high)
		}
		if attempt > 0 && prevHigh > 0 && d > 4*prevHigh {
			t.Fatalf("attempt %d: backoff %v grew faster than doubling allows", attempt, d)
		}
		prevHigh = d
	}
}

func TestJitterZeroBase(t *testing.T) {
	if got := Jitter(0); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}
