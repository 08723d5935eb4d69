// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/article-harvest/pkg/types"
)

// newTestFetcher returns a fetcher with instant sleeps that records every
// wait it would have performed.
func newTestFetcher(cfg types.FetchConfig) (*Fetcher, *[]time.Duration) {
	f := New(cfg, "test", zerolog.Nop())
	var waits []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return f, &waits
}

func TestDoImmediateSuccess(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, "payload")
	}))
	defer ts.Close()

	f, _ := newTestFetcher(types.FetchConfig{})
	body, err := f.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoRetriesServerErrorThenSucceeds(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	f, waits := newTestFetcher(types.FetchConfig{MaxRetries: 3, BaseDelay: time.Second})
	body, err := f.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	// Linear backoff: waits are non-decreasing.
	require.Len(t, *waits, 2)
	assert.Equal(t, 1*time.Second, (*waits)[0])
	assert.Equal(t, 2*time.Second, (*waits)[1])
}

func TestDoExhaustsRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	f, waits := newTestFetcher(types.FetchConfig{MaxRetries: 4, BaseDelay: time.Second})
	_, err := f.Get(context.Background(), ts.URL, nil)
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))

	// Exactly maxRetries-1 waits, monotonically non-decreasing.
	require.Len(t, *waits, 3)
	for i := 1; i < len(*waits); i++ {
		assert.GreaterOrEqual(t, (*waits)[i], (*waits)[i-1])
	}
}

func TestDoPermanentErrorNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	f, _ := newTestFetcher(types.FetchConfig{MaxRetries: 5})
	_, err := f.Get(context.Background(), ts.URL, nil)
	require.Error(t, err)
	assert.Equal(t, KindPermanent, KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoRateLimitWaitsForServerReset(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	f, waits := newTestFetcher(types.FetchConfig{MaxRetries: 3, QuotaCeiling: time.Minute})
	body, err := f.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	require.Len(t, *waits, 1)
	assert.Equal(t, 8*time.Second, (*waits)[0]) // Retry-After + 1s margin
}

func TestDoQuotaExhaustedShortCircuits(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		reset := time.Now().Add(6 * time.Hour).Unix()
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	f, waits := newTestFetcher(types.FetchConfig{MaxRetries: 5, QuotaCeiling: 5 * time.Minute})
	_, err := f.Get(context.Background(), ts.URL, nil)
	require.Error(t, err)
	assert.True(t, IsQuotaExhausted(err))

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Greater(t, fe.ResumeIn, 5*time.Hour)

	// No retries, no sleeps: the failure is immediate.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *waits)
}

func TestDoSetsConfiguredUserAgent(t *testing.T) {
	var gotUA atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	f, _ := newTestFetcher(types.FetchConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "article-harvest/0.1"},
	})
	_, err := f.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "article-harvest/0.1", gotUA.Load())

	// A caller-supplied header wins over the configured default.
	_, err = f.Get(context.Background(), ts.URL, map[string]string{"User-Agent": "custom/2"})
	require.NoError(t, err)
	assert.Equal(t, "custom/2", gotUA.Load())
}

func TestDoRateLimitLastAttemptDoesNotSleep(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	f, waits := newTestFetcher(types.FetchConfig{MaxRetries: 2, QuotaCeiling: time.Hour})
	_, err := f.Get(context.Background(), ts.URL, nil)
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// Only the wait between the two attempts; the final 429 fails without
	// sleeping through a reset no request will follow.
	require.Len(t, *waits, 1)
	assert.Equal(t, 121*time.Second, (*waits)[0])
}

func TestDoRateLimitWithoutResetUsesBackoff(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer ts.Close()

	f, waits := newTestFetcher(types.FetchConfig{MaxRetries: 3, BaseDelay: 2 * time.Second})
	_, err := f.Get(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	require.Len(t, *waits, 1)
	assert.Equal(t, 2*time.Second, (*waits)[0])
}

func TestResumeWait(t *testing.T) {
	now := time.Unix(1_000_000, 0)

	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
		ok     bool
	}{
		{"reset in future", http.Header{"X-Ratelimit-Reset": {"1000060"}}, 61 * time.Second, true},
		{"reset in past clamps to margin", http.Header{"X-Ratelimit-Reset": {"999000"}}, time.Second, true},
		{"retry-after seconds", http.Header{"Retry-After": {"30"}}, 31 * time.Second, true},
		{"garbage reset", http.Header{"X-Ratelimit-Reset": {"soon"}}, 0, false},
		{"no headers", http.Header{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: tt.header}
			got, ok := resumeWait(resp, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "quota_exhausted", KindQuotaExhausted.String())
	assert.Equal(t, "no_content", KindNoContent.String())
}
