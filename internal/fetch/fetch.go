// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch executes single network operations with bounded retries,
// linear backoff, and server-directed rate-limit handling. It performs
// network I/O only; persistence is the caller's responsibility, so any
// operation can be retried without risking a partial write.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/article-harvest/internal/metrics"
	"github.com/pdiddy/article-harvest/pkg/types"
)

const (
	defaultMaxRetries   = 3
	defaultBaseDelay    = 5 * time.Second
	defaultQuotaCeiling = 5 * time.Minute
	defaultTimeout      = 60 * time.Second
)

// Fetcher performs one logical network operation with resilience to
// transient failure and rate limiting. The zero value is not usable;
// construct with New.
type Fetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	source       string
	userAgent    string
	maxRetries   int
	baseDelay    time.Duration
	quotaCeiling time.Duration
	log          zerolog.Logger

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Fetcher for one source. The source name labels logs and
// metrics. Zero config fields fall back to defaults.
func New(cfg types.FetchConfig, source string, log zerolog.Logger) *Fetcher {
	f := &Fetcher{
		source:       source,
		userAgent:    cfg.UserAgent,
		maxRetries:   cfg.MaxRetries,
		baseDelay:    cfg.BaseDelay,
		quotaCeiling: cfg.QuotaCeiling,
		log:          log,
		now:          time.Now,
		sleep:        sleepCtx,
	}
	if f.maxRetries <= 0 {
		f.maxRetries = defaultMaxRetries
	}
	if f.baseDelay <= 0 {
		f.baseDelay = defaultBaseDelay
	}
	if f.quotaCeiling <= 0 {
		f.quotaCeiling = defaultQuotaCeiling
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	f.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return f
}

// Do executes req with up to MaxRetries attempts and returns the response
// body on success. The configured User-Agent is applied unless the caller
// already set one.
//
// Transport errors, timeouts, and 5xx responses wait BaseDelay*attempt
// before the next try. A 429 carrying a reset time waits until the reset
// plus one second, unless that wait exceeds the quota ceiling, in which
// case Do returns a KindQuotaExhausted error immediately. Any other 4xx
// fails immediately with KindPermanent. Exhausted retries return the last
// transient or rate-limited failure.
func (f *Fetcher) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if f.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", f.userAgent)
	}

	var lastErr *Error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, &Error{Kind: KindTransient, Detail: err.Error()}
			}
		}

		metrics.FetchAttempts.WithLabelValues(f.source).Inc()

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = &Error{Kind: KindTransient, Detail: err.Error()}
			if waitErr := f.backoff(ctx, attempt, lastErr); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp)
			wait, ok := resumeWait(resp, f.now())
			if ok && wait > f.quotaCeiling {
				f.log.Warn().
					Str("source", f.source).
					Dur("resume_in", wait).
					Msg("rate-limit reset exceeds ceiling, stopping run")
				return nil, &Error{
					Kind:     KindQuotaExhausted,
					Status:   resp.StatusCode,
					Detail:   fmt.Sprintf("quota resets in %s", wait.Round(time.Second)),
					ResumeIn: wait,
				}
			}
			lastErr = &Error{Kind: KindRateLimited, Status: resp.StatusCode, Detail: "rate limited"}
			if ok {
				if attempt >= f.maxRetries {
					// No attempt left to spend the wait on.
					continue
				}
				// Server told us when to come back; honor it instead of
				// the linear schedule.
				metrics.Retries.WithLabelValues(f.source, KindRateLimited.String()).Inc()
				f.log.Info().
					Str("source", f.source).
					Dur("wait", wait).
					Int("attempt", attempt).
					Msg("rate limited, waiting for reset")
				if err := f.sleep(ctx, wait); err != nil {
					return nil, &Error{Kind: KindTransient, Detail: err.Error()}
				}
				continue
			}
			if waitErr := f.backoff(ctx, attempt, lastErr); waitErr != nil {
				return nil, waitErr
			}
			continue

		case resp.StatusCode >= 500:
			drain(resp)
			lastErr = &Error{
				Kind:   KindTransient,
				Status: resp.StatusCode,
				Detail: fmt.Sprintf("HTTP %d", resp.StatusCode),
			}
			if waitErr := f.backoff(ctx, attempt, lastErr); waitErr != nil {
				return nil, waitErr
			}
			continue

		case resp.StatusCode >= 400:
			drain(resp)
			return nil, &Error{
				Kind:   KindPermanent,
				Status: resp.StatusCode,
				Detail: fmt.Sprintf("HTTP %d", resp.StatusCode),
			}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &Error{Kind: KindTransient, Detail: readErr.Error()}
			if waitErr := f.backoff(ctx, attempt, lastErr); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = &Error{Kind: KindTransient, Detail: "retries exhausted"}
	}
	return nil, lastErr
}

// Get is a convenience wrapper building a GET request with headers.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindPermanent, Detail: err.Error()}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return f.Do(ctx, req)
}

// backoff waits BaseDelay*attempt before the next try. The last attempt
// does not wait. It only errors when the context is cancelled.
func (f *Fetcher) backoff(ctx context.Context, attempt int, cause *Error) error {
	if attempt >= f.maxRetries {
		return nil
	}
	wait := f.baseDelay * time.Duration(attempt)
	metrics.Retries.WithLabelValues(f.source, cause.Kind.String()).Inc()
	f.log.Debug().
		Str("source", f.source).
		Int("attempt", attempt).
		Dur("wait", wait).
		Str("cause", cause.Detail).
		Msg("retrying after backoff")
	if err := f.sleep(ctx, wait); err != nil {
		return &Error{Kind: KindTransient, Detail: err.Error()}
	}
	return nil
}

// resumeWait extracts the server-specified resume time from a 429
// response: X-RateLimit-Reset (epoch seconds, Elsevier style) or
// Retry-After (delta seconds). The returned wait includes a one-second
// margin past the reset.
func resumeWait(resp *http.Response, now time.Time) (time.Duration, bool) {
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			reset := time.Unix(epoch, 0)
			wait := reset.Sub(now)
			if wait < 0 {
				wait = 0
			}
			return wait + time.Second, true
		}
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs)*time.Second + time.Second, true
		}
	}
	return 0, false
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
