package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const errorBodyLimit = 1024

// postPolicy bundles the delivery timing knobs shared by webhook-style
// notifiers: the per-request timeout, the per-target rate limit, and the
// retry backoff envelope.
type postPolicy struct {
	timeout        time.Duration
	rateEvery      time.Duration
	rateBurst      int
	backoffInitial time.Duration
	backoffMax     time.Duration
	backoffBudget  time.Duration
}

var defaultPolicy = postPolicy{
	timeout:        10 * time.Second,
	rateEvery:      1 * time.Second,
	rateBurst:      1,
	backoffInitial: 1 * time.Second,
	backoffMax:     10 * time.Second,
	backoffBudget:  30 * time.Second,
}

// poster delivers JSON payloads to a webhook endpoint with per-target
// rate limiting and bounded retries on transient failures.
type poster struct {
	logger      zerolog.Logger
	name        string
	endpoint    string
	contentType string
	client      *retryablehttp.Client
	policy      postPolicy
	limiters    map[string]*rate.Limiter
	limiterMu   sync.Mutex
}

func newPoster(logger zerolog.Logger, name, endpoint, contentType string, policy postPolicy) *poster {
	// Retries are driven by our own backoff loop so Retry-After handling
	// stays under our control; the retryablehttp client only contributes
	// its request plumbing.
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: policy.timeout}

	return &poster{
		logger:      logger,
		name:        name,
		endpoint:    endpoint,
		contentType: contentType,
		client:      client,
		policy:      policy,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// await blocks until the target's rate limiter admits another delivery.
func (p *poster) await(ctx context.Context, target string) error {
	return p.limiter(target).Wait(ctx)
}

func (p *poster) limiter(target string) *rate.Limiter {
	p.limiterMu.Lock()
	defer p.limiterMu.Unlock()

	limiter, ok := p.limiters[target]
	if ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(p.policy.rateEvery), p.policy.rateBurst)
	p.limiters[target] = limiter
	return limiter
}

// deliver posts the payload, retrying transient failures with
// exponential backoff and honoring server-mandated waits.
func (p *poster) deliver(ctx context.Context, payload []byte) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.policy.backoffInitial
	policy.MaxInterval = p.policy.backoffMax
	policy.MaxElapsedTime = p.policy.backoffBudget
	policy.Reset()

	for {
		err := p.post(ctx, payload)
		if err == nil {
			return nil
		}

		var pause *pauseError
		if errors.As(err, &pause) {
			if !sleepContext(ctx, pause.Wait) {
				return ctx.Err()
			}
			continue
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			return err
		}
		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		if !sleepContext(ctx, wait) {
			return ctx.Err()
		}
	}
}

// post performs one request and classifies the outcome.
func (p *poster) post(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.policy.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", p.contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("%s request failed: %w", p.name, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	bodyText := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			return &pauseError{
				Wait: wait,
				err:  fmt.Errorf("%s rate limited: %s", p.name, resp.Status),
			}
		}
		return &transientError{err: fmt.Errorf("%s rate limited: %s", p.name, resp.Status)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &transientError{err: fmt.Errorf("%s server error: %s", p.name, resp.Status)}
	}

	if bodyText != "" {
		return fmt.Errorf("%s request failed: %s (%s)", p.name, resp.Status, bodyText)
	}
	return fmt.Errorf("%s request failed: %s", p.name, resp.Status)
}

func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		wait := time.Until(when)
		if wait <= 0 {
			return 0, false
		}
		return wait, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// transientError marks a delivery failure worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

// pauseError carries a server-mandated wait before the next attempt.
type pauseError struct {
	Wait time.Duration
	err  error
}

func (e *pauseError) Error() string {
	return fmt.Sprintf("rate limited; retry after %s", e.Wait)
}

func (e *pauseError) Unwrap() error {
	return e.err
}
