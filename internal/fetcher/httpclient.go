package fetcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"fmpfetcher/internal/ratelimit"
)

const (
	// Default retry configuration
	defaultRetryCount       = 3
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
	defaultTimeout          = 30 * time.Second
)

// HTTPOptions configures an HTTPTransport
type HTTPOptions struct {
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	Timeout          time.Duration

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// RetryOnErrorPayload retries a response whose JSON body carries a
	// top-level "error" key even when the status is 2xx.
	RetryOnErrorPayload bool
}

// DefaultHTTPOptions returns the options used when nothing is configured
func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		RetryCount:          defaultRetryCount,
		RetryWaitTime:       defaultRetryWaitTime,
		RetryMaxWaitTime:    defaultRetryMaxWaitTime,
		Timeout:             defaultTimeout,
		RetryOnErrorPayload: true,
	}
}

// HTTPTransport is the production Transport backed by resty
type HTTPTransport struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewHTTPTransport creates a transport with retry logic and exponential backoff
func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	client := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWaitTime).
		SetRetryMaxWaitTime(opts.RetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	if opts.RetryOnErrorPayload {
		client.AddRetryConditions(errorPayloadCondition)
	}

	return &HTTPTransport{
		client:  client,
		limiter: ratelimit.New(opts.RequestsPerSecond),
	}
}

// Fetch implements Transport
func (t *HTTPTransport) Fetch(ctx context.Context, url string, params map[string]string) (*Response, error) {
	if !t.limiter.Unlimited() && !t.limiter.Allow() {
		slog.Debug("waiting for rate limiter", "url", url)
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, ClassifyRequestError(err)
		}
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)

	if err != nil {
		return nil, ClassifyRequestError(err)
	}

	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}, nil
}

// Close releases the underlying HTTP client
func (t *HTTPTransport) Close() error {
	return t.client.Close()
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	// Retry on server errors (5xx)
	if r.StatusCode() >= 500 {
		return true
	}

	// Retry on rate limit (429)
	if r.StatusCode() == 429 {
		return true
	}

	// Retry on request timeout (408)
	if r.StatusCode() == 408 {
		return true
	}

	return false
}

// errorPayloadCondition retries when the service answered but reported an error in the body
func errorPayloadCondition(r *resty.Response, err error) bool {
	if err != nil || r == nil {
		return false
	}
	return gjson.Get(r.String(), "error").Exists()
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}
