package testutil

import (
	"context"
	"strings"
	"sync"

	"fmpfetcher/internal/fetcher"
)

// Call is one recorded Fetch invocation
type Call struct {
	URL    string
	Params map[string]string
}

// MockTransport is a mock implementation of the Transport interface for testing
type MockTransport struct {
	FetchFunc func(ctx context.Context, url string, params map[string]string) (*fetcher.Response, error)

	mu    sync.Mutex
	calls []Call
}

// Fetch implements the Transport interface
func (m *MockTransport) Fetch(ctx context.Context, url string, params map[string]string) (*fetcher.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{URL: url, Params: params})
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url, params)
	}
	return &fetcher.Response{URL: url, StatusCode: 200, Body: "{}"}, nil
}

// Calls returns the recorded invocations in order
func (m *MockTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Route is a canned reply for URLs ending in Suffix
type Route struct {
	Suffix string
	Status int
	Body   string
	Err    error
}

// NewRoutedTransport creates a mock that answers by URL suffix. Unmatched
// URLs get a 404 with an empty body.
func NewRoutedTransport(routes ...Route) *MockTransport {
	return &MockTransport{
		FetchFunc: func(ctx context.Context, url string, params map[string]string) (*fetcher.Response, error) {
			for _, r := range routes {
				if !strings.HasSuffix(url, r.Suffix) {
					continue
				}
				if r.Err != nil {
					return nil, r.Err
				}
				status := r.Status
				if status == 0 {
					status = 200
				}
				return &fetcher.Response{URL: url, StatusCode: status, Body: r.Body}, nil
			}
			return &fetcher.Response{URL: url, StatusCode: 404}, nil
		},
	}
}
