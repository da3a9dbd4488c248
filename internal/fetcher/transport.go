package fetcher

import "context"

// Transport is the single capability the normalization pipeline needs from
// the network: issue a GET and hand back the final response body.
//
// Implementations apply their own retry policy. A non-nil error means the
// transport gave up without a usable response (retries exhausted, timeout,
// cancellation). A response that arrives with a failing status is returned
// with a nil error and Response.OK() == false, so the caller can still
// inspect an error payload in the body.
type Transport interface {
	Fetch(ctx context.Context, url string, params map[string]string) (*Response, error)
}

// Response is the final outcome of one request after retries.
type Response struct {
	// URL is the request URL without query parameters. The wire variant is
	// detected from it.
	URL string

	StatusCode int

	// Body is the raw response text.
	Body string
}

// OK reports whether the transport considers the request successful.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
