// Package aggregate drives one logical fetch across chunks of symbols and
// collects normalized successes and per-chunk failures side by side.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fmpfetcher/internal/fetcher"
	"fmpfetcher/internal/payload"
)

// Request describes one logical fetch. Implementations are immutable values.
type Request interface {
	// URL returns the request URL for one chunk of symbols.
	URL(symbols []string) string
	// Params returns the query parameters sent with every chunk.
	Params() map[string]string
	// ListKey is the key under which batch responses list their symbols.
	ListKey() string
	// BatchLimit is the largest chunk the endpoint accepts. Zero means no limit.
	BatchLimit() int
}

// Result holds everything one aggregation produced. It is appended to while
// chunks are processed and not modified after Run returns.
type Result struct {
	Successes []payload.SymbolRecord
	Errors    []payload.ErrorRecord
}

// Symbols returns every symbol accounted for, successes first.
func (r *Result) Symbols() []string {
	var out []string
	for _, s := range r.Successes {
		out = append(out, s.Symbol)
	}
	for _, e := range r.Errors {
		out = append(out, e.RequestedSymbols...)
	}
	return out
}

// Validate rejects a chunk size the request cannot honour.
func Validate(chunkSize int, req Request) error {
	if chunkSize < 1 {
		return fetcher.NewConfigurationError(fmt.Sprintf("chunk size must be at least 1, got %d", chunkSize))
	}
	if limit := req.BatchLimit(); limit > 0 && chunkSize > limit {
		return fetcher.NewConfigurationError(fmt.Sprintf(
			"chunk size %d exceeds the %d symbol(s) per request this API version supports", chunkSize, limit))
	}
	return nil
}

// Chunk partitions symbols into groups of size in their original order.
// Blank entries are dropped; the last group may be shorter.
func Chunk(symbols []string, size int) [][]string {
	if size < 1 {
		size = 1
	}

	var chunks [][]string
	var current []string
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		current = append(current, s)
		if len(current) == size {
			chunks = append(chunks, current)
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// Option configures Fetch and Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger chunk progress is reported to. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Fetch validates the chunk size, partitions symbols and runs the aggregation.
func Fetch(ctx context.Context, symbols []string, chunkSize int, t fetcher.Transport, req Request, opts ...Option) (*Result, error) {
	if err := Validate(chunkSize, req); err != nil {
		return nil, err
	}
	return Run(ctx, Chunk(symbols, chunkSize), t, req, opts...)
}

// Run fetches each chunk in order, one at a time. A chunk that fails at the
// transport or is answered with an error payload becomes an ErrorRecord and
// the loop moves on. Requested symbols a successful chunk leaves out become
// one more ErrorRecord, so every input symbol ends up in the Result. Decode
// and schema errors abort the call.
func Run(ctx context.Context, chunks [][]string, t fetcher.Transport, req Request, opts ...Option) (*Result, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	result := &Result{}
	listKey := req.ListKey()

	for i, chunk := range chunks {
		url := req.URL(chunk)
		logger := o.logger.With("chunk", i, "symbols", strings.Join(chunk, ","), "url", url)
		logger.Debug("fetching chunk")

		resp, err := t.Fetch(ctx, url, req.Params())
		normalized, err := payload.FromResponse(resp, err, listKey, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", strings.Join(chunk, ","), err)
		}

		switch normalized.Kind {
		case payload.ChunkSuccess:
			result.Successes = append(result.Successes, normalized.Records...)
			logger.Debug("chunk fetched", "records", len(normalized.Records))

			if missing := payload.Unreturned(chunk, normalized.Records); len(missing) > 0 {
				result.Errors = append(result.Errors, payload.NotReturned(missing))
				logger.Warn("symbols missing from response", "missing", strings.Join(missing, ","))
			}
		case payload.ChunkErrors:
			result.Errors = append(result.Errors, *normalized.Error)
			if normalized.Error.Kind.IsTransport() {
				logger.Warn("chunk request failed", "kind", normalized.Error.Kind)
			} else {
				logger.Warn("chunk rejected by service", "kind", normalized.Error.Kind)
			}
		}
	}

	return result, nil
}
