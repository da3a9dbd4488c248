package fmp

import (
	"context"
	"log/slog"
	"strings"

	"fmpfetcher/internal/aggregate"
	"fmpfetcher/internal/fetcher"
	"fmpfetcher/internal/table"
)

// DefaultChunkSize is the number of symbols per legacy batch request.
const DefaultChunkSize = 3

// Client fetches from one API root through a Transport.
type Client struct {
	baseURL   string
	transport fetcher.Transport
	logger    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root, such as a test server.
// A trailing slash is added when missing.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
	}
}

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client that sends every request through t.
func NewClient(t fetcher.Transport, opts ...ClientOption) *Client {
	c := &Client{baseURL: DefaultBaseURL, transport: t, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatementOptions selects what a statements call fetches.
type StatementOptions struct {
	Statement Statement
	Period    Period
	Version   Version

	// ChunkSize is the number of symbols per request. Zero picks
	// DefaultChunkSize, or the version's batch limit when it has one.
	ChunkSize int

	// Params are extra query parameters sent with every chunk.
	Params map[string]string
}

// DefaultStatementOptions returns annual income statements from the legacy
// API in batches of DefaultChunkSize.
func DefaultStatementOptions() StatementOptions {
	return StatementOptions{
		Statement: IncomeStatement,
		Period:    Annual,
		Version:   VersionLegacy,
		ChunkSize: DefaultChunkSize,
	}
}

func (o StatementOptions) withDefaults() StatementOptions {
	d := DefaultStatementOptions()
	if o.Statement == "" {
		o.Statement = d.Statement
	}
	if o.Period == "" {
		o.Period = d.Period
	}
	if o.Version == "" {
		o.Version = d.Version
	}
	return o
}

// Request builds the immutable request a statements call would run.
func (c *Client) Request(opts StatementOptions) (StatementRequest, error) {
	opts = opts.withDefaults()

	var err error
	if opts.Version, err = ParseVersion(string(opts.Version)); err != nil {
		return StatementRequest{}, configError(err)
	}
	if opts.Statement, err = ParseStatement(string(opts.Statement)); err != nil {
		return StatementRequest{}, configError(err)
	}
	if opts.Period, err = ParsePeriod(string(opts.Period)); err != nil {
		return StatementRequest{}, configError(err)
	}
	return newStatementRequest(c.baseURL, opts), nil
}

// Statements fetches the chosen statement for every symbol and returns the
// normalized successes and per-chunk failures. Configuration problems are
// reported before any request is made.
func (c *Client) Statements(ctx context.Context, symbols []string, opts StatementOptions) (*aggregate.Result, error) {
	req, err := c.Request(opts)
	if err != nil {
		return nil, err
	}

	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fetcher.NewConfigurationError("no symbols requested")
	}

	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
		if limit := req.BatchLimit(); limit > 0 {
			chunkSize = limit
		}
	}

	result, err := aggregate.Fetch(ctx, symbols, chunkSize, c.transport, req, aggregate.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	c.logger.Info("statements fetched",
		"statement", req.statement,
		"version", req.version,
		"symbols", len(symbols),
		"chunk_size", chunkSize,
		"successes", len(result.Successes),
		"errors", len(result.Errors),
	)
	return result, nil
}

// FinancialStatements runs Statements and assembles the result into an
// error table and a data table.
func (c *Client) FinancialStatements(ctx context.Context, symbols []string, opts StatementOptions) (*table.ErrorTable, *table.DataTable, error) {
	result, err := c.Statements(ctx, symbols, opts)
	if err != nil {
		return nil, nil, err
	}

	errs, data := table.Assemble(result)
	if dups := data.DuplicateKeys(); len(dups) > 0 {
		c.logger.Warn("duplicate (symbol, date) rows", "count", len(dups), "first", dups[0])
	}
	return errs, data, nil
}
