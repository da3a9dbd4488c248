package fmp

import (
	"maps"
	"strings"
)

// StatementRequest is one logical statements fetch. It is built once per
// call and never modified.
type StatementRequest struct {
	baseURL   string
	version   Version
	statement Statement
	params    map[string]string
}

func newStatementRequest(baseURL string, opts StatementOptions) StatementRequest {
	params := make(map[string]string, len(opts.Params)+1)
	maps.Copy(params, opts.Params)
	if opts.Period == Quarterly {
		params["period"] = string(Quarterly)
	}
	return StatementRequest{
		baseURL:   baseURL,
		version:   opts.Version,
		statement: opts.Statement,
		params:    params,
	}
}

// URL returns {base}v{version}/{path}/{symbols}.
func (r StatementRequest) URL(symbols []string) string {
	return r.baseURL + "v" + string(r.version) + "/" + r.statement.Path() + "/" + strings.Join(symbols, ",")
}

// Params returns a copy of the query parameters.
func (r StatementRequest) Params() map[string]string {
	return maps.Clone(r.params)
}

func (r StatementRequest) ListKey() string { return ListKey }

func (r StatementRequest) BatchLimit() int { return r.version.BatchLimit() }
