// Package fmp is a client for the Financial Modeling Prep REST API. It builds
// statement requests for the aggregator and fetches the per-symbol endpoints.
package fmp

import (
	"fmt"
	"strings"

	"fmpfetcher/internal/fetcher"
)

const (
	// DefaultBaseURL is the production API root. Paths are appended directly.
	DefaultBaseURL = "https://financialmodelingprep.com/api/"

	// ListKey holds the per-symbol entries of a legacy batch response.
	ListKey = "financialStatementList"
)

// Version is an API version as it appears in the URL.
type Version string

const (
	// VersionLegacy returns stringly typed batch payloads.
	VersionLegacy Version = "3"
	// VersionNative returns typed single-symbol payloads.
	VersionNative Version = "3.1"
)

// ParseVersion accepts "3", "v3", "3.0", "3.1" and "v3.1".
func ParseVersion(s string) (Version, error) {
	switch strings.TrimPrefix(strings.TrimSpace(s), "v") {
	case "3", "3.0":
		return VersionLegacy, nil
	case "3.1":
		return VersionNative, nil
	}
	return "", fmt.Errorf("API version %q is unsupported (want 3 or 3.1)", s)
}

// BatchLimit is the largest number of symbols one request may carry, or 0
// when there is no limit.
func (v Version) BatchLimit() int {
	if v == VersionNative {
		return 1
	}
	return 0
}

// Statement selects which financial statement to fetch.
type Statement string

const (
	IncomeStatement   Statement = "income"
	BalanceSheet      Statement = "balance"
	CashFlowStatement Statement = "cashflow"
)

// ParseStatement accepts the long names and the short forms is, bs and cf.
func ParseStatement(s string) (Statement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "is", "income-statement":
		return IncomeStatement, nil
	case "balance", "bs", "balance-sheet", "balance-sheet-statement":
		return BalanceSheet, nil
	case "cashflow", "cf", "cash-flow", "cash-flow-statement":
		return CashFlowStatement, nil
	}
	return "", fmt.Errorf("unknown statement %q (want income, balance or cashflow)", s)
}

// Path is the statement's endpoint path below the version segment.
func (s Statement) Path() string {
	switch s {
	case BalanceSheet:
		return "financials/balance-sheet-statement"
	case CashFlowStatement:
		return "financials/cash-flow-statement"
	default:
		return "financials/income-statement"
	}
}

// Period selects annual or quarterly reporting periods.
type Period string

const (
	Annual    Period = "annual"
	Quarterly Period = "quarter"
)

// ParsePeriod accepts annual, quarter and quarterly.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "annual", "year":
		return Annual, nil
	case "quarter", "quarterly":
		return Quarterly, nil
	}
	return "", fmt.Errorf("unknown period %q (want annual or quarter)", s)
}

// NormalizeSymbols trims and upper-cases symbols, dropping blanks.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func configError(err error) error {
	return fetcher.NewConfigurationError(err.Error())
}
