// Package table reshapes aggregated results into a data table keyed by
// (symbol, date) and an error table keyed by the requested symbol list.
package table

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fmpfetcher/internal/aggregate"
	"fmpfetcher/internal/coerce"
	"fmpfetcher/internal/payload"
)

const (
	// SymbolColumn and DateColumn form the data table's composite key.
	SymbolColumn = "symbol"
	DateColumn   = "date"

	// ErrorIndex names the error table's index.
	ErrorIndex = "symbols"
)

// DefaultErrorColumns is the column set of an error table with no rows.
var DefaultErrorColumns = []string{payload.ErrorKey}

// Key identifies one data table row.
type Key struct {
	Symbol string
	Date   string
}

// Row is one reporting period for one symbol.
type Row struct {
	Symbol string
	Date   coerce.Value
	Values map[string]coerce.Value
}

// Key returns the row's index.
func (r Row) Key() Key {
	return Key{Symbol: r.Symbol, Date: dateKey(r.Date)}
}

// Get returns the cell for column, or Missing when the row has none.
func (r Row) Get(column string) coerce.Value {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return coerce.Missing{}
}

// DataTable holds every period of every symbol, sorted by symbol then date.
// Columns excludes the index columns.
type DataTable struct {
	Columns []string
	Rows    []Row
}

// IsEmpty reports whether the aggregation produced no successes.
func (t *DataTable) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// Len returns the number of rows.
func (t *DataTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Lookup finds the row for symbol and date (formatted YYYY-MM-DD).
func (t *DataTable) Lookup(symbol, date string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Symbol == symbol && dateKey(r.Date) == date {
			return r, true
		}
	}
	return Row{}, false
}

// Symbols returns the distinct symbols in row order.
func (t *DataTable) Symbols() []string {
	var out []string
	for _, r := range t.Rows {
		if len(out) == 0 || out[len(out)-1] != r.Symbol {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// DuplicateKeys returns every (symbol, date) that occurs more than once.
// Uniqueness holds only if the service never repeats a period.
func (t *DataTable) DuplicateKeys() []Key {
	seen := make(map[Key]int)
	var dups []Key
	for _, r := range t.Rows {
		k := r.Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// ErrorRow is one failed request.
type ErrorRow struct {
	Symbols string
	Values  map[string]coerce.Value
}

// Get returns the cell for column, or Missing when the row has none.
func (r ErrorRow) Get(column string) coerce.Value {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return coerce.Missing{}
}

// ErrorTable holds one row per failed chunk. It is never nil.
type ErrorTable struct {
	Index   string
	Columns []string
	Rows    []ErrorRow
}

// Len returns the number of rows.
func (t *ErrorTable) Len() int {
	return len(t.Rows)
}

// Lookup finds the row for a comma-joined symbol list.
func (t *ErrorTable) Lookup(symbols string) (ErrorRow, bool) {
	for _, r := range t.Rows {
		if r.Symbols == symbols {
			return r, true
		}
	}
	return ErrorRow{}, false
}

// Assemble builds both tables from one aggregation.
func Assemble(result *aggregate.Result) (*ErrorTable, *DataTable) {
	if result == nil {
		result = &aggregate.Result{}
	}
	return AssembleErrors(result.Errors), AssembleData(result.Successes)
}

// AssembleData flattens each symbol's periods into rows, camelizes the
// column names, then sorts by (symbol, date).
func AssembleData(records []payload.SymbolRecord) *DataTable {
	t := &DataTable{Columns: []string{}, Rows: []Row{}}
	known := make(map[string]bool)

	for _, rec := range records {
		for _, period := range rec.Financials {
			row := Row{
				Symbol: rec.Symbol,
				Date:   coerce.Missing{},
				Values: make(map[string]coerce.Value, period.Len()),
			}
			period.Each(func(key string, v coerce.Value) bool {
				col := Camelize(key)
				switch col {
				case DateColumn:
					row.Date = v
				case SymbolColumn, "":
					// replaced by the record's symbol; blank names are dropped
				default:
					row.Values[col] = v
					if !known[col] {
						known[col] = true
						t.Columns = append(t.Columns, col)
					}
				}
				return true
			})
			t.Rows = append(t.Rows, row)
		}
	}

	slices.SortStableFunc(t.Rows, func(a, b Row) int {
		return cmpOr(
			strings.Compare(a.Symbol, b.Symbol),
			strings.Compare(dateKey(a.Date), dateKey(b.Date)),
		)
	})
	return t
}

// AssembleErrors builds one row per record keyed by its symbol list. The
// columns are the raw error payload's fields; a payload that is not an
// object is stored under "error".
func AssembleErrors(records []payload.ErrorRecord) *ErrorTable {
	t := &ErrorTable{
		Index:   ErrorIndex,
		Columns: append([]string(nil), DefaultErrorColumns...),
		Rows:    []ErrorRow{},
	}
	known := make(map[string]bool)
	for _, c := range t.Columns {
		known[c] = true
	}

	for _, rec := range records {
		row := ErrorRow{Symbols: rec.Key(), Values: make(map[string]coerce.Value)}

		obj, ok := rec.Raw.(*coerce.Object)
		if !ok {
			row.Values[payload.ErrorKey] = rec.Raw
			t.Rows = append(t.Rows, row)
			continue
		}

		obj.Each(func(key string, v coerce.Value) bool {
			row.Values[key] = v
			if !known[key] {
				known[key] = true
				t.Columns = append(t.Columns, key)
			}
			return true
		})
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Camelize normalizes a column name. Multi-word names have each word
// capitalized (first rune upper-cased, the rest lower-cased) and joined; then
// the first character is lower-cased. A single word keeps its inner casing,
// so "Gross Profit", "grossProfit" and "GrossProfit" all become grossProfit,
// and "R&D Expenses" becomes r&dExpenses.
func Camelize(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		name = words[0]
	default:
		upper, lower := cases.Upper(language.Und), cases.Lower(language.Und)
		var b strings.Builder
		for _, w := range words {
			_, size := utf8.DecodeRuneInString(w)
			b.WriteString(upper.String(w[:size]))
			b.WriteString(lower.String(w[size:]))
		}
		name = b.String()
	}

	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(first)) + name[size:]
}

// dateKey is the sortable form of a date cell.
func dateKey(v coerce.Value) string {
	return coerce.Format(v)
}

// cmpOr returns the first argument that is not the zero value, like the
// standard library's cmp.Or (Go 1.22+).
func cmpOr[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}
