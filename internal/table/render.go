package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fmpfetcher/internal/coerce"
)

// Format selects how tables are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or csv)", s)
}

// Header returns the index columns followed by the data columns.
func (t *DataTable) Header() []string {
	return append([]string{SymbolColumn, DateColumn}, t.Columns...)
}

// Records returns every row as strings, in Header order.
func (t *DataTable) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make([]string, 0, len(t.Columns)+2)
		rec = append(rec, r.Symbol, coerce.Format(r.Date))
		for _, c := range t.Columns {
			rec = append(rec, coerce.Format(r.Get(c)))
		}
		out = append(out, rec)
	}
	return out
}

// Header returns the index column followed by the payload columns.
func (t *ErrorTable) Header() []string {
	return append([]string{t.Index}, t.Columns...)
}

// Records returns every row as strings, in Header order.
func (t *ErrorTable) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make([]string, 0, len(t.Columns)+1)
		rec = append(rec, r.Symbols)
		for _, c := range t.Columns {
			rec = append(rec, coerce.Format(r.Get(c)))
		}
		out = append(out, rec)
	}
	return out
}

// Write renders a header and records in the requested format.
func Write(w io.Writer, format Format, header []string, records [][]string) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(records); err != nil {
			return err
		}
		return cw.Error()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, rec := range records {
			fmt.Fprintln(tw, strings.Join(rec, "\t"))
		}
		return tw.Flush()
	}
}
