// Package payload classifies decoded API responses and rewrites every
// supported shape into one canonical form: a list of per-symbol records
// under the list key, or an error record attributed to the requested symbols.
package payload

import (
	"fmt"
	"strings"

	"fmpfetcher/internal/coerce"
	"fmpfetcher/internal/fetcher"
)

const (
	// ErrorKey is the top-level key the service uses to report a failure.
	ErrorKey = "error"
	// SymbolKey identifies a single-symbol payload. Matched case-insensitively.
	SymbolKey = "symbol"
	// FinancialsKey holds a symbol's per-period records.
	FinancialsKey = "financials"
)

// Shape is the result of probing a payload's top-level keys.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeBatch
	ShapeSingle
	ShapeError
)

func (s Shape) String() string {
	switch s {
	case ShapeBatch:
		return "batch"
	case ShapeSingle:
		return "single"
	case ShapeError:
		return "error"
	default:
		return "unknown"
	}
}

// Classify inspects raw and reports which known shape it has. An error key
// wins over everything else.
func Classify(raw coerce.Value, listKey string) Shape {
	obj, ok := raw.(*coerce.Object)
	if !ok {
		return ShapeUnknown
	}
	switch {
	case obj.Has(ErrorKey):
		return ShapeError
	case obj.Has(listKey):
		return ShapeBatch
	default:
		if _, _, ok := obj.GetFold(SymbolKey); ok {
			return ShapeSingle
		}
	}
	return ShapeUnknown
}

// SymbolRecord is one successfully fetched symbol and its periods in the
// order the server sent them.
type SymbolRecord struct {
	Symbol     string
	Financials []*coerce.Object
}

// ErrorRecord is a failed request. The service does not say which symbol of
// a batch failed, so the whole requested set is kept.
type ErrorRecord struct {
	RequestedSymbols []string
	Kind             fetcher.ErrorType
	Raw              coerce.Value
}

// Key is the stable index used for the record in an error table.
func (e ErrorRecord) Key() string {
	return strings.Join(e.RequestedSymbols, ",")
}

// ChunkKind tags a normalized chunk.
type ChunkKind int

const (
	ChunkSuccess ChunkKind = iota
	ChunkErrors
)

// Chunk is one normalized response.
type Chunk struct {
	Kind    ChunkKind
	ListKey string

	// Records is set for ChunkSuccess.
	Records []SymbolRecord

	// Error is set for ChunkErrors.
	Error *ErrorRecord
}

// Normalize rewrites raw into a Chunk. requested is the symbol list sent
// with the request; it is attached to error chunks as-is. A payload matching
// no known shape returns a schema error.
func Normalize(raw coerce.Value, listKey string, requested []string) (Chunk, error) {
	shape := Classify(raw, listKey)

	switch shape {
	case ShapeError:
		obj := raw.(*coerce.Object)
		return Chunk{
			Kind:    ChunkErrors,
			ListKey: listKey,
			Error: &ErrorRecord{
				RequestedSymbols: append([]string(nil), requested...),
				Kind:             fetcher.ErrorTypeAPI,
				Raw:              obj,
			},
		}, nil

	case ShapeBatch:
		obj := raw.(*coerce.Object)
		v, _ := obj.Get(listKey)
		list, ok := v.(coerce.List)
		if !ok {
			return Chunk{}, fetcher.NewSchemaError(fmt.Sprintf("%q is not a list", listKey))
		}
		records, err := symbolRecords(list)
		if err != nil {
			return Chunk{}, err
		}
		return Chunk{Kind: ChunkSuccess, ListKey: listKey, Records: records}, nil

	case ShapeSingle:
		records, err := symbolRecords(coerce.List{raw})
		if err != nil {
			return Chunk{}, err
		}
		return Chunk{Kind: ChunkSuccess, ListKey: listKey, Records: records}, nil

	default:
		return Chunk{}, fetcher.NewSchemaError(fmt.Sprintf(
			"payload for %s has none of the keys %q, %q or %q",
			strings.Join(requested, ","), listKey, SymbolKey, ErrorKey))
	}
}

func symbolRecords(list coerce.List) ([]SymbolRecord, error) {
	records := make([]SymbolRecord, 0, len(list))
	for i, item := range list {
		obj, ok := item.(*coerce.Object)
		if !ok {
			return nil, fetcher.NewSchemaError(fmt.Sprintf("entry %d is not an object", i))
		}
		rec, err := symbolRecord(obj)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func symbolRecord(obj *coerce.Object) (SymbolRecord, error) {
	_, sym, ok := obj.GetFold(SymbolKey)
	if !ok {
		return SymbolRecord{}, fetcher.NewSchemaError("symbol entry has no symbol")
	}
	symbol := coerce.Format(sym)
	if symbol == "" {
		return SymbolRecord{}, fetcher.NewSchemaError("symbol entry has an empty symbol")
	}

	v, ok := obj.Get(FinancialsKey)
	if !ok {
		return SymbolRecord{}, fetcher.NewSchemaError(fmt.Sprintf("%s has no %q", symbol, FinancialsKey))
	}
	list, ok := v.(coerce.List)
	if !ok {
		return SymbolRecord{}, fetcher.NewSchemaError(fmt.Sprintf("%s: %q is not a list", symbol, FinancialsKey))
	}

	periods := make([]*coerce.Object, 0, len(list))
	for i, item := range list {
		period, ok := item.(*coerce.Object)
		if !ok {
			return SymbolRecord{}, fetcher.NewSchemaError(fmt.Sprintf("%s: period %d is not an object", symbol, i))
		}
		periods = append(periods, period)
	}

	return SymbolRecord{Symbol: symbol, Financials: periods}, nil
}

// Canonical renders the chunk back into payload form. Normalizing the
// result yields an equal chunk.
func (c Chunk) Canonical() coerce.Value {
	if c.Kind == ChunkErrors {
		return c.Error.Raw
	}

	list := make(coerce.List, 0, len(c.Records))
	for _, rec := range c.Records {
		periods := make(coerce.List, 0, len(rec.Financials))
		for _, p := range rec.Financials {
			periods = append(periods, p)
		}
		obj := coerce.NewObject()
		obj.Set(SymbolKey, coerce.String(rec.Symbol))
		obj.Set(FinancialsKey, periods)
		list = append(list, obj)
	}

	root := coerce.NewObject()
	root.Set(c.ListKey, list)
	return root
}
