// Package coerce decodes API payloads into a typed value tree and converts
// string-encoded scalars from the legacy wire format into their semantic
// types.
package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is a decoded JSON value. The set of implementations is closed.
type Value interface {
	isValue()
}

type (
	// Integer is a whole number.
	Integer int64
	// Float is a decimal number.
	Float float64
	// String is text that matched no coercion rule.
	String string
	// Bool is a JSON boolean.
	Bool bool
	// Missing marks an absent value (an empty string on the legacy wire).
	Missing struct{}
	// Null is a JSON null.
	Null struct{}
	// List is a JSON array.
	List []Value
)

// Range is a "low-high" pair such as an analyst price range.
type Range struct {
	Low  float64
	High float64
}

// Date is a calendar date without time of day.
type Date struct {
	civil.Date
}

// NewDate builds a Date from its parts.
func NewDate(year int, month int, day int) Date {
	return Date{civil.Date{Year: year, Month: time.Month(month), Day: day}}
}

func (Integer) isValue() {}
func (Float) isValue()   {}
func (String) isValue()  {}
func (Bool) isValue()    {}
func (Missing) isValue() {}
func (Null) isValue()    {}
func (List) isValue()    {}
func (Range) isValue()   {}
func (Date) isValue()    {}
func (*Object) isValue() {}

// MarshalJSON renders a missing value as null.
func (Missing) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON renders null.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON renders a range as a two-element array.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Low, r.High})
}

// Object is a JSON object that remembers the order its keys arrived in.
type Object struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{fields: orderedmap.New[string, Value]()}
}

// Set stores v under key, keeping the key's original position if it exists.
func (o *Object) Set(key string, v Value) {
	o.fields.Set(key, v)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	return o.fields.Get(key)
}

// GetFold looks a key up case-insensitively and returns the key as stored.
func (o *Object) GetFold(key string) (string, Value, bool) {
	if v, ok := o.fields.Get(key); ok {
		return key, v, true
	}
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		if strings.EqualFold(pair.Key, key) {
			return pair.Key, pair.Value, true
		}
	}
	return "", nil, false
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.fields.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.fields.Len())
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return o.fields.Len()
}

// Each calls fn for every field in insertion order until fn returns false.
func (o *Object) Each(fn func(key string, v Value) bool) {
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// MarshalJSON renders the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return o.fields.MarshalJSON()
}

// Format renders a scalar for display. Nested values are rendered as JSON.
func Format(v Value) string {
	switch x := v.(type) {
	case nil, Missing:
		return ""
	case Null:
		return "null"
	case Integer:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	case String:
		return string(x)
	case Bool:
		return strconv.FormatBool(bool(x))
	case Range:
		return strconv.FormatFloat(x.Low, 'f', -1, 64) + "-" + strconv.FormatFloat(x.High, 'f', -1, 64)
	case Date:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
