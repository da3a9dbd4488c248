package coerce

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"fmpfetcher/internal/fetcher"
)

// Decode parses body into a Value tree. In ModeLegacy every string leaf is
// then run through Apply. A body that is not valid JSON yields a decode
// FetchError.
func Decode(body string, mode Mode) (Value, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fetcher.NewDecodeError("empty response body", nil)
	}
	if !gjson.Valid(body) {
		return nil, fetcher.NewDecodeError("response body is not valid JSON", nil)
	}

	tree := build(gjson.Parse(body))
	if mode == ModeLegacy {
		tree = Apply(tree)
	}
	return tree, nil
}

// build converts a parsed document without interpreting string contents.
func build(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null{}
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return number(r)
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			list := List{}
			r.ForEach(func(_, item gjson.Result) bool {
				list = append(list, build(item))
				return true
			})
			return list
		}
		obj := NewObject()
		r.ForEach(func(key, item gjson.Result) bool {
			obj.Set(key.Str, build(item))
			return true
		})
		return obj
	}
	return Null{}
}

// number keeps integral literals exact instead of routing them through float64.
func number(r gjson.Result) Value {
	if !strings.ContainsAny(r.Raw, ".eE") {
		if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return Integer(n)
		}
	}
	return Float(r.Num)
}
