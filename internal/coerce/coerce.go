package coerce

import (
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// Mode selects whether string leaves are coerced while decoding.
type Mode int

const (
	// ModeLegacy is the batch-capable wire format that encodes every scalar
	// as a string.
	ModeLegacy Mode = iota
	// ModeNative is the single-symbol wire format with natively typed JSON.
	ModeNative
)

// NativeMarker is the URL path segment identifying the native-JSON API.
const NativeMarker = "/v3.1/"

func (m Mode) String() string {
	if m == ModeNative {
		return "native"
	}
	return "legacy"
}

// ModeForURL detects the wire format from the request URL. Native payloads
// must never be coerced a second time.
func ModeForURL(url string) Mode {
	if strings.Contains(url, NativeMarker) {
		return ModeNative
	}
	return ModeLegacy
}

type rule struct {
	pattern *regexp.Regexp
	convert func(s string) (Value, bool)
}

// rules are evaluated in order against the original string; a later match
// replaces the result of an earlier one.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`^[-+]?[0-9]*\.[0-9]+$`),
		convert: func(s string) (Value, bool) {
			f, err := strconv.ParseFloat(s, 64)
			return Float(f), err == nil
		},
	},
	{
		pattern: regexp.MustCompile(`^[-+]?[0-9]+$`),
		convert: func(s string) (Value, bool) {
			n, err := strconv.ParseInt(s, 10, 64)
			return Integer(n), err == nil
		},
	},
	{
		pattern: regexp.MustCompile(`^[0-9]+\.?[0-9]*-[0-9]+\.?[0-9]*$`),
		convert: func(s string) (Value, bool) {
			lo, hi, _ := strings.Cut(s, "-")
			low, err := strconv.ParseFloat(lo, 64)
			if err != nil {
				return nil, false
			}
			high, err := strconv.ParseFloat(hi, 64)
			if err != nil {
				return nil, false
			}
			return Range{Low: low, High: high}, true
		},
	},
	{
		pattern: regexp.MustCompile(`^[12][0-9]{3}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`),
		convert: func(s string) (Value, bool) {
			d, err := civil.ParseDate(s)
			if err != nil {
				return nil, false
			}
			return Date{d}, true
		},
	},
	{
		pattern: regexp.MustCompile(`^$`),
		convert: func(string) (Value, bool) {
			return Missing{}, true
		},
	},
}

// Scalar coerces one string. Strings that match no rule, or match a rule
// whose conversion fails (an out-of-range integer, 2019-02-31), stay String.
func Scalar(s string) Value {
	var out Value = String(s)
	for _, r := range rules {
		if !r.pattern.MatchString(s) {
			continue
		}
		if v, ok := r.convert(s); ok {
			out = v
		}
	}
	return out
}

// Apply returns v with every String leaf coerced. Keys are never touched and
// non-string leaves pass through. Objects and lists are rebuilt, v itself is
// not modified.
func Apply(v Value) Value {
	switch x := v.(type) {
	case String:
		return Scalar(string(x))
	case List:
		out := make(List, len(x))
		for i, item := range x {
			out[i] = Apply(item)
		}
		return out
	case *Object:
		out := NewObject()
		x.Each(func(key string, item Value) bool {
			out.Set(key, Apply(item))
			return true
		})
		return out
	default:
		return v
	}
}
