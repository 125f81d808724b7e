package query

import (
	"net/url"
	"strings"
)

// Reserved parameter keys. Consumers must not use these as filterable
// field names.
const (
	ParamSearch   = "search"
	ParamSort     = "sort"
	ParamPage     = "page"
	ParamLimit    = "limit"
	ParamPopulate = "populate"
)

// Package defaults applied when a parameter is absent or non-numeric.
const (
	DefaultSort        = "-createdAt"
	DefaultPage  int64 = 1
	DefaultLimit int64 = 10
)

var reservedParams = map[string]struct{}{
	ParamSearch:   {},
	ParamSort:     {},
	ParamPage:     {},
	ParamLimit:    {},
	ParamPopulate: {},
}

// Params holds the decoded query-string parameters for one request.
// Values are strings, except range filters which arrive pre-nested as
// {"price": {"gte": "500", "lte": "1000"}}. The builder never mutates
// a Params value.
type Params map[string]any

// Get returns the string value for key, or "" when absent or nested.
func (p Params) Get(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// ParseQuery converts decoded URL query values into Params. Bracket
// keys fold into nested maps, so "price[gte]=500&price[lte]=1000"
// becomes {"price": {"gte": "500", "lte": "1000"}}. Repeated keys keep
// the first value.
func ParseQuery(values url.Values) Params {
	params := Params{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]
		open := strings.IndexByte(key, '[')
		if open > 0 && strings.HasSuffix(key, "]") {
			field, op := key[:open], key[open+1:len(key)-1]
			if op == "" {
				continue
			}
			nested, ok := params[field].(map[string]any)
			if !ok {
				if _, taken := params[field]; taken {
					continue
				}
				nested = map[string]any{}
				params[field] = nested
			}
			nested[op] = val
			continue
		}
		if _, taken := params[key]; !taken {
			params[key] = val
		}
	}
	return params
}
