package repository

import (
	"reflect"
	"strings"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
)

const (
	// logicalIDField is rewritten to the backend primary key
	logicalIDField = "id"
	listSeparator  = "|"
)

// normalize returns the canonical form of a clause: the logical id key is
// rewritten to the primary key, the operator defaults to $eq and list
// operators always carry a list.
func normalize(f query.Filter) query.Filter {
	if f.Key == logicalIDField {
		f.Key = domain.FieldObjectID
	}
	if f.Op == "" {
		f.Op = query.OpEq
	}
	switch f.Op {
	case query.OpIn, query.OpNin, query.OpElemMatch, query.OpAnd:
		f.Value = toList(f.Value)
	}
	return f
}

// toList keeps sequences, splits "a|b" strings and wraps anything else
func toList(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case string:
		if strings.Contains(t, listSeparator) {
			parts := strings.Split(t, listSeparator)
			out := make([]interface{}, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out
		}
		return []interface{}{t}
	case nil:
		return []interface{}{nil}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []interface{}{v}
}
