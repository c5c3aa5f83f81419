package repository

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
)

// applyFilter applies one clause to q. Unknown operators fall back to $eq.
func (r *Repository) applyFilter(f query.Filter, q domain.Query) {
	f = normalize(f)
	switch f.Op {
	case query.OpExists:
		if truthy(f.Value) {
			q.Exists(f.Key)
		} else {
			q.DoesNotExist(f.Key)
		}
	case query.OpIn, query.OpElemMatch:
		q.ContainedIn(f.Key, f.Value.([]interface{}))
	case query.OpNin:
		q.NotContainedIn(f.Key, f.Value.([]interface{}))
	case query.OpNe:
		q.NotEqualTo(f.Key, f.Value)
	case query.OpRegex:
		q.Matches(f.Key, regexp.QuoteMeta(patternString(f.Value)))
	case query.OpLt:
		q.LessThan(f.Key, f.Value)
	case query.OpLte:
		q.LessThanOrEqualTo(f.Key, f.Value)
	case query.OpGt:
		q.GreaterThan(f.Key, f.Value)
	case query.OpGte:
		q.GreaterThanOrEqualTo(f.Key, f.Value)
	case query.OpOr:
		q.Contains(f.Key, f.Value)
	case query.OpAnd:
		q.ContainsAll(f.Key, f.Value.([]interface{}))
	case query.OpBool:
		r.applyBool(f, q)
	case query.OpNested:
		r.applyNested(f, q)
	default:
		q.EqualTo(f.Key, f.Value)
	}
}

// applyBool compiles every non-empty group into its own sub-query and combines
// them on q. A combination the backend rejects is logged and dropped.
func (r *Repository) applyBool(f query.Filter, q domain.Query) {
	var subs []domain.Query
	for _, group := range clauseGroups(f.Value) {
		if len(group) == 0 {
			continue
		}
		subs = append(subs, r.compileGroup(q.ClassName(), group))
	}
	if len(subs) == 0 {
		return
	}

	var err error
	switch f.Key {
	case query.BoolOr:
		err = q.Or(subs...)
	case query.BoolNot:
		err = q.Nor(subs...)
	default:
		err = q.And(subs...)
	}
	if err != nil {
		r.log.Warn("dropping boolean filter", "class", r.className, "combinator", f.Key, "groups", len(subs), "error", err)
	}
}

// compileGroup builds an independent query on className from a clause group
func (r *Repository) compileGroup(className string, filters []query.Filter) domain.Query {
	sub := r.backend.NewQuery(className)
	for _, f := range filters {
		r.applyFilter(f, sub)
	}
	return sub
}

// applyNested constrains f.Key to related (or embedded) objects matching the
// clauses in f.Value. Scalars degrade to $eq.
func (r *Repository) applyNested(f query.Filter, q domain.Query) {
	if isScalar(f.Value) {
		q.EqualTo(f.Key, f.Value)
		return
	}

	sub := r.backend.NewQuery(r.relationClass(f.Key))
	if clause, ok := asFilter(f.Value); ok {
		r.applyFilter(clause, sub)
	} else if list, ok := asList(f.Value); ok {
		for _, item := range list {
			if clause, ok := asFilter(item); ok {
				r.applyFilter(clause, sub)
			}
		}
	} else if m, ok := asMap(f.Value); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r.applyFilter(query.Filter{Key: k, Op: query.OpEq, Value: m[k]}, sub)
		}
	}
	q.MatchesQuery(f.Key, sub)
}

// clauseGroups reads the operand of a $bool filter, either one group or a list
// of groups, typed or decoded from JSON/YAML.
func clauseGroups(v interface{}) [][]query.Filter {
	switch t := v.(type) {
	case nil:
		return nil
	case query.Group:
		return [][]query.Filter{t.Filters}
	case *query.Group:
		if t == nil {
			return nil
		}
		return [][]query.Filter{t.Filters}
	case []query.Group:
		out := make([][]query.Filter, len(t))
		for i, g := range t {
			out[i] = g.Filters
		}
		return out
	case []query.Filter:
		return [][]query.Filter{t}
	}

	if list, ok := asList(v); ok {
		out := make([][]query.Filter, 0, len(list))
		for _, item := range list {
			out = append(out, groupFilters(item))
		}
		return out
	}
	return [][]query.Filter{groupFilters(v)}
}

// groupFilters reads one group: {"filters": [...]} or a bare list of clauses
func groupFilters(v interface{}) []query.Filter {
	switch t := v.(type) {
	case query.Group:
		return t.Filters
	case *query.Group:
		if t != nil {
			return t.Filters
		}
		return nil
	case []query.Filter:
		return t
	}

	items, ok := asList(v)
	if !ok {
		m, isMap := asMap(v)
		if !isMap {
			return nil
		}
		if items, ok = asList(m["filters"]); !ok {
			if typed, isTyped := m["filters"].([]query.Filter); isTyped {
				return typed
			}
			return nil
		}
	}

	var out []query.Filter
	for _, item := range items {
		if f, ok := asFilter(item); ok {
			out = append(out, f)
		}
	}
	return out
}

// asFilter recognizes a {key, op, value} triple
func asFilter(v interface{}) (query.Filter, bool) {
	switch t := v.(type) {
	case query.Filter:
		return t, t.Key != ""
	case *query.Filter:
		if t == nil {
			return query.Filter{}, false
		}
		return *t, t.Key != ""
	}
	m, ok := asMap(v)
	if !ok {
		return query.Filter{}, false
	}
	key, _ := m["key"].(string)
	op, _ := m["op"].(string)
	value, hasValue := m["value"]
	if key == "" || op == "" || !hasValue {
		return query.Filter{}, false
	}
	return query.Filter{Key: key, Op: query.Operator(op), Value: value}, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case domain.Document:
		return t, true
	case map[string]string:
		m := make(map[string]interface{}, len(t))
		for k, s := range t {
			m[k] = s
		}
		return m, true
	}
	return nil, false
}

func asList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	case []query.Filter:
		out := make([]interface{}, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

// isScalar reports whether a $nested operand compiles as plain equality.
// Pointers count as scalars.
func isScalar(v interface{}) bool {
	if _, ok := domain.AsPointer(v); ok {
		return true
	}
	if _, ok := asFilter(v); ok {
		return false
	}
	if _, ok := asList(v); ok {
		return false
	}
	if _, ok := asMap(v); ok {
		return false
	}
	return true
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
		return t != ""
	}
	if n, ok := toFloat(v); ok {
		return n != 0
	}
	return true
}

func patternString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
