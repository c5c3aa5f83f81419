package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

var errQuerySealed = errors.New("query modified after execution")

type constraintOp int

const (
	opEqual constraintOp = iota
	opNotEqual
	opContainedIn
	opNotContainedIn
	opExists
	opDoesNotExist
	opMatches
	opLessThan
	opLessThanOrEqual
	opGreaterThan
	opGreaterThanOrEqual
	opContains
	opContainsAll
	opMatchesQuery
	opSearch
	opOr
	opNor
	opAnd
)

type constraint struct {
	op     constraintOp
	key    string
	value  interface{}
	values []interface{}
	re     *regexp.Regexp
	fields []string
	term   string
	subs   []*Query
}

type orderKey struct {
	field      string
	descending bool
}

// Query implements domain.Query over the in-memory collections
type Query struct {
	engine   *StorageEngine
	class    string
	limit    int
	limitSet bool
	skip     int
	selected []string
	excluded []string
	includes []string
	order    []orderKey
	where    []constraint
	executed bool
	err      error
}

var _ domain.Query = (*Query)(nil)

func newQuery(engine *StorageEngine, className string) *Query {
	return &Query{engine: engine, class: className}
}

// ClassName returns the class the query targets
func (q *Query) ClassName() string { return q.class }

// mutable reports whether the query may still be changed, recording an error otherwise
func (q *Query) mutable() bool {
	if q.executed {
		q.err = errQuerySealed
		return false
	}
	return true
}

func (q *Query) add(c constraint) {
	if q.mutable() {
		q.where = append(q.where, c)
	}
}

// Limit caps the number of results. A negative limit returns everything.
func (q *Query) Limit(n int) {
	if q.mutable() {
		q.limit = n
		q.limitSet = true
	}
}

// Skip drops the first n results
func (q *Query) Skip(n int) {
	if q.mutable() && n >= 0 {
		q.skip = n
	}
}

// Select restricts returned fields. Dotted paths restrict included relations.
func (q *Query) Select(fields ...string) {
	if q.mutable() {
		q.selected = append(q.selected, fields...)
		if q.selected == nil {
			q.selected = []string{}
		}
	}
}

// Exclude drops fields from results
func (q *Query) Exclude(fields ...string) {
	if q.mutable() {
		q.excluded = append(q.excluded, fields...)
	}
}

// Include expands pointer fields into the related objects
func (q *Query) Include(paths ...string) {
	if q.mutable() {
		q.includes = append(q.includes, paths...)
	}
}

func (q *Query) Ascending(field string) {
	if q.mutable() {
		q.order = append(q.order, orderKey{field: field})
	}
}

func (q *Query) Descending(field string) {
	if q.mutable() {
		q.order = append(q.order, orderKey{field: field, descending: true})
	}
}

func (q *Query) EqualTo(key string, value interface{}) {
	q.add(constraint{op: opEqual, key: key, value: value})
}

func (q *Query) NotEqualTo(key string, value interface{}) {
	q.add(constraint{op: opNotEqual, key: key, value: value})
}

func (q *Query) ContainedIn(key string, values []interface{}) {
	q.add(constraint{op: opContainedIn, key: key, values: values})
}

func (q *Query) NotContainedIn(key string, values []interface{}) {
	q.add(constraint{op: opNotContainedIn, key: key, values: values})
}

func (q *Query) Exists(key string) {
	q.add(constraint{op: opExists, key: key})
}

func (q *Query) DoesNotExist(key string) {
	q.add(constraint{op: opDoesNotExist, key: key})
}

// Matches constrains a string field to a regular expression
func (q *Query) Matches(key, pattern string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		if q.mutable() {
			q.err = fmt.Errorf("invalid pattern for %s: %w", key, err)
		}
		return
	}
	q.add(constraint{op: opMatches, key: key, re: re})
}

func (q *Query) LessThan(key string, value interface{}) {
	q.add(constraint{op: opLessThan, key: key, value: value})
}

func (q *Query) LessThanOrEqualTo(key string, value interface{}) {
	q.add(constraint{op: opLessThanOrEqual, key: key, value: value})
}

func (q *Query) GreaterThan(key string, value interface{}) {
	q.add(constraint{op: opGreaterThan, key: key, value: value})
}

func (q *Query) GreaterThanOrEqualTo(key string, value interface{}) {
	q.add(constraint{op: opGreaterThanOrEqual, key: key, value: value})
}

// Contains matches list fields holding value and string fields containing it
func (q *Query) Contains(key string, value interface{}) {
	q.add(constraint{op: opContains, key: key, value: value})
}

// ContainsAll matches list fields holding every value
func (q *Query) ContainsAll(key string, values []interface{}) {
	q.add(constraint{op: opContainsAll, key: key, values: values})
}

// MatchesQuery matches objects whose key field points to (or embeds) an object
// matching sub
func (q *Query) MatchesQuery(key string, sub domain.Query) {
	s, ok := sub.(*Query)
	if !ok || s.engine != q.engine {
		if q.mutable() {
			q.err = fmt.Errorf("unsupported sub-query %T for %s", sub, key)
		}
		return
	}
	q.add(constraint{op: opMatchesQuery, key: key, subs: []*Query{s}})
}

// Search matches objects where any of fields contains term, ignoring case
func (q *Query) Search(fields []string, term string) {
	if term == "" || len(fields) == 0 {
		return
	}
	q.add(constraint{op: opSearch, fields: append([]string(nil), fields...), term: strings.ToLower(term)})
}

func (q *Query) Or(subs ...domain.Query) error  { return q.compound(opOr, subs) }
func (q *Query) Nor(subs ...domain.Query) error { return q.compound(opNor, subs) }
func (q *Query) And(subs ...domain.Query) error { return q.compound(opAnd, subs) }

func (q *Query) compound(op constraintOp, subs []domain.Query) error {
	if q.executed {
		return errQuerySealed
	}
	if len(subs) == 0 {
		return fmt.Errorf("compound query needs at least one sub-query")
	}
	own := make([]*Query, 0, len(subs))
	for i, sub := range subs {
		s, ok := sub.(*Query)
		if !ok || s.engine != q.engine {
			return fmt.Errorf("sub-query %d: unsupported type %T", i, sub)
		}
		if s.class != q.class {
			return fmt.Errorf("sub-query %d: all queries must be for the same class, got %s and %s", i, q.class, s.class)
		}
		if s.err != nil {
			return fmt.Errorf("sub-query %d: %w", i, s.err)
		}
		own = append(own, s)
	}
	q.add(constraint{op: op, subs: own})
	return nil
}

// Find returns matching records
func (q *Query) Find(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	docs, p, err := q.execute(ctx, scope, true)
	if err != nil {
		return nil, err
	}
	records := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, q.shape(doc, p))
	}
	return records, nil
}

// First returns the first matching record, or nil
func (q *Query) First(ctx context.Context, scope domain.Scope) (domain.Record, error) {
	docs, p, err := q.execute(ctx, scope, true)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return q.shape(docs[0], p), nil
}

// Count returns the number of matching objects, ignoring skip and limit
func (q *Query) Count(ctx context.Context, scope domain.Scope) (int, error) {
	docs, _, err := q.execute(ctx, scope, false)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (q *Query) execute(ctx context.Context, scope domain.Scope, paginate bool) ([]domain.Document, principal, error) {
	q.executed = true
	if err := ctx.Err(); err != nil {
		return nil, principal{}, err
	}
	if q.err != nil {
		return nil, principal{}, q.err
	}
	p, err := q.engine.principal(scope)
	if err != nil {
		return nil, principal{}, err
	}

	var matched []domain.Document
	for _, doc := range q.engine.candidates(q.class, q.indexedEqualities()) {
		if p.canRead(doc) && q.matches(doc, p) {
			matched = append(matched, doc)
		}
	}
	if !paginate {
		return matched, p, nil
	}

	q.sortDocs(matched)

	if q.skip >= len(matched) {
		return nil, p, nil
	}
	matched = matched[q.skip:]

	limit := q.limit
	if !q.limitSet || limit == 0 {
		limit = q.engine.defaultLimit
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, p, nil
}

// indexedEqualities returns the top-level equality constraints usable for
// index lookups
func (q *Query) indexedEqualities() map[string]interface{} {
	eq := make(map[string]interface{})
	for _, c := range q.where {
		if c.op == opEqual {
			if _, isList := c.value.([]interface{}); !isList {
				eq[c.key] = c.value
			}
		}
	}
	return eq
}

// candidates returns copies of the objects of a class that may match the
// equality constraints, using indexes where available
func (se *StorageEngine) candidates(className string, equalities map[string]interface{}) []domain.Document {
	coll := se.getCollection(className, false)
	if coll == nil {
		return nil
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	var indexResults [][]string
	for field, value := range equalities {
		if ids, ok := se.indexEngine.Lookup(className, field, value); ok {
			indexResults = append(indexResults, ids)
		}
	}

	var docs []domain.Document
	if value, ok := equalities[domain.FieldObjectID]; ok {
		id, _ := value.(string)
		if doc, exists := coll.docs[id]; exists {
			docs = append(docs, doc.Clone())
		}
		return docs
	}
	if len(indexResults) > 0 {
		for _, id := range IntersectStringSlices(indexResults...) {
			if doc, exists := coll.docs[id]; exists {
				docs = append(docs, doc.Clone())
			}
		}
		return docs
	}
	docs = make([]domain.Document, 0, len(coll.docs))
	for _, doc := range coll.docs {
		docs = append(docs, doc.Clone())
	}
	return docs
}

// matches evaluates the where constraints of q against doc
func (q *Query) matches(doc domain.Document, p principal) bool {
	for _, c := range q.where {
		if !q.engine.evaluate(c, doc, p) {
			return false
		}
	}
	return true
}

func (se *StorageEngine) evaluate(c constraint, doc domain.Document, p principal) bool {
	actual, present := lookupPath(doc, c.key)
	switch c.op {
	case opEqual:
		return present && equalsOrContains(actual, c.value)
	case opNotEqual:
		return !present || !equalsOrContains(actual, c.value)
	case opContainedIn:
		return present && inList(actual, c.values)
	case opNotContainedIn:
		return !present || !inList(actual, c.values)
	case opExists:
		return present && actual != nil
	case opDoesNotExist:
		return !present || actual == nil
	case opMatches:
		s, ok := actual.(string)
		return ok && c.re.MatchString(s)
	case opLessThan, opLessThanOrEqual, opGreaterThan, opGreaterThanOrEqual:
		if !present {
			return false
		}
		cmp, ok := CompareValues(actual, c.value)
		if !ok {
			return false
		}
		switch c.op {
		case opLessThan:
			return cmp < 0
		case opLessThanOrEqual:
			return cmp <= 0
		case opGreaterThan:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case opContains:
		switch v := actual.(type) {
		case []interface{}:
			return containsValue(v, c.value)
		case string:
			s, ok := c.value.(string)
			return ok && strings.Contains(v, s)
		}
		return false
	case opContainsAll:
		list, ok := actual.([]interface{})
		if !ok {
			return false
		}
		for _, v := range c.values {
			if !containsValue(list, v) {
				return false
			}
		}
		return true
	case opMatchesQuery:
		return present && se.matchesRelated(actual, c.subs[0], p)
	case opSearch:
		for _, field := range c.fields {
			if s, ok := lookupString(doc, field); ok && strings.Contains(strings.ToLower(s), c.term) {
				return true
			}
		}
		return false
	case opOr:
		for _, sub := range c.subs {
			if sub.matches(doc, p) {
				return true
			}
		}
		return false
	case opNor:
		for _, sub := range c.subs {
			if sub.matches(doc, p) {
				return false
			}
		}
		return true
	case opAnd:
		for _, sub := range c.subs {
			if !sub.matches(doc, p) {
				return false
			}
		}
		return true
	}
	return false
}

func lookupString(doc domain.Document, field string) (string, bool) {
	v, ok := lookupPath(doc, field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// matchesRelated resolves pointers (and lists of them) and evaluates sub against
// the related object. Embedded objects are evaluated directly.
func (se *StorageEngine) matchesRelated(value interface{}, sub *Query, p principal) bool {
	if ptr, ok := domain.AsPointer(value); ok {
		related, found := se.lookup(ptr.ClassName, ptr.ObjectID, p)
		return found && sub.matches(related, p)
	}
	switch v := value.(type) {
	case map[string]interface{}:
		return sub.matches(domain.Document(v), p)
	case domain.Document:
		return sub.matches(v, p)
	case []interface{}:
		for _, item := range v {
			if se.matchesRelated(item, sub, p) {
				return true
			}
		}
	}
	return false
}

// sortDocs orders by the requested keys, then by creation time and id
func (q *Query) sortDocs(docs []domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range q.order {
			a, aok := lookupPath(docs[i], key.field)
			b, bok := lookupPath(docs[j], key.field)
			cmp := compareForSort(a, aok, b, bok)
			if cmp == 0 {
				continue
			}
			if key.descending {
				return cmp > 0
			}
			return cmp < 0
		}
		ci, _ := docs[i][domain.FieldCreatedAt].(time.Time)
		cj, _ := docs[j][domain.FieldCreatedAt].(time.Time)
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		idI, _ := docs[i][domain.FieldObjectID].(string)
		idJ, _ := docs[j][domain.FieldObjectID].(string)
		return idI < idJ
	})
}

// compareForSort places missing values first
func compareForSort(a interface{}, aok bool, b interface{}, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	cmp, _ := CompareValues(a, b)
	return cmp
}

// shape applies includes and projection to a matched document
func (q *Query) shape(doc domain.Document, p principal) *Record {
	rec := &Record{engine: q.engine, class: q.class, fields: doc}
	for _, path := range q.includes {
		q.engine.include(rec, strings.Split(path, "."), p)
	}
	if q.selected != nil {
		project(rec, q.selected)
	}
	for _, field := range q.excluded {
		if !isReserved(field) {
			delete(rec.fields, field)
		}
	}
	return rec
}

// include replaces the pointer at path[0] with the related record and recurses
// into it for the rest of the path
func (se *StorageEngine) include(rec *Record, path []string, p principal) {
	if len(path) == 0 {
		return
	}
	value, ok := rec.fields[path[0]]
	if !ok {
		return
	}
	rec.fields[path[0]] = se.expand(value, path[1:], p)
}

func (se *StorageEngine) expand(value interface{}, rest []string, p principal) interface{} {
	if nested, ok := value.(*Record); ok {
		se.include(nested, rest, p)
		return nested
	}
	if ptr, ok := domain.AsPointer(value); ok {
		related, found := se.lookup(ptr.ClassName, ptr.ObjectID, p)
		if !found {
			return value
		}
		nested := &Record{engine: se, class: ptr.ClassName, fields: related}
		se.include(nested, rest, p)
		return nested
	}
	if list, ok := value.([]interface{}); ok {
		out := make([]interface{}, len(list))
		for i, item := range list {
			out[i] = se.expand(item, rest, p)
		}
		return out
	}
	return value
}

// project keeps the selected fields. "author.name" keeps author and restricts
// the included author record to name, even when author is selected as well.
func project(rec *Record, selected []string) {
	keep := make(map[string][]string)
	whole := make(map[string]bool)
	for _, field := range selected {
		head, tail, dotted := strings.Cut(field, ".")
		if !dotted {
			whole[head] = true
			continue
		}
		keep[head] = append(keep[head], tail)
	}

	for key, value := range rec.fields {
		if isReserved(key) {
			continue
		}
		if sub, ok := keep[key]; ok {
			projectValue(value, sub)
			continue
		}
		if !whole[key] {
			delete(rec.fields, key)
		}
	}
}

func projectValue(value interface{}, selected []string) {
	switch v := value.(type) {
	case *Record:
		project(v, selected)
	case []interface{}:
		for _, item := range v {
			projectValue(item, selected)
		}
	}
}

func isReserved(field string) bool {
	switch field {
	case domain.FieldObjectID, domain.FieldCreatedAt, domain.FieldUpdatedAt, domain.FieldACL:
		return true
	}
	return false
}
