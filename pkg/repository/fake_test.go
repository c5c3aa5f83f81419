package repository

import (
	"context"
	"errors"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// call is one recorded method call on a fakeQuery
type call struct {
	Method string
	Key    string
	Value  interface{}
}

// fakeQuery records every constraint applied to it
type fakeQuery struct {
	backend *fakeBackend
	class   string
	calls   []call
	scope   domain.Scope
}

func (q *fakeQuery) record(method, key string, value interface{}) {
	q.calls = append(q.calls, call{Method: method, Key: key, Value: value})
}

// methods returns the recorded calls of one method
func (q *fakeQuery) methods(method string) []call {
	var out []call
	for _, c := range q.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (q *fakeQuery) ClassName() string                          { return q.class }
func (q *fakeQuery) Limit(n int)                                { q.record("limit", "", n) }
func (q *fakeQuery) Skip(n int)                                 { q.record("skip", "", n) }
func (q *fakeQuery) Select(fields ...string)                    { q.record("select", "", fields) }
func (q *fakeQuery) Exclude(fields ...string)                   { q.record("exclude", "", fields) }
func (q *fakeQuery) Include(paths ...string)                    { q.record("include", "", paths) }
func (q *fakeQuery) Ascending(field string)                     { q.record("ascending", field, nil) }
func (q *fakeQuery) Descending(field string)                    { q.record("descending", field, nil) }
func (q *fakeQuery) EqualTo(key string, v interface{})          { q.record("equalTo", key, v) }
func (q *fakeQuery) NotEqualTo(key string, v interface{})       { q.record("notEqualTo", key, v) }
func (q *fakeQuery) ContainedIn(key string, v []interface{})    { q.record("containedIn", key, v) }
func (q *fakeQuery) NotContainedIn(key string, v []interface{}) { q.record("notContainedIn", key, v) }
func (q *fakeQuery) Exists(key string)                          { q.record("exists", key, nil) }
func (q *fakeQuery) DoesNotExist(key string)                    { q.record("doesNotExist", key, nil) }
func (q *fakeQuery) Matches(key, pattern string)                { q.record("matches", key, pattern) }
func (q *fakeQuery) LessThan(key string, v interface{})         { q.record("lessThan", key, v) }
func (q *fakeQuery) LessThanOrEqualTo(key string, v interface{}) {
	q.record("lessThanOrEqualTo", key, v)
}
func (q *fakeQuery) GreaterThan(key string, v interface{}) { q.record("greaterThan", key, v) }
func (q *fakeQuery) GreaterThanOrEqualTo(key string, v interface{}) {
	q.record("greaterThanOrEqualTo", key, v)
}
func (q *fakeQuery) Contains(key string, v interface{})         { q.record("contains", key, v) }
func (q *fakeQuery) ContainsAll(key string, v []interface{})    { q.record("containsAll", key, v) }
func (q *fakeQuery) MatchesQuery(key string, sub domain.Query)  { q.record("matchesQuery", key, sub) }
func (q *fakeQuery) Search(fields []string, term string)        { q.record("search", term, fields) }
func (q *fakeQuery) Or(subs ...domain.Query) error              { return q.compound("or", subs) }
func (q *fakeQuery) Nor(subs ...domain.Query) error             { return q.compound("nor", subs) }
func (q *fakeQuery) And(subs ...domain.Query) error             { return q.compound("and", subs) }

func (q *fakeQuery) compound(method string, subs []domain.Query) error {
	if q.backend.compoundErr != nil {
		return q.backend.compoundErr
	}
	q.record(method, "", subs)
	return nil
}

func (q *fakeQuery) Find(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	q.scope = scope
	q.backend.finds++
	if q.backend.findErr != nil {
		return nil, q.backend.findErr
	}
	return q.backend.results, nil
}

func (q *fakeQuery) First(ctx context.Context, scope domain.Scope) (domain.Record, error) {
	q.scope = scope
	if q.backend.findErr != nil {
		return nil, q.backend.findErr
	}
	if len(q.backend.results) == 0 {
		return nil, nil
	}
	return q.backend.results[0], nil
}

func (q *fakeQuery) Count(ctx context.Context, scope domain.Scope) (int, error) {
	q.scope = scope
	q.backend.counts++
	return q.backend.count, nil
}

// fakeRecord is a plain field map
type fakeRecord struct {
	backend *fakeBackend
	class   string
	fields  domain.Document
}

func (r *fakeRecord) ID() string {
	id, _ := r.fields[domain.FieldObjectID].(string)
	return id
}
func (r *fakeRecord) ClassName() string                 { return r.class }
func (r *fakeRecord) Get(key string) interface{}        { return r.fields[key] }
func (r *fakeRecord) Set(key string, value interface{}) { r.fields[key] = value }
func (r *fakeRecord) ToPlain() domain.Document          { return r.fields.Clone() }

func (r *fakeRecord) Save(ctx context.Context, scope domain.Scope) error {
	return r.backend.SaveAll(ctx, []domain.Record{r}, scope)
}

func (r *fakeRecord) Destroy(ctx context.Context, scope domain.Scope) error {
	return r.backend.DestroyAll(ctx, []domain.Record{r}, scope)
}

// fakeBackend hands out fakeQuery values and canned results
type fakeBackend struct {
	queries     []*fakeQuery
	results     []domain.Record
	count       int
	finds       int
	counts      int
	saves       int
	destroys    int
	compoundErr error
	findErr     error
	saveErr     error
	objects     map[string]*fakeRecord
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: make(map[string]*fakeRecord)}
}

func (b *fakeBackend) NewQuery(className string) domain.Query {
	q := &fakeQuery{backend: b, class: className}
	b.queries = append(b.queries, q)
	return q
}

func (b *fakeBackend) NewRecord(className string) domain.Record {
	return &fakeRecord{backend: b, class: className, fields: domain.Document{}}
}

func (b *fakeBackend) Get(ctx context.Context, className, id string, scope domain.Scope) (domain.Record, error) {
	rec, ok := b.objects[id]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return rec, nil
}

func (b *fakeBackend) SaveAll(ctx context.Context, records []domain.Record, scope domain.Scope) error {
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	return nil
}

func (b *fakeBackend) DestroyAll(ctx context.Context, records []domain.Record, scope domain.Scope) error {
	b.destroys++
	return nil
}

// last returns the most recently created query
func (b *fakeBackend) last() *fakeQuery {
	return b.queries[len(b.queries)-1]
}

var errBackend = errors.New("backend unavailable")

func fakeRecords(b *fakeBackend, n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = &fakeRecord{backend: b, class: "Book", fields: domain.Document{}}
	}
	return out
}
