package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
	"github.com/adfharrison1/go-docrepo/pkg/response"
)

// Row is one read result: a live backend record, or a plain document when the
// descriptor asked for flattened results.
type Row struct {
	Record domain.Record
	Plain  domain.Document
}

// Document returns the plain form of the row
func (row Row) Document() domain.Document {
	if row.Plain != nil {
		return row.Plain
	}
	if row.Record != nil {
		return row.Record.ToPlain()
	}
	return nil
}

// MarshalJSON encodes the plain form of the row
func (row Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(row.Document())
}

// Rows is an ordered read result
type Rows []Row

// Records returns the live records. Flattened rows have none.
func (rows Rows) Records() []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		if row.Record != nil {
			out = append(out, row.Record)
		}
	}
	return out
}

// Documents returns the plain form of every row
func (rows Rows) Documents() []domain.Document {
	out := make([]domain.Document, len(rows))
	for i, row := range rows {
		out[i] = row.Document()
	}
	return out
}

// Paginated is the result of Retrieve. Total is exact when a count pass ran,
// otherwise it is the size of the short page.
type Paginated struct {
	Limit   int  `json:"limit"`
	Page    int  `json:"page"`
	Total   int  `json:"total"`
	Results Rows `json:"results"`
}

// Find compiles and executes d
func (r *Repository) Find(ctx context.Context, d *query.Descriptor, opts ...CallOption) (Rows, error) {
	st := r.prepare(d)
	scope := r.scope(ctx, st.Token, opts)
	postPopulate := st.Options.Flatten && len(st.Populate) > 0

	records, err := r.build(st, nil, !postPopulate).Find(ctx, scope)
	if err != nil {
		return nil, r.fail("find", err)
	}
	return r.shape(ctx, st, records, scope, postPopulate)
}

// FindOne is Find limited to the first match. It returns nil when nothing matches.
func (r *Repository) FindOne(ctx context.Context, d *query.Descriptor, opts ...CallOption) (*Row, error) {
	st := r.prepare(d)
	scope := r.scope(ctx, st.Token, opts)
	postPopulate := st.Options.Flatten && len(st.Populate) > 0

	record, err := r.build(st, nil, !postPopulate).First(ctx, scope)
	if err != nil {
		return nil, r.fail("findOne", err)
	}
	if record == nil {
		return nil, nil
	}
	rows, err := r.shape(ctx, st, []domain.Record{record}, scope, postPopulate)
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// FindByID is FindOne for descriptors addressing a single id
func (r *Repository) FindByID(ctx context.Context, d *query.Descriptor, opts ...CallOption) (*Row, error) {
	return r.FindOne(ctx, d, opts...)
}

// Count returns the number of objects matching d, ignoring pagination and
// population
func (r *Repository) Count(ctx context.Context, d *query.Descriptor, opts ...CallOption) (int, error) {
	cd := d.Clone()
	cd.Options.Limit = query.Unbounded
	cd.Options.Page = 1
	cd.Options.AutoPopulate = false
	cd.Populate = nil

	st := r.prepare(cd)
	n, err := r.build(st, nil, true).Count(ctx, r.scope(ctx, st.Token, opts))
	if err != nil {
		return 0, r.fail("count", err)
	}
	return n, nil
}

// Retrieve executes d and reports pagination. The count pass runs when the page
// is full. Without a requested limit the backend applies its own default page
// size, so any non-empty result is counted.
func (r *Repository) Retrieve(ctx context.Context, d *query.Descriptor, opts ...CallOption) (*Paginated, error) {
	if d == nil {
		d = query.New()
	}
	rows, err := r.Find(ctx, d, opts...)
	if err != nil {
		return nil, err
	}

	result := &Paginated{
		Limit:   d.Options.Limit,
		Page:    d.Options.Page,
		Total:   len(rows),
		Results: rows,
	}
	if result.Page < 1 {
		result.Page = 1
	}
	limit := d.Options.Limit
	if (limit > 0 && len(rows) >= limit) || (limit == 0 && len(rows) > 0) {
		if result.Total, err = r.Count(ctx, d, opts...); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Search is Retrieve
func (r *Repository) Search(ctx context.Context, d *query.Descriptor, opts ...CallOption) (*Paginated, error) {
	return r.Retrieve(ctx, d, opts...)
}

// shape wraps records into rows, flattening and populating them when asked
func (r *Repository) shape(ctx context.Context, d *query.Descriptor, records []domain.Record, scope domain.Scope, postPopulate bool) (Rows, error) {
	rows := make(Rows, len(records))
	if !d.Options.Flatten {
		for i, rec := range records {
			rows[i] = Row{Record: rec}
		}
		return rows, nil
	}

	docs := make([]domain.Document, len(records))
	for i, rec := range records {
		docs[i] = rec.ToPlain()
		rows[i] = Row{Plain: docs[i]}
	}
	if postPopulate {
		for _, p := range d.Populate {
			if err := r.populate(ctx, docs, p, scope); err != nil {
				return nil, r.fail("populate", err)
			}
		}
	}
	return rows, nil
}

// populate replaces the pointers at p.Path of every document with the plain
// form of the related objects, fetched with one query per related class.
// Pointers to objects the scope cannot read are left as they are.
func (r *Repository) populate(ctx context.Context, docs []domain.Document, p query.Populate, scope domain.Scope) error {
	if p.Path == "" {
		return nil
	}
	wanted := make(map[string]map[string]bool)
	for _, doc := range docs {
		for _, ptr := range pointersAt(doc[p.Path]) {
			if wanted[ptr.ClassName] == nil {
				wanted[ptr.ClassName] = make(map[string]bool)
			}
			wanted[ptr.ClassName][ptr.ObjectID] = true
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	classes := make([]string, 0, len(wanted))
	for class := range wanted {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	related := make(map[domain.Pointer]domain.Document)
	for _, class := range classes {
		ids := make([]interface{}, 0, len(wanted[class]))
		for id := range wanted[class] {
			ids = append(ids, id)
		}

		q := r.backend.NewQuery(class)
		q.ContainedIn(domain.FieldObjectID, ids)
		q.Limit(query.Unbounded)
		if len(p.Select) > 0 {
			q.Select(p.Select...)
		}
		records, err := q.Find(ctx, scope)
		if err != nil {
			return err
		}
		for _, rec := range records {
			related[domain.Pointer{ClassName: class, ObjectID: rec.ID()}] = rec.ToPlain()
		}
	}

	for _, doc := range docs {
		if v, ok := doc[p.Path]; ok {
			doc[p.Path] = replacePointers(v, related)
		}
	}
	return nil
}

func pointersAt(v interface{}) []domain.Pointer {
	if ptr, ok := domain.AsPointer(v); ok {
		return []domain.Pointer{ptr}
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []domain.Pointer
	for _, item := range list {
		if ptr, ok := domain.AsPointer(item); ok {
			out = append(out, ptr)
		}
	}
	return out
}

func replacePointers(v interface{}, related map[domain.Pointer]domain.Document) interface{} {
	if ptr, ok := domain.AsPointer(v); ok {
		if doc, found := related[ptr]; found {
			return map[string]interface{}(doc)
		}
		return v
	}
	if list, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(list))
		for i, item := range list {
			out[i] = replacePointers(item, related)
		}
		return out
	}
	return v
}

// fail logs a backend failure and converts it into an error envelope
func (r *Repository) fail(op string, err error) error {
	r.log.Error("repository operation failed", "op", op, "class", r.className, "error", err)
	return response.Exception(err)
}
