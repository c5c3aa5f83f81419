package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
	"github.com/adfharrison1/go-docrepo/pkg/response"
)

// assign copies item onto rec in key order. The primary key is never copied.
func assign(rec domain.Record, item domain.Document) {
	keys := make([]string, 0, len(item))
	for k := range item {
		if k != domain.FieldObjectID {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.Set(k, item[k])
	}
}

// Create saves a new object built from item
func (r *Repository) Create(ctx context.Context, item domain.Document, opts ...CallOption) (domain.Record, error) {
	rec := r.backend.NewRecord(r.className)
	assign(rec, item)
	if err := rec.Save(ctx, r.scope(ctx, "", opts)); err != nil {
		return nil, r.fail("create", err)
	}
	return rec, nil
}

// CreateMany saves new objects with a single batch call
func (r *Repository) CreateMany(ctx context.Context, items []domain.Document, opts ...CallOption) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		rec := r.backend.NewRecord(r.className)
		assign(rec, item)
		records = append(records, rec)
	}
	if err := r.backend.SaveAll(ctx, records, r.scope(ctx, "", opts)); err != nil {
		return nil, r.fail("createMany", err)
	}
	return records, nil
}

// InsertMany is CreateMany
func (r *Repository) InsertMany(ctx context.Context, items []domain.Document, opts ...CallOption) ([]domain.Record, error) {
	return r.CreateMany(ctx, items, opts...)
}

// UpdateOne merges item into the object with the given id
func (r *Repository) UpdateOne(ctx context.Context, id string, item domain.Document, opts ...CallOption) (domain.Record, error) {
	scope := r.scope(ctx, "", opts)
	rec, err := r.get(ctx, id, scope, "updateOne")
	if err != nil {
		return nil, err
	}
	assign(rec, item)
	if err := rec.Save(ctx, scope); err != nil {
		return nil, r.fail("updateOne", err)
	}
	return rec, nil
}

// UpdateOrCreate merges item into the first object matching filters, creating
// it when nothing matches
func (r *Repository) UpdateOrCreate(ctx context.Context, filters []query.Filter, item domain.Document, opts ...CallOption) (domain.Record, error) {
	scope := r.scope(ctx, "", opts)
	d := query.New().SetFilters(filters...)
	rec, err := r.build(r.prepare(d), nil, true).First(ctx, scope)
	if err != nil {
		return nil, r.fail("updateOrCreate", err)
	}
	if rec == nil {
		rec = r.backend.NewRecord(r.className)
	}
	assign(rec, item)
	if err := rec.Save(ctx, scope); err != nil {
		return nil, r.fail("updateOrCreate", err)
	}
	return rec, nil
}

// UpdateMany is not supported
func (r *Repository) UpdateMany(ctx context.Context, filters []query.Filter, item domain.Document, opts ...CallOption) ([]domain.Record, error) {
	return nil, response.NotImplemented()
}

// UpdateOrCreateMany is not supported
func (r *Repository) UpdateOrCreateMany(ctx context.Context, items []domain.Document, opts ...CallOption) ([]domain.Record, error) {
	return nil, response.NotImplemented()
}

// DeleteByID destroys the object with the given id and returns it
func (r *Repository) DeleteByID(ctx context.Context, id string, opts ...CallOption) (domain.Record, error) {
	scope := r.scope(ctx, "", opts)
	rec, err := r.get(ctx, id, scope, "deleteById")
	if err != nil {
		return nil, err
	}
	if err := rec.Destroy(ctx, scope); err != nil {
		return nil, r.fail("deleteById", err)
	}
	return rec, nil
}

// DeleteOne destroys the first object matching d
func (r *Repository) DeleteOne(ctx context.Context, d *query.Descriptor, opts ...CallOption) (domain.Record, error) {
	st := r.prepare(d)
	st.Options.Flatten = false
	rec, err := r.build(st, nil, true).First(ctx, r.scope(ctx, st.Token, opts))
	if err != nil {
		return nil, r.fail("deleteOne", err)
	}
	if rec == nil {
		return nil, response.NotFound("")
	}
	if err := rec.Destroy(ctx, r.scope(ctx, "", opts)); err != nil {
		return nil, r.fail("deleteOne", err)
	}
	return rec, nil
}

// DeleteMany destroys every object matching d with a single batch call
func (r *Repository) DeleteMany(ctx context.Context, d *query.Descriptor, opts ...CallOption) ([]domain.Record, error) {
	live := d.Clone()
	live.Options.Flatten = false
	rows, err := r.Find(ctx, live, opts...)
	if err != nil {
		return nil, err
	}
	records := rows.Records()
	if len(records) == 0 {
		return nil, response.NotFound("")
	}
	if err := r.backend.DestroyAll(ctx, records, r.scope(ctx, "", opts)); err != nil {
		return nil, r.fail("deleteMany", err)
	}
	return records, nil
}

// get loads an object by id, mapping a missing object to a Not-Found envelope
func (r *Repository) get(ctx context.Context, id string, scope domain.Scope, op string) (domain.Record, error) {
	rec, err := r.backend.Get(ctx, r.className, id, scope)
	if errors.Is(err, domain.ErrObjectNotFound) || (err == nil && rec == nil) {
		return nil, response.NotFound("")
	}
	if err != nil {
		return nil, r.fail(op, err)
	}
	return rec, nil
}
