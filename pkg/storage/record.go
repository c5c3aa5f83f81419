package storage

import (
	"context"
	"time"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// Record is a live object of the storage engine. Included relations are held
// as nested *Record values.
type Record struct {
	engine *StorageEngine
	class  string
	fields domain.Document
}

var _ domain.Record = (*Record)(nil)

// ID returns the object id, empty for unsaved records
func (r *Record) ID() string {
	id, _ := r.fields[domain.FieldObjectID].(string)
	return id
}

// ClassName returns the class of the record
func (r *Record) ClassName() string {
	return r.class
}

// Get returns a field value
func (r *Record) Get(key string) interface{} {
	return r.fields[key]
}

// Set assigns a field. A nil value removes the field on save. Reserved fields
// are maintained by the engine and cannot be set.
func (r *Record) Set(key string, value interface{}) {
	switch key {
	case domain.FieldObjectID, domain.FieldCreatedAt, domain.FieldUpdatedAt:
		return
	}
	r.fields[key] = value
}

// Save inserts or updates the record
func (r *Record) Save(ctx context.Context, scope domain.Scope) error {
	return r.engine.save(ctx, []*Record{r}, scope)
}

// Destroy deletes the record
func (r *Record) Destroy(ctx context.Context, scope domain.Scope) error {
	return r.engine.destroy(ctx, []*Record{r}, scope)
}

// ToPlain flattens the record: included relations become maps, pointers their
// map form and timestamps RFC 3339 strings.
func (r *Record) ToPlain() domain.Document {
	out := make(domain.Document, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = plainValue(v)
	}
	out["className"] = r.class
	return out
}

func plainValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Record:
		return map[string]interface{}(t.ToPlain())
	case domain.Pointer:
		return t.Map()
	case *domain.Pointer:
		if t == nil {
			return nil
		}
		return t.Map()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case domain.Document:
		return plainValue(map[string]interface{}(t))
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = plainValue(inner)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, inner := range t {
			s[i] = plainValue(inner)
		}
		return s
	}
	return v
}

// storedValue converts a value into its stored form: records and pointers are
// kept as pointer maps.
func storedValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Record:
		return domain.Pointer{ClassName: t.class, ObjectID: t.ID()}.Map()
	case domain.Pointer:
		return t.Map()
	case *domain.Pointer:
		if t == nil {
			return nil
		}
		return t.Map()
	case domain.Document:
		return storedValue(map[string]interface{}(t))
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = storedValue(inner)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, inner := range t {
			s[i] = storedValue(inner)
		}
		return s
	case []string:
		s := make([]interface{}, len(t))
		for i, inner := range t {
			s[i] = inner
		}
		return s
	}
	return v
}
