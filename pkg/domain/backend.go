package domain

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Backend.Get when no object has the requested id
var ErrObjectNotFound = errors.New("object not found")

// Query is the native query object of a storage backend. Constraint methods mutate
// the query in place. A Query is owned by one call and must not be modified once
// one of the execution methods has been invoked.
type Query interface {
	ClassName() string

	Limit(n int)
	Skip(n int)
	Select(fields ...string)
	Exclude(fields ...string)
	Include(paths ...string)
	Ascending(field string)
	Descending(field string)

	EqualTo(key string, value interface{})
	NotEqualTo(key string, value interface{})
	ContainedIn(key string, values []interface{})
	NotContainedIn(key string, values []interface{})
	Exists(key string)
	DoesNotExist(key string)
	Matches(key, pattern string)
	LessThan(key string, value interface{})
	LessThanOrEqualTo(key string, value interface{})
	GreaterThan(key string, value interface{})
	GreaterThanOrEqualTo(key string, value interface{})
	Contains(key string, value interface{})
	ContainsAll(key string, values []interface{})
	MatchesQuery(key string, sub Query)
	Search(fields []string, term string)

	// Or, Nor and And add a constraint requiring the query to also match any,
	// none or all of the given sub-queries.
	Or(subs ...Query) error
	Nor(subs ...Query) error
	And(subs ...Query) error

	Find(ctx context.Context, scope Scope) ([]Record, error)
	// First returns nil and no error when nothing matches.
	First(ctx context.Context, scope Scope) (Record, error)
	Count(ctx context.Context, scope Scope) (int, error)
}

// Record is a live object bound to its backend
type Record interface {
	ID() string
	ClassName() string
	Get(key string) interface{}
	Set(key string, value interface{})
	Save(ctx context.Context, scope Scope) error
	Destroy(ctx context.Context, scope Scope) error
	// ToPlain flattens the record. The result cannot follow relations.
	ToPlain() Document
}

// Backend creates queries and records and runs batch operations
type Backend interface {
	NewQuery(className string) Query
	NewRecord(className string) Record
	Get(ctx context.Context, className, id string, scope Scope) (Record, error)
	SaveAll(ctx context.Context, records []Record, scope Scope) error
	DestroyAll(ctx context.Context, records []Record, scope Scope) error
}
