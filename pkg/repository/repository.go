// Package repository translates backend-agnostic query descriptors into native
// backend queries and runs reads and mutations for a single class.
package repository

import (
	"log/slog"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/logger"
	"github.com/adfharrison1/go-docrepo/pkg/query"
)

// Repository is the query and mutation interface over one class of a backend
type Repository struct {
	backend      domain.Backend
	className    string
	fields       []string
	hidden       map[string]bool
	textFields   []string
	autoPopulate []query.Populate
	relations    map[string]string
	useMasterKey bool
	log          *slog.Logger
}

// Option configures a Repository
type Option func(*Repository)

// WithSchema declares the known fields of the class. With a schema every read
// selects an explicit field list.
func WithSchema(fields ...string) Option {
	return func(r *Repository) {
		r.fields = append(r.fields, fields...)
	}
}

// WithHidden declares fields that are never returned
func WithHidden(fields ...string) Option {
	return func(r *Repository) {
		for _, f := range fields {
			r.hidden[f] = true
		}
	}
}

// WithTextFields sets the fields searched by descriptors carrying a search term
func WithTextFields(fields ...string) Option {
	return func(r *Repository) {
		r.textFields = append(r.textFields, fields...)
	}
}

// WithAutoPopulate sets the population applied when a descriptor asks for
// auto-population and names none itself
func WithAutoPopulate(populate ...query.Populate) Option {
	return func(r *Repository) {
		r.autoPopulate = append(r.autoPopulate, populate...)
	}
}

// WithRelation declares the class a pointer field refers to. $nested filters on
// the field are compiled against that class.
func WithRelation(field, className string) Option {
	return func(r *Repository) {
		r.relations[field] = className
	}
}

// WithMasterKey makes elevated access the default scope of the repository
func WithMasterKey(enabled bool) Option {
	return func(r *Repository) {
		r.useMasterKey = enabled
	}
}

// WithLogger sets the logger used for dropped filters and backend failures
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a repository for className on backend
func New(backend domain.Backend, className string, opts ...Option) *Repository {
	r := &Repository{
		backend:   backend,
		className: className,
		hidden:    make(map[string]bool),
		relations: make(map[string]string),
		log:       logger.Get(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ClassName returns the class served by the repository
func (r *Repository) ClassName() string {
	return r.className
}

// Query returns a fresh native query on the repository's class
func (r *Repository) Query() domain.Query {
	return r.backend.NewQuery(r.className)
}

// Visible returns the plain form of rec without the hidden fields of the class
func (r *Repository) Visible(rec domain.Record) domain.Document {
	if rec == nil {
		return nil
	}
	doc := rec.ToPlain()
	for f := range r.hidden {
		delete(doc, f)
	}
	return doc
}

// visibleFields returns the schema minus hidden fields, in schema order
func (r *Repository) visibleFields() []string {
	out := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		if !r.hidden[f] {
			out = append(out, f)
		}
	}
	return out
}

func (r *Repository) relationClass(field string) string {
	if class, ok := r.relations[field]; ok {
		return class
	}
	return r.className
}
