package repository

import (
	"sort"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
)

// Build compiles d into a native query. seed, when non-nil, is used instead of a
// fresh query. A descriptor carrying a raw query returns it untouched.
func (r *Repository) Build(d *query.Descriptor, seed domain.Query) domain.Query {
	return r.build(d, seed, true)
}

// build compiles d. With nativePopulate unset, population requests only keep
// their relation fields selected and are resolved after the fetch.
func (r *Repository) build(d *query.Descriptor, seed domain.Query, nativePopulate bool) domain.Query {
	if d == nil {
		d = query.New()
	}
	if d.Raw != nil {
		return d.Raw
	}
	q := seed
	if q == nil {
		q = r.Query()
	}

	// Pagination
	if d.Options.Limit != 0 {
		q.Limit(d.Options.Limit)
		if offset := d.Offset(); offset > 0 && !d.Options.Scroll {
			q.Skip(offset)
		}
	}

	// Projection and population
	selected, active := r.projection(d, q)
	for _, p := range d.Populate {
		if p.Path == "" {
			continue
		}
		if !nativePopulate {
			selected = appendMissing(selected, p.Path)
			continue
		}
		q.Include(p.Path)
		for _, field := range p.Select {
			q.Include(p.Path + "." + field)
		}
		if len(p.Select) == 0 {
			selected = appendMissing(selected, p.Path)
		}
		for _, field := range p.Select {
			selected = appendMissing(selected, p.Path+"."+field)
		}
	}
	if active {
		q.Select(selected...)
	}

	// Identifier shortcut
	if d.ID != "" {
		q.EqualTo(domain.FieldObjectID, d.ID)
	}

	for _, f := range d.Filters {
		r.applyFilter(f, q)
	}

	if d.Search != "" && len(d.SearchIn) > 0 {
		q.Search(d.SearchIn, d.Search)
	}

	for _, s := range d.Options.Sort {
		if s.Descending() {
			q.Descending(s.Field)
		} else {
			q.Ascending(s.Field)
		}
	}
	return q
}

// projection computes the select list. Exclusions prune the visible schema and
// win over inclusions; inclusions alone replace it. Hidden fields never make it
// into the list. Without a schema, exclusions and hidden fields go through the
// backend's Exclude and active reports whether an inclusion list was built.
func (r *Repository) projection(d *query.Descriptor, q domain.Query) (selected []string, active bool) {
	var includes, excludes []string
	keys := make([]string, 0, len(d.Projection))
	for k := range d.Projection {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if d.Projection[k] {
			includes = append(includes, k)
		} else {
			excludes = append(excludes, k)
		}
	}

	if len(r.fields) == 0 {
		if len(excludes) == 0 && len(includes) > 0 {
			return r.withoutHidden(includes), true
		}
		if drop := append(excludes, r.hiddenFields()...); len(drop) > 0 {
			q.Exclude(drop...)
		}
		return nil, false
	}

	base := r.visibleFields()
	switch {
	case len(excludes) > 0:
		drop := make(map[string]bool, len(excludes))
		for _, f := range excludes {
			drop[f] = true
		}
		selected = make([]string, 0, len(base))
		for _, f := range base {
			if !drop[f] {
				selected = append(selected, f)
			}
		}
	case len(includes) > 0:
		selected = r.withoutHidden(includes)
	default:
		selected = base
	}
	return selected, true
}

func (r *Repository) withoutHidden(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !r.hidden[f] {
			out = append(out, f)
		}
	}
	return out
}

func (r *Repository) hiddenFields() []string {
	out := make([]string, 0, len(r.hidden))
	for f := range r.hidden {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func appendMissing(list []string, field string) []string {
	for _, f := range list {
		if f == field {
			return list
		}
	}
	return append(list, field)
}

// prepare copies d and merges the repository defaults: text-search fields and,
// when auto-population is requested without explicit population, the default
// population rules.
func (r *Repository) prepare(d *query.Descriptor) *query.Descriptor {
	st := d.Clone()
	if len(st.SearchIn) == 0 && len(r.textFields) > 0 {
		st.SearchIn = append([]string(nil), r.textFields...)
	}
	if st.Options.AutoPopulate && len(st.Populate) == 0 && len(r.autoPopulate) > 0 {
		st.Populate = make([]query.Populate, len(r.autoPopulate))
		for i, p := range r.autoPopulate {
			st.Populate[i] = query.Populate{Path: p.Path, Select: append([]string(nil), p.Select...)}
		}
	}
	return st
}
