// Package query defines the backend-agnostic query descriptor that callers hand to
// a repository. Descriptors are plain data and can be decoded from JSON or YAML.
package query

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// Unbounded is the limit sentinel meaning "no limit at all"
const Unbounded = -1

// MasterKeyToken as a descriptor token requests elevated access
const MasterKeyToken = "useMasterKey"

// Options controls pagination and result shaping
type Options struct {
	Limit        int  `json:"limit,omitempty" yaml:"limit,omitempty"`
	Page         int  `json:"page,omitempty" yaml:"page,omitempty"`
	Sort         Sort `json:"sort,omitempty" yaml:"sort,omitempty"`
	Scroll       bool `json:"scroll,omitempty" yaml:"scroll,omitempty"`
	Flatten      bool `json:"flatten,omitempty" yaml:"flatten,omitempty"`
	AutoPopulate bool `json:"autopopulate,omitempty" yaml:"autopopulate,omitempty"`
}

// Populate requests expansion of a relation. An empty Select expands the whole
// related object.
type Populate struct {
	Path   string   `json:"path" yaml:"path"`
	Select []string `json:"select,omitempty" yaml:"select,omitempty"`
}

// Descriptor is the unit of input of every read operation.
// When Raw is set every other field is ignored.
type Descriptor struct {
	Raw        domain.Query    `json:"-" yaml:"-"`
	Options    Options         `json:"options" yaml:"options"`
	Projection map[string]bool `json:"projection,omitempty" yaml:"projection,omitempty"`
	Filters    []Filter        `json:"filters,omitempty" yaml:"filters,omitempty"`
	ID         string          `json:"id,omitempty" yaml:"id,omitempty"`
	Populate   []Populate      `json:"populate,omitempty" yaml:"populate,omitempty"`
	Search     string          `json:"search,omitempty" yaml:"search,omitempty"`
	SearchIn   []string        `json:"searchIn,omitempty" yaml:"searchIn,omitempty"`
	Token      string          `json:"token,omitempty" yaml:"token,omitempty"`
}

// New returns an empty descriptor
func New() *Descriptor {
	return &Descriptor{}
}

// Where appends a filter clause
func (d *Descriptor) Where(key string, op Operator, value interface{}) *Descriptor {
	d.Filters = append(d.Filters, Filter{Key: key, Op: op, Value: value})
	return d
}

// SetFilters replaces the filter clauses
func (d *Descriptor) SetFilters(filters ...Filter) *Descriptor {
	d.Filters = filters
	return d
}

// Paginate sets limit and page
func (d *Descriptor) Paginate(limit, page int) *Descriptor {
	d.Options.Limit = limit
	d.Options.Page = page
	return d
}

// Expand appends a population request
func (d *Descriptor) Expand(path string, fields ...string) *Descriptor {
	d.Populate = append(d.Populate, Populate{Path: path, Select: fields})
	return d
}

// Offset returns the number of records to skip for the requested page
func (d *Descriptor) Offset() int {
	if d.Options.Limit <= 0 {
		return 0
	}
	page := d.Options.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * d.Options.Limit
}

// Clone copies the descriptor. Filter values are shared.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return New()
	}
	out := *d
	out.Options.Sort = append(Sort(nil), d.Options.Sort...)
	if d.Projection != nil {
		out.Projection = make(map[string]bool, len(d.Projection))
		for k, v := range d.Projection {
			out.Projection[k] = v
		}
	}
	out.Filters = append([]Filter(nil), d.Filters...)
	if d.Populate != nil {
		out.Populate = make([]Populate, len(d.Populate))
		for i, p := range d.Populate {
			out.Populate[i] = Populate{Path: p.Path, Select: append([]string(nil), p.Select...)}
		}
	}
	out.SearchIn = append([]string(nil), d.SearchIn...)
	return &out
}

// Decode reads a JSON descriptor
func Decode(r io.Reader) (*Descriptor, error) {
	d := New()
	if err := json.NewDecoder(r).Decode(d); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor: %w", err)
	}
	return d, nil
}

// DecodeYAML reads a YAML descriptor
func DecodeYAML(r io.Reader) (*Descriptor, error) {
	d := New()
	if err := yaml.NewDecoder(r).Decode(d); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor: %w", err)
	}
	return d, nil
}
