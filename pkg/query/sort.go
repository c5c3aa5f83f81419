package query

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SortField orders results by Field, ascending unless Weight is negative
type SortField struct {
	Field  string
	Weight int
}

// Descending reports whether the field sorts in descending order
func (s SortField) Descending() bool {
	return s.Weight < 0
}

// Sort is an ordered field -> weight mapping. It is encoded as an object and the
// key order of the encoded object is kept.
type Sort []SortField

// Asc appends an ascending key
func (s Sort) Asc(field string) Sort {
	return append(s, SortField{Field: field, Weight: 1})
}

// Desc appends a descending key
func (s Sort) Desc(field string) Sort {
	return append(s, SortField{Field: field, Weight: -1})
}

// MarshalJSON encodes the sort as an object in key order
func (s Sort) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", f.Weight)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping its key order
func (s *Sort) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode sort: %w", err)
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sort must be an object, got %v", tok)
	}

	var out Sort
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode sort key: %w", err)
		}
		key, _ := keyTok.(string)

		var weight json.Number
		if err := dec.Decode(&weight); err != nil {
			return fmt.Errorf("sort weight for %q must be a number: %w", key, err)
		}
		w, err := weight.Float64()
		if err != nil {
			return fmt.Errorf("sort weight for %q must be a number: %w", key, err)
		}
		out = append(out, SortField{Field: key, Weight: sign(w)})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode sort: %w", err)
	}

	*s = out
	return nil
}

// UnmarshalYAML decodes a mapping node keeping its key order
func (s *Sort) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("sort must be a mapping, line %d", node.Line)
	}
	out := make(Sort, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var w float64
		if err := node.Content[i+1].Decode(&w); err != nil {
			return fmt.Errorf("sort weight for %q must be a number: %w", node.Content[i].Value, err)
		}
		out = append(out, SortField{Field: node.Content[i].Value, Weight: sign(w)})
	}
	*s = out
	return nil
}

func sign(w float64) int {
	switch {
	case w < 0:
		return -1
	case w > 0:
		return 1
	default:
		return 0
	}
}
