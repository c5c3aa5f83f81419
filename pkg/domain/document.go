package domain

// Document represents a stored object as a plain field map
type Document map[string]interface{}

// Reserved field names shared by every class
const (
	FieldObjectID  = "objectId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldACL       = "ACL"
)

// Pointer references an object of another class
type Pointer struct {
	ClassName string `json:"className" msgpack:"className"`
	ObjectID  string `json:"objectId" msgpack:"objectId"`
}

// Map returns the flattened form of the pointer
func (p Pointer) Map() map[string]interface{} {
	return map[string]interface{}{
		"__type":    "Pointer",
		"className": p.ClassName,
		"objectId":  p.ObjectID,
	}
}

// AsPointer recognizes both the Pointer struct and its flattened map form.
func AsPointer(v interface{}) (Pointer, bool) {
	switch p := v.(type) {
	case Pointer:
		return p, true
	case *Pointer:
		if p == nil {
			return Pointer{}, false
		}
		return *p, true
	case map[string]interface{}:
		if t, _ := p["__type"].(string); t != "Pointer" {
			return Pointer{}, false
		}
		class, _ := p["className"].(string)
		id, _ := p["objectId"].(string)
		if class == "" || id == "" {
			return Pointer{}, false
		}
		return Pointer{ClassName: class, ObjectID: id}, true
	case Document:
		return AsPointer(map[string]interface{}(p))
	}
	return Pointer{}, false
}

// Clone returns a deep copy of the document. Nested maps and slices are copied,
// other values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Document:
		return t.Clone()
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}
