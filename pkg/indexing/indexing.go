package indexing

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// IndexEngine keeps equality indexes per class and field
type IndexEngine struct {
	mu      sync.RWMutex
	indexes map[string]map[string]*Index // Class name -> field name -> index
}

// NewIndexEngine creates a new index engine
func NewIndexEngine() *IndexEngine {
	return &IndexEngine{
		indexes: make(map[string]map[string]*Index),
	}
}

// Index stores a mapping from a field's value to object IDs.
type Index struct {
	Field    string
	Inverted map[string][]string
}

// NewIndex creates an index on a specific field.
func NewIndex(field string) *Index {
	return &Index{
		Field:    field,
		Inverted: make(map[string][]string),
	}
}

// Key normalizes a field value into an index key. Numbers of any width share a
// key, pointers are keyed by class and id. Values that cannot be indexed
// (maps, lists) report false.
func Key(v interface{}) (string, bool) {
	if p, ok := domain.AsPointer(v); ok {
		return "p:" + p.ClassName + "/" + p.ObjectID, true
	}
	switch t := v.(type) {
	case nil:
		return "n:", true
	case string:
		return "s:" + t, true
	case bool:
		return fmt.Sprintf("b:%t", t), true
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("f:%v", toFloat(t)), true
	}
	return "", false
}

// BuildIndex indexes all documents by the specified field.
func (idx *Index) BuildIndex(docs map[string]domain.Document) {
	idx.Inverted = make(map[string][]string)
	for docID, doc := range docs {
		idx.add(docID, doc)
	}
}

// Query returns object IDs that match a given value in the indexed field.
func (idx *Index) Query(value interface{}) []string {
	key, ok := Key(value)
	if !ok {
		return nil
	}
	return idx.Inverted[key]
}

// UpdateIndex updates index after an insert/update/delete operation.
func (idx *Index) UpdateIndex(docID string, oldDoc, newDoc domain.Document) {
	for _, key := range keysOf(oldDoc, idx.Field) {
		docList := idx.Inverted[key]
		for i, id := range docList {
			if id == docID {
				idx.Inverted[key] = append(docList[:i:i], docList[i+1:]...)
				break
			}
		}
		if len(idx.Inverted[key]) == 0 {
			delete(idx.Inverted, key)
		}
	}
	idx.add(docID, newDoc)
}

func (idx *Index) add(docID string, doc domain.Document) {
	for _, key := range keysOf(doc, idx.Field) {
		idx.Inverted[key] = append(idx.Inverted[key], docID)
	}
}

// keysOf returns the index keys of a field. List values are indexed per element
// so equality on a list field finds documents containing the value.
func keysOf(doc domain.Document, field string) []string {
	val, ok := doc[field]
	if !ok {
		return nil
	}
	values := []interface{}{val}
	if list, isList := val.([]interface{}); isList {
		values = list
	}
	keys := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if key, ok := Key(v); ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// CreateIndex creates an index on a field of a class and builds it from docs
func (ie *IndexEngine) CreateIndex(className, fieldName string, docs map[string]domain.Document) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if ie.indexes[className] == nil {
		ie.indexes[className] = make(map[string]*Index)
	}
	if _, exists := ie.indexes[className][fieldName]; exists {
		return fmt.Errorf("index on field %s already exists in class %s", fieldName, className)
	}

	index := NewIndex(fieldName)
	index.BuildIndex(docs)
	ie.indexes[className][fieldName] = index
	return nil
}

// DropIndex removes an index from a class
func (ie *IndexEngine) DropIndex(className, fieldName string) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if _, exists := ie.indexes[className][fieldName]; !exists {
		return fmt.Errorf("index on field %s does not exist in class %s", fieldName, className)
	}
	delete(ie.indexes[className], fieldName)
	return nil
}

// GetIndexes returns the indexed field names of a class, sorted
func (ie *IndexEngine) GetIndexes(className string) []string {
	ie.mu.RLock()
	defer ie.mu.RUnlock()

	names := make([]string, 0, len(ie.indexes[className]))
	for fieldName := range ie.indexes[className] {
		names = append(names, fieldName)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the IDs indexed under value. ok is false when the field is
// not indexed or the value cannot be indexed.
func (ie *IndexEngine) Lookup(className, fieldName string, value interface{}) ([]string, bool) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()

	index, exists := ie.indexes[className][fieldName]
	if !exists {
		return nil, false
	}
	if _, ok := Key(value); !ok {
		return nil, false
	}
	return append([]string(nil), index.Query(value)...), true
}

// UpdateIndexForDocument updates every index of a class when a document changes
func (ie *IndexEngine) UpdateIndexForDocument(className, docID string, oldDoc, newDoc domain.Document) {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	for _, index := range ie.indexes[className] {
		index.UpdateIndex(docID, oldDoc, newDoc)
	}
}

// RebuildClass rebuilds every index of a class from docs
func (ie *IndexEngine) RebuildClass(className string, docs map[string]domain.Document) {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	for _, index := range ie.indexes[className] {
		index.BuildIndex(docs)
	}
}

// ExportIndexes returns class -> indexed fields for persistence
func (ie *IndexEngine) ExportIndexes() map[string][]string {
	ie.mu.RLock()
	defer ie.mu.RUnlock()

	out := make(map[string][]string, len(ie.indexes))
	for className, fields := range ie.indexes {
		for fieldName := range fields {
			out[className] = append(out[className], fieldName)
		}
		sort.Strings(out[className])
	}
	return out
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
