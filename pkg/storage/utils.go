package storage

import (
	"reflect"
	"strings"
	"time"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// lookupPath resolves a dotted field path through nested maps
func lookupPath(doc domain.Document, path string) (interface{}, bool) {
	if v, ok := doc[path]; ok || !strings.Contains(path, ".") {
		return v, ok
	}
	var current interface{} = map[string]interface{}(doc)
	for _, segment := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]interface{}:
			v, ok := m[segment]
			if !ok {
				return nil, false
			}
			current = v
		case domain.Document:
			v, ok := m[segment]
			if !ok {
				return nil, false
			}
			current = v
		case *Record:
			v, ok := m.fields[segment]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// ValuesMatch compares two values for equality, handling different types.
// Numbers compare by value, pointers by class and id.
func ValuesMatch(actual, expected interface{}) bool {
	// Handle nil values
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	if ap, ok := domain.AsPointer(actual); ok {
		if ep, ok := domain.AsPointer(expected); ok {
			return ap == ep
		}
		if r, ok := expected.(*Record); ok {
			return ap.ClassName == r.class && ap.ObjectID == r.ID()
		}
		return false
	}

	if actualStr, ok1 := actual.(string); ok1 {
		expectedStr, ok2 := expected.(string)
		return ok2 && actualStr == expectedStr
	}

	// Handle numeric comparison
	if actualNum, ok1 := ToFloat64(actual); ok1 {
		if expectedNum, ok2 := ToFloat64(expected); ok2 {
			return actualNum == expectedNum
		}
		return false
	}

	if at, ok := actual.(time.Time); ok {
		et, ok := expected.(time.Time)
		return ok && at.Equal(et)
	}

	return reflect.DeepEqual(actual, expected)
}

// equalsOrContains is equality that treats a list field as matching when any
// element equals expected
func equalsOrContains(actual, expected interface{}) bool {
	if list, ok := actual.([]interface{}); ok {
		if _, expectedList := expected.([]interface{}); !expectedList {
			return containsValue(list, expected)
		}
	}
	return ValuesMatch(actual, expected)
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if ValuesMatch(item, v) {
			return true
		}
	}
	return false
}

// inList reports whether actual (or, for list fields, any element) is one of values
func inList(actual interface{}, values []interface{}) bool {
	if list, ok := actual.([]interface{}); ok {
		for _, item := range list {
			if containsValue(values, item) {
				return true
			}
		}
		return false
	}
	return containsValue(values, actual)
}

// CompareValues orders numbers, strings and timestamps. ok is false when the
// values are not comparable.
func CompareValues(a, b interface{}) (int, bool) {
	if af, ok := ToFloat64(a); ok {
		bf, ok := ToFloat64(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	return 0, false
}

// ToFloat64 converts various numeric types to float64 for comparison
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// IntersectStringSlices returns the intersection of multiple string slices
// This is used for index intersection in multi-field queries
func IntersectStringSlices(slices ...[]string) []string {
	if len(slices) == 0 {
		return nil
	}
	if len(slices) == 1 {
		return slices[0]
	}

	// Create a map to track counts of each ID
	countMap := make(map[string]int)

	for _, slice := range slices {
		seen := make(map[string]bool, len(slice))
		for _, id := range slice {
			if !seen[id] {
				seen[id] = true
				countMap[id]++
			}
		}
	}

	// Find IDs that appear in all slices (count equals number of slices)
	var result []string
	expectedCount := len(slices)
	for id, count := range countMap {
		if count == expectedCount {
			result = append(result, id)
		}
	}

	return result
}
