package query

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KeepsSortOrder(t *testing.T) {
	body := `{
		"options": {"limit": 10, "page": 2, "sort": {"zeta": 1, "alpha": -1, "mid": 5}},
		"filters": [{"key": "age", "op": "$gt", "value": 21}],
		"projection": {"name": true},
		"populate": [{"path": "author", "select": ["name"]}]
	}`

	d, err := Decode(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, Sort{{"zeta", 1}, {"alpha", -1}, {"mid", 1}}, d.Options.Sort)
	assert.Equal(t, 10, d.Options.Limit)
	assert.Equal(t, 2, d.Options.Page)
	require.Len(t, d.Filters, 1)
	assert.Equal(t, OpGt, d.Filters[0].Op)
	assert.Equal(t, float64(21), d.Filters[0].Value)
	assert.True(t, d.Projection["name"])
	assert.Equal(t, []Populate{{Path: "author", Select: []string{"name"}}}, d.Populate)
}

func TestDecodeYAML_KeepsSortOrder(t *testing.T) {
	body := `
options:
  limit: 5
  sort:
    b: -1
    a: 1
filters:
  - key: tags
    op: $in
    value: [x, y]
`
	d, err := DecodeYAML(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, Sort{{"b", -1}, {"a", 1}}, d.Options.Sort)
	require.Len(t, d.Filters, 1)
	assert.Equal(t, []interface{}{"x", "y"}, d.Filters[0].Value)
}

func TestSort_MarshalJSON(t *testing.T) {
	s := Sort{}.Desc("createdAt").Asc("name")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"createdAt":-1,"name":1}`, string(data))

	var back Sort
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestSort_RejectsNonObject(t *testing.T) {
	var s Sort
	assert.Error(t, json.Unmarshal([]byte(`["name"]`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"name":"up"}`), &s))
}

func TestDescriptor_Offset(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		page     int
		expected int
	}{
		{name: "first page", limit: 10, page: 1, expected: 0},
		{name: "page zero treated as first", limit: 10, page: 0, expected: 0},
		{name: "third page", limit: 10, page: 3, expected: 20},
		{name: "no limit", limit: 0, page: 4, expected: 0},
		{name: "unbounded", limit: Unbounded, page: 4, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New().Paginate(tt.limit, tt.page).Offset())
		})
	}
}

func TestDescriptor_Clone(t *testing.T) {
	d := New().Where("name", OpEq, "a").Expand("author", "name")
	d.Projection = map[string]bool{"name": true}
	d.Options.Sort = Sort{}.Asc("name")

	c := d.Clone()
	c.Filters[0].Key = "other"
	c.Projection["secret"] = false
	c.Populate[0].Select[0] = "email"
	c.Options.Sort[0].Weight = -1

	assert.Equal(t, "name", d.Filters[0].Key)
	assert.NotContains(t, d.Projection, "secret")
	assert.Equal(t, "name", d.Populate[0].Select[0])
	assert.Equal(t, 1, d.Options.Sort[0].Weight)
}

func TestBoolBuilders(t *testing.T) {
	f := Or(Group{Filters: []Filter{{Key: "a", Op: OpEq, Value: 1}}})
	assert.Equal(t, BoolOr, f.Key)
	assert.Equal(t, OpBool, f.Op)
	assert.Len(t, f.Value, 1)

	assert.Equal(t, BoolNot, Not().Key)
	assert.Equal(t, BoolAnd, And().Key)
	assert.Equal(t, OpNested, Nested("address", map[string]interface{}{"city": "X"}).Op)
}
