package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
	"github.com/adfharrison1/go-docrepo/pkg/response"
)

func TestRetrieve_CountPass(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		returned  int
		count     int
		wantTotal int
		wantCount int
	}{
		{"full page runs count", 10, 10, 42, 42, 1},
		{"short page uses result size", 10, 7, 42, 7, 0},
		{"no limit counts a non-empty page", 0, 3, 42, 42, 1},
		{"no limit and no rows", 0, 0, 42, 0, 0},
		{"unbounded never counts", query.Unbounded, 3, 42, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.results = fakeRecords(backend, tt.returned)
			backend.count = tt.count

			page, err := New(backend, "Book").Retrieve(context.Background(), query.New().Paginate(tt.limit, 2))
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, tt.wantCount, backend.counts)
			assert.Equal(t, tt.limit, page.Limit)
			assert.Equal(t, 2, page.Page)
			assert.Len(t, page.Results, tt.returned)
		})
	}
}

func TestSearch_IsRetrieve(t *testing.T) {
	backend := newFakeBackend()
	backend.results = fakeRecords(backend, 2)
	backend.count = 2
	repo := New(backend, "Book", WithTextFields("title"))

	d := query.New()
	d.Search = "dune"
	page, err := repo.Search(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, []call{{Method: "search", Key: "dune", Value: []string{"title"}}}, backend.last().methods("search"))
}

func TestCount_IgnoresPaginationAndPopulation(t *testing.T) {
	backend := newFakeBackend()
	backend.count = 5
	d := query.New().Paginate(10, 3).Expand("author").Where("year", query.OpGt, 1960)

	n, err := New(backend, "Book").Count(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	q := backend.last()
	assert.Equal(t, []call{{Method: "limit", Value: query.Unbounded}}, q.methods("limit"))
	assert.Empty(t, q.methods("skip"))
	assert.Empty(t, q.methods("include"))
	assert.Equal(t, []call{{"greaterThan", "year", 1960}}, q.methods("greaterThan"))

	// the caller's descriptor is untouched
	assert.Equal(t, 10, d.Options.Limit)
	assert.Len(t, d.Populate, 1)
}

func TestFind_BackendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.findErr = errBackend
	repo := New(backend, "Book")

	_, err := repo.Find(context.Background(), query.New())
	require.Error(t, err)
	assert.Equal(t, response.KindException, response.KindOf(err))
	assert.ErrorIs(t, err, errBackend)

	_, err = repo.Retrieve(context.Background(), query.New())
	assert.Equal(t, response.KindException, response.KindOf(err))

	row, err := repo.FindOne(context.Background(), query.New())
	assert.Nil(t, row)
	assert.Equal(t, response.KindException, response.KindOf(err))
}

func TestFindOne_NoMatch(t *testing.T) {
	row, err := New(newFakeBackend(), "Book").FindOne(context.Background(), query.New())
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestFind_Flatten(t *testing.T) {
	backend := newFakeBackend()
	backend.results = []domain.Record{&fakeRecord{backend: backend, class: "Book", fields: domain.Document{"objectId": "b1", "title": "Dune"}}}

	d := query.New()
	d.Options.Flatten = true
	rows, err := New(backend, "Book").Find(context.Background(), d)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Nil(t, rows[0].Record)
	assert.Equal(t, "Dune", rows[0].Plain["title"])
	assert.Empty(t, rows.Records())

	data, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"objectId":"b1","title":"Dune"}]`, string(data))
}

func TestFind_FlattenPopulateSkipsNativeInclude(t *testing.T) {
	backend := newFakeBackend()
	d := query.New().Expand("author", "name")
	d.Options.Flatten = true

	_, err := New(backend, "Book", WithSchema("title")).Find(context.Background(), d)
	require.NoError(t, err)

	q := backend.queries[0]
	assert.Empty(t, q.methods("include"))
	assert.Equal(t, []call{{Method: "select", Value: []string{"title", "author"}}}, q.methods("select"))
}
