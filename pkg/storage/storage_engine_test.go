package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

var elevated = domain.Scope{Mode: domain.AccessElevated}

func fixedClock() func() time.Time {
	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestNewStorageEngine(t *testing.T) {
	tests := []struct {
		name           string
		options        []StorageOption
		defaultLimit   int
		dataFile       string
		backgroundSave bool
		saveInterval   time.Duration
	}{
		{
			name:         "default options",
			defaultLimit: 100,
			saveInterval: 5 * time.Minute,
		},
		{
			name: "custom options",
			options: []StorageOption{
				WithDefaultLimit(10),
				WithDataFile("/tmp/data.godb"),
				WithBackgroundSave(time.Minute),
			},
			defaultLimit:   10,
			dataFile:       "/tmp/data.godb",
			backgroundSave: true,
			saveInterval:   time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewStorageEngine(tt.options...)

			assert.Equal(t, tt.defaultLimit, engine.defaultLimit)
			assert.Equal(t, tt.dataFile, engine.dataFile)
			assert.Equal(t, tt.backgroundSave, engine.backgroundSave)
			assert.Equal(t, tt.saveInterval, engine.saveInterval)
			assert.NotNil(t, engine.collections)
			assert.NotNil(t, engine.indexEngine)
			assert.NotNil(t, engine.stopChan)
		})
	}
}

func TestStorageEngine_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	engine := NewStorageEngine(WithClock(fixedClock()))

	rec := engine.NewRecord("Book")
	rec.Set("title", "Dune")
	rec.Set("objectId", "ignored")
	require.NoError(t, rec.Save(ctx, elevated))

	id := rec.ID()
	require.NotEmpty(t, id)
	assert.NotEqual(t, "ignored", id)
	assert.Len(t, id, 10)

	got, err := engine.Get(ctx, "Book", id, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Get("title"))
	assert.IsType(t, time.Time{}, got.Get(domain.FieldCreatedAt))

	created := got.Get(domain.FieldCreatedAt)
	got.Set("title", "Dune Messiah")
	got.Set("subtitle", nil)
	require.NoError(t, got.Save(ctx, elevated))

	again, err := engine.Get(ctx, "Book", id, domain.Scope{})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", again.Get("title"))
	assert.Equal(t, created, again.Get(domain.FieldCreatedAt))
	assert.NotEqual(t, created, again.Get(domain.FieldUpdatedAt))
}

func TestStorageEngine_GetMissing(t *testing.T) {
	engine := NewStorageEngine()
	_, err := engine.Get(context.Background(), "Book", "nope", elevated)
	assert.True(t, errors.Is(err, domain.ErrObjectNotFound))
}

func TestStorageEngine_UnsetFieldRemoved(t *testing.T) {
	ctx := context.Background()
	engine := NewStorageEngine()
	ids, err := engine.Import("Book", domain.Document{"objectId": "b1", "title": "Dune", "year": 1965})
	require.NoError(t, err)
	require.Equal(t, []string{"b1"}, ids)

	rec, err := engine.Get(ctx, "Book", "b1", elevated)
	require.NoError(t, err)
	rec.Set("year", nil)
	require.NoError(t, rec.Save(ctx, elevated))

	rec, err = engine.Get(ctx, "Book", "b1", elevated)
	require.NoError(t, err)
	assert.Nil(t, rec.Get("year"))
	assert.NotContains(t, rec.ToPlain(), "year")
}

func TestStorageEngine_ACL(t *testing.T) {
	ctx := context.Background()
	engine := NewStorageEngine()
	_, err := engine.Import("Note",
		domain.Document{"objectId": "public", "text": "hi"},
		domain.Document{"objectId": "private", "text": "secret", "ACL": map[string]interface{}{
			"alice": map[string]interface{}{"read": true, "write": true},
		}},
		domain.Document{"objectId": "readonly", "text": "look", "ACL": map[string]interface{}{
			"*": map[string]interface{}{"read": true},
		}},
	)
	require.NoError(t, err)

	alice := domain.Scope{Mode: domain.AccessSession, Token: engine.CreateSession("alice")}
	bob := domain.Scope{Mode: domain.AccessSession, Token: engine.CreateSession("bob")}

	tests := []struct {
		name      string
		scope     domain.Scope
		id        string
		canRead   bool
		writeErr  error
	}{
		{"anonymous reads public", domain.Scope{}, "public", true, nil},
		{"anonymous cannot read private", domain.Scope{}, "private", false, nil},
		{"owner reads private", alice, "private", true, nil},
		{"other user cannot read private", bob, "private", false, nil},
		{"elevated reads private", elevated, "private", true, nil},
		{"public read only", bob, "readonly", true, ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := engine.Get(ctx, "Note", tt.id, tt.scope)
			if !tt.canRead {
				assert.True(t, errors.Is(err, domain.ErrObjectNotFound))
				return
			}
			require.NoError(t, err)
			rec.Set("seen", true)
			err = rec.Save(ctx, tt.scope)
			if tt.writeErr != nil {
				assert.True(t, errors.Is(err, tt.writeErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStorageEngine_InvalidSession(t *testing.T) {
	engine := NewStorageEngine()
	token := engine.CreateSession("alice")
	engine.RevokeSession(token)

	_, err := engine.NewQuery("Note").Find(context.Background(), domain.Scope{Mode: domain.AccessSession, Token: token})
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestStorageEngine_SaveAllIsAtomicOnPermission(t *testing.T) {
	ctx := context.Background()
	engine := NewStorageEngine()
	_, err := engine.Import("Note",
		domain.Document{"objectId": "open", "text": "a"},
		domain.Document{"objectId": "locked", "text": "b", "ACL": map[string]interface{}{}},
	)
	require.NoError(t, err)

	open, err := engine.Get(ctx, "Note", "open", elevated)
	require.NoError(t, err)
	locked, err := engine.Get(ctx, "Note", "locked", elevated)
	require.NoError(t, err)
	open.Set("text", "changed")
	locked.Set("text", "changed")

	err = engine.SaveAll(ctx, []domain.Record{open, locked}, domain.Scope{})
	require.ErrorIs(t, err, ErrPermissionDenied)

	stored, err := engine.Get(ctx, "Note", "open", elevated)
	require.NoError(t, err)
	assert.Equal(t, "a", stored.Get("text"))
}

func TestStorageEngine_DestroyAll(t *testing.T) {
	ctx := context.Background()
	engine := NewStorageEngine()
	_, err := engine.Import("Note", domain.Document{"objectId": "n1"}, domain.Document{"objectId": "n2"})
	require.NoError(t, err)

	recs, err := engine.NewQuery("Note").Find(ctx, elevated)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.NoError(t, engine.DestroyAll(ctx, recs, elevated))

	count, err := engine.NewQuery("Note").Count(ctx, elevated)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = recs[0].Destroy(ctx, elevated)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestStorageEngine_ForeignRecord(t *testing.T) {
	a := NewStorageEngine()
	b := NewStorageEngine()
	err := a.SaveAll(context.Background(), []domain.Record{b.NewRecord("Note")}, elevated)
	assert.Error(t, err)
}

func TestStorageEngine_CanceledContext(t *testing.T) {
	engine := NewStorageEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := engine.NewRecord("Note").Save(ctx, elevated)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = engine.NewQuery("Note").Find(ctx, elevated)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStorageEngine_MemoryStats(t *testing.T) {
	engine := NewStorageEngine()
	_, err := engine.Import("A", domain.Document{}, domain.Document{})
	require.NoError(t, err)
	_, err = engine.Import("B", domain.Document{})
	require.NoError(t, err)
	engine.CreateSession("alice")

	stats := engine.GetMemoryStats()
	assert.Equal(t, 3, stats["total_objects"])
	assert.Equal(t, 1, stats["sessions"])
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, stats["classes"])
	assert.Equal(t, []string{"A", "B"}, engine.Classes())
}

func TestRecord_ToPlain(t *testing.T) {
	ctx := context.Background()
	engine := NewStorageEngine()
	_, err := engine.Import("User", domain.Document{"objectId": "u1", "name": "Frank"})
	require.NoError(t, err)
	_, err = engine.Import("Book", domain.Document{
		"objectId": "b1",
		"author":   domain.Pointer{ClassName: "User", ObjectID: "u1"},
		"tags":     []string{"scifi"},
	})
	require.NoError(t, err)

	q := engine.NewQuery("Book")
	q.Include("author")
	rec, err := q.First(ctx, elevated)
	require.NoError(t, err)
	require.NotNil(t, rec)

	plain := rec.ToPlain()
	assert.Equal(t, "Book", plain["className"])
	assert.Equal(t, []interface{}{"scifi"}, plain["tags"])
	author, ok := plain["author"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Frank", author["name"])
	assert.Equal(t, "User", author["className"])
	assert.IsType(t, "", plain["createdAt"])
}
