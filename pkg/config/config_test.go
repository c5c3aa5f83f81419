package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
	"github.com/adfharrison1/go-docrepo/pkg/repository"
	"github.com/adfharrison1/go-docrepo/pkg/storage"
)

const sampleConfig = `
port: 9090
data_file: /tmp/library.godb
default_limit: 25
background_save: 30s
app_id: library
master_key: secret
log:
  level: debug
  format: json
classes:
  - name: Book
    fields: [title, year, author, internalFlag]
    hidden: [internalFlag]
    text_fields: [title]
    relations:
      - field: author
        class: User
    autopopulate:
      - path: author
        select: [name]
    indexes: [title]
  - name: AuditLog
    use_master_key: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docrepo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "/tmp/library.godb", cfg.DataFile)
	assert.Equal(t, 25, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.BackgroundSave)
	assert.Equal(t, "library", cfg.AppID)
	assert.Equal(t, "docrepo", cfg.AppName)
	assert.Equal(t, "secret", cfg.MasterKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.Len(t, cfg.Classes, 2)
	book, ok := cfg.Class("Book")
	require.True(t, ok)
	assert.Equal(t, []string{"title", "year", "author", "internalFlag"}, book.Fields)
	assert.Equal(t, []RelationConfig{{Field: "author", Class: "User"}}, book.Relations)
	assert.Equal(t, []PopulateConfig{{Path: "author", Select: []string{"name"}}}, book.AutoPopulate)
	assert.Equal(t, []string{"title"}, book.Indexes)

	audit, ok := cfg.Class("AuditLog")
	require.True(t, ok)
	assert.True(t, audit.UseMasterKey)

	_, ok = cfg.Class("Missing")
	assert.False(t, ok)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app_id: x\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "docrepo_data.godb", cfg.DataFile)
	assert.Equal(t, 100, cfg.DefaultLimit)
	assert.Zero(t, cfg.BackgroundSave)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Classes)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCREPO_PORT", "7070")
	t.Setenv("DOCREPO_MASTER_KEY", "from-env")
	t.Setenv("DOCREPO_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "from-env", cfg.MasterKey)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid port", "port: 70000\n", "invalid port"},
		{"negative limit", "default_limit: -1\n", "default_limit"},
		{"class without name", "classes:\n  - fields: [a]\n", "name is required"},
		{"duplicate class", "classes:\n  - name: A\n  - name: A\n", "declared twice"},
		{"incomplete relation", "classes:\n  - name: A\n    relations:\n      - field: b\n", "relations need"},
		{"populate without path", "classes:\n  - name: A\n    autopopulate:\n      - select: [x]\n", "need a path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestClassConfig_Options(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	book, _ := cfg.Class("Book")
	assert.Len(t, book.Options(), 5)

	engine := storage.NewStorageEngine()
	_, err = engine.Import("User", domain.Document{"objectId": "u1", "name": "Frank", "country": "US"})
	require.NoError(t, err)
	_, err = engine.Import("Book", domain.Document{
		"objectId": "b1", "title": "Dune", "internalFlag": true,
		"author": domain.Pointer{ClassName: "User", ObjectID: "u1"},
	})
	require.NoError(t, err)

	repo := repository.New(engine, book.Name, book.Options()...)
	d := query.New()
	d.Options.AutoPopulate = true
	d.Search = "dun"
	row, err := repo.FindOne(context.Background(), d)
	require.NoError(t, err)
	require.NotNil(t, row)

	doc := row.Document()
	assert.NotContains(t, doc, "internalFlag")
	author, ok := doc["author"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Frank", author["name"])
	assert.NotContains(t, author, "country")
}
