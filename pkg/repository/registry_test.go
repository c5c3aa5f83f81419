package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry(newFakeBackend(), WithMasterKey(true))
	book := reg.Register("Book", WithSchema("title"))

	got, ok := reg.Repository("Book")
	require.True(t, ok)
	assert.Same(t, book, got)
	assert.Equal(t, []string{"title"}, got.fields)
	assert.True(t, got.useMasterKey)

	dynamic, ok := reg.Repository("Note")
	require.True(t, ok)
	assert.Equal(t, "Note", dynamic.ClassName())
	assert.Empty(t, dynamic.fields)

	again, _ := reg.Repository("Note")
	assert.Same(t, dynamic, again)
	assert.ElementsMatch(t, []string{"Book", "Note"}, reg.Classes())

	_, ok = reg.Repository("")
	assert.False(t, ok)
}
