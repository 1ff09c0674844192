package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loresmith-backend/shared/database/models/document"
)

func testDoc(name string, createdAt time.Time) document.Document {
	return document.Document{
		ID:             uuid.New(),
		Name:           name,
		Status:         document.StatusComplete,
		CurrentVersion: 1,
		Metadata:       document.JSONMap{"title": name},
		CreatedAt:      createdAt,
	}
}

func TestUpsertAndList(t *testing.T) {
	state := NewState()
	now := time.Now()

	older := testDoc("older.md", now.Add(-time.Hour))
	newer := testDoc("newer.md", now)
	state.UpsertAll([]document.Document{older, newer})

	require.Equal(t, 2, state.Len())

	docs := state.List()
	require.Len(t, docs, 2)
	assert.Equal(t, "newer.md", docs[0].Name)
	assert.Equal(t, "older.md", docs[1].Name)

	// upsert replaces in place
	newer.Name = "renamed.md"
	state.Upsert(newer)
	got, ok := state.Get(newer.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed.md", got.Name)
	assert.Equal(t, 2, state.Len())
}

func TestSelectionFollowsRemoval(t *testing.T) {
	state := NewState()
	doc := testDoc("a.md", time.Now())
	state.Upsert(doc)

	state.Select(doc.ID)
	selected, ok := state.Selected()
	require.True(t, ok)
	assert.Equal(t, doc.ID, selected.ID)

	state.Remove(doc.ID)
	_, ok = state.Selected()
	assert.False(t, ok)

	// selecting an unknown id clears rather than dangles
	state.Select(uuid.New())
	_, ok = state.Selected()
	assert.False(t, ok)
}

func TestMultiSelectAndBatchMode(t *testing.T) {
	state := NewState()
	a := testDoc("a.md", time.Now())
	b := testDoc("b.md", time.Now())
	state.UpsertAll([]document.Document{a, b})

	state.SetBatchMode(true)
	state.ToggleSelect(a.ID)
	state.ToggleSelect(b.ID)
	state.ToggleSelect(uuid.New()) // unknown ids are ignored
	assert.Len(t, state.SelectedIDs(), 2)
	assert.True(t, state.IsSelected(a.ID))

	state.ToggleSelect(a.ID)
	assert.False(t, state.IsSelected(a.ID))

	// leaving batch mode clears the set
	state.SetBatchMode(false)
	assert.Empty(t, state.SelectedIDs())
}

func TestReplacePrunesSelection(t *testing.T) {
	state := NewState()
	a := testDoc("a.md", time.Now())
	b := testDoc("b.md", time.Now())
	state.UpsertAll([]document.Document{a, b})
	state.Select(a.ID)
	state.ToggleSelect(b.ID)

	state.Replace([]document.Document{b})

	_, ok := state.Selected()
	assert.False(t, ok)
	assert.True(t, state.IsSelected(b.ID))
	assert.Equal(t, 1, state.Len())
}

func TestLoadingAndErrorFlags(t *testing.T) {
	state := NewState()

	state.SetError("boom")
	assert.Equal(t, "boom", state.LastError())
	assert.False(t, state.Loading())

	// starting a load clears the previous error
	state.SetLoading(true)
	assert.True(t, state.Loading())
	assert.Empty(t, state.LastError())
}

func TestToggleFavoriteLocal(t *testing.T) {
	state := NewState()
	doc := testDoc("a.md", time.Now())
	state.Upsert(doc)

	require.True(t, state.ToggleFavoriteLocal(doc.ID))
	got, _ := state.Get(doc.ID)
	assert.True(t, got.IsFavorite)

	require.True(t, state.ToggleFavoriteLocal(doc.ID))
	got, _ = state.Get(doc.ID)
	assert.False(t, got.IsFavorite)

	assert.False(t, state.ToggleFavoriteLocal(uuid.New()))
}

func TestMergeMetadataLocal(t *testing.T) {
	state := NewState()
	doc := testDoc("a.md", time.Now())
	state.Upsert(doc)

	require.True(t, state.MergeMetadataLocal(doc.ID, map[string]interface{}{"author": "Anon"}))
	got, _ := state.Get(doc.ID)
	assert.Equal(t, "a.md", got.Metadata["title"])
	assert.Equal(t, "Anon", got.Metadata["author"])
}

func TestAppendVersionLocal(t *testing.T) {
	state := NewState()
	doc := testDoc("a.md", time.Now())
	state.Upsert(doc)

	ok := state.AppendVersionLocal(doc.ID, document.DocumentVersion{
		VersionNumber: 2,
		Path:          "documents/x/versions/y/a.md",
		FileSize:      4096,
	})
	require.True(t, ok)

	got, _ := state.Get(doc.ID)
	assert.Equal(t, 2, got.CurrentVersion)
	assert.Equal(t, "documents/x/versions/y/a.md", got.Path)
	assert.EqualValues(t, 4096, got.Size)
}

func TestMetadataPrefs(t *testing.T) {
	state := NewState()
	assert.True(t, state.MetadataPrefs().Visible)

	state.SetMetadataPrefs(MetadataPrefs{Visible: false, Fields: []string{"title"}})
	prefs := state.MetadataPrefs()
	assert.False(t, prefs.Visible)
	assert.Equal(t, []string{"title"}, prefs.Fields)
}
