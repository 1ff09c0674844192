package client

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"loresmith-backend/shared/database/models/document"
)

// MetadataPrefs controls how document metadata is rendered by a consumer UI
type MetadataPrefs struct {
	Visible bool     `json:"visible"`
	Fields  []string `json:"fields"`
}

// State is a client-side cache of documents keyed by ID, plus the UI-ish
// bookkeeping around it: selection, multi-select, batch mode and
// loading/error flags. It is a projection of server responses, never a
// source of truth: local mutators exist so a UI can update optimistically,
// but every server response should be reconciled back in via Upsert.
type State struct {
	mu sync.RWMutex

	documents   map[uuid.UUID]document.Document
	selected    *uuid.UUID
	multiSelect map[uuid.UUID]struct{}
	batchMode   bool

	loading   bool
	lastError string

	metadataPrefs MetadataPrefs
}

func NewState() *State {
	return &State{
		documents:   make(map[uuid.UUID]document.Document),
		multiSelect: make(map[uuid.UUID]struct{}),
		metadataPrefs: MetadataPrefs{
			Visible: true,
			Fields:  []string{"title", "author", "date"},
		},
	}
}

// Upsert stores or replaces a single document
func (s *State) Upsert(doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = doc
}

// UpsertAll reconciles a page of server results into the cache
func (s *State) UpsertAll(docs []document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.documents[doc.ID] = doc
	}
}

// Replace throws away the cache and installs the given documents
func (s *State) Replace(docs []document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[uuid.UUID]document.Document, len(docs))
	for _, doc := range docs {
		s.documents[doc.ID] = doc
	}
	s.pruneSelectionLocked()
}

// Remove drops a document and any selection pointing at it
func (s *State) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.multiSelect, id)
	if s.selected != nil && *s.selected == id {
		s.selected = nil
	}
}

// RemoveAll drops several documents at once
func (s *State) RemoveAll(ids []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.documents, id)
		delete(s.multiSelect, id)
		if s.selected != nil && *s.selected == id {
			s.selected = nil
		}
	}
}

// Get returns a copy of the cached document
func (s *State) Get(id uuid.UUID) (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	return doc, ok
}

// List returns the cached documents, newest first
func (s *State) List() []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]document.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID.String() > docs[j].ID.String()
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Select marks a single document as the current one. Selecting an unknown ID
// clears the selection.
func (s *State) Select(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		s.selected = nil
		return
	}
	selected := id
	s.selected = &selected
}

func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// Selected returns the currently selected document, if any
func (s *State) Selected() (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return document.Document{}, false
	}
	doc, ok := s.documents[*s.selected]
	return doc, ok
}

// ToggleSelect adds or removes a document from the multi-select set
func (s *State) ToggleSelect(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return
	}
	if _, ok := s.multiSelect[id]; ok {
		delete(s.multiSelect, id)
	} else {
		s.multiSelect[id] = struct{}{}
	}
}

func (s *State) IsSelected(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.multiSelect[id]
	return ok
}

// SelectedIDs returns the multi-select set in stable order
func (s *State) SelectedIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.multiSelect))
	for id := range s.multiSelect {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// SetBatchMode toggles batch mode; leaving it clears the multi-select set
func (s *State) SetBatchMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchMode = enabled
	if !enabled {
		s.multiSelect = make(map[uuid.UUID]struct{})
	}
}

func (s *State) BatchMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchMode
}

func (s *State) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
	if loading {
		s.lastError = ""
	}
}

func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *State) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
	s.loading = false
}

func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *State) SetMetadataPrefs(prefs MetadataPrefs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadataPrefs = prefs
}

func (s *State) MetadataPrefs() MetadataPrefs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadataPrefs
}

// ToggleFavoriteLocal flips the favorite flag optimistically
func (s *State) ToggleFavoriteLocal(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return false
	}
	doc.IsFavorite = !doc.IsFavorite
	s.documents[id] = doc
	return true
}

// MergeMetadataLocal shallow-merges metadata keys optimistically
func (s *State) MergeMetadataLocal(id uuid.UUID, patch map[string]interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return false
	}
	merged := make(document.JSONMap, len(doc.Metadata)+len(patch))
	for k, v := range doc.Metadata {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	doc.Metadata = merged
	s.documents[id] = doc
	return true
}

// AppendVersionLocal bumps the cached current_version after a version create
func (s *State) AppendVersionLocal(id uuid.UUID, version document.DocumentVersion) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return false
	}
	doc.CurrentVersion = version.VersionNumber
	if version.Path != "" {
		doc.Path = version.Path
		doc.Size = version.FileSize
	}
	s.documents[id] = doc
	return true
}

// caller holds s.mu
func (s *State) pruneSelectionLocked() {
	if s.selected != nil {
		if _, ok := s.documents[*s.selected]; !ok {
			s.selected = nil
		}
	}
	for id := range s.multiSelect {
		if _, ok := s.documents[id]; !ok {
			delete(s.multiSelect, id)
		}
	}
}
