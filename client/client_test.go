package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loresmith-backend/shared/database/models/document"
)

func newFakeServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, "test-token", NewState())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestListDocumentsReconcilesState(t *testing.T) {
	doc := document.Document{ID: uuid.New(), Name: "saga.md", CreatedAt: time.Now()}

	client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    []document.Document{doc},
			"page":    1,
			"limit":   2,
			"total":   1,
		})
	})

	docs, total, err := client.ListDocuments(context.Background(), ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.EqualValues(t, 1, total)
	assert.False(t, client.State().Loading())

	cached, ok := client.State().Get(doc.ID)
	require.True(t, ok)
	assert.Equal(t, "saga.md", cached.Name)
}

func TestErrorEnvelopeSurfacesAsAPIError(t *testing.T) {
	client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"message": "document not found", "statusCode": 404},
		})
	})

	_, err := client.GetDocument(context.Background(), uuid.New())
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "document not found", apiErr.Message)
	assert.Equal(t, "document not found", client.State().LastError())
}

func TestToggleFavoriteRollsBackOnFailure(t *testing.T) {
	doc := document.Document{ID: uuid.New(), Name: "saga.md"}

	client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   map[string]interface{}{"message": "storage failure"},
		})
	})
	client.State().Upsert(doc)

	_, err := client.ToggleFavorite(context.Background(), doc.ID)
	require.Error(t, err)

	// optimistic flip undone
	cached, _ := client.State().Get(doc.ID)
	assert.False(t, cached.IsFavorite)
}

func TestDeleteDocumentPrunesCache(t *testing.T) {
	doc := document.Document{ID: uuid.New(), Name: "saga.md"}

	client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Document deleted successfully",
		})
	})
	client.State().Upsert(doc)

	require.NoError(t, client.DeleteDocument(context.Background(), doc.ID))
	_, ok := client.State().Get(doc.ID)
	assert.False(t, ok)
}

func TestBatchTagsReconcilesDocuments(t *testing.T) {
	doc := document.Document{ID: uuid.New(), Name: "saga.md", Tags: document.StringList{"canon"}}

	client := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			IDs       []string `json:"ids"`
			Tags      []string `json:"tags"`
			Operation string   `json:"operation"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "set", payload.Operation)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"documents": []document.Document{doc},
				"updated":   1,
				"requested": 1,
			},
		})
	})

	docs, err := client.BatchTags(context.Background(), []uuid.UUID{doc.ID}, []string{"canon"}, "set")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	cached, ok := client.State().Get(doc.ID)
	require.True(t, ok)
	assert.Equal(t, document.StringList{"canon"}, cached.Tags)
}
