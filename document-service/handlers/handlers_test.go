package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loresmith-backend/document-service/services"
	"loresmith-backend/document-service/store"
	"loresmith-backend/shared/config"
	"loresmith-backend/shared/database/models/document"
)

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&document.Document{}, &document.DocumentVersion{}))

	storage, err := services.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := services.NewDocumentService(
		store.NewDocumentStore(db),
		storage,
		services.NewDocumentValidator(10<<20),
		nil,
		nil,
		nil,
	)

	router := gin.New()
	RegisterRoutes(router, cfg, svc, nil)
	return router
}

func perform(router *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func performJSON(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	return perform(router, method, path, bytes.NewBuffer(data), "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, fileBody []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(fileBody)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func uploadDocument(t *testing.T, router *gin.Engine, name string) string {
	t.Helper()
	body, contentType := multipartUpload(t, map[string]string{
		"tags":     "lore, maps",
		"category": "worldbuilding",
	}, name, bytes.Repeat([]byte("once upon a time "), 100))

	rec := perform(router, http.MethodPost, "/api/documents", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &config.Config{})

	rec := perform(router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "UP", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestUploadAndGetDocument(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	rec := perform(router, http.MethodGet, "/api/documents/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "saga.md", data["name"])
	assert.Equal(t, "uploaded", data["status"])
	assert.Equal(t, "worldbuilding", data["category"])
}

func TestUploadRequiresFile(t *testing.T) {
	router := newTestRouter(t, &config.Config{})

	body, contentType := multipartUpload(t, map[string]string{"category": "x"}, "", nil)
	rec := perform(router, http.MethodPost, "/api/documents", body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestUploadEnforcesSizeLimit(t *testing.T) {
	router := newTestRouter(t, &config.Config{MaxUploadSizeMB: 1})

	body, contentType := multipartUpload(t, nil, "big.md", bytes.Repeat([]byte("a"), 2<<20))
	rec := perform(router, http.MethodPost, "/api/documents", body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownDocument(t *testing.T) {
	router := newTestRouter(t, &config.Config{})

	rec := perform(router, http.MethodGet, "/api/documents/00000000-0000-0000-0000-000000000001", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]interface{})
	assert.EqualValues(t, http.StatusNotFound, errBody["statusCode"])
}

func TestGetMalformedID(t *testing.T) {
	router := newTestRouter(t, &config.Config{})

	rec := perform(router, http.MethodGet, "/api/documents/not-a-uuid", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPagination(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	for i := 0; i < 3; i++ {
		uploadDocument(t, router, fmt.Sprintf("doc-%d.md", i))
	}

	rec := perform(router, http.MethodGet, "/api/documents?page=1&limit=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 2, body["limit"])
	assert.Len(t, body["data"].([]interface{}), 2)
}

func TestUpdateDocumentFields(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	rec := performJSON(router, http.MethodPatch, "/api/documents/"+id, map[string]interface{}{
		"name":     "renamed.md",
		"category": "archive",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "renamed.md", data["name"])
	assert.Equal(t, "archive", data["category"])
}

func TestUpdateMetadataRejectsUnknownKeys(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	rec := performJSON(router, http.MethodPatch, "/api/documents/"+id+"/metadata", map[string]interface{}{
		"title": "ok",
		"rogue": "nope",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performJSON(router, http.MethodPatch, "/api/documents/"+id+"/metadata", map[string]interface{}{
		"title": "The Saga",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	metadata := data["metadata"].(map[string]interface{})
	assert.Equal(t, "The Saga", metadata["title"])
}

func TestToggleFavorite(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	rec := perform(router, http.MethodPost, "/api/documents/"+id+"/favorite", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["is_favorite"])
}

func TestDeleteDocument(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	rec := perform(router, http.MethodDelete, "/api/documents/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = perform(router, http.MethodGet, "/api/documents/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = perform(router, http.MethodDelete, "/api/documents/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessAndStatus(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	rec := perform(router, http.MethodPost, "/api/documents/"+id+"/process", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = perform(router, http.MethodGet, "/api/documents/"+id+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "processing", data["status"])
	assert.EqualValues(t, 0, data["progress"])
}

func TestDownloadDocument(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	rec := perform(router, http.MethodGet, "/api/documents/"+id+"/download", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "saga.md")
	assert.Contains(t, rec.Body.String(), "once upon a time")
}

func TestValidationRulesEndpoint(t *testing.T) {
	router := newTestRouter(t, &config.Config{})

	rec := perform(router, http.MethodGet, "/api/documents/validation/rules", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.NotEmpty(t, data["supported_types"])
	assert.EqualValues(t, 1024, data["min_size_bytes"])
}

func TestVersionLifecycle(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	id := uploadDocument(t, router, "saga.md")

	// create two snapshots
	for i := 0; i < 2; i++ {
		body, contentType := multipartUpload(t, map[string]string{"changes": "snapshot"}, "", nil)
		rec := perform(router, http.MethodPost, "/api/documents/"+id+"/versions", body, contentType)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := perform(router, http.MethodGet, "/api/documents/"+id+"/versions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	versions := data["versions"].([]interface{})
	require.Len(t, versions, 2)
	assert.EqualValues(t, 2, data["current_version"])

	// restore the oldest version
	oldest := versions[1].(map[string]interface{})
	versionID := oldest["id"].(string)
	rec = perform(router, http.MethodPost, "/api/documents/"+id+"/versions/"+versionID+"/restore", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	restored := decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, restored["current_version"])

	// delete the newest version
	newest := versions[0].(map[string]interface{})
	rec = perform(router, http.MethodDelete, "/api/documents/"+id+"/versions/"+newest["id"].(string), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = perform(router, http.MethodGet, "/api/documents/"+id+"/versions", nil, "")
	data = decode(t, rec)["data"].(map[string]interface{})
	assert.Len(t, data["versions"].([]interface{}), 1)
}

func TestBatchOperations(t *testing.T) {
	router := newTestRouter(t, &config.Config{})
	a := uploadDocument(t, router, "a.md")
	b := uploadDocument(t, router, "b.md")

	rec := performJSON(router, http.MethodPost, "/api/documents/batch/favorite", map[string]interface{}{
		"ids":         []string{a, b},
		"is_favorite": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["updated"])

	rec = performJSON(router, http.MethodPost, "/api/documents/batch/tags", map[string]interface{}{
		"ids":       []string{a, b},
		"tags":      []string{"canon"},
		"operation": "set",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data = decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["updated"])

	rec = performJSON(router, http.MethodPost, "/api/documents/batch/delete", map[string]interface{}{
		"ids": []string{a, b},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data = decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["deleted"])

	rec = perform(router, http.MethodGet, "/api/documents", nil, "")
	body := decode(t, rec)
	assert.EqualValues(t, 0, body["total"])
}

func TestBatchRejectsMalformedIDs(t *testing.T) {
	router := newTestRouter(t, &config.Config{})

	rec := performJSON(router, http.MethodPost, "/api/documents/batch/delete", map[string]interface{}{
		"ids": []string{"not-a-uuid"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	router := newTestRouter(t, &config.Config{JWTSecret: "super-secret"})

	rec := perform(router, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	// health stays open
	rec = perform(router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}
