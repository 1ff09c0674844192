package services

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loresmith-backend/document-service/store"
	"loresmith-backend/shared/config"
	"loresmith-backend/shared/database/models/document"
	"loresmith-backend/shared/utils/apierror"
)

func newTestService(t *testing.T, encryptor *Encryptor) *DocumentService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&document.Document{}, &document.DocumentVersion{}))

	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	return NewDocumentService(
		store.NewDocumentStore(db),
		storage,
		NewDocumentValidator(10<<20),
		encryptor,
		nil,
		nil,
	)
}

func newTestEncryptor(t *testing.T, algorithm string) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor(&config.Config{
		EncryptionEnabled:   true,
		EncryptionAlgorithm: algorithm,
		EncryptionKey:       "test-secret-key",
	})
	require.NoError(t, err)
	return enc
}

func fixtureBody() []byte {
	return bytes.Repeat([]byte("In the beginning there were dragons. "), 40)
}

func fixtureUpload(name string) Upload {
	body := fixtureBody()
	return Upload{
		Name:   name,
		Type:   "text/markdown",
		Size:   int64(len(body)),
		Reader: bytes.NewReader(body),
	}
}

func mustCreate(t *testing.T, svc *DocumentService) *document.Document {
	t.Helper()
	doc, err := svc.CreateDocument(context.Background(), fixtureUpload("lore.md"), []string{"lore"}, "worldbuilding", nil)
	require.NoError(t, err)
	return doc
}

func TestCreateDocumentPromotesToUploaded(t *testing.T) {
	svc := newTestService(t, nil)

	doc := mustCreate(t, svc)

	assert.Equal(t, document.StatusUploaded, doc.Status)
	assert.Equal(t, 100, doc.Progress)
	assert.Equal(t, 1, doc.CurrentVersion)
	require.NotNil(t, doc.ValidationResult)
	assert.True(t, doc.ValidationResult.Valid)

	exists, err := svc.storage.Exists(context.Background(), doc.Path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateDocumentRejectsUnsupportedType(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.CreateDocument(context.Background(), fixtureUpload("malware.exe"), nil, "", nil)
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCreateDocumentRejectsTinyFiles(t *testing.T) {
	svc := newTestService(t, nil)

	body := []byte("too small")
	upload := Upload{Name: "tiny.md", Type: "text/markdown", Size: int64(len(body)), Reader: bytes.NewReader(body)}

	_, err := svc.CreateDocument(context.Background(), upload, nil, "", nil)
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCreateDocumentRejectsUnknownMetadataKeys(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.CreateDocument(context.Background(), fixtureUpload("lore.md"), nil, "", map[string]interface{}{
		"title":  "ok",
		"rogue":  "nope",
		"sneaky": true,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	bogus := "archived"
	_, err := svc.Update(doc.ID, UpdateRequest{Status: &bogus})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestProgressPromotionRules(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	// back into uploading to observe the promotion
	uploading := document.StatusUploading
	_, err := svc.Update(doc.ID, UpdateRequest{Status: &uploading, Progress: intPtr(10)})
	require.NoError(t, err)

	updated, err := svc.Update(doc.ID, UpdateRequest{Progress: intPtr(100)})
	require.NoError(t, err)
	assert.Equal(t, document.StatusUploaded, updated.Status)

	// explicit status wins over the promotion
	processing := document.StatusProcessing
	updated, err = svc.Update(doc.ID, UpdateRequest{Status: &processing, Progress: intPtr(100)})
	require.NoError(t, err)
	assert.Equal(t, document.StatusProcessing, updated.Status)

	// progress 100 leaves non-uploading statuses alone
	updated, err = svc.Update(doc.ID, UpdateRequest{Progress: intPtr(100)})
	require.NoError(t, err)
	assert.Equal(t, document.StatusProcessing, updated.Status)
}

func TestProgressClamped(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	updated, err := svc.Update(doc.ID, UpdateRequest{Progress: intPtr(250)})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.Progress)

	updated, err = svc.Update(doc.ID, UpdateRequest{Progress: intPtr(-5)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Progress)
}

func TestUpdateMetadataMergesAndFilters(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	updated, err := svc.UpdateMetadata(doc.ID, map[string]interface{}{"title": "The Saga", "author": "Anon"})
	require.NoError(t, err)
	assert.Equal(t, "The Saga", updated.Metadata["title"])

	updated, err = svc.UpdateMetadata(doc.ID, map[string]interface{}{"author": "Someone"})
	require.NoError(t, err)
	assert.Equal(t, "The Saga", updated.Metadata["title"])
	assert.Equal(t, "Someone", updated.Metadata["author"])

	_, err = svc.UpdateMetadata(doc.ID, map[string]interface{}{"favorite_color": "green"})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)
	assert.False(t, doc.IsFavorite)

	updated, err := svc.ToggleFavorite(doc.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsFavorite)

	updated, err = svc.ToggleFavorite(doc.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsFavorite)
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	require.NoError(t, svc.Delete(context.Background(), doc.ID))

	_, err := svc.Get(doc.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))

	exists, err := svc.storage.Exists(context.Background(), doc.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	err = svc.Delete(context.Background(), doc.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestDeleteEncryptedRemovesSidecar(t *testing.T) {
	svc := newTestService(t, newTestEncryptor(t, AlgorithmAESGCM))
	doc := mustCreate(t, svc)
	require.True(t, doc.IsEncrypted)

	exists, err := svc.storage.Exists(context.Background(), SidecarKey(doc.Path))
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, svc.Delete(context.Background(), doc.ID))

	exists, err = svc.storage.Exists(context.Background(), SidecarKey(doc.Path))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBatchDeleteToleratesUnknown(t *testing.T) {
	svc := newTestService(t, nil)
	a := mustCreate(t, svc)
	b := mustCreate(t, svc)

	removed, err := svc.BatchDelete(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
}

func TestBatchUpdateTags(t *testing.T) {
	svc := newTestService(t, nil)
	a := mustCreate(t, svc)
	b := mustCreate(t, svc)

	// add unions without duplicates
	docs, err := svc.BatchUpdateTags([]uuid.UUID{a.ID, b.ID}, []string{"lore", "epic"}, TagOpAdd)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, document.StringList{"lore", "epic"}, doc.Tags)
	}

	// remove filters, never returning nil
	docs, err = svc.BatchUpdateTags([]uuid.UUID{a.ID}, []string{"lore", "epic"}, TagOpRemove)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotNil(t, docs[0].Tags)
	assert.Empty(t, docs[0].Tags)

	// set replaces wholesale
	docs, err = svc.BatchUpdateTags([]uuid.UUID{b.ID}, []string{"canon"}, TagOpSet)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, document.StringList{"canon"}, docs[0].Tags)

	// unknown ids are skipped, not errors
	docs, err = svc.BatchUpdateTags([]uuid.UUID{uuid.New()}, []string{"x"}, TagOpAdd)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = svc.BatchUpdateTags([]uuid.UUID{a.ID}, []string{"x"}, "merge")
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestGetStatusWithoutCache(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	status, err := svc.GetStatus(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusUploaded, status.Status)
	assert.Equal(t, 100, status.Progress)

	_, err = svc.GetStatus(context.Background(), uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestProcessResetsProgress(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	updated, err := svc.Process(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusProcessing, updated.Status)
	assert.Equal(t, 0, updated.Progress)
}

func TestDownloadPlain(t *testing.T) {
	svc := newTestService(t, nil)
	doc := mustCreate(t, svc)

	reader, meta, err := svc.Download(context.Background(), doc.ID)
	require.NoError(t, err)
	defer reader.Close()

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, fixtureBody(), body)
	assert.Equal(t, doc.ID, meta.ID)
}

func TestDownloadEncrypted(t *testing.T) {
	for _, algorithm := range []string{AlgorithmAESGCM, AlgorithmChaCha20} {
		t.Run(algorithm, func(t *testing.T) {
			svc := newTestService(t, newTestEncryptor(t, algorithm))
			doc := mustCreate(t, svc)
			require.True(t, doc.IsEncrypted)

			// stored bytes must not be the plaintext
			raw, err := svc.storage.Open(context.Background(), doc.Path)
			require.NoError(t, err)
			sealed, err := io.ReadAll(raw)
			raw.Close()
			require.NoError(t, err)
			assert.NotEqual(t, fixtureBody(), sealed)

			reader, _, err := svc.Download(context.Background(), doc.ID)
			require.NoError(t, err)
			defer reader.Close()

			body, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, fixtureBody(), body)
		})
	}
}
