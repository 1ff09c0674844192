package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/google/uuid"

	"loresmith-backend/document-service/events"
	"loresmith-backend/document-service/store"
	"loresmith-backend/shared/database/models/document"
	"loresmith-backend/shared/utils/apierror"
	"loresmith-backend/shared/utils/cache"
	"loresmith-backend/shared/utils/query"
)

// AllowedMetadataKeys is the edge allow-list for the open metadata bag.
// Unknown keys are rejected at the service boundary instead of being trusted
// end to end.
var AllowedMetadataKeys = map[string]struct{}{
	"title":          {},
	"author":         {},
	"source":         {},
	"date":           {},
	"description":    {},
	"language":       {},
	"classification": {},
	"page_count":     {},
	"word_count":     {},
}

// Tag batch operations
const (
	TagOpAdd    = "add"
	TagOpRemove = "remove"
	TagOpSet    = "set"
)

// Upload carries an incoming file through the service layer
type Upload struct {
	Name   string
	Type   string
	Size   int64
	Reader io.Reader
}

// UpdateRequest is a partial document update; nil fields are left untouched
type UpdateRequest struct {
	Name     *string
	Type     *string
	Category *string
	Status   *string
	Progress *int
	Tags     []string
}

// DocumentService enforces the domain rules the store does not know about:
// lifecycle transitions, version numbering, metadata allow-listing and
// best-effort file cleanup.
type DocumentService struct {
	store     *store.DocumentStore
	storage   Storage
	validator *DocumentValidator
	encryptor *Encryptor
	cache     *cache.StatusCache
	hub       *events.Hub
}

func NewDocumentService(
	st *store.DocumentStore,
	storage Storage,
	validator *DocumentValidator,
	encryptor *Encryptor,
	statusCache *cache.StatusCache,
	hub *events.Hub,
) *DocumentService {
	return &DocumentService{
		store:     st,
		storage:   storage,
		validator: validator,
		encryptor: encryptor,
		cache:     statusCache,
		hub:       hub,
	}
}

// ValidationRules exposes the validator configuration
func (s *DocumentService) ValidationRules() ValidationRules {
	return s.validator.Rules()
}

// List returns a page of documents and the total count
func (s *DocumentService) List(params query.ListParams) ([]document.Document, int64, error) {
	return s.store.List(params)
}

// Get returns a single document or a not-found error
func (s *DocumentService) Get(id uuid.UUID) (*document.Document, error) {
	doc, found, err := s.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierror.NotFound("document not found")
	}
	return doc, nil
}

// CreateDocument validates, stores and registers an upload. The row is
// created in status uploading and promoted to uploaded once the file is
// fully persisted.
func (s *DocumentService) CreateDocument(ctx context.Context, upload Upload, tags []string, category string, metadata map[string]interface{}) (*document.Document, error) {
	if upload.Name == "" {
		return nil, apierror.Validation("file name is required")
	}
	if metadata != nil {
		if err := checkMetadataKeys(metadata); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return nil, apierror.Storage(err)
	}
	size := upload.Size
	if size == 0 {
		size = int64(len(data))
	}

	result := s.validator.Validate(upload.Name, size, head(data, 4096))
	if !result.Valid {
		details := make([]string, 0, len(result.Issues))
		for _, issue := range result.Issues {
			details = append(details, issue.Message)
		}
		return nil, apierror.Validation("document failed validation", details...)
	}

	doc := &document.Document{
		ID:               uuid.New(),
		Name:             upload.Name,
		Size:             size,
		Type:             upload.Type,
		Tags:             document.StringList(tags),
		Category:         category,
		Metadata:         document.JSONMap(metadata),
		ValidationResult: result,
	}
	doc.Path = objectKey(doc.ID, upload.Name)

	if s.encryptor != nil {
		sealed, nonce, err := s.encryptor.Seal(data)
		if err != nil {
			return nil, apierror.Storage(err)
		}
		doc.IsEncrypted = true
		doc.EncryptionMetadata = document.JSONMap{
			"algorithm": s.encryptor.Algorithm(),
			"nonce":     nonce,
		}
		sidecar := fmt.Sprintf(`{"algorithm":%q,"nonce":%q}`, s.encryptor.Algorithm(), nonce)
		if err := s.storage.Save(ctx, SidecarKey(doc.Path), bytes.NewReader([]byte(sidecar)), int64(len(sidecar))); err != nil {
			return nil, apierror.Storage(err)
		}
		data = sealed
	}

	if err := s.storage.Save(ctx, doc.Path, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, apierror.Storage(err)
	}

	if err := s.store.Create(doc); err != nil {
		// Row is the source of truth; clean the orphaned file up
		if removeErr := s.storage.Remove(ctx, doc.Path); removeErr != nil {
			log.Printf("Warning: failed to remove orphaned file %s: %v", doc.Path, removeErr)
		}
		return nil, err
	}

	// Fully persisted: report 100% which promotes uploading -> uploaded
	doc, err = s.applyUpdate(doc.ID, UpdateRequest{Progress: intPtr(100)})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.TypeDocumentCreated, doc.ID.String(), doc)
	return doc, nil
}

// Update applies a partial update to name/type/category/status/progress/tags.
// Setting progress to 100 auto-promotes status uploading -> uploaded unless a
// status was set explicitly in the same call; direct status overwrites are an
// intentional escape hatch for external processing collaborators.
func (s *DocumentService) Update(id uuid.UUID, req UpdateRequest) (*document.Document, error) {
	doc, err := s.applyUpdate(id, req)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(context.Background(), id.String())
	s.hub.Publish(events.TypeDocumentUpdated, id.String(), doc)
	return doc, nil
}

func (s *DocumentService) applyUpdate(id uuid.UUID, req UpdateRequest) (*document.Document, error) {
	current, found, err := s.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierror.NotFound("document not found")
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Type != nil {
		fields["type"] = *req.Type
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Tags != nil {
		fields["tags"] = document.StringList(req.Tags)
	}
	if req.Status != nil {
		if !document.ValidStatus(*req.Status) {
			return nil, apierror.Validation("unknown status " + *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.Progress != nil {
		progress := clampProgress(*req.Progress)
		fields["progress"] = progress
		if progress == 100 && req.Status == nil && current.Status == document.StatusUploading {
			fields["status"] = document.StatusUploaded
		}
	}

	doc, found, err := s.store.Update(id, fields)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierror.NotFound("document not found")
	}
	return doc, nil
}

// UpdateMetadata shallow-merges recognized keys into the metadata bag
func (s *DocumentService) UpdateMetadata(id uuid.UUID, patch map[string]interface{}) (*document.Document, error) {
	if err := checkMetadataKeys(patch); err != nil {
		return nil, err
	}

	doc, found, err := s.store.Update(id, map[string]interface{}{"metadata": patch})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierror.NotFound("document not found")
	}

	s.hub.Publish(events.TypeDocumentUpdated, id.String(), doc)
	return doc, nil
}

// ToggleFavorite flips the favorite flag
func (s *DocumentService) ToggleFavorite(id uuid.UUID) (*document.Document, error) {
	current, found, err := s.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierror.NotFound("document not found")
	}

	doc, _, err := s.store.Update(id, map[string]interface{}{"is_favorite": !current.IsFavorite})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document: best-effort file cleanup, then the rows. A
// missing or stuck file never makes the record un-deletable.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, found, err := s.store.GetByID(id)
	if err != nil {
		return err
	}
	if !found {
		return apierror.NotFound("document not found")
	}

	s.removeFiles(ctx, doc)

	removed, err := s.store.Delete(id)
	if err != nil {
		return err
	}
	if !removed {
		return apierror.NotFound("document not found")
	}

	s.cache.Invalidate(ctx, id.String())
	s.hub.Publish(events.TypeDocumentDeleted, id.String(), nil)
	return nil
}

// BatchDelete removes every listed document that exists, tolerating unknown
// ids, and returns the number removed.
func (s *DocumentService) BatchDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	for _, id := range ids {
		doc, found, err := s.store.GetByID(id)
		if err != nil {
			return 0, err
		}
		if found {
			s.removeFiles(ctx, doc)
		}
	}

	removed, err := s.store.BatchDelete(ids)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.cache.Invalidate(ctx, id.String())
		s.hub.Publish(events.TypeDocumentDeleted, id.String(), nil)
	}
	return removed, nil
}

// BatchSetFavorites marks or unmarks the listed documents as favorites
func (s *DocumentService) BatchSetFavorites(ids []uuid.UUID, isFavorite bool) (int64, error) {
	return s.store.BatchUpdateFavorites(ids, isFavorite)
}

// BatchUpdateTags applies a tag operation across the listed documents.
// add unions (deduplicated, order preserved), remove filters, set replaces.
// Documents outside the id set are untouched; unknown ids are skipped.
func (s *DocumentService) BatchUpdateTags(ids []uuid.UUID, tags []string, op string) ([]document.Document, error) {
	if op != TagOpAdd && op != TagOpRemove && op != TagOpSet {
		return nil, apierror.Validation("unknown tag operation " + op)
	}

	updated := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		doc, found, err := s.store.GetByID(id)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		var next document.StringList
		switch op {
		case TagOpAdd:
			next = doc.Tags
			for _, tag := range tags {
				if !next.Contains(tag) {
					next = append(next, tag)
				}
			}
		case TagOpRemove:
			drop := document.StringList(tags)
			for _, tag := range doc.Tags {
				if !drop.Contains(tag) {
					next = append(next, tag)
				}
			}
			if next == nil {
				next = document.StringList{}
			}
		case TagOpSet:
			next = document.StringList(tags)
		}

		doc, _, err = s.store.Update(id, map[string]interface{}{"tags": next})
		if err != nil {
			return nil, err
		}
		updated = append(updated, *doc)
	}

	return updated, nil
}

// GetStatus returns status/progress, served from the cache when warm
func (s *DocumentService) GetStatus(ctx context.Context, id uuid.UUID) (*cache.StatusPayload, error) {
	if payload, ok := s.cache.Get(ctx, id.String()); ok {
		return payload, nil
	}

	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	payload := cache.StatusPayload{Status: doc.Status, Progress: doc.Progress}
	s.cache.Set(ctx, id.String(), payload)
	return &payload, nil
}

// Process hands the document to the external extraction pipeline: status
// moves to processing and progress resets. The pipeline reports back through
// the update endpoint.
func (s *DocumentService) Process(id uuid.UUID) (*document.Document, error) {
	processing := document.StatusProcessing
	doc, err := s.applyUpdate(id, UpdateRequest{Status: &processing, Progress: intPtr(0)})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(context.Background(), id.String())
	s.hub.Publish(events.TypeProcessingStart, id.String(), nil)
	return doc, nil
}

// Download opens the stored file, transparently unsealing encrypted content
func (s *DocumentService) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *document.Document, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.storage.Open(ctx, doc.Path)
	if err != nil {
		return nil, nil, apierror.Storage(err)
	}

	if !doc.IsEncrypted {
		return reader, doc, nil
	}
	defer reader.Close()

	sealed, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, apierror.Storage(err)
	}
	nonce, _ := doc.EncryptionMetadata["nonce"].(string)
	// The sidecar travels with the file, so it wins over the row metadata
	// when the pointer has been restored to an older version.
	if rc, err := s.storage.Open(ctx, SidecarKey(doc.Path)); err == nil {
		var meta struct {
			Nonce string `json:"nonce"`
		}
		if data, err := io.ReadAll(rc); err == nil && json.Unmarshal(data, &meta) == nil && meta.Nonce != "" {
			nonce = meta.Nonce
		}
		rc.Close()
	}
	if s.encryptor == nil {
		return nil, nil, apierror.Storage(fmt.Errorf("document %s is encrypted but encryption is disabled", id))
	}
	plain, err := s.encryptor.Open(sealed, nonce)
	if err != nil {
		return nil, nil, apierror.Storage(err)
	}
	return io.NopCloser(bytes.NewReader(plain)), doc, nil
}

// removeFiles is the best-effort storage cleanup run before row deletion.
// Failures are logged, never propagated: the row is the source of truth.
func (s *DocumentService) removeFiles(ctx context.Context, doc *document.Document) {
	keys := map[string]struct{}{}
	if doc.Path != "" {
		keys[doc.Path] = struct{}{}
	}

	versions, err := s.store.ListVersions(doc.ID)
	if err == nil {
		for _, version := range versions {
			if version.Path != "" {
				keys[version.Path] = struct{}{}
			}
		}
	}

	if doc.IsEncrypted {
		var sidecars []string
		for key := range keys {
			sidecars = append(sidecars, SidecarKey(key))
		}
		for _, sidecar := range sidecars {
			keys[sidecar] = struct{}{}
		}
	}

	for key := range keys {
		if exists, err := s.storage.Exists(ctx, key); err != nil || !exists {
			continue
		}
		if err := s.storage.Remove(ctx, key); err != nil {
			log.Printf("Warning: failed to remove file %s: %v", key, err)
		}
	}
}

func objectKey(id uuid.UUID, name string) string {
	return path.Join("documents", id.String(), name)
}

func checkMetadataKeys(patch map[string]interface{}) error {
	var unknown []string
	for key := range patch {
		if _, ok := AllowedMetadataKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return apierror.Validation("unrecognized metadata keys", unknown...)
	}
	return nil
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}

func intPtr(v int) *int {
	return &v
}
