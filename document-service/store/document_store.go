package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loresmith-backend/shared/database/models/document"
	"loresmith-backend/shared/utils/apierror"
	"loresmith-backend/shared/utils/query"
)

// DocumentStore provides atomic CRUD primitives over documents and their
// versions. The gorm handle is injected; the store never reaches for global
// connection state.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore wraps an open database handle
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// WithTx runs fn against a store bound to a transaction; any error rolls the
// whole unit back.
func (s *DocumentStore) WithTx(fn func(tx *DocumentStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentStore{db: tx})
	})
}

// List returns a page of documents plus the unpaginated total. Default order
// is upload time descending; id breaks ties so pages are stable.
func (s *DocumentStore) List(params query.ListParams) ([]document.Document, int64, error) {
	q := s.db.Model(&document.Document{})

	if params.Status != "" {
		q = q.Where("status = ?", params.Status)
	}
	if params.Category != "" {
		q = q.Where("category = ?", params.Category)
	}
	if params.Favorite != nil {
		q = q.Where("is_favorite = ?", *params.Favorite)
	}
	if params.Tag != "" {
		// Tags are stored as a JSON array in a text column; match the quoted
		// element to avoid substring collisions between tag names.
		q = q.Where("tags LIKE ?", fmt.Sprintf(`%%"%s"%%`, strings.ReplaceAll(params.Tag, `"`, "")))
	}
	if params.Search != "" {
		q = q.Where("name LIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apierror.Storage(err)
	}

	var docs []document.Document
	err := q.Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&docs).Error
	if err != nil {
		return nil, 0, apierror.Storage(err)
	}

	return docs, total, nil
}

// GetByID returns the document and whether it exists. Absence is a sentinel,
// never an error.
func (s *DocumentStore) GetByID(id uuid.UUID) (*document.Document, bool, error) {
	var doc document.Document
	err := s.db.First(&doc, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, apierror.Storage(err)
	}
	return &doc, true, nil
}

// Create persists a new document. Missing fields get their lifecycle
// defaults: status uploading, progress 0, current_version 1.
func (s *DocumentStore) Create(doc *document.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = document.StatusUploading
	}
	if doc.CurrentVersion == 0 {
		doc.CurrentVersion = 1
	}
	if doc.Tags == nil {
		doc.Tags = document.StringList{}
	}
	if doc.Metadata == nil {
		doc.Metadata = document.JSONMap{}
	}

	if err := s.db.Create(doc).Error; err != nil {
		return apierror.Storage(err)
	}
	return nil
}

// Update applies a partial update. Scalar fields replace; the metadata map is
// shallow-merged; tags replace wholesale (tag-merge semantics live in the
// service layer). Returns the merged document, or found=false when absent.
func (s *DocumentStore) Update(id uuid.UUID, fields map[string]interface{}) (*document.Document, bool, error) {
	doc, found, err := s.GetByID(id)
	if err != nil || !found {
		return nil, found, err
	}

	if patch, ok := fields["metadata"]; ok {
		merged := document.JSONMap{}
		for k, v := range doc.Metadata {
			merged[k] = v
		}
		if patchMap, ok := patch.(document.JSONMap); ok {
			for k, v := range patchMap {
				merged[k] = v
			}
		} else if patchMap, ok := patch.(map[string]interface{}); ok {
			for k, v := range patchMap {
				merged[k] = v
			}
		}
		fields["metadata"] = merged
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.db.Model(doc).Updates(fields).Error; err != nil {
			return nil, true, apierror.Storage(err)
		}
	}

	if err := s.db.First(doc, "id = ?", id).Error; err != nil {
		return nil, true, apierror.Storage(err)
	}
	return doc, true, nil
}

// Delete removes a document row and its version rows. Returns whether a
// document row was actually removed.
func (s *DocumentStore) Delete(id uuid.UUID) (bool, error) {
	removed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&document.DocumentVersion{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&document.Document{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, apierror.Storage(err)
	}
	return removed, nil
}

// BatchDelete removes every listed document that exists; unknown ids are
// tolerated and simply do not count.
func (s *DocumentStore) BatchDelete(ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id IN ?", ids).Delete(&document.DocumentVersion{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&document.Document{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, apierror.Storage(err)
	}
	return removed, nil
}

// BatchUpdateFavorites sets is_favorite on every listed document that exists
func (s *DocumentStore) BatchUpdateFavorites(ids []uuid.UUID, isFavorite bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.Model(&document.Document{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"is_favorite": isFavorite, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, apierror.Storage(result.Error)
	}
	return result.RowsAffected, nil
}
