package store

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loresmith-backend/shared/database/models/document"
	"loresmith-backend/shared/utils/apierror"
)

// ListVersions returns all versions of a document, newest number first
func (s *DocumentStore) ListVersions(documentID uuid.UUID) ([]document.DocumentVersion, error) {
	var versions []document.DocumentVersion
	err := s.db.Where("document_id = ?", documentID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, apierror.Storage(err)
	}
	return versions, nil
}

// GetVersionByID returns one version scoped to its owning document
func (s *DocumentStore) GetVersionByID(documentID, versionID uuid.UUID) (*document.DocumentVersion, bool, error) {
	var version document.DocumentVersion
	err := s.db.First(&version, "id = ? AND document_id = ?", versionID, documentID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, apierror.Storage(err)
	}
	return &version, true, nil
}

// CreateVersion inserts a version row. A racing duplicate
// (document_id, version_number) pair is rejected by the uniqueness
// constraint and surfaced as a conflict.
func (s *DocumentStore) CreateVersion(version *document.DocumentVersion) error {
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}

	if err := s.db.Create(version).Error; err != nil {
		if isUniqueViolation(err) {
			return apierror.Conflict("version number already exists for this document")
		}
		return apierror.Storage(err)
	}
	return nil
}

// DeleteVersion removes a single version row
func (s *DocumentStore) DeleteVersion(documentID, versionID uuid.UUID) (bool, error) {
	result := s.db.Where("id = ? AND document_id = ?", versionID, documentID).
		Delete(&document.DocumentVersion{})
	if result.Error != nil {
		return false, apierror.Storage(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// LatestVersionNumber returns the highest version number ever issued for a
// document, or 0 when no versions exist, so callers compute next = latest + 1.
func (s *DocumentStore) LatestVersionNumber(documentID uuid.UUID) (int, error) {
	var latest int
	err := s.db.Model(&document.DocumentVersion{}).
		Where("document_id = ?", documentID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&latest).Error
	if err != nil {
		return 0, apierror.Storage(err)
	}
	return latest, nil
}

func isUniqueViolation(err error) bool {
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
