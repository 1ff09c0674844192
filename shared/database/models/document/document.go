package document

import (
	"time"

	"github.com/google/uuid"
)

// Document lifecycle statuses
const (
	StatusUploading  = "uploading"
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusError      = "error"
	StatusComplete   = "complete"
)

// ValidStatus reports whether s is a known lifecycle status
func ValidStatus(s string) bool {
	switch s {
	case StatusUploading, StatusUploaded, StatusProcessing, StatusError, StatusComplete:
		return true
	}
	return false
}

// Document represents a tracked uploaded file plus its metadata and lifecycle state
type Document struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	// File information
	Name string `gorm:"not null" json:"name"`
	Size int64  `gorm:"not null" json:"size"`
	Type string `json:"type"`
	Path string `json:"path"`

	// Lifecycle
	Status   string `gorm:"default:'uploading'" json:"status"`
	Progress int    `gorm:"default:0" json:"progress"`

	// Organization
	Tags       StringList `gorm:"type:text" json:"tags"`
	Category   string     `json:"category"`
	IsFavorite bool       `gorm:"default:false" json:"is_favorite"`

	// Encryption
	IsEncrypted        bool    `gorm:"default:false" json:"is_encrypted"`
	EncryptionMetadata JSONMap `gorm:"type:text" json:"encryption_metadata,omitempty"`

	// Open metadata bag, shallow-merged on update
	Metadata JSONMap `gorm:"type:text" json:"metadata"`

	// Validation judgment, set once the file has been inspected
	ValidationResult *ValidationResult `gorm:"type:text" json:"validation_result,omitempty"`

	// Version pointer; always equals the version_number of the most recently
	// created or restored-to version
	CurrentVersion int `gorm:"default:1" json:"current_version"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentVersion represents an immutable snapshot of a document,
// numbered sequentially per document
type DocumentVersion struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	DocumentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_document_version" json:"document_id"`
	Document      Document  `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_document_version" json:"version_number"`
	Changes       string    `gorm:"type:text" json:"changes"`
	FileSize      int64     `json:"file_size"`
	Path          string    `json:"path"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}
