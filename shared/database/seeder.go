package database

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loresmith-backend/shared/database/models/document"
)

// SeedDatabase inserts one sample document and version when the documents
// table is empty, so a fresh install has something to render.
func SeedDatabase(db *gorm.DB) error {
	log.Println("Checking database seed data...")

	var count int64
	if err := db.Model(&document.Document{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Database seed data is up to date")
		return nil
	}

	doc := document.Document{
		ID:       uuid.New(),
		Name:     "welcome.md",
		Size:     2048,
		Type:     "text/markdown",
		Path:     "samples/welcome.md",
		Status:   document.StatusComplete,
		Progress: 100,
		Tags:     document.StringList{"sample", "getting-started"},
		Category: "guides",
		Metadata: document.JSONMap{
			"title":  "Welcome to LoreSmith",
			"author": "LoreSmith",
		},
		ValidationResult: &document.ValidationResult{
			Valid: true,
			Score: 100,
			Dimensions: map[string]int{
				"size":    100,
				"type":    100,
				"content": 100,
			},
		},
		CurrentVersion: 1,
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}

		version := document.DocumentVersion{
			ID:            uuid.New(),
			DocumentID:    doc.ID,
			VersionNumber: 1,
			Changes:       "Initial version",
			FileSize:      doc.Size,
			Path:          doc.Path,
			CreatedBy:     "system",
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		log.Println("Seeded sample document")
		return nil
	})
}
