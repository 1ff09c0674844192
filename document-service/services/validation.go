package services

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"loresmith-backend/shared/database/models/document"
)

// MinDocumentSize is the smallest upload accepted, in bytes
const MinDocumentSize = 1024

// SupportedTypes maps accepted extensions to their MIME types
var SupportedTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
}

// ValidationRules describes the validator's configuration for clients
type ValidationRules struct {
	SupportedTypes []string `json:"supported_types"`
	MinSizeBytes   int64    `json:"min_size_bytes"`
	MaxSizeBytes   int64    `json:"max_size_bytes"`
}

// DocumentValidator scores uploads for size, type and content quality
type DocumentValidator struct {
	maxSize int64
}

func NewDocumentValidator(maxSize int64) *DocumentValidator {
	return &DocumentValidator{maxSize: maxSize}
}

// Rules returns the active validation configuration
func (v *DocumentValidator) Rules() ValidationRules {
	types := make([]string, 0, len(SupportedTypes))
	for _, mime := range SupportedTypes {
		types = append(types, mime)
	}
	return ValidationRules{
		SupportedTypes: types,
		MinSizeBytes:   MinDocumentSize,
		MaxSizeBytes:   v.maxSize,
	}
}

// Validate inspects an upload and produces the structured judgment stored on
// the document: validity flag, 0-100 score, issues, per-dimension scores.
func (v *DocumentValidator) Validate(name string, size int64, head []byte) *document.ValidationResult {
	result := &document.ValidationResult{
		Valid: true,
		Dimensions: map[string]int{
			"size":    100,
			"type":    100,
			"content": 100,
		},
	}

	if size < MinDocumentSize {
		result.Dimensions["size"] = 0
		result.Issues = append(result.Issues, document.ValidationIssue{
			Dimension: "size",
			Severity:  "error",
			Message:   "file is below the minimum size of 1KB",
		})
	} else if v.maxSize > 0 && size > v.maxSize {
		result.Dimensions["size"] = 0
		result.Issues = append(result.Issues, document.ValidationIssue{
			Dimension: "size",
			Severity:  "error",
			Message:   "file exceeds the maximum allowed size",
		})
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := SupportedTypes[ext]; !ok {
		result.Dimensions["type"] = 0
		result.Issues = append(result.Issues, document.ValidationIssue{
			Dimension: "type",
			Severity:  "error",
			Message:   "unsupported file type " + ext,
		})
	}

	// Text formats must carry actual text in their first bytes
	switch ext {
	case ".txt", ".md", ".html":
		if len(head) == 0 || strings.TrimSpace(string(head)) == "" {
			result.Dimensions["content"] = 0
			result.Issues = append(result.Issues, document.ValidationIssue{
				Dimension: "content",
				Severity:  "error",
				Message:   "document appears to have no text content",
			})
		} else if !utf8.Valid(head) {
			result.Dimensions["content"] = 40
			result.Issues = append(result.Issues, document.ValidationIssue{
				Dimension: "content",
				Severity:  "warning",
				Message:   "document contains invalid UTF-8 sequences",
			})
		}
	}

	total := 0
	for _, score := range result.Dimensions {
		total += score
	}
	result.Score = total / len(result.Dimensions)

	for _, issue := range result.Issues {
		if issue.Severity == "error" {
			result.Valid = false
			break
		}
	}

	return result
}
