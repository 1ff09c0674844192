package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"

	"github.com/google/uuid"

	"loresmith-backend/document-service/events"
	"loresmith-backend/document-service/store"
	"loresmith-backend/shared/database/models/document"
	"loresmith-backend/shared/utils/apierror"
)

// ListVersions returns the version history plus the current pointer
func (s *DocumentService) ListVersions(id uuid.UUID) ([]document.DocumentVersion, int, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, 0, err
	}

	versions, err := s.store.ListVersions(id)
	if err != nil {
		return nil, 0, err
	}
	return versions, doc.CurrentVersion, nil
}

// CreateVersion snapshots the document as version latest+1 and moves the
// current_version pointer. The row insert and the pointer bump are one
// transaction: either both land or neither does. The optional file is
// written before the transaction and cleaned up if it rolls back.
func (s *DocumentService) CreateVersion(ctx context.Context, id uuid.UUID, upload *Upload, changes, createdBy string) (*document.DocumentVersion, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	versionID := uuid.New()
	fileSize := doc.Size
	filePath := doc.Path
	fileSaved := false
	var encryptionMeta document.JSONMap

	if upload != nil {
		data, err := io.ReadAll(upload.Reader)
		if err != nil {
			return nil, apierror.Storage(err)
		}
		fileSize = upload.Size
		if fileSize == 0 {
			fileSize = int64(len(data))
		}

		filePath = versionKey(id, versionID, upload.Name)

		if s.encryptor != nil {
			sealed, nonce, err := s.encryptor.Seal(data)
			if err != nil {
				return nil, apierror.Storage(err)
			}
			data = sealed
			encryptionMeta = document.JSONMap{
				"algorithm": s.encryptor.Algorithm(),
				"nonce":     nonce,
			}
			sidecar := fmt.Sprintf(`{"algorithm":%q,"nonce":%q}`, s.encryptor.Algorithm(), nonce)
			if err := s.storage.Save(ctx, SidecarKey(filePath), bytes.NewReader([]byte(sidecar)), int64(len(sidecar))); err != nil {
				return nil, apierror.Storage(err)
			}
		}

		if err := s.storage.Save(ctx, filePath, bytes.NewReader(data), int64(len(data))); err != nil {
			return nil, apierror.Storage(err)
		}
		fileSaved = true
	}

	version := &document.DocumentVersion{
		ID:         versionID,
		DocumentID: id,
		Changes:    changes,
		FileSize:   fileSize,
		Path:       filePath,
		CreatedBy:  createdBy,
	}

	err = s.store.WithTx(func(tx *store.DocumentStore) error {
		latest, err := tx.LatestVersionNumber(id)
		if err != nil {
			return err
		}
		version.VersionNumber = latest + 1

		if err := tx.CreateVersion(version); err != nil {
			return err
		}

		fields := map[string]interface{}{"current_version": version.VersionNumber}
		if upload != nil {
			fields["size"] = fileSize
			fields["path"] = filePath
			if encryptionMeta != nil {
				fields["is_encrypted"] = true
				fields["encryption_metadata"] = encryptionMeta
			}
		}
		_, found, err := tx.Update(id, fields)
		if err != nil {
			return err
		}
		if !found {
			return apierror.NotFound("document not found")
		}
		return nil
	})
	if err != nil {
		if fileSaved {
			if removeErr := s.storage.Remove(ctx, filePath); removeErr != nil {
				log.Printf("Warning: failed to remove orphaned version file %s: %v", filePath, removeErr)
			}
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, id.String())
	s.hub.Publish(events.TypeVersionCreated, id.String(), version)
	return version, nil
}

// RestoreVersion moves the current_version pointer to an existing version.
// Later versions are neither deleted nor renumbered: numbering is
// append-only, so a create after restoring past v5 yields v6, never a reused
// number.
func (s *DocumentService) RestoreVersion(id, versionID uuid.UUID) (*document.Document, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	version, found, err := s.store.GetVersionByID(id, versionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierror.NotFound("version not found")
	}

	fields := map[string]interface{}{"current_version": version.VersionNumber}
	if version.Path != "" {
		fields["path"] = version.Path
		fields["size"] = version.FileSize
	}

	doc, found, err := s.store.Update(id, fields)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierror.NotFound("document not found")
	}

	s.cache.Invalidate(context.Background(), id.String())
	s.hub.Publish(events.TypeVersionRestored, id.String(), version)
	return doc, nil
}

// DeleteVersion removes a single version row and, best-effort, its file
// unless the document pointer still uses it.
func (s *DocumentService) DeleteVersion(ctx context.Context, id, versionID uuid.UUID) error {
	doc, err := s.Get(id)
	if err != nil {
		return err
	}

	version, found, err := s.store.GetVersionByID(id, versionID)
	if err != nil {
		return err
	}
	if !found {
		return apierror.NotFound("version not found")
	}

	removed, err := s.store.DeleteVersion(id, versionID)
	if err != nil {
		return err
	}
	if !removed {
		return apierror.NotFound("version not found")
	}

	if version.Path != "" && version.Path != doc.Path {
		if exists, err := s.storage.Exists(ctx, version.Path); err == nil && exists {
			if err := s.storage.Remove(ctx, version.Path); err != nil {
				log.Printf("Warning: failed to remove version file %s: %v", version.Path, err)
			}
		}
	}

	return nil
}

func versionKey(docID, versionID uuid.UUID, name string) string {
	return path.Join("documents", docID.String(), "versions", versionID.String(), name)
}
