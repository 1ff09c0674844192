package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loresmith-backend/document-service/services"
	"loresmith-backend/shared/utils/apierror"
	"loresmith-backend/shared/utils/response"
)

// VersionHandler serves the version history endpoints
type VersionHandler struct {
	svc           *services.DocumentService
	maxUploadSize int64
}

func NewVersionHandler(svc *services.DocumentService, maxUploadSize int64) *VersionHandler {
	return &VersionHandler{svc: svc, maxUploadSize: maxUploadSize}
}

func (h *VersionHandler) parseVersionID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("versionId"))
	if err != nil {
		response.Error(ctx, apierror.Validation("invalid version ID format"))
		return uuid.Nil, false
	}
	return id, true
}

// GetVersions lists the version history of a document
// @Summary List document versions
// @Description Versions are returned newest first along with the current version pointer
// @Tags versions
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Version history"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id}/versions [get]
func (h *VersionHandler) GetVersions(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	versions, current, err := h.svc.ListVersions(id)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, gin.H{
		"versions":        versions,
		"current_version": current,
	})
}

// CreateVersion snapshots the document as a new version
// @Summary Create a document version
// @Description Creates version max+1 and moves the current pointer. An optional file replaces the document content.
// @Tags versions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Param file formData file false "Replacement file content"
// @Param changes formData string false "Change description"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{} "Created version"
// @Failure 400 {object} map[string]interface{} "Invalid request data"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id}/versions [post]
func (h *VersionHandler) CreateVersion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var upload *services.Upload
	file, header, err := ctx.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
			response.Error(ctx, apierror.Validation("file size exceeds upload limit"))
			return
		}
		upload = &services.Upload{
			Name:   header.Filename,
			Type:   header.Header.Get("Content-Type"),
			Size:   header.Size,
			Reader: file,
		}
	}

	createdBy := ctx.GetString("userEmail")
	if createdBy == "" {
		createdBy = "system"
	}

	version, err := h.svc.CreateVersion(ctx.Request.Context(), id, upload, ctx.PostForm("changes"), createdBy)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusCreated, version)
}

// RestoreVersion moves the current pointer to an older version
// @Summary Restore a document version
// @Description Moves the current version pointer. Later versions are kept and numbering stays append-only.
// @Tags versions
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Param versionId path string true "Version ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Updated document"
// @Failure 404 {object} map[string]interface{} "Document or version not found"
// @Router /documents/{id}/versions/{versionId}/restore [post]
func (h *VersionHandler) RestoreVersion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	versionID, ok := h.parseVersionID(ctx)
	if !ok {
		return
	}

	doc, err := h.svc.RestoreVersion(id, versionID)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, doc)
}

// DeleteVersion removes a single version
// @Summary Delete a document version
// @Tags versions
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Param versionId path string true "Version ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Version deleted successfully"
// @Failure 404 {object} map[string]interface{} "Document or version not found"
// @Router /documents/{id}/versions/{versionId} [delete]
func (h *VersionHandler) DeleteVersion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	versionID, ok := h.parseVersionID(ctx)
	if !ok {
		return
	}

	if err := h.svc.DeleteVersion(ctx.Request.Context(), id, versionID); err != nil {
		response.Error(ctx, err)
		return
	}

	response.Message(ctx, http.StatusOK, "Version deleted successfully")
}
