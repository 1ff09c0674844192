package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loresmith-backend/document-service/services"
	"loresmith-backend/shared/utils/apierror"
	"loresmith-backend/shared/utils/query"
	"loresmith-backend/shared/utils/response"
)

// DocumentHandler translates HTTP requests into document service calls
type DocumentHandler struct {
	svc           *services.DocumentService
	maxUploadSize int64
}

func NewDocumentHandler(svc *services.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxUploadSize: maxUploadSize}
}

func parseID(ctx *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		response.Error(ctx, apierror.Validation("invalid document ID format"))
		return uuid.Nil, false
	}
	return id, true
}

// ListDocuments lists documents with filters and pagination
// @Summary List documents
// @Description Retrieve a paginated document list with optional status/category/tag/favorite filters
// @Tags documents
// @Accept json
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param status query string false "Filter by lifecycle status"
// @Param category query string false "Filter by category"
// @Param tag query string false "Filter by tag"
// @Param favorite query bool false "Filter by favorite flag"
// @Param search query string false "Match against document name"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Paginated document list"
// @Failure 500 {object} map[string]interface{} "Server error"
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(ctx *gin.Context) {
	params := query.ParseListParams(ctx)

	docs, total, err := h.svc.List(params)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.List(ctx, http.StatusOK, docs, params.Page, params.Limit, total)
}

// GetDocument gets a single document
// @Summary Get document by ID
// @Tags documents
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Document details"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	doc, err := h.svc.Get(id)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, doc)
}

// UploadDocument uploads a new document
// @Summary Upload a new document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file to upload"
// @Param tags formData string false "Comma-separated tags"
// @Param category formData string false "Category label"
// @Param metadata formData string false "JSON object with document metadata"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{} "Document uploaded successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request data"
// @Failure 500 {object} map[string]interface{} "Server error"
// @Router /documents [post]
func (h *DocumentHandler) UploadDocument(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		response.Error(ctx, apierror.Validation("file is required"))
		return
	}
	defer file.Close()

	if header.Size == 0 {
		response.Error(ctx, apierror.Validation("file is empty"))
		return
	}
	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		response.Error(ctx, apierror.Validation(fmt.Sprintf("file size exceeds %d byte limit", h.maxUploadSize)))
		return
	}

	var tags []string
	if raw := ctx.PostForm("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}

	var metadata map[string]interface{}
	if raw := ctx.PostForm("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			response.Error(ctx, apierror.Validation("invalid metadata format"))
			return
		}
	}

	upload := services.Upload{
		Name:   header.Filename,
		Type:   header.Header.Get("Content-Type"),
		Size:   header.Size,
		Reader: file,
	}

	doc, err := h.svc.CreateDocument(ctx.Request.Context(), upload, tags, ctx.PostForm("category"), metadata)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusCreated, doc)
}

type updateDocumentRequest struct {
	Name     *string  `json:"name"`
	Type     *string  `json:"type"`
	Category *string  `json:"category"`
	Status   *string  `json:"status"`
	Progress *int     `json:"progress"`
	Tags     []string `json:"tags"`
}

// UpdateDocument updates basic document fields
// @Summary Update document fields
// @Description Partial update of name/type/category/status/progress/tags. Progress 100 promotes status uploading to uploaded.
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Param request body updateDocumentRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Updated document"
// @Failure 400 {object} map[string]interface{} "Invalid request data"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id} [patch]
func (h *DocumentHandler) UpdateDocument(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req updateDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, apierror.Validation(err.Error()))
		return
	}

	doc, err := h.svc.Update(id, services.UpdateRequest{
		Name:     req.Name,
		Type:     req.Type,
		Category: req.Category,
		Status:   req.Status,
		Progress: req.Progress,
		Tags:     req.Tags,
	})
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, doc)
}

// UpdateMetadata merges metadata keys into the document
// @Summary Merge document metadata
// @Description Shallow-merges recognized keys into the metadata bag; unrecognized keys are rejected
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Param request body map[string]interface{} true "Metadata keys to merge"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Updated document"
// @Failure 400 {object} map[string]interface{} "Unrecognized metadata keys"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id}/metadata [patch]
func (h *DocumentHandler) UpdateMetadata(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var patch map[string]interface{}
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		response.Error(ctx, apierror.Validation(err.Error()))
		return
	}

	doc, err := h.svc.UpdateMetadata(id, patch)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, doc)
}

// DeleteDocument deletes a document, its versions and its files
// @Summary Delete a document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Document deleted successfully"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), id); err != nil {
		response.Error(ctx, err)
		return
	}

	response.Message(ctx, http.StatusOK, "Document deleted successfully")
}

// ToggleFavorite flips the favorite flag
// @Summary Toggle document favorite flag
// @Tags documents
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Updated document"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id}/favorite [post]
func (h *DocumentHandler) ToggleFavorite(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	doc, err := h.svc.ToggleFavorite(id)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, doc)
}

// ProcessDocument hands the document to the extraction pipeline
// @Summary Trigger document processing
// @Tags documents
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Security BearerAuth
// @Success 202 {object} map[string]interface{} "Processing started"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id}/process [post]
func (h *DocumentHandler) ProcessDocument(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	doc, err := h.svc.Process(id)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusAccepted, doc)
}

// GetDocumentStatus returns the status/progress pair
// @Summary Get document status
// @Tags documents
// @Produce json
// @Param id path string true "Document ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Status and progress"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id}/status [get]
func (h *DocumentHandler) GetDocumentStatus(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	status, err := h.svc.GetStatus(ctx.Request.Context(), id)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, status)
}

// DownloadDocument streams the stored file
// @Summary Download document file
// @Tags documents
// @Produce application/octet-stream
// @Param id path string true "Document ID" format(uuid)
// @Security BearerAuth
// @Success 200 {file} file "Document file content"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) DownloadDocument(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	reader, doc, err := h.svc.Download(ctx.Request.Context(), id)
	if err != nil {
		response.Error(ctx, err)
		return
	}
	defer reader.Close()

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	ctx.DataFromReader(http.StatusOK, doc.Size, doc.Type, reader, nil)
}

// GetValidationRules describes the upload validation configuration
// @Summary Get document validation rules
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{} "Validation rules"
// @Router /documents/validation/rules [get]
func (h *DocumentHandler) GetValidationRules(ctx *gin.Context) {
	response.Data(ctx, http.StatusOK, h.svc.ValidationRules())
}
