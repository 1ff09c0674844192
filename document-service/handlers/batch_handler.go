package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"loresmith-backend/document-service/services"
	"loresmith-backend/shared/utils/apierror"
	"loresmith-backend/shared/utils/response"
)

// BatchHandler serves the bulk document operations
type BatchHandler struct {
	svc *services.DocumentService
}

func NewBatchHandler(svc *services.DocumentService) *BatchHandler {
	return &BatchHandler{svc: svc}
}

func parseIDList(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, apierror.Validation("ids must not be empty")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, apierror.Validation("invalid document ID format: " + s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type batchDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// BatchDelete deletes several documents in one call
// @Summary Batch delete documents
// @Description Deletes each listed document. Missing IDs are skipped; the response reports how many rows were removed.
// @Tags batch
// @Accept json
// @Produce json
// @Param request body batchDeleteRequest true "Document IDs to delete"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Deletion summary"
// @Failure 400 {object} map[string]interface{} "Invalid request data"
// @Router /documents/batch/delete [post]
func (h *BatchHandler) BatchDelete(ctx *gin.Context) {
	var req batchDeleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, apierror.Validation(err.Error()))
		return
	}

	ids, err := parseIDList(req.IDs)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	deleted, err := h.svc.BatchDelete(ctx.Request.Context(), ids)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, gin.H{
		"deleted":   deleted,
		"requested": len(ids),
	})
}

type batchFavoriteRequest struct {
	IDs        []string `json:"ids" binding:"required"`
	IsFavorite *bool    `json:"is_favorite" binding:"required"`
}

// BatchFavorite sets the favorite flag on several documents
// @Summary Batch set favorite flag
// @Tags batch
// @Accept json
// @Produce json
// @Param request body batchFavoriteRequest true "Document IDs and target favorite value"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Update summary"
// @Failure 400 {object} map[string]interface{} "Invalid request data"
// @Router /documents/batch/favorite [post]
func (h *BatchHandler) BatchFavorite(ctx *gin.Context) {
	var req batchFavoriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, apierror.Validation(err.Error()))
		return
	}

	ids, err := parseIDList(req.IDs)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	updated, err := h.svc.BatchSetFavorites(ids, *req.IsFavorite)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, gin.H{
		"updated":   updated,
		"requested": len(ids),
	})
}

type batchTagsRequest struct {
	IDs       []string `json:"ids" binding:"required"`
	Tags      []string `json:"tags" binding:"required"`
	Operation string   `json:"operation" binding:"required"`
}

// BatchTags applies a tag operation to several documents
// @Summary Batch update tags
// @Description Operation is one of add, remove or set. Unknown IDs are skipped; updated documents are returned.
// @Tags batch
// @Accept json
// @Produce json
// @Param request body batchTagsRequest true "Document IDs, tags and operation"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Updated documents"
// @Failure 400 {object} map[string]interface{} "Invalid request data"
// @Router /documents/batch/tags [post]
func (h *BatchHandler) BatchTags(ctx *gin.Context) {
	var req batchTagsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, apierror.Validation(err.Error()))
		return
	}

	ids, err := parseIDList(req.IDs)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	docs, err := h.svc.BatchUpdateTags(ids, req.Tags, req.Operation)
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Data(ctx, http.StatusOK, gin.H{
		"documents": docs,
		"updated":   len(docs),
		"requested": len(ids),
	})
}
