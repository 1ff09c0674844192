package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loresmith-backend/document-service/events"
	"loresmith-backend/document-service/middleware"
	"loresmith-backend/document-service/services"
	"loresmith-backend/shared/config"
)

// RegisterRoutes wires all document endpoints onto the router. It is shared
// between main and the handler tests so both exercise the same routing table.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, svc *services.DocumentService, hub *events.Hub) {
	docHandler := NewDocumentHandler(svc, cfg.MaxUploadSizeBytes())
	versionHandler := NewVersionHandler(svc, cfg.MaxUploadSizeBytes())
	batchHandler := NewBatchHandler(svc)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))

	// Document routes
	api.GET("/documents", docHandler.ListDocuments)
	api.POST("/documents", docHandler.UploadDocument)
	api.GET("/documents/validation/rules", docHandler.GetValidationRules)
	api.GET("/documents/:id", docHandler.GetDocument)
	api.PATCH("/documents/:id", docHandler.UpdateDocument)
	api.DELETE("/documents/:id", docHandler.DeleteDocument)
	api.PATCH("/documents/:id/metadata", docHandler.UpdateMetadata)
	api.POST("/documents/:id/favorite", docHandler.ToggleFavorite)
	api.POST("/documents/:id/process", docHandler.ProcessDocument)
	api.GET("/documents/:id/status", docHandler.GetDocumentStatus)
	api.GET("/documents/:id/download", docHandler.DownloadDocument)

	// Version routes
	api.GET("/documents/:id/versions", versionHandler.GetVersions)
	api.POST("/documents/:id/versions", versionHandler.CreateVersion)
	api.POST("/documents/:id/versions/:versionId/restore", versionHandler.RestoreVersion)
	api.DELETE("/documents/:id/versions/:versionId", versionHandler.DeleteVersion)

	// Batch routes
	api.POST("/documents/batch/delete", batchHandler.BatchDelete)
	api.POST("/documents/batch/favorite", batchHandler.BatchFavorite)
	api.POST("/documents/batch/tags", batchHandler.BatchTags)

	// Event stream
	if hub != nil {
		router.GET("/ws/events", hub.Handler)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "UP",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
}
