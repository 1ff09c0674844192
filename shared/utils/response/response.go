package response

import (
	"log"

	"github.com/gin-gonic/gin"

	"loresmith-backend/shared/utils/apierror"
)

// Data writes a success envelope with a payload
func Data(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// Message writes a success envelope with a human-readable message
func Message(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"success": true,
		"message": message,
	})
}

// List writes a success envelope with pagination metadata
func List(ctx *gin.Context, status int, data interface{}, page, limit int, total int64) {
	ctx.JSON(status, gin.H{
		"success": true,
		"data":    data,
		"page":    page,
		"limit":   limit,
		"total":   total,
	})
}

// Error maps an error to the standard error envelope. Unexpected errors are
// genericized to 500; the cause is logged server-side only.
func Error(ctx *gin.Context, err error) {
	appErr := apierror.From(err)
	if appErr.StatusCode >= 500 {
		log.Printf("ERROR %s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)
	}
	ctx.JSON(appErr.StatusCode, gin.H{
		"success": false,
		"error":   appErr,
	})
}
