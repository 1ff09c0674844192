package query

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultLimit and MaxLimit bound page sizes for list endpoints
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams represents the standardized list query parameters
type ListParams struct {
	Page     int
	Limit    int
	Status   string
	Category string
	Tag      string
	Search   string
	Favorite *bool
}

// ParseListParams extracts list parameters from the request, clamping
// pagination to sane bounds (page >= 1, 1 <= limit <= MaxLimit).
func ParseListParams(ctx *gin.Context) ListParams {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	params := ListParams{
		Page:     page,
		Limit:    limit,
		Status:   ctx.Query("status"),
		Category: ctx.Query("category"),
		Tag:      ctx.Query("tag"),
		Search:   ctx.Query("search"),
	}

	if raw := ctx.Query("favorite"); raw != "" {
		if fav, err := strconv.ParseBool(raw); err == nil {
			params.Favorite = &fav
		}
	}

	return params
}

// Offset returns the row offset for the current page
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
