package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"loresmith-backend/shared/config"
	"loresmith-backend/shared/utils/apierror"
	"loresmith-backend/shared/utils/auth"
	"loresmith-backend/shared/utils/response"
)

// AuthMiddleware validates the Bearer token and sets the caller identity in
// context. When no JWT_SECRET is configured, authentication is disabled and
// requests pass through.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if cfg.JWTSecret == "" {
			ctx.Next()
			return
		}

		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(ctx, apierror.Auth("authorization header is required"))
			ctx.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			response.Error(ctx, apierror.Auth("invalid authorization format, expected Bearer {token}"))
			ctx.Abort()
			return
		}

		claims, err := auth.ValidateJWT(cfg, tokenParts[1])
		if err != nil {
			response.Error(ctx, apierror.Auth("invalid or expired token"))
			ctx.Abort()
			return
		}

		ctx.Set("userID", claims.UserID)
		ctx.Set("userEmail", claims.Email)
		ctx.Next()
	}
}
