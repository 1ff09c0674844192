// Package docs LoreSmith API documentation
package docs

// Swagger documentation info
// @title LoreSmith Document API
// @version 1.0
// @description Document management backend: uploads, versioning, tags, favorites and batch operations.

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// @tag.name documents
// @tag.description Document CRUD, upload, download and status
// @tag.name versions
// @tag.description Document version history
// @tag.name batch
// @tag.description Bulk document operations
