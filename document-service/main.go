package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"loresmith-backend/document-service/events"
	"loresmith-backend/document-service/handlers"
	"loresmith-backend/document-service/middleware"
	"loresmith-backend/document-service/services"
	"loresmith-backend/document-service/store"
	"loresmith-backend/shared/config"
	"loresmith-backend/shared/database"
	"loresmith-backend/shared/utils/cache"

	_ "loresmith-backend/docs"
)

func main() {
	config.LoadConfig()
	cfg := config.GetConfig()

	db, err := database.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase(db)

	if err := database.SeedDatabase(db); err != nil {
		log.Printf("Warning: database seeding failed: %v", err)
	}

	storage, err := services.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	encryptor, err := services.NewEncryptor(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize encryption: %v", err)
	}

	statusCache, err := cache.NewStatusCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: redis unavailable, status cache disabled: %v", err)
	}
	defer statusCache.Close()

	hub := events.NewHub(cfg.AllowedOrigins())

	validator := services.NewDocumentValidator(cfg.MaxUploadSizeBytes())
	docStore := store.NewDocumentStore(db)
	svc := services.NewDocumentService(docStore, storage, validator, encryptor, statusCache, hub)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(middleware.NewRateLimiter(cfg).Middleware())

	handlers.RegisterRoutes(router, cfg, svc, hub)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	log.Printf("Document Service starting on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
