package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/zephyrsocial/zephyr/backend/internal/cache"
	"github.com/zephyrsocial/zephyr/backend/internal/handlers"
	"github.com/zephyrsocial/zephyr/backend/internal/middleware"
	"github.com/zephyrsocial/zephyr/backend/internal/models"
	"github.com/zephyrsocial/zephyr/backend/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, rdb *redis.Client, logger *zap.Logger, jwtSecret string) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.MediaAttachment{},
		&models.Post{},
		&models.Tag{},
		&models.AuraLog{},
		&models.Follow{},
		&models.Bookmark{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	postRepo := repositories.NewPostgresPostRepository(pgdb)
	mediaRepo := repositories.NewPostgresMediaRepository(pgdb)
	tagRepo := repositories.NewPostgresTagRepository(pgdb)
	auraLogRepo := repositories.NewPostgresAuraLogRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	bookmarkRepo := repositories.NewPostgresBookmarkRepository(pgdb)

	// --- Initialize Caches ---
	viewsCache := cache.NewPostViewsCache(rdb, logger)
	tagCache := cache.NewTagCountCache(rdb, logger)
	shareCache := cache.NewShareStatsCache(rdb, logger)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, jwtSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(jwtSecret))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo, auraLogRepo, followRepo)
	userHandler.RegisterUserRoutes(api)
	log.Println("User routes configured.")

	// Media routes
	mediaHandler := handlers.NewMediaHandler(mediaRepo)
	mediaHandler.RegisterMediaRoutes(api)
	log.Println("Media routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, viewsCache, tagCache, shareCache, logger)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Tag routes
	tagHandler := handlers.NewTagHandler(tagRepo, tagCache)
	tagHandler.RegisterTagRoutes(api)
	log.Println("Tag routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Bookmark routes
	bookmarkHandler := handlers.NewBookmarkHandler(bookmarkRepo, postRepo)
	bookmarkHandler.RegisterBookmarkRoutes(api)
	log.Println("Bookmark routes configured.")

	log.Println("All routes configured.")
}
