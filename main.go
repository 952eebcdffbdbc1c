package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"linklite/internal/cache"
	"linklite/internal/config"
	"linklite/internal/controllers"
	"linklite/internal/database"
	"linklite/internal/jwt"
	"linklite/internal/middleware"
	"linklite/internal/repository"
	"linklite/internal/service"
	"linklite/internal/shortcode"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()
	ctx := context.Background()

	// Connect to database
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize Redis cache (optional - continue if Redis is unavailable)
	var cacheClient cache.Cache
	cacheClient, err = cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		cacheClient = nil
	} else {
		logger.Info().Msg("connected to Redis cache")
	}

	// Initialize repositories
	txm := database.NewTxManager(db)
	linkRepo := repository.NewLinkRepository(txm)
	userRepo := repository.NewUserRepository(txm)

	// Initialize JWT service
	jwtService := jwt.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTTTL)*time.Hour,
	)

	// Initialize services
	linkService := service.NewLinkService(
		linkRepo,
		cacheClient,
		shortcode.NewGenerator(),
		logger,
		cfg.ShortCodeLength,
		cfg.AllocMaxAttempts,
		cfg.CacheTTLSeconds,
	)
	authService := service.NewAuthService(userRepo, jwtService)

	// Initialize controllers
	linkController := controllers.NewLinkController(linkService, cfg.BaseURL)
	authController := controllers.NewAuthController(authService)
	qrcodeController := controllers.NewQRCodeController(cfg.BaseURL)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Anonymous redirect endpoint
	router.GET("/:shortCode", linkController.Redirect)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", authController.Login)
		}

		// Protected routes - require JWT authentication
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.POST("/shorten", linkController.CreateLink)
			protected.GET("/urls", linkController.GetUserLinks)
			protected.PATCH("/url/:id", linkController.UpdateLink)
			protected.DELETE("/url/:id", linkController.DeleteLink)
		}

		// Public JSON resolution, same semantics as the redirect
		api.GET("/redirect/:shortCode", linkController.ResolvePublic)

		// QR Code generation
		api.GET("/qrcode/:shortCode", qrcodeController.GenerateQRCode)
	}

	logger.Info().Str("port", cfg.Port).Msg("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
