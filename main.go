package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/examaid-app/examaid-engine/pkg/auth"
	"github.com/examaid-app/examaid-engine/pkg/config"
	"github.com/examaid-app/examaid-engine/pkg/database"
	"github.com/examaid-app/examaid-engine/pkg/handlers"
	"github.com/examaid-app/examaid-engine/pkg/identity"
	"github.com/examaid-app/examaid-engine/pkg/logging"
	"github.com/examaid-app/examaid-engine/pkg/middleware"
	"github.com/examaid-app/examaid-engine/pkg/repositories"
	"github.com/examaid-app/examaid-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Database),
		zap.String("identity_gateway", cfg.Identity.BaseURL),
		zap.Bool("auth_verification", cfg.Identity.EnableVerification))

	ctx := context.Background()

	// Apply schema migrations before opening the pool.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	var draftStore services.DraftStore
	if redisClient != nil {
		draftStore = services.NewRedisDraftStore(redisClient)
		logger.Info("Draft store backed by Redis")
	} else {
		draftStore = services.NewMemoryDraftStore()
		logger.Info("Draft store in process memory")
	}

	// Identity gateway and session token verification
	gateway := identity.NewGateway(&cfg.Identity, logger)
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Identity.EnableVerification,
		JWKSEndpoints:      cfg.Identity.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// Core services
	photoRepo := repositories.NewPhotoNoteRepository(db, logger)
	photoService := services.NewPhotoNoteService(photoRepo, logger)
	draftService := services.NewDraftService(draftStore, photoService, cfg.Photo.Subjects, logger)
	archive := services.NewArchiveView(photoService,
		time.Duration(cfg.Photo.ArchiveGraceSeconds)*time.Second, logger)
	defer archive.Close()

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	authHandler := handlers.NewAuthHandler(gateway, logger)
	authHandler.RegisterRoutes(mux, authMiddleware)

	photoHandler := handlers.NewPhotoNotesHandler(photoService, archive, logger)
	photoHandler.RegisterRoutes(mux, authMiddleware)

	draftsHandler := handlers.NewDraftsHandler(draftService, logger)
	draftsHandler.RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting examaid-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
