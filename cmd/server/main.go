package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"outliner/internal/cache"
	"outliner/internal/config"
	"outliner/internal/handler"
	"outliner/internal/middleware"
	"outliner/internal/repository/postgres"
	postgresOutline "outliner/internal/repository/postgres/outline"
	"outliner/internal/service/detect"
	detectAnthropic "outliner/internal/service/detect/anthropic"
	serviceOutline "outliner/internal/service/outline"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Redis content cache; runs cache-off when REDIS_URL is unset
	redisClient, err := cache.CreateClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, running without content cache", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("redis connected")
	}
	contentCache := cache.NewContentCache(redisClient, cfg.ContentCacheTTL, logger)

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgresOutline.NewDocumentRepository(repoConfig)
	segRepo := postgresOutline.NewSegmentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Boundary detection: embedded rule registry plus optional classifier
	registry, err := detect.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load boundary rules: %v", err)
	}

	var classifier detect.Classifier
	if cfg.AnthropicAPIKey != "" {
		anthropicClassifier, err := detectAnthropic.NewClassifier(cfg.AnthropicAPIKey, cfg.ClassifierModel)
		if err != nil {
			log.Fatalf("Failed to create boundary classifier: %v", err)
		}
		classifier = anthropicClassifier
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, boundary detection runs rule-phase only")
	}
	detector := detect.NewDetector(registry, classifier, cfg.DetectionTimeout, logger)

	// Create services
	segService := serviceOutline.NewSegmentService(docRepo, segRepo, txManager, contentCache, logger)
	docService := serviceOutline.NewDocumentService(docRepo, segRepo, txManager, contentCache, segService, logger)
	commentService := serviceOutline.NewCommentService(segRepo, txManager, logger)
	segmenter := serviceOutline.NewSegmentationService(docRepo, segRepo, txManager, contentCache, detector, logger)

	// Create handlers
	docHandler := handler.NewDocumentHandler(docService, segService, logger)
	segHandler := handler.NewSegmentHandler(segService, segmenter, logger)
	commentHandler := handler.NewCommentHandler(commentService, logger)
	detectHandler := handler.NewDetectHandler(detector, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Document routes
	mux.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	mux.HandleFunc("POST /api/documents/upload", docHandler.UploadDocument)
	mux.HandleFunc("GET /api/documents", docHandler.ListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PUT /api/documents/{id}/content", docHandler.UpdateContent)
	mux.HandleFunc("PUT /api/documents/{id}/status", docHandler.UpdateStatus)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)
	mux.HandleFunc("GET /api/documents/{id}/progress", docHandler.GetProgress)
	mux.HandleFunc("DELETE /api/documents/{id}/segments/reset", docHandler.ResetSegments)

	// Document-scoped segment routes
	mux.HandleFunc("POST /api/documents/{id}/segments", segHandler.CreateSegment)
	mux.HandleFunc("POST /api/documents/{id}/segments/bulk", segHandler.CreateSegmentsBulk)
	mux.HandleFunc("GET /api/documents/{id}/segments", segHandler.ListSegments)
	mux.HandleFunc("POST /api/documents/{id}/segments/bulk-operations", segHandler.BulkOperations)
	mux.HandleFunc("POST /api/documents/{id}/segment", segHandler.SegmentDocument)

	// Segment routes
	mux.HandleFunc("GET /api/segments/{id}", segHandler.GetSegment)
	mux.HandleFunc("PUT /api/segments/{id}", segHandler.UpdateSegment)
	mux.HandleFunc("DELETE /api/segments/{id}", segHandler.DeleteSegment)
	mux.HandleFunc("PUT /api/segments/{id}/status", segHandler.UpdateSegmentStatus)
	mux.HandleFunc("POST /api/segments/{id}/split", segHandler.SplitSegment)
	mux.HandleFunc("POST /api/segments/merge", segHandler.MergeSegments)
	mux.HandleFunc("POST /api/segments/{id}/subdivide", segHandler.SubdivideSegment)

	// Comment routes
	mux.HandleFunc("GET /api/segments/{id}/comment", commentHandler.ListComments)
	mux.HandleFunc("POST /api/segments/{id}/comment", commentHandler.AppendComment)
	mux.HandleFunc("PUT /api/segments/{id}/comment/{index}", commentHandler.UpdateComment)
	mux.HandleFunc("DELETE /api/segments/{id}/comment/{index}", commentHandler.DeleteComment)

	// Detection routes
	mux.HandleFunc("POST /api/detect/boundaries", detectHandler.DetectBoundaries)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Logging → Routes
	httpHandler = middleware.RequestLogging(logger)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // classifier fallback can be slow
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
