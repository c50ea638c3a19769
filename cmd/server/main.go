package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrelml/weaklabel/internal/analysis"
	"github.com/kestrelml/weaklabel/internal/cache"
	"github.com/kestrelml/weaklabel/internal/config"
	"github.com/kestrelml/weaklabel/internal/database"
	apperrors "github.com/kestrelml/weaklabel/internal/errors"
	"github.com/kestrelml/weaklabel/internal/labelfn"
	"github.com/kestrelml/weaklabel/internal/monitoring"
	"github.com/kestrelml/weaklabel/internal/ratelimit"
	"github.com/kestrelml/weaklabel/internal/types"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(slog.LevelInfo)
	slog.SetDefault(logger.Logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := monitoring.NewMetrics(registry)

	db, err := database.NewDB(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	runService := database.NewRunService(database.NewRepository(db))

	fnRegistry := labelfn.NewRegistry()
	for _, fn := range labelfn.DefaultFunctions() {
		if err := fnRegistry.Register(fn); err != nil {
			slog.Error("Failed to register labeling function", "error", err)
			os.Exit(1)
		}
	}

	engine := analysis.NewEngineWithThreshold(fnRegistry, cfg.Engine, logger, metrics, cfg.FailureThreshold)
	resultCache := cache.NewCache(cfg.Storage.CacheTTL)
	limiter := ratelimit.NewRateLimiter(cfg.Server.RateLimitPerMin)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(securityHeaders())
	r.Use(apperrors.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(limiter.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   version,
			"cache":     resultCache.Stats(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	{
		api.POST("/label", labelHandler(engine, resultCache, runService, cfg, fnRegistry))
		api.GET("/runs", listRunsHandler(runService))
		api.GET("/runs/:id", getRunHandler(runService))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// labelHandler runs the engine over a submitted corpus, serving repeat
// submissions from the result cache.
func labelHandler(engine *analysis.Engine, resultCache *cache.Cache, runService *database.RunService, cfg *config.Config, fnRegistry *labelfn.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.LabelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := apperrors.NewValidationError("invalid request body", err)
			c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Error()})
			return
		}
		if len(req.Documents) > cfg.Server.MaxCorpusSize {
			appErr := apperrors.NewValidationError("corpus exceeds maximum size", nil)
			c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Error()})
			return
		}

		key := cache.Key(req.Documents, cfg.Engine, fnRegistry.Names())
		if cached, ok := resultCache.Get(key); ok {
			c.JSON(http.StatusOK, types.LabelResponse{
				Records:     cached.Records,
				Diagnostics: cached.Diagnostics,
			})
			return
		}

		result, err := engine.Label(c.Request.Context(), req.Documents)
		if err != nil {
			appErr := apperrors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Error()})
			return
		}

		runID, err := runService.RecordRun(cfg.Engine, result.Diagnostics, result.Records)
		if err != nil {
			// Persistence failure does not invalidate the labeling result.
			slog.Error("Failed to persist run", "error", err)
		}

		resultCache.Set(key, result)

		c.JSON(http.StatusOK, types.LabelResponse{
			RunID:       runID,
			Records:     result.Records,
			Diagnostics: result.Diagnostics,
		})
	}
}

func listRunsHandler(runService *database.RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := runService.ListRuns(20)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func getRunHandler(runService *database.RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, records, err := runService.GetRun(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": run, "records": records})
	}
}

func requestLogger(logger *monitoring.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.RequestLogger(c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Writer.Status(), time.Since(start))
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
