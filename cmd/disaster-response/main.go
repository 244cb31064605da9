package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-disaster-response/internal/api"
	"github.com/mr1hm/go-disaster-response/internal/audit"
	"github.com/mr1hm/go-disaster-response/internal/cache"
	"github.com/mr1hm/go-disaster-response/internal/config"
	"github.com/mr1hm/go-disaster-response/internal/disasters"
	"github.com/mr1hm/go-disaster-response/internal/events"
	"github.com/mr1hm/go-disaster-response/internal/extraction"
	"github.com/mr1hm/go-disaster-response/internal/geocode"
	"github.com/mr1hm/go-disaster-response/internal/logging"
	"github.com/mr1hm/go-disaster-response/internal/repository"
	"github.com/mr1hm/go-disaster-response/internal/resolver"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cacheStore := cache.New(db, cfg.Cache.DefaultTTL, cfg.Cache.SweepInterval, nil)
	cacheStore.StartSweeper(ctx)

	var providers []geocode.Provider
	if cfg.Geocoding.GoogleAPIKey != "" {
		google, err := geocode.NewGoogleProvider(cfg.Geocoding.GoogleAPIKey)
		if err != nil {
			logging.Fatalf("Failed to initialize Google geocoder: %v", err)
		}
		providers = append(providers, google)
	} else {
		slog.Warn("GOOGLE_MAPS_API_KEY not set, skipping Google geocoder")
	}
	providers = append(providers, geocode.NewNominatimProvider(cfg.Geocoding.NominatimURL))
	chain := geocode.NewChain(cfg.Geocoding.ProviderTimeout, providers...)

	var extractor extraction.Extractor
	if cfg.Extraction.GeminiAPIKey != "" {
		extractor = extraction.NewGeminiExtractor(cfg.Extraction.GeminiAPIKey, cfg.Extraction.GeminiURL, cfg.Extraction.Timeout)
	} else {
		slog.Warn("GOOGLE_GEMINI_API_KEY not set, falling back to heuristic extraction")
	}

	locResolver := resolver.New(chain, cacheStore, extractor, cfg.Cache.DefaultTTL)
	bus := events.NewBus()
	svc := disasters.NewService(db, locResolver, audit.NewLedger(nil), bus, nil)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(25, 50))

	handler := api.NewHandler(svc, locResolver, api.NewHub(bus))
	handler.RegisterRoutes(router, cfg.Auth.AdminID)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	cacheStore.Wait()
	bus.Close() // Disconnect all observers gracefully

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
