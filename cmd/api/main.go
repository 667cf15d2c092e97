package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisadapter "github.com/robertarktes/eventhub/internal/adapters/redis"
	"github.com/robertarktes/eventhub/internal/adapters/storage"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/booking"
	"github.com/robertarktes/eventhub/internal/bootstrap"
	"github.com/robertarktes/eventhub/internal/catalog"
	"github.com/robertarktes/eventhub/internal/config"
	httphandler "github.com/robertarktes/eventhub/internal/http"
	"github.com/robertarktes/eventhub/internal/idempotency"
	"github.com/robertarktes/eventhub/internal/invoice"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/robertarktes/eventhub/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), "eventhub-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel)

	stores, err := bootstrap.OpenStore(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer stores.Close()

	checks := map[string]httphandler.ReadyCheck{"store": stores.Ping}

	var (
		listing catalog.ListingCache
		idemp   *idempotency.Idempotency
		rl      *rateLimit.RateLimiter
	)
	if redisClient := bootstrap.OpenRedis(cfg); redisClient != nil {
		defer redisClient.Close()
		redisCache := redisadapter.NewCache(redisClient)
		listing = redisadapter.NewEventListCache(redisCache, cfg.CatalogCacheTTL, logger)
		idemp = idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
		rl = rateLimit.NewRateLimiter(redisCache, logger)
		checks["redis"] = redisCache.Ping
	} else {
		logger.Warn("REDIS_ADDR not set, running without listing cache, idempotency and rate limiting")
	}

	uploader := storage.NewDiskUploader(cfg.UploadDir, cfg.PublicBaseURL)
	catalogSvc := catalog.NewService(stores.Store, listing, uploader, cfg.EventLocation, logger)

	opts := []booking.Option{booking.WithLocation(cfg.EventLocation)}
	if stores.Transactor != nil {
		opts = append(opts, booking.WithTransactor(stores.Transactor))
	}
	if stores.Durable {
		opts = append(opts, booking.WithOutbox(stores.Store))
	}
	renderer := invoice.NewRenderer(cfg.BrandName, cfg.CurrencySymbol, cfg.EventLocation)
	engine := booking.NewEngine(stores.Store, renderer, logger, opts...)

	handlers := httphandler.NewHandlers(cfg, catalogSvc, engine, logger, checks)
	verifier := auth.NewVerifier(cfg.JWTSecret, auth.Policy{AdminEmail: cfg.AdminEmail})
	r := httphandler.SetupRouter(handlers, logger, verifier, rl, idemp)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).WithField("backend", cfg.StoreBackend).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
