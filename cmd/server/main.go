package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/stock-hold/internal/adapter/handler"
	"github.com/rl1809/stock-hold/internal/adapter/payment"
	"github.com/rl1809/stock-hold/internal/adapter/storage"
	"github.com/rl1809/stock-hold/internal/config"
	"github.com/rl1809/stock-hold/internal/core/domain"
	"github.com/rl1809/stock-hold/internal/core/ledger"
	"github.com/rl1809/stock-hold/internal/core/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mysql")
	}
	logger.Info().Msg("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	logger.Info().Msg("connected to redis")

	// Seed catalog and ledger from configuration
	redisAdapter := storage.NewRedisAdapter(rdb)
	stockLedger := ledger.New()
	for _, p := range cfg.Products {
		product := &domain.Product{ID: p.ID, Name: p.Name, PricePaise: p.PricePaise, Stock: p.Stock}
		if err := redisAdapter.SetProduct(ctx, product); err != nil {
			logger.Fatal().Err(err).Str("product_id", p.ID).Msg("failed to seed catalog")
		}
		stockLedger.SetStock(p.ID, p.Stock)
	}
	logger.Info().Int("products", len(cfg.Products)).Msg("seeded catalog and ledger")

	// Initialize service
	metrics := service.NewMetrics()
	metrics.Register(prometheus.DefaultRegisterer)

	gateway := payment.NewRazorpayAdapter(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, redisAdapter)
	holdService := service.NewHoldService(service.Config{
		Ledger:    stockLedger,
		Holds:     storage.NewMySQLHoldRepository(db),
		Catalog:   redisAdapter,
		Gateway:   gateway,
		Finalizer: storage.NewMySQLOrderFinalizer(db),
		HoldTTL:   time.Duration(cfg.HoldTTLSeconds) * time.Second,
		Logger:    logger,
		Metrics:   metrics,
	})
	reaper := service.NewReaper(holdService, time.Duration(cfg.SweepIntervalSeconds)*time.Second, logger)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(holdService)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/holds", httpHandler.CreateHold)
	mux.HandleFunc("/api/holds/status", httpHandler.HoldStatus)
	mux.HandleFunc("/api/holds/cancel", httpHandler.CancelHold)
	mux.HandleFunc("/api/holds/commit", httpHandler.CommitHold)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := reaper.Run(gctx); err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("HTTP server stopped")

	rdb.Close()
	db.Close()
	logger.Info().Msg("connections closed")
}
