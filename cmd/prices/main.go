package main

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"PriceBoard/internal/config"
	"PriceBoard/internal/prices"
	"PriceBoard/pkg/kit"
)

func main() {
	service := "prices"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}

	s := &prices.Server{Store: store, Log: log}

	var limiter *kit.IPRateLimiter
	if cfg.RateLimit > 0 {
		limiter = kit.NewIPRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	}

	h := prices.NewHandler(s, prices.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      limiter,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(cfg config.Config, log *zap.Logger) (prices.RecordStore, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return prices.NewMemStore(), nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return prices.NewPostgresStore(db), nil
}
