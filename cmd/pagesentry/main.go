package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"pagesentry/internal/aggregator"
	"pagesentry/internal/blocklist"
	"pagesentry/internal/cache"
	"pagesentry/internal/common"
	"pagesentry/internal/config"
	"pagesentry/internal/detector"
	"pagesentry/internal/feeds"
	"pagesentry/internal/reputation"
	"pagesentry/internal/server"
	"pagesentry/internal/storage"
	"pagesentry/internal/warning"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var (
		store   storage.Store
		scores  cache.Cache
		backend string
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		store = storage.NewRedisStore(rdb)
		scores = cache.NewRedisCache(rdb, logger)
		backend = "redis"
	} else {
		store = storage.NewMemoryStore()
		scores = cache.NewMemoryCache()
		backend = "memory"
	}

	lists := blocklist.NewManager(store, logger)
	if err := lists.SeedDefaults(ctx); err != nil {
		logger.Error("seeding default keywords failed", "error", err)
		os.Exit(1)
	}

	retry := reputation.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Std(),
	}
	clients := []reputation.Client{
		reputation.NewPhishTank(reputation.Options{
			APIKey:   cfg.PhishTank.APIKey,
			Endpoint: cfg.PhishTank.Endpoint,
			CacheTTL: cfg.PhishTank.CacheTTL.Std(),
			Retry:    retry,
		}),
		reputation.NewSafeBrowsing(reputation.Options{
			APIKey:   cfg.SafeBrowsing.APIKey,
			Endpoint: cfg.SafeBrowsing.Endpoint,
			CacheTTL: cfg.SafeBrowsing.CacheTTL.Std(),
			Retry:    retry,
		}),
		reputation.NewVirusTotal(reputation.Options{
			APIKey:   cfg.VirusTotal.APIKey,
			Endpoint: cfg.VirusTotal.Endpoint,
			CacheTTL: cfg.VirusTotal.CacheTTL.Std(),
			Retry:    retry,
		}),
	}

	agg := aggregator.New(lists, scores, clients, cfg.Weights, logger)
	presenter := warning.NewPresenter(logRenderer{logger: logger}, nil, logger)
	controller := detector.NewController(agg, presenter, lists, store, nil, logger)
	controller.Start(ctx)

	if len(cfg.Feeds) > 0 {
		syncer := feeds.NewSyncer(lists, logger)
		for _, feed := range cfg.Feeds {
			syncer.Register(feeds.NewHTTPFetcher(feed.Name, feed.URL, nil))
		}
		go syncer.Run(ctx)
	}

	srv := server.New(agg, controller, lists, logger)
	srv.StartMetrics(cfg.MetricsAddr)

	logger.Info("listening",
		"addr", cfg.HTTPAddr, "metrics", cfg.MetricsAddr,
		"backend", backend, "version", common.Version)
	if err := http.ListenAndServe(cfg.HTTPAddr, srv.Router()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// logRenderer writes warning transitions to the log; the daemon has no page
// overlay to draw into.
type logRenderer struct {
	logger *slog.Logger
}

func (r logRenderer) Render(s warning.State) {
	if !s.Active {
		r.logger.Info("warning cleared")
		return
	}
	r.logger.Warn("warning shown", "level", s.Level, "title", s.Title, "url", s.URL)
}
