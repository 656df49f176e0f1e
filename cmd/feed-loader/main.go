package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"pagesentry/internal/blocklist"
	"pagesentry/internal/config"
	"pagesentry/internal/feeds"
	"pagesentry/internal/storage"
)

// feed-loader pulls the configured blocklist feeds once and exits. Run it
// from cron against the same redis the daemon uses.
func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall sync deadline")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config failed", "error", err)
		os.Exit(1)
	}
	if len(cfg.Feeds) == 0 {
		logger.Error("no feeds configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var store storage.Store
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
	} else {
		logger.Warn("no redis configured, synced hosts will not persist")
		store = storage.NewMemoryStore()
	}

	lists := blocklist.NewManager(store, logger)
	syncer := feeds.NewSyncer(lists, logger)
	for _, feed := range cfg.Feeds {
		syncer.Register(feeds.NewHTTPFetcher(feed.Name, feed.URL, nil))
	}
	syncer.Run(ctx)

	logger.Info("sync finished", "blacklist_size", len(lists.Hosts(ctx)))
}
