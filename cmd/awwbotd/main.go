package main

import (
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"github.com/byytelope/awwbot/pkg/bot"
	"github.com/byytelope/awwbot/pkg/cache"
	"github.com/byytelope/awwbot/pkg/config"
	"github.com/byytelope/awwbot/pkg/discord"
	"github.com/byytelope/awwbot/pkg/reddit"
	"github.com/byytelope/awwbot/pkg/stats"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	verifier, err := discord.NewVerifier(cfg.PublicKey)
	if err != nil {
		logger.Error("DISCORD_PUBLIC_KEY is not usable", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := cache.NewCache(cfg.CacheTTL, cache.WithCapacity(cfg.CacheCapacity))
	client := reddit.NewClient(reddit.Options{
		BaseURL:   cfg.RedditBaseURL,
		UserAgent: cfg.UserAgent,
		MinScore:  cfg.MinScore,
		RateLimit: rate.Limit(cfg.UpstreamRate),
		Burst:     cfg.UpstreamBurst,
	})
	d := bot.NewDispatcher(cfg, c, client, stats.New(reg), bot.WithLogger(logger))

	srv := newServer(cfg, d, verifier, reg, logger)

	h2s := &http2.Server{}
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h2c.NewHandler(srv.handler(), h2s),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Error("failed to listen", "addr", server.Addr, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("awwbotd listening",
			"addr", server.Addr,
			"subreddits", cfg.SourceNames(),
			"cache_ttl", cfg.CacheTTL,
			"stats_rpc", cfg.AdminToken != "",
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve error", "error", err)
		}
	}()

	waitForShutdown(server, srv, 5*time.Second)
}
