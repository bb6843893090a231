package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/ecoleta/internal/api"
	"github.com/woozymasta/ecoleta/internal/cache"
	"github.com/woozymasta/ecoleta/internal/config"
	"github.com/woozymasta/ecoleta/internal/ibge"
	"github.com/woozymasta/ecoleta/internal/locate"
	"github.com/woozymasta/ecoleta/internal/logger"
	"github.com/woozymasta/ecoleta/internal/server"
	"github.com/woozymasta/ecoleta/internal/thumbs"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"  env:"CONFIG_FILE"    description:"Path to configuration file, defaults are used if empty"`
	Addr       string        `short:"a" long:"addr"    env:"LISTEN_ADDRESS" description:"Address to listen on"                  default:"0.0.0.0"`
	Port       int           `short:"p" long:"port"    env:"LISTEN_PORT"    description:"Port to listen on"                     default:"8080"`
	APIURL     string        `long:"api-url"           env:"API_URL"        description:"Collection points backend, overrides the config"`
	GeoIP      string        `long:"geoip"             env:"GEOIP_DATABASE" description:"MaxMind City database, overrides the config"`
	Redis      string        `long:"redis"             env:"REDIS_ADDR"     description:"Redis address, overrides the config"`
	Secret     string        `long:"session-secret"    env:"SESSION_SECRET" description:"Session cookie signing key, overrides the config"`
	Sweep      time.Duration `long:"sweep-interval"    env:"SWEEP_INTERVAL" description:"How often abandoned forms are dropped" default:"1m"`
}

func main() {
	// A missing .env is fine, the environment may be set by other means.
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.APIURL != "" {
		cfg.API.BaseURL = opts.APIURL
	}
	if opts.GeoIP != "" {
		cfg.GeoIP.Database = opts.GeoIP
	}
	if opts.Redis != "" {
		cfg.Cache.RedisAddr = opts.Redis
	}
	if opts.Secret != "" {
		cfg.Session.Secret = opts.Secret
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeCache, err := cache.Open(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.Size)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Failed to connect to Redis")
	}
	defer closeCache()

	deps := server.Deps{
		Catalog: api.NewClient(cfg.API.BaseURL, nil, cfg.API.Timeout),
		Localities: ibge.NewClient(cfg.IBGE.BaseURL,
			ibge.WithHTTPClient(&http.Client{Timeout: cfg.IBGE.Timeout}),
			ibge.WithCache(store, cfg.Cache.TTL)),
		Thumbs: thumbs.New(nil, store, cfg.Cache.TTL, cfg.Thumbs.Size, cfg.Thumbs.Quality),
	}

	if cfg.GeoIP.Database != "" {
		db, err := locate.Open(cfg.GeoIP.Database)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.GeoIP.Database).Msg("GeoIP database unavailable, server-side geolocation disabled")
		} else {
			defer func() { _ = db.Close() }()
			deps.Locator = db
		}
	}

	srvCtx, err := server.NewServerContext(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	go srvCtx.Forms.RunSweeper(ctx, cfg.Session.TTL, opts.Sweep)
	go srvCtx.Limiter.RunSweeper(ctx, cfg.Session.TTL, opts.Sweep)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("api", cfg.API.BaseURL).
		Bool("redis", cfg.Cache.RedisAddr != "").
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
