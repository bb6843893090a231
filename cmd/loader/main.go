package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/woozymasta/ecoleta/internal/api"
	"github.com/woozymasta/ecoleta/internal/cache"
	"github.com/woozymasta/ecoleta/internal/config"
	"github.com/woozymasta/ecoleta/internal/ibge"
	"github.com/woozymasta/ecoleta/internal/logger"
	"github.com/woozymasta/ecoleta/internal/thumbs"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file, defaults are used if empty"`
	Redis       string   `long:"redis"                 env:"REDIS_ADDR"  description:"Redis address, overrides the config"`
	Limit       []string `short:"l" long:"limit"       env:"LIMIT_UFS"   description:"Limit city warming to specific states"`
	Concurrency int      `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"8"`
	CitiesOnly  bool     `short:"C" long:"cities-only" description:"Warm states and cities only"`
	ThumbsOnly  bool     `short:"t" long:"thumbs-only" description:"Warm item thumbnails only"`
}

func main() {
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
	if opts.Redis != "" {
		cfg.Cache.RedisAddr = opts.Redis
	}
	if cfg.Cache.RedisAddr == "" {
		log.Warn().Msg("No Redis configured, warmed entries are lost when the loader exits")
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	warmCities := true
	warmThumbs := true
	if opts.CitiesOnly && !opts.ThumbsOnly {
		warmThumbs = false
	} else if opts.ThumbsOnly && !opts.CitiesOnly {
		warmCities = false
	}

	ctx := context.Background()

	store, closeCache, err := cache.Open(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.Size)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Failed to connect to Redis")
	}
	defer closeCache()

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}

	log.Info().
		Int("concurrency", opts.Concurrency).
		Bool("cities", warmCities).
		Bool("thumbs", warmThumbs).
		Msg("Starting loader")

	failed := 0

	if warmCities {
		failed += loadCities(ctx, ibge.NewClient(cfg.IBGE.BaseURL,
			ibge.WithHTTPClient(client),
			ibge.WithCache(store, cfg.Cache.TTL)), opts)
	}

	if warmThumbs {
		catalog := api.NewClient(cfg.API.BaseURL, client, cfg.API.Timeout)
		th := thumbs.New(client, store, cfg.Cache.TTL, cfg.Thumbs.Size, cfg.Thumbs.Quality)
		failed += loadThumbs(ctx, catalog, th)
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Loader finished with errors")
		os.Exit(1)
	}

	log.Info().Msg("Loader finished successfully")
}

func loadCities(ctx context.Context, c *ibge.Client, opts Options) int {
	ufs, err := c.States(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load states")
		return 1
	}

	// Filter states if limit is set
	if len(opts.Limit) > 0 {
		available := make(map[string]bool, len(ufs))
		for _, uf := range ufs {
			available[uf] = true
		}

		seen := make(map[string]bool)
		limited := make([]string, 0, len(opts.Limit))
		for _, uf := range opts.Limit {
			uf = strings.ToUpper(strings.TrimSpace(uf))
			if seen[uf] {
				continue
			}
			seen[uf] = true

			if available[uf] {
				limited = append(limited, uf)
			} else {
				log.Error().Str("uf", uf).Msg("State specified in --limit not found")
			}
		}
		ufs = limited
	}

	failed, cities := 0, 0
	for _, res := range c.WarmCities(ctx, ufs, opts.Concurrency) {
		if res.Err != nil {
			failed++
			continue
		}
		cities += len(res.Cities)
	}

	log.Info().
		Int("states", len(ufs)).
		Int("cities", cities).
		Int("failed", failed).
		Msg("Cities warmed")

	return failed
}

func loadThumbs(ctx context.Context, catalog *api.Client, th *thumbs.Thumbnailer) int {
	items, err := catalog.Items(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load items")
		return 1
	}

	failed := 0
	for _, it := range items {
		if it.ImageURL == "" {
			continue
		}

		t, err := th.Get(ctx, it.ImageURL)
		if err != nil {
			log.Warn().Err(err).Int("item", it.ID).Str("url", it.ImageURL).Msg("Failed to warm thumbnail")
			failed++
			continue
		}

		log.Debug().
			Int("item", it.ID).
			Str("type", t.ContentType).
			Int("bytes", len(t.Data)).
			Msg("Thumbnail warmed")
	}

	log.Info().Int("items", len(items)).Int("failed", failed).Msg("Thumbnails warmed")
	return failed
}
