package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/woozymasta/ecoleta/internal/api"
	"github.com/woozymasta/ecoleta/internal/config"
	"github.com/woozymasta/ecoleta/internal/form"
	"github.com/woozymasta/ecoleta/internal/ibge"
	"github.com/woozymasta/ecoleta/internal/logger"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file, defaults are used if empty"`
	APIURL     string `long:"api-url"          env:"API_URL"     description:"Collection points backend, overrides the config"`
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
	if opts.APIURL != "" {
		cfg.API.BaseURL = opts.APIURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f := form.New(uuid.NewString(),
		api.NewClient(cfg.API.BaseURL, nil, cfg.API.Timeout),
		ibge.NewClient(cfg.IBGE.BaseURL, ibge.WithHTTPClient(&http.Client{Timeout: cfg.IBGE.Timeout})),
		form.NewValidator(form.Rules{
			PhoneRegion:  cfg.Submit.PhoneRegion,
			RequireItems: cfg.Submit.RequireItems == nil || *cfg.Submit.RequireItems,
		}))

	err = run(ctx, f, surveyPrompter{}, cfg.Submit.PhoneRegion)

	var verr *form.ValidationError
	switch {
	case err == nil:
		fmt.Println("ponto criado")
	case errors.Is(err, terminal.InterruptErr), errors.Is(err, errAborted):
		fmt.Fprintln(os.Stderr, "Aborted")
		os.Exit(130)
	case errors.As(err, &verr):
		for field, msg := range verr.Fields {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
		}
		os.Exit(1)
	default:
		log.Fatal().Err(err).Msg("Registration failed")
	}
}
