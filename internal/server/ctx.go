package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/ecoleta/assets"
	"github.com/woozymasta/ecoleta/internal/config"
	"github.com/woozymasta/ecoleta/internal/form"
	"github.com/woozymasta/ecoleta/internal/geo"
	"github.com/woozymasta/ecoleta/internal/thumbs"
	"golang.org/x/time/rate"
)

// Thumbnails produces item images.
type Thumbnails interface {
	Get(ctx context.Context, url string) (thumbs.Thumb, error)
}

// IPLocator resolves a request's remote address into a current-position query.
type IPLocator interface {
	For(remoteAddr string) func(context.Context) (geo.Position, error)
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Pages    *assets.Pages
	Forms    *form.Store
	Sessions sessions.Store
	Thumbs   Thumbnails
	Locator  IPLocator
	Limiter  *IPRateLimiter
}

// Deps are the collaborators a ServerContext is built from.
type Deps struct {
	Catalog    form.Catalog
	Localities form.Localities
	Thumbs     Thumbnails
	Locator    IPLocator
}

// NewServerContext renders the pages and wires the form store.
func NewServerContext(cfg *config.Config, deps Deps) (*ServerContext, error) {
	pages, err := assets.Render()
	if err != nil {
		return nil, err
	}

	validator := form.NewValidator(form.Rules{
		PhoneRegion:  cfg.Submit.PhoneRegion,
		RequireItems: cfg.Submit.RequireItems == nil || *cfg.Submit.RequireItems,
	})

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		log.Warn().Msg("Session secret not configured, cookies will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
		if secret == nil {
			return nil, errors.New("generate session key")
		}
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	log.Info().
		Str("api", cfg.API.BaseURL).
		Str("ibge", cfg.IBGE.BaseURL).
		Bool("geoip", deps.Locator != nil).
		Int("home_bytes", len(pages.Home)).
		Int("form_bytes", len(pages.CreatePoint)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:   cfg,
		Pages:    pages,
		Forms:    form.NewStore(deps.Catalog, deps.Localities, validator),
		Sessions: store,
		Thumbs:   deps.Thumbs,
		Locator:  deps.Locator,
		Limiter:  NewIPRateLimiter(rate.Limit(cfg.Submit.Rate), cfg.Submit.Burst),
	}, nil
}
