// Package ibge fetches Brazilian states and cities from the IBGE localities API.
package ibge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/ecoleta/internal/cache"
	"github.com/woozymasta/ecoleta/internal/metrics"
)

// DefaultBaseURL is the public localities endpoint.
const DefaultBaseURL = "https://servicodados.ibge.gov.br/api/v1/localidades"

// ErrEmptyUF is returned when a city lookup has no state code.
var ErrEmptyUF = errors.New("empty state code")

// StatusError reports a non-200 IBGE response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// Internal structures for JSON parsing
type ufResponse struct {
	Sigla string `json:"sigla"`
}

type cityResponse struct {
	Nome string `json:"nome"`
}

// Client is an IBGE localities client. Results are kept in the optional cache.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	baseURL string
	ttl     time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithCache stores responses in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.ttl = ttl
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// NewClient creates a client for baseURL, falling back to DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// States returns the state codes (siglas) in API order.
func (c *Client) States(ctx context.Context) ([]string, error) {
	var raw []ufResponse
	if err := c.getCached(ctx, "ibge:states", "estados", &raw); err != nil {
		return nil, fmt.Errorf("fetch states: %w", err)
	}

	ufs := make([]string, 0, len(raw))
	for _, uf := range raw {
		ufs = append(ufs, uf.Sigla)
	}

	return ufs, nil
}

// Cities returns the municipality names of the state uf.
func (c *Client) Cities(ctx context.Context, uf string) ([]string, error) {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	if uf == "" {
		return nil, ErrEmptyUF
	}

	var raw []cityResponse
	path := "estados/" + url.PathEscape(uf) + "/municipios"
	if err := c.getCached(ctx, "ibge:cities:"+uf, path, &raw); err != nil {
		return nil, fmt.Errorf("fetch cities of %s: %w", uf, err)
	}

	names := make([]string, 0, len(raw))
	for _, city := range raw {
		names = append(names, city.Nome)
	}

	return names, nil
}

// getCached decodes the cached body of key into out, fetching path on a miss.
// Cache errors never fail the lookup.
func (c *Client) getCached(ctx context.Context, key, path string, out any) error {
	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		if ok {
			if err := json.Unmarshal(data, out); err == nil {
				log.Trace().Str("key", key).Msg("Served from cache")
				return nil
			}
			log.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
		}
	}

	data, err := c.fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}

	return nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	u := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	data, err := c.roundTrip(req)
	metrics.ObserveUpstream("ibge", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		log.Error().Err(err).Str("url", u).Msg("IBGE request failed")
		return nil, err
	}

	log.Debug().Str("url", u).Int("bytes", len(data)).Msg("IBGE response received")
	return data, nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: req.URL.String(), Status: resp.StatusCode}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	return raw, nil
}
