// Package api talks to the collection points backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/ecoleta/internal/metrics"
)

// Item is a collectable waste category offered by the backend.
type Item struct {
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	ID       int    `json:"id"`
}

// Point is the record posted to create a collection point.
type Point struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Whatsapp  string  `json:"whatsapp"`
	UF        string  `json:"uf"`
	City      string  `json:"city"`
	Items     []int   `json:"items"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method string
	URL    string
	Body   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
}

// Client is a backend client.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client for baseURL. A nil httpClient gets one with timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Items fetches the item catalog.
func (c *Client) Items(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.do(ctx, http.MethodGet, "items", nil, &items); err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	log.Debug().Int("count", len(items)).Msg("Items loaded")
	return items, nil
}

// CreatePoint posts a new collection point. The response body is not used.
func (c *Client) CreatePoint(ctx context.Context, p Point) error {
	if p.Items == nil {
		p.Items = []int{}
	}

	if err := c.do(ctx, http.MethodPost, "points", p, nil); err != nil {
		return fmt.Errorf("create point: %w", err)
	}

	log.Info().
		Str("name", p.Name).
		Str("uf", p.UF).
		Str("city", p.City).
		Ints("items", p.Items).
		Msg("Point created")
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	url := c.baseURL + "/" + path

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	err = c.roundTrip(req, out)
	metrics.ObserveUpstream("api_"+path, float64(time.Since(start).Milliseconds()), err)
	return err
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: req.Method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Body:   string(snippet),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
