// Package config handles configuration loading and shared data structures.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	API     API     `yaml:"api"`
	IBGE    IBGE    `yaml:"ibge"`
	Map     Map     `yaml:"map" json:"map"`
	Cache   Cache   `yaml:"cache"`
	GeoIP   GeoIP   `yaml:"geoip"`
	Session Session `yaml:"session"`
	Submit  Submit  `yaml:"submit"`
	Thumbs  Thumbs  `yaml:"thumbs"`
}

// API is the collection points backend.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// IBGE is the localities service of the Brazilian statistics institute.
type IBGE struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Map configures the Leaflet map on the form page.
type Map struct {
	TileURL     string `yaml:"tile_url,omitempty" json:"tile_url"`
	Attribution string `yaml:"attribution,omitempty" json:"attribution"`
	Zoom        int    `yaml:"zoom,omitempty" json:"zoom"`
}

// Cache configures reference data caching. Empty RedisAddr selects the in-process cache.
type Cache struct {
	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	RedisPassword string        `yaml:"redis_password,omitempty"`
	RedisDB       int           `yaml:"redis_db,omitempty"`
	TTL           time.Duration `yaml:"ttl,omitempty"`
	Size          int           `yaml:"size,omitempty"`
}

// GeoIP points at an optional MaxMind City database used to seed the map center.
type GeoIP struct {
	Database string `yaml:"database,omitempty"`
}

// Session configures the form session cookie and server-side form lifetime.
type Session struct {
	Name   string        `yaml:"name,omitempty"`
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl,omitempty"`
	Secure bool          `yaml:"secure,omitempty"`
}

// Submit limits point submissions and configures their validation.
type Submit struct {
	Rate         float64 `yaml:"rate,omitempty"` // per second, all clients
	Burst        int     `yaml:"burst,omitempty"`
	PhoneRegion  string  `yaml:"phone_region,omitempty"`
	RequireItems *bool   `yaml:"require_items,omitempty"`
}

// Thumbs configures item image thumbnails.
type Thumbs struct {
	Size    int `yaml:"size,omitempty"`
	Quality int `yaml:"quality,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:3333"
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 10 * time.Second
	}

	if c.IBGE.BaseURL == "" {
		c.IBGE.BaseURL = "https://servicodados.ibge.gov.br/api/v1/localidades"
	}
	if c.IBGE.Timeout <= 0 {
		c.IBGE.Timeout = 10 * time.Second
	}

	if c.Map.TileURL == "" {
		c.Map.TileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	}
	if c.Map.Attribution == "" {
		c.Map.Attribution = `&copy; <a href="http://osm.org/copyright">OpenStreetMap</a> contributors`
	}
	if c.Map.Zoom <= 0 {
		c.Map.Zoom = 15
	}

	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 256
	}

	if c.Session.Name == "" {
		c.Session.Name = "ecoleta"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = time.Hour
	}

	if c.Submit.Rate <= 0 {
		c.Submit.Rate = 5
	}
	if c.Submit.Burst <= 0 {
		c.Submit.Burst = 10
	}
	if c.Submit.PhoneRegion == "" {
		c.Submit.PhoneRegion = "BR"
	}
	if c.Submit.RequireItems == nil {
		require := true
		c.Submit.RequireItems = &require
	}

	if c.Thumbs.Size <= 0 {
		c.Thumbs.Size = 96
	}
	if c.Thumbs.Quality <= 0 {
		c.Thumbs.Quality = 85
	}
}
