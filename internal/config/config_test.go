package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Map.Zoom != 15 {
		t.Errorf("zoom = %d, want 15", cfg.Map.Zoom)
	}
	if cfg.IBGE.BaseURL != "https://servicodados.ibge.gov.br/api/v1/localidades" {
		t.Errorf("ibge base = %q", cfg.IBGE.BaseURL)
	}
	if cfg.Submit.PhoneRegion != "BR" || !*cfg.Submit.RequireItems {
		t.Errorf("unexpected submit defaults: %+v", cfg.Submit)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
api:
  base_url: http://backend:3333
  timeout: 3s
map:
  zoom: 12
cache:
  redis_addr: redis:6379
  ttl: 1h
submit:
  require_items: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.API.BaseURL != "http://backend:3333" || cfg.API.Timeout != 3*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Map.Zoom != 12 {
		t.Errorf("zoom = %d, want 12", cfg.Map.Zoom)
	}
	if cfg.Cache.RedisAddr != "redis:6379" || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if *cfg.Submit.RequireItems {
		t.Error("require_items should stay false")
	}
	if cfg.Session.Name != "ecoleta" {
		t.Errorf("session name = %q", cfg.Session.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
