package server

import (
	"net/http"

	"github.com/woozymasta/ecoleta/internal/metrics"
)

// Routes registers every endpoint and wraps the mux with the request logger.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.HandleHome)
	mux.HandleFunc("GET /create-point", s.HandleCreatePoint)
	mux.HandleFunc("GET /logo.svg", s.HandleLogo)

	mux.HandleFunc("GET /api/form", s.HandleForm)
	mux.HandleFunc("GET /api/form/marker", s.HandleMarker)
	mux.HandleFunc("POST /api/form/reload", s.HandleReload)
	mux.HandleFunc("POST /api/form/initial-position", s.HandleInitialPosition)
	mux.HandleFunc("POST /api/form/position", s.HandlePosition)
	mux.HandleFunc("POST /api/form/fields", s.HandleField)
	mux.HandleFunc("POST /api/form/uf", s.HandleUF)
	mux.HandleFunc("POST /api/form/city", s.HandleCity)
	mux.HandleFunc("POST /api/form/items/{id}", s.HandleToggleItem)
	mux.HandleFunc("POST /api/form/submit", s.HandleSubmit)
	mux.HandleFunc("GET /api/items/{id}/image", s.HandleItemImage)

	mux.Handle("GET /metrics", metrics.Handler())

	return RequestLogger(mux)
}
