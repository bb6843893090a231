// Package server handles HTTP requests and middleware.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/ecoleta/internal/api"
	"github.com/woozymasta/ecoleta/internal/config"
	"github.com/woozymasta/ecoleta/internal/form"
	"github.com/woozymasta/ecoleta/internal/geo"
	"github.com/woozymasta/ecoleta/internal/ibge"
)

const (
	sessionFormKey = "form"
	maxBodyBytes   = 64 << 10
)

var errBadRequest = errors.New("bad request")

type formResponse struct {
	Map  *config.Map `json:"map,omitempty"`
	Form form.View   `json:"form"`
}

type submitResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

type errorResponse struct {
	Fields map[string]string `json:"fields,omitempty"`
	Error  string            `json:"error"`
}

// HandleHome serves the landing page.
func (s *ServerContext) HandleHome(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, s.Pages.Home)
}

// HandleCreatePoint serves the form page. The form state itself is fetched by the page from /api/form.
func (s *ServerContext) HandleCreatePoint(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, s.Pages.CreatePoint)
}

// HandleLogo serves the site logo.
func (s *ServerContext) HandleLogo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Pages.Logo)
}

func (s *ServerContext) servePage(w http.ResponseWriter, r *http.Request, page []byte) {
	etag := fmt.Sprintf(`"%x"`, len(page))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(page)
}

// HandleForm loads the session's form on first use and returns its state with the map settings.
func (s *ServerContext) HandleForm(w http.ResponseWriter, r *http.Request) {
	f, err := s.formFor(w, r)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	// Load failures are reported per source inside the view.
	_ = f.Load(r.Context(), s.locatorFor(r))

	s.writeJSON(w, http.StatusOK, formResponse{Form: f.Snapshot(), Map: &s.Config.Map})
}

// HandleReload retries the fetches that failed.
func (s *ServerContext) HandleReload(w http.ResponseWriter, r *http.Request) {
	s.withForm(w, r, func(f *form.Form) error {
		_ = f.Reload(r.Context(), s.locatorFor(r))
		return nil
	})
}

// HandleInitialPosition records the browser geolocation result.
func (s *ServerContext) HandleInitialPosition(w http.ResponseWriter, r *http.Request) {
	var in geo.Position
	s.withBody(w, r, &in, func(f *form.Form) error {
		return f.SetInitialPosition(in)
	})
}

// HandlePosition records a map click.
func (s *ServerContext) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var in geo.Position
	s.withBody(w, r, &in, func(f *form.Form) error {
		return f.SetPosition(in)
	})
}

// HandleField updates one contact field.
func (s *ServerContext) HandleField(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	s.withBody(w, r, &in, func(f *form.Form) error {
		return f.SetField(in.Name, in.Value)
	})
}

// HandleUF selects a state and returns the refreshed city list.
func (s *ServerContext) HandleUF(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UF string `json:"uf"`
	}
	s.withBody(w, r, &in, func(f *form.Form) error {
		return f.SelectUF(r.Context(), in.UF)
	})
}

// HandleCity selects a city.
func (s *ServerContext) HandleCity(w http.ResponseWriter, r *http.Request) {
	var in struct {
		City string `json:"city"`
	}
	s.withBody(w, r, &in, func(f *form.Form) error {
		return f.SelectCity(in.City)
	})
}

// HandleToggleItem toggles the item in the path.
func (s *ServerContext) HandleToggleItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: item id %q", errBadRequest, r.PathValue("id")), http.StatusBadRequest)
		return
	}

	s.withForm(w, r, func(f *form.Form) error {
		return f.ToggleItem(id)
	})
}

// HandleSubmit posts the point. A submitted form is dropped from the session.
func (s *ServerContext) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.Limiter != nil && !s.Limiter.Allow(clientIP(r)) {
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many submissions, try again later"})
		return
	}

	f, err := s.formFor(w, r)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	if err := f.Submit(r.Context()); err != nil {
		s.writeError(w, err, http.StatusBadGateway)
		return
	}

	s.Forms.Delete(f.ID())
	if sess, err := s.Sessions.Get(r, s.Config.Session.Name); err == nil {
		delete(sess.Values, sessionFormKey)
		_ = sess.Save(r, w)
	}

	s.writeJSON(w, http.StatusCreated, submitResponse{Message: "ponto criado", Redirect: "/"})
}

// HandleMarker serves the selected position as GeoJSON.
func (s *ServerContext) HandleMarker(w http.ResponseWriter, r *http.Request) {
	f, err := s.formFor(w, r)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	v := f.Snapshot()
	fc := geo.Collection()
	if !v.SelectedPosition.IsZero() {
		fc = geo.Collection(geo.PointFeature(v.SelectedPosition, map[string]interface{}{
			"name": v.Data.Name,
			"uf":   v.SelectedUF,
			"city": v.SelectedCity,
		}))
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_ = json.NewEncoder(w).Encode(fc)
}

// HandleItemImage serves the thumbnail of an item loaded into the session's form.
func (s *ServerContext) HandleItemImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	f, err := s.formFor(w, r)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	item, ok := f.Item(id)
	if !ok || item.ImageURL == "" {
		http.NotFound(w, r)
		return
	}

	if s.Thumbs == nil {
		http.Redirect(w, r, item.ImageURL, http.StatusFound)
		return
	}

	th, err := s.Thumbs.Get(r.Context(), item.ImageURL)
	if err != nil {
		log.Warn().Err(err).Int("item", id).Msg("Thumbnail unavailable, redirecting to source")
		http.Redirect(w, r, item.ImageURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", th.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(th.Data)
}

// withForm runs fn on the session's form and answers with its snapshot.
func (s *ServerContext) withForm(w http.ResponseWriter, r *http.Request, fn func(*form.Form) error) {
	f, err := s.formFor(w, r)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}

	if err := fn(f); err != nil {
		s.writeError(w, err, http.StatusBadGateway)
		return
	}

	s.writeJSON(w, http.StatusOK, formResponse{Form: f.Snapshot()})
}

// withBody decodes the JSON body into in before running fn.
func (s *ServerContext) withBody(w http.ResponseWriter, r *http.Request, in any, fn func(*form.Form) error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}

	s.withForm(w, r, fn)
}

// formFor returns the form bound to the request's session, creating both when missing.
func (s *ServerContext) formFor(w http.ResponseWriter, r *http.Request) (*form.Form, error) {
	// A cookie that fails to decode yields a fresh session.
	sess, _ := s.Sessions.Get(r, s.Config.Session.Name)
	if sess == nil {
		return nil, errors.New("session store returned no session")
	}

	if id, ok := sess.Values[sessionFormKey].(string); ok {
		if f, ok := s.Forms.Get(id); ok {
			return f, nil
		}
	}

	f := s.Forms.Create()
	sess.Values[sessionFormKey] = f.ID()
	if err := sess.Save(r, w); err != nil {
		s.Forms.Delete(f.ID())
		return nil, fmt.Errorf("save session: %w", err)
	}

	return f, nil
}

func (s *ServerContext) locatorFor(r *http.Request) form.Locator {
	if s.Locator == nil {
		return nil
	}
	return form.LocatorFunc(s.Locator.For(r.RemoteAddr))
}

func (s *ServerContext) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes; unclassified errors get fallback.
func (s *ServerContext) writeError(w http.ResponseWriter, err error, fallback int) {
	status := fallback
	resp := errorResponse{Error: err.Error()}

	var (
		verr    *form.ValidationError
		inErr   *form.InputError
		apiErr  *api.StatusError
		ibgeErr *ibge.StatusError
	)

	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		resp.Fields = verr.Fields
	case errors.As(err, &inErr),
		errors.Is(err, errBadRequest),
		errors.Is(err, form.ErrUnknownField),
		errors.Is(err, form.ErrUnknownItem),
		errors.Is(err, form.ErrUnknownState),
		errors.Is(err, ibge.ErrEmptyUF):
		status = http.StatusBadRequest
	case errors.Is(err, form.ErrSubmitting), errors.Is(err, form.ErrSubmitted):
		status = http.StatusConflict
	case errors.As(err, &apiErr), errors.As(err, &ibgeErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	s.writeJSON(w, status, resp)
}
