// Package form holds the state of the "create collection point" form and
// orchestrates the reference data fetches and the final submission.
//
// A Form is safe for concurrent use. Its mutex is never held across network
// calls, so slow upstreams do not block field edits or map clicks.
package form

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/ecoleta/internal/api"
	"github.com/woozymasta/ecoleta/internal/geo"
	"github.com/woozymasta/ecoleta/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Sentinel is the "nothing selected" value of the state and city selects.
const Sentinel = "0"

// Load error sources reported in View.Errors.
const (
	SourceItems    = "items"
	SourceStates   = "states"
	SourceCities   = "cities"
	SourcePosition = "position"
	SourceSubmit   = "submit"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrUnknownItem  = errors.New("unknown item")
	ErrSubmitting   = errors.New("submission already in progress")
	ErrSubmitted    = errors.New("form already submitted")
	ErrUnknownState = errors.New("unknown state code")
)

// Catalog is the collection points backend.
type Catalog interface {
	Items(ctx context.Context) ([]api.Item, error)
	CreatePoint(ctx context.Context, p api.Point) error
}

// Localities provides the state and city lists.
type Localities interface {
	States(ctx context.Context) ([]string, error)
	Cities(ctx context.Context, uf string) ([]string, error)
}

// Locator answers a single current-position query.
type Locator interface {
	Locate(ctx context.Context) (geo.Position, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (geo.Position, error)

// Locate implements Locator.
func (f LocatorFunc) Locate(ctx context.Context) (geo.Position, error) { return f(ctx) }

// Form is one user's create-point form.
type Form struct {
	catalog    Catalog
	localities Localities
	validator  *Validator
	errs       map[string]string
	touched    time.Time

	id               string
	selectedUF       string
	selectedCity     string
	items            []api.Item
	ufs              []string
	cities           []string
	selectedItems    []int
	data             Data
	initialPosition  geo.Position
	selectedPosition geo.Position
	state            State
	ufGen            uint64

	mu sync.Mutex
}

// New creates an idle form with empty selections.
func New(id string, catalog Catalog, localities Localities, v *Validator) *Form {
	if v == nil {
		v = NewValidator(DefaultRules())
	}

	return &Form{
		id:           id,
		catalog:      catalog,
		localities:   localities,
		validator:    v,
		errs:         map[string]string{},
		selectedUF:   Sentinel,
		selectedCity: Sentinel,
		state:        StateIdle,
		touched:      time.Now(),
	}
}

// ID returns the form identifier.
func (f *Form) ID() string { return f.id }

// Load runs the mount fetches: geolocation, items and states, concurrently.
// Only the first call from Idle does any work. Every source runs to completion;
// failures are recorded per source and the first one is returned.
// A nil loc skips the position lookup.
func (f *Form) Load(ctx context.Context, loc Locator) error {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil
	}
	f.state = StateLoading
	f.mu.Unlock()

	err := f.fetch(ctx, loc, true, true)

	// A submit may have started while the fetches were running.
	f.mu.Lock()
	if f.state == StateLoading {
		f.state = StateEditing
	}
	f.mu.Unlock()

	return err
}

// Reload re-runs the mount fetches that previously failed.
func (f *Form) Reload(ctx context.Context, loc Locator) error {
	f.mu.Lock()
	if f.state == StateIdle {
		f.mu.Unlock()
		return f.Load(ctx, loc)
	}
	_, itemsFailed := f.errs[SourceItems]
	_, statesFailed := f.errs[SourceStates]
	_, posFailed := f.errs[SourcePosition]
	uf := f.selectedUF
	_, citiesFailed := f.errs[SourceCities]
	f.mu.Unlock()

	if !posFailed {
		loc = nil
	}

	err := f.fetch(ctx, loc, itemsFailed, statesFailed)
	if citiesFailed && uf != Sentinel {
		if cerr := f.SelectUF(ctx, uf); err == nil {
			err = cerr
		}
	}

	return err
}

func (f *Form) fetch(ctx context.Context, loc Locator, items, states bool) error {
	var g errgroup.Group

	if loc != nil {
		g.Go(func() error {
			pos, err := loc.Locate(ctx)
			if err == nil {
				pos, err = geo.Normalize(pos)
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			if err != nil {
				f.errs[SourcePosition] = err.Error()
				log.Debug().Err(err).Str("form", f.id).Msg("Geolocation unavailable")
				return fmt.Errorf("locate: %w", err)
			}
			delete(f.errs, SourcePosition)
			f.initialPosition = pos
			return nil
		})
	}

	if items {
		g.Go(func() error {
			list, err := f.catalog.Items(ctx)
			f.mu.Lock()
			defer f.mu.Unlock()
			if err != nil {
				f.errs[SourceItems] = err.Error()
				log.Error().Err(err).Str("form", f.id).Msg("Failed to load items")
				return err
			}
			delete(f.errs, SourceItems)
			f.items = list
			return nil
		})
	}

	if states {
		g.Go(func() error {
			ufs, err := f.localities.States(ctx)
			f.mu.Lock()
			defer f.mu.Unlock()
			if err != nil {
				f.errs[SourceStates] = err.Error()
				log.Error().Err(err).Str("form", f.id).Msg("Failed to load states")
				return err
			}
			delete(f.errs, SourceStates)
			f.ufs = ufs
			return nil
		})
	}

	return g.Wait()
}

// SelectUF sets the selected state and refreshes the city list.
// The code is upper-cased and, once the states are loaded, must be one of them.
// The city selection is reset. The sentinel clears the list without fetching.
// A response for a selection that has since been replaced is discarded.
func (f *Form) SelectUF(ctx context.Context, uf string) error {
	uf = strings.ToUpper(strings.TrimSpace(uf))

	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	if uf != Sentinel && f.ufs != nil && !slices.Contains(f.ufs, uf) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownState, uf)
	}
	f.selectedUF = uf
	f.selectedCity = Sentinel
	f.cities = nil
	delete(f.errs, SourceCities)
	f.ufGen++
	gen := f.ufGen
	f.touchLocked()
	f.mu.Unlock()

	if uf == Sentinel {
		return nil
	}

	cities, err := f.localities.Cities(ctx, uf)

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.ufGen {
		log.Debug().Str("form", f.id).Str("uf", uf).Msg("Discarding stale city list")
		return nil
	}
	if err != nil {
		f.errs[SourceCities] = err.Error()
		log.Error().Err(err).Str("form", f.id).Str("uf", uf).Msg("Failed to load cities")
		return err
	}

	f.cities = cities
	return nil
}

// SelectCity sets the selected city.
func (f *Form) SelectCity(city string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}
	f.selectedCity = city
	f.touchLocked()
	return nil
}

// SetPosition records a map click.
func (f *Form) SetPosition(p geo.Position) error {
	p, err := geo.Normalize(p)
	if err != nil {
		return &InputError{Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}
	f.selectedPosition = p
	f.touchLocked()
	return nil
}

// SetInitialPosition records a position reported by the browser geolocation API.
func (f *Form) SetInitialPosition(p geo.Position) error {
	p, err := geo.Normalize(p)
	if err != nil {
		return &InputError{Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.initialPosition = p
	delete(f.errs, SourcePosition)
	f.touchLocked()
	return nil
}

// SetField replaces one contact field, leaving the others untouched.
func (f *Form) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}

	data, err := f.data.With(name, value)
	if err != nil {
		return err
	}
	f.data = data
	f.touchLocked()
	return nil
}

// ToggleItem adds id to the selection, or removes it when already selected.
func (f *Form) ToggleItem(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editableLocked(); err != nil {
		return err
	}

	if f.items != nil && !slices.ContainsFunc(f.items, func(it api.Item) bool { return it.ID == id }) {
		return fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}

	f.selectedItems = Toggle(f.selectedItems, id)
	f.touchLocked()
	return nil
}

// Toggle returns a new list with id removed if present, appended otherwise.
func Toggle(ids []int, id int) []int {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(slices.Clone(ids), i, i+1)
	}

	return append(slices.Clone(ids), id)
}

// Payload aggregates the last-known values into the record to post.
func (f *Form) Payload() api.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloadLocked()
}

func (f *Form) payloadLocked() api.Point {
	return api.Point{
		Name:      f.data.Name,
		Email:     f.data.Email,
		Whatsapp:  f.data.Whatsapp,
		UF:        f.selectedUF,
		City:      f.selectedCity,
		Latitude:  f.selectedPosition.Latitude,
		Longitude: f.selectedPosition.Longitude,
		Items:     slices.Clone(f.selectedItems),
	}
}

// Submit validates the form and posts it once. On failure the form stays
// editable and the error is returned; a successful form is Done.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return ErrSubmitting
	case StateDone:
		f.mu.Unlock()
		return ErrSubmitted
	}

	p := f.payloadLocked()
	if err := f.validator.Validate(p); err != nil {
		f.mu.Unlock()
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	f.state = StateSubmitting
	delete(f.errs, SourceSubmit)
	f.touchLocked()
	f.mu.Unlock()

	err := f.catalog.CreatePoint(ctx, p)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = StateEditing
		f.errs[SourceSubmit] = err.Error()
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("form", f.id).Msg("Failed to submit point")
		return err
	}

	f.state = StateDone
	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	return nil
}

// Snapshot returns a copy of the form state for rendering.
func (f *Form) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	errs := make(map[string]string, len(f.errs))
	for k, v := range f.errs {
		errs[k] = v
	}

	return View{
		ID:               f.id,
		State:            f.state,
		Items:            nonNil(slices.Clone(f.items)),
		SelectedItems:    nonNil(slices.Clone(f.selectedItems)),
		UFs:              nonNil(slices.Clone(f.ufs)),
		Cities:           nonNil(slices.Clone(f.cities)),
		SelectedUF:       f.selectedUF,
		SelectedCity:     f.selectedCity,
		InitialPosition:  f.initialPosition,
		SelectedPosition: f.selectedPosition,
		Data:             f.data,
		Errors:           errs,
	}
}

// Item looks up a loaded item by id.
func (f *Form) Item(id int) (api.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, it := range f.items {
		if it.ID == id {
			return it, true
		}
	}
	return api.Item{}, false
}

// LastTouched returns the time of the last state change.
func (f *Form) LastTouched() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched
}

func (f *Form) editableLocked() error {
	switch f.state {
	case StateSubmitting:
		return ErrSubmitting
	case StateDone:
		return ErrSubmitted
	}
	return nil
}

func (f *Form) touchLocked() {
	f.touched = time.Now()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
