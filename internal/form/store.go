package form

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/ecoleta/internal/metrics"
)

// Store keeps the forms of all active sessions in memory.
type Store struct {
	catalog    Catalog
	localities Localities
	validator  *Validator
	forms      map[string]*Form
	mu         sync.RWMutex
}

// NewStore creates a store whose forms use the given collaborators.
func NewStore(catalog Catalog, localities Localities, v *Validator) *Store {
	return &Store{
		catalog:    catalog,
		localities: localities,
		validator:  v,
		forms:      make(map[string]*Form),
	}
}

// Create registers a new idle form with a random id.
func (s *Store) Create() *Form {
	f := New(uuid.NewString(), s.catalog, s.localities, s.validator)

	s.mu.Lock()
	s.forms[f.ID()] = f
	n := len(s.forms)
	s.mu.Unlock()

	metrics.FormsActive.Set(float64(n))
	log.Debug().Str("form", f.ID()).Int("active", n).Msg("Form created")
	return f
}

// Get returns the form with id.
func (s *Store) Get(id string) (*Form, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.forms[id]
	return f, ok
}

// Delete drops the form with id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.forms, id)
	n := len(s.forms)
	s.mu.Unlock()

	metrics.FormsActive.Set(float64(n))
}

// Len returns the number of stored forms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forms)
}

// Sweep drops forms untouched since before cutoff and returns how many were removed.
func (s *Store) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, f := range s.forms {
		if f.LastTouched().Before(cutoff) {
			delete(s.forms, id)
			removed++
		}
	}
	n := len(s.forms)
	s.mu.Unlock()

	metrics.FormsActive.Set(float64(n))
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("active", n).Msg("Expired forms swept")
	}
	return removed
}

// RunSweeper sweeps forms idle longer than ttl every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now.Add(-ttl))
		}
	}
}
