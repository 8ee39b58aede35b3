package prefs

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"MarketDash/internal/model"
)

// Store is the session's single source of truth for display preferences.
// An empty filePath keeps the state in memory only.
type Store struct {
	// notifyMu serialises mutate calls so observers see mutations in order.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	currency  model.Currency
	favorites map[string]struct{}
	filePath  string

	observers map[int]func(model.Prefs)
	nextID    int
}

// NewStore creates a Store with the given defaults, then overlays any state found at filePath.
func NewStore(filePath string, currency model.Currency, favorites []string) (*Store, error) {
	if currency == "" {
		currency = model.DefaultCurrency
	}
	s := &Store{
		currency:  currency,
		favorites: make(map[string]struct{}),
		filePath:  filePath,
		observers: make(map[int]func(model.Prefs)),
	}
	for _, id := range favorites {
		s.favorites[id] = struct{}{}
	}

	if filePath == "" {
		return s, nil
	}
	saved, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load prefs state: %w", err)
	}
	if saved != nil {
		if c, err := model.ParseCurrency(string(saved.Currency)); err == nil {
			s.currency = c
		}
		s.favorites = make(map[string]struct{}, len(saved.Favorites))
		for _, id := range saved.Favorites {
			s.favorites[id] = struct{}{}
		}
	}
	return s, nil
}

// Currency returns the current display currency.
func (s *Store) Currency() model.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency
}

// SetCurrency replaces the display currency.
func (s *Store) SetCurrency(c model.Currency) {
	s.mutate(func() bool {
		if s.currency == c {
			return false
		}
		s.currency = c
		return true
	})
}

// ToggleCurrency switches INR <-> USD and returns the new value.
func (s *Store) ToggleCurrency() model.Currency {
	var next model.Currency
	s.mutate(func() bool {
		next = s.currency.Other()
		s.currency = next
		return true
	})
	return next
}

// IsFavorite reports whether id is in the favorites set.
func (s *Store) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.favorites[id]
	return ok
}

// AddFavorite inserts id. Adding an existing id is a no-op.
func (s *Store) AddFavorite(id string) {
	s.mutate(func() bool {
		if _, ok := s.favorites[id]; ok {
			return false
		}
		s.favorites[id] = struct{}{}
		return true
	})
}

// RemoveFavorite deletes id if present.
func (s *Store) RemoveFavorite(id string) {
	s.mutate(func() bool {
		if _, ok := s.favorites[id]; !ok {
			return false
		}
		delete(s.favorites, id)
		return true
	})
}

// Favorites returns the favorited ids in sorted order.
func (s *Store) Favorites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedFavorites()
}

// Snapshot returns a copy of the whole preference state.
func (s *Store) Snapshot() model.Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Prefs{Currency: s.currency, Favorites: s.sortedFavorites()}
}

// Subscribe registers fn to be called after every effective mutation.
// Observers run synchronously on the mutating goroutine, in mutation order,
// and must not mutate the store themselves.
func (s *Store) Subscribe(fn func(model.Prefs)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// mutate applies change under the lock; when it reports a change the state is
// saved and observers are notified with the resulting snapshot.
func (s *Store) mutate(change func() bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !change() {
		s.mu.Unlock()
		return
	}
	snap := model.Prefs{Currency: s.currency, Favorites: s.sortedFavorites()}
	observers := make([]func(model.Prefs), 0, len(s.observers))
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	if s.filePath != "" {
		if err := SaveState(s.filePath, snap); err != nil {
			log.Printf("[ERROR] failed to save prefs state: %v", err)
		}
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (s *Store) sortedFavorites() []string {
	ids := make([]string, 0, len(s.favorites))
	for id := range s.favorites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
