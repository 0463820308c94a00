// Package cart implements the session-scoped shopping cart store and its
// single-slot persistence.
package cart

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/abgdnv/shopfront/internal/catalog"
)

// SlotKey is the fixed key the cart snapshot is persisted under.
const SlotKey = "demo_cart_v1"

// Line is one cart entry. Display fields are snapshotted from the catalog at
// the time of the first add and are not re-synced afterwards.
type Line struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Image string `json:"image"`
	Color string `json:"color"`
	Qty   int64  `json:"qty"`
}

// Store holds the cart lines for a single session, in insertion order, with
// at most one line per product ID. All operations are serialized by a mutex
// so that concurrent read-modify-write cycles on the same line cannot lose
// an increment. Every mutation persists the full snapshot to the slot.
type Store struct {
	mu      sync.Mutex
	key     string
	storage Storage
	lines   []Line
	logger  *slog.Logger
}

// NewStore creates a Store backed by the given storage and loads the slot
// once. A missing, unreadable or malformed snapshot is treated as "no prior
// state": the store starts empty and the failure is only debug-logged.
func NewStore(storage Storage, key string, logger *slog.Logger) *Store {
	s := &Store{
		key:     key,
		storage: storage,
		logger:  logger.With("component", "cart"),
	}
	data, err := storage.Load(key)
	if err != nil {
		s.logger.Debug("No prior cart state loaded", "key", key, "error", err)
		return s
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Debug("Discarding malformed cart snapshot", "key", key, "error", err)
		return s
	}
	s.lines = lines
	return s
}

// Add appends a new line with qty=1 for the product, or increments the
// existing line's quantity by 1.
func (s *Store) Add(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ID == p.ID {
			s.lines[i].Qty++
			s.persist()
			return
		}
	}
	s.lines = append(s.lines, Line{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Image: p.Image,
		Color: p.Color,
		Qty:   1,
	})
	s.persist()
}

// Remove drops the line with the given product ID. No-op if absent.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.persist()
			return
		}
	}
}

// Increment adds 1 to the quantity of the line with the given product ID.
func (s *Store) Increment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines[i].Qty++
			s.persist()
			return
		}
	}
}

// Decrement subtracts 1 from the quantity of the line with the given product
// ID, with a floor of 1. The line is never removed by decrementing.
func (s *Store) Decrement(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ID == id {
			if s.lines[i].Qty > 1 {
				s.lines[i].Qty--
			}
			s.persist()
			return
		}
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persist()
}

// Items returns a snapshot copy of the current lines in insertion order.
func (s *Store) Items() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// Total returns the sum of price times quantity over all lines,
// recomputed from the current state on every call.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, l := range s.lines {
		total += l.Price * l.Qty
	}
	return total
}

// persist writes the full snapshot to the slot. Must be called with the mutex
// held. Persistence failures never surface to the caller.
func (s *Store) persist() {
	data, err := json.Marshal(s.lines)
	if err != nil {
		s.logger.Error("Failed to serialize cart snapshot", "key", s.key, "error", err)
		return
	}
	if err := s.storage.Save(s.key, data); err != nil {
		s.logger.Error("Failed to persist cart snapshot", "key", s.key, "error", err)
	}
}
