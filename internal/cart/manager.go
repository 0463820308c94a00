package cart

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
)

// Manager hands out one Store per session. Each session gets its own storage
// namespace (a subdirectory of the data directory), so the fixed slot key
// stays local to one client, mirroring per-browser local storage.
type Manager struct {
	mu      sync.Mutex
	dataDir string
	stores  map[string]*Store
	logger  *slog.Logger
}

// NewManager creates a Manager keeping cart slots under dataDir.
func NewManager(dataDir string, logger *slog.Logger) *Manager {
	return &Manager{
		dataDir: dataDir,
		stores:  make(map[string]*Store),
		logger:  logger,
	}
}

// Store returns the cart store for the given session ID, creating and
// hydrating it on first use.
func (m *Manager) Store(sessionID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[sessionID]; ok {
		return s, nil
	}
	storage, err := NewFileStorage(filepath.Join(m.dataDir, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to open cart storage for session %s: %w", sessionID, err)
	}
	s := NewStore(storage, SlotKey, m.logger)
	m.stores[sessionID] = s
	return s, nil
}
