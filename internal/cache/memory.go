package cache

import (
	"sync"

	"cfgsync-go/internal/cfgsync"
)

// MemoryCache is an in-memory implementation of the FallbackCache interface,
// useful for testing. Safe for concurrent use.
type MemoryCache struct {
	mu       sync.RWMutex
	record   *cfgsync.ConfigDocument
	edited   map[string]bool
	setup    bool
	legacy   bool
	sealed   string
}

var _ cfgsync.FallbackCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{edited: make(map[string]bool)}
}

func (m *MemoryCache) Record() (*cfgsync.ConfigDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil {
		return nil, nil
	}
	return m.record.Clone(), nil
}

func (m *MemoryCache) StoreRecord(doc *cfgsync.ConfigDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = doc.Clone()
	return nil
}

func (m *MemoryCache) DeleteRecord() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}

func (m *MemoryCache) HasRecord() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record != nil, nil
}

func (m *MemoryCache) EditedSections() (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	edited := make(map[string]bool, len(m.edited))
	for k, v := range m.edited {
		edited[k] = v
	}
	return edited, nil
}

func (m *MemoryCache) MarkEdited(section string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edited[section] = true
	return nil
}

func (m *MemoryCache) SetupComplete() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.setup, nil
}

func (m *MemoryCache) SetSetupComplete(v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setup = v
	return nil
}

func (m *MemoryCache) LegacyDebugRequiresAuth() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.legacy, nil
}

func (m *MemoryCache) SetLegacyDebugRequiresAuth(v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legacy = v
	return nil
}

func (m *MemoryCache) SealedGitHubToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sealed, nil
}

func (m *MemoryCache) SetSealedGitHubToken(sealed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed = sealed
	return nil
}

func (m *MemoryCache) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	m.edited = make(map[string]bool)
	m.setup = false
	m.legacy = false
	m.sealed = ""
	return nil
}

func (m *MemoryCache) Close() error { return nil }
