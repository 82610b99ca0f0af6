package remote

import (
	"context"
	"fmt"
	"sync"

	"cfgsync-go/internal/cfgsync"
)

// MemoryStore is an in-memory implementation of the RemoteStore interface.
// It is useful for testing: SetOffline simulates an unreachable remote and
// SetRejectWrites simulates server-side validation refusals. Safe for
// concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	doc          *cfgsync.ConfigDocument
	offline      bool
	rejectWrites bool
}

var _ cfgsync.RemoteStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetOffline makes every subsequent call fail with ErrRemoteUnavailable.
func (m *MemoryStore) SetOffline(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = v
}

// SetRejectWrites makes every subsequent write fail with
// ErrValidationRejected.
func (m *MemoryStore) SetRejectWrites(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectWrites = v
}

// Document returns a copy of the stored document, or nil. For test
// assertions.
func (m *MemoryStore) Document() *cfgsync.ConfigDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil
	}
	return m.doc.Clone()
}

func (m *MemoryStore) Exists(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offline {
		return false, fmt.Errorf("memory store offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	return m.doc != nil, nil
}

func (m *MemoryStore) Load(ctx context.Context) (*cfgsync.ConfigDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offline {
		return nil, fmt.Errorf("memory store offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	if m.doc == nil {
		return nil, fmt.Errorf("no stored configuration: %w", cfgsync.ErrNotFound)
	}
	// The GitHub token is write-only on the wire; responses never carry it.
	return m.doc.StripGitHubToken(), nil
}

func (m *MemoryStore) Save(ctx context.Context, doc *cfgsync.ConfigDocument) (*cfgsync.ConfigDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return nil, err
	}
	m.doc = doc.Clone()
	return m.doc.StripGitHubToken(), nil
}

func (m *MemoryStore) Update(ctx context.Context, patch *cfgsync.SectionPatch) (*cfgsync.ConfigDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(); err != nil {
		return nil, err
	}
	cur := m.doc
	if cur == nil {
		cur = cfgsync.DefaultDocument()
	}
	patch.ApplyTo(cur)
	m.doc = cur
	return m.doc.StripGitHubToken(), nil
}

func (m *MemoryStore) Replace(ctx context.Context, doc *cfgsync.ConfigDocument) (*cfgsync.ConfigDocument, error) {
	return m.Save(ctx, doc)
}

func (m *MemoryStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return fmt.Errorf("memory store offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	m.doc = nil
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offline {
		return fmt.Errorf("memory store offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	return nil
}

// writable is called with the lock held.
func (m *MemoryStore) writable() error {
	if m.offline {
		return fmt.Errorf("memory store offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	if m.rejectWrites {
		return fmt.Errorf("memory store rejecting writes: %w", cfgsync.ErrValidationRejected)
	}
	return nil
}

// MemoryAccountDirectory is an in-memory implementation of the
// AccountDirectory interface for testing.
type MemoryAccountDirectory struct {
	mu       sync.RWMutex
	accounts map[string]*cfgsync.UserAccount
	offline  bool
}

var _ cfgsync.AccountDirectory = (*MemoryAccountDirectory)(nil)

// NewMemoryAccountDirectory creates an empty in-memory directory.
func NewMemoryAccountDirectory() *MemoryAccountDirectory {
	return &MemoryAccountDirectory{accounts: make(map[string]*cfgsync.UserAccount)}
}

// SetOffline makes every subsequent call fail with ErrRemoteUnavailable.
func (d *MemoryAccountDirectory) SetOffline(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offline = v
}

// Add seeds an account. For test setup.
func (d *MemoryAccountDirectory) Add(username string, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[username] = &cfgsync.UserAccount{
		Username:  username,
		IsActive:  active,
		IsDefault: username == cfgsync.AdminUsername,
	}
}

// Active reports an account's live active flag. For test assertions.
func (d *MemoryAccountDirectory) Active(username string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[username]
	return ok && a.IsActive
}

func (d *MemoryAccountDirectory) List(ctx context.Context) ([]cfgsync.UserAccount, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.offline {
		return nil, fmt.Errorf("account directory offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	out := make([]cfgsync.UserAccount, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (d *MemoryAccountDirectory) ToggleActive(ctx context.Context, username string) (*cfgsync.UserAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.offline {
		return nil, fmt.Errorf("account directory offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	a, ok := d.accounts[username]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", username, cfgsync.ErrNotFound)
	}
	a.IsActive = !a.IsActive
	cp := *a
	return &cp, nil
}

func (d *MemoryAccountDirectory) Create(ctx context.Context, username, password string) (*cfgsync.UserAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.offline {
		return nil, fmt.Errorf("account directory offline: %w", cfgsync.ErrRemoteUnavailable)
	}
	if _, ok := d.accounts[username]; ok {
		return nil, fmt.Errorf("account %q already exists: %w", username, cfgsync.ErrValidationRejected)
	}
	a := &cfgsync.UserAccount{Username: username, IsActive: true}
	d.accounts[username] = a
	cp := *a
	return &cp, nil
}
