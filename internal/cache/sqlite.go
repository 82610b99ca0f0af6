package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cfgsync-go/internal/cache/migrations"
	"cfgsync-go/internal/cfgsync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Slot keys. Each holds one JSON-serialized value.
const (
	slotFallbackRecord    = "fallback_record"
	slotEditedSections    = "edited_sections"
	slotSetupComplete     = "setup_complete"
	slotLegacyDebugAuth   = "legacy_debug_requires_auth"
	slotSealedGitHubToken = "sealed_github_token"
)

// SQLiteCache implements the FallbackCache interface over a small key-value
// slot table in SQLite.
type SQLiteCache struct {
	db    *sql.DB
	path  string
	clock cfgsync.Clock
}

var _ cfgsync.FallbackCache = (*SQLiteCache)(nil)

// NewSQLiteCache opens (creating if necessary) the cache database at path
// and brings its schema up to date. path can be ":memory:" for tests.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache schema: %w", err)
	}

	return &SQLiteCache{db: db, path: path, clock: cfgsync.RealClock{}}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// appropriate PRAGMAs. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wait for locks instead of failing immediately; the cache can be
	// touched by a CLI invocation while the app holds the file.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// getSlot reads a slot's raw JSON value. Returns ("", nil) when absent.
func (c *SQLiteCache) getSlot(key string) (string, error) {
	var value string
	err := c.db.QueryRow("SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("reading slot %s: %w", key, err)
	}
	return value, nil
}

func (c *SQLiteCache) putSlot(key, value string) error {
	_, err := c.db.Exec(
		"INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, c.clock.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	return nil
}

func (c *SQLiteCache) deleteSlot(key string) error {
	if _, err := c.db.Exec("DELETE FROM slots WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting slot %s: %w", key, err)
	}
	return nil
}

func (c *SQLiteCache) Record() (*cfgsync.ConfigDocument, error) {
	raw, err := c.getSlot(slotFallbackRecord)
	if err != nil || raw == "" {
		return nil, err
	}
	var doc cfgsync.ConfigDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding fallback record: %w", err)
	}
	return &doc, nil
}

func (c *SQLiteCache) StoreRecord(doc *cfgsync.ConfigDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding fallback record: %w", err)
	}
	return c.putSlot(slotFallbackRecord, string(raw))
}

func (c *SQLiteCache) DeleteRecord() error {
	return c.deleteSlot(slotFallbackRecord)
}

func (c *SQLiteCache) HasRecord() (bool, error) {
	raw, err := c.getSlot(slotFallbackRecord)
	if err != nil {
		return false, err
	}
	return raw != "", nil
}

func (c *SQLiteCache) EditedSections() (map[string]bool, error) {
	raw, err := c.getSlot(slotEditedSections)
	if err != nil {
		return nil, err
	}
	edited := make(map[string]bool)
	if raw == "" {
		return edited, nil
	}
	if err := json.Unmarshal([]byte(raw), &edited); err != nil {
		return nil, fmt.Errorf("decoding edited sections: %w", err)
	}
	return edited, nil
}

func (c *SQLiteCache) MarkEdited(section string) error {
	edited, err := c.EditedSections()
	if err != nil {
		return err
	}
	if edited[section] {
		return nil
	}
	edited[section] = true
	raw, err := json.Marshal(edited)
	if err != nil {
		return fmt.Errorf("encoding edited sections: %w", err)
	}
	return c.putSlot(slotEditedSections, string(raw))
}

func (c *SQLiteCache) SetupComplete() (bool, error) {
	return c.getBool(slotSetupComplete)
}

func (c *SQLiteCache) SetSetupComplete(v bool) error {
	return c.putBool(slotSetupComplete, v)
}

func (c *SQLiteCache) LegacyDebugRequiresAuth() (bool, error) {
	return c.getBool(slotLegacyDebugAuth)
}

func (c *SQLiteCache) SetLegacyDebugRequiresAuth(v bool) error {
	return c.putBool(slotLegacyDebugAuth, v)
}

func (c *SQLiteCache) SealedGitHubToken() (string, error) {
	raw, err := c.getSlot(slotSealedGitHubToken)
	if err != nil || raw == "" {
		return "", err
	}
	var token string
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return "", fmt.Errorf("decoding sealed token: %w", err)
	}
	return token, nil
}

func (c *SQLiteCache) SetSealedGitHubToken(sealed string) error {
	raw, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("encoding sealed token: %w", err)
	}
	return c.putSlot(slotSealedGitHubToken, string(raw))
}

// Reset clears every slot. This is the only path that lowers edited flags.
func (c *SQLiteCache) Reset() error {
	if _, err := c.db.Exec("DELETE FROM slots"); err != nil {
		return fmt.Errorf("clearing cache slots: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) getBool(key string) (bool, error) {
	raw, err := c.getSlot(key)
	if err != nil || raw == "" {
		return false, err
	}
	var v bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return false, fmt.Errorf("decoding slot %s: %w", key, err)
	}
	return v, nil
}

func (c *SQLiteCache) putBool(key string, v bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding slot %s: %w", key, err)
	}
	return c.putSlot(key, string(raw))
}
