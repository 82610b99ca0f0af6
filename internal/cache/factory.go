package cache

import (
	"fmt"
	"path/filepath"

	"cfgsync-go/internal/cfgsync"
	"cfgsync-go/internal/config"
)

// NewCacheFromConfig creates a FallbackCache implementation based on the
// cache config type.
func NewCacheFromConfig(cfg config.CacheConfig, clientID string) (cfgsync.FallbackCache, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite cache")
		}
		dbPath := filepath.Join(cfg.DataDir, clientID+".db")
		return NewSQLiteCache(dbPath)
	case "memory":
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
