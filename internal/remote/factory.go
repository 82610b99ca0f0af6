package remote

import (
	"context"
	"fmt"
	"time"

	"cfgsync-go/internal/cfgsync"
	"cfgsync-go/internal/config"
)

// NewRemoteStoreFromConfig creates a RemoteStore implementation based on
// the remote config type.
func NewRemoteStoreFromConfig(ctx context.Context, cfg config.RemoteConfig) (cfgsync.RemoteStore, error) {
	switch cfg.Type {
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("base_url required for http remote")
		}
		return NewHTTPStore(cfg.BaseURL, cfg.APIKey, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}

// NewAccountDirectoryFromConfig creates an AccountDirectory implementation
// based on the accounts config type.
func NewAccountDirectoryFromConfig(cfg config.AccountsConfig) (cfgsync.AccountDirectory, error) {
	switch cfg.Type {
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("base_url required for http accounts")
		}
		return NewHTTPAccountDirectory(cfg.BaseURL, cfg.APIKey, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	case "memory":
		return NewMemoryAccountDirectory(), nil
	default:
		return nil, fmt.Errorf("unknown accounts type: %s", cfg.Type)
	}
}
