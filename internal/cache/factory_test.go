package cache_test

import (
	"testing"

	"cfgsync-go/internal/cache"
	"cfgsync-go/internal/config"
)

func TestNewCacheFromConfig(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		c, err := cache.NewCacheFromConfig(config.CacheConfig{
			Type:    "sqlite",
			DataDir: t.TempDir(),
		}, "client-1")
		if err != nil {
			t.Fatalf("NewCacheFromConfig() error = %v", err)
		}
		defer c.Close()

		if _, ok := c.(*cache.SQLiteCache); !ok {
			t.Errorf("got %T, want *cache.SQLiteCache", c)
		}
	})

	t.Run("sqlite requires a data dir", func(t *testing.T) {
		_, err := cache.NewCacheFromConfig(config.CacheConfig{Type: "sqlite"}, "client-1")
		if err == nil {
			t.Fatal("expected error without data_dir")
		}
	})

	t.Run("memory", func(t *testing.T) {
		c, err := cache.NewCacheFromConfig(config.CacheConfig{Type: "memory"}, "client-1")
		if err != nil {
			t.Fatalf("NewCacheFromConfig() error = %v", err)
		}
		defer c.Close()

		if _, ok := c.(*cache.MemoryCache); !ok {
			t.Errorf("got %T, want *cache.MemoryCache", c)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := cache.NewCacheFromConfig(config.CacheConfig{Type: "redis"}, "client-1")
		if err == nil {
			t.Fatal("expected error for unknown cache type")
		}
	})
}
