package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ClientID: "test-client-abc",
		BaseDir:  "/home/user/.local/share/cfgsync",
		LogDir:   "/home/user/.local/share/cfgsync/log",
		Remote: RemoteConfig{
			Type:           "http",
			BaseURL:        "https://config.internal:8443",
			APIKey:         "sekrit",
			TimeoutSeconds: 15,
		},
		Accounts: AccountsConfig{
			Type:           "http",
			BaseURL:        "https://users.internal:8443",
			TimeoutSeconds: 15,
		},
		Cache: CacheConfig{Type: "sqlite", DataDir: "/home/user/.local/share/cfgsync/cache"},
		Secrets: SecretsConfig{
			KeyPath: "/home/user/.local/share/cfgsync/keys/cfgsync.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.ClientID != original.ClientID {
		t.Errorf("ClientID = %q, want %q", got.ClientID, original.ClientID)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Remote.Type != "http" {
		t.Errorf("Remote.Type = %q, want %q", got.Remote.Type, "http")
	}
	if got.Remote.BaseURL != original.Remote.BaseURL {
		t.Errorf("Remote.BaseURL = %q, want %q", got.Remote.BaseURL, original.Remote.BaseURL)
	}
	if got.Remote.TimeoutSeconds != 15 {
		t.Errorf("Remote.TimeoutSeconds = %d, want 15", got.Remote.TimeoutSeconds)
	}
	if got.Accounts.BaseURL != original.Accounts.BaseURL {
		t.Errorf("Accounts.BaseURL = %q, want %q", got.Accounts.BaseURL, original.Accounts.BaseURL)
	}
	if got.Cache.Type != "sqlite" {
		t.Errorf("Cache.Type = %q, want %q", got.Cache.Type, "sqlite")
	}
	if got.Cache.DataDir != original.Cache.DataDir {
		t.Errorf("Cache.DataDir = %q, want %q", got.Cache.DataDir, original.Cache.DataDir)
	}
	if got.Secrets.KeyPath != original.Secrets.KeyPath {
		t.Errorf("Secrets.KeyPath = %q, want %q", got.Secrets.KeyPath, original.Secrets.KeyPath)
	}
}

func TestManager_ReadWrite_S3Remote(t *testing.T) {
	original := &Config{
		ClientID: "s3-client",
		BaseDir:  "/data/cfgsync",
		Remote: RemoteConfig{
			Type:              "s3",
			S3Bucket:          "team-config",
			S3Key:             "config/document.json",
			S3Region:          "eu-central-1",
			S3Endpoint:        "http://minio.internal:9000",
			S3AccessKeyID:     "AKIA...",
			S3SecretAccessKey: "secret",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Remote.Type != "s3" {
		t.Errorf("Remote.Type = %q, want %q", got.Remote.Type, "s3")
	}
	if got.Remote.S3Bucket != "team-config" {
		t.Errorf("S3Bucket = %q, want %q", got.Remote.S3Bucket, "team-config")
	}
	if got.Remote.S3Endpoint != original.Remote.S3Endpoint {
		t.Errorf("S3Endpoint = %q, want %q", got.Remote.S3Endpoint, original.Remote.S3Endpoint)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("client-1", "/data/cfgsync")

	if cfg.ClientID != "client-1" {
		t.Errorf("ClientID = %q, want %q", cfg.ClientID, "client-1")
	}
	if cfg.BaseDir != "/data/cfgsync" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/cfgsync")
	}
	if cfg.LogDir != "/data/cfgsync/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/cfgsync/log")
	}
	if cfg.Remote.Type != "http" {
		t.Errorf("Remote.Type = %q, want %q", cfg.Remote.Type, "http")
	}
	if cfg.Remote.TimeoutSeconds != 10 {
		t.Errorf("Remote.TimeoutSeconds = %d, want 10", cfg.Remote.TimeoutSeconds)
	}
	if cfg.Cache.Type != "sqlite" {
		t.Errorf("Cache.Type = %q, want %q", cfg.Cache.Type, "sqlite")
	}
	if cfg.Cache.DataDir != "/data/cfgsync/cache" {
		t.Errorf("Cache.DataDir = %q, want %q", cfg.Cache.DataDir, "/data/cfgsync/cache")
	}
	if cfg.Secrets.KeyPath != "/data/cfgsync/keys/cfgsync.key" {
		t.Errorf("Secrets.KeyPath = %q, want %q", cfg.Secrets.KeyPath, "/data/cfgsync/keys/cfgsync.key")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cfgsync.toml")
		cfg := NewConfig("c1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cfgsync.toml")
		cfg := NewConfig("c1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cfgsync.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Cache = CacheConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.ClientID != "read-test" {
			t.Errorf("ClientID = %q, want %q", got.ClientID, "read-test")
		}
		if got.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %q, want %q", got.Cache.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/cfgsync.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
