package secrets_test

import (
	"os"
	"path/filepath"
	"testing"

	"cfgsync-go/internal/secrets"
)

func TestAgeSealer_RoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "keys", "test.key")
	s := secrets.NewAgeSealer(keyPath)

	sealed, err := s.Seal("ghp_secret_token")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if sealed == "ghp_secret_token" {
		t.Fatal("Seal() returned the plaintext")
	}

	plain, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if plain != "ghp_secret_token" {
		t.Errorf("Open() = %q, want the original token", plain)
	}
}

func TestAgeSealer_CreatesIdentityOnFirstSeal(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "keys", "test.key")
	s := secrets.NewAgeSealer(keyPath)

	if _, err := s.Seal("token"); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("identity file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("identity file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestAgeSealer_ReusesIdentity(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "test.key")

	s1 := secrets.NewAgeSealer(keyPath)
	sealed, err := s1.Seal("token")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	// A fresh sealer over the same key file must be able to open it.
	s2 := secrets.NewAgeSealer(keyPath)
	plain, err := s2.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if plain != "token" {
		t.Errorf("Open() = %q, want %q", plain, "token")
	}
}

func TestAgeSealer_OpenPassthrough(t *testing.T) {
	t.Run("plaintext input is returned unchanged", func(t *testing.T) {
		keyPath := filepath.Join(t.TempDir(), "test.key")
		s := secrets.NewAgeSealer(keyPath)
		if _, err := s.Seal("prime the identity"); err != nil {
			t.Fatalf("Seal() error = %v", err)
		}

		// A value stored before encryption-at-rest existed.
		got, err := s.Open("ghp_legacy_plaintext")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if got != "ghp_legacy_plaintext" {
			t.Errorf("Open() = %q, want passthrough", got)
		}
	})

	t.Run("missing identity returns the input unchanged", func(t *testing.T) {
		s := secrets.NewAgeSealer(filepath.Join(t.TempDir(), "absent.key"))
		got, err := s.Open("anything")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if got != "anything" {
			t.Errorf("Open() = %q, want passthrough", got)
		}
	})
}
