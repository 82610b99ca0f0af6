// Package secrets seals secret values before they are written to the
// fallback cache, so the GitHub access token never reaches disk in
// plaintext.
package secrets

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"cfgsync-go/internal/cfgsync"
)

// AgeSealer implements cfgsync.Sealer using filippo.io/age with an X25519
// identity stored on the local machine. The identity is generated on first
// use. Sealed values are base64 of the age ciphertext so they fit in the
// cache's text slots.
type AgeSealer struct {
	keyPath string
}

var _ cfgsync.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a sealer whose identity lives at keyPath.
func NewAgeSealer(keyPath string) *AgeSealer {
	return &AgeSealer{keyPath: keyPath}
}

// Seal encrypts plain for the local identity, generating the identity first
// if none exists yet.
func (s *AgeSealer) Seal(plain string) (string, error) {
	identity, err := s.loadOrCreateIdentity()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.WriteString(w, plain); err != nil {
		return "", fmt.Errorf("encrypting value: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finishing encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Open recovers the plaintext of a sealed value. Input that does not look
// like a sealed value is returned unchanged: older installations stored the
// token in plaintext and must keep working.
func (s *AgeSealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return sealed, nil
	}

	identity, err := s.loadIdentity()
	if err != nil {
		// No identity means nothing was ever sealed on this machine.
		return sealed, nil
	}

	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return sealed, nil
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decrypting value: %w", err)
	}
	return string(plain), nil
}

// loadOrCreateIdentity returns the local identity, generating and storing a
// new one when the key file does not exist yet.
func (s *AgeSealer) loadOrCreateIdentity() (*age.X25519Identity, error) {
	identity, err := s.loadIdentity()
	if err == nil {
		return identity, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(s.keyPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("writing identity file: %w", err)
	}
	return identity, nil
}

func (s *AgeSealer) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.keyPath)
	if err != nil {
		return nil, err
	}
	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", s.keyPath, err)
	}
	return identity, nil
}
