// File: internal/infra/security/encryption_service.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrCiphertextTooShort reports a stored value shorter than the GCM nonce,
// usually a row written before encryption was enabled.
var ErrCiphertextTooShort = errors.New("ciphertext shorter than nonce")

// EncryptionService seals provider secrets (gateway API keys, the panel
// password) before they reach the bot_settings table. AES-GCM, one random
// nonce per value, stored as base64(nonce || ciphertext).
type EncryptionService struct {
	aead cipher.AEAD
}

// NewEncryptionService builds the service from a raw key.
// AES requires 16, 24, or 32 key bytes.
func NewEncryptionService(key string) (*EncryptionService, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &EncryptionService{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh nonce.
func (e *EncryptionService) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or foreign-key ciphertext fails the
// GCM tag check.
func (e *EncryptionService) Decrypt(stored string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	ns := e.aead.NonceSize()
	if len(data) < ns {
		return "", ErrCiphertextTooShort
	}
	plain, err := e.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(plain), nil
}
