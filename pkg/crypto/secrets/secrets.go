// Package secrets seals small records (offline tokens) with AES-256-GCM before they are
// written to the device store.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/carverauto/devicelock/pkg/hashutil"
)

const (
	keyLength   = 32
	nonceLength = 12
)

var (
	// ErrInvalidKeyLength indicates the provided key is not the required size.
	ErrInvalidKeyLength = errors.New("secrets: encryption key must be 32 bytes")
	// ErrCiphertextTooShort indicates the ciphertext payload is shorter than the nonce.
	ErrCiphertextTooShort = errors.New("secrets: ciphertext too short")
)

// Cipher wraps AES-GCM helpers for sealing records bound to a label.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher constructs a Cipher from the provided key bytes.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: init gcm: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// NewCipherFromString decodes a hex or base64 key from configuration.
func NewCipherFromString(encoded string) (*Cipher, error) {
	key, err := hashutil.DecodeBytes(encoded)
	if err != nil {
		return nil, fmt.Errorf("secrets: decode key: %w", err)
	}

	return NewCipher(key)
}

// Seal encrypts plaintext and returns a base64 payload. label is authenticated but not
// encrypted; a payload only opens under the label it was sealed with.
func (c *Cipher) Seal(plaintext []byte, label string) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nonce, nonce, plaintext, []byte(label))

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open reverses Seal.
func (c *Cipher) Open(encoded, label string) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("secrets: decode ciphertext: %w", err)
	}

	if len(payload) < nonceLength {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := c.aead.Open(nil, payload[:nonceLength], payload[nonceLength:], []byte(label))
	if err != nil {
		return nil, fmt.Errorf("secrets: decrypt payload: %w", err)
	}

	return plaintext, nil
}
