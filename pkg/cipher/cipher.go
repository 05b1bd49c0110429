// Package cipher wraps AES-256-GCM for secrets stored at rest (account
// passwords, TOTP seeds and PINs).
//
// Ciphertexts are URL-safe base64 of nonce || sealed box, so they can be
// stored in plain TEXT columns and compared as strings.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeyLength is the AES-256 key size in bytes.
	KeyLength = 32

	// NonceLength is the GCM nonce size in bytes.
	NonceLength = 12

	// MinPassphraseLength is the shortest ENCRYPTION_KEY accepted as a passphrase.
	MinPassphraseLength = 32

	passphraseSalt = "vaultgate/encryption-key"
)

var (
	// ErrDecryption is returned for malformed, truncated, tampered or
	// foreign-keyed ciphertext.
	ErrDecryption = errors.New("cipher: decryption failed")

	// ErrInvalidKeyLength indicates a raw key that is not 32 bytes.
	ErrInvalidKeyLength = errors.New("cipher: invalid key length, must be 32 bytes")

	// ErrWeakKey indicates ENCRYPTION_KEY is neither a raw key nor a long enough passphrase.
	ErrWeakKey = fmt.Errorf("cipher: encryption key must be 64 hex chars, base64 of 32 bytes or a passphrase of at least %d characters", MinPassphraseLength)
)

// Cipher encrypts and decrypts strings with a single process-wide key.
// It is safe for concurrent use.
type Cipher struct {
	key  []byte
	aead cipher.AEAD
}

// New creates a Cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	k := make([]byte, KeyLength)
	copy(k, key)

	return &Cipher{key: k, aead: aead}, nil
}

// NewFromSecret parses ENCRYPTION_KEY with ParseKey and builds a Cipher.
func NewFromSecret(secret string) (*Cipher, error) {
	key, err := ParseKey(secret)
	if err != nil {
		return nil, err
	}
	return New(key)
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceLength, NonceLength+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryption
	}
	if len(raw) < NonceLength+c.aead.Overhead() {
		return "", ErrDecryption
	}

	plaintext, err := c.aead.Open(nil, raw[:NonceLength], raw[NonceLength:], nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}

// DeriveKey returns an independent 32-byte sub-key for the given purpose.
func (c *Cipher) DeriveKey(info string) ([]byte, error) {
	return deriveHKDF(c.key, nil, []byte(info))
}

// ParseKey turns ENCRYPTION_KEY into a 32-byte key. Hex (64 chars) and
// standard base64 encodings of 32 bytes are used as is; anything else of at
// least MinPassphraseLength characters is stretched with HKDF-SHA256.
func ParseKey(secret string) ([]byte, error) {
	if len(secret) == 2*KeyLength {
		if key, err := hex.DecodeString(secret); err == nil {
			return key, nil
		}
	}

	if key, err := base64.StdEncoding.DecodeString(secret); err == nil && len(key) == KeyLength {
		return key, nil
	}

	if len(secret) < MinPassphraseLength {
		return nil, ErrWeakKey
	}

	return deriveHKDF([]byte(secret), []byte(passphraseSalt), []byte("vaultgate/aes-256-gcm"))
}

// GenerateKey returns a random key encoded for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func deriveHKDF(secret, salt, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
