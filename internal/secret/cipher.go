// Package secret provides passphrase-derived authenticated encryption for
// credentials and auth tokens stored on disk.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultPassphrase is used when SIMULPOST_SECRET_PASSWORD is unset.
	// It is publicly known, so anything encrypted with it is only obfuscated.
	DefaultPassphrase = "default-simulpost-password"

	// DefaultIterations is the PBKDF2 iteration count for key derivation.
	DefaultIterations = 100_000

	keyLength = 32
)

// DefaultSalt is the fixed salt mixed into every derived key.
var DefaultSalt = []byte("simulpost_salt_")

var (
	// ErrUnavailable is returned by every operation on a cipher that failed to initialize.
	ErrUnavailable = errors.New("encryption unavailable")

	// ErrDecryption is returned when a ciphertext is malformed, was sealed
	// under another key, or fails authentication.
	ErrDecryption = errors.New("decryption failed")
)

// Cipher seals and opens opaque strings with AES-256-GCM.
// A nil *Cipher is valid and fails closed with ErrUnavailable.
type Cipher struct {
	aead cipher.AEAD
}

type options struct {
	salt       []byte
	iterations int
}

// Option customizes key derivation.
type Option func(*options)

// WithSalt overrides the derivation salt.
func WithSalt(salt []byte) Option {
	return func(o *options) { o.salt = salt }
}

// WithIterations overrides the PBKDF2 iteration count. Tests use a low value
// to keep derivation cheap.
func WithIterations(n int) Option {
	return func(o *options) { o.iterations = n }
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over passphrase and salt and returns the
// 256-bit result base64url-encoded.
func DeriveKey(passphrase string, salt []byte, iterations int) string {
	raw := pbkdf2.Key([]byte(passphrase), salt, iterations, keyLength, sha256.New)
	return base64.URLEncoding.EncodeToString(raw)
}

// New derives a key from passphrase and returns a ready Cipher.
// An empty passphrase selects DefaultPassphrase.
func New(passphrase string, opts ...Option) (*Cipher, error) {
	o := options{salt: DefaultSalt, iterations: DefaultIterations}
	for _, opt := range opts {
		opt(&o)
	}
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}
	if o.iterations <= 0 {
		return nil, fmt.Errorf("invalid iteration count %d", o.iterations)
	}
	return NewFromKey(DeriveKey(passphrase, o.salt, o.iterations))
}

// NewFromKey builds a Cipher from a base64url-encoded 32-byte key.
func NewFromKey(key string) (*Cipher, error) {
	raw, err := base64.URLEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != keyLength {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keyLength, len(raw))
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// Encrypt seals plaintext and returns nonce || ciphertext || tag, base64url-encoded.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", ErrUnavailable
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any failure wraps ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if c == nil || c.aead == nil {
		return "", ErrUnavailable
	}

	data, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", ErrDecryption, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	return string(plaintext), nil
}

// Available reports whether the cipher can encrypt and decrypt.
func (c *Cipher) Available() bool {
	return c != nil && c.aead != nil
}
