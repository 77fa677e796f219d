// Package auth drives the per-platform authorization lifecycle and keeps
// auth tokens encrypted at rest.
package auth

import (
	"log/slog"

	"github.com/abdulachik/simulpost/internal/filestore"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/abdulachik/simulpost/internal/secret"
)

// FileName is the default token file name inside the data directory.
const FileName = "auth_tokens.json"

const decryptionFailedMessage = "Decryption failed or unavailable"

// Token is the in-memory, decrypted form of a stored auth token.
// Values are immutable; updates replace the map entry.
type Token struct {
	Value string
	// ExpiresAt is a unix timestamp in seconds; zero means no expiry.
	ExpiresAt int64
	// Error is set when the stored token could not be recovered.
	Error string

	// sealed keeps the original ciphertext of a token that failed to decrypt
	// so rewriting the file does not destroy it.
	sealed string
}

// Usable reports whether the token decrypted and is present. Expiry is not checked.
func (t Token) Usable() bool {
	return t.Value != "" && t.Error == ""
}

type tokenEntry struct {
	AuthToken *string `json:"auth_token"`
	ExpiresAt *int64  `json:"expires_at"`
	Error     *string `json:"error"`
}

// TokenStore persists platform -> token records, encrypting each token
// independently.
type TokenStore struct {
	file   *filestore.File
	cipher *secret.Cipher
}

// NewTokenStore returns a TokenStore backed by path.
func NewTokenStore(path string, cipher *secret.Cipher) *TokenStore {
	return &TokenStore{
		file:   filestore.New(path),
		cipher: cipher,
	}
}

// Save encrypts every token and rewrites the whole file. A token that fails
// to encrypt is stored as null with an error so the entry is not lost.
func (s *TokenStore) Save(tokens map[platform.ID]Token) bool {
	if !s.cipher.Available() {
		slog.Error("cannot save auth tokens", "error", secret.ErrUnavailable)
		return false
	}

	entries := make(map[platform.ID]tokenEntry, len(tokens))
	for id, tok := range tokens {
		var entry tokenEntry
		if tok.ExpiresAt != 0 {
			exp := tok.ExpiresAt
			entry.ExpiresAt = &exp
		}
		if tok.Error != "" {
			msg := tok.Error
			entry.Error = &msg
		}
		switch {
		case tok.Value == "" && tok.sealed != "":
			sealed := tok.sealed
			entry.AuthToken = &sealed
		case tok.Value != "":
			ct, err := s.cipher.Encrypt(tok.Value)
			if err != nil {
				slog.Error("failed to encrypt auth token", "platform", id, "error", err)
				msg := "Encryption failed"
				entry.Error = &msg
			} else {
				entry.AuthToken = &ct
			}
		}
		entries[id] = entry
	}

	if err := s.file.Write(entries); err != nil {
		slog.Error("failed to save auth tokens", "path", s.file.Path(), "error", err)
		return false
	}
	return true
}

// Load decrypts every stored token. An entry that fails to decrypt is kept
// with an empty value and an error instead of being dropped.
func (s *TokenStore) Load() map[platform.ID]Token {
	tokens := make(map[platform.ID]Token)

	var entries map[platform.ID]tokenEntry
	found, err := s.file.Read(&entries)
	if err != nil {
		slog.Warn("ignoring unreadable auth token file", "path", s.file.Path(),
			"kind", platform.KindOf(err), "error", err)
		return tokens
	}
	if !found {
		return tokens
	}

	for id, entry := range entries {
		if !id.Known() {
			slog.Warn("skipping auth token for unknown platform", "platform", id)
			continue
		}

		var tok Token
		if entry.ExpiresAt != nil {
			tok.ExpiresAt = *entry.ExpiresAt
		}
		if entry.Error != nil {
			tok.Error = *entry.Error
		}
		if entry.AuthToken != nil && *entry.AuthToken != "" {
			value, err := s.cipher.Decrypt(*entry.AuthToken)
			if err != nil {
				slog.Warn("failed to decrypt auth token", "platform", id,
					"kind", platform.KindOf(err), "error", err)
				tok.Error = decryptionFailedMessage
				tok.sealed = *entry.AuthToken
			} else {
				tok.Value = value
				tok.Error = ""
			}
		}
		tokens[id] = tok
	}

	return tokens
}
