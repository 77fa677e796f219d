// Package credential persists per-platform credentials encrypted at rest.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdulachik/simulpost/internal/filestore"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/abdulachik/simulpost/internal/secret"
)

// FileName is the default credential file name inside the data directory.
const FileName = "api_keys.json"

// Store keeps platform -> ciphertext in a single JSON file.
// Plaintext credentials only exist in memory.
type Store struct {
	file   *filestore.File
	cipher *secret.Cipher
}

// NewStore returns a Store backed by path. A nil cipher makes every
// operation fail closed.
func NewStore(path string, cipher *secret.Cipher) *Store {
	return &Store{
		file:   filestore.New(path),
		cipher: cipher,
	}
}

// Save encrypts each non-empty credential independently and rewrites the
// whole file with the result. It reports false on any failure.
func (s *Store) Save(creds map[platform.ID]string) bool {
	if !s.cipher.Available() {
		slog.Error("cannot save credentials", "error", secret.ErrUnavailable)
		return false
	}

	encrypted := make(map[platform.ID]string, len(creds))
	for id, value := range creds {
		if value == "" {
			continue
		}
		ct, err := s.cipher.Encrypt(value)
		if err != nil {
			slog.Error("failed to encrypt credential", "platform", id, "error", err)
			return false
		}
		encrypted[id] = ct
	}

	if err := s.file.Write(encrypted); err != nil {
		slog.Error("failed to save credentials", "path", s.file.Path(), "error", err)
		return false
	}
	return true
}

// Load returns every credential that decrypts successfully. Entries that do
// not decrypt are logged and left out.
func (s *Store) Load() map[platform.ID]string {
	creds, _ := s.LoadReport()
	return creds
}

// LoadReport is Load plus the per-platform reason for each omitted entry.
// With an unavailable cipher every stored entry is reported as a failure.
func (s *Store) LoadReport() (map[platform.ID]string, map[platform.ID]error) {
	creds := make(map[platform.ID]string)
	failures := make(map[platform.ID]error)

	var encrypted map[platform.ID]string
	found, err := s.file.Read(&encrypted)
	if err != nil {
		slog.Warn("ignoring unreadable credential file", "path", s.file.Path(),
			"kind", platform.KindOf(err), "error", err)
		return creds, failures
	}
	if !found {
		return creds, failures
	}
	if !s.cipher.Available() {
		slog.Error("cannot load credentials", "error", secret.ErrUnavailable)
	}

	for id, ct := range encrypted {
		if !id.Known() {
			slog.Warn("skipping credential for unknown platform", "platform", id)
			continue
		}
		value, err := s.cipher.Decrypt(ct)
		if err != nil {
			slog.Warn("skipping credential that failed to decrypt", "platform", id, "error", err)
			failures[id] = err
			continue
		}
		creds[id] = value
	}

	return creds, failures
}

// Get returns the decrypted credential for one platform.
func (s *Store) Get(id platform.ID) (string, bool) {
	value, ok := s.Load()[id]
	return value, ok && value != ""
}

// Put encrypts one credential and replaces only that platform's entry.
// Every other entry is written back as the ciphertext already on disk, so
// values sealed under a different passphrase survive. An empty value removes
// the entry.
func (s *Store) Put(id platform.ID, value string) bool {
	if !s.cipher.Available() {
		slog.Error("cannot save credentials", "error", secret.ErrUnavailable)
		return false
	}

	var encrypted map[platform.ID]string
	if _, err := s.file.Read(&encrypted); err != nil {
		if !errors.Is(err, filestore.ErrMalformed) {
			slog.Error("failed to read credentials", "path", s.file.Path(), "error", err)
			return false
		}
		slog.Warn("replacing malformed credential file", "path", s.file.Path(),
			"kind", platform.KindOf(err), "error", err)
		encrypted = nil
	}
	if encrypted == nil {
		encrypted = make(map[platform.ID]string)
	}

	if value == "" {
		delete(encrypted, id)
	} else {
		ct, err := s.cipher.Encrypt(value)
		if err != nil {
			slog.Error("failed to encrypt credential", "platform", id, "error", err)
			return false
		}
		encrypted[id] = ct
	}

	if err := s.file.Write(encrypted); err != nil {
		slog.Error("failed to save credentials", "path", s.file.Path(), "error", err)
		return false
	}
	return true
}

// Validate runs each platform's live credential check. Platforms without a
// real integration are always invalid.
func Validate(ctx context.Context, registry *platform.Registry, creds map[platform.ID]string) map[platform.ID]bool {
	results := make(map[platform.ID]bool, len(creds))
	for id, value := range creds {
		results[id] = validateOne(ctx, registry.Adapter(id), id, value)
	}
	return results
}

func validateOne(ctx context.Context, adapter platform.Adapter, id platform.ID, value string) (valid bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("credential validation panicked", "platform", id, "panic", r)
			valid = false
		}
	}()
	return adapter.Validate(ctx, value)
}

// ErrIncomplete is returned by Join when a multi-part credential is missing a field.
var ErrIncomplete = errors.New("incomplete credential")

// Join assembles a credential string from its parts. X (Twitter) requires
// exactly four non-empty parts (consumer key, consumer secret, access token,
// access token secret); every other platform takes its parts comma-joined.
func Join(id platform.ID, parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no value for %s", ErrIncomplete, id)
	}

	trimmed := make([]string, len(parts))
	for i, p := range parts {
		trimmed[i] = strings.TrimSpace(p)
		if trimmed[i] == "" {
			return "", fmt.Errorf("%w: empty value for %s", ErrIncomplete, id)
		}
	}

	joined := strings.Join(trimmed, ",")
	if id == platform.Twitter && strings.Count(joined, ",") != 3 {
		return "", fmt.Errorf("%w: %s needs consumer_key,consumer_secret,access_token,access_token_secret", ErrIncomplete, id)
	}
	return joined, nil
}
