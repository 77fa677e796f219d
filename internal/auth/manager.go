package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulachik/simulpost/internal/platform"
)

// CredentialSource supplies decrypted credentials together with the reason
// each unreadable entry was left out.
type CredentialSource interface {
	LoadReport() (map[platform.ID]string, map[platform.ID]error)
}

// State is the lifecycle position of one platform.
type State string

const (
	StateNoCredential State = "no_credential"
	StateUnauthorized State = "unauthorized"
	StateAuthorized   State = "authorized"
	StateExpired      State = "expired"
)

// Status is the result of CheckStatus.
type Status struct {
	Authorized   bool
	NeedsRefresh bool
	// ExpiresAt is zero when the token has no expiry or there is no token.
	ExpiresAt int64
	Error     string
}

// Manager authorizes platforms and tracks their tokens.
type Manager struct {
	creds    CredentialSource
	tokens   *TokenStore
	registry *platform.Registry
	now      func() time.Time
}

// Config holds the Manager's collaborators.
type Config struct {
	Credentials CredentialSource
	Tokens      *TokenStore
	Registry    *platform.Registry

	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		creds:    cfg.Credentials,
		tokens:   cfg.Tokens,
		registry: cfg.Registry,
		now:      now,
	}
}

// Authorize runs the platform handshake with the stored credential and
// persists the resulting token. Adapter failures are returned untouched.
func (m *Manager) Authorize(ctx context.Context, id platform.ID) platform.AuthResult {
	creds, failures := m.creds.LoadReport()
	credential := creds[id]
	if credential == "" {
		return missingCredential(id, failures[id], "No API key found for %s. Cannot authorize.")
	}
	return m.authorizeAndStore(ctx, id, credential)
}

// Refresh re-runs authorization with the stored credential. On failure the
// existing token record is left as it was.
func (m *Manager) Refresh(ctx context.Context, id platform.ID) platform.AuthResult {
	creds, failures := m.creds.LoadReport()
	credential := creds[id]
	if credential == "" {
		return missingCredential(id, failures[id], "No valid API key found for %s to refresh authorization.")
	}

	slog.Info("refreshing authorization", "platform", id)
	result := m.authorizeAndStore(ctx, id, credential)
	if !result.Success {
		slog.Warn("failed to refresh authorization", "platform", id, "error", result.Error)
	}
	return result
}

func (m *Manager) authorizeAndStore(ctx context.Context, id platform.ID, credential string) platform.AuthResult {
	result := m.callAuthorize(ctx, id, credential)
	if !result.Success {
		return result
	}

	tokens := m.tokens.Load()
	tokens[id] = Token{Value: result.Token, ExpiresAt: result.ExpiresAt}
	if !m.tokens.Save(tokens) {
		return platform.AuthFailure(platform.KindEncryptionUnavailable,
			fmt.Sprintf("Authorized %s but failed to store the token.", id))
	}

	slog.Info("authorization saved", "platform", id, "simulated", result.Simulated)
	return result
}

// CheckStatus reports whether the stored token for id is usable right now.
func (m *Manager) CheckStatus(id platform.ID) Status {
	tok, ok := m.tokens.Load()[id]
	return m.statusOf(tok, ok)
}

func (m *Manager) statusOf(tok Token, ok bool) Status {
	if !ok || !tok.Usable() {
		return Status{NeedsRefresh: true, Error: tok.Error}
	}
	if tok.ExpiresAt != 0 && tok.ExpiresAt < m.now().Unix() {
		return Status{NeedsRefresh: true, ExpiresAt: tok.ExpiresAt}
	}
	return Status{Authorized: true, ExpiresAt: tok.ExpiresAt}
}

// State places id in the authorization lifecycle.
func (m *Manager) State(id platform.ID) State {
	if _, ok := m.credential(id); !ok {
		return StateNoCredential
	}
	tok, ok := m.tokens.Load()[id]
	status := m.statusOf(tok, ok)
	switch {
	case status.Authorized:
		return StateAuthorized
	case status.ExpiresAt != 0:
		return StateExpired
	default:
		return StateUnauthorized
	}
}

// Token returns the decrypted token for id if one is stored.
func (m *Manager) Token(id platform.ID) (string, bool) {
	tok, ok := m.tokens.Load()[id]
	if !ok || !tok.Usable() {
		return "", false
	}
	return tok.Value, true
}

// AuthorizeAll authorizes every platform in ids that is not already valid.
// The token file is written once after every platform has been attempted;
// platforms that fail keep whatever record they had before.
func (m *Manager) AuthorizeAll(ctx context.Context, ids []platform.ID) map[platform.ID]platform.AuthResult {
	results := make(map[platform.ID]platform.AuthResult, len(ids))
	updates := make(map[platform.ID]Token)

	creds, failures := m.creds.LoadReport()
	current := m.tokens.Load()

	for _, id := range ids {
		credential := creds[id]
		if credential == "" {
			results[id] = missingCredential(id, failures[id], "No API key found for %s. Cannot authorize.")
			continue
		}

		tok, ok := current[id]
		if status := m.statusOf(tok, ok); status.Authorized {
			results[id] = platform.AuthResult{
				Success:   true,
				Message:   "Already authorized and valid.",
				ExpiresAt: status.ExpiresAt,
			}
			updates[id] = tok
			continue
		}

		slog.Info("attempting authorization", "platform", id)
		result := m.callAuthorize(ctx, id, credential)
		results[id] = result
		if result.Success {
			updates[id] = Token{Value: result.Token, ExpiresAt: result.ExpiresAt}
		}
	}

	if len(updates) == 0 {
		return results
	}

	final := m.tokens.Load()
	for id, tok := range updates {
		final[id] = tok
	}
	if !m.tokens.Save(final) {
		slog.Error("failed to save updated authorization tokens")
		for id := range updates {
			r := results[id]
			if r.Token == "" {
				continue
			}
			r.Success = false
			r.Error = "failed to store the token"
			r.Kind = platform.KindEncryptionUnavailable
			results[id] = r
		}
	}

	return results
}

func (m *Manager) credential(id platform.ID) (string, bool) {
	creds, _ := m.creds.LoadReport()
	value := creds[id]
	return value, value != ""
}

// missingCredential explains why no credential is available for id. A stored
// entry that could not be opened is reported with its own kind.
func missingCredential(id platform.ID, loadErr error, format string) platform.AuthResult {
	msg := fmt.Sprintf(format, id)
	if loadErr == nil {
		return platform.AuthFailure(platform.KindMissingCredential, msg)
	}
	return platform.AuthFailure(platform.KindOf(loadErr),
		fmt.Sprintf("Stored API key for %s could not be read: %v", id, loadErr))
}

func (m *Manager) callAuthorize(ctx context.Context, id platform.ID, credential string) (result platform.AuthResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("authorization panicked", "platform", id, "panic", r)
			result = platform.AuthFailure(platform.KindAdapter, fmt.Sprint(r))
		}
	}()

	result = m.registry.Adapter(id).Authorize(ctx, credential)
	if !result.Success && result.Kind == "" {
		result.Kind = platform.KindAdapter
	}
	return result
}
