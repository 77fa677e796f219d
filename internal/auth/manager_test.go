package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/abdulachik/simulpost/internal/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

type staticCreds map[platform.ID]string

func (s staticCreds) LoadReport() (map[platform.ID]string, map[platform.ID]error) {
	out := make(map[platform.ID]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

type unreadableCreds map[platform.ID]error

func (u unreadableCreds) LoadReport() (map[platform.ID]string, map[platform.ID]error) {
	return map[platform.ID]string{}, u
}

type stubAdapter struct {
	result platform.AuthResult
	calls  int
	panics bool
}

func (s *stubAdapter) Validate(ctx context.Context, credential string) bool { return true }

func (s *stubAdapter) Authorize(ctx context.Context, credential string) platform.AuthResult {
	s.calls++
	if s.panics {
		panic("adapter exploded")
	}
	return s.result
}

func (s *stubAdapter) Post(ctx context.Context, token, text string, media []string) platform.PostResult {
	return platform.PostResult{Success: true}
}

func (s *stubAdapter) CharacterLimit() int { return 280 }

func newTestCipher(t *testing.T, passphrase string) *secret.Cipher {
	t.Helper()
	c, err := secret.New(passphrase, secret.WithIterations(1000))
	require.NoError(t, err)
	return c
}

type fixture struct {
	manager  *Manager
	tokens   *TokenStore
	registry *platform.Registry
	path     string
}

func newFixture(t *testing.T, creds CredentialSource) *fixture {
	t.Helper()
	if creds == nil {
		creds = staticCreds{}
	}
	path := filepath.Join(t.TempDir(), FileName)
	tokens := NewTokenStore(path, newTestCipher(t, "test"))
	reg := platform.NewRegistry()
	return &fixture{
		manager: NewManager(Config{
			Credentials: creds,
			Tokens:      tokens,
			Registry:    reg,
			Now:         func() time.Time { return testNow },
		}),
		tokens:   tokens,
		registry: reg,
		path:     path,
	}
}

func TestTokenStore_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	require.True(t, f.tokens.Save(map[platform.ID]Token{
		platform.Twitter: {Value: "tok", ExpiresAt: 123},
		platform.Bluesky: {Value: "other"},
	}))

	loaded := f.tokens.Load()
	assert.Equal(t, "tok", loaded[platform.Twitter].Value)
	assert.Equal(t, int64(123), loaded[platform.Twitter].ExpiresAt)
	assert.Equal(t, "other", loaded[platform.Bluesky].Value)
	assert.Zero(t, loaded[platform.Bluesky].ExpiresAt)

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"tok"`)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw["Bluesky"], "expires_at")
	assert.Nil(t, raw["Bluesky"]["expires_at"])
	assert.Nil(t, raw["Bluesky"]["error"])
}

func TestTokenStore_PartialDecryptFailure(t *testing.T) {
	f := newFixture(t, nil)
	require.True(t, f.tokens.Save(map[platform.ID]Token{
		platform.Twitter: {Value: "good", ExpiresAt: 99},
	}))

	foreign, err := newTestCipher(t, "someone-else").Encrypt("bad")
	require.NoError(t, err)

	var raw map[string]map[string]any
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["Bluesky"] = map[string]any{"auth_token": foreign, "expires_at": nil, "error": nil}
	data, err = json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.path, data, 0o600))

	loaded := f.tokens.Load()
	require.Len(t, loaded, 2)
	assert.Equal(t, "good", loaded[platform.Twitter].Value)
	assert.Empty(t, loaded[platform.Bluesky].Value)
	assert.Equal(t, decryptionFailedMessage, loaded[platform.Bluesky].Error)

	t.Run("rewrite keeps the undecryptable ciphertext", func(t *testing.T) {
		require.True(t, f.tokens.Save(loaded))

		data, err := os.ReadFile(f.path)
		require.NoError(t, err)
		assert.Contains(t, string(data), foreign)

		again := f.tokens.Load()
		assert.Equal(t, decryptionFailedMessage, again[platform.Bluesky].Error)
	})
}

func TestTokenStore_MissingAndMalformed(t *testing.T) {
	f := newFixture(t, nil)
	assert.Empty(t, f.tokens.Load())

	require.NoError(t, os.WriteFile(f.path, []byte("nope"), 0o600))
	assert.Empty(t, f.tokens.Load())
}

func TestTokenStore_NilCipher(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	good := NewTokenStore(path, newTestCipher(t, "test"))
	require.True(t, good.Save(map[platform.ID]Token{platform.Twitter: {Value: "tok"}}))

	broken := NewTokenStore(path, nil)
	assert.False(t, broken.Save(map[platform.ID]Token{platform.Twitter: {Value: "tok"}}))

	loaded := broken.Load()
	require.Contains(t, loaded, platform.Twitter)
	assert.Empty(t, loaded[platform.Twitter].Value)
	assert.NotEmpty(t, loaded[platform.Twitter].Error)
}

func TestManager_CheckStatus(t *testing.T) {
	f := newFixture(t, nil)
	require.True(t, f.tokens.Save(map[platform.ID]Token{
		platform.Twitter:  {Value: "tok"},
		platform.Bluesky:  {Value: "tok", ExpiresAt: testNow.Unix() + 60},
		platform.Mastodon: {Value: "tok", ExpiresAt: testNow.Unix() - 1},
		platform.Threads:  {Error: "Decryption failed or unavailable"},
	}))

	t.Run("no expiry", func(t *testing.T) {
		assert.Equal(t, Status{Authorized: true}, f.manager.CheckStatus(platform.Twitter))
	})

	t.Run("future expiry", func(t *testing.T) {
		assert.Equal(t, Status{Authorized: true, ExpiresAt: testNow.Unix() + 60},
			f.manager.CheckStatus(platform.Bluesky))
	})

	t.Run("expired", func(t *testing.T) {
		assert.Equal(t, Status{NeedsRefresh: true, ExpiresAt: testNow.Unix() - 1},
			f.manager.CheckStatus(platform.Mastodon))
	})

	t.Run("errored", func(t *testing.T) {
		status := f.manager.CheckStatus(platform.Threads)
		assert.False(t, status.Authorized)
		assert.True(t, status.NeedsRefresh)
		assert.Equal(t, "Decryption failed or unavailable", status.Error)
	})

	t.Run("absent", func(t *testing.T) {
		assert.Equal(t, Status{NeedsRefresh: true}, f.manager.CheckStatus(platform.LinkedIn))
	})
}

func TestManager_Authorize(t *testing.T) {
	t.Run("stub adapter scenario", func(t *testing.T) {
		f := newFixture(t, staticCreds{platform.Twitter: "ck,cs,at,ats"})
		f.registry.Register(platform.Twitter, &stubAdapter{result: platform.AuthResult{
			Success:   true,
			Token:     "tok",
			ExpiresAt: testNow.Unix() + 3600,
		}})

		res := f.manager.Authorize(context.Background(), platform.Twitter)
		require.True(t, res.Success)

		assert.Equal(t, Status{
			Authorized:   true,
			NeedsRefresh: false,
			ExpiresAt:    testNow.Unix() + 3600,
		}, f.manager.CheckStatus(platform.Twitter))

		tok, ok := f.manager.Token(platform.Twitter)
		assert.True(t, ok)
		assert.Equal(t, "tok", tok)
		assert.Equal(t, StateAuthorized, f.manager.State(platform.Twitter))
	})

	t.Run("missing credential", func(t *testing.T) {
		f := newFixture(t, staticCreds{})
		stub := &stubAdapter{}
		f.registry.Register(platform.Twitter, stub)

		res := f.manager.Authorize(context.Background(), platform.Twitter)
		assert.False(t, res.Success)
		assert.Equal(t, platform.KindMissingCredential, res.Kind)
		assert.Zero(t, stub.calls)
		assert.Equal(t, StateNoCredential, f.manager.State(platform.Twitter))
	})

	t.Run("undecryptable credential", func(t *testing.T) {
		f := newFixture(t, unreadableCreds{
			platform.Twitter: fmt.Errorf("%w: message authentication failed", secret.ErrDecryption),
		})
		stub := &stubAdapter{}
		f.registry.Register(platform.Twitter, stub)

		res := f.manager.Authorize(context.Background(), platform.Twitter)
		assert.False(t, res.Success)
		assert.Equal(t, platform.KindDecryption, res.Kind)
		assert.ErrorIs(t, res.Err(), platform.ErrDecryption)
		assert.Zero(t, stub.calls)
	})

	t.Run("encryption unavailable", func(t *testing.T) {
		f := newFixture(t, unreadableCreds{platform.Bluesky: secret.ErrUnavailable})

		res := f.manager.Refresh(context.Background(), platform.Bluesky)
		assert.False(t, res.Success)
		assert.Equal(t, platform.KindEncryptionUnavailable, res.Kind)

		all := f.manager.AuthorizeAll(context.Background(), []platform.ID{platform.Bluesky, platform.Threads})
		assert.Equal(t, platform.KindEncryptionUnavailable, all[platform.Bluesky].Kind)
		assert.Equal(t, platform.KindMissingCredential, all[platform.Threads].Kind)
	})

	t.Run("adapter error passed through", func(t *testing.T) {
		f := newFixture(t, staticCreds{platform.Twitter: "ck,cs,at,ats"})
		f.registry.Register(platform.Twitter, &stubAdapter{result: platform.AuthResult{
			Error: "401 Unauthorized",
		}})

		res := f.manager.Authorize(context.Background(), platform.Twitter)
		assert.False(t, res.Success)
		assert.Equal(t, "401 Unauthorized", res.Error)
		assert.Equal(t, platform.KindAdapter, res.Kind)
		assert.Empty(t, f.tokens.Load())
		assert.Equal(t, StateUnauthorized, f.manager.State(platform.Twitter))
	})

	t.Run("adapter panic", func(t *testing.T) {
		f := newFixture(t, staticCreds{platform.Twitter: "ck,cs,at,ats"})
		f.registry.Register(platform.Twitter, &stubAdapter{panics: true})

		res := f.manager.Authorize(context.Background(), platform.Twitter)
		assert.False(t, res.Success)
		assert.Equal(t, platform.KindAdapter, res.Kind)
		assert.Contains(t, res.Error, "adapter exploded")
	})

	t.Run("unimplemented platform is simulated", func(t *testing.T) {
		f := newFixture(t, staticCreds{platform.LinkedIn: "tok"})

		res := f.manager.Authorize(context.Background(), platform.LinkedIn)
		assert.True(t, res.Success)
		assert.True(t, res.Simulated)
		assert.True(t, f.manager.CheckStatus(platform.LinkedIn).Authorized)
	})
}

func TestManager_Refresh(t *testing.T) {
	t.Run("failure leaves prior token", func(t *testing.T) {
		f := newFixture(t, staticCreds{platform.Twitter: "ck,cs,at,ats"})
		f.registry.Register(platform.Twitter, &stubAdapter{result: platform.AuthResult{Error: "rate limited"}})
		require.True(t, f.tokens.Save(map[platform.ID]Token{
			platform.Twitter: {Value: "stale", ExpiresAt: testNow.Unix() - 10},
		}))
		assert.Equal(t, StateExpired, f.manager.State(platform.Twitter))

		res := f.manager.Refresh(context.Background(), platform.Twitter)
		assert.False(t, res.Success)
		assert.Equal(t, "rate limited", res.Error)

		tok := f.tokens.Load()[platform.Twitter]
		assert.Equal(t, "stale", tok.Value)
		assert.Equal(t, testNow.Unix()-10, tok.ExpiresAt)
	})

	t.Run("success overwrites token", func(t *testing.T) {
		f := newFixture(t, staticCreds{platform.Twitter: "ck,cs,at,ats"})
		f.registry.Register(platform.Twitter, &stubAdapter{result: platform.AuthResult{Success: true, Token: "fresh"}})
		require.True(t, f.tokens.Save(map[platform.ID]Token{
			platform.Twitter: {Value: "stale", ExpiresAt: testNow.Unix() - 10},
		}))

		res := f.manager.Refresh(context.Background(), platform.Twitter)
		require.True(t, res.Success)

		tok := f.tokens.Load()[platform.Twitter]
		assert.Equal(t, "fresh", tok.Value)
		assert.Zero(t, tok.ExpiresAt)
	})

	t.Run("missing credential", func(t *testing.T) {
		f := newFixture(t, staticCreds{})
		res := f.manager.Refresh(context.Background(), platform.Twitter)
		assert.False(t, res.Success)
		assert.Equal(t, platform.KindMissingCredential, res.Kind)
	})
}

func TestManager_AuthorizeAll(t *testing.T) {
	f := newFixture(t, staticCreds{
		platform.Twitter:  "ck,cs,at,ats",
		platform.Bluesky:  "me,pass",
		platform.Mastodon: "https://mastodon.social,tok",
	})

	valid := &stubAdapter{}
	fresh := &stubAdapter{result: platform.AuthResult{Success: true, Token: "new-bsky", ExpiresAt: testNow.Unix() + 7200}}
	failing := &stubAdapter{result: platform.AuthResult{Error: "instance unreachable"}}
	f.registry.Register(platform.Twitter, valid)
	f.registry.Register(platform.Bluesky, fresh)
	f.registry.Register(platform.Mastodon, failing)

	require.True(t, f.tokens.Save(map[platform.ID]Token{
		platform.Twitter:  {Value: "existing"},
		platform.Mastodon: {Value: "old-masto", ExpiresAt: testNow.Unix() - 100},
		platform.LinkedIn: {Value: "untouched"},
	}))

	results := f.manager.AuthorizeAll(context.Background(), []platform.ID{
		platform.Twitter, platform.Bluesky, platform.Mastodon, platform.Threads,
	})

	require.Len(t, results, 4)

	assert.True(t, results[platform.Twitter].Success)
	assert.Equal(t, "Already authorized and valid.", results[platform.Twitter].Message)
	assert.Zero(t, valid.calls)

	assert.True(t, results[platform.Bluesky].Success)
	assert.Equal(t, 1, fresh.calls)

	assert.False(t, results[platform.Mastodon].Success)
	assert.Equal(t, "instance unreachable", results[platform.Mastodon].Error)

	assert.False(t, results[platform.Threads].Success)
	assert.Equal(t, platform.KindMissingCredential, results[platform.Threads].Kind)

	stored := f.tokens.Load()
	assert.Equal(t, "existing", stored[platform.Twitter].Value)
	assert.Equal(t, "new-bsky", stored[platform.Bluesky].Value)
	assert.Equal(t, "old-masto", stored[platform.Mastodon].Value)
	assert.Equal(t, "untouched", stored[platform.LinkedIn].Value)
	assert.NotContains(t, stored, platform.Threads)
}
