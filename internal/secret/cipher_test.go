package secret

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T, passphrase string) *Cipher {
	t.Helper()
	c, err := New(passphrase, WithIterations(1000))
	require.NoError(t, err)
	return c
}

func TestDeriveKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := DeriveKey("pass", DefaultSalt, 1000)
		b := DeriveKey("pass", DefaultSalt, 1000)
		assert.Equal(t, a, b)
	})

	t.Run("256-bit output", func(t *testing.T) {
		key := DeriveKey("pass", DefaultSalt, 1000)
		raw, err := base64.URLEncoding.DecodeString(key)
		require.NoError(t, err)
		assert.Len(t, raw, 32)
	})

	t.Run("passphrase and salt matter", func(t *testing.T) {
		base := DeriveKey("pass", DefaultSalt, 1000)
		assert.NotEqual(t, base, DeriveKey("other", DefaultSalt, 1000))
		assert.NotEqual(t, base, DeriveKey("pass", []byte("other-salt"), 1000))
	})
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, "test-passphrase")

	inputs := []string{
		"",
		"secret",
		"ck,cs,at,ats",
		"日本語のトークン",
		strings.Repeat("x", 4096),
	}

	for _, in := range inputs {
		ct, err := c.Encrypt(in)
		require.NoError(t, err)
		assert.NotEqual(t, in, ct)

		pt, err := c.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, in, pt)
	}
}

func TestCipher_EncryptIsRandomized(t *testing.T) {
	c := newTestCipher(t, "test-passphrase")

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCipher_Decrypt(t *testing.T) {
	c := newTestCipher(t, "test-passphrase")

	t.Run("different key", func(t *testing.T) {
		other := newTestCipher(t, "another-passphrase")
		ct, err := other.Encrypt("secret")
		require.NoError(t, err)

		pt, err := c.Decrypt(ct)
		assert.ErrorIs(t, err, ErrDecryption)
		assert.Empty(t, pt)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := c.Decrypt("not base64 at all!")
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := c.Decrypt(base64.URLEncoding.EncodeToString([]byte("short")))
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("tampered", func(t *testing.T) {
		ct, err := c.Encrypt("secret")
		require.NoError(t, err)

		raw, err := base64.URLEncoding.DecodeString(ct)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff

		_, err = c.Decrypt(base64.URLEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, ErrDecryption)
	})
}

func TestCipher_Nil(t *testing.T) {
	var c *Cipher

	assert.False(t, c.Available())

	_, err := c.Encrypt("secret")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.Decrypt("anything")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNew(t *testing.T) {
	t.Run("empty passphrase uses default", func(t *testing.T) {
		a, err := New("", WithIterations(1000))
		require.NoError(t, err)
		b, err := New(DefaultPassphrase, WithIterations(1000))
		require.NoError(t, err)

		ct, err := a.Encrypt("secret")
		require.NoError(t, err)
		pt, err := b.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, "secret", pt)
	})

	t.Run("invalid iterations", func(t *testing.T) {
		_, err := New("pass", WithIterations(0))
		assert.Error(t, err)
	})
}

func TestNewFromKey(t *testing.T) {
	t.Run("wrong length", func(t *testing.T) {
		_, err := NewFromKey(base64.URLEncoding.EncodeToString([]byte("too short")))
		assert.Error(t, err)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		_, err := NewFromKey("%%%")
		assert.Error(t, err)
	})
}
