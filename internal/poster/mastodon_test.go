package poster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMastodonServer(t *testing.T, handler http.HandlerFunc) (*Mastodon, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewMastodon(MastodonConfig{}, server.Client()), server.URL
}

func TestMastodon_Authorize(t *testing.T) {
	m, url := newMastodonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/verify_credentials", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"The access token is invalid"}`))
			return
		}
		w.Write([]byte(`{"id":"9","username":"fyodor","acct":"fyodor","display_name":"F. D."}`))
	})

	t.Run("success", func(t *testing.T) {
		res := m.Authorize(context.Background(), url+"/,good-token")
		require.True(t, res.Success, res.Error)
		assert.Equal(t, url+",good-token", res.Token)
		assert.Zero(t, res.ExpiresAt)
		require.NotNil(t, res.User)
		assert.Equal(t, "fyodor", res.User.Username)
		assert.Equal(t, "F. D.", res.User.Name)
	})

	t.Run("invalid token", func(t *testing.T) {
		res := m.Authorize(context.Background(), url+",bad-token")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "access token is invalid")
	})

	t.Run("bad format", func(t *testing.T) {
		res := m.Authorize(context.Background(), "just-a-token")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "instance_url,access_token")
	})

	t.Run("validate", func(t *testing.T) {
		assert.True(t, m.Validate(context.Background(), url+",good-token"))
		assert.False(t, m.Validate(context.Background(), url+",bad-token"))
	})
}

func TestMastodon_Post(t *testing.T) {
	t.Run("with media", func(t *testing.T) {
		m, url := newMastodonServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			switch r.URL.Path {
			case "/api/v2/media":
				_, header, err := r.FormFile("file")
				require.NoError(t, err)
				assert.Equal(t, "pic.png", header.Filename)
				w.WriteHeader(http.StatusAccepted)
				w.Write([]byte(`{"id":"media-1"}`))
			case "/api/v1/statuses":
				var req createStatusRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "toot", req.Status)
				assert.Equal(t, []string{"media-1"}, req.MediaIDs)
				w.Write([]byte(`{"id":"555","url":"https://example.social/@fyodor/555"}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		res := m.Post(context.Background(), url+",tok", "toot", []string{writeMediaFile(t, "pic.png")})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "555", res.PostID)
		assert.Equal(t, "https://example.social/@fyodor/555", res.PostURL)
	})

	t.Run("rejected", func(t *testing.T) {
		m, url := newMastodonServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"Validation failed: Text can't be blank"}`))
		})

		res := m.Post(context.Background(), url+",tok", "", nil)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "Text can't be blank")
	})
}

func TestParseMastodonCredential(t *testing.T) {
	acct, ok := parseMastodonCredential("mastodon.social,abc")
	require.True(t, ok)
	assert.Equal(t, "https://mastodon.social", acct.instance)
	assert.Equal(t, "abc", acct.accessToken)

	_, ok = parseMastodonCredential("mastodon.social,")
	assert.False(t, ok)
}
