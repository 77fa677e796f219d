package poster

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abdulachik/simulpost/internal/platform"
	"golang.org/x/oauth2"
)

// MastodonConfig is reserved for instance-independent settings.
type MastodonConfig struct {
	// Visibility of new statuses. Empty uses the account default.
	Visibility string
}

// Mastodon posts to any Mastodon instance. The credential and the
// authorization token are both "instance_url,access_token"; application
// access tokens do not expire.
type Mastodon struct {
	httpClient *http.Client
	visibility string
}

var _ platform.Adapter = (*Mastodon)(nil)

// NewMastodon creates the Mastodon adapter.
func NewMastodon(cfg MastodonConfig, httpClient *http.Client) *Mastodon {
	return &Mastodon{httpClient: httpClient, visibility: cfg.Visibility}
}

type mastodonAccount struct {
	instance    string
	accessToken string
}

func parseMastodonCredential(s string) (mastodonAccount, bool) {
	parts, ok := splitCredential(s, 2)
	if !ok {
		return mastodonAccount{}, false
	}
	instance := strings.TrimRight(parts[0], "/")
	if !strings.HasPrefix(instance, "http://") && !strings.HasPrefix(instance, "https://") {
		instance = "https://" + instance
	}
	return mastodonAccount{instance: instance, accessToken: parts[1]}, true
}

// client attaches the bearer token to every request.
func (m *Mastodon) client(ctx context.Context, acct mastodonAccount) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: acct.accessToken,
		TokenType:   "Bearer",
	}))
}

type mastodonAccountResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
}

func (m *Mastodon) verify(ctx context.Context, acct mastodonAccount) (*platform.UserInfo, error) {
	var resp mastodonAccountResponse
	url := acct.instance + "/api/v1/accounts/verify_credentials"
	if err := doJSON(ctx, m.client(ctx, acct), http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}
	return &platform.UserInfo{
		ID:       resp.ID,
		Username: resp.Acct,
		Name:     resp.DisplayName,
	}, nil
}

// Validate checks the access token against verify_credentials.
func (m *Mastodon) Validate(ctx context.Context, credential string) bool {
	acct, ok := parseMastodonCredential(credential)
	if !ok {
		return false
	}
	if _, err := m.verify(ctx, acct); err != nil {
		slog.Debug("Mastodon credential rejected", "error", err)
		return false
	}
	return true
}

// Authorize verifies the credential and uses it as the token.
func (m *Mastodon) Authorize(ctx context.Context, credential string) platform.AuthResult {
	acct, ok := parseMastodonCredential(credential)
	if !ok {
		return platform.AuthFailure(platform.KindAdapter,
			"Invalid API key format. Expected: instance_url,access_token")
	}

	user, err := m.verify(ctx, acct)
	if err != nil {
		return platform.AuthFailure(platform.KindAdapter, err.Error())
	}

	return platform.AuthResult{
		Success: true,
		Token:   acct.instance + "," + acct.accessToken,
		User:    user,
	}
}

type mastodonMediaResponse struct {
	ID string `json:"id"`
}

type createStatusRequest struct {
	Status     string   `json:"status"`
	MediaIDs   []string `json:"media_ids,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
}

type createStatusResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Post uploads media attachments and publishes a status.
func (m *Mastodon) Post(ctx context.Context, token, text string, media []string) platform.PostResult {
	acct, ok := parseMastodonCredential(token)
	if !ok {
		return platform.PostFailure(platform.KindAdapter,
			"Invalid auth token format. Expected: instance_url,access_token")
	}
	client := m.client(ctx, acct)

	req := createStatusRequest{Status: text, Visibility: m.visibility}
	for _, path := range limitMedia(media) {
		var up mastodonMediaResponse
		err := uploadMultipart(ctx, client, acct.instance+"/api/v2/media", "file", path, &up,
			http.StatusOK, http.StatusAccepted)
		if err != nil {
			return platform.PostFailure(platform.KindAdapter, fmt.Sprintf("upload %s: %v", path, err))
		}
		req.MediaIDs = append(req.MediaIDs, up.ID)
	}

	var resp createStatusResponse
	if err := doJSON(ctx, client, http.MethodPost, acct.instance+"/api/v1/statuses", req, &resp); err != nil {
		return platform.PostFailure(platform.KindAdapter, err.Error())
	}

	slog.Info("posted to Mastodon", "id", resp.ID, "url", resp.URL)
	return platform.PostResult{
		Success: true,
		PostID:  resp.ID,
		PostURL: resp.URL,
	}
}

// CharacterLimit returns the Mastodon default status limit.
func (m *Mastodon) CharacterLimit() int {
	return platform.Mastodon.CharacterLimit()
}
