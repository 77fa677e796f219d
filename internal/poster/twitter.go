package poster

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/dghubble/oauth1"
)

const (
	twitterAPIURL    = "https://api.twitter.com"
	twitterUploadURL = "https://upload.twitter.com"
	twitterWebURL    = "https://twitter.com"
)

const twitterCredentialFormat = "consumer_key,consumer_secret,access_token,access_token_secret"

// TwitterConfig overrides the X endpoints. Zero values use the public API.
type TwitterConfig struct {
	APIURL    string
	UploadURL string
	WebURL    string
}

// Twitter posts to X with OAuth 1.0a user-context credentials. The
// credential is "consumer_key,consumer_secret,access_token,access_token_secret";
// the authorization token is the credential with the account's username
// appended as a fifth field.
type Twitter struct {
	httpClient *http.Client
	apiURL     string
	uploadURL  string
	webURL     string
}

var _ platform.Adapter = (*Twitter)(nil)

// NewTwitter creates the X adapter.
func NewTwitter(cfg TwitterConfig, httpClient *http.Client) *Twitter {
	t := &Twitter{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		uploadURL:  strings.TrimRight(cfg.UploadURL, "/"),
		webURL:     strings.TrimRight(cfg.WebURL, "/"),
	}
	if t.apiURL == "" {
		t.apiURL = twitterAPIURL
	}
	if t.uploadURL == "" {
		t.uploadURL = twitterUploadURL
	}
	if t.webURL == "" {
		t.webURL = twitterWebURL
	}
	return t
}

type twitterKeys struct {
	consumerKey, consumerSecret string
	accessToken, accessSecret   string
	username                    string
}

func parseTwitterKeys(s string, allowUsername bool) (twitterKeys, bool) {
	parts, ok := splitCredential(s, 4)
	if !ok && allowUsername {
		parts, ok = splitCredential(s, 5)
	}
	if !ok {
		return twitterKeys{}, false
	}
	k := twitterKeys{
		consumerKey:    parts[0],
		consumerSecret: parts[1],
		accessToken:    parts[2],
		accessSecret:   parts[3],
	}
	if len(parts) == 5 {
		k.username = parts[4]
	}
	return k, true
}

// client signs every request with the user's OAuth1 credentials on top of
// the shared transport.
func (t *Twitter) client(ctx context.Context, k twitterKeys) *http.Client {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, t.httpClient)
	c := oauth1.NewConfig(k.consumerKey, k.consumerSecret).
		Client(ctx, oauth1.NewToken(k.accessToken, k.accessSecret))
	c.Timeout = t.httpClient.Timeout
	return c
}

type twitterUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

func (t *Twitter) me(ctx context.Context, k twitterKeys) (*platform.UserInfo, error) {
	var resp twitterUserResponse
	url := t.apiURL + "/2/users/me?user.fields=name,username"
	if err := doJSON(ctx, t.client(ctx, k), http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}
	return &platform.UserInfo{
		ID:       resp.Data.ID,
		Username: resp.Data.Username,
		Name:     resp.Data.Name,
	}, nil
}

// Validate checks the credential by fetching the authenticated user.
func (t *Twitter) Validate(ctx context.Context, credential string) bool {
	k, ok := parseTwitterKeys(credential, false)
	if !ok {
		return false
	}
	if _, err := t.me(ctx, k); err != nil {
		slog.Debug("X credential rejected", "error", err)
		return false
	}
	return true
}

// Authorize verifies the credential. X user tokens do not expire.
func (t *Twitter) Authorize(ctx context.Context, credential string) platform.AuthResult {
	k, ok := parseTwitterKeys(credential, false)
	if !ok {
		return platform.AuthFailure(platform.KindAdapter,
			"Invalid API key format. Expected: "+twitterCredentialFormat)
	}

	user, err := t.me(ctx, k)
	if err != nil {
		return platform.AuthFailure(platform.KindAdapter, err.Error())
	}

	token := credential
	if user.Username != "" {
		token = strings.Join([]string{k.consumerKey, k.consumerSecret, k.accessToken, k.accessSecret, user.Username}, ",")
	}

	slog.Debug("authorized with X", "username", user.Username)
	return platform.AuthResult{
		Success: true,
		Token:   token,
		User:    user,
	}
}

type twitterMediaResponse struct {
	MediaIDString string `json:"media_id_string"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type createTweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Post uploads media through the v1.1 upload endpoint and creates the tweet
// through v2.
func (t *Twitter) Post(ctx context.Context, token, text string, media []string) platform.PostResult {
	k, ok := parseTwitterKeys(token, true)
	if !ok {
		return platform.PostFailure(platform.KindAdapter,
			"Invalid auth token format. Expected: "+twitterCredentialFormat)
	}
	client := t.client(ctx, k)

	req := createTweetRequest{Text: text}
	for _, path := range limitMedia(media) {
		var up twitterMediaResponse
		err := uploadMultipart(ctx, client, t.uploadURL+"/1.1/media/upload.json", "media", path, &up)
		if err != nil {
			return platform.PostFailure(platform.KindAdapter, fmt.Sprintf("upload %s: %v", path, err))
		}
		if req.Media == nil {
			req.Media = &tweetMedia{}
		}
		req.Media.MediaIDs = append(req.Media.MediaIDs, up.MediaIDString)
	}

	var resp createTweetResponse
	err := doJSON(ctx, client, http.MethodPost, t.apiURL+"/2/tweets", req, &resp, http.StatusOK, http.StatusCreated)
	if err != nil {
		return platform.PostFailure(platform.KindAdapter, err.Error())
	}

	postURL := fmt.Sprintf("%s/i/web/status/%s", t.webURL, resp.Data.ID)
	if k.username != "" {
		postURL = fmt.Sprintf("%s/%s/status/%s", t.webURL, k.username, resp.Data.ID)
	}

	slog.Info("posted to X", "id", resp.Data.ID, "url", postURL)
	return platform.PostResult{
		Success: true,
		PostID:  resp.Data.ID,
		PostURL: postURL,
	}
}

// CharacterLimit returns the X post limit.
func (t *Twitter) CharacterLimit() int {
	return platform.Twitter.CharacterLimit()
}
