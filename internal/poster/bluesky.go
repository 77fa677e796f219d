package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/abdulachik/simulpost/internal/platform"
)

const (
	blueskyBaseURL = "https://bsky.social/xrpc"
	blueskyWebURL  = "https://bsky.app"

	// BlueskySessionTTL is how long an authorized Bluesky session is trusted
	// before a refresh is required.
	BlueskySessionTTL = 2 * time.Hour
)

// BlueskyConfig overrides the Bluesky endpoints. Zero values use bsky.social.
type BlueskyConfig struct {
	BaseURL string
	WebURL  string
}

// Bluesky posts via the AT Protocol. The credential is "handle,app_password";
// the authorization token is the serialized session.
type Bluesky struct {
	httpClient *http.Client
	baseURL    string
	webURL     string
	now        func() time.Time
}

var _ platform.Adapter = (*Bluesky)(nil)

// NewBluesky creates the Bluesky adapter.
func NewBluesky(cfg BlueskyConfig, httpClient *http.Client, now func() time.Time) *Bluesky {
	b := &Bluesky{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		webURL:     strings.TrimRight(cfg.WebURL, "/"),
		now:        now,
	}
	if b.baseURL == "" {
		b.baseURL = blueskyBaseURL
	}
	if b.webURL == "" {
		b.webURL = blueskyWebURL
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// blueskySession is both the createSession response and the stored token.
type blueskySession struct {
	DID       string `json:"did"`
	Handle    string `json:"handle"`
	AccessJwt string `json:"accessJwt"`
}

func (b *Bluesky) createSession(ctx context.Context, credential string) (*blueskySession, error) {
	parts, ok := splitCredential(credential, 2)
	if !ok {
		return nil, fmt.Errorf("invalid API key format. Expected: handle,app_password")
	}

	var session blueskySession
	req := createSessionRequest{Identifier: parts[0], Password: parts[1]}
	if err := doJSON(ctx, b.httpClient, http.MethodPost, b.baseURL+"/com.atproto.server.createSession", req, &session); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if session.AccessJwt == "" || session.DID == "" {
		return nil, fmt.Errorf("authentication failed: incomplete session")
	}

	slog.Debug("authenticated with Bluesky", "handle", session.Handle, "did", session.DID)
	return &session, nil
}

// Validate checks the credential by creating a session.
func (b *Bluesky) Validate(ctx context.Context, credential string) bool {
	if _, err := b.createSession(ctx, credential); err != nil {
		slog.Debug("Bluesky credential rejected", "error", err)
		return false
	}
	return true
}

// Authorize creates a session and returns it as the token.
func (b *Bluesky) Authorize(ctx context.Context, credential string) platform.AuthResult {
	session, err := b.createSession(ctx, credential)
	if err != nil {
		return platform.AuthFailure(platform.KindAdapter, err.Error())
	}

	token, err := json.Marshal(session)
	if err != nil {
		return platform.AuthFailure(platform.KindAdapter, fmt.Sprintf("marshal session: %v", err))
	}

	return platform.AuthResult{
		Success:   true,
		Token:     string(token),
		ExpiresAt: b.now().Add(BlueskySessionTTL).Unix(),
		User: &platform.UserInfo{
			ID:       session.DID,
			Username: session.Handle,
		},
	}
}

type uploadBlobResponse struct {
	Blob json.RawMessage `json:"blob"`
}

type embedImage struct {
	Alt   string          `json:"alt"`
	Image json.RawMessage `json:"image"`
}

type imagesEmbed struct {
	Type   string       `json:"$type"`
	Images []embedImage `json:"images"`
}

type postRecord struct {
	Type      string       `json:"$type"`
	Text      string       `json:"text"`
	CreatedAt string       `json:"createdAt"`
	Embed     *imagesEmbed `json:"embed,omitempty"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// Post uploads media as blobs and creates an app.bsky.feed.post record.
func (b *Bluesky) Post(ctx context.Context, token, text string, media []string) platform.PostResult {
	var session blueskySession
	if err := json.Unmarshal([]byte(token), &session); err != nil || session.AccessJwt == "" {
		return platform.PostFailure(platform.KindAdapter, "invalid Bluesky session token")
	}

	record := postRecord{
		Type:      "app.bsky.feed.post",
		Text:      text,
		CreatedAt: b.now().UTC().Format(time.RFC3339),
	}

	for _, path := range limitMedia(media) {
		blob, err := b.uploadBlob(ctx, session, path)
		if err != nil {
			return platform.PostFailure(platform.KindAdapter, fmt.Sprintf("upload %s: %v", path, err))
		}
		if record.Embed == nil {
			record.Embed = &imagesEmbed{Type: "app.bsky.embed.images"}
		}
		record.Embed.Images = append(record.Embed.Images, embedImage{Image: blob})
	}

	reqBody := createRecordRequest{
		Repo:       session.DID,
		Collection: "app.bsky.feed.post",
		Record:     record,
	}
	var resp createRecordResponse
	if err := b.authorized(ctx, session, http.MethodPost, "/com.atproto.repo.createRecord", reqBody, &resp); err != nil {
		return platform.PostFailure(platform.KindAdapter, fmt.Sprintf("post failed: %v", err))
	}

	// at://did:plc:xxx/app.bsky.feed.post/rkey -> https://bsky.app/profile/handle/post/rkey
	postURL := ""
	if parts := splitURI(resp.URI); len(parts) >= 3 {
		postURL = fmt.Sprintf("%s/profile/%s/post/%s", b.webURL, session.Handle, parts[len(parts)-1])
	}

	slog.Info("posted to Bluesky", "uri", resp.URI, "url", postURL)
	return platform.PostResult{
		Success: true,
		PostID:  resp.URI,
		PostURL: postURL,
	}
}

func (b *Bluesky) uploadBlob(ctx context.Context, session blueskySession, path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(data))
	req.Header.Set("Authorization", "Bearer "+session.AccessJwt)

	var resp uploadBlobResponse
	if err := send(b.httpClient, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Blob) == 0 {
		return nil, fmt.Errorf("upload response has no blob")
	}
	return resp.Blob, nil
}

func (b *Bluesky) authorized(ctx context.Context, session blueskySession, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessJwt)

	return send(b.httpClient, req, out)
}

// CharacterLimit returns the Bluesky post limit.
func (b *Bluesky) CharacterLimit() int {
	return platform.Bluesky.CharacterLimit()
}

// splitURI splits an AT Protocol URI into its non-empty path segments.
func splitURI(uri string) []string {
	uri = strings.TrimPrefix(uri, "at://")
	var parts []string
	for _, p := range strings.Split(uri, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
