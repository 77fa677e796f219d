// Package poster implements the platform adapters simulpost can publish
// through: X (Twitter), Bluesky and Mastodon. Every other platform is served
// by the registry's simulated fallback.
package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdulachik/simulpost/internal/platform"
)

// MaxImages is the most media files attached to a single post.
const MaxImages = 4

// Config holds the settings for every adapter.
type Config struct {
	// HTTPClient is shared by all adapters. Defaults to a 30s-timeout client.
	HTTPClient *http.Client
	Now        func() time.Time

	Twitter  TwitterConfig
	Bluesky  BlueskyConfig
	Mastodon MastodonConfig
}

// NewRegistry returns a registry with the X, Bluesky and Mastodon adapters
// installed. Threads and LinkedIn stay simulated.
func NewRegistry(cfg Config) *platform.Registry {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	reg := platform.NewRegistry()
	reg.Register(platform.Twitter, NewTwitter(cfg.Twitter, cfg.HTTPClient))
	reg.Register(platform.Bluesky, NewBluesky(cfg.Bluesky, cfg.HTTPClient, cfg.Now))
	reg.Register(platform.Mastodon, NewMastodon(cfg.Mastodon, cfg.HTTPClient))
	return reg
}

// splitCredential splits a comma-joined credential into exactly n trimmed,
// non-empty fields.
func splitCredential(credential string, n int) ([]string, bool) {
	parts := strings.Split(credential, ",")
	if len(parts) != n {
		return nil, false
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return nil, false
		}
	}
	return parts, true
}

// doJSON sends body (if non-nil) as JSON and decodes a response with one of
// the accepted status codes into out (if non-nil).
func doJSON(ctx context.Context, client *http.Client, method, url string, body, out any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return send(client, req, out, accept...)
}

// uploadMultipart sends the file at path as a multipart form field.
func uploadMultipart(ctx context.Context, client *http.Client, url, field, path string, out any, accept ...int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read media: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return send(client, req, out, accept...)
}

func send(client *http.Client, req *http.Request, out any, accept ...int) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if !statusAccepted(resp.StatusCode, accept) {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func statusAccepted(code int, accept []int) bool {
	if len(accept) == 0 {
		return code == http.StatusOK
	}
	for _, a := range accept {
		if code == a {
			return true
		}
	}
	return false
}

func limitMedia(media []string) []string {
	if len(media) > MaxImages {
		return media[:MaxImages]
	}
	return media
}
