// Package publish formats a post for each platform and sends it to every
// authorized platform, collecting one result per platform.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulachik/simulpost/internal/auth"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/google/uuid"
)

// Authorizer is the slice of the authorization manager the dispatcher needs.
type Authorizer interface {
	CheckStatus(id platform.ID) auth.Status
	Refresh(ctx context.Context, id platform.ID) platform.AuthResult
	Token(id platform.ID) (string, bool)
}

// Batch is one PostToPlatforms call, handed to the Recorder once every
// platform has been attempted.
type Batch struct {
	ID        string
	Text      string
	Media     []string
	Results   map[platform.ID]platform.PostResult
	CreatedAt time.Time
}

// Recorder keeps a history of posted batches.
type Recorder interface {
	RecordBatch(ctx context.Context, batch Batch) error
}

// Dispatcher posts to platforms through their adapters.
type Dispatcher struct {
	registry *platform.Registry
	auth     Authorizer
	recorder Recorder
	now      func() time.Time
}

// Config holds the Dispatcher's collaborators.
type Config struct {
	Registry   *platform.Registry
	Authorizer Authorizer
	// Recorder is optional.
	Recorder Recorder
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		registry: cfg.Registry,
		auth:     cfg.Authorizer,
		recorder: cfg.Recorder,
		now:      time.Now,
	}
}

// Limit returns the character limit for id, with maxLength taking precedence
// when positive.
func (d *Dispatcher) Limit(id platform.ID, maxLength int) int {
	if maxLength > 0 {
		return maxLength
	}
	return d.registry.CharacterLimit(id)
}

// FormatForPlatform truncates text to the platform's limit. A positive
// maxLength overrides the platform limit.
func (d *Dispatcher) FormatForPlatform(id platform.ID, text string, maxLength int) string {
	return Truncate(text, d.Limit(id, maxLength))
}

// ValidateLength reports whether text fits the platform's limit unchanged.
func (d *Dispatcher) ValidateLength(id platform.ID, text string) bool {
	return FitsInLimit(text, d.Limit(id, 0))
}

// PostToPlatform posts to one platform. An unauthorized platform gets a
// single refresh attempt; if that fails the post is not attempted.
func (d *Dispatcher) PostToPlatform(ctx context.Context, id platform.ID, text string, media []string) platform.PostResult {
	status := d.auth.CheckStatus(id)
	if !status.Authorized {
		if !status.NeedsRefresh {
			return platform.PostFailure(platform.KindNotAuthorized, fmt.Sprintf("%s is not authorized", id))
		}

		refreshed := d.auth.Refresh(ctx, id)
		if !refreshed.Success {
			kind := refreshed.Kind
			if kind == "" {
				kind = platform.KindNotAuthorized
			}
			reason := refreshed.Error
			if reason == "" {
				reason = "Unknown error"
			}
			return platform.PostFailure(kind,
				fmt.Sprintf("Failed to refresh authorization for %s: %s", id, reason))
		}
	}

	token, ok := d.auth.Token(id)
	if !ok {
		return platform.PostFailure(platform.KindNotAuthorized,
			fmt.Sprintf("No authorization token found for %s", id))
	}

	formatted := d.FormatForPlatform(id, text, 0)
	result := d.callPost(ctx, id, token, formatted, media)
	if result.Success {
		slog.Info("posted", "platform", id, "post_id", result.PostID, "simulated", result.Simulated)
	} else {
		slog.Warn("post failed", "platform", id, "error", result.Error)
	}
	return result
}

// PostToPlatforms posts to every platform in ids independently and returns
// exactly one result per requested platform.
func (d *Dispatcher) PostToPlatforms(ctx context.Context, ids []platform.ID, text string, media []string) map[platform.ID]platform.PostResult {
	batch := Batch{
		ID:        uuid.NewString(),
		Text:      text,
		Media:     media,
		Results:   make(map[platform.ID]platform.PostResult, len(ids)),
		CreatedAt: d.now(),
	}

	for _, id := range ids {
		if _, done := batch.Results[id]; done {
			continue
		}
		batch.Results[id] = d.PostToPlatform(ctx, id, text, media)
	}

	slog.Info("post batch complete", "batch_id", batch.ID, "platforms", len(batch.Results))

	if d.recorder != nil {
		if err := d.recorder.RecordBatch(ctx, batch); err != nil {
			slog.Warn("failed to record post batch", "batch_id", batch.ID, "error", err)
		}
	}

	return batch.Results
}

func (d *Dispatcher) callPost(ctx context.Context, id platform.ID, token, text string, media []string) (result platform.PostResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("post panicked", "platform", id, "panic", r)
			result = platform.PostFailure(platform.KindAdapter, fmt.Sprint(r))
		}
	}()

	result = d.registry.Adapter(id).Post(ctx, token, text, media)
	if !result.Success && result.Kind == "" {
		result.Kind = platform.KindAdapter
	}
	return result
}
