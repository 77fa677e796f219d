// Package app wires configuration, storage, adapters and orchestration into
// one container for the CLI.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/abdulachik/simulpost/internal/db"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/abdulachik/simulpost/internal/publish"
)

// HistoryRecorder stores each posting batch in the history database.
type HistoryRecorder struct {
	store *db.Store
}

var _ publish.Recorder = (*HistoryRecorder)(nil)

// NewHistoryRecorder returns a recorder backed by store.
func NewHistoryRecorder(store *db.Store) *HistoryRecorder {
	return &HistoryRecorder{store: store}
}

// RecordBatch writes one row per platform result. Post text is not stored,
// only its length.
func (h *HistoryRecorder) RecordBatch(ctx context.Context, batch publish.Batch) error {
	params := make([]db.CreatePostParams, 0, len(batch.Results))
	for id, res := range batch.Results {
		params = append(params, db.CreatePostParams{
			BatchID:    batch.ID,
			Platform:   string(id),
			Success:    res.Success,
			Simulated:  res.Simulated,
			PostID:     res.PostID,
			PostURL:    res.PostURL,
			Error:      res.Error,
			TextLength: int64(utf8.RuneCountInString(batch.Text)),
			MediaCount: int64(len(batch.Media)),
			CreatedAt:  batch.CreatedAt.Unix(),
		})
	}
	sort.Slice(params, func(i, j int) bool {
		return params[i].Platform < params[j].Platform
	})

	if _, err := h.store.CreatePosts(ctx, params); err != nil {
		return fmt.Errorf("record batch %s: %w", batch.ID, err)
	}
	return nil
}

// RealPostsSince counts the successful, non-simulated posts per platform
// recorded at or after since. Platforms with none are left out.
func RealPostsSince(ctx context.Context, store *db.Store, ids []platform.ID, since time.Time) (map[platform.ID]int64, error) {
	counts := make(map[platform.ID]int64)
	for _, id := range ids {
		n, err := store.CountSuccessfulPostsSince(ctx, string(id), since.Unix())
		if err != nil {
			return nil, fmt.Errorf("count posts for %s: %w", id, err)
		}
		if n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}
