// Package draft persists unsent posts as one JSON file per draft.
package draft

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abdulachik/simulpost/internal/filestore"
)

// DirName is the drafts directory under the data directory.
const DirName = "drafts"

const (
	filePrefix = "draft_"
	fileSuffix = ".json"
	// lockName is the single lock file shared by every draft in the directory.
	lockName   = ".drafts.lock"
)

// ErrNotFound is returned by Get for an unknown draft id.
var ErrNotFound = errors.New("draft not found")

// Draft is a saved, unsent post.
type Draft struct {
	ID         string   `json:"-"`
	Text       string   `json:"text"`
	MediaFiles []string `json:"media_files"`
	// CreatedAt is unix seconds. Zero when the record has none.
	CreatedAt int64 `json:"created_at"`
}

// SaveResult reports where a draft was written.
type SaveResult struct {
	Success  bool
	DraftID  string
	Location string
	Error    string
}

// Store reads and writes drafts in a directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the drafts directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a new draft whose id is the current unix timestamp. A draft
// saved in the same second as an earlier one replaces it.
func (s *Store) Save(text string, media []string) SaveResult {
	ts := s.now().Unix()
	id := strconv.FormatInt(ts, 10)
	path := s.path(id)

	d := Draft{Text: text, MediaFiles: media, CreatedAt: ts}
	if err := s.file(path).Write(d); err != nil {
		slog.Error("failed to save draft", "path", path, "error", err)
		return SaveResult{Error: err.Error()}
	}

	slog.Debug("draft saved", "id", id, "path", path)
	return SaveResult{Success: true, DraftID: id, Location: path}
}

// LoadAll returns every draft, newest first. A missing directory yields no
// drafts. Any unreadable draft fails the whole load.
func (s *Store) LoadAll() ([]Draft, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read drafts directory: %w", err)
	}

	var drafts []Draft
	for _, entry := range entries {
		id, ok := idFromName(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}

		d, err := s.read(id)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].CreatedAt > drafts[j].CreatedAt
	})
	return drafts, nil
}

// Get returns the draft with id.
func (s *Store) Get(id string) (Draft, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return Draft{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.read(id)
}

func (s *Store) read(id string) (Draft, error) {
	var rec struct {
		Text       string   `json:"text"`
		MediaFiles []string `json:"media_files"`
		CreatedAt  *int64   `json:"created_at"`
	}

	found, err := s.file(s.path(id)).Read(&rec)
	if err != nil {
		return Draft{}, fmt.Errorf("load draft %s: %w", id, err)
	}
	if !found {
		return Draft{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	d := Draft{ID: id, Text: rec.Text, MediaFiles: rec.MediaFiles}
	if rec.CreatedAt != nil {
		d.CreatedAt = *rec.CreatedAt
	}
	return d, nil
}

func (s *Store) file(path string) *filestore.File {
	return filestore.NewWithLock(path, filepath.Join(s.dir, lockName))
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileSuffix)
}

func idFromName(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	return id, id != ""
}
