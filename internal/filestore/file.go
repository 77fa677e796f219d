// Package filestore reads and rewrites whole JSON files under an advisory lock.
package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

// ErrMalformed is returned when a file exists but does not hold valid JSON.
var ErrMalformed = errors.New("malformed store file")

// File is a JSON document on disk. Writes replace the whole file atomically
// and hold an exclusive lock on a sibling ".lock" file; reads hold a shared lock.
type File struct {
	path string
	lock *flock.Flock
}

// New returns a File for path. Nothing is touched on disk until the first write.
func New(path string) *File {
	return &File{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// NewWithLock returns a File for path that locks on lockPath instead of a
// sibling ".lock" file. Files sharing a lockPath serialize with each other.
func NewWithLock(path, lockPath string) *File {
	return &File{
		path: path,
		lock: flock.New(lockPath),
	}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Read decodes the file into v. It returns false with a nil error when the
// file does not exist.
func (f *File) Read(v any) (bool, error) {
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err := f.ensureDir(); err != nil {
		return false, err
	}
	if err := f.lock.RLock(); err != nil {
		return false, fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", f.path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrMalformed, f.path, err)
	}
	return true, nil
}

// Write encodes v as indented JSON and replaces the file with it.
func (f *File) Write(v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", f.path, err)
	}

	if err := f.ensureDir(); err != nil {
		return err
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

func (f *File) ensureDir() error {
	for _, dir := range []string{filepath.Dir(f.path), filepath.Dir(f.lock.Path())} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
