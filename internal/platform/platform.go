// Package platform defines the supported social platforms and the adapter
// contract every platform integration satisfies.
package platform

import (
	"fmt"
	"strings"
)

// ID identifies a supported platform. The value is the display name used as
// the key in every persisted file.
type ID string

const (
	Twitter  ID = "X (Twitter)"
	Threads  ID = "Threads"
	Bluesky  ID = "Bluesky"
	Mastodon ID = "Mastodon"
	LinkedIn ID = "LinkedIn"
)

// DefaultCharacterLimit applies to any platform without an explicit limit.
const DefaultCharacterLimit = 500

// All lists the supported platforms in display order.
var All = []ID{Twitter, Threads, Bluesky, Mastodon, LinkedIn}

var characterLimits = map[ID]int{
	Twitter:  280,
	Threads:  500,
	Bluesky:  300,
	Mastodon: 500,
	LinkedIn: 3000,
}

var slugs = map[ID]string{
	Twitter:  "x",
	Threads:  "threads",
	Bluesky:  "bluesky",
	Mastodon: "mastodon",
	LinkedIn: "linkedin",
}

var aliases = map[string]ID{
	"twitter": Twitter,
	"x":       Twitter,
	"bsky":    Bluesky,
}

// Parse resolves a display name, slug or alias (case-insensitive) to an ID.
func Parse(s string) (ID, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, id := range All {
		if strings.ToLower(string(id)) == needle || slugs[id] == needle {
			return id, nil
		}
	}
	if id, ok := aliases[needle]; ok {
		return id, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// ParseList resolves every name in names, failing on the first unknown one.
func ParseList(names []string) ([]ID, error) {
	ids := make([]ID, 0, len(names))
	for _, n := range names {
		id, err := Parse(n)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Known reports whether id is one of the supported platforms.
func (id ID) Known() bool {
	_, ok := slugs[id]
	return ok
}

// Slug returns a short lowercase name suitable for URLs and flags.
func (id ID) Slug() string {
	if s, ok := slugs[id]; ok {
		return s
	}
	return strings.ToLower(strings.ReplaceAll(string(id), " ", "-"))
}

// CharacterLimit returns the platform's static post length limit.
func (id ID) CharacterLimit() int {
	if l, ok := characterLimits[id]; ok {
		return l
	}
	return DefaultCharacterLimit
}

func (id ID) String() string {
	return string(id)
}
