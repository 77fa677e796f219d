package platform

import (
	"context"
	"fmt"
	"time"
)

// Registry maps every supported platform to its adapter. Platforms without a
// registered integration resolve to an Unimplemented placeholder.
type Registry struct {
	adapters map[ID]Adapter
	now      func() time.Time
}

// NewRegistry returns a registry where every platform is unimplemented.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[ID]Adapter),
		now:      time.Now,
	}
}

// Register installs the adapter for id, replacing any previous one.
func (r *Registry) Register(id ID, a Adapter) {
	r.adapters[id] = a
}

// Adapter returns the adapter for id. It never returns nil.
func (r *Registry) Adapter(id ID) Adapter {
	if a, ok := r.adapters[id]; ok {
		return a
	}
	return &Unimplemented{Platform: id, Now: r.now}
}

// Implemented reports whether id has a real integration.
func (r *Registry) Implemented(id ID) bool {
	_, ok := r.adapters[id]
	return ok
}

// CharacterLimit returns the adapter's limit for id.
func (r *Registry) CharacterLimit(id ID) int {
	return r.Adapter(id).CharacterLimit()
}

// Unimplemented stands in for platforms without an integration. Validation
// always fails; authorization and posting succeed with Simulated set so the
// rest of the flow can be exercised.
type Unimplemented struct {
	Platform ID
	Now      func() time.Time
}

var _ Adapter = (*Unimplemented)(nil)

func (u *Unimplemented) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// Validate always reports invalid.
func (u *Unimplemented) Validate(ctx context.Context, credential string) bool {
	return false
}

// Authorize returns a simulated success with a mock token valid for one hour.
func (u *Unimplemented) Authorize(ctx context.Context, credential string) AuthResult {
	ts := u.now().Unix()
	return AuthResult{
		Success:   true,
		Token:     fmt.Sprintf("mock-token-%s-%d", u.Platform.Slug(), ts),
		ExpiresAt: ts + 3600,
		Message:   "Authorization not implemented (simulated success).",
		Kind:      KindUnimplemented,
		Simulated: true,
	}
}

// Post returns a simulated success with a mock post id and URL.
func (u *Unimplemented) Post(ctx context.Context, token, text string, media []string) PostResult {
	ts := u.now().Unix()
	return PostResult{
		Success:   true,
		PostID:    fmt.Sprintf("mock-id-%s-%d", u.Platform.Slug(), ts),
		PostURL:   fmt.Sprintf("https://example.com/%s/post/%d", u.Platform.Slug(), ts),
		Kind:      KindUnimplemented,
		Simulated: true,
	}
}

// CharacterLimit returns the platform's static limit.
func (u *Unimplemented) CharacterLimit() int {
	return u.Platform.CharacterLimit()
}
