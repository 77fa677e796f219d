package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdulachik/simulpost/internal/filestore"
	"github.com/abdulachik/simulpost/internal/secret"
)

// Adapter is the integration for a single platform.
// Implementations must not panic and must not return errors past this
// boundary: failures are reported inside the result values.
type Adapter interface {
	// Validate performs a live credential check. Any internal error is false.
	Validate(ctx context.Context, credential string) bool

	// Authorize runs the platform handshake and returns a token to store.
	Authorize(ctx context.Context, credential string) AuthResult

	// Post publishes text and optional media using a stored token.
	Post(ctx context.Context, token, text string, media []string) PostResult

	// CharacterLimit returns the maximum post length.
	CharacterLimit() int
}

// Kind classifies a failure.
type Kind string

const (
	KindEncryptionUnavailable Kind = "encryption_unavailable"
	KindDecryption            Kind = "decryption_error"
	KindMissingCredential     Kind = "missing_credential"
	KindAdapter               Kind = "adapter_error"
	KindUnimplemented         Kind = "unimplemented_platform"
	KindConfig                Kind = "config_error"
	KindNotAuthorized         Kind = "not_authorized"
)

// The storage sentinels are shared with the packages that produce them, so
// errors.Is matches a failure whichever package it is checked against.
var (
	ErrEncryptionUnavailable = secret.ErrUnavailable
	ErrDecryption            = secret.ErrDecryption
	ErrConfig                = filestore.ErrMalformed

	ErrMissingCredential = errors.New("missing credential")
	ErrAdapter           = errors.New("platform request failed")
	ErrUnimplemented     = errors.New("platform not implemented")
	ErrNotAuthorized     = errors.New("platform not authorized")
)

var kindErrors = map[Kind]error{
	KindEncryptionUnavailable: ErrEncryptionUnavailable,
	KindDecryption:            ErrDecryption,
	KindMissingCredential:     ErrMissingCredential,
	KindAdapter:               ErrAdapter,
	KindUnimplemented:         ErrUnimplemented,
	KindConfig:                ErrConfig,
	KindNotAuthorized:         ErrNotAuthorized,
}

// Err returns the sentinel error for k, or ErrAdapter for an unknown kind.
func (k Kind) Err() error {
	if err, ok := kindErrors[k]; ok {
		return err
	}
	return ErrAdapter
}

// KindOf classifies err by the sentinel it wraps. Errors matching none of
// them are KindAdapter.
func KindOf(err error) Kind {
	for _, k := range kindOrder {
		if errors.Is(err, kindErrors[k]) {
			return k
		}
	}
	return KindAdapter
}

var kindOrder = []Kind{
	KindEncryptionUnavailable,
	KindDecryption,
	KindConfig,
	KindMissingCredential,
	KindUnimplemented,
	KindNotAuthorized,
}

func resultErr(kind Kind, msg string) error {
	if msg == "" {
		return kind.Err()
	}
	return fmt.Errorf("%w: %s", kind.Err(), msg)
}

// UserInfo describes the account a credential belongs to.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// AuthResult is the outcome of an authorization attempt.
type AuthResult struct {
	Success bool
	Token   string
	// ExpiresAt is a unix timestamp in seconds; zero means the token does not expire.
	ExpiresAt int64
	Message   string
	Error     string
	Kind      Kind
	User      *UserInfo
	// Simulated marks a placeholder success from a platform without a real
	// integration. It never means the platform accepted the credential.
	Simulated bool
}

// PostResult is the outcome of publishing to one platform.
type PostResult struct {
	Success   bool
	PostID    string
	PostURL   string
	Error     string
	Kind      Kind
	Simulated bool
}

// Err returns nil on success, otherwise an error wrapping the Kind's sentinel.
func (r AuthResult) Err() error {
	if r.Success {
		return nil
	}
	return resultErr(r.Kind, r.Error)
}

// Err returns nil on success, otherwise an error wrapping the Kind's sentinel.
func (r PostResult) Err() error {
	if r.Success {
		return nil
	}
	return resultErr(r.Kind, r.Error)
}

// AuthFailure builds a failed AuthResult.
func AuthFailure(kind Kind, msg string) AuthResult {
	return AuthResult{Error: msg, Kind: kind}
}

// PostFailure builds a failed PostResult.
func PostFailure(kind Kind, msg string) PostResult {
	return PostResult{Error: msg, Kind: kind}
}
