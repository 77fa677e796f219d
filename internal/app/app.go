package app

import (
	"context"
	"log/slog"

	"github.com/abdulachik/simulpost/internal/auth"
	"github.com/abdulachik/simulpost/internal/config"
	"github.com/abdulachik/simulpost/internal/credential"
	"github.com/abdulachik/simulpost/internal/db"
	"github.com/abdulachik/simulpost/internal/draft"
	"github.com/abdulachik/simulpost/internal/platform"
	"github.com/abdulachik/simulpost/internal/poster"
	"github.com/abdulachik/simulpost/internal/publish"
	"github.com/abdulachik/simulpost/internal/secret"
)

// App is the main application container holding all dependencies.
type App struct {
	Config      *config.Config
	Cipher      *secret.Cipher
	Credentials *credential.Store
	Tokens      *auth.TokenStore
	Registry    *platform.Registry
	Auth        *auth.Manager
	Dispatcher  *publish.Dispatcher
	Drafts      *draft.Store
	Prefs       *config.UserConfig
	// History is nil when the history database could not be opened.
	History *db.Store
}

// Option customizes New.
type Option func(*options)

type options struct {
	registry   *platform.Registry
	cipherOpts []secret.Option
}

// WithRegistry replaces the default adapter registry.
func WithRegistry(r *platform.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithCipherOptions passes options to the key derivation.
func WithCipherOptions(opts ...secret.Option) Option {
	return func(o *options) { o.cipherOpts = append(o.cipherOpts, opts...) }
}

// New creates a new application instance with all dependencies wired up.
// An unusable cipher does not fail construction: the stores then refuse to
// write and report every entry as undecryptable.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.DefaultPassword() {
		slog.Warn("using the default encryption password; set SIMULPOST_SECRET_PASSWORD")
	}
	cipher, err := secret.New(cfg.SecretPassword, o.cipherOpts...)
	if err != nil {
		slog.Error("encryption unavailable", "error", err)
		cipher = nil
	}

	registry := o.registry
	if registry == nil {
		registry = poster.NewRegistry(poster.Config{
			HTTPClient: poster.NewHTTPClient(cfg.HTTPTimeout, poster.NewLimiter(cfg.RequestsPerMinute)),
		})
	}

	creds := credential.NewStore(cfg.CredentialsPath(), cipher)
	tokens := auth.NewTokenStore(cfg.TokensPath(), cipher)
	manager := auth.NewManager(auth.Config{
		Credentials: creds,
		Tokens:      tokens,
		Registry:    registry,
	})

	a := &App{
		Config:      cfg,
		Cipher:      cipher,
		Credentials: creds,
		Tokens:      tokens,
		Registry:    registry,
		Auth:        manager,
		Drafts:      draft.NewStore(cfg.DraftsPath()),
		Prefs:       config.LoadUserConfig(cfg.UserConfigPath()),
	}

	var recorder publish.Recorder
	if err := cfg.ValidateForHistory(); err != nil {
		slog.Warn("post history disabled", "error", err)
	} else if store, err := db.Open(ctx, cfg.HistoryDBPath); err != nil {
		slog.Warn("post history disabled", "path", cfg.HistoryDBPath, "error", err)
	} else {
		a.History = store
		recorder = NewHistoryRecorder(store)
	}

	a.Dispatcher = publish.New(publish.Config{
		Registry:   registry,
		Authorizer: manager,
		Recorder:   recorder,
	})

	return a, nil
}

// Close closes all resources.
func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}
