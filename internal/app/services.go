package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhle/todo-agent/internal/ai"
	"github.com/nhle/todo-agent/internal/credential"
	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/objstore"
	"github.com/nhle/todo-agent/internal/queue"
	"github.com/nhle/todo-agent/internal/store"
	appsync "github.com/nhle/todo-agent/internal/sync"
)

// ErrSyncNotConfigured is returned when a sync is requested without an
// object storage bucket in the configuration.
var ErrSyncNotConfigured = errors.New("object storage is not configured")

// SecretLookup resolves a named secret, returning "" when it is not set.
type SecretLookup func(key string) (string, error)

// Deps overrides how Open reaches the outside world. Zero values use the
// OS keyring and an S3 client built from the config.
type Deps struct {
	Logger  *slog.Logger
	Secrets SecretLookup
	Objects objstore.ObjectStore
}

// Services holds every long-lived component shared by the TUI, the HTTP
// API and the one-shot commands.
type Services struct {
	Config *model.AppConfig
	Logger *slog.Logger
	Store  *store.SQLiteStore
	Queue  *queue.Queue

	// Sync is nil when no bucket is configured. Scheduler is additionally
	// nil unless sync.enabled is set.
	Sync      *appsync.Engine
	Scheduler *appsync.Scheduler
}

// Open builds the services described by cfg.
func Open(cfg *model.AppConfig, deps Deps) (*Services, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secrets := deps.Secrets
	if secrets == nil {
		secrets = credential.Lookup
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	apiKey := lookupSecret(secrets, credential.KeyAIAPIKey, logger)
	aiOpts, err := ai.OptionsFromConfig(cfg.AI, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuring extraction client: %w", err)
	}
	extractor := ai.New(aiOpts)

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	svc := &Services{
		Config: cfg,
		Logger: logger,
		Store:  s,
		Queue:  queue.New(extractor, s, logger),
	}

	objects := deps.Objects
	if objects == nil && cfg.Storage.Configured() {
		secret := lookupSecret(secrets, credential.KeyStorageSecret, logger)
		objects, err = objstore.NewS3Store(objstore.S3ConfigFrom(cfg.Storage, secret))
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("creating object storage client: %w", err)
		}
	}
	if objects != nil {
		svc.Sync = appsync.NewEngine(objects, s, cfg.Storage.ObjectKey, logger)
		if cfg.Sync.Enabled {
			svc.Scheduler = appsync.NewScheduler(svc.Sync, cfg.Sync.Interval(), logger)
		}
	}

	logger.Debug("services opened",
		"db", cfg.DBPath,
		"sync", svc.Sync != nil,
		"scheduled", svc.Scheduler != nil,
	)
	return svc, nil
}

// lookupSecret treats an unreachable keyring like a missing secret so the
// application still starts; the feature needing it reports the gap later.
func lookupSecret(lookup SecretLookup, key string, logger *slog.Logger) string {
	v, err := lookup(key)
	if err != nil {
		logger.Warn("secret lookup failed", "key", key, "error", err)
		return ""
	}
	return v
}

// RequireSync returns the sync engine or ErrSyncNotConfigured.
func (s *Services) RequireSync() (*appsync.Engine, error) {
	if s.Sync == nil {
		return nil, ErrSyncNotConfigured
	}
	return s.Sync, nil
}

// Close stops background work and closes the store.
func (s *Services) Close() error {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	s.Queue.Wait()
	return s.Store.Close()
}
