package webhook

import (
	"errors"
	"sync"

	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/env"
	"github.com/hanifabd/go-whatsapp-webhook-api/pkg/validation"
)

const (
	defaultRetryAttempts = 3
	defaultTimeoutMS     = 5000
)

var ErrEnabledWithoutURL = errors.New("webhook cannot be enabled without a url")

// Store guards the single mutable Config. HTTP handlers and delivery
// goroutines read and write it concurrently.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStoreFromEnv seeds the store from the environment. Seeded values obey
// the same bounds Update enforces: out-of-range retry/timeout settings fall
// back to the defaults.
func NewStoreFromEnv() *Store {
	retryAttempts := env.GetEnvIntOrDefault("WEBHOOK_RETRY_ATTEMPTS", defaultRetryAttempts)
	if retryAttempts < 1 {
		retryAttempts = defaultRetryAttempts
	}
	timeoutMS := env.GetEnvIntOrDefault("WEBHOOK_TIMEOUT_MS", defaultTimeoutMS)
	if timeoutMS < 1 {
		timeoutMS = defaultTimeoutMS
	}
	return &Store{cfg: Config{
		URL:           env.GetEnvStringOrDefault("WEBHOOK_URL", ""),
		Secret:        env.GetEnvStringOrDefault("WEBHOOK_SECRET", ""),
		Enabled:       env.GetEnvBoolOrDefault("WEBHOOKS_ENABLED", false),
		RetryAttempts: retryAttempts,
		TimeoutMS:     timeoutMS,
	}}
}

// NewStore builds a store around an explicit config, mainly for tests.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Get returns a copy of the current config.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies the non-nil fields of req. Enabling delivery requires a URL
// to be set, either already stored or part of the same update; the URL is
// validated whenever it changes.
func (s *Store) Update(req UpdateRequest) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if req.URL != nil {
		if *req.URL != "" {
			if err := validation.ValidateURL(*req.URL); err != nil {
				return Snapshot{}, err
			}
		}
		next.URL = *req.URL
	}
	if req.Secret != nil {
		next.Secret = *req.Secret
	}
	if req.Enabled != nil {
		next.Enabled = *req.Enabled
	}
	if req.RetryAttempts != nil {
		if *req.RetryAttempts < 1 {
			return Snapshot{}, errors.New("retryAttempts must be at least 1")
		}
		next.RetryAttempts = *req.RetryAttempts
	}
	if req.TimeoutMS != nil {
		if *req.TimeoutMS < 1 {
			return Snapshot{}, errors.New("timeout must be positive")
		}
		next.TimeoutMS = *req.TimeoutMS
	}

	if next.Enabled && next.URL == "" {
		return Snapshot{}, ErrEnabledWithoutURL
	}

	s.cfg = next
	return snapshotOf(next), nil
}

// Snapshot returns the redacted view of the current config.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotOf(s.cfg)
}

func snapshotOf(cfg Config) Snapshot {
	return Snapshot{
		URL:           cfg.URL,
		HasSecret:     cfg.Secret != "",
		Enabled:       cfg.Enabled,
		RetryAttempts: cfg.RetryAttempts,
		TimeoutMS:     cfg.TimeoutMS,
	}
}
