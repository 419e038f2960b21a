package config

import "sync"

// Store guards a Config for concurrent use: the options surface writes
// settings while the orchestrator reads them per operation.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore wraps a loaded config.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Settings returns the current user settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Settings()
}

// Apply validates, applies and persists new user settings.
func (s *Store) Apply(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cfg.ApplySettings(settings); err != nil {
		return err
	}
	return s.cfg.Save()
}

// AI returns the captioning model settings.
func (s *Store) AI() AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.AI
}

// Extract returns the fetching limits.
func (s *Store) Extract() ExtractConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Extract
}

// Bridge returns the server settings.
func (s *Store) Bridge() BridgeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Bridge
}
