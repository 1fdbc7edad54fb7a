package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Change describes one observed configuration update.
type Change struct {
	Previous Config
	Current  Config
	// Conflict is set when both exclusive modes were requested and donk was forced off.
	Conflict bool
}

// Store is the runtime configuration collaborator: fresh reads, persisted writes,
// and change subscriptions backed by the config file.
type Store struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	cfg      Config
	handlers []func(Change)

	reloadMu sync.Mutex

	watchMu sync.Mutex
	watcher *fileWatcher
}

// NewStore seeds a store from an already loaded configuration.
func NewStore(loaded Loaded, logger *slog.Logger) *Store {
	return &Store{
		path:   loaded.Path,
		logger: logger,
		cfg:    loaded.Config,
	}
}

// Path returns the backing config file path.
func (s *Store) Path() string {
	return s.path
}

// Config returns the current configuration snapshot.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Preferences returns the effective sound preferences of the current snapshot.
func (s *Store) Preferences() Preferences {
	return s.Config().Preferences()
}

// Get returns the current value for key.
func (s *Store) Get(key string) (any, error) {
	return s.Config().Value(key)
}

// Set persists key=value to the config file and refreshes the snapshot.
func (s *Store) Set(key string, value any) error {
	if _, ok := knownKeys[key]; !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := s.persist(key, value); err != nil {
		return err
	}
	return s.Reload()
}

// OnChange registers fn for every effective configuration change.
func (s *Store) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.handlers = append(s.handlers, fn)
	s.mu.Unlock()
}

// Watch starts following the config file for external edits. It is safe to call more than once.
func (s *Store) Watch() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	w, err := newFileWatcher(s.path, watchDebounce, func() {
		if err := s.Reload(); err != nil && s.logger != nil {
			s.logger.Warn("config reload failed", "error", err.Error())
		}
	}, func(err error) {
		if s.logger != nil {
			s.logger.Debug("config watch error", "error", err.Error())
		}
	})
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// Close stops following the config file.
func (s *Store) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// Reload re-reads the file, enforces mode exclusivity, and notifies subscribers
// when the effective configuration changed.
func (s *Store) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	loaded, err := Load(s.path)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	conflict := false
	if cfg.EnableDonk && cfg.EnableVoices {
		conflict = true
		cfg.EnableDonk = false
		if err := s.persist(KeyEnableDonk, false); err != nil && s.logger != nil {
			s.logger.Warn("persist donk override failed", "error", err.Error())
		}
	}

	s.mu.Lock()
	previous := s.cfg
	s.cfg = cfg
	handlers := append([]func(Change){}, s.handlers...)
	s.mu.Unlock()

	if previous == cfg && !conflict {
		return nil
	}

	change := Change{Previous: previous, Current: cfg, Conflict: conflict}
	for _, fn := range handlers {
		fn(change)
	}
	return nil
}

// persist writes one key into the YAML file, keeping every other stored key.
// The file is replaced atomically so readers never observe a partial write.
func (s *Store) persist(key string, value any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	w := viper.New()
	w.SetConfigFile(s.path)
	w.SetConfigType("yaml")
	if err := w.ReadInConfig(); err != nil && !isNotExist(err) {
		return fmt.Errorf("read config %q: %w", s.path, err)
	}
	w.Set(key, value)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".narrator-*.yaml")
	if err != nil {
		return fmt.Errorf("write config %q: %w", s.path, err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := w.WriteConfigAs(tmpPath); err != nil {
		return fmt.Errorf("write config %q: %w", s.path, err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("write config %q: %w", s.path, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace config %q: %w", s.path, err)
	}
	return nil
}
