package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) Path() string { return m.path }

// Parse reads and strictly decodes the file without committing it.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	return Decode(m.path, b)
}

// Decode parses JSON, or YAML when name ends in .yaml/.yml, on top of
// Default. Unknown fields and trailing data are errors.
func Decode(name string, data []byte) (*Config, error) {
	jb, err := toJSON(name, data)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m *Manager) Commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Load parses and commits the file. An empty path commits Default.
func (m *Manager) Load() (*Config, error) {
	if strings.TrimSpace(m.path) == "" {
		cfg := Default()
		m.Commit(cfg)
		return cfg, nil
	}
	cfg, err := m.Parse()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", m.path, err)
	}
	m.Commit(cfg)
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Validate checks values the decoder cannot.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Crontab.Workers < 0 {
		errs = append(errs, errors.New("crontab.workers must be >= 0"))
	}
	if tz := strings.TrimSpace(cfg.Crontab.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("crontab.timezone: %w", err))
		}
	}
	for i, kv := range cfg.Environment {
		if name, _, ok := strings.Cut(kv, "="); !ok || strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("environment[%d]: want NAME=value, got %q", i, kv))
		}
	}
	for i, a := range cfg.Accounts {
		if strings.TrimSpace(a.Name) == "" {
			errs = append(errs, fmt.Errorf("accounts[%d].name is required", i))
		}
	}
	if _, err := Duration("watch.debounce", cfg.Watch.Debounce, 0); err != nil {
		errs = append(errs, err)
	}
	if _, err := Duration("watch.min_interval", cfg.Watch.MinInterval, 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.Storage != nil {
		if _, err := Duration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Location resolves crontab.timezone, defaulting to time.Local.
func (c *Config) Location() *time.Location {
	tz := strings.TrimSpace(c.Crontab.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}
