package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// DefaultPollInterval is how often Watch checks the settings file mtime.
const DefaultPollInterval = 5 * time.Second

var settingsValidate = validator.New()

// Manager owns the process-wide settings snapshot. Readers call Get; the
// snapshot is replaced atomically on reload or admin update.
type Manager struct {
	log  *logger.Logger
	path string

	current atomic.Pointer[Settings]

	mu        sync.Mutex
	modTime   time.Time
	listeners []func(*Settings)
}

// NewManager loads path (a JSON document). A missing file is not an error:
// the built-in defaults are used until the file appears.
func NewManager(path string, log *logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager{log: log.With("component", "SettingsManager"), path: strings.TrimSpace(path)}
	s, mod, err := m.read()
	if err != nil {
		return nil, err
	}
	m.modTime = mod
	m.current.Store(s)
	return m, nil
}

// NewStatic returns a manager that serves s and never touches the filesystem.
func NewStatic(s *Settings) *Manager {
	if s == nil {
		s = Defaults()
	}
	m := &Manager{log: logger.Nop()}
	cp := s.clone()
	cp.normalize()
	m.current.Store(cp)
	return m
}

// Get returns the current snapshot. Callers must not mutate it.
func (m *Manager) Get() *Settings {
	if m == nil {
		return Defaults()
	}
	return m.current.Load()
}

// OnChange registers fn to run after every successful swap.
func (m *Manager) OnChange(fn func(*Settings)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Reload re-reads the file when its mtime moved. It reports whether a new
// snapshot was installed.
func (m *Manager) Reload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := os.Stat(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !info.ModTime().After(m.modTime) {
		return false, nil
	}
	next, mod, err := m.read()
	if err != nil {
		return false, err
	}
	m.modTime = mod
	m.swapLocked(next)
	return true, nil
}

// Update merges patch into the current settings, validates the result,
// persists it and installs it. Unknown keys are rejected.
func (m *Manager) Update(patch map[string]any) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := viper.New()
	setDefaults(v)
	raw, err := json.Marshal(m.current.Load())
	if err != nil {
		return nil, err
	}
	var base map[string]any
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}
	for k, val := range base {
		v.Set(k, val)
	}
	for k, val := range patch {
		key := strings.ToUpper(strings.TrimSpace(k))
		if _, known := base[key]; !known {
			return nil, fmt.Errorf("unknown setting %q", k)
		}
		v.Set(key, val)
	}
	next := &Settings{}
	if err := v.Unmarshal(next); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	next.normalize()
	if err := settingsValidate.Struct(next); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if m.path != "" {
		if err := writeJSON(m.path, next); err != nil {
			return nil, err
		}
		if info, err := os.Stat(m.path); err == nil {
			m.modTime = info.ModTime()
		}
	}
	m.swapLocked(next)
	return m.current.Load(), nil
}

// Watch polls the file mtime every interval and also reacts to fsnotify
// events on the containing directory. It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	if m.path == "" {
		<-ctx.Done()
		return
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Warn("fsnotify unavailable, falling back to polling", "error", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(m.path)); err != nil {
			m.log.Warn("watch settings directory failed", "path", m.path, "error", err)
		} else {
			events = watcher.Events
		}
	}

	target := filepath.Clean(m.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reloadAndLog()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == target && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				m.reloadAndLog()
			}
		}
	}
}

func (m *Manager) reloadAndLog() {
	changed, err := m.Reload()
	if err != nil {
		m.log.Warn("settings reload failed, keeping previous snapshot", "path", m.path, "error", err)
		return
	}
	if changed {
		m.log.Info("settings reloaded", "path", m.path)
	}
}

func (m *Manager) swapLocked(next *Settings) {
	prev := m.current.Load()
	if frozen := next.freezeStatic(prev); len(frozen) > 0 {
		m.log.Warn("static settings changed; restart required to apply", "keys", frozen)
	}
	m.current.Store(next)
	for _, fn := range m.listeners {
		fn(next)
	}
}

func (m *Manager) read() (*Settings, time.Time, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	var mod time.Time
	if m.path != "" {
		info, err := os.Stat(m.path)
		switch {
		case err == nil:
			mod = info.ModTime()
			v.SetConfigFile(m.path)
			if err := v.ReadInConfig(); err != nil {
				return nil, time.Time{}, fmt.Errorf("read settings %s: %w", m.path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			m.log.Info("settings file not found, using defaults", "path", m.path)
		default:
			return nil, time.Time{}, err
		}
	}
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode settings: %w", err)
	}
	s.normalize()
	if err := settingsValidate.Struct(s); err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, mod, nil
}

func writeJSON(path string, s *Settings) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
