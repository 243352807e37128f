// Package config persists the player settings as a YAML file in the user
// configuration directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/harmonia-audio/harmonia"
)

const (
	appDir   = "Harmonia"
	fileName = "settings.yml"
	// SaveDelay is how long a Saver waits for further changes before it
	// writes the file.
	SaveDelay = 500 * time.Millisecond
)

// DefaultPath returns the settings file path under os.UserConfigDir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate the configuration directory: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Load reads the settings stored at path. A missing file is not an error: it
// returns the defaults and exists false. A file that cannot be decoded or
// holds invalid settings returns the defaults and the error.
func Load(path string) (s harmonia.Settings, exists bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return harmonia.DefaultSettings(), false, nil
	}
	if err != nil {
		return harmonia.DefaultSettings(), false, fmt.Errorf("cannot read %v: %w", path, err)
	}
	s, err = harmonia.ReadSettings(bytes.NewReader(b))
	if err != nil {
		return s, true, fmt.Errorf("%v: %w", path, err)
	}
	return s, true, nil
}

// Store writes the settings to path, creating its directory if needed. The
// file is replaced atomically.
func Store(path string, s harmonia.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create the configuration directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cannot write %v: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cannot replace %v: %w", path, err)
	}
	return nil
}

// Saver coalesces a burst of settings changes into a single write.
type Saver struct {
	path      string
	debounced func(func())
	logger    *slog.Logger

	mu      sync.Mutex
	pending *harmonia.Settings
	err     error
}

func NewSaver(path string, delay time.Duration, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{path: path, debounced: debounce.New(delay), logger: logger}
}

// Save schedules s to be written once no other Save has happened for the
// delay of the saver. Only the latest settings are written.
func (v *Saver) Save(s harmonia.Settings) {
	v.mu.Lock()
	v.pending = &s
	v.mu.Unlock()
	v.debounced(func() {
		if err := v.Flush(); err != nil {
			v.logger.Error("cannot save settings", "path", v.path, "err", err)
		}
	})
}

// Flush writes the pending settings now, if there are any, and returns the
// error of the last write.
func (v *Saver) Flush() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending == nil {
		return v.err
	}
	v.err = Store(v.path, *v.pending)
	v.pending = nil
	if v.err == nil {
		v.logger.Debug("settings saved", "path", v.path)
	}
	return v.err
}
