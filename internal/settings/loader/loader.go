// Package loader builds preference registries from TOML settings files and
// environment variables.
//
// A settings file is applied first, then PREFS_* environment overrides. Only
// preferences that appear in one of the two sources become explicitly set;
// everything else keeps its registry default.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dshills/runtimeprefs/internal/logging"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
)

// DefaultEnvPrefix is the prefix of environment overrides.
const DefaultEnvPrefix = "PREFS_"

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Loader reads settings files and environment overrides.
type Loader struct {
	fs        FileSystem
	envPrefix string
	environ   func() []string
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system settings files are read from.
func WithFS(fsys FileSystem) Option {
	return func(l *Loader) {
		if fsys != nil {
			l.fs = fsys
		}
	}
}

// WithEnvPrefix sets the environment variable prefix. The prefix should
// include the trailing underscore (e.g., "PREFS_").
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithEnviron sets the environment source. A nil function disables
// environment overrides.
func WithEnviron(environ func() []string) Option {
	return func(l *Loader) {
		l.environ = environ
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader reading from the OS file system and environment.
func New(opts ...Option) *Loader {
	l := &Loader{
		fs:        DefaultFS(),
		envPrefix: DefaultEnvPrefix,
		environ:   os.Environ,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds a new Registry from the settings file at path and the
// environment. An empty path skips the file.
func (l *Loader) Load(path string) (*registry.Registry, error) {
	r := registry.New()
	if err := l.LoadInto(r, path); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadInto applies the settings file at path and the environment to r.
// An empty path skips the file. On error r may be partially updated.
func (l *Loader) LoadInto(r *registry.Registry, path string) error {
	if r == nil {
		return fmt.Errorf("loading settings: %w", registry.ErrInvalidArgument)
	}

	if path != "" {
		f, err := l.ReadFile(path)
		if err != nil {
			return err
		}
		if err := f.Apply(r); err != nil {
			return fmt.Errorf("applying %s: %w", path, err)
		}
		l.logger.Debug("settings file applied", slog.String("path", path))
	}

	n, err := l.ApplyEnv(r)
	if err != nil {
		return err
	}
	if n > 0 {
		l.logger.Debug("environment overrides applied", slog.Int("count", n))
	}
	return nil
}

// ReadFile reads and parses the settings file at path.
func (l *Loader) ReadFile(path string) (*File, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return Parse(path, data)
}
