// Package credentials persists lhubctl login contexts and preferences.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// AppDir is the directory under XDG_CONFIG_HOME and XDG_DATA_HOME.
	AppDir         = "labelhub"
	ConfigFileName = "lhubctl.json"

	FilePermissions = 0600
	DirPermissions  = 0700
)

var (
	ErrNoCurrentContext = errors.New("no current context set")
	ErrContextNotFound  = errors.New("context not found")
	ErrNotLoggedIn      = errors.New("not logged in: run 'lhubctl login' first")
)

// Context is one server and worker token pair.
type Context struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`

	// LocalStore is the badger directory holding this worker's unsubmitted
	// labels.
	LocalStore string `json:"local_store"`

	LoggedInAt time.Time `json:"logged_in_at"`
}

// Preferences apply to every context.
type Preferences struct {
	DefaultOutput string `json:"default_output,omitempty"`

	// Categories pre-populate the label menu.
	Categories []string `json:"categories,omitempty"`

	// CacheCapacity is how many images lhubctl label prefetches.
	CacheCapacity int `json:"cache_capacity,omitempty"`
}

// Config is the content of lhubctl.json.
type Config struct {
	CurrentContext string              `json:"current_context"`
	Contexts       map[string]*Context `json:"contexts"`
	Preferences    Preferences         `json:"preferences"`
}

// Store reads and writes lhubctl.json.
type Store struct {
	path   string
	config *Config
}

// NewStore opens the store at $XDG_CONFIG_HOME/labelhub/lhubctl.json.
func NewStore() (*Store, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return nil, err
	}
	return OpenStore(filepath.Join(dir, AppDir, ConfigFileName))
}

// OpenStore opens the store at path. A missing file yields an empty store.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, config: &Config{Contexts: make(map[string]*Context)}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, s.config); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	if s.config.Contexts == nil {
		s.config.Contexts = make(map[string]*Context)
	}
	return s, nil
}

func xdgDir(env, fallback string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, fallback), nil
}

// DefaultLocalStore returns $XDG_DATA_HOME/labelhub/worker/<name>.
func DefaultLocalStore(name string) (string, error) {
	dir, err := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppDir, "worker", name), nil
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, FilePermissions)
}

func (s *Store) Path() string { return s.path }

// Current returns the active context, or ErrNotLoggedIn.
func (s *Store) Current() (string, *Context, error) {
	name := s.config.CurrentContext
	if name == "" {
		return "", nil, ErrNotLoggedIn
	}
	ctx, ok := s.config.Contexts[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}
	return name, ctx, nil
}

// Get returns the named context.
func (s *Store) Get(name string) (*Context, error) {
	ctx, ok := s.config.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}
	return ctx, nil
}

// Names returns every context name, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.config.Contexts))
	for name := range s.config.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Login stores ctx under name and makes it current.
func (s *Store) Login(name string, ctx *Context) error {
	s.config.Contexts[name] = ctx
	s.config.CurrentContext = name
	return s.save()
}

// Use switches the current context.
func (s *Store) Use(name string) error {
	if _, ok := s.config.Contexts[name]; !ok {
		return fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}
	s.config.CurrentContext = name
	return s.save()
}

// Logout removes the named context. The local label store is left on disk.
func (s *Store) Logout(name string) error {
	if _, ok := s.config.Contexts[name]; !ok {
		return fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}
	delete(s.config.Contexts, name)
	if s.config.CurrentContext == name {
		s.config.CurrentContext = ""
	}
	return s.save()
}

func (s *Store) Preferences() Preferences {
	return s.config.Preferences
}

func (s *Store) SetPreferences(p Preferences) error {
	s.config.Preferences = p
	return s.save()
}

// ContextName derives a context name from the server host and the token,
// e.g. "localhost-8080_001_002_abc".
func ContextName(serverURL, token string) string {
	host := serverURL
	if u, err := url.Parse(serverURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.NewReplacer(":", "-", "/", "-").Replace(strings.Trim(host, "/"))
	if host == "" {
		return token
	}
	return host + "_" + token
}
