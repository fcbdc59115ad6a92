// Package cmdutil holds what every lhubctl command shares: global flags,
// the resolved login context, the API client and the local label store.
package cmdutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/labelhub/internal/cli/credentials"
	"github.com/marmos91/labelhub/internal/cli/output"
	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/apiclient"
	"github.com/marmos91/labelhub/pkg/store"
	"github.com/marmos91/labelhub/pkg/store/badger"
	"github.com/marmos91/labelhub/pkg/token"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
	Verbose   bool
}

// Target is the server, token and local store a command works against.
type Target struct {
	Name    string
	Context credentials.Context
}

// Resolve returns the current login context with --server and --token
// applied on top. Without a saved context both flags are required.
func Resolve() (*Target, error) {
	s, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}
	return ResolveFrom(s, Flags)
}

// ResolveFrom is Resolve with an explicit store and flags.
func ResolveFrom(s *credentials.Store, f *GlobalFlags) (*Target, error) {
	t := &Target{}
	if name, ctx, err := s.Current(); err == nil {
		t.Name = name
		t.Context = *ctx
	} else if f.ServerURL == "" || f.Token == "" {
		return nil, err
	}

	if f.ServerURL != "" {
		t.Context.ServerURL = NormalizeServerURL(f.ServerURL)
	}
	if f.Token != "" {
		t.Context.Token = f.Token
	}
	if err := token.Validate(t.Context.Token); err != nil {
		return nil, err
	}

	// Flags naming a different worker get that worker's own store.
	if t.Name == "" || f.Token != "" || f.ServerURL != "" {
		name := credentials.ContextName(t.Context.ServerURL, t.Context.Token)
		if name != t.Name {
			t.Name = name
			t.Context.LocalStore = ""
		}
	}
	if t.Context.LocalStore == "" {
		path, err := credentials.DefaultLocalStore(t.Name)
		if err != nil {
			return nil, err
		}
		t.Context.LocalStore = path
	}
	return t, nil
}

// Client returns an API client for t.
func (t *Target) Client() *apiclient.Client {
	return apiclient.New(t.Context.ServerURL).WithToken(t.Context.Token)
}

// OpenLocal opens the worker's badger store. Only one lhubctl process per
// worker can hold it.
func (t *Target) OpenLocal() (*store.Records, func(), error) {
	if err := os.MkdirAll(t.Context.LocalStore, credentials.DirPermissions); err != nil {
		return nil, nil, fmt.Errorf("cannot create local store directory: %w", err)
	}
	kv, err := badger.New(badger.Config{Path: t.Context.LocalStore, SyncWrites: true})
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open local store %s (is another lhubctl running?): %w", t.Context.LocalStore, err)
	}
	closeFn := func() {
		if err := kv.Close(); err != nil {
			logger.Warn("Failed to close local store", logger.Err(err))
		}
	}
	return store.NewRecords(kv), closeFn, nil
}

// NormalizeServerURL adds http:// when no scheme is given and drops a
// trailing slash.
func NormalizeServerURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}

// Printer returns a stdout printer for --output. An unset flag falls back
// to the saved preference, then to table.
func Printer() (*output.Printer, error) {
	format := Flags.Output
	if format == "" {
		if s, err := credentials.NewStore(); err == nil {
			format = s.Preferences().DefaultOutput
		}
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.StdoutPrinter(f), nil
}

// InitLogger sends logs to stderr, warnings only unless --verbose.
func InitLogger() error {
	level := "WARN"
	if Flags.Verbose {
		level = "DEBUG"
	}
	return logger.Init(logger.Config{Level: level, Format: "text", Output: "stderr"})
}
