package hosting

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/eugenenazirov/layered-config/internal/configstore"
	"github.com/eugenenazirov/layered-config/internal/sources"
)

// Source names registered by Build.
const (
	SourceCommandLine = "command-line"
	SourceEnvironment = "environment"
	SourceUserSecrets = "user-secrets"
	SourceEnvFile     = "environment-settings"
	SourceBaseFile    = "base-settings"
)

const defaultSettingsFile = "appsettings.json"

// Options select where configuration is read from.
type Options struct {
	// ContentRoot is the directory settings files are resolved against.
	ContentRoot string
	// SettingsFile is the base settings file name; its extension selects the format.
	SettingsFile string
	// Environment overrides the environment name lookup.
	Environment string
	// EnvPrefix restricts and strips environment variable names.
	EnvPrefix string
	// UserSecretsID enables per-user secrets in Development.
	UserSecretsID string
	// CommandLine holds --set overrides; they win over every other source.
	CommandLine map[string]string
	// LookupEnv is used for environment name resolution; defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// Environ replaces os.Environ for the environment variable source.
	Environ func() []string
	// Extra providers are registered after the standard ones.
	Extra []sources.Provider
}

// Host is a built configuration layout.
type Host struct {
	Store       *configstore.ConfigStore
	Environment string

	providers []sources.Provider

	// reloadMu orders provider reads with their publication.
	reloadMu sync.Mutex
}

// Build loads every provider and constructs the store.
func Build(ctx context.Context, opts Options) (*Host, error) {
	providers, env, err := Providers(opts)
	if err != nil {
		return nil, err
	}

	srcs, err := sources.Materialize(ctx, providers...)
	if err != nil {
		return nil, err
	}

	store, err := configstore.New(srcs)
	if err != nil {
		return nil, fmt.Errorf("build config store: %w", err)
	}

	return &Host{
		Store:       store,
		Environment: env,
		providers:   providers,
	}, nil
}

// Providers returns the providers Build would register, highest precedence
// first, along with the resolved environment name.
func Providers(opts Options) ([]sources.Provider, string, error) {
	env := ResolveEnvironment(opts.Environment, opts.LookupEnv)

	settings := opts.SettingsFile
	if settings == "" {
		settings = defaultSettingsFile
	}
	if !filepath.IsAbs(settings) {
		settings = filepath.Join(opts.ContentRoot, settings)
	}

	var providers []sources.Provider

	if len(opts.CommandLine) > 0 {
		providers = append(providers, sources.NewCommandLine(SourceCommandLine, sources.PriorityCommandLine, opts.CommandLine))
	}

	envOpts := []sources.EnvOption{sources.WithPrefix(opts.EnvPrefix)}
	if opts.Environ != nil {
		envOpts = append(envOpts, sources.WithEnviron(opts.Environ))
	}
	providers = append(providers, sources.NewEnv(SourceEnvironment, sources.PriorityEnvironment, envOpts...))

	if IsDevelopment(env) && opts.UserSecretsID != "" {
		secrets, err := sources.NewUserSecrets(SourceUserSecrets, sources.PriorityUserSecrets, opts.UserSecretsID)
		if err != nil {
			return nil, "", err
		}
		providers = append(providers, secrets)
	}

	envFile, err := sources.NewFile(SourceEnvFile, sources.PriorityEnvFile, EnvironmentFile(settings, env), sources.Optional())
	if err != nil {
		return nil, "", err
	}
	baseFile, err := sources.NewFile(SourceBaseFile, sources.PriorityBaseFile, settings, sources.Optional())
	if err != nil {
		return nil, "", err
	}
	providers = append(providers, envFile, baseFile)

	providers = append(providers, opts.Extra...)
	return providers, env, nil
}

// Reload re-reads the named source from its provider and publishes it.
// Reloads run one at a time, so the last read is the one left published.
func (h *Host) Reload(ctx context.Context, name string) error {
	provider, ok := h.Provider(name)
	if !ok {
		return &configstore.Error{Kind: configstore.KindUnknownSource, Source: name}
	}

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	entries, err := provider.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload source %q: %w", name, err)
	}
	return h.Store.ReloadSource(name, entries)
}

// Provider returns the provider registered under name.
func (h *Host) Provider(name string) (sources.Provider, bool) {
	idx := slices.IndexFunc(h.providers, func(p sources.Provider) bool {
		return p.Name() == name
	})
	if idx < 0 {
		return nil, false
	}
	return h.providers[idx], true
}

// Providers lists the registered providers, highest precedence first.
func (h *Host) Providers() []sources.Provider {
	return slices.Clone(h.providers)
}

// WatchedFiles maps absolute file paths to the source names they back.
func (h *Host) WatchedFiles() map[string]string {
	files := make(map[string]string)
	for _, p := range h.providers {
		fp, ok := p.(sources.FileProvider)
		if !ok {
			continue
		}
		path, err := filepath.Abs(fp.Path())
		if err != nil {
			path = filepath.Clean(fp.Path())
		}
		files[path] = fp.Name()
	}
	return files
}

// SensitiveSources lists the names of sources holding secrets.
func (h *Host) SensitiveSources() []string {
	var names []string
	for _, p := range h.providers {
		if sources.IsSensitive(p) {
			names = append(names, p.Name())
		}
	}
	return names
}
