package sources

import (
	"context"
	"fmt"

	"github.com/eugenenazirov/layered-config/internal/configstore"
)

// Conventional priorities; lower wins.
const (
	PriorityCommandLine = 0
	PriorityEnvironment = 1
	PriorityUserSecrets = 2
	PriorityEnvFile     = 3
	PriorityBaseFile    = 4
)

// Provider loads one configuration source from its medium.
type Provider interface {
	Name() string
	Priority() int
	Load(ctx context.Context) (map[string]string, error)
}

// FileProvider is a Provider backed by a file on disk.
type FileProvider interface {
	Provider
	Path() string
}

// SensitiveProvider marks providers whose values should not be echoed back
// to diagnostics consumers.
type SensitiveProvider interface {
	Sensitive() bool
}

// IsSensitive reports whether p declares itself sensitive.
func IsSensitive(p Provider) bool {
	s, ok := p.(SensitiveProvider)
	return ok && s.Sensitive()
}

// Materialize loads every provider and returns the resulting store sources
// in the order given.
func Materialize(ctx context.Context, providers ...Provider) ([]configstore.Source, error) {
	out := make([]configstore.Source, 0, len(providers))
	for _, p := range providers {
		entries, err := p.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load source %q: %w", p.Name(), err)
		}
		out = append(out, configstore.Source{
			Name:     p.Name(),
			Priority: p.Priority(),
			Entries:  entries,
		})
	}
	return out, nil
}
