package sources

import (
	"context"
	"os"
	"strings"

	"github.com/eugenenazirov/layered-config/internal/configstore"
)

// nestedSeparator stands in for ':' in variable names, which most shells reject.
const nestedSeparator = "__"

// Env exposes the process environment as a source. With a prefix set, only
// matching variables are kept and the prefix is stripped.
type Env struct {
	name     string
	priority int
	prefix   string
	environ  func() []string
}

// EnvOption configures an Env provider.
type EnvOption func(*Env)

// WithPrefix keeps only variables starting with prefix (case-insensitive).
func WithPrefix(prefix string) EnvOption {
	return func(e *Env) {
		e.prefix = prefix
	}
}

// WithEnviron replaces os.Environ, mainly for tests.
func WithEnviron(environ func() []string) EnvOption {
	return func(e *Env) {
		e.environ = environ
	}
}

// NewEnv creates an environment provider.
func NewEnv(name string, priority int, opts ...EnvOption) *Env {
	e := &Env{
		name:     name,
		priority: priority,
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Env) Name() string    { return e.name }
func (e *Env) Priority() int   { return e.priority }
func (e *Env) Sensitive() bool { return true }

// Load snapshots the environment. Variables whose names do not form a valid
// key (for example "A____B") are skipped.
func (e *Env) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, kv := range e.environ() {
		name, value, found := strings.Cut(kv, "=")
		if !found || name == "" {
			continue
		}
		if e.prefix != "" {
			if len(name) < len(e.prefix) || !strings.EqualFold(name[:len(e.prefix)], e.prefix) {
				continue
			}
			name = name[len(e.prefix):]
		}

		key := strings.ReplaceAll(name, nestedSeparator, configstore.KeyDelimiter)
		if _, ok := configstore.DisplayKey(key); !ok {
			continue
		}
		out[key] = value
	}
	return out, nil
}
