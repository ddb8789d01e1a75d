package configstore

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// Bind decodes the section under prefix into out, a pointer to a struct
// tagged for github.com/caarlos0/env. Relative keys are exposed to the
// decoder in upper snake case, so "RateLimit:Burst" under prefix "Server"
// is read by a field tagged `env:"RATELIMIT_BURST"`, or by a field tagged
// `env:"BURST"` inside a struct tagged `envPrefix:"RATELIMIT_"`.
//
// When defaults is non-nil, fields of out still holding their zero value
// afterwards are filled from defaults.
func (s *ConfigStore) Bind(prefix string, out any, defaults any) error {
	section := s.GetSection(prefix)

	environment := make(map[string]string, len(section))
	for relative, rv := range section {
		environment[bindingName(relative)] = rv.Value
	}

	if err := env.ParseWithOptions(out, env.Options{Environment: environment}); err != nil {
		return &Error{Kind: KindInvalidValue, Key: prefix, Err: err}
	}

	if defaults == nil {
		return nil
	}
	if err := mergo.Merge(out, defaults); err != nil {
		return fmt.Errorf("apply defaults to section %q: %w", prefix, err)
	}
	return nil
}

func bindingName(relative string) string {
	return strings.ToUpper(strings.ReplaceAll(relative, KeyDelimiter, "_"))
}
