package hosting

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment names with special meaning.
const (
	Development = "Development"
	Staging     = "Staging"
	Production  = "Production"
)

// EnvironmentVariables are consulted in order when no environment is given explicitly.
var EnvironmentVariables = []string{"APP_ENVIRONMENT", "ASPNETCORE_ENVIRONMENT"}

// ResolveEnvironment returns explicit when set, otherwise the first non-empty
// variable of EnvironmentVariables, otherwise Production.
func ResolveEnvironment(explicit string, lookup func(string) (string, bool)) string {
	if env := strings.TrimSpace(explicit); env != "" {
		return env
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range EnvironmentVariables {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return Production
}

// IsDevelopment reports whether env names the Development environment.
func IsDevelopment(env string) bool {
	return strings.EqualFold(env, Development)
}

// EnvironmentFile derives the environment-specific settings file from the
// base one: appsettings.json -> appsettings.Development.json.
func EnvironmentFile(base, env string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "." + env + ext
}
