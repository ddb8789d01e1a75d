// Package hosting assembles the standard configuration layout of a service:
// command-line overrides, environment variables, per-user secrets (only in
// the Development environment), the environment-specific settings file and
// the base settings file, in that order of precedence.
//
// The resulting Host owns the ConfigStore and remembers which provider backs
// each source so that sources can be re-read and reloaded by name.
package hosting
