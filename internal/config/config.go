package config

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/eugenenazirov/layered-config/internal/configstore"
)

const (
	// Section holds the service settings.
	Section = "Server"
	// LogLevelKey selects the default log level.
	LogLevelKey = "Logging:LogLevel:Default"
	// AllowedOriginsKey holds the admin API CORS origins as an array.
	AllowedOriginsKey = Section + ":AllowedOrigins"

	defaultPort = "8080"
)

// Config aggregates runtime configuration resolved from the store.
// Precedence: CLI flags > store sources > defaults.
//
// Numeric, boolean and duration settings carry envDefault tags so an explicit
// zero from a source survives (a zero rate limit disables limiting, a zero
// WriteTimeout means no timeout). Only Port is defaulted after binding.
type Config struct {
	Port                 string        `env:"PORT"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWNGRACEPERIOD" envDefault:"10s"`
	ReadHeaderTimeout    time.Duration `env:"READHEADERTIMEOUT" envDefault:"5s"`
	WriteTimeout         time.Duration `env:"WRITETIMEOUT" envDefault:"15s"`
	IdleTimeout          time.Duration `env:"IDLETIMEOUT" envDefault:"60s"`
	EnableRequestLogging bool          `env:"ENABLEREQUESTLOGGING" envDefault:"true"`
	RateLimitRPS         float64       `env:"RATELIMIT_RPS" envDefault:"25"`
	RateLimitBurst       int           `env:"RATELIMIT_BURST" envDefault:"50"`
	RedactSecrets        bool          `env:"REDACTSECRETS" envDefault:"true"`
	Watch                bool          `env:"WATCH" envDefault:"true"`
	WatchDebounce        time.Duration `env:"WATCHDEBOUNCE" envDefault:"250ms"`
	LogLevel             string
	AllowedOrigins       []string
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
}

// Load binds the Server section of store, applies overrides and validates
// the result.
func Load(store *configstore.ConfigStore, overrides *CLIOverrides) (Config, error) {
	var cfg Config
	if err := store.Bind(Section, &cfg, defaultConfig()); err != nil {
		return Config{}, fmt.Errorf("bind %s settings: %w", Section, err)
	}

	if rv, ok := store.Get(LogLevelKey); ok {
		cfg.LogLevel = strings.TrimSpace(rv.Value)
	}
	cfg.AllowedOrigins = list(store.GetSection(AllowedOriginsKey))

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns the values merged into settings left empty after
// binding. An empty port is never meaningful, so it is defaulted here.
func defaultConfig() Config {
	return Config{
		Port: defaultPort,
	}
}

// list returns the values of an array section in index order. Entries whose
// relative key is not an index are ignored.
func list(section configstore.Section) []string {
	type item struct {
		index int
		value string
	}
	var items []item
	for relative, rv := range section {
		idx, err := strconv.Atoi(relative)
		if err != nil || idx < 0 {
			continue
		}
		if v := strings.TrimSpace(rv.Value); v != "" {
			items = append(items, item{idx, v})
		}
	}
	slices.SortFunc(items, func(a, b item) int { return cmp.Compare(a.index, b.index) })

	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.value)
	}
	return out
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("%s:RateLimit:RPS must be >= 0", Section)
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("%s:RateLimit:Burst must be >= 0", Section)
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("%s:Port cannot be empty", Section)
	}
	if cfg.WatchDebounce < 0 {
		return fmt.Errorf("%s:WatchDebounce must be >= 0", Section)
	}
	return nil
}
