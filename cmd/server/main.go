package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/layered-config/internal/application"
	"github.com/eugenenazirov/layered-config/internal/config"
	"github.com/eugenenazirov/layered-config/internal/hosting"
	"github.com/eugenenazirov/layered-config/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("configstore", "Layered configuration resolver - merges settings files, environment and secrets by precedence")
	contentRoot := kingpinApp.Flag("content-root", "Directory settings files are resolved against").Default(".").String()
	settingsFile := kingpinApp.Flag("settings", "Base settings file (.json, .yaml, .yml or .toml)").Default("appsettings.json").String()
	environment := kingpinApp.Flag("environment", "Environment name (default: $APP_ENVIRONMENT, $ASPNETCORE_ENVIRONMENT, Production)").String()
	envPrefix := kingpinApp.Flag("env-prefix", "Only read environment variables with this prefix").String()
	userSecretsID := kingpinApp.Flag("user-secrets-id", "User secrets id, loaded in Development").String()
	overridesFlag := kingpinApp.Flag("set", "Override a key, KEY=VALUE (repeatable, highest precedence)").StringMap()
	showSecrets := kingpinApp.Flag("show-secrets", "Print values from sensitive sources").Bool()

	serveCmd := kingpinApp.Command("serve", "Serve the resolved configuration over HTTP").Default()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	logLevel := serveCmd.Flag("log-level", "Log level (Trace, Debug, Information, Warning, Error, Critical, None)").String()

	getCmd := kingpinApp.Command("get", "Print the resolved value of a key")
	getKey := getCmd.Arg("key", "Configuration key, ':' or '.' delimited").Required().String()

	sectionCmd := kingpinApp.Command("section", "Print every key under a prefix")
	sectionPrefix := sectionCmd.Arg("prefix", "Section prefix; empty prints everything").String()

	sourcesCmd := kingpinApp.Command("sources", "List configuration sources in precedence order")

	explainCmd := kingpinApp.Command("explain", "Show every source defining a key, winner first")
	explainKey := explainCmd.Arg("key", "Configuration key").Required().String()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	host, err := hosting.Build(context.Background(), hosting.Options{
		ContentRoot:   *contentRoot,
		SettingsFile:  *settingsFile,
		Environment:   *environment,
		EnvPrefix:     *envPrefix,
		UserSecretsID: *userSecretsID,
		CommandLine:   *overridesFlag,
	})
	kingpinApp.FatalIfError(err, "failed to load configuration")

	inspector := newInspector(os.Stdout, host, !*showSecrets)
	switch command {
	case getCmd.FullCommand():
		kingpinApp.FatalIfError(inspector.get(*getKey), "get")
		return
	case sectionCmd.FullCommand():
		inspector.section(*sectionPrefix)
		return
	case sourcesCmd.FullCommand():
		inspector.sources()
		return
	case explainCmd.FullCommand():
		kingpinApp.FatalIfError(inspector.explain(*explainKey), "explain")
		return
	}

	overrides := &config.CLIOverrides{}
	if *port != "" {
		overrides.Port = port
	}
	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}
	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	cfg, err := config.Load(host.Store, overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, host, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		_ = app.Close()
	}()

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
