package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPaths configPaths
	LogLevel    string
	LogFormat   string
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

// configPaths is a repeatable -config flag. Later files override earlier ones.
type configPaths []string

func (p *configPaths) String() string {
	return strings.Join(*p, ",")
}

func (p *configPaths) Set(value string) error {
	*p = append(*p, value)
	return nil
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	if env := os.Getenv("BREWBLOX_CONFIG"); env != "" {
		for _, path := range strings.Split(env, ",") {
			if path = strings.TrimSpace(path); path != "" {
				cfg.ConfigPaths = append(cfg.ConfigPaths, path)
			}
		}
	}

	flag.Var(&cfg.ConfigPaths, "config",
		"Path to a configuration file, repeatable; later files override earlier ones (env: BREWBLOX_CONFIG)")
	flag.Var(&cfg.ConfigPaths, "c",
		"Path to a configuration file, repeatable; later files override earlier ones (env: BREWBLOX_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("BREWBLOX_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: BREWBLOX_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("BREWBLOX_LOG_FORMAT", "json"),
		"Log format: json, text (env: BREWBLOX_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("BREWBLOX_DEBUG", false),
		"Enable debug mode (env: BREWBLOX_DEBUG)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Debug mode implies debug logging
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	for _, path := range cfg.ConfigPaths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file not found: %s", path)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - BrewBlox service scaffolding

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/etc/brewblox/service.json

  # Layer a local override over the base config
  %s --config=base.json --config=local.json

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run with environment variables
  export BREWBLOX_CONFIG=/etc/brewblox/service.json
  export BREWBLOX_BUS_URL=nats://eventbus:4222
  %s

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvBool reads a boolean environment variable; unset or unparsable
// values return the fallback
func getEnvBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}
