package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/ozlphrt/vibeants/internal/colony"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr               string
	DefaultWorldID     string
	ConfigFile         string
	SnapshotDir        string
	SnapshotEveryTicks int
	LogLevel           string
	TickIntervalMS     int
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment variables.
// Uses a resolver pattern to make it easy to add new configuration options.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	// Define all configuration resolvers
	// To add a new option, just add a new resolver here
	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "VIBEANTS_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "world-id",
			envVarName:  "VIBEANTS_WORLD_ID",
			defaultVal:  "default",
			description: "world ID created at startup when a config file is given",
			setter:      func(c *ServerConfig, v string) { c.DefaultWorldID = v },
		},
		{
			flagName:    "config-file",
			envVarName:  "VIBEANTS_CONFIG_FILE",
			defaultVal:  "",
			description: "optional path to a JSON world config file to load at startup",
			setter:      func(c *ServerConfig, v string) { c.ConfigFile = v },
		},
		{
			flagName:    "snapshot-dir",
			envVarName:  "VIBEANTS_SNAPSHOT_DIR",
			defaultVal:  "./data",
			description: "Directory where world snapshots are stored",
			setter:      func(c *ServerConfig, v string) { c.SnapshotDir = v },
		},
		{
			flagName:    "snapshot-every-ticks",
			envVarName:  "VIBEANTS_SNAPSHOT_EVERY_TICKS",
			defaultVal:  "0",
			description: "How often to write snapshots (in number of ticks); 0 disables periodic snapshots",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil {
					c.SnapshotEveryTicks = val
				} else {
					log.Printf("Invalid value for snapshot-every-ticks: %s, using 0", v)
					c.SnapshotEveryTicks = 0
				}
			},
		},
		{
			flagName:    "tick-ms",
			envVarName:  "VIBEANTS_TICK_MS",
			defaultVal:  "16",
			description: "Default tick interval in milliseconds for auto-running worlds",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil && val > 0 {
					c.TickIntervalMS = val
				} else {
					log.Printf("Invalid value for tick-ms: %s, using 16", v)
					c.TickIntervalMS = 16
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "VIBEANTS_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	// Register string flags first
	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	// Parse flags once
	flag.Parse()

	// Resolve values for each resolver
	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}

// loadWorldConfigFromFile loads a world configuration from a JSON file.
func loadWorldConfigFromFile(path string) (colony.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return colony.Config{}, err
	}

	cfg := colony.DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return colony.Config{}, err
	}
	if err := colony.ValidateConfig(cfg); err != nil {
		return colony.Config{}, err
	}
	return cfg, nil
}
