// Package config merges an optional server.yaml file with CLI flags into
// the Config the server runs with. Flags always win over YAML values
// when both are set.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the full set of server-tunable knobs named in spec.md §6.
type Config struct {
	Port       uint16 `yaml:"port"`
	Bind       string `yaml:"bind"`
	MOTD       string `yaml:"motd"`
	MaxPlayers int    `yaml:"max_players"`
	WorldDir   string `yaml:"world_dir"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns the documented defaults: port 25565, bind 0.0.0.0.
func Default() Config {
	return Config{
		Port:       25565,
		Bind:       "0.0.0.0",
		MOTD:       "A Minecraft Server",
		MaxPlayers: 20,
		WorldDir:   "world",
		LogLevel:   "info",
	}
}

// Load reads a server.yaml config file (a missing file is not an error, a
// corrupt one is), then applies CLI flags over it; flags always win.
// configPath is determined by first scanning args for --config, falling
// back to "server.yaml". args is normally os.Args[1:].
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("mc1710d", pflag.ContinueOnError)
	configPath := fs.String("config", "server.yaml", "path to server.yaml")
	port := fs.Uint16("port", cfg.Port, "listening port")
	bind := fs.String("bind", cfg.Bind, "bind address")
	motd := fs.String("motd", cfg.MOTD, "message of the day")
	maxPlayers := fs.Int("max-players", cfg.MaxPlayers, "maximum concurrent players")
	worldDir := fs.String("world", cfg.WorldDir, "world directory")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if data, err := os.ReadFile(*configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "bind":
			cfg.Bind = *bind
		case "motd":
			cfg.MOTD = *motd
		case "max-players":
			cfg.MaxPlayers = *maxPlayers
		case "world":
			cfg.WorldDir = *worldDir
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	return cfg, nil
}
