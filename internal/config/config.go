package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openmed/ledgerd/internal/ledger"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Chain   ChainConfig   `yaml:"chain"`
	Storage StorageConfig `yaml:"storage"`
	Peers   PeersConfig   `yaml:"peers"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ChainConfig represents the ledger configuration
type ChainConfig struct {
	Difficulty int `yaml:"difficulty"`
}

// StorageConfig represents the Pebble persistence configuration
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PeersConfig represents peer networking configuration
type PeersConfig struct {
	Addresses       []string `yaml:"addresses"`
	FetchTimeout    int      `yaml:"fetch_timeout"`    // per-peer fetch timeout in seconds
	ResolveInterval int      `yaml:"resolve_interval"` // auto-resolve interval in seconds (0 = manual only)
}

// Load loads configuration from a YAML file and environment variables
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Chain: ChainConfig{
			Difficulty: 4,
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    "./data/pebble",
		},
		Peers: PeersConfig{
			FetchTimeout:    5,
			ResolveInterval: 0,
		},
	}

	// Load from YAML file if it exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.loadEnv()

	if cfg.Chain.Difficulty < 1 || cfg.Chain.Difficulty > ledger.MaxDifficulty {
		return nil, fmt.Errorf("chain difficulty must be between 1 and %d, got %d", ledger.MaxDifficulty, cfg.Chain.Difficulty)
	}

	return cfg, nil
}

func (c *Config) loadEnv() {
	// Server config
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Chain config
	if difficulty := os.Getenv("CHAIN_DIFFICULTY"); difficulty != "" {
		if d, err := strconv.Atoi(difficulty); err == nil {
			c.Chain.Difficulty = d
		}
	}

	// Storage config
	if enabled := os.Getenv("STORAGE_ENABLED"); enabled != "" {
		c.Storage.Enabled = enabled == "true" || enabled == "1"
	}
	if path := os.Getenv("STORAGE_PATH"); path != "" {
		c.Storage.Path = path
	}

	// Peers config
	if addresses := os.Getenv("PEER_ADDRESSES"); addresses != "" {
		c.Peers.Addresses = nil
		for _, address := range strings.Split(addresses, ",") {
			if trimmed := strings.TrimSpace(address); trimmed != "" {
				c.Peers.Addresses = append(c.Peers.Addresses, trimmed)
			}
		}
	}
	if timeout := os.Getenv("PEER_FETCH_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			c.Peers.FetchTimeout = t
		}
	}
	if interval := os.Getenv("PEER_RESOLVE_INTERVAL"); interval != "" {
		if i, err := strconv.Atoi(interval); err == nil {
			c.Peers.ResolveInterval = i
		}
	}
}
