// Package config manages filesyncd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete filesyncd configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Share    ShareConfig    `koanf:"share"`
	Transfer TransferConfig `koanf:"transfer"`
	Peers    []PeerConfig   `koanf:"peers"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds the TCP listener configuration.
type ServerConfig struct {
	// Addr is the TCP listen address (e.g., ":7777").
	Addr string `koanf:"addr"`
	// AdvertisedHost is the host this node advertises in handshake messages.
	AdvertisedHost string `koanf:"advertised_host"`
	// AdvertisedPort is the port this node advertises in handshake messages.
	AdvertisedPort uint16 `koanf:"advertised_port"`
}

// ShareConfig holds the synced directory configuration.
type ShareConfig struct {
	// Root is the filesystem path the store treats as its share root; no
	// path may resolve outside it (spec §4.2 isSafePathName).
	Root string `koanf:"root"`
}

// TransferConfig holds the file-transfer chunking configuration.
type TransferConfig struct {
	// BlockSize is the maximum number of bytes requested per
	// FILE_BYTES_REQUEST (spec §6.3 blockSize).
	BlockSize uint64 `koanf:"block_size"`
	// MaxIncomingConnections is the admission cap enforced by the Local
	// Node on inbound handshakes (spec §6.3 maximumIncomingConnections).
	MaxIncomingConnections int `koanf:"max_incoming_connections"`
}

// PeerConfig declares an initial outbound peer to connect to at startup.
type PeerConfig struct {
	Host string `koanf:"host"`
	Port uint16 `koanf:"port"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":7777",
			AdvertisedHost: "localhost",
			AdvertisedPort: 7777,
		},
		Share: ShareConfig{
			Root: "./share",
		},
		Transfer: TransferConfig{
			BlockSize:              64 * 1024,
			MaxIncomingConnections: 32,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for filesyncd configuration.
// Variables are named FILESYNCD_<section>_<key>, e.g., FILESYNCD_SERVER_ADDR.
const envPrefix = "FILESYNCD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (FILESYNCD_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	FILESYNCD_SERVER_ADDR             -> server.addr
//	FILESYNCD_TRANSFER_BLOCK_SIZE     -> transfer.block_size
//	FILESYNCD_METRICS_ADDR            -> metrics.addr
//	FILESYNCD_LOG_LEVEL               -> log.level
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms FILESYNCD_SERVER_ADDR -> server.addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	// Only the first underscore separates section from key; the rest belong
	// to the key itself (transfer_block_size -> transfer.block_size).
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"server.addr":                       defaults.Server.Addr,
		"server.advertised_host":            defaults.Server.AdvertisedHost,
		"server.advertised_port":            defaults.Server.AdvertisedPort,
		"share.root":                        defaults.Share.Root,
		"transfer.block_size":               defaults.Transfer.BlockSize,
		"transfer.max_incoming_connections": defaults.Transfer.MaxIncomingConnections,
		"metrics.addr":                      defaults.Metrics.Addr,
		"metrics.path":                      defaults.Metrics.Path,
		"log.level":                         defaults.Log.Level,
		"log.format":                        defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyServerAddr indicates the TCP listen address is empty.
	ErrEmptyServerAddr = errors.New("server.addr must not be empty")

	// ErrEmptyShareRoot indicates the share root path is empty.
	ErrEmptyShareRoot = errors.New("share.root must not be empty")

	// ErrInvalidBlockSize indicates the transfer block size is zero.
	ErrInvalidBlockSize = errors.New("transfer.block_size must be > 0")

	// ErrInvalidMaxIncoming indicates the incoming-connection cap is invalid.
	ErrInvalidMaxIncoming = errors.New("transfer.max_incoming_connections must be >= 1")

	// ErrInvalidPeerHost indicates a configured peer has an empty host.
	ErrInvalidPeerHost = errors.New("peer host must not be empty")

	// ErrInvalidPeerPort indicates a configured peer has an unset port.
	ErrInvalidPeerPort = errors.New("peer port must be > 0")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return ErrEmptyServerAddr
	}
	if cfg.Share.Root == "" {
		return ErrEmptyShareRoot
	}
	if cfg.Transfer.BlockSize == 0 {
		return ErrInvalidBlockSize
	}
	if cfg.Transfer.MaxIncomingConnections < 1 {
		return ErrInvalidMaxIncoming
	}
	if err := validatePeers(cfg.Peers); err != nil {
		return err
	}
	return nil
}

// validatePeers checks each configured initial peer for correctness.
func validatePeers(peers []PeerConfig) error {
	for i, p := range peers {
		if p.Host == "" {
			return fmt.Errorf("peers[%d]: %w", i, ErrInvalidPeerHost)
		}
		if p.Port == 0 {
			return fmt.Errorf("peers[%d]: %w", i, ErrInvalidPeerPort)
		}
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
