package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/proofgate/proofgate/internal/api"
	"github.com/proofgate/proofgate/internal/audit"
	"github.com/proofgate/proofgate/internal/gateway"
)

// Paths holds XDG-compliant paths for proofgate.
type Paths struct {
	ConfigDir       string // ~/.config/proofgate
	DataDir         string // ~/.local/share/proofgate
	StorePath       string // ~/.local/share/proofgate/proofgate.db
	VerifyingKey    string // ~/.local/share/proofgate/verifying.key
	ProvingKey      string // ~/.local/share/proofgate/proving.key
	DefaultConfFile string // ~/.config/proofgate/server.toml
}

// ExpandPath expands ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
// Panics if home directory cannot be determined when ~ expansion is needed.
func ExpandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultPaths returns the default XDG-compliant paths.
// Panics if the user's home directory cannot be determined.
func DefaultPaths() Paths {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}
	configDir := filepath.Join(home, ".config", "proofgate")
	dataDir := filepath.Join(home, ".local", "share", "proofgate")

	return Paths{
		ConfigDir:       configDir,
		DataDir:         dataDir,
		StorePath:       filepath.Join(dataDir, "proofgate.db"),
		VerifyingKey:    filepath.Join(dataDir, "verifying.key"),
		ProvingKey:      filepath.Join(dataDir, "proving.key"),
		DefaultConfFile: filepath.Join(configDir, "server.toml"),
	}
}

// EnsureDirectories creates config and data directories if they don't exist.
func (p Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ConfigDir, 0700); err != nil {
		return err
	}
	return os.MkdirAll(p.DataDir, 0700)
}

// HTTPConfig holds the HTTP listener settings.
type HTTPConfig struct {
	ListenAddr             string `toml:"listen_addr"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

// GatewayConfig holds submission handling settings.
type GatewayConfig struct {
	VerifyTimeoutSeconds int  `toml:"verify_timeout_seconds"`
	RecordRejections     bool `toml:"record_rejections"`
}

// StoreConfig holds the durable store settings.
type StoreConfig struct {
	// Path is the SQLite database file. The literal value "memory" keeps
	// all state in process, for development only.
	Path string `toml:"path"`
}

// KeysConfig holds verifying key settings.
type KeysConfig struct {
	// VerifyingKey is the Groth16 BN254 verifying key file.
	VerifyingKey string `toml:"verifying_key"`
	// Watch enables hot reload of the verifying key on file change.
	Watch bool `toml:"watch"`
}

// AuditConfig holds broker fan-out settings for audit records.
type AuditConfig struct {
	// Enabled turns on publishing to the AMQP exchange. The durable store
	// records regardless.
	Enabled   bool                  `toml:"enabled"`
	Publisher audit.PublisherConfig `toml:"publisher"`
}

// ServerConfig holds configuration for proofgate-server.
type ServerConfig struct {
	Server  HTTPConfig    `toml:"server"`
	Gateway GatewayConfig `toml:"gateway"`
	Store   StoreConfig   `toml:"store"`
	Keys    KeysConfig    `toml:"keys"`
	Audit   AuditConfig   `toml:"audit"`
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	paths := DefaultPaths()
	return ServerConfig{
		Server: HTTPConfig{
			ListenAddr:             "127.0.0.1:8480",
			ShutdownTimeoutSeconds: 10,
		},
		Gateway: GatewayConfig{
			VerifyTimeoutSeconds: 30,
		},
		Store: StoreConfig{
			Path: paths.StorePath,
		},
		Keys: KeysConfig{
			VerifyingKey: paths.VerifyingKey,
			Watch:        true,
		},
		Audit: AuditConfig{
			Enabled:   false,
			Publisher: audit.DefaultPublisherConfig(),
		},
	}
}

// APIConfig converts the HTTP section into the api package's form.
func (c *ServerConfig) APIConfig() api.Config {
	return api.Config{
		ListenAddr:      c.Server.ListenAddr,
		ShutdownTimeout: time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second,
	}
}

// GatewayConfig converts the gateway section into the gateway package's form.
func (c *ServerConfig) GatewayConfig() gateway.Config {
	return gateway.Config{
		VerifyTimeout:    time.Duration(c.Gateway.VerifyTimeoutSeconds) * time.Second,
		RecordRejections: c.Gateway.RecordRejections,
	}
}

// Validate checks the configuration for errors.
func (c *ServerConfig) Validate() error {
	if err := c.APIConfig().Validate(); err != nil {
		return err
	}
	if err := c.GatewayConfig().Validate(); err != nil {
		return err
	}
	if c.Store.Path == "" {
		return fmt.Errorf("config: store path is required")
	}
	if c.Keys.VerifyingKey == "" {
		return fmt.Errorf("config: verifying key path is required")
	}
	if c.Audit.Enabled {
		if err := c.Audit.Publisher.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadServerConfig loads a ServerConfig from a TOML file.
// Paths with ~ are expanded to the user's home directory.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultServerConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.Store.Path = expandStorePath(cfg.Store.Path)
	cfg.Keys.VerifyingKey = ExpandPath(cfg.Keys.VerifyingKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandStorePath expands ~ but leaves the "memory" sentinel alone.
func expandStorePath(path string) string {
	if path == "memory" {
		return path
	}
	return ExpandPath(path)
}
