package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// AdminTokenEnv overrides server.admin_token when set.
const AdminTokenEnv = "TEXTBOARD_ADMIN_TOKEN"

const (
	DefaultHost           = "localhost"
	DefaultPort           = 8080
	DefaultThreadsPerPage = 10
	DefaultSearchPerPage  = 20
	DefaultMaxPerPage     = 100
	DefaultLiveBuffer     = 32
	DefaultMDNSService    = "_textboard._tcp"
	DefaultMDNSInstance   = "textboard"

	DefaultMaintenanceInterval = time.Hour
)

type Config struct {
	DatabasePath string            `toml:"database_path"`
	Server       ServerConfig      `toml:"server"`
	Board        BoardConfig       `toml:"board"`
	Live         LiveConfig        `toml:"live"`
	MDNS         MDNSConfig        `toml:"mdns"`
	Maintenance  MaintenanceConfig `toml:"maintenance"`
}

type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	BaseURL      string   `toml:"base_url"`
	AdminToken   string   `toml:"admin_token"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

type BoardConfig struct {
	ThreadsPerPage int `toml:"threads_per_page"`
	SearchPerPage  int `toml:"search_per_page"`
	MaxPerPage     int `toml:"max_per_page"`
}

type LiveConfig struct {
	// Buffer is the per-listener event buffer. Slow listeners drop events
	// once it is full.
	Buffer int `toml:"buffer"`
}

type MDNSConfig struct {
	Enabled  bool   `toml:"enabled"`
	Service  string `toml:"service"`
	Instance string `toml:"instance"`
}

// MaintenanceConfig schedules housekeeping while serving. A missing or zero
// interval disables it.
type MaintenanceConfig struct {
	Interval Duration `toml:"interval"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func GetDefaultConfig() (*Config, error) {
	dbPath, err := GetDefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("getting default database path: %w", err)
	}
	cfg := &Config{DatabasePath: dbPath}
	cfg.Maintenance.Interval = Duration{DefaultMaintenanceInterval}
	cfg.applyDefaults()
	return cfg, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, err := GetDefaultConfig()
		if err != nil {
			return nil, err
		}
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.DatabasePath == "" {
		dbPath, err := GetDefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("getting default database path: %w", err)
		}
		config.DatabasePath = dbPath
	}

	config.applyDefaults()
	config.applyEnv()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{15 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{30 * time.Second}
	}
	if c.Board.ThreadsPerPage <= 0 {
		c.Board.ThreadsPerPage = DefaultThreadsPerPage
	}
	if c.Board.SearchPerPage <= 0 {
		c.Board.SearchPerPage = DefaultSearchPerPage
	}
	if c.Board.MaxPerPage <= 0 {
		c.Board.MaxPerPage = DefaultMaxPerPage
	}
	if c.Live.Buffer <= 0 {
		c.Live.Buffer = DefaultLiveBuffer
	}
	if c.MDNS.Service == "" {
		c.MDNS.Service = DefaultMDNSService
	}
	if c.MDNS.Instance == "" {
		c.MDNS.Instance = DefaultMDNSInstance
	}
}

func (c *Config) applyEnv() {
	if token := strings.TrimSpace(os.Getenv(AdminTokenEnv)); token != "" {
		c.Server.AdminToken = token
	}
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	dbPath := c.DatabasePath
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return "", fmt.Errorf("getting default database path: %w", err)
		}
	}

	// Replace the placeholder database_path with the actual path
	return strings.Replace(configTemplate, "/home/user/.local/share/textboard/textboard.db", dbPath, 1), nil
}

// GetDefaultStorageDir returns the default directory for the database
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "textboard")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultDBPath returns the default database path in the user's data directory
func GetDefaultDBPath() (string, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(storageDir, "textboard.db"), nil
}

// GetConfigDir returns the configuration directory for textboard
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "textboard")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
