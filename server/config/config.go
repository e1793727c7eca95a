package config

import (
	"errors"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	Downloads      DownloadsConfig `yaml:",inline" mapstructure:",squash"`
	Server         ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging        LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Paths          PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Authentication AuthConfig      `yaml:"authentication" mapstructure:"authentication"`
	AutoArchive    bool            `yaml:"auto_archive" mapstructure:"auto_archive"`

	mu   sync.RWMutex
	path string
}

// Settings a user can change at runtime. Access them through Settings and
// UpdateSettings once the config is shared.
type DownloadsConfig struct {
	SaveDir               string        `yaml:"save_dir" mapstructure:"save_dir" json:"save_dir"`
	ToolPath              string        `yaml:"tool_path" mapstructure:"tool_path" json:"tool_path"`
	AutoRemove            bool          `yaml:"auto_remove" mapstructure:"auto_remove" json:"auto_remove"`
	AutoRemoveDelay       time.Duration `yaml:"auto_remove_delay" mapstructure:"auto_remove_delay" json:"auto_remove_delay"`
	ProbeTimeout          time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout" json:"probe_timeout"`
	GracePeriod           time.Duration `yaml:"grace_period" mapstructure:"grace_period" json:"grace_period"`
	ProbePlaylistFallback bool          `yaml:"probe_playlist_fallback" mapstructure:"probe_playlist_fallback" json:"probe_playlist_fallback"`
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Host    string `yaml:"host" mapstructure:"host"`
	Port    int    `yaml:"port" mapstructure:"port"`
}

type LoggingConfig struct {
	LogPath           string `yaml:"log_path" mapstructure:"log_path"`
	EnableFileLogging bool   `yaml:"enable_file_logging" mapstructure:"enable_file_logging"`
}

type PathsConfig struct {
	LocalDatabasePath string `yaml:"local_database_path" mapstructure:"local_database_path"`
}

type AuthConfig struct {
	RequireAuth bool   `yaml:"require_auth" mapstructure:"require_auth"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	TokenSecret string `yaml:"token_secret" mapstructure:"token_secret"`
}

var (
	ErrNoConfigFile       = errors.New("config has no backing file")
	ErrMissingCredentials = errors.New("authentication is required but username or password is empty")
)

// Validate rejects an enabled authentication without credentials.
func (a AuthConfig) Validate() error {
	if a.RequireAuth && (a.Username == "" || a.Password == "") {
		return ErrMissingCredentials
	}
	return nil
}

// Settings returns a copy of the runtime-editable settings.
func (c *Config) Settings() DownloadsConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Downloads
}

func (c *Config) UpdateSettings(update func(d *DownloadsConfig)) DownloadsConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	update(&c.Downloads)
	c.Downloads.SaveDir = expandHome(c.Downloads.SaveDir)

	return c.Downloads
}

// Path of the directory containing the config file
func (c *Config) Dir() string { return filepath.Dir(c.path) }

// Absolute path of the config file
func (c *Config) Path() string { return c.path }
