package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "M3U8DL"

func defaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("save_dir", defaultSaveDir())
	v.SetDefault("tool_path", "")
	v.SetDefault("auto_remove", false)
	v.SetDefault("auto_remove_delay", 1500*time.Millisecond)
	v.SetDefault("probe_timeout", 30*time.Second)
	v.SetDefault("grace_period", 5*time.Second)
	v.SetDefault("probe_playlist_fallback", true)
	v.SetDefault("auto_archive", true)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3034)
	v.SetDefault("server.base_url", "")
	v.SetDefault("paths.local_database_path", ".")
	v.SetDefault("logging.log_path", "m3u8-dl.log")
	v.SetDefault("logging.enable_file_logging", false)
	// every key needs a default, AutomaticEnv only overrides known keys
	v.SetDefault("authentication.require_auth", false)
	v.SetDefault("authentication.username", "")
	v.SetDefault("authentication.password", "")
	v.SetDefault("authentication.token_secret", "")
}

// Load reads the yaml file at path, applies M3U8DL_* environment overrides and
// falls back to defaults for everything else. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, err
		}
		slog.Debug("config file not found, using defaults", slog.String("path", path))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Authentication.Validate(); err != nil {
		return nil, err
	}

	cfg.Downloads.SaveDir = expandHome(cfg.Downloads.SaveDir)

	if abs, err := filepath.Abs(path); err == nil {
		cfg.path = abs
	} else {
		cfg.path = path
	}

	return cfg, nil
}

// Save writes the user settings back into the config file. Keys the
// application does not manage are left untouched.
func (c *Config) Save() error {
	if c.path == "" {
		return ErrNoConfigFile
	}

	doc := map[string]any{}

	data, err := os.ReadFile(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return err
		}
	}

	s := c.Settings()
	doc["save_dir"] = s.SaveDir
	doc["tool_path"] = s.ToolPath
	doc["auto_remove"] = s.AutoRemove

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), os.ModePerm); err != nil {
		return err
	}

	return os.WriteFile(c.path, out, 0644)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
