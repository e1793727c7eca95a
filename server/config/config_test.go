package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatal(err)
	}

	s := cfg.Settings()

	if s.ToolPath != "" {
		t.Errorf("tool_path = %q, want empty", s.ToolPath)
	}
	if s.AutoRemove {
		t.Error("auto_remove should default to false")
	}
	if s.AutoRemoveDelay != 1500*time.Millisecond {
		t.Errorf("auto_remove_delay = %v", s.AutoRemoveDelay)
	}
	if s.SaveDir == "" {
		t.Error("save_dir should have a default")
	}
	if home, err := os.UserHomeDir(); err == nil && s.SaveDir != filepath.Join(home, "Desktop") {
		t.Errorf("save_dir = %q, want ~/Desktop", s.SaveDir)
	}
	if cfg.Server.Port != 3034 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
	if !cfg.AutoArchive {
		t.Error("auto_archive should default to true")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	content := strings.Join([]string{
		"save_dir: /srv/media",
		"auto_remove: true",
		"auto_remove_delay: 3s",
		"server:",
		"  port: 8080",
	}, "\n")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("M3U8DL_TOOL_PATH", "/opt/ffmpeg/bin/ffmpeg")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	s := cfg.Settings()
	if s.SaveDir != "/srv/media" {
		t.Errorf("save_dir = %q", s.SaveDir)
	}
	if !s.AutoRemove || s.AutoRemoveDelay != 3*time.Second {
		t.Errorf("auto_remove = %v, delay = %v", s.AutoRemove, s.AutoRemoveDelay)
	}
	if s.ToolPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("tool_path = %q, env override ignored", s.ToolPath)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d", cfg.Server.Port)
	}
}

func TestSaveMergesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	if err := os.WriteFile(path, []byte("server:\n  port: 9000\ncustom_key: keep-me\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	cfg.UpdateSettings(func(d *DownloadsConfig) {
		d.SaveDir = "/data/out"
		d.ToolPath = "/usr/local/bin/ffmpeg"
		d.AutoRemove = true
	})

	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	if doc["custom_key"] != "keep-me" {
		t.Errorf("unmanaged key lost: %v", doc)
	}
	if doc["save_dir"] != "/data/out" || doc["auto_remove"] != true {
		t.Errorf("settings not written: %v", doc)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Settings().ToolPath; got != "/usr/local/bin/ffmpeg" {
		t.Errorf("reloaded tool_path = %q", got)
	}
	if reloaded.Server.Port != 9000 {
		t.Errorf("reloaded server.port = %d", reloaded.Server.Port)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandHome("~/Videos"); got != filepath.Join(home, "Videos") {
		t.Errorf("got %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("got %q", got)
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("M3U8DL_AUTHENTICATION_REQUIRE_AUTH", "true")
	t.Setenv("M3U8DL_AUTHENTICATION_USERNAME", "admin")
	t.Setenv("M3U8DL_AUTHENTICATION_PASSWORD", "s3cret")
	t.Setenv("M3U8DL_AUTHENTICATION_TOKEN_SECRET", "signing-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatal(err)
	}

	auth := cfg.Authentication
	if !auth.RequireAuth || auth.Username != "admin" || auth.Password != "s3cret" || auth.TokenSecret != "signing-key" {
		t.Fatalf("env credentials ignored: %+v", auth)
	}
}

func TestLoadRejectsAuthWithoutCredentials(t *testing.T) {
	t.Setenv("M3U8DL_AUTHENTICATION_REQUIRE_AUTH", "true")
	t.Setenv("M3U8DL_AUTHENTICATION_USERNAME", "admin")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}
