package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CURATOR_PROVIDER_TOKEN", "token-from-env")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if cfg.Workers.Count != 4 {
		t.Fatalf("expected default worker count 4, got %d", cfg.Workers.Count)
	}
	if cfg.Provider.AccessToken != "token-from-env" {
		t.Fatalf("expected token from environment, got %q", cfg.Provider.AccessToken)
	}
	if !strings.HasPrefix(cfg.Paths.StagingDir, "/") {
		t.Fatalf("expected expanded staging dir, got %q", cfg.Paths.StagingDir)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[provider]
access_token = "secret"
root_path = "/camera-uploads"

[workers]
count = 8
video_capable = 2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Workers.Count != 8 || cfg.Workers.VideoCapable != 2 {
		t.Fatalf("unexpected worker settings: %+v", cfg.Workers)
	}
	if cfg.Provider.RootPath != "/camera-uploads" {
		t.Fatalf("unexpected root path %q", cfg.Provider.RootPath)
	}
}

func TestValidateRejectsBadWorkerCounts(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.AccessToken = "token"
	cfg.Workers.Count = 2
	cfg.Workers.VideoCapable = 3
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when video_capable exceeds count")
	}
}

func TestValidateRequiresServiceKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.AccessToken = "token"
	cfg.Geocode.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when geocode enabled without api key")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(dir, "staging")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist", p)
		}
	}
}
