package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Provider contains remote storage provider connection settings.
type Provider struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
	RootPath    string `toml:"root_path"`
	PageSize    int    `toml:"page_size"`
	OwnerID     int64  `toml:"owner_id"`
	Timeout     int    `toml:"timeout"`
}

// Workers contains worker pool sizing and timing.
type Workers struct {
	Count               int `toml:"count"`
	VideoCapable        int `toml:"video_capable"`
	IdleIntervalSeconds int `toml:"idle_interval_seconds"`
	SyncIntervalMinutes int `toml:"sync_interval_minutes"`
}

// Geocode contains reverse-geocoding service settings.
type Geocode struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Elevation contains elevation lookup service settings.
type Elevation struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
}

// Classify contains subject-detection (tagging) service settings.
type Classify struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// OCR contains text recognition service settings for both the generic and
// the license-plate providers.
type OCR struct {
	Enabled      bool   `toml:"enabled"`
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	PlateEnabled bool   `toml:"plate_enabled"`
	PlateAPIKey  string `toml:"plate_api_key"`
	PlateBaseURL string `toml:"plate_base_url"`
}

// PlantID contains plant identification service settings.
type PlantID struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for curator.
//
// Configuration sections by subsystem:
//   - Paths: staging and log directories
//   - Provider: remote storage account being mirrored
//   - Workers: pool sizing and scheduling intervals
//   - Geocode/Elevation/Classify/OCR/PlantID: enrichment integrations
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Provider  Provider  `toml:"provider"`
	Workers   Workers   `toml:"workers"`
	Geocode   Geocode   `toml:"geocode"`
	Elevation Elevation `toml:"elevation"`
	Classify  Classify  `toml:"classify"`
	OCR       OCR       `toml:"ocr"`
	PlantID   PlantID   `toml:"plant_id"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curator/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is the
// resolved path, the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the target path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories curator needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
