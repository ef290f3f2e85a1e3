package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateProvider() error {
	if strings.TrimSpace(c.Provider.AccessToken) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/curator/config.toml"
		}
		return fmt.Errorf("provider.access_token is required. Set CURATOR_PROVIDER_TOKEN env var or edit %s (create with 'curatord config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Provider.RootPath, "/") {
		return errors.New("provider.root_path must be an absolute provider path starting with /")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count < 1 {
		return errors.New("workers.count must be at least 1")
	}
	if c.Workers.VideoCapable < 1 {
		return errors.New("workers.video_capable must be at least 1")
	}
	if c.Workers.VideoCapable > c.Workers.Count {
		return errors.New("workers.video_capable cannot exceed workers.count")
	}
	return nil
}

func (c *Config) validateServices() error {
	if c.Geocode.Enabled && c.Geocode.APIKey == "" {
		return errors.New("geocode.api_key must be set when geocode.enabled is true")
	}
	if c.Classify.Enabled && c.Classify.APIKey == "" {
		return errors.New("classify.api_key must be set when classify.enabled is true")
	}
	if c.OCR.Enabled && c.OCR.APIKey == "" {
		return errors.New("ocr.api_key must be set when ocr.enabled is true")
	}
	if c.OCR.PlateEnabled && c.OCR.PlateAPIKey == "" {
		return errors.New("ocr.plate_api_key must be set when ocr.plate_enabled is true")
	}
	if c.PlantID.Enabled && c.PlantID.APIKey == "" {
		return errors.New("plant_id.api_key must be set when plant_id.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
