package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeWorkers()
	c.normalizeServices()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = defaultProviderBaseURL
	}
	if c.Provider.AccessToken == "" {
		if value, ok := os.LookupEnv("CURATOR_PROVIDER_TOKEN"); ok {
			c.Provider.AccessToken = strings.TrimSpace(value)
		}
	}
	c.Provider.RootPath = strings.TrimSpace(c.Provider.RootPath)
	if c.Provider.RootPath == "" {
		c.Provider.RootPath = defaultProviderRootPath
	}
	if c.Provider.PageSize <= 0 {
		c.Provider.PageSize = defaultProviderPageSize
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = defaultProviderTimeout
	}
	if c.Provider.OwnerID <= 0 {
		c.Provider.OwnerID = 1
	}
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Count <= 0 {
		c.Workers.Count = defaultWorkerCount
	}
	if c.Workers.VideoCapable <= 0 {
		c.Workers.VideoCapable = defaultVideoCapableWorkers
	}
	if c.Workers.IdleIntervalSeconds <= 0 {
		c.Workers.IdleIntervalSeconds = defaultIdleIntervalSeconds
	}
	if c.Workers.SyncIntervalMinutes <= 0 {
		c.Workers.SyncIntervalMinutes = defaultSyncIntervalMinutes
	}
}

func (c *Config) normalizeServices() {
	c.Geocode.APIKey = fromEnvIfEmpty(c.Geocode.APIKey, "CURATOR_GEOCODE_API_KEY")
	c.Geocode.BaseURL = urlOrDefault(c.Geocode.BaseURL, defaultGeocodeBaseURL)
	c.Elevation.BaseURL = urlOrDefault(c.Elevation.BaseURL, defaultElevationBaseURL)
	c.Classify.APIKey = fromEnvIfEmpty(c.Classify.APIKey, "CURATOR_CLASSIFY_API_KEY")
	c.Classify.BaseURL = urlOrDefault(c.Classify.BaseURL, defaultClassifyBaseURL)
	c.OCR.APIKey = fromEnvIfEmpty(c.OCR.APIKey, "CURATOR_OCR_API_KEY")
	c.OCR.BaseURL = urlOrDefault(c.OCR.BaseURL, defaultOCRBaseURL)
	c.OCR.PlateAPIKey = fromEnvIfEmpty(c.OCR.PlateAPIKey, "CURATOR_PLATE_API_KEY")
	c.OCR.PlateBaseURL = urlOrDefault(c.OCR.PlateBaseURL, defaultPlateBaseURL)
	c.PlantID.APIKey = fromEnvIfEmpty(c.PlantID.APIKey, "CURATOR_PLANTID_API_KEY")
	c.PlantID.BaseURL = urlOrDefault(c.PlantID.BaseURL, defaultPlantIDBaseURL)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func fromEnvIfEmpty(value, envKey string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(envKey); ok {
		return strings.TrimSpace(env)
	}
	return ""
}

func urlOrDefault(value, fallback string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
