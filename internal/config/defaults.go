package config

const (
	defaultStagingDir          = "~/.local/share/curator/staging"
	defaultLogDir              = "~/.local/share/curator/logs"
	defaultProviderBaseURL     = "https://api.dropboxapi.com/2"
	defaultProviderRootPath    = "/photos"
	defaultProviderPageSize    = 500
	defaultProviderTimeout     = 60
	defaultWorkerCount         = 4
	defaultVideoCapableWorkers = 1
	defaultIdleIntervalSeconds = 5
	defaultSyncIntervalMinutes = 60
	defaultGeocodeBaseURL      = "https://api.geoapify.com/v1/geocode/reverse"
	defaultElevationBaseURL    = "https://api.open-elevation.com/api/v1/lookup"
	defaultClassifyBaseURL     = "https://api.imagga.com/v2/tags"
	defaultOCRBaseURL          = "https://api.ocr.space/parse/image"
	defaultPlateBaseURL        = "https://api.platerecognizer.com/v1/plate-reader"
	defaultPlantIDBaseURL      = "https://api.plant.id/v2/identify"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Provider: Provider{
			BaseURL:  defaultProviderBaseURL,
			RootPath: defaultProviderRootPath,
			PageSize: defaultProviderPageSize,
			OwnerID:  1,
			Timeout:  defaultProviderTimeout,
		},
		Workers: Workers{
			Count:               defaultWorkerCount,
			VideoCapable:        defaultVideoCapableWorkers,
			IdleIntervalSeconds: defaultIdleIntervalSeconds,
			SyncIntervalMinutes: defaultSyncIntervalMinutes,
		},
		Geocode: Geocode{
			BaseURL: defaultGeocodeBaseURL,
		},
		Elevation: Elevation{
			BaseURL: defaultElevationBaseURL,
		},
		Classify: Classify{
			BaseURL: defaultClassifyBaseURL,
		},
		OCR: OCR{
			BaseURL:      defaultOCRBaseURL,
			PlateBaseURL: defaultPlateBaseURL,
		},
		PlantID: PlantID{
			BaseURL: defaultPlantIDBaseURL,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
