package testsupport

import (
	"path/filepath"
	"testing"

	"curator/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Provider.AccessToken = "test-token"
	cfg.Workers.Count = 2
	cfg.Workers.VideoCapable = 1
	cfg.Workers.IdleIntervalSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWorkerCount overrides pool sizing on the test config.
func WithWorkerCount(total, videoCapable int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workers.Count = total
		cfg.Workers.VideoCapable = videoCapable
	}
}
