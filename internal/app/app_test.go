package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lamvh/estate-harvester/internal/app"
	"github.com/lamvh/estate-harvester/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Scraper: config.ScraperConfig{
			UserAgent:       "harvester-test",
			MaxPagesDefault: 2,
			IntervalHours:   6,
		},
		HTTP:      config.HTTPConfig{TimeoutSeconds: 5},
		Headless:  config.HeadlessConfig{MaxParallel: 1, NavTimeoutSec: 5, Burst: 1},
		Sources:   config.SourcesConfig{Enabled: []string{"chotot"}},
		Database:  config.DatabaseConfig{Provider: "memory"},
		Publisher: config.PublisherConfig{Provider: "memory"},
		Archive:   config.ArchiveConfig{Provider: "memory"},
	}
}

func TestNew_MemoryProviders(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.Orchestrator)
	require.True(t, a.Orchestrator.HasSource("chotot"))
	require.False(t, a.Orchestrator.SchedulerActive())
	a.Close()
}

func TestNew_RegistersEnabledSources(t *testing.T) {
	cfg := testConfig()
	cfg.Sources.Enabled = []string{"batdongsan", "chotot"}

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.True(t, a.Orchestrator.HasSource("batdongsan"))
	require.True(t, a.Orchestrator.HasSource("chotot"))
}

func TestNew_UnknownSource(t *testing.T) {
	cfg := testConfig()
	cfg.Sources.Enabled = []string{"zillow"}

	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown source "zillow"`)
}

func TestNew_ProviderErrors(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(*config.Config)
		expectedErr string
	}{
		{
			name:        "unknown database provider",
			mutate:      func(c *config.Config) { c.Database.Provider = "oracle" },
			expectedErr: "unknown database provider: oracle",
		},
		{
			name:        "unknown publisher provider",
			mutate:      func(c *config.Config) { c.Publisher.Provider = "kafka" },
			expectedErr: "unknown publisher provider: kafka",
		},
		{
			name:        "unknown archive provider",
			mutate:      func(c *config.Config) { c.Archive.Provider = "s3" },
			expectedErr: "unknown archive provider: s3",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)

			_, err := app.New(context.Background(), cfg, zap.NewNop())
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestNew_LocalArchive(t *testing.T) {
	cfg := testConfig()
	cfg.Archive.Provider = "local"
	cfg.Archive.BaseDir = t.TempDir()

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	a.Close()
}

func TestNew_SchedulerOnStart(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.ScheduleOnStart = true
	cfg.Scraper.IntervalHours = 1

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.True(t, a.Orchestrator.SchedulerActive())

	a.Close()
	require.False(t, a.Orchestrator.SchedulerActive())
}
