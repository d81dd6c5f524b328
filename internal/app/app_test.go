package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/config"
)

// One New call per process: the progress sink registers collectors against
// the default Prometheus registry.
func TestNewWiresMemoryProviders(t *testing.T) {
	cfg := config.Config{
		Server:     config.ServerConfig{Port: 8080},
		Engine:     config.EngineConfig{Provider: "embedded", TimeoutSeconds: 5},
		DB:         config.DBConfig{Provider: "memory"},
		Classifier: config.ClassifierConfig{Provider: "noop"},
		Archive:    config.ArchiveConfig{Provider: "memory", Prefix: "pages"},
		Crawl:      config.CrawlConfig{PageLimitDefault: 100, ScrapeTimeoutSeconds: 30},
	}
	require.NoError(t, cfg.Validate())

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, a.Controller)
	require.NotNil(t, a.Server)
	require.NotNil(t, a.Reporter)
	require.NotNil(t, a.Hub)

	require.NoError(t, a.Close(context.Background()))
}

func TestNewRejectsUnknownProviders(t *testing.T) {
	cfg := config.Config{
		Server: config.ServerConfig{Port: 8080},
		Engine: config.EngineConfig{Provider: "embedded"},
		DB:     config.DBConfig{Provider: "sqlite"},
	}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}
