package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8000", cfg.APIAddr)
	assert.Equal(t, "errors", cfg.TrackerQueue)
	assert.False(t, cfg.FilterByProject)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("FILTER_BY_PROJECT", "true")
	t.Setenv("EXPECTED_PROJECT", "shop")
	t.Setenv("RESOLVE_SERVICE_ENABLED", "1")
	t.Setenv("MINIO_ENDPOINT", "localhost:9001")
	t.Setenv("MINIO_BUCKET", "payloads")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.APIAddr)
	assert.True(t, cfg.FilterByProject)
	assert.Equal(t, "shop", cfg.ExpectedProject)
	assert.True(t, cfg.ResolveServiceEnabled)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestBoolParsing(t *testing.T) {
	t.Setenv("FILTER_BY_PROJECT", "yes")
	assert.False(t, Load().FilterByProject, "unparseable bool reads as false")
}
