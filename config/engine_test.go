package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEngineConfigDefaults(t *testing.T) {
	cfg := LoadEngineConfig("FLOWTEST")
	assert.Equal(t, "us-east-1", cfg.ObjectStoreRegion)
	assert.Equal(t, 10, cfg.ConcurrencyLimit)
}

func TestLoadEngineConfigReadsEnv(t *testing.T) {
	os.Setenv("FLOWTEST_S3_BUCKET", "flows")
	os.Setenv("FLOWTEST_CONCURRENCY_LIMIT", "4")
	defer os.Unsetenv("FLOWTEST_S3_BUCKET")
	defer os.Unsetenv("FLOWTEST_CONCURRENCY_LIMIT")

	cfg := LoadEngineConfig("FLOWTEST")
	assert.Equal(t, "flows", cfg.ObjectStoreBucket)
	assert.Equal(t, 4, cfg.ConcurrencyLimit)
}

func TestEngineConfigValidateRequiresServiceName(t *testing.T) {
	cfg := LoadEngineConfig("FLOWTEST")
	assert.Error(t, cfg.Validate())

	cfg.Service.Name = "flowengine"
	require.NoError(t, cfg.Validate())
}
