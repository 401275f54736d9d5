package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/config"
)

func TestConfig_DefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_Load_ReturnsDefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig(), cfg)
}

func TestConfig_Load_OverridesDefaultsFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
channel_service:
  listen_addr: "0.0.0.0:9000"
runtime:
  default_image: "custom-node:dev"
safety:
  max_concurrent_links: 8
  require_confirmation: false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ChannelService.ListenAddr)
	require.Equal(t, "custom-node:dev", cfg.Runtime.DefaultImage)
	require.Equal(t, 8, cfg.Safety.MaxConcurrentLinks)
	require.False(t, cfg.Safety.RequireConfirmation)
	// Fields absent from the override file keep their defaults.
	require.Equal(t, config.DefaultConfig().Mobility, cfg.Mobility)
}

func TestConfig_Load_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("WIRELESS_EMULATOR_IMAGE", "env-node:latest")

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
runtime:
  default_image: "${WIRELESS_EMULATOR_IMAGE}"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-node:latest", cfg.Runtime.DefaultImage)
}

func TestConfig_Load_ChannelServiceAddrEnvOverridesFile(t *testing.T) {
	t.Setenv("CHANNEL_SERVICE_ADDR", "127.0.0.1:7777")

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
channel_service:
  listen_addr: "127.0.0.1:8900"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7777", cfg.ChannelService.ListenAddr)
}

func TestConfig_Save_RoundTripsThroughYAML(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Runtime.NodePrefix = "lab"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "lab", loaded.Runtime.NodePrefix)
}

func TestConfig_Validate_RejectsMissingRequiredFields(t *testing.T) {
	t.Parallel()

	t.Run("empty channel service addr", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.ChannelService.ListenAddr = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("empty default image", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Runtime.DefaultImage = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("empty reporting output dir", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Reporting.OutputDir = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("zero max concurrent links", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Safety.MaxConcurrentLinks = 0
		require.Error(t, cfg.Validate())
	})
}
