package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/protocol"
)

func TestReadConfigFileMissing(t *testing.T) {
	ctx := context.Background()
	cfg, err := ReadConfigFile(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Executors)
	assert.True(t, cfg.ReleaseOnShutdown)
	assert.Nil(t, cfg.TLSClientConfig())
	assert.Equal(t, types.DefaultSettings().Keys(), cfg.Settings.Keys())
}

func TestReadConfigFilePartial(t *testing.T) {
	ctx := context.Background()
	cfgPath := filepath.Join(t.TempDir(), "streamplay.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
executors: 2
release_on_shutdown: false
tls:
  insecure_skip_verify: true
  server_name: example.org
settings:
  protocol_timeout_ms: 1500
  passphrase: verysecretword
  custom_key: 7
`), 0640))

	cfg, err := ReadConfigFile(ctx, cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Executors)
	assert.False(t, cfg.ReleaseOnShutdown)

	tlsCfg := cfg.TLSClientConfig()
	require.NotNil(t, tlsCfg)
	assert.True(t, tlsCfg.InsecureSkipVerify)
	assert.Equal(t, "example.org", tlsCfg.ServerName)

	assert.Equal(t, 1500*time.Millisecond, cfg.Settings.ConnectTimeout())
	assert.Equal(t, 5*time.Second, cfg.Settings.MediaTimeout())
	assert.Equal(t, "verysecretword", cfg.Settings.Passphrase())
	assert.Equal(t, []string{"verysecretword"}, cfg.SecretWords())
	v, ok := cfg.Settings.Get("custom_key")
	require.True(t, ok)
	assert.EqualValues(t, 7, v)
	assert.Equal(t, types.DefaultSettings().Keys(), cfg.Settings.Keys()[:types.DefaultSettings().Len()])
}

func TestReadConfigFileInvalid(t *testing.T) {
	ctx := context.Background()
	cfgPath := filepath.Join(t.TempDir(), "streamplay.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("settings:\n  media_timeout_ms: soon\n"), 0640))

	_, err := ReadConfigFile(ctx, cfgPath)
	require.Error(t, err)
}

func TestWriteConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfgPath := filepath.Join(t.TempDir(), "streamplay.yaml")

	cfg := NewConfig()
	cfg.Executors = 3
	cfg.Settings.Set(types.SettingLatency, 250*time.Millisecond)
	require.NoError(t, WriteConfigToPath(ctx, cfgPath, cfg))

	var read Config
	require.NoError(t, ReadConfigFromPath(ctx, cfgPath, &read))
	assert.Equal(t, 3, read.Executors)
	assert.Equal(t, 250*time.Millisecond, read.Settings.Latency())
}

func TestNewFactory(t *testing.T) {
	ctx := context.Background()
	cfg := NewConfig()
	cfg.Executors = 1
	cfg.Settings.Set(types.SettingMediaTimeout, time.Second)

	f := cfg.NewFactory(ctx, protocol.NewRegistry())
	defer f.Pool.Close(ctx)

	require.Len(t, f.Pool.Executors, 1)
	assert.True(t, f.ReleaseOnShutdown)
	assert.Equal(t, time.Second, f.Options.Settings().MediaTimeout())
}
