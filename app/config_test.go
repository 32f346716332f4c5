package app

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zachfi/fmstream/modules/gateway"
)

func defaultConfig(t *testing.T) *Config {
	cfg := &Config{}
	cfg.RegisterFlagsAndApplyDefaults("", flag.NewFlagSet(t.Name(), flag.PanicOnError))
	return cfg
}

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "fmstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	require.Equal(t, 3030, cfg.Server.HTTPListenPort)
	require.Zero(t, cfg.Server.HTTPServerWriteTimeout)
	require.Equal(t, 162.55, cfg.Gateway.Capture.Frequency)
	require.Equal(t, gateway.PolicyIndependent, cfg.Gateway.Policy)
}

func TestConfigLoadFile(t *testing.T) {
	cfg := defaultConfig(t)

	path := writeFile(t, `
server:
  http_listen_port: 8000
gateway:
  capture:
    frequency: 94.5
    gain: 20
  policy: exclusive
  first-byte-timeout: 2s
  station-name: Harbor
`)
	require.NoError(t, cfg.LoadFile(path))

	require.Equal(t, 8000, cfg.Server.HTTPListenPort)
	require.Equal(t, 94.5, cfg.Gateway.Capture.Frequency)
	require.Equal(t, 20.0, cfg.Gateway.Capture.Gain)
	require.Equal(t, 48000, cfg.Gateway.Capture.SampleRate)
	require.Equal(t, gateway.PolicyExclusive, cfg.Gateway.Policy)
	require.Equal(t, 2*time.Second, cfg.Gateway.FirstByteTimeout)
	require.Equal(t, "Harbor", cfg.Gateway.StationName)
	require.Equal(t, "ffmpeg", cfg.Gateway.EncoderBinary)
}

func TestConfigLoadFileErrors(t *testing.T) {
	cfg := defaultConfig(t)

	require.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, cfg.LoadFile(writeFile(t, "gateway:\n  frequency: 94.5\n")))
	require.Error(t, cfg.LoadFile(writeFile(t, "gateway: [")))
}

func TestNewDefaultsTargetToAll(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	a, err := New(*defaultConfig(t), *logger)
	require.NoError(t, err)
	require.Equal(t, All, a.cfg.Target)
	require.True(t, a.ModuleManager.IsUserVisibleModule(Gateway))
	require.False(t, a.ModuleManager.IsUserVisibleModule(Server))
}
