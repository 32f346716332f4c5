package radio

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureArgs(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "defaults",
			cfg:  Config{Frequency: 162.55, SampleRate: 48000, Gain: 30},
			want: []string{"-f", "162.55M", "-s", "48000", "-g", "30"},
		},
		{
			name: "fractional gain",
			cfg:  Config{Frequency: 98.1, SampleRate: 32000, Gain: 49.6},
			want: []string{"-f", "98.1M", "-s", "32000", "-g", "49.6"},
		},
		{
			name: "whole frequency",
			cfg:  Config{Frequency: 100, SampleRate: 24000, Gain: 0},
			want: []string{"-f", "100M", "-s", "24000", "-g", "0"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CaptureArgs(tc.cfg))
		})
	}
}

func TestEncoderArgs(t *testing.T) {
	require.Equal(t, []string{
		"-hide_banner", "-loglevel", "warning",
		"-f", "s16le", "-ar", "48000", "-ac", "1", "-i", "pipe:0",
		"-b:a", "128k",
		"-f", "mp3", "pipe:1",
	}, EncoderArgs(48000, 128))

	require.NotContains(t, EncoderArgs(48000, 0), "-b:a")
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlagsAndApplyDefaults("capture", fs)

	require.Equal(t, Config{Frequency: 162.55, SampleRate: 48000, Gain: 30}, cfg)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "162.55 MHz", cfg.String())

	require.NoError(t, fs.Parse([]string{"-capture.frequency", "101.3", "-capture.gain", "12.5"}))
	require.Equal(t, 101.3, cfg.Frequency)
	require.Equal(t, 12.5, cfg.Gain)
}

func TestConfigValidate(t *testing.T) {
	require.Error(t, Config{Frequency: 0, SampleRate: 48000}.Validate())
	require.Error(t, Config{Frequency: 162.55, SampleRate: -1}.Validate())
}
