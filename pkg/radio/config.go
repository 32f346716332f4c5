package radio

import (
	"flag"
	"fmt"

	"github.com/zachfi/zkit/pkg/util"
)

const (
	defaultFrequency  = 162.55 // MHz
	defaultSampleRate = 48000  // Hz
	defaultGain       = 30     // dB

	// Channels is the channel count of the PCM stream produced by the capture
	// tool. rtl_fm demodulates FM to a single channel.
	Channels = 1
)

// Config is the capture session tuning. It is fixed at startup.
type Config struct {
	Frequency  float64 `yaml:"frequency,omitempty" json:"frequency_mhz"`    // MHz
	SampleRate int     `yaml:"sample-rate,omitempty" json:"sample_rate_hz"` // Hz
	Gain       float64 `yaml:"gain,omitempty" json:"gain_db"`               // dB
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.Float64Var(&cfg.Frequency, util.PrefixConfig(prefix, "frequency"), defaultFrequency, "Center frequency to tune, in MHz.")
	f.IntVar(&cfg.SampleRate, util.PrefixConfig(prefix, "sample-rate"), defaultSampleRate, "Sample rate of the demodulated PCM stream, in Hz.")
	f.Float64Var(&cfg.Gain, util.PrefixConfig(prefix, "gain"), defaultGain, "Tuner gain, in dB.")
}

func (cfg Config) Validate() error {
	if cfg.Frequency <= 0 {
		return fmt.Errorf("invalid frequency %v: must be positive", cfg.Frequency)
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d: must be positive", cfg.SampleRate)
	}
	return nil
}

// String is the human readable station label, eg: "162.55 MHz".
func (cfg Config) String() string {
	return formatFloat(cfg.Frequency) + " MHz"
}
