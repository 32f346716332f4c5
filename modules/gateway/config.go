package gateway

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/zachfi/zkit/pkg/util"

	"github.com/zachfi/fmstream/pkg/radio"
)

const (
	defaultCaptureBinary    = "rtl_fm"
	defaultEncoderBinary    = "ffmpeg"
	defaultBitrate          = 128 // kbps
	defaultFirstByteTimeout = 10 * time.Second
	defaultKillGrace        = 3 * time.Second
	defaultReadBufferSize   = 16 * 1024
)

type Config struct {
	Capture          radio.Config  `yaml:"capture,omitempty"`
	CaptureBinary    string        `yaml:"capture-binary,omitempty"`
	EncoderBinary    string        `yaml:"encoder-binary,omitempty"`
	Bitrate          int           `yaml:"bitrate,omitempty"`            // encoder bitrate in kbps
	Policy           Policy        `yaml:"policy,omitempty"`             // what to do with concurrent stream requests
	FirstByteTimeout time.Duration `yaml:"first-byte-timeout,omitempty"` // give up on a silent pipeline after this long
	KillGrace        time.Duration `yaml:"kill-grace,omitempty"`         // SIGTERM to SIGKILL delay when tearing a session down
	ICYMetaint       int           `yaml:"icy-metaint,omitempty"`        // audio bytes between ICY metadata blocks, 0 disables
	StationName      string        `yaml:"station-name,omitempty"`
	ReadBufferSize   int           `yaml:"read-buffer-size,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	cfg.Capture.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "capture"), f)

	f.StringVar(&cfg.CaptureBinary, util.PrefixConfig(prefix, "capture-binary"), defaultCaptureBinary, "Path of the SDR capture tool.")
	f.StringVar(&cfg.EncoderBinary, util.PrefixConfig(prefix, "encoder-binary"), defaultEncoderBinary, "Path of the audio encoder tool.")
	f.IntVar(&cfg.Bitrate, util.PrefixConfig(prefix, "bitrate"), defaultBitrate, "MP3 bitrate in kbps, 0 for the encoder default.")

	cfg.Policy = PolicyIndependent
	f.Var(&cfg.Policy, util.PrefixConfig(prefix, "policy"),
		"Concurrent stream policy: independent (a capture per request), exclusive (requests wait their turn) or reject-if-busy (503 while a stream runs).")

	f.DurationVar(&cfg.FirstByteTimeout, util.PrefixConfig(prefix, "first-byte-timeout"), defaultFirstByteTimeout,
		"Fail a stream request with 504 if the encoder has produced nothing after this long. 0 waits forever.")
	f.DurationVar(&cfg.KillGrace, util.PrefixConfig(prefix, "kill-grace"), defaultKillGrace,
		"How long a child gets to exit after SIGTERM before it is killed.")
	f.IntVar(&cfg.ICYMetaint, util.PrefixConfig(prefix, "icy-metaint"), 0,
		"Interleave ICY metadata every this many bytes for clients sending Icy-MetaData: 1. 0 disables.")
	f.StringVar(&cfg.StationName, util.PrefixConfig(prefix, "station-name"), "", "Station name shown on the index page and in ICY headers. Defaults to the frequency.")
	f.IntVar(&cfg.ReadBufferSize, util.PrefixConfig(prefix, "read-buffer-size"), defaultReadBufferSize, "Bytes read from the encoder per chunk.")
}

func (cfg *Config) Validate() error {
	var errs []error

	if err := cfg.Capture.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.CaptureBinary == "" {
		errs = append(errs, errors.New("capture binary is required"))
	}
	if cfg.EncoderBinary == "" {
		errs = append(errs, errors.New("encoder binary is required"))
	}
	if err := cfg.Policy.validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Bitrate < 0 {
		errs = append(errs, fmt.Errorf("invalid bitrate %d", cfg.Bitrate))
	}
	if cfg.ICYMetaint < 0 {
		errs = append(errs, fmt.Errorf("invalid icy metaint %d", cfg.ICYMetaint))
	}
	if cfg.FirstByteTimeout < 0 || cfg.KillGrace < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}

	return errors.Join(errs...)
}

func (cfg *Config) station() string {
	if cfg.StationName != "" {
		return cfg.StationName
	}
	return cfg.Capture.String()
}
