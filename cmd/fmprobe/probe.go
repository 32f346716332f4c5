package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/zachfi/fmstream/pkg/mp3"
	"github.com/zachfi/fmstream/pkg/shoutcast"
	"github.com/zachfi/fmstream/pkg/units"
)

type probeConfig struct {
	URL      string
	Duration time.Duration
	MaxBytes int64
}

type report struct {
	Station     string
	ContentType string
	Bitrate     int
	Metaint     int
	FirstByte   time.Duration
	FirstFrame  int64 // offset of the first frame sync, -1 if none
	Bytes       int64
	Elapsed     time.Duration
	Titles      []string
}

func (r *report) log(logger *slog.Logger) {
	var rate string
	if secs := r.Elapsed.Seconds(); secs > 0 {
		rate = units.ByteCountIEC(int64(float64(r.Bytes)/secs)) + "/s"
	}

	logger.Info("probe finished",
		"station", r.Station,
		"content_type", r.ContentType,
		"bitrate", r.Bitrate,
		"metaint", r.Metaint,
		"first_byte", r.FirstByte,
		"first_frame_offset", r.FirstFrame,
		"received", units.ByteCountIEC(r.Bytes),
		"elapsed", r.Elapsed.Round(time.Millisecond),
		"rate", rate,
		"titles", len(r.Titles),
	)
}

// probe reads the stream at cfg.URL until the duration or byte limit is
// reached or the server ends the stream.
func probe(ctx context.Context, cfg probeConfig, logger *slog.Logger) (*report, error) {
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	start := time.Now()

	s, err := shoutcast.Open(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	r := &report{
		Station:     s.Name,
		ContentType: s.ContentType,
		Bitrate:     s.Bitrate,
		Metaint:     s.Metaint(),
	}

	s.MetadataCallbackFunc = func(m *shoutcast.Metadata) {
		logger.Info("now playing", "title", m.StreamTitle)
		r.Titles = append(r.Titles, m.StreamTitle)
	}

	var (
		frames mp3.SyncScanner
		src    io.Reader = s
		buf              = make([]byte, 16*1024)
	)
	if cfg.MaxBytes > 0 {
		src = io.LimitReader(s, cfg.MaxBytes)
	}

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if r.Bytes == 0 {
				r.FirstByte = time.Since(start)
			}
			frames.Scan(buf[:n])
			r.Bytes += int64(n)
		}
		if err != nil {
			r.Elapsed = time.Since(start)
			r.FirstFrame = frames.Offset()

			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return r, nil
			}
			return r, err
		}
	}
}
