// Package radio builds the argument vectors for the external capture and
// encoder tools.
//
// Values are typed and formatted with strconv; the resulting argv is handed
// straight to exec without a shell, so there is nothing to quote or escape.
//
//	rtl_fm -f 162.55M -s 48000 -g 30
//	ffmpeg -hide_banner -loglevel warning -f s16le -ar 48000 -ac 1 -i pipe:0 -b:a 128k -f mp3 pipe:1
package radio

import (
	"strconv"
)

// CaptureArgs returns the rtl_fm arguments for cfg, without the binary name.
// The output filename is omitted; rtl_fm writes to stdout in that case.
func CaptureArgs(cfg Config) []string {
	return []string{
		"-f", formatFloat(cfg.Frequency) + "M",
		"-s", strconv.Itoa(cfg.SampleRate),
		"-g", formatFloat(cfg.Gain),
	}
}

// EncoderArgs returns the ffmpeg arguments that read raw signed 16-bit
// little-endian mono PCM at sampleRate on stdin and write MP3 at bitrate kbps
// to stdout. A bitrate of zero leaves the encoder default.
func EncoderArgs(sampleRate, bitrate int) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(Channels),
		"-i", "pipe:0",
	}
	if bitrate > 0 {
		args = append(args, "-b:a", strconv.Itoa(bitrate)+"k")
	}

	return append(args, "-f", "mp3", "pipe:1")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
