package shoutcast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

const userAgent = "fmstream/1.0"

// MetadataCallbackFunc is the type of the function called when the stream metadata changes
type MetadataCallbackFunc func(m *Metadata)

// Stream represents an open shoutcast stream.
type Stream struct {
	// The name of the server
	Name string

	// What category the server falls under
	Genre string

	// The description of the stream
	Description string

	// Homepage of the server
	URL string

	// Bitrate of the server
	Bitrate int

	// MIME type of the audio
	ContentType string

	// Optional function to be executed when stream metadata changes
	MetadataCallbackFunc MetadataCallbackFunc

	// Amount of bytes to read before expecting a metadata block, 0 when the
	// server sends none
	metaint int

	// Stream metadata
	metadata *Metadata

	// The number of audio bytes read since last metadata block
	pos int

	// The underlying data stream
	rc io.ReadCloser
}

// Open establishes a connection to a remote server.
// A playlist (.pls, .m3u) is resolved to its first stream URL.
func Open(ctx context.Context, url string) (*Stream, error) {
	slog.Info("opening stream", "url", url)

	resp, err := get(ctx, url)
	if err != nil {
		return nil, err
	}

	if isPlaylist(url, resp.Header.Get("Content-Type")) {
		streamURL, err := resolvePlaylist(url, resp)
		if err != nil {
			return nil, err
		}

		slog.Info("resolved playlist to stream URL", "url", streamURL)
		if resp, err = get(ctx, streamURL); err != nil {
			return nil, err
		}
	}

	return NewStream(resp)
}

// NewStream wraps a response carrying audio. The ICY headers are optional.
func NewStream(resp *http.Response) (*Stream, error) {
	for k, v := range resp.Header {
		slog.Debug("stream header", "key", k, "value", v[0])
	}

	var err error
	var bitrate int
	if raw := resp.Header.Get("icy-br"); raw != "" {
		if bitrate, err = strconv.Atoi(raw); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("cannot parse bitrate: %w", err)
		}
	}

	var metaint int
	if raw := resp.Header.Get("icy-metaint"); raw != "" {
		if metaint, err = strconv.Atoi(raw); err != nil || metaint < 0 {
			resp.Body.Close()
			return nil, fmt.Errorf("cannot parse metaint %q", raw)
		}
	}

	return &Stream{
		Name:        resp.Header.Get("icy-name"),
		Genre:       resp.Header.Get("icy-genre"),
		Description: resp.Header.Get("icy-description"),
		URL:         resp.Header.Get("icy-url"),
		Bitrate:     bitrate,
		ContentType: resp.Header.Get("Content-Type"),
		metaint:     metaint,
		rc:          resp.Body,
	}, nil
}

// Metaint is the number of audio bytes between metadata blocks, 0 if the
// server interleaves none.
func (s *Stream) Metaint() int {
	return s.metaint
}

// Read implements io.Reader, returning audio bytes only. A metadata block is
// consumed whenever metaint audio bytes have been read.
func (s *Stream) Read(buf []byte) (int, error) {
	if s.metaint == 0 {
		return s.rc.Read(buf)
	}

	if s.pos == s.metaint {
		if err := s.readMetadata(); err != nil {
			return 0, err
		}
		s.pos = 0
	}

	if room := s.metaint - s.pos; len(buf) > room {
		buf = buf[:room]
	}

	n, err := s.rc.Read(buf)
	s.pos += n

	return n, err
}

func (s *Stream) readMetadata() error {
	var length [1]byte
	if _, err := io.ReadFull(s.rc, length[:]); err != nil {
		return err
	}

	size := int(length[0]) * metadataBlockUnit
	if size == 0 {
		return nil
	}

	block := make([]byte, size)
	if _, err := io.ReadFull(s.rc, block); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}

	if m := NewMetadata(block); !m.Equals(s.metadata) {
		s.metadata = m
		if s.MetadataCallbackFunc != nil {
			s.MetadataCallbackFunc(m)
		}
	}

	return nil
}

// Metadata returns the most recent metadata, or nil.
func (s *Stream) Metadata() *Metadata {
	return s.metadata
}

// Close closes the stream
func (s *Stream) Close() error {
	slog.Info("closing stream", "name", s.Name)
	return s.rc.Close()
}

func get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("accept", "*/*")
	req.Header.Add("user-agent", userAgent)
	req.Header.Add("icy-metadata", "1")

	// Time out establishing the connection and waiting for headers, never
	// while reading the stream body.
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	client := &http.Client{Transport: transport}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status fetching %s: %s", url, resp.Status)
	}

	return resp, nil
}
