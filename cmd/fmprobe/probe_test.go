package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zachfi/fmstream/pkg/shoutcast"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// frames returns n bytes of fake audio starting with an MPEG-1 layer III
// frame header at offset 100.
func frames(n int) []byte {
	b := make([]byte, n)
	b[100], b[101] = 0xFF, 0xFB
	return b
}

func TestProbeReadsWholeStream(t *testing.T) {
	audio := frames(64 * 1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("icy-name", "Test FM")
		w.Header().Set("icy-br", "128")
		w.Header().Set("icy-metaint", "8192")

		mw := shoutcast.NewMetadataWriter(w, 8192, &shoutcast.Metadata{StreamTitle: "Test FM"})
		_, _ = mw.Write(audio)
	}))
	defer srv.Close()

	r, err := probe(context.Background(), probeConfig{URL: srv.URL, Duration: 5 * time.Second}, testLogger())
	require.NoError(t, err)

	require.Equal(t, "Test FM", r.Station)
	require.Equal(t, "audio/mpeg", r.ContentType)
	require.Equal(t, 128, r.Bitrate)
	require.Equal(t, 8192, r.Metaint)
	require.Equal(t, int64(len(audio)), r.Bytes)
	require.Equal(t, int64(100), r.FirstFrame)
	require.Equal(t, []string{"Test FM"}, r.Titles)
}

func TestProbeStopsAtByteLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		chunk := frames(4096)
		for r.Context().Err() == nil {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	r, err := probe(context.Background(), probeConfig{URL: srv.URL, MaxBytes: 10000}, testLogger())
	require.NoError(t, err)
	require.Equal(t, int64(10000), r.Bytes)
	require.Zero(t, r.Metaint)
}

func TestProbeStopsAtDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	start := time.Now()
	r, err := probe(context.Background(), probeConfig{URL: srv.URL, Duration: 200 * time.Millisecond}, testLogger())
	require.NoError(t, err)
	require.Zero(t, r.Bytes)
	require.Equal(t, int64(-1), r.FirstFrame)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestProbeReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := probe(context.Background(), probeConfig{URL: srv.URL}, testLogger())
	require.Error(t, err)
}
