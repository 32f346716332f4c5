package shoutcast

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndParsePlaylists(t *testing.T) {
	const url = "http://radio.local:3030/stream"

	var m3u bytes.Buffer
	require.NoError(t, WriteM3U(&m3u, "162.55 MHz", url))
	require.Equal(t, "#EXTM3U\n#EXTINF:-1,162.55 MHz\nhttp://radio.local:3030/stream\n", m3u.String())

	got, err := parseM3U(&m3u)
	require.NoError(t, err)
	require.Equal(t, url, got)

	var pls bytes.Buffer
	require.NoError(t, WritePLS(&pls, "162.55 MHz", url))
	require.Contains(t, pls.String(), "File1="+url+"\n")

	got, err = parsePLS(&pls)
	require.NoError(t, err)
	require.Equal(t, url, got)
}

func TestParsePlaylistErrors(t *testing.T) {
	_, err := parsePLS(strings.NewReader("[playlist]\nNumberOfEntries=0\n"))
	require.Error(t, err)

	_, err = parseM3U(strings.NewReader("#EXTM3U\n# nothing here\nrelative.mp3\n"))
	require.Error(t, err)
}

func TestIsPlaylist(t *testing.T) {
	require.True(t, isPlaylist("http://x/listen.pls", ""))
	require.True(t, isPlaylist("http://x/listen", ContentTypeM3U))
	require.True(t, isPlaylist("http://x/listen", "application/vnd.apple.mpegurl"))
	require.False(t, isPlaylist("http://x/stream", "audio/mpeg"))
}

func TestOpenFollowsPlaylist(t *testing.T) {
	audio := pattern(10000)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/listen.pls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ContentTypePLS)
		_ = WritePLS(w, "test", srv.URL+"/stream")
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("Icy-MetaData"))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("icy-metaint", "512")
		w.Header().Set("icy-br", "128")
		w.Header().Set("icy-name", "162.55 MHz")
		mw := NewMetadataWriter(w, 512, &Metadata{StreamTitle: "162.55 MHz"})
		_, _ = mw.Write(audio)
	})

	s, err := Open(context.Background(), srv.URL+"/listen.pls")
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "162.55 MHz", s.Name)
	require.Equal(t, 128, s.Bitrate)
	require.Equal(t, "audio/mpeg", s.ContentType)

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, audio, got)
	require.Equal(t, "162.55 MHz", s.Metadata().StreamTitle)
}

func TestOpenPlainStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		fmt.Fprint(w, "abc")
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.URL+"/stream")
	require.NoError(t, err)
	defer s.Close()

	require.Zero(t, s.Metaint())
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}

func TestOpenRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), srv.URL+"/stream")
	require.Error(t, err)
}
