package shoutcast

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	ContentTypeM3U = "audio/x-mpegurl"
	ContentTypePLS = "audio/x-scpls"

	maxPlaylistSize = 64 * 1024
)

// WriteM3U writes an extended M3U playlist with a single live entry.
func WriteM3U(w io.Writer, title, url string) error {
	_, err := fmt.Fprintf(w, "#EXTM3U\n#EXTINF:-1,%s\n%s\n", title, url)
	return err
}

// WritePLS writes a PLS playlist with a single live entry.
func WritePLS(w io.Writer, title, url string) error {
	_, err := fmt.Fprintf(w, "[playlist]\nNumberOfEntries=1\nFile1=%s\nTitle1=%s\nLength1=-1\nVersion=2\n", url, title)
	return err
}

func isPLS(url, contentType string) bool {
	return strings.Contains(contentType, ContentTypePLS) ||
		strings.Contains(contentType, "application/pls+xml") ||
		strings.HasSuffix(url, ".pls")
}

func isM3U(url, contentType string) bool {
	return strings.Contains(contentType, "mpegurl") ||
		strings.HasSuffix(url, ".m3u") ||
		strings.HasSuffix(url, ".m3u8")
}

func isPlaylist(url, contentType string) bool {
	return isPLS(url, contentType) || isM3U(url, contentType)
}

// resolvePlaylist reads a playlist response and returns its first stream URL.
func resolvePlaylist(url string, resp *http.Response) (string, error) {
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxPlaylistSize)
	contentType := resp.Header.Get("Content-Type")

	if isPLS(url, contentType) {
		streamURL, err := parsePLS(body)
		if err != nil {
			return "", fmt.Errorf("failed to parse PLS playlist: %w", err)
		}
		return streamURL, nil
	}

	streamURL, err := parseM3U(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse M3U playlist: %w", err)
	}
	return streamURL, nil
}

// parsePLS returns the first FileN entry of a PLS playlist.
func parsePLS(body io.Reader) (string, error) {
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok || !strings.HasPrefix(key, "File") {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}

	return "", fmt.Errorf("no stream URL found in PLS playlist")
}

// parseM3U returns the first http(s) entry of an M3U playlist.
func parseM3U(body io.Reader) (string, error) {
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}

	return "", fmt.Errorf("no stream URL found in M3U playlist")
}
