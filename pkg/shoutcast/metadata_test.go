package shoutcast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMetadata(t *testing.T) {
	m := NewMetadata([]byte("StreamTitle='NOAA Weather';StreamUrl='http://example.com/';\x00\x00\x00"))
	require.Equal(t, &Metadata{StreamTitle: "NOAA Weather", StreamURL: "http://example.com/"}, m)

	m = NewMetadata([]byte("StreamTitle='It's on';"))
	require.Equal(t, "It's on", m.StreamTitle)

	m = NewMetadata([]byte("garbage"))
	require.Equal(t, &Metadata{}, m)
}

func TestMetadataEncode(t *testing.T) {
	block := (&Metadata{StreamTitle: "162.55 MHz"}).Encode()

	// "StreamTitle='162.55 MHz';" is 25 bytes, padded to 32
	require.Equal(t, byte(2), block[0])
	require.Len(t, block, 33)
	require.Equal(t, &Metadata{StreamTitle: "162.55 MHz"}, NewMetadata(block[1:]))

	require.Equal(t, []byte{0}, (*Metadata)(nil).Encode())
}

func TestMetadataEncodeTruncatesLongTitles(t *testing.T) {
	block := (&Metadata{StreamTitle: strings.Repeat("x", 5000)}).Encode()

	require.Equal(t, byte(255), block[0])
	require.Len(t, block, 1+maxMetadataBlock)
	require.True(t, strings.HasSuffix(string(block[1:]), "';"))
}

func TestMetadataEquals(t *testing.T) {
	a := &Metadata{StreamTitle: "a"}
	require.True(t, a.Equals(&Metadata{StreamTitle: "a"}))
	require.False(t, a.Equals(&Metadata{StreamTitle: "b"}))
	require.False(t, a.Equals(nil))
	require.True(t, (*Metadata)(nil).Equals(nil))
}
