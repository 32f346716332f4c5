package shoutcast

import (
	"bytes"
	"strings"
)

const (
	metadataBlockUnit = 16
	maxMetadataBlock  = 255 * metadataBlockUnit
)

// Metadata is the content of an ICY metadata block.
type Metadata struct {
	StreamTitle string
	StreamURL   string
}

// NewMetadata parses a metadata block body such as
// "StreamTitle='162.55 MHz';StreamUrl='';" followed by NUL padding.
func NewMetadata(b []byte) *Metadata {
	s := string(bytes.TrimRight(b, "\x00"))
	m := &Metadata{}

	for len(s) > 0 {
		eq := strings.Index(s, "='")
		if eq < 0 {
			break
		}
		key := s[:eq]
		s = s[eq+2:]

		end := strings.Index(s, "';")
		value := s
		if end < 0 {
			s = ""
		} else {
			value = s[:end]
			s = s[end+2:]
		}

		switch key {
		case "StreamTitle":
			m.StreamTitle = value
		case "StreamUrl":
			m.StreamURL = value
		}
	}

	return m
}

func (m *Metadata) Equals(other *Metadata) bool {
	if m == nil || other == nil {
		return m == other
	}
	return *m == *other
}

// Encode returns the block as sent on the wire: a length byte counting
// 16 byte units, then the padded body. A nil Metadata encodes as the empty
// block.
func (m *Metadata) Encode() []byte {
	if m == nil {
		return []byte{0}
	}

	var body strings.Builder
	body.WriteString("StreamTitle='" + m.StreamTitle + "';")
	if m.StreamURL != "" {
		body.WriteString("StreamUrl='" + m.StreamURL + "';")
	}

	raw := body.String()
	if len(raw) > maxMetadataBlock {
		raw = raw[:maxMetadataBlock-2] + "';"
	}

	units := (len(raw) + metadataBlockUnit - 1) / metadataBlockUnit
	block := make([]byte, 1+units*metadataBlockUnit)
	block[0] = byte(units)
	copy(block[1:], raw)

	return block
}
