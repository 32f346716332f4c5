// Package mp3 inspects MPEG audio byte streams.
package mp3

// FindFrameSync returns the offset of the first MPEG audio frame sync word in
// data, or -1. A sync word is 0xFF followed by a byte whose top three bits
// are set; the version and layer bits that follow must not be the reserved
// values.
func FindFrameSync(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] != 0xFF || data[i+1]&0xE0 != 0xE0 {
			continue
		}

		version := (data[i+1] >> 3) & 0x03
		layer := (data[i+1] >> 1) & 0x03
		if version == 0x01 || layer == 0x00 {
			continue
		}

		return i
	}

	return -1
}

// SyncScanner looks for the first frame sync across successive chunks of a
// stream without buffering them. A sync word split across two chunks is
// found.
type SyncScanner struct {
	offset int64
	prev   byte
	found  bool
	pos    int64
}

// Scan consumes the next chunk. It returns true once a sync has been seen.
func (s *SyncScanner) Scan(chunk []byte) bool {
	if s.found || len(chunk) == 0 {
		return s.found
	}

	if s.offset > 0 && s.prev == 0xFF {
		if i := FindFrameSync([]byte{s.prev, chunk[0]}); i == 0 {
			s.found = true
			s.pos = s.offset - 1
			return true
		}
	}

	if i := FindFrameSync(chunk); i >= 0 {
		s.found = true
		s.pos = s.offset + int64(i)
		return true
	}

	s.offset += int64(len(chunk))
	s.prev = chunk[len(chunk)-1]

	return false
}

// Offset is the stream offset of the first sync, or -1 if none was seen.
func (s *SyncScanner) Offset() int64 {
	if !s.found {
		return -1
	}
	return s.pos
}
