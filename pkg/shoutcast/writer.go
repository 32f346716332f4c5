package shoutcast

import (
	"io"
)

// MetadataWriter inserts an ICY metadata block after every metaint bytes of
// audio written through it. The metadata is sent in full the first time and
// after each change, and as an empty block otherwise.
type MetadataWriter struct {
	w       io.Writer
	metaint int
	pos     int

	current *Metadata
	sent    *Metadata
}

func NewMetadataWriter(w io.Writer, metaint int, m *Metadata) *MetadataWriter {
	return &MetadataWriter{
		w:       w,
		metaint: metaint,
		current: m,
	}
}

// SetMetadata replaces the metadata announced at the next block boundary.
// It must not be called concurrently with Write.
func (mw *MetadataWriter) SetMetadata(m *Metadata) {
	mw.current = m
}

// Write writes audio. The returned count excludes metadata bytes. A
// non-positive metaint passes audio through untouched.
func (mw *MetadataWriter) Write(p []byte) (int, error) {
	if mw.metaint <= 0 {
		return mw.w.Write(p)
	}

	var written int

	for len(p) > 0 {
		n := min(mw.metaint-mw.pos, len(p))

		nn, err := mw.w.Write(p[:n])
		written += nn
		mw.pos += nn
		if err != nil {
			return written, err
		}
		p = p[n:]

		if mw.pos == mw.metaint {
			if err := mw.writeBlock(); err != nil {
				return written, err
			}
			mw.pos = 0
		}
	}

	return written, nil
}

func (mw *MetadataWriter) writeBlock() error {
	if mw.current.Equals(mw.sent) {
		_, err := mw.w.Write([]byte{0})
		return err
	}

	if _, err := mw.w.Write(mw.current.Encode()); err != nil {
		return err
	}
	mw.sent = mw.current

	return nil
}
