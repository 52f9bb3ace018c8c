package persist

import (
	"bytes"
	"encoding/binary"

	"github.com/nicktill/metricsystem/pkg/mserrors"
)

// byteWriter accumulates a content buffer with LEB128 and
// length-prefixed-string helpers shared by every record writer.
type byteWriter struct {
	buf bytes.Buffer
}

func (w *byteWriter) uvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

func (w *byteWriter) string(s string) {
	w.uvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *byteWriter) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *byteWriter) raw(b []byte) {
	w.buf.Write(b)
}

func (w *byteWriter) Bytes() []byte { return w.buf.Bytes() }

// byteReader is the inverse of byteWriter, reading from a fixed byte
// slice and reporting PersistedData errors on truncation rather than
// panicking.
type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(b []byte) *byteReader {
	return &byteReader{buf: b}
}

func (r *byteReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, mserrors.Wrap(mserrors.PersistedData, "truncated varint at offset %d", r.pos)
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) string() (string, error) {
	n, err := r.uvarint()
	if err != nil {
		return "", err
	}
	if uint64(len(r.buf)-r.pos) < n {
		return "", mserrors.Wrap(mserrors.PersistedData, "truncated string at offset %d", r.pos)
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *byteReader) byteVal() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, mserrors.Wrap(mserrors.PersistedData, "truncated byte at offset %d", r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) take(n int) ([]byte, error) {
	if len(r.buf)-r.pos < n {
		return nil, mserrors.Wrap(mserrors.PersistedData, "truncated data at offset %d, need %d bytes", r.pos, n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) remaining() int { return len(r.buf) - r.pos }
