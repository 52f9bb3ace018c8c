package persist

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"

	"github.com/nicktill/metricsystem/pkg/mserrors"
)

const (
	lz4FlagCompressed     = 1 << 0
	lz4FlagHighCompression = 1 << 1
	lz4ReservedMask        = ^uint64(lz4FlagCompressed | lz4FlagHighCompression)
)

// writeLZ4Chunk appends one chunk to dst: varint(flags) |
// varint(originalLength) | [varint(compressedLength) if compressed] |
// bytes. When compress is false the chunk carries content verbatim.
func writeLZ4Chunk(content []byte, compress, highCompression bool) []byte {
	var flags uint64
	if compress {
		flags |= lz4FlagCompressed
	}
	if highCompression {
		flags |= lz4FlagHighCompression
	}

	var out []byte
	out = appendUvarint(out, flags)
	out = appendUvarint(out, uint64(len(content)))

	if !compress {
		return append(out, content...)
	}

	var compressor lz4.Compressor
	if highCompression {
		var hc lz4.CompressorHC
		hc.Level = lz4.Level9
		compressed := make([]byte, lz4.CompressBlockBound(len(content)))
		n, err := hc.CompressBlock(content, compressed)
		if err == nil && n > 0 {
			out = appendUvarint(out, uint64(n))
			return append(out, compressed[:n]...)
		}
	} else {
		compressed := make([]byte, lz4.CompressBlockBound(len(content)))
		n, err := compressor.CompressBlock(content, compressed)
		if err == nil && n > 0 {
			out = appendUvarint(out, uint64(n))
			return append(out, compressed[:n]...)
		}
	}

	// Incompressible block: lz4 returns n == 0. Fall back to storing it
	// raw but leave the compressed flag off so the reader doesn't try
	// to lz4-decompress plain bytes.
	out = out[:0]
	out = appendUvarint(out, 0)
	out = appendUvarint(out, uint64(len(content)))
	return append(out, content...)
}

// readLZ4Chunk reads one chunk from buf and returns its decoded content
// plus the number of bytes consumed.
func readLZ4Chunk(buf []byte) ([]byte, int, error) {
	r := newByteReader(buf)

	flags, err := r.uvarint()
	if err != nil {
		return nil, 0, err
	}
	if flags&lz4ReservedMask != 0 {
		return nil, 0, mserrors.Wrap(mserrors.PersistedData, "lz4 chunk: reserved flag bits set (%#x)", flags)
	}

	origLen, err := r.uvarint()
	if err != nil {
		return nil, 0, err
	}

	compressed := flags&lz4FlagCompressed != 0
	if !compressed {
		content, err := r.take(int(origLen))
		if err != nil {
			return nil, 0, err
		}
		return content, r.pos, nil
	}

	compLen, err := r.uvarint()
	if err != nil {
		return nil, 0, err
	}
	compBytes, err := r.take(int(compLen))
	if err != nil {
		return nil, 0, err
	}

	decoded := make([]byte, origLen)
	n, err := lz4.UncompressBlock(compBytes, decoded)
	if err != nil {
		return nil, 0, mserrors.Wrap(mserrors.PersistedData, "lz4 decompress: %v", err)
	}
	if uint64(n) != origLen {
		return nil, 0, mserrors.Wrap(mserrors.PersistedData, "lz4 decompressed length mismatch: got %d want %d", n, origLen)
	}
	return decoded, r.pos, nil
}

func appendUvarint(dst []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(dst, tmp[:n]...)
}
