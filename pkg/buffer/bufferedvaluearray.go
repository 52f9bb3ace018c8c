package buffer

import (
	"encoding/binary"

	"github.com/nicktill/metricsystem/pkg/mserrors"
)

// ElementType identifies the fixed-width element a ValueArena encodes.
// Constructing an array with anything else is a construction-time error.
type ElementType int

const (
	I16 ElementType = iota
	U16
	I32
	U32
	I64
	U64
)

func (t ElementType) size() int {
	switch t {
	case I16, U16:
		return 2
	case I32, U32:
		return 4
	case I64, U64:
		return 8
	default:
		return 0
	}
}

func (t ElementType) valid() bool {
	return t.size() != 0
}

// ValueArena is the append-only side buffer BufferedKeyedData records
// index into when their value is a histogram rather than a single
// 64-bit hit count. It holds length-prefixed payloads back to back;
// a record's "value" slot is the byte offset of its payload here.
type ValueArena struct {
	buf []byte
}

// NewValueArena allocates an empty arena with the given starting
// capacity hint.
func NewValueArena(capacityHint int) *ValueArena {
	return &ValueArena{buf: make([]byte, 0, capacityHint)}
}

// WriteFixed appends a length-prefixed array of elemType-sized elements
// and returns its byte offset. Returns an InvalidArgument error if
// elemType is not one of the six supported widths.
func (a *ValueArena) WriteFixed(elemType ElementType, values []int64) (uint64, error) {
	if !elemType.valid() {
		return 0, mserrors.Wrap(mserrors.InvalidArgument, "unsupported fixed element type %d", elemType)
	}

	offset := uint64(len(a.buf))

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(values)))
	a.buf = append(a.buf, lenBuf[:n]...)

	for _, v := range values {
		a.buf = appendFixed(a.buf, elemType, v)
	}
	return offset, nil
}

// WriteVariable appends a length-prefixed LEB128-encoded sequence of
// (key, count) pairs and returns its byte offset.
func (a *ValueArena) WriteVariable(keys []int64, counts []uint32) uint64 {
	offset := uint64(len(a.buf))

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(keys)))
	a.buf = append(a.buf, lenBuf[:n]...)

	for i, k := range keys {
		var kb [binary.MaxVarintLen64]byte
		kn := binary.PutUvarint(kb[:], zigzagEncode(k))
		a.buf = append(a.buf, kb[:kn]...)

		var cb [binary.MaxVarintLen64]byte
		cn := binary.PutUvarint(cb[:], uint64(counts[i]))
		a.buf = append(a.buf, cb[:cn]...)
	}
	return offset
}

// ReadValuesInto decodes the length-prefixed payload at offset and adds
// its contribution into target, a histogram bucket-count map. For a
// fixed array, every decoded element counts once toward its own bucket.
// For a variable blob, each decoded (key, count) pair adds count toward
// that bucket directly.
func (a *ValueArena) ReadValuesInto(target map[int64]uint32, offset uint64, elemType ElementType, variable bool) error {
	buf := a.buf[offset:]

	count, n := binary.Uvarint(buf)
	if n <= 0 {
		return mserrors.Wrap(mserrors.PersistedData, "value array: malformed length prefix at offset %d", offset)
	}
	buf = buf[n:]

	if variable {
		for i := uint64(0); i < count; i++ {
			zk, kn := binary.Uvarint(buf)
			if kn <= 0 {
				return mserrors.Wrap(mserrors.PersistedData, "value array: truncated key at pair %d", i)
			}
			buf = buf[kn:]

			c, cn := binary.Uvarint(buf)
			if cn <= 0 {
				return mserrors.Wrap(mserrors.PersistedData, "value array: truncated count at pair %d", i)
			}
			buf = buf[cn:]

			target[zigzagDecode(zk)] += uint32(c)
		}
		return nil
	}

	if !elemType.valid() {
		return mserrors.Wrap(mserrors.InvalidArgument, "unsupported fixed element type %d", elemType)
	}
	size := elemType.size()
	for i := uint64(0); i < count; i++ {
		if len(buf) < size {
			return mserrors.Wrap(mserrors.PersistedData, "value array: truncated element at index %d", i)
		}
		target[decodeFixed(buf[:size], elemType)]++
		buf = buf[size:]
	}
	return nil
}

// MergeToVariable combines src (an already-decoded bucket-count map,
// typically the output of repeated ReadValuesInto calls) into a new
// variable-length blob appended to the arena, and returns its offset.
func (a *ValueArena) MergeToVariable(src map[int64]uint32) uint64 {
	keys := make([]int64, 0, len(src))
	counts := make([]uint32, 0, len(src))
	for k, c := range src {
		keys = append(keys, k)
		counts = append(counts, c)
	}
	return a.WriteVariable(keys, counts)
}

func appendFixed(buf []byte, elemType ElementType, v int64) []byte {
	var tmp [8]byte
	switch elemType {
	case I16, U16:
		binary.LittleEndian.PutUint16(tmp[:2], uint16(v))
		return append(buf, tmp[:2]...)
	case I32, U32:
		binary.LittleEndian.PutUint32(tmp[:4], uint32(v))
		return append(buf, tmp[:4]...)
	default: // I64, U64
		binary.LittleEndian.PutUint64(tmp[:8], uint64(v))
		return append(buf, tmp[:8]...)
	}
}

func decodeFixed(b []byte, elemType ElementType) int64 {
	switch elemType {
	case I16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case U16:
		return int64(binary.LittleEndian.Uint16(b))
	case I32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case U32:
		return int64(binary.LittleEndian.Uint32(b))
	case I64:
		return int64(binary.LittleEndian.Uint64(b))
	default: // U64 — truncates to int64 range, matching histogram key width
		return int64(binary.LittleEndian.Uint64(b))
	}
}

// zigzagEncode maps signed n onto the unsigned range so small-magnitude
// negative keys still LEB128-encode compactly.
func zigzagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
