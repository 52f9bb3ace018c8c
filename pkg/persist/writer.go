package persist

import (
	"os"

	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

// WriteBucketFile writes a single framed block holding header, dimSet,
// and entries to path, creating or truncating it. Callers that need
// crash-atomicity write to a temp path and rename it into place
// themselves — this function just produces bytes.
func WriteBucketFile(path string, header BucketHeader, dimSet *dimension.DimensionSet, entries []keyedstore.Entry, compress bool) error {
	content := encodeContent(header, dimSet, entries)
	chunk := writeLZ4Chunk(content, compress, false)

	block := make([]byte, 0, 2+8+len(chunk))
	block = append(block, byte(FormatVersion), byte(FormatVersion>>8))
	block = appendLen64(block, uint64(len(chunk)))
	block = append(block, chunk...)

	if err := os.WriteFile(path, block, 0o644); err != nil {
		return mserrors.Wrap(mserrors.PersistedData, "write bucket file %s: %v", path, err)
	}
	return nil
}

func appendLen64(dst []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

func encodeContent(header BucketHeader, dimSet *dimension.DimensionSet, entries []keyedstore.Entry) []byte {
	w := &byteWriter{}

	encodeHeader(w, header)
	widths := encodeDimensionSet(w, dimSet)
	encodeKeyStream(w, entries, widths)
	encodeValueStream(w, entries, header.DataType)

	return w.Bytes()
}

func encodeHeader(w *byteWriter, h BucketHeader) {
	w.string(h.CounterName)
	w.string(iso8601(h.Start))
	w.string(iso8601(h.End))
	w.byte(byte(h.DataType))
	w.uvarint(uint64(len(h.Sources)))
	for _, src := range h.Sources {
		w.string(src.Name)
		w.string(src.Status)
	}
	w.uvarint(uint64(h.KeyCount))
}

func encodeDimensionSet(w *byteWriter, dimSet *dimension.DimensionSet) []int {
	w.uvarint(uint64(dimSet.Len()))
	widths := make([]int, dimSet.Len())

	for i := 0; i < dimSet.Len(); i++ {
		d := dimSet.Dimension(i)
		w.string(d.Name())

		card := d.Cardinality()
		w.uvarint(uint64(card))
		for idx := uint32(1); idx <= uint32(card); idx++ {
			value, err := d.IndexToString(idx)
			if err != nil {
				value = ""
			}
			w.string(value)
		}

		widths[i] = bitWidth(card)
	}
	return widths
}

func encodeKeyStream(w *byteWriter, entries []keyedstore.Entry, widths []int) {
	for _, e := range entries {
		w.raw(packKey([]uint32(e.Key), widths))
	}
}

func encodeValueStream(w *byteWriter, entries []keyedstore.Entry, dataType DataType) {
	for _, e := range entries {
		payload := encodeValuePayload(e.Value, dataType)
		w.uvarint(uint64(len(payload)))
		w.raw(payload)
	}
}

func encodeValuePayload(v valuetype.Value, dataType DataType) []byte {
	switch dataType {
	case DataTypeHitCount:
		hc, _ := v.(valuetype.HitCount)
		var buf [8]byte
		putUint64LE(buf[:], uint64(hc))
		return buf[:]
	case DataTypeHistogram:
		hist, _ := v.(valuetype.Histogram)
		pw := &byteWriter{}
		keys := hist.SortedKeys()
		for _, k := range keys {
			pw.uvarint(zigzag(k))
			pw.uvarint(uint64(hist[k]))
		}
		return pw.Bytes()
	default:
		return nil
	}
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func zigzag(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
