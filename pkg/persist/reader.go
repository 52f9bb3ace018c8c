package persist

import (
	"fmt"
	"io"
	"os"

	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/keyedstore"
	"github.com/nicktill/metricsystem/pkg/metrickey"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/valuetype"
)

// ReadBucketFile reads and decodes the single framed block written by
// WriteBucketFile. Truncation before the version header is reported as
// a clean io.EOF (errors.Is(err, io.EOF) succeeds) rather than a
// PersistedData error: the caller has no way to distinguish "nothing
// was ever written" from corruption otherwise. Truncation anywhere
// past the version header is a genuine PersistedData error.
func ReadBucketFile(path string) (BucketHeader, *dimension.DimensionSet, []keyedstore.Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BucketHeader{}, nil, nil, mserrors.Wrap(mserrors.PersistedData, "read bucket file %s: %v", path, err)
	}

	if len(raw) < 2 {
		return BucketHeader{}, nil, nil, fmt.Errorf("bucket file %s has no version header: %w", path, io.EOF)
	}
	version := uint16(raw[0]) | uint16(raw[1])<<8
	if version != FormatVersion {
		return BucketHeader{}, nil, nil, mserrors.Wrap(mserrors.PersistedData, "bucket file %s: unsupported version %d", path, version)
	}

	if len(raw) < 10 {
		return BucketHeader{}, nil, nil, mserrors.Wrap(mserrors.PersistedData, "bucket file %s truncated in length prefix", path)
	}
	var length uint64
	for i := 0; i < 8; i++ {
		length |= uint64(raw[2+i]) << (8 * i)
	}

	chunkBytes := raw[10:]
	if uint64(len(chunkBytes)) < length {
		return BucketHeader{}, nil, nil, mserrors.Wrap(mserrors.PersistedData, "bucket file %s truncated: want %d chunk bytes, have %d", path, length, len(chunkBytes))
	}

	content, _, err := readLZ4Chunk(chunkBytes[:length])
	if err != nil {
		return BucketHeader{}, nil, nil, err
	}

	return decodeContent(content)
}

func decodeContent(content []byte) (BucketHeader, *dimension.DimensionSet, []keyedstore.Entry, error) {
	r := newByteReader(content)

	header, err := decodeHeader(r)
	if err != nil {
		return BucketHeader{}, nil, nil, err
	}

	dimSet, widths, err := decodeDimensionSet(r)
	if err != nil {
		return BucketHeader{}, nil, nil, err
	}

	keys, err := decodeKeyStream(r, widths, int(header.KeyCount))
	if err != nil {
		return BucketHeader{}, nil, nil, err
	}

	entries, err := decodeValueStream(r, keys, header.DataType)
	if err != nil {
		return BucketHeader{}, nil, nil, err
	}

	return header, dimSet, entries, nil
}

func decodeHeader(r *byteReader) (BucketHeader, error) {
	var h BucketHeader
	var err error

	if h.CounterName, err = r.string(); err != nil {
		return h, err
	}
	startStr, err := r.string()
	if err != nil {
		return h, err
	}
	if h.Start, err = parseISO8601(startStr); err != nil {
		return h, err
	}
	endStr, err := r.string()
	if err != nil {
		return h, err
	}
	if h.End, err = parseISO8601(endStr); err != nil {
		return h, err
	}

	dt, err := r.byteVal()
	if err != nil {
		return h, err
	}
	h.DataType = DataType(dt)

	srcCount, err := r.uvarint()
	if err != nil {
		return h, err
	}
	h.Sources = make([]Source, srcCount)
	for i := range h.Sources {
		if h.Sources[i].Name, err = r.string(); err != nil {
			return h, err
		}
		if h.Sources[i].Status, err = r.string(); err != nil {
			return h, err
		}
	}

	keyCount, err := r.uvarint()
	if err != nil {
		return h, err
	}
	h.KeyCount = uint32(keyCount)

	return h, nil
}

func decodeDimensionSet(r *byteReader) (*dimension.DimensionSet, []int, error) {
	count, err := r.uvarint()
	if err != nil {
		return nil, nil, err
	}

	dims := make([]*dimension.Dimension, count)

	for i := range dims {
		name, err := r.string()
		if err != nil {
			return nil, nil, err
		}
		d, err := dimension.New(name, nil)
		if err != nil {
			return nil, nil, mserrors.Wrap(mserrors.PersistedData, "rebuilding dimension %q: %v", name, err)
		}

		card, err := r.uvarint()
		if err != nil {
			return nil, nil, err
		}
		for v := uint64(0); v < card; v++ {
			value, err := r.string()
			if err != nil {
				return nil, nil, err
			}
			if _, err := d.Intern(value); err != nil {
				return nil, nil, mserrors.Wrap(mserrors.PersistedData, "rebuilding dimension %q value %q: %v", name, value, err)
			}
		}

		dims[i] = d
	}

	// The writer always walks dimSet.Dimension(i) in that set's own
	// canonical (descending-cardinality) order, so reconstructing each
	// Dimension with the same cardinality and re-running NewDimensionSet
	// reproduces the identical order — it's a no-op reorder, not a
	// scramble. Compute widths from the *resulting* set, not the
	// pre-sort declaration order, so they stay aligned regardless.
	dimSet := dimension.NewDimensionSet(dims...)
	widths := make([]int, dimSet.Len())
	for i := 0; i < dimSet.Len(); i++ {
		widths[i] = bitWidth(dimSet.Dimension(i).Cardinality())
	}
	return dimSet, widths, nil
}

func decodeKeyStream(r *byteReader, widths []int, keyCount int) ([]metrickey.Key, error) {
	byteLen := packedKeyByteLen(widths)
	keys := make([]metrickey.Key, keyCount)

	for i := 0; i < keyCount; i++ {
		raw, err := r.take(byteLen)
		if err != nil {
			return nil, err
		}
		idxs, err := unpackKey(raw, widths)
		if err != nil {
			return nil, err
		}
		keys[i] = metrickey.Key(idxs)
	}
	return keys, nil
}

func decodeValueStream(r *byteReader, keys []metrickey.Key, dataType DataType) ([]keyedstore.Entry, error) {
	entries := make([]keyedstore.Entry, len(keys))

	for i, key := range keys {
		length, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		payload, err := r.take(int(length))
		if err != nil {
			return nil, err
		}

		value, err := decodeValuePayload(payload, dataType)
		if err != nil {
			return nil, err
		}
		entries[i] = keyedstore.Entry{Key: key, Value: value}
	}
	return entries, nil
}

func decodeValuePayload(payload []byte, dataType DataType) (valuetype.Value, error) {
	switch dataType {
	case DataTypeHitCount:
		if len(payload) != 8 {
			return nil, mserrors.Wrap(mserrors.PersistedData, "hit count payload must be 8 bytes, got %d", len(payload))
		}
		var v uint64
		for i := 0; i < 8; i++ {
			v |= uint64(payload[i]) << (8 * i)
		}
		return valuetype.HitCount(v), nil

	case DataTypeHistogram:
		hist := valuetype.NewHistogram()
		pr := newByteReader(payload)
		for pr.remaining() > 0 {
			zk, err := pr.uvarint()
			if err != nil {
				return nil, err
			}
			c, err := pr.uvarint()
			if err != nil {
				return nil, err
			}
			hist[unzigzag(zk)] += uint32(c)
		}
		return hist, nil

	default:
		return nil, mserrors.Wrap(mserrors.PersistedData, "unknown data type tag %d", dataType)
	}
}
