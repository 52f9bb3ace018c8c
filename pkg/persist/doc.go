// Package persist implements the on-disk bucket file format: a framed,
// optionally LZ4-compressed stream holding a bucket header, its
// DimensionSet, and the bit-packed key stream and value stream that
// reconstruct a keyedstore.KeyedDataStore.
//
// Every block starts with a 16-bit version tag and a 64-bit content
// length, so a reader can validate the format before trusting the
// bytes that follow. Truncation past that header surfaces as a
// PersistedData error; truncation before it is treated as a clean EOF
// (no bucket was ever committed).
package persist
