// Package valuetype implements the two first-class sample types —
// HitCount and Histogram — that share the storage machinery through the
// Value capability: Merge, Clone, and SampleCount.
//
// # Rounding
//
// Histogram.Observe takes a Rounding so high-cardinality raw values
// (latencies, byte counts) can be quantized into a bounded number of
// buckets before they ever reach the map. None keeps the raw value;
// SignificantDigits and ByteCount trade precision for bucket count.
package valuetype
