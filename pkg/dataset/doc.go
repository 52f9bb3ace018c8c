// Package dataset implements DataSet: the ordered collection of
// DataBuckets backing one counter. It routes incoming writes to the
// right bucket by timestamp, runs the seal/delete/compaction policy
// loop, and answers range queries by combining per-bucket matches with
// percentile/average/min/max post-processing.
package dataset
