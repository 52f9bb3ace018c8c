// Package concurrency provides the bounded-parallelism task runner
// that orchestrates background compaction and persist jobs, and a
// heap-pressure-aware residency cache deciding which sealed-but-idle
// DataBuckets stay resident in memory.
package concurrency
