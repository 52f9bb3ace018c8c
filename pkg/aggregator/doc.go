// Package aggregator implements CounterAggregator: the client-side
// merge of per-machine query responses into one federated answer. It
// shares the same value-merge primitives as the storage core, applied
// across machines and time ranges instead of across buckets.
package aggregator
