package wire

import "github.com/nicktill/metricsystem/pkg/dataset"

// CounterQueryResponse is one machine's answer to a query, the unit
// CounterAggregator merges across a federated fan-out.
type CounterQueryResponse struct {
	Machine     string
	CounterName string
	Samples     []dataset.DataSample

	// TimedOut marks a response that arrived after the fan-out deadline;
	// its Samples (if any) are partial.
	TimedOut bool
	// Error carries a per-source diagnostic message when the caller
	// requested includeRequestDiagnostics; empty on success.
	Error string
}
