// Package wire implements the core boundary's counter-name validation
// and percent-encoded query-string parsing. The transport itself
// (HTTP/RPC, routing, JSON envelopes) is out of scope — this package
// only decides whether a counter name is legal and how a decoded
// query string maps onto a DimensionSpecification and QuerySpec.
package wire
