package wire

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/nicktill/metricsystem/pkg/dataset"
	"github.com/nicktill/metricsystem/pkg/dimension"
	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/ticks"
)

// reservedQueryParams are query-string keys with wire-level meaning
// rather than being dimension filters. "dimension" selects the split
// dimension; "percentile"/"aggregate" select post-processing;
// "start"/"end" bound the query's time range; "combine" toggles
// cross-bucket merging. machine/machinefunction/datacenter/environment
// are reserved dimension names (see pkg/dimension) but are still valid
// dimension filters at the wire boundary — they are excluded here only
// from the forbidden set, not added to it.
var reservedQueryParams = map[string]bool{
	"dimension":  true,
	"percentile": true,
	"aggregate":  true,
	"start":      true,
	"end":        true,
	"combine":    true,
}

// ParsedQuery is the decoded form of a core-boundary query string.
type ParsedQuery struct {
	Filter dimension.DimensionSpecification
	Spec   dataset.QuerySpec
	Range  dataset.TimeRange
}

// ParseQuery percent-decodes rawQuery (already the substring after '?')
// and splits it into a dimension filter and a QuerySpec/TimeRange.
// Unrecognized keys become dimension filters; recognized keys
// (reservedQueryParams) are consumed into the QuerySpec/TimeRange.
func ParseQuery(rawQuery string) (ParsedQuery, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ParsedQuery{}, mserrors.Wrap(mserrors.InvalidArgument, "malformed query string: %v", err)
	}

	out := ParsedQuery{
		Filter: make(dimension.DimensionSpecification),
		Spec:   dataset.QuerySpec{Percentile: dataset.NoPercentile},
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		lower := strings.ToLower(key)

		if !reservedQueryParams[lower] {
			out.Filter[key] = v
			continue
		}

		switch lower {
		case "dimension":
			out.Spec.CrossQueryDimension = v
		case "percentile":
			p, err := strconv.ParseFloat(v, 64)
			if err != nil || p < 0 || p > 100 {
				return ParsedQuery{}, mserrors.Wrap(mserrors.InvalidArgument, "percentile %q must be a number in [0, 100]", v)
			}
			out.Spec.Percentile = p
		case "aggregate":
			switch strings.ToLower(v) {
			case dataset.AggregateAverage, dataset.AggregateMaximum, dataset.AggregateMinimum:
				out.Spec.Aggregate = strings.ToLower(v)
			default:
				return ParsedQuery{}, mserrors.Wrap(mserrors.InvalidArgument, "unrecognized aggregate %q", v)
			}
		case "combine":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return ParsedQuery{}, mserrors.Wrap(mserrors.InvalidArgument, "combine %q must be a boolean", v)
			}
			out.Spec.Combine = b
		case "start":
			t, err := parseTickParam(v)
			if err != nil {
				return ParsedQuery{}, err
			}
			out.Range.Start = t
		case "end":
			t, err := parseTickParam(v)
			if err != nil {
				return ParsedQuery{}, err
			}
			out.Range.End = t
		}
	}

	return out, nil
}

// parseTickParam accepts a raw tick count (the wire-native unit).
func parseTickParam(v string) (ticks.Ticks, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, mserrors.Wrap(mserrors.InvalidArgument, "timestamp %q must be an integer tick count", v)
	}
	return ticks.Ticks(n), nil
}
