package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/metricsystem/pkg/dataset"
)

func TestParseQuerySplitsReservedFromDimensionFilters(t *testing.T) {
	q, err := ParseQuery("dc=sea&percentile=95&combine=true&dimension=host")
	require.NoError(t, err)

	require.Equal(t, "sea", q.Filter["dc"])
	require.NotContains(t, q.Filter, "percentile")
	require.Equal(t, 95.0, q.Spec.Percentile)
	require.True(t, q.Spec.Combine)
	require.Equal(t, "host", q.Spec.CrossQueryDimension)
}

func TestParseQueryAggregateAlias(t *testing.T) {
	q, err := ParseQuery("aggregate=average")
	require.NoError(t, err)
	require.Equal(t, dataset.AggregateAverage, q.Spec.Aggregate)
	require.Equal(t, float64(dataset.NoPercentile), q.Spec.Percentile)
}

func TestParseQueryRejectsBadPercentile(t *testing.T) {
	_, err := ParseQuery("percentile=150")
	require.Error(t, err)
}

func TestParseQueryRejectsUnknownAggregate(t *testing.T) {
	_, err := ParseQuery("aggregate=median")
	require.Error(t, err)
}

func TestParseQueryTimeRange(t *testing.T) {
	q, err := ParseQuery("start=100&end=200")
	require.NoError(t, err)
	require.EqualValues(t, 100, q.Range.Start)
	require.EqualValues(t, 200, q.Range.End)
}
