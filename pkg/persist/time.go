package persist

import (
	"time"

	"github.com/nicktill/metricsystem/pkg/mserrors"
	"github.com/nicktill/metricsystem/pkg/ticks"
)

const iso8601Layout = "2006-01-02T15:04:05.9999999Z"

func iso8601(t ticks.Ticks) string {
	return t.Time().Format(iso8601Layout)
}

func parseISO8601(s string) (ticks.Ticks, error) {
	parsed, err := time.Parse(iso8601Layout, s)
	if err != nil {
		return 0, mserrors.Wrap(mserrors.PersistedData, "malformed timestamp %q: %v", s, err)
	}
	return ticks.FromTime(parsed), nil
}
