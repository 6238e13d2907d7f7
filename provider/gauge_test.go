package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeBody(start time.Time, n int, step time.Duration) string {
	items := make([]string, n)
	for i := range items {
		ts := start.Add(time.Duration(i) * step).Format(time.RFC3339)
		items[i] = fmt.Sprintf(`{"dateTime": %q, "value": %d}`, ts, i)
	}
	return `{"items": [` + strings.Join(items, ",") + `]}`
}

func newTestGauge(srv *httptest.Server, now time.Time) *Gauge {
	opt := NewDefaultGaugeOptions()
	opt.BaseURL = srv.URL
	opt.StationID = "F1902"
	opt.Client = srv.Client()
	opt.Retry = testRetry()
	opt.Clock = clockwork.NewFakeClockAt(now)
	opt.Logger = slog.New(slog.DiscardHandler)
	return NewGauge(opt)
}

func TestGaugeFetchRecentLevel(t *testing.T) {
	now := time.Date(2024, 1, 2, 10, 20, 0, 0, time.UTC)
	var since, limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/id/stations/F1902/readings", r.URL.Path)
		since = r.URL.Query().Get("since")
		limit = r.URL.Query().Get("_limit")
		// 15 minute readings over the last 6 hours
		w.Write([]byte(gaugeBody(now.Truncate(time.Hour).Add(-6*time.Hour), 24, 15*time.Minute)))
	}))
	defer srv.Close()

	g := newTestGauge(srv, now)
	level, err := g.FetchRecentLevel(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-02T05:00:00Z", since)
	assert.Equal(t, "20", limit)
	assert.Equal(t, 4, level.Len())
	assert.True(t, level.IsHourly())
	assert.Equal(t, []string{LevelColumn}, level.Columns)
	assert.Equal(t, now.Truncate(time.Hour).Add(-time.Hour), level.End())
	// each hour is the mean of its four readings
	assert.Equal(t, []float64{9.5, 13.5, 17.5, 21.5}, level.Data[0])

	_, err = g.FetchRecentLevel(context.Background(), 10)
	assert.ErrorIs(t, err, ErrInsufficientReadings)
}

func TestGaugeFetchHistoricalLevel(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2010-01-01T00:00:00Z", r.URL.Query().Get("since"))
		// hourly readings with a two hour gap
		w.Write([]byte(`{"items": [
			{"dateTime": "2024-01-01T00:00:00Z", "value": 1.0},
			{"dateTime": "2024-01-01T03:00:00Z", "value": 4.0},
			{"dateTime": "2024-01-01T04:00:00Z", "value": null}
		]}`))
	}))
	defer srv.Close()

	g := newTestGauge(srv, start.Add(24*time.Hour))
	level, err := g.FetchHistoricalLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, level.Len())
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, level.Data[0])
}
