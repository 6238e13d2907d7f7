package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultGaugeURL   = "https://environment.data.gov.uk/flood-monitoring"
	LevelColumn       = "level"
	readingsPerHour   = 4
	gaugeRequestLimit = 10000
)

var ErrInsufficientReadings = errors.New("not enough hourly level readings")

type GaugeOptions struct {
	BaseURL   string
	StationID string

	// HistoricalStart bounds how far back the full level history is requested
	HistoricalStart time.Time

	Client *http.Client
	Retry  RetryOptions
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// NewDefaultGaugeOptions requests level history from 2010 with default retries
func NewDefaultGaugeOptions() *GaugeOptions {
	return &GaugeOptions{
		BaseURL:         DefaultGaugeURL,
		HistoricalStart: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		Retry:           NewDefaultRetryOptions(),
		Clock:           clockwork.NewRealClock(),
		Logger:          slog.Default(),
	}
}

// Gauge reads river level from a flood monitoring style readings API returning
// {"items": [{"dateTime": ..., "value": ...}]}.
type Gauge struct {
	opt    *GaugeOptions
	client *client
}

// NewGauge returns a level provider for one station. Nil options use the defaults.
func NewGauge(opt *GaugeOptions) *Gauge {
	if opt == nil {
		opt = NewDefaultGaugeOptions()
	}
	if opt.Clock == nil {
		opt.Clock = clockwork.NewRealClock()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Gauge{
		opt:    opt,
		client: newClient("gauge", opt.Client, opt.Retry),
	}
}

type gaugeReadings struct {
	Items []struct {
		DateTime time.Time `json:"dateTime"`
		Value    *float64  `json:"value"`
	} `json:"items"`
}

func (g *Gauge) readings(ctx context.Context, endpoint string, since time.Time, limit int) ([]catchment.Reading, error) {
	values := url.Values{}
	values.Set("since", since.UTC().Format(time.RFC3339))
	values.Set("_sorted", "")
	values.Set("_limit", strconv.Itoa(limit))
	u := fmt.Sprintf("%s/id/stations/%s/readings?%s", g.opt.BaseURL, url.PathEscape(g.opt.StationID), values.Encode())

	body, err := g.client.get(ctx, endpoint, u)
	if err != nil {
		return nil, err
	}

	var payload gaugeReadings
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unable to decode gauge readings, %w", err)
	}
	res := make([]catchment.Reading, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.Value == nil {
			continue
		}
		res = append(res, catchment.Reading{Time: item.DateTime, Value: *item.Value})
	}
	return res, nil
}

// FetchRecentLevel returns exactly numSamples hourly levels ending at the latest complete hour
func (g *Gauge) FetchRecentLevel(ctx context.Context, numSamples int) (*timedataset.Frame, error) {
	since := g.opt.Clock.Now().UTC().Truncate(time.Hour).Add(-time.Duration(numSamples+1) * time.Hour)
	readings, err := g.readings(ctx, "recent", since, (numSamples+1)*readingsPerHour)
	if err != nil {
		return nil, err
	}
	level, err := catchment.CoerceHourly(readings, LevelColumn)
	if err != nil {
		return nil, err
	}
	if level.Len() < numSamples {
		return nil, fmt.Errorf("got %d hourly readings, but expected %d, %w", level.Len(), numSamples, ErrInsufficientReadings)
	}
	return level.Slice(level.Len()-numSamples, level.Len()), nil
}

// FetchHistoricalLevel returns the full hourly level history since HistoricalStart
func (g *Gauge) FetchHistoricalLevel(ctx context.Context) (*timedataset.Frame, error) {
	g.opt.Logger.Debug("fetching historical level",
		"station", g.opt.StationID,
		"since", g.opt.HistoricalStart,
	)
	readings, err := g.readings(ctx, "historical", g.opt.HistoricalStart, gaugeRequestLimit)
	if err != nil {
		return nil, err
	}
	return catchment.CoerceHourly(readings, LevelColumn)
}
