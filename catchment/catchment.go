// Package catchment models the weather and river level inputs of a single catchment and caches
// them for the lifetime of the process.
package catchment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-riverforecast/metrics"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/jonboulle/clockwork"
)

var ErrLocationCountMismatch = errors.New("current and historical weather disagree on location count")

const DefaultRecentLevelSamples = 72

// WeatherProvider supplies one hourly weather datum per coordinate of the catchment. A nil column
// list selects the provider's default columns.
type WeatherProvider interface {
	FetchHistorical(ctx context.Context, columns []string, start, end time.Time) ([]WeatherDatum, error)
	FetchCurrent(ctx context.Context, columns []string) ([]WeatherDatum, error)
}

// LevelProvider supplies the UTC hourly river stage of the catchment outlet
type LevelProvider interface {
	FetchRecentLevel(ctx context.Context, numSamples int) (*timedataset.Frame, error)
	FetchHistoricalLevel(ctx context.Context) (*timedataset.Frame, error)
}

// Bundle is the weather of every location together with the target level series
type Bundle struct {
	Weather []WeatherDatum     `json:"weather"`
	Level   *timedataset.Frame `json:"level"`
}

type Options struct {
	// Columns selects the weather variables requested from the provider
	Columns []string

	// HistoricalStart is the beginning of the historical window, which ends at the current time
	HistoricalStart time.Time

	// RecentLevelSamples is the number of hourly level samples in the current bundle
	RecentLevelSamples int

	Clock  clockwork.Clock
	Logger *slog.Logger
}

// NewDefaultOptions starts the history in 2010 and uses a real clock
func NewDefaultOptions() *Options {
	return &Options{
		HistoricalStart:    time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		RecentLevelSamples: DefaultRecentLevelSamples,
		Clock:              clockwork.NewRealClock(),
		Logger:             slog.Default(),
	}
}

// CatchmentData memoizes the current and historical bundles of a catchment. The historical bundle
// is fetched at most once. The current bundle is refreshed only by UpdateForInference.
//
// CatchmentData is not safe for concurrent use.
type CatchmentData struct {
	name    string
	weather WeatherProvider
	level   LevelProvider
	opt     *Options

	current    *Bundle
	historical *Bundle
}

// New creates the cache without fetching anything. Nil options use the defaults.
func New(name string, weather WeatherProvider, level LevelProvider, opt *Options) *CatchmentData {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.Clock == nil {
		opt.Clock = clockwork.NewRealClock()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.RecentLevelSamples <= 0 {
		opt.RecentLevelSamples = DefaultRecentLevelSamples
	}
	return &CatchmentData{
		name:    name,
		weather: weather,
		level:   level,
		opt:     opt,
	}
}

// Name returns the catchment name used in logs and storage keys
func (c *CatchmentData) Name() string {
	return c.name
}

// AllCurrent returns the current weather forecast and recent level, fetching them on first use
func (c *CatchmentData) AllCurrent(ctx context.Context) (*Bundle, error) {
	if c.current != nil {
		return c.current, nil
	}
	if err := c.UpdateForInference(ctx); err != nil {
		return nil, err
	}
	return c.current, nil
}

// AllHistorical returns the historical weather and full level history, fetching them on first use
func (c *CatchmentData) AllHistorical(ctx context.Context) (*Bundle, error) {
	if c.historical != nil {
		return c.historical, nil
	}

	start, end := c.opt.HistoricalStart, c.opt.Clock.Now().UTC()
	c.opt.Logger.Info("fetching historical catchment data",
		"catchment", c.name,
		"start", start,
		"end", end,
	)
	metrics.CatchmentFetchesTotal.WithLabelValues(c.name, "historical").Inc()

	weather, err := c.weather.FetchHistorical(ctx, c.opt.Columns, start, end)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch historical weather for %s, %w", c.name, err)
	}
	level, err := c.level.FetchHistoricalLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch historical level for %s, %w", c.name, err)
	}

	c.historical = &Bundle{Weather: weather, Level: level}
	return c.historical, nil
}

// UpdateForInference re-fetches the current bundle. The historical bundle is never refreshed.
func (c *CatchmentData) UpdateForInference(ctx context.Context) error {
	c.opt.Logger.Info("fetching current catchment data",
		"catchment", c.name,
		"recent_level_samples", c.opt.RecentLevelSamples,
	)
	metrics.CatchmentFetchesTotal.WithLabelValues(c.name, "current").Inc()

	weather, err := c.weather.FetchCurrent(ctx, c.opt.Columns)
	if err != nil {
		return fmt.Errorf("unable to fetch current weather for %s, %w", c.name, err)
	}
	level, err := c.level.FetchRecentLevel(ctx, c.opt.RecentLevelSamples)
	if err != nil {
		return fmt.Errorf("unable to fetch recent level for %s, %w", c.name, err)
	}

	c.current = &Bundle{Weather: weather, Level: level}
	return nil
}

// NumWeatherDatasets returns the number of weather locations, checking that the current and
// historical bundles agree.
func (c *CatchmentData) NumWeatherDatasets(ctx context.Context) (int, error) {
	current, err := c.AllCurrent(ctx)
	if err != nil {
		return 0, err
	}
	historical, err := c.AllHistorical(ctx)
	if err != nil {
		return 0, err
	}
	if len(current.Weather) != len(historical.Weather) {
		return 0, fmt.Errorf(
			"current has %d locations and historical has %d, %w",
			len(current.Weather), len(historical.Weather), ErrLocationCountMismatch,
		)
	}
	return len(current.Weather), nil
}
