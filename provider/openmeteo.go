package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
)

const (
	DefaultOpenMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultOpenMeteoArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"

	openMeteoTimeLayout = "2006-01-02T15:04"
	openMeteoDateLayout = "2006-01-02"
)

var (
	ErrNoCoordinates      = errors.New("no coordinates configured")
	ErrMissingColumn      = errors.New("response is missing a requested hourly column")
	ErrLocationMismatch   = errors.New("response location count does not match requested coordinates")
	DefaultWeatherColumns = []string{"precipitation", "rain", "snowfall", "temperature_2m", "soil_moisture_0_to_7cm"}
)

type OpenMeteoOptions struct {
	ForecastURL string
	ArchiveURL  string

	// APIKey is only needed for the commercial endpoints
	APIKey string

	Coordinates []catchment.Coordinate

	// PastDays of observed weather prepended to current forecasts
	PastDays     int
	ForecastDays int

	Client *http.Client
	Retry  RetryOptions
	Logger *slog.Logger
}

// NewDefaultOpenMeteoOptions uses the public endpoints with three past and seven forecast days
func NewDefaultOpenMeteoOptions() *OpenMeteoOptions {
	return &OpenMeteoOptions{
		ForecastURL:  DefaultOpenMeteoForecastURL,
		ArchiveURL:   DefaultOpenMeteoArchiveURL,
		PastDays:     3,
		ForecastDays: 7,
		Retry:        NewDefaultRetryOptions(),
		Logger:       slog.Default(),
	}
}

// OpenMeteo fetches hourly weather for a fixed set of catchment coordinates in a single request
type OpenMeteo struct {
	opt    *OpenMeteoOptions
	client *client
}

// NewOpenMeteo returns a weather provider for the configured coordinates
func NewOpenMeteo(opt *OpenMeteoOptions) (*OpenMeteo, error) {
	if opt == nil {
		opt = NewDefaultOpenMeteoOptions()
	}
	if len(opt.Coordinates) == 0 {
		return nil, ErrNoCoordinates
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &OpenMeteo{
		opt:    opt,
		client: newClient("openmeteo", opt.Client, opt.Retry),
	}, nil
}

func (o *OpenMeteo) query(columns []string) url.Values {
	lons := make([]string, len(o.opt.Coordinates))
	lats := make([]string, len(o.opt.Coordinates))
	for i, c := range o.opt.Coordinates {
		lons[i] = strconv.FormatFloat(c.Longitude, 'f', -1, 64)
		lats[i] = strconv.FormatFloat(c.Latitude, 'f', -1, 64)
	}

	values := url.Values{}
	values.Set("latitude", strings.Join(lats, ","))
	values.Set("longitude", strings.Join(lons, ","))
	values.Set("hourly", strings.Join(columns, ","))
	values.Set("timezone", "GMT")
	if o.opt.APIKey != "" {
		values.Set("apikey", o.opt.APIKey)
	}
	return values
}

// FetchHistorical requests archived hourly weather between start and end for every coordinate
func (o *OpenMeteo) FetchHistorical(ctx context.Context, columns []string, start, end time.Time) ([]catchment.WeatherDatum, error) {
	if len(columns) == 0 {
		columns = DefaultWeatherColumns
	}
	values := o.query(columns)
	values.Set("start_date", start.UTC().Format(openMeteoDateLayout))
	values.Set("end_date", end.UTC().Format(openMeteoDateLayout))

	o.opt.Logger.Debug("fetching historical weather",
		"locations", len(o.opt.Coordinates),
		"start", start,
		"end", end,
	)
	body, err := o.client.get(ctx, "archive", o.opt.ArchiveURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}
	return o.decode(body, columns)
}

// FetchCurrent requests recent and forecasted hourly weather for every coordinate
func (o *OpenMeteo) FetchCurrent(ctx context.Context, columns []string) ([]catchment.WeatherDatum, error) {
	if len(columns) == 0 {
		columns = DefaultWeatherColumns
	}
	values := o.query(columns)
	values.Set("past_days", strconv.Itoa(o.opt.PastDays))
	values.Set("forecast_days", strconv.Itoa(o.opt.ForecastDays))

	o.opt.Logger.Debug("fetching current weather", "locations", len(o.opt.Coordinates))
	body, err := o.client.get(ctx, "forecast", o.opt.ForecastURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}
	return o.decode(body, columns)
}

type openMeteoLocation struct {
	Latitude         float64                    `json:"latitude"`
	Longitude        float64                    `json:"longitude"`
	Elevation        float64                    `json:"elevation"`
	UTCOffsetSeconds int                        `json:"utc_offset_seconds"`
	Timezone         string                     `json:"timezone"`
	HourlyUnits      map[string]string          `json:"hourly_units"`
	Hourly           map[string]json.RawMessage `json:"hourly"`
}

// decode parses a single location object or an array of them, as returned for multiple coordinates
func (o *OpenMeteo) decode(body []byte, columns []string) ([]catchment.WeatherDatum, error) {
	var locs []openMeteoLocation
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &locs); err != nil {
			return nil, fmt.Errorf("unable to decode open-meteo response, %w", err)
		}
	} else {
		var loc openMeteoLocation
		if err := json.Unmarshal(trimmed, &loc); err != nil {
			return nil, fmt.Errorf("unable to decode open-meteo response, %w", err)
		}
		locs = []openMeteoLocation{loc}
	}
	if len(locs) != len(o.opt.Coordinates) {
		return nil, fmt.Errorf("got %d locations for %d coordinates, %w", len(locs), len(o.opt.Coordinates), ErrLocationMismatch)
	}

	res := make([]catchment.WeatherDatum, 0, len(locs))
	for i, loc := range locs {
		hourly, err := decodeHourly(loc.Hourly, columns)
		if err != nil {
			return nil, fmt.Errorf("location %d, %w", i, err)
		}
		// open-meteo snaps to its grid so the requested coordinate is kept as the identity
		coord := o.opt.Coordinates[i]
		res = append(res, catchment.WeatherDatum{
			Longitude:        coord.Longitude,
			Latitude:         coord.Latitude,
			Elevation:        loc.Elevation,
			UTCOffsetSeconds: loc.UTCOffsetSeconds,
			Timezone:         loc.Timezone,
			HourlyUnits:      loc.HourlyUnits,
			Hourly:           hourly,
		})
	}
	return res, nil
}

func decodeHourly(hourly map[string]json.RawMessage, columns []string) (*timedataset.Frame, error) {
	var rawT []string
	if err := json.Unmarshal(hourly["time"], &rawT); err != nil {
		return nil, fmt.Errorf("unable to decode hourly time, %w", err)
	}
	t := make([]time.Time, len(rawT))
	for i, ts := range rawT {
		parsed, err := time.ParseInLocation(openMeteoTimeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("unable to parse hourly time %s, %w", ts, err)
		}
		t[i] = parsed
	}

	data := make([][]float64, len(columns))
	for c, col := range columns {
		raw, exists := hourly[col]
		if !exists {
			return nil, fmt.Errorf("%s, %w", col, ErrMissingColumn)
		}
		var vals []*float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, fmt.Errorf("unable to decode hourly %s, %w", col, err)
		}
		data[c] = make([]float64, len(vals))
		for i, v := range vals {
			if v == nil {
				data[c][i] = math.NaN()
				continue
			}
			data[c][i] = *v
		}
	}
	return timedataset.NewFrame(t, columns, data)
}
