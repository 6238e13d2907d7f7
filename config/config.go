// Package config holds the command line and environment configuration of the river forecast CLI
// and converts it into the options of the catchment, dataset, model and ensemble packages.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/dataset"
	"github.com/aouyang1/go-riverforecast/ensemble"
	"github.com/aouyang1/go-riverforecast/feature"
	"github.com/aouyang1/go-riverforecast/models"
	"github.com/joho/godotenv"
)

var (
	ErrNoCoordinates       = errors.New("at least one catchment coordinate is required")
	ErrCoordinateMismatch  = errors.New("longitudes and latitudes have different lengths")
	ErrNonPositiveSize     = errors.New("size must be positive")
	ErrNegativeSize        = errors.New("size must not be negative")
	ErrUnknownLogLevel     = errors.New("unknown log level")
	ErrUnknownLogFormat    = errors.New("unknown log format")
	ErrUnknownStorage      = errors.New("unknown storage backend")
	ErrMissingGaugeStation = errors.New("gauge station is required")
)

const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
)

// Config is shared by every subcommand. Each field can be set by flag or environment variable.
type Config struct {
	Catchment       string    `help:"Catchment name used in logs and artifact keys." default:"catchment" env:"RIVERFORECAST_CATCHMENT"`
	Longitudes      []float64 `help:"Longitudes of the weather locations." env:"RIVERFORECAST_LONGITUDES"`
	Latitudes       []float64 `help:"Latitudes of the weather locations." env:"RIVERFORECAST_LATITUDES"`
	WeatherColumns  []string  `help:"Hourly weather variables requested per location." default:"precipitation,temperature_2m" env:"RIVERFORECAST_WEATHER_COLUMNS"`
	HistoricalStart time.Time `help:"Start of the historical window." default:"2010-01-01" format:"2006-01-02" env:"RIVERFORECAST_HISTORICAL_START"`

	OpenMeteoAPIKey   string        `help:"Open-Meteo commercial API key." env:"OPENMETEO_API_KEY"`
	OpenMeteoURL      string        `help:"Open-Meteo forecast endpoint." default:"https://api.open-meteo.com/v1/forecast" env:"OPENMETEO_URL"`
	OpenMeteoArchive  string        `help:"Open-Meteo archive endpoint." default:"https://archive-api.open-meteo.com/v1/archive" env:"OPENMETEO_ARCHIVE_URL"`
	GaugeURL          string        `help:"Flood monitoring API base URL." default:"https://environment.data.gov.uk/flood-monitoring" env:"RIVERFORECAST_GAUGE_URL"`
	GaugeStation      string        `help:"Flood monitoring measure id of the outlet gauge." env:"RIVERFORECAST_GAUGE_STATION"`
	HTTPTimeout       time.Duration `help:"Timeout of a single provider request." default:"30s" env:"RIVERFORECAST_HTTP_TIMEOUT"`
	RecentLevelPoints int           `help:"Hourly level samples fetched for inference." default:"72" env:"RIVERFORECAST_RECENT_LEVEL_POINTS"`

	Storage        string `help:"Artifact storage backend." enum:"sqlite,file" default:"sqlite" env:"RIVERFORECAST_STORAGE"`
	StoragePath    string `help:"SQLite database file or artifact directory." default:"riverforecast.db" env:"RIVERFORECAST_STORAGE_PATH"`
	ArtifactPrefix string `help:"Key prefix of the saved ensemble." default:"ensemble" env:"RIVERFORECAST_ARTIFACT_PREFIX"`

	ContributingModel string  `help:"Model family of the per location models (ols, lasso)." default:"ols" env:"RIVERFORECAST_CONTRIBUTING_MODEL"`
	CombinerModel     string  `help:"Model family of the combiner (ols, lasso)." default:"ols" env:"RIVERFORECAST_COMBINER_MODEL"`
	Lags              int     `help:"Target lags of the contributing models." default:"24" env:"RIVERFORECAST_LAGS"`
	PastLags          int     `help:"Weather feature lags of the contributing models." default:"24" env:"RIVERFORECAST_PAST_LAGS"`
	CombinerLags      int     `help:"Target lags of the combiner." default:"1" env:"RIVERFORECAST_COMBINER_LAGS"`
	Lambda            float64 `help:"L1 penalty of lasso models." default:"0.001" env:"RIVERFORECAST_LAMBDA"`

	RollingColumns    []string `help:"Weather variables with rolling window features." default:"precipitation" env:"RIVERFORECAST_ROLLING_COLUMNS"`
	RollingSumWindows []int    `help:"Rolling sum windows in hours." default:"6,24" env:"RIVERFORECAST_ROLLING_SUM_WINDOWS"`
	YearlyOrders      int      `help:"Fourier orders of the yearly seasonality features." default:"0" env:"RIVERFORECAST_YEARLY_ORDERS"`

	CombinerHoldout     int  `help:"Most recent points withheld to fit the combiner." default:"336" env:"RIVERFORECAST_COMBINER_HOLDOUT"`
	TargetHorizon       int  `help:"Lead in points of the predictions the combiner is fit on." default:"1" env:"RIVERFORECAST_TARGET_HORIZON"`
	CombinerStride      int  `help:"Stride of the combiner training walk-forward." default:"1" env:"RIVERFORECAST_COMBINER_STRIDE"`
	RetrainOnFullSeries bool `help:"Refit the contributing models on the whole series after the combiner." env:"RIVERFORECAST_RETRAIN_FULL"`
	ValidationSize      int  `help:"Hourly points in the validation window." default:"168" env:"RIVERFORECAST_VALIDATION_SIZE"`
	TestSize            int  `help:"Hourly points in the test window." default:"168" env:"RIVERFORECAST_TEST_SIZE"`
	Workers             int  `help:"Contributing models fit concurrently." default:"4" env:"RIVERFORECAST_WORKERS"`

	LogLevel  string `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"RIVERFORECAST_LOG_LEVEL"`
	LogFormat string `help:"Log format." enum:"text,json" default:"text" env:"RIVERFORECAST_LOG_FORMAT"`
	Profile   bool   `help:"Write a CPU profile to the working directory." env:"RIVERFORECAST_PROFILE"`
}

// LoadEnv loads .env style files into the process environment. A missing file is not an error.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to load env file, %w", err)
	}
	return nil
}

// Load parses args and the environment into a validated Config
func Load(args []string, options ...kong.Option) (*Config, error) {
	cfg := new(Config)
	options = append([]kong.Option{kong.Name("riverforecast")}, options...)
	parser, err := kong.New(cfg, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to build config parser, %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, fmt.Errorf("unable to parse config, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate is also invoked by kong after parsing
func (c *Config) Validate() error {
	if len(c.Longitudes) != len(c.Latitudes) {
		return fmt.Errorf(
			"got %d longitudes and %d latitudes, %w",
			len(c.Longitudes), len(c.Latitudes), ErrCoordinateMismatch,
		)
	}
	if len(c.Longitudes) == 0 {
		return ErrNoCoordinates
	}
	if c.GaugeStation == "" {
		return ErrMissingGaugeStation
	}
	if _, err := models.ParseModelType(c.ContributingModel); err != nil {
		return fmt.Errorf("contributing model, %w", err)
	}
	if _, err := models.ParseModelType(c.CombinerModel); err != nil {
		return fmt.Errorf("combiner model, %w", err)
	}

	positive := map[string]int{
		"combiner holdout":    c.CombinerHoldout,
		"target horizon":      c.TargetHorizon,
		"combiner stride":     c.CombinerStride,
		"workers":             c.Workers,
		"recent level points": c.RecentLevelPoints,
	}
	for name, size := range positive {
		if size <= 0 {
			return fmt.Errorf("%s is %d, %w", name, size, ErrNonPositiveSize)
		}
	}
	nonNegative := map[string]int{
		"lags":            c.Lags,
		"past lags":       c.PastLags,
		"combiner lags":   c.CombinerLags,
		"validation size": c.ValidationSize,
		"test size":       c.TestSize,
		"yearly orders":   c.YearlyOrders,
	}
	for name, size := range nonNegative {
		if size < 0 {
			return fmt.Errorf("%s is %d, %w", name, size, ErrNegativeSize)
		}
	}
	for _, w := range c.RollingSumWindows {
		if w <= 0 {
			return fmt.Errorf("rolling sum window is %d, %w", w, ErrNonPositiveSize)
		}
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%q, %w", c.LogFormat, ErrUnknownLogFormat)
	}
	switch c.Storage {
	case StorageSQLite, StorageFile:
	default:
		return fmt.Errorf("%q, %w", c.Storage, ErrUnknownStorage)
	}
	return nil
}

// Coordinates pairs the configured longitudes and latitudes
func (c *Config) Coordinates() []catchment.Coordinate {
	coords := make([]catchment.Coordinate, len(c.Longitudes))
	for i := range c.Longitudes {
		coords[i] = catchment.Coordinate{Longitude: c.Longitudes[i], Latitude: c.Latitudes[i]}
	}
	return coords
}

// ContributingOptions configures the regression fit per weather location
func (c *Config) ContributingOptions() (*models.RegressionOptions, error) {
	mt, err := models.ParseModelType(c.ContributingModel)
	if err != nil {
		return nil, err
	}
	return &models.RegressionOptions{
		Type:     mt,
		Lags:     c.Lags,
		PastLags: c.PastLags,
		Lambda:   c.Lambda,
	}, nil
}

// CombinerOptions configures the combiner regression. The combiner only sees the stacked
// contributing predictions as future covariates so it has no past lags.
func (c *Config) CombinerOptions() (*models.RegressionOptions, error) {
	mt, err := models.ParseModelType(c.CombinerModel)
	if err != nil {
		return nil, err
	}
	return &models.RegressionOptions{
		Type:   mt,
		Lags:   c.CombinerLags,
		Lambda: c.Lambda,
	}, nil
}

// DatasetOptions configures feature engineering. allowFutureX is only set for inference.
func (c *Config) DatasetOptions(allowFutureX bool) *dataset.Options {
	return &dataset.Options{
		Features: &feature.Options{
			DayOfYear:         true,
			YearlyOrders:      c.YearlyOrders,
			RollingColumns:    c.RollingColumns,
			RollingSumWindows: c.RollingSumWindows,
		},
		AllowFutureX: allowFutureX,
	}
}

// EnsembleOptions enables collinearity logging when running at debug level
func (c *Config) EnsembleOptions(logger *slog.Logger) *ensemble.Options {
	opt := ensemble.NewDefaultOptions()
	opt.CombinerHoldoutSize = c.CombinerHoldout
	opt.TargetHorizon = c.TargetHorizon
	opt.CombinerTrainStride = c.CombinerStride
	opt.RetrainOnFullSeries = c.RetrainOnFullSeries
	opt.Workers = c.Workers
	opt.LogCollinearity = c.LogLevel == "debug"
	opt.Logger = logger
	return opt
}

// Logger builds a text or json slog logger writing to w at the configured level
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	handlerOpt := &slog.HandlerOptions{Level: level}
	switch c.LogFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpt)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpt)), nil
	default:
		return nil, fmt.Errorf("%q, %w", c.LogFormat, ErrUnknownLogFormat)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("%q, %w", s, ErrUnknownLogLevel)
	}
	return level, nil
}
