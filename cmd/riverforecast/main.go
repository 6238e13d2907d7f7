// Command riverforecast trains, runs and backtests the stacked river level ensemble of a catchment.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/aouyang1/go-riverforecast/catchment"
	"github.com/aouyang1/go-riverforecast/config"
	"github.com/aouyang1/go-riverforecast/provider"
	"github.com/aouyang1/go-riverforecast/storage"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"

	_ "modernc.org/sqlite"
)

const (
	bundlePrefix   = "bundles"
	forecastPrefix = "forecasts"
	featurePrefix  = "features"
)

var ErrMissingScalers = errors.New("saved ensemble has no scalers")

type cli struct {
	Config config.Config `embed:""`

	MetricsFile string `help:"Write the Prometheus metrics of the run to this textfile." env:"RIVERFORECAST_METRICS_FILE"`

	Train    trainCmd    `cmd:"" help:"Fit the ensemble on the historical catchment data and save it."`
	Predict  predictCmd  `cmd:"" help:"Forecast the river level over the current weather forecast."`
	Backtest backtestCmd `cmd:"" help:"Walk-forward backtest the saved ensemble over the test window."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	var c cli
	parser, err := kong.New(&c,
		kong.Name("riverforecast"),
		kong.Description("Ensemble river stage forecasting from gridded weather."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	if err := c.Config.Validate(); err != nil {
		return err
	}

	logger, err := c.Config.Logger(stderr)
	if err != nil {
		return err
	}
	if c.Config.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	a, err := newApp(ctx, &c.Config, logger, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	runErr := kctx.Run(a)
	if c.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(c.MetricsFile, prometheus.DefaultGatherer); err != nil {
			logger.Warn("unable to write metrics", "path", c.MetricsFile, "error", err)
		}
	}
	return runErr
}

// app holds what every subcommand shares
type app struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	store   storage.Dispatcher
	bundles *storage.DatumStore
	data    *catchment.CatchmentData

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	a := &app{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		out:    out,
	}
	if err := a.openStore(); err != nil {
		return nil, err
	}
	a.bundles = storage.NewDatumStore(a.store, bundlePrefix)

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	weatherOpt := provider.NewDefaultOpenMeteoOptions()
	weatherOpt.ForecastURL = cfg.OpenMeteoURL
	weatherOpt.ArchiveURL = cfg.OpenMeteoArchive
	weatherOpt.APIKey = cfg.OpenMeteoAPIKey
	weatherOpt.Coordinates = cfg.Coordinates()
	weatherOpt.Client = client
	weatherOpt.Logger = logger
	weather, err := provider.NewOpenMeteo(weatherOpt)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("unable to create weather provider, %w", err)
	}

	gaugeOpt := provider.NewDefaultGaugeOptions()
	gaugeOpt.BaseURL = cfg.GaugeURL
	gaugeOpt.StationID = cfg.GaugeStation
	gaugeOpt.HistoricalStart = cfg.HistoricalStart
	gaugeOpt.Client = client
	gaugeOpt.Logger = logger
	level := provider.NewGauge(gaugeOpt)

	catchmentOpt := catchment.NewDefaultOptions()
	catchmentOpt.Columns = cfg.WeatherColumns
	catchmentOpt.HistoricalStart = cfg.HistoricalStart
	catchmentOpt.RecentLevelSamples = cfg.RecentLevelPoints
	catchmentOpt.Logger = logger
	a.data = catchment.New(cfg.Catchment, weather, level, catchmentOpt)
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Storage {
	case config.StorageFile:
		a.store = storage.NewFileDispatcher(a.cfg.StoragePath)
		return nil
	case config.StorageSQLite:
		db, err := sql.Open("sqlite", a.cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("unable to open artifact database, %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			a.logger.Warn("unable to enable sqlite WAL", "error", err)
		}
		d := storage.NewSQLiteDispatcher(db)
		if err := d.Migrate(); err != nil {
			db.Close()
			return err
		}
		a.store = d
		a.closers = append(a.closers, db)
		return nil
	default:
		return fmt.Errorf("%q, %w", a.cfg.Storage, config.ErrUnknownStorage)
	}
}

// Close releases the storage backend
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// historical returns the historical bundle, either freshly fetched and stored or the last stored one
func (a *app) historical(cached bool) (*catchment.Bundle, error) {
	name := a.data.Name()
	if cached {
		b, err := a.bundles.Get(a.ctx, name, "historical")
		if err != nil {
			return nil, fmt.Errorf("unable to load stored historical bundle, %w", err)
		}
		a.logger.Info("using stored historical bundle", "catchment", name, "locations", len(b.Weather))
		return b, nil
	}
	b, err := a.data.AllHistorical(a.ctx)
	if err != nil {
		return nil, err
	}
	if err := a.bundles.Put(a.ctx, name, "historical", b); err != nil {
		return nil, err
	}
	return b, nil
}

func (a *app) current() (*catchment.Bundle, error) {
	b, err := a.data.AllCurrent(a.ctx)
	if err != nil {
		return nil, err
	}
	if err := a.bundles.Put(a.ctx, a.data.Name(), "current", b); err != nil {
		return nil, err
	}
	return b, nil
}

func (a *app) featureCachePrefix() string {
	return path.Join(featurePrefix, a.cfg.Catchment)
}
