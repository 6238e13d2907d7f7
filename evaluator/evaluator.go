// Package evaluator aggregates backtest forecast errors by lead time
package evaluator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

var (
	ErrDivisionByZero     = errors.New("percentage error against a zero true value")
	ErrInvalidIssueTime   = errors.New("forecast column is not an RFC3339 issue time")
	ErrNoForecasts        = errors.New("no forecasts")
	ErrTruthNotUnivariate = errors.New("truth must have exactly one column")
)

// LeadTimeError is the mean error of every prediction made lead time after its issue time
type LeadTimeError struct {
	LeadTime time.Duration `json:"lead_time"`
	Value    float64       `json:"value"`
	Count    int           `json:"count"`
}

type pair struct {
	lead      time.Duration
	truth     float64
	predicted float64
}

// Evaluator holds every (issue, prediction time) pair with a true and predicted value
type Evaluator struct {
	truth     *timedataset.Frame
	forecasts *timedataset.Frame
	issues    []time.Time
	pairs     []pair
}

// New joins the truth with forecasts whose columns are named by RFC3339 issue time. Rows without a
// true value or without any forecast value are dropped.
func New(truth, forecasts *timedataset.Frame) (*Evaluator, error) {
	if truth.NumColumns() != 1 {
		return nil, fmt.Errorf("got %d columns, %w", truth.NumColumns(), ErrTruthNotUnivariate)
	}
	if forecasts.NumColumns() == 0 {
		return nil, ErrNoForecasts
	}
	issues := make([]time.Time, len(forecasts.Columns))
	for c, col := range forecasts.Columns {
		issue, err := time.Parse(time.RFC3339, col)
		if err != nil {
			return nil, fmt.Errorf("%q, %w", col, ErrInvalidIssueTime)
		}
		issues[c] = issue
	}

	e := &Evaluator{truth: truth, forecasts: forecasts, issues: issues}
	for i, t := range forecasts.T {
		k, exists := truth.Index(t)
		if !exists || math.IsNaN(truth.Data[0][k]) {
			continue
		}
		for c, issue := range issues {
			v := forecasts.Data[c][i]
			if math.IsNaN(v) {
				continue
			}
			e.pairs = append(e.pairs, pair{
				lead:      t.Sub(issue),
				truth:     truth.Data[0][k],
				predicted: v,
			})
		}
	}
	return e, nil
}

// MAE returns the mean absolute error per lead time sorted by lead time
func (e *Evaluator) MAE() []LeadTimeError {
	res, _ := e.aggregate(func(p pair) (float64, error) {
		return math.Abs(p.truth - p.predicted), nil
	})
	return res
}

// MAPE returns the mean absolute percentage error, as a fraction, per lead time sorted by lead time
func (e *Evaluator) MAPE() ([]LeadTimeError, error) {
	return e.aggregate(func(p pair) (float64, error) {
		if p.truth == 0 {
			return 0, fmt.Errorf("at lead time %s, %w", p.lead, ErrDivisionByZero)
		}
		return math.Abs((p.truth - p.predicted) / p.truth), nil
	})
}

func (e *Evaluator) aggregate(errFn func(p pair) (float64, error)) ([]LeadTimeError, error) {
	sums := make(map[time.Duration]float64)
	counts := make(map[time.Duration]int)
	for _, p := range e.pairs {
		v, err := errFn(p)
		if err != nil {
			return nil, err
		}
		sums[p.lead] += v
		counts[p.lead]++
	}

	res := make([]LeadTimeError, 0, len(sums))
	for lead, sum := range sums {
		res = append(res, LeadTimeError{
			LeadTime: lead,
			Value:    sum / float64(counts[lead]),
			Count:    counts[lead],
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].LeadTime < res[j].LeadTime
	})
	return res, nil
}

// Lookup returns the entry for a lead time
func Lookup(errs []LeadTimeError, lead time.Duration) (LeadTimeError, bool) {
	i := sort.Search(len(errs), func(i int) bool {
		return errs[i].LeadTime >= lead
	})
	if i < len(errs) && errs[i].LeadTime == lead {
		return errs[i], true
	}
	return LeadTimeError{}, false
}

// IssueColumn names a forecast column by its issue time
func IssueColumn(issue time.Time) string {
	return issue.UTC().Format(time.RFC3339)
}

// FromForecasts lays out per origin forecasts as one column per issue time, where the issue time is
// the first predicted timestamp. Cells outside a forecast are NaN.
func FromForecasts(forecasts []*timedataset.Frame) (*timedataset.Frame, error) {
	if len(forecasts) == 0 {
		return nil, ErrNoForecasts
	}
	seen := make(map[time.Time]struct{})
	var t []time.Time
	for _, f := range forecasts {
		for _, ts := range f.T {
			if _, exists := seen[ts]; exists {
				continue
			}
			seen[ts] = struct{}{}
			t = append(t, ts)
		}
	}
	sort.Slice(t, func(i, j int) bool {
		return t[i].Before(t[j])
	})

	columns := make([]string, len(forecasts))
	data := make([][]float64, len(forecasts))
	for c, f := range forecasts {
		if f.Empty() || f.NumColumns() == 0 {
			return nil, fmt.Errorf("forecast %d is empty, %w", c, ErrNoForecasts)
		}
		columns[c] = IssueColumn(f.Start())
		data[c] = make([]float64, len(t))
		for i := range data[c] {
			data[c][i] = math.NaN()
		}
		for i, ts := range f.T {
			k := sort.Search(len(t), func(j int) bool {
				return !t[j].Before(ts)
			})
			data[c][k] = f.Data[0][i]
		}
	}
	return timedataset.NewFrame(t, columns, data)
}
