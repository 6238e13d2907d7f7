package evaluator

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Plot renders an html page with the truth and every forecast issue over the forecast index, and
// a bar chart of the mean absolute error by lead time.
func (e *Evaluator) Plot(path string) error {
	t := e.forecasts.T
	xAxis := make([]string, len(t))
	for i, ts := range t {
		xAxis[i] = ts.UTC().Format("2006-01-02 15:04")
	}

	truth := make([]float64, len(t))
	for i, ts := range t {
		truth[i] = math.NaN()
		if k, exists := e.truth.Index(ts); exists {
			truth[i] = e.truth.Data[0][k]
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Backtest"}),
	)
	line.SetXAxis(xAxis).AddSeries("Truth", lineData(truth))
	for c, col := range e.forecasts.Columns {
		line.AddSeries(col, lineData(e.forecasts.Data[c]))
	}

	mae := e.MAE()
	leads := make([]string, len(mae))
	bars := make([]opts.BarData, len(mae))
	for i, lt := range mae {
		leads[i] = lt.LeadTime.String()
		bars[i] = opts.BarData{Value: lt.Value}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "MAE by Lead Time"}))
	bar.SetXAxis(leads).AddSeries("MAE", bars)

	page := components.NewPage()
	page.AddCharts(line, bar)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create plot file, %w", err)
	}
	defer file.Close()
	return page.Render(file)
}

// lineData leaves NaN values empty so each forecast only spans its own window
func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, len(y))
	for i, v := range y {
		if math.IsNaN(v) {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}
