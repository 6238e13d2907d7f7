// Package timedataset holds the time indexed tables shared by the catchment, dataset, model and
// ensemble packages.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	mat_ "github.com/aouyang1/go-riverforecast/mat"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrDuplicateColumn    = errors.New("duplicate column name")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrIndexMismatch      = errors.New("frames do not share the same time index")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from time slice")
	ErrOverlappingAppend  = errors.New("appended frame must start after the end of the frame")
	ErrOffGrid            = errors.New("timestamp is not on the regular grid")
)

// Frame is a multivariate time series. Values are stored column major where Data[c][i] is the
// value of column c at time T[i]. T must be strictly increasing.
type Frame struct {
	T       []time.Time
	Columns []string
	Data    [][]float64
}

// NewFrame returns a validated copy of the time index, column names and column data.
func NewFrame(t []time.Time, columns []string, data [][]float64) (*Frame, error) {
	if len(columns) != len(data) {
		return nil, fmt.Errorf(
			"got %d column names, but %d data columns, %w",
			len(columns), len(data), ErrDatasetLenMismatch,
		)
	}

	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		if _, exists := seen[col]; exists {
			return nil, fmt.Errorf("%s, %w", col, ErrDuplicateColumn)
		}
		seen[col] = struct{}{}

		if len(data[i]) != len(t) {
			return nil, fmt.Errorf(
				"time feature has length of %d, but column %s has a length of %d, %w",
				len(t), col, len(data[i]), ErrDatasetLenMismatch,
			)
		}
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	f := &Frame{
		T:       make([]time.Time, len(t)),
		Columns: make([]string, len(columns)),
		Data:    make([][]float64, len(data)),
	}
	copy(f.T, t)
	copy(f.Columns, columns)
	for i, col := range data {
		f.Data[i] = make([]float64, len(col))
		copy(f.Data[i], col)
	}
	return f, nil
}

// NewUnivariateFrame returns a single column frame.
func NewUnivariateFrame(t []time.Time, column string, y []float64) (*Frame, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	return NewFrame(t, []string{column}, [][]float64{y})
}

// Len returns the number of time points
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.T)
}

// NumColumns returns the number of value columns
func (f *Frame) NumColumns() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

// Empty reports whether the frame has no time points
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

// Start returns the first timestamp or the zero time for an empty frame
func (f *Frame) Start() time.Time {
	if f == nil {
		return time.Time{}
	}
	return Index(f.T).First()
}

// End returns the last timestamp or the zero time for an empty frame
func (f *Frame) End() time.Time {
	if f == nil {
		return time.Time{}
	}
	return Index(f.T).Last()
}

// Freq estimates the sampling interval from the most common delta between points
func (f *Frame) Freq() (time.Duration, error) {
	return Index(f.T).Freq()
}

// Copy returns a deep copy of the frame
func (f *Frame) Copy() *Frame {
	if f == nil {
		return nil
	}
	return f.Slice(0, f.Len())
}

// Column returns the values of a named column
func (f *Frame) Column(name string) ([]float64, error) {
	for i, col := range f.Columns {
		if col == name {
			return f.Data[i], nil
		}
	}
	return nil, fmt.Errorf("%s, %w", name, ErrUnknownColumn)
}

// Row returns a copy of the values across all columns at index i
func (f *Frame) Row(i int) []float64 {
	row := make([]float64, len(f.Data))
	for c, col := range f.Data {
		row[c] = col[i]
	}
	return row
}

// Slice returns a copy of the rows in [i, j). Bounds are clamped to the frame.
func (f *Frame) Slice(i, j int) *Frame {
	i = max(i, 0)
	j = min(j, f.Len())
	if j < i {
		j = i
	}

	res := &Frame{
		T:       make([]time.Time, j-i),
		Columns: make([]string, len(f.Columns)),
		Data:    make([][]float64, len(f.Data)),
	}
	copy(res.T, f.T[i:j])
	copy(res.Columns, f.Columns)
	for c, col := range f.Data {
		res.Data[c] = make([]float64, j-i)
		copy(res.Data[c], col[i:j])
	}
	return res
}

// Search returns the index of the first time point at or after t
func (f *Frame) Search(t time.Time) int {
	return sort.Search(len(f.T), func(i int) bool {
		return !f.T[i].Before(t)
	})
}

// Index returns the index of the exact time point t
func (f *Frame) Index(t time.Time) (int, bool) {
	i := f.Search(t)
	if i < len(f.T) && f.T[i].Equal(t) {
		return i, true
	}
	return -1, false
}

// From returns the rows at or after start
func (f *Frame) From(start time.Time) *Frame {
	return f.Slice(f.Search(start), f.Len())
}

// Until returns the rows at or before end
func (f *Frame) Until(end time.Time) *Frame {
	return f.Slice(0, f.Search(end.Add(time.Nanosecond)))
}

// Between returns the rows in the inclusive time range [start, end]
func (f *Frame) Between(start, end time.Time) *Frame {
	return f.From(start).Until(end)
}

// Intersect restricts the frame to the inclusive time range spanned by other
func (f *Frame) Intersect(other *Frame) *Frame {
	if other.Empty() {
		return f.Slice(0, 0)
	}
	return f.Between(other.Start(), other.End())
}

// FilterPrefix returns only the columns beginning with prefix
func (f *Frame) FilterPrefix(prefix string) *Frame {
	res := &Frame{
		T: make([]time.Time, len(f.T)),
	}
	copy(res.T, f.T)
	for c, col := range f.Columns {
		if !strings.HasPrefix(col, prefix) {
			continue
		}
		data := make([]float64, len(f.Data[c]))
		copy(data, f.Data[c])
		res.Columns = append(res.Columns, col)
		res.Data = append(res.Data, data)
	}
	return res
}

// WithPrefix returns a copy of the frame with every column name prefixed
func (f *Frame) WithPrefix(prefix string) *Frame {
	res := f.Copy()
	for c, col := range res.Columns {
		res.Columns[c] = prefix + col
	}
	return res
}

// Rename returns a copy of the frame with the column names replaced
func (f *Frame) Rename(columns []string) (*Frame, error) {
	return NewFrame(f.T, columns, f.Data)
}

// AddColumn appends a new named column of the same length as the time index
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.T) {
		return fmt.Errorf(
			"time feature has length of %d, but column %s has a length of %d, %w",
			len(f.T), name, len(values), ErrDatasetLenMismatch,
		)
	}
	for _, col := range f.Columns {
		if col == name {
			return fmt.Errorf("%s, %w", name, ErrDuplicateColumn)
		}
	}
	data := make([]float64, len(values))
	copy(data, values)
	f.Columns = append(f.Columns, name)
	f.Data = append(f.Data, data)
	return nil
}

// DropNan removes every row where any column is NaN
func (f *Frame) DropNan() *Frame {
	if f == nil {
		return nil
	}
	keep := make([]int, 0, f.Len())
	for i := range f.T {
		valid := true
		for _, col := range f.Data {
			if math.IsNaN(col[i]) {
				valid = false
				break
			}
		}
		if valid {
			keep = append(keep, i)
		}
	}

	res := &Frame{
		T:       make([]time.Time, 0, len(keep)),
		Columns: make([]string, len(f.Columns)),
		Data:    make([][]float64, len(f.Data)),
	}
	copy(res.Columns, f.Columns)
	for c := range f.Data {
		res.Data[c] = make([]float64, 0, len(keep))
	}
	for _, i := range keep {
		res.T = append(res.T, f.T[i])
		for c, col := range f.Data {
			res.Data[c] = append(res.Data[c], col[i])
		}
	}
	return res
}

// Append concatenates the rows of other after the rows of f. Both frames must have the same columns.
func (f *Frame) Append(other *Frame) (*Frame, error) {
	if other.Empty() {
		return f.Copy(), nil
	}
	if !f.Empty() && !other.Start().After(f.End()) {
		return nil, ErrOverlappingAppend
	}
	if len(f.Columns) != len(other.Columns) {
		return nil, fmt.Errorf("got %d columns, but expected %d, %w", len(other.Columns), len(f.Columns), ErrUnknownColumn)
	}
	for c, col := range f.Columns {
		if other.Columns[c] != col {
			return nil, fmt.Errorf("%s, %w", other.Columns[c], ErrUnknownColumn)
		}
	}

	t := append(append(make([]time.Time, 0, f.Len()+other.Len()), f.T...), other.T...)
	data := make([][]float64, len(f.Data))
	for c := range f.Data {
		data[c] = append(append(make([]float64, 0, len(t)), f.Data[c]...), other.Data[c]...)
	}
	return &Frame{T: t, Columns: append([]string(nil), f.Columns...), Data: data}, nil
}

// Stack concatenates the columns of frames sharing an identical time index, in argument order
func Stack(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, ErrNoTrainingData
	}
	ref := frames[0]
	res := &Frame{T: make([]time.Time, len(ref.T))}
	copy(res.T, ref.T)

	for i, f := range frames {
		if !sameIndex(ref.T, f.T) {
			return nil, fmt.Errorf("frame %d, %w", i, ErrIndexMismatch)
		}
		for c, col := range f.Columns {
			if err := res.AddColumn(col, f.Data[c]); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func sameIndex(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Matrix returns the frame as a dense matrix with one row per time point and one column per frame column.
// An empty frame returns nil.
func (f *Frame) Matrix() *mat.Dense {
	m, err := mat_.NewDenseFromColumns(f.Data)
	if err != nil {
		return nil
	}
	return m
}

// FutureIndex generates n timestamps following the end of the frame at its inferred frequency.
// Frames with fewer than two points are assumed to be hourly.
func (f *Frame) FutureIndex(n int) []time.Time {
	freq, err := f.Freq()
	if err != nil {
		freq = time.Hour
	}
	t := make([]time.Time, 0, n)
	end := f.End()
	for i := 1; i <= n; i++ {
		t = append(t, end.Add(time.Duration(i)*freq))
	}
	return t
}

// Validate checks the frame invariants enforced by NewFrame
func (f *Frame) Validate() error {
	_, err := NewFrame(f.T, f.Columns, f.Data)
	return err
}

// Reindex places the frame on a regular grid of step from its first to its last timestamp. Grid
// points without a row are NaN in every column.
func (f *Frame) Reindex(step time.Duration) (*Frame, error) {
	if f.Empty() || len(Index(f.T).Gaps(step)) == 0 {
		return f.Copy(), nil
	}
	start := f.Start()
	n := int(f.End().Sub(start)/step) + 1

	t := make([]time.Time, n)
	for i := range t {
		t[i] = start.Add(time.Duration(i) * step)
	}
	data := make([][]float64, len(f.Data))
	for c := range data {
		data[c] = make([]float64, n)
		for i := range data[c] {
			data[c][i] = math.NaN()
		}
	}
	for i, ts := range f.T {
		offset := ts.Sub(start)
		if offset%step != 0 {
			return nil, fmt.Errorf("%s is not a multiple of %s after %s, %w", ts, step, start, ErrOffGrid)
		}
		k := int(offset / step)
		for c, col := range f.Data {
			data[c][k] = col[i]
		}
	}
	return &Frame{T: t, Columns: append([]string(nil), f.Columns...), Data: data}, nil
}

// IsHourly reports whether every consecutive pair of timestamps is exactly one hour apart
func (f *Frame) IsHourly() bool {
	if f == nil {
		return true
	}
	return len(Index(f.T).Gaps(time.Hour)) == 0
}
