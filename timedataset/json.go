package timedataset

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

type frameJSON struct {
	T       []time.Time  `json:"time"`
	Columns []string     `json:"columns"`
	Data    [][]*float64 `json:"data"`
}

// MarshalJSON encodes the frame with NaN values written as null
func (f Frame) MarshalJSON() ([]byte, error) {
	out := frameJSON{
		T:       f.T,
		Columns: f.Columns,
		Data:    make([][]*float64, len(f.Data)),
	}
	for c, col := range f.Data {
		out.Data[c] = make([]*float64, len(col))
		for i := range col {
			if math.IsNaN(col[i]) {
				continue
			}
			out.Data[c][i] = &col[i]
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes and validates a frame, converting null values to NaN
func (f *Frame) UnmarshalJSON(data []byte) error {
	var in frameJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	values := make([][]float64, len(in.Data))
	for c, col := range in.Data {
		values[c] = make([]float64, len(col))
		for i, val := range col {
			if val == nil {
				values[c][i] = math.NaN()
				continue
			}
			values[c][i] = *val
		}
	}

	res, err := NewFrame(in.T, in.Columns, values)
	if err != nil {
		return err
	}
	*f = *res
	return nil
}
