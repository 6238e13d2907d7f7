package evaluator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores tracks the fit scores
type Scores struct {
	MSE  float64 `json:"mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
	N    int     `json:"n"`
}

// NewScores calculates the fit scores over every pair where neither value is NaN
func NewScores(predicted, actual []float64) (*Scores, error) {
	if len(predicted) != len(actual) {
		return nil, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	p := make([]float64, 0, len(predicted))
	a := make([]float64, 0, len(actual))
	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		p = append(p, predicted[i])
		a = append(a, actual[i])
	}

	return &Scores{
		MSE:  MSE(p, a),
		MAPE: MAPE(p, a),
		R2:   RSquared(p, a),
		N:    len(a),
	}, nil
}

// MSE computes the mean squared error. A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	mse := 0.0
	for i := range actual {
		mse += math.Pow(actual[i]-predicted[i], 2.0)
	}
	return mse / float64(len(actual))
}

// MAPE calculates the mean absolute percent error skipping zero actual values
func MAPE(predicted, actual []float64) float64 {
	var mape float64
	var n int
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		mape += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return mape / float64(n)
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means perfect
// fit and 0 represents no relationship
func RSquared(predicted, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	r2 := stat.RSquaredFrom(predicted, actual, nil)
	if math.IsNaN(r2) {
		return 1.0
	}
	return r2
}
