// Package mat builds gonum matrices from the row and column slices used across the module.
package mat

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch = errors.New("column size mismatch")
	ErrRowMismatch = errors.New("row size mismatch")
)

// NewDenseFromArray builds a matrix from a slice of rows
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if m == 0 || n <= 0 {
		return nil, mat.ErrZeroLength
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// NewDenseFromColumns builds a matrix from a slice of columns, e.g. one per time series column
// with one row per time point.
func NewDenseFromColumns(cols [][]float64) (*mat.Dense, error) {
	n := len(cols)

	m := -1
	for i, col := range cols {
		if m >= 0 && len(col) != m {
			return nil, fmt.Errorf("at column %d, %w", i, ErrRowMismatch)
		}
		if m < 0 {
			m = len(col)
		}
	}
	if n == 0 || m <= 0 {
		return nil, mat.ErrZeroLength
	}

	data := make([]float64, m*n)
	for c, col := range cols {
		for i, val := range col {
			data[n*i+c] = val
		}
	}
	return mat.NewDense(m, n, data), nil
}
