package clinical

import (
	"fmt"
	"math"
)

// Frame is a column-ordered numeric table of patient records. Missing and
// invalid values are NaN.
type Frame struct {
	Columns []string             `json:"columns"`
	Data    map[string][]float64 `json:"data"`
	NumRows int                  `json:"num_rows"`
}

// NewFrame creates an empty frame with the given column order.
func NewFrame(columns []string, numRows int) *Frame {
	f := &Frame{
		Columns: append([]string{}, columns...),
		Data:    make(map[string][]float64, len(columns)),
		NumRows: numRows,
	}
	for _, c := range columns {
		col := make([]float64, numRows)
		for i := range col {
			col[i] = math.NaN()
		}
		f.Data[c] = col
	}
	return f
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.Data[name]
	return ok
}

// Column returns the values of the named column, or an error if absent.
func (f *Frame) Column(name string) ([]float64, error) {
	col, ok := f.Data[name]
	if !ok {
		return nil, fmt.Errorf("column not found: %s", name)
	}
	return col, nil
}

// AddColumn appends a new column. Existing columns of the same name are
// overwritten in place, preserving order.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != f.NumRows {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), f.NumRows)
	}
	if !f.HasColumn(name) {
		f.Columns = append(f.Columns, name)
	}
	f.Data[name] = values
	return nil
}

// Value returns the cell at (row, column); NaN when the column is absent.
func (f *Frame) Value(row int, name string) float64 {
	col, ok := f.Data[name]
	if !ok || row < 0 || row >= len(col) {
		return math.NaN()
	}
	return col[row]
}

// Matrix assembles rows for the requested columns in the given order.
// Columns absent from the frame are filled with NaN, keeping the matrix
// shape stable across datasets with missing variables.
func (f *Frame) Matrix(columns []string) [][]float64 {
	X := make([][]float64, f.NumRows)
	for i := range X {
		row := make([]float64, len(columns))
		for j, name := range columns {
			row[j] = f.Value(i, name)
		}
		X[i] = row
	}
	return X
}
