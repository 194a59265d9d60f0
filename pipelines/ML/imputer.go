package ml

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// MedianImputer replaces missing values with the per-column median observed
// at fit time. The fitted medians are part of the model artifact so that
// serving applies exactly the training-time statistics.
type MedianImputer struct {
	Medians []float64 `json:"medians"`
}

// Fit computes the median of each column over its non-missing values.
// A column with no observed values gets median 0.
func (m *MedianImputer) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training data")
	}
	numFeatures := len(X[0])
	m.Medians = make([]float64, numFeatures)

	for j := 0; j < numFeatures; j++ {
		var observed []float64
		for i := range X {
			if !math.IsNaN(X[i][j]) {
				observed = append(observed, X[i][j])
			}
		}
		if len(observed) == 0 {
			m.Medians[j] = 0
			continue
		}
		med, err := stats.Median(observed)
		if err != nil {
			return fmt.Errorf("median for column %d: %w", j, err)
		}
		m.Medians[j] = med
	}
	return nil
}

// Transform returns a copy of X with missing values filled in.
func (m *MedianImputer) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		filled, err := m.TransformRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = filled
	}
	return out, nil
}

// TransformRow fills a single feature vector.
func (m *MedianImputer) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(m.Medians) {
		return nil, fmt.Errorf("expected %d features, got %d", len(m.Medians), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		if math.IsNaN(v) {
			out[j] = m.Medians[j]
		} else {
			out[j] = v
		}
	}
	return out, nil
}
