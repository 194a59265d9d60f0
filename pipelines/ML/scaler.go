package ml

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// StandardScaler standardizes features to zero mean and unit variance.
// Assumes missing values were imputed upstream.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit computes per-column mean and standard deviation. Constant columns
// get std 1 so they pass through unscaled instead of dividing by zero.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training data")
	}
	numFeatures := len(X[0])
	s.Means = make([]float64, numFeatures)
	s.Stds = make([]float64, numFeatures)

	col := make([]float64, len(X))
	for j := 0; j < numFeatures; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, err := stats.Mean(col)
		if err != nil {
			return fmt.Errorf("mean for column %d: %w", j, err)
		}
		std, err := stats.StandardDeviation(col)
		if err != nil {
			return fmt.Errorf("stddev for column %d: %w", j, err)
		}
		if std == 0 {
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return nil
}

// Transform standardizes a matrix.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformRow standardizes a single feature vector.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Means) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.Means), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out, nil
}
