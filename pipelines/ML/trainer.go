package ml

import (
	"fmt"
	"math/rand"
)

// SplitConfig controls the train/test split.
type SplitConfig struct {
	TestSize   float64 `json:"test_size"`   // e.g. 0.2 for 80/20
	RandomSeed int64   `json:"random_seed"` // fixed for reproducible runs
	Stratify   bool    `json:"stratify"`    // keep class ratio in both sets
}

// DefaultSplitConfig is the 80/20 stratified split with the seed every
// training run uses.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TestSize: 0.2, RandomSeed: 42, Stratify: true}
}

// Split holds the train/test partition of a dataset.
type Split struct {
	TrainX [][]float64
	TrainY []float64
	TestX  [][]float64
	TestY  []float64
}

// TrainTestSplit shuffles and partitions the data. With Stratify set, each
// class is split separately so the held-out set keeps the outcome ratio,
// which matters for a rare outcome like CTRCD.
func TrainTestSplit(X [][]float64, y []float64, cfg SplitConfig) (*Split, error) {
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("empty data")
	}
	if len(y) != n {
		return nil, fmt.Errorf("X and y must have same number of samples")
	}
	if cfg.TestSize <= 0 || cfg.TestSize >= 1 {
		return nil, fmt.Errorf("test_size must be in (0,1), got %v", cfg.TestSize)
	}

	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	var trainIdx, testIdx []int
	if cfg.Stratify {
		byClass := make(map[float64][]int)
		for _, idx := range indices {
			byClass[y[idx]] = append(byClass[y[idx]], idx)
		}
		for _, samples := range byClass {
			cut := int(float64(len(samples)) * (1 - cfg.TestSize))
			if cut == 0 && len(samples) > 0 {
				cut = 1 // at least one training sample per class
			}
			if cut >= len(samples) {
				cut = len(samples) - 1 // at least one test sample per class
			}
			trainIdx = append(trainIdx, samples[:cut]...)
			testIdx = append(testIdx, samples[cut:]...)
		}
		rng.Shuffle(len(trainIdx), func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})
		rng.Shuffle(len(testIdx), func(i, j int) {
			testIdx[i], testIdx[j] = testIdx[j], testIdx[i]
		})
	} else {
		cut := int(float64(n) * (1 - cfg.TestSize))
		trainIdx = indices[:cut]
		testIdx = indices[cut:]
	}

	split := &Split{}
	split.TrainX, split.TrainY = selectRows(X, y, trainIdx)
	split.TestX, split.TestY = selectRows(X, y, testIdx)
	if len(split.TrainX) == 0 || len(split.TestX) == 0 {
		return nil, fmt.Errorf("split produced an empty partition (n=%d, test_size=%v)", n, cfg.TestSize)
	}
	return split, nil
}

func selectRows(X [][]float64, y []float64, indices []int) ([][]float64, []float64) {
	outX := make([][]float64, len(indices))
	outY := make([]float64, len(indices))
	for i, idx := range indices {
		outX[i] = X[idx]
		outY[i] = y[idx]
	}
	return outX, outY
}
