package ml

import (
	"testing"
)

func makeImbalanced(n, pos int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i)}
		if i < pos {
			y[i] = 1
		}
	}
	return X, y
}

func TestTrainTestSplitStratified(t *testing.T) {
	X, y := makeImbalanced(100, 20)

	split, err := TrainTestSplit(X, y, DefaultSplitConfig())
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	if len(split.TrainX)+len(split.TestX) != 100 {
		t.Fatalf("samples lost in split: %d train + %d test", len(split.TrainX), len(split.TestX))
	}

	count := func(ys []float64) (pos int) {
		for _, v := range ys {
			if v == 1 {
				pos++
			}
		}
		return pos
	}
	// 20% positives overall: the stratified split keeps 16/4.
	if got := count(split.TrainY); got != 16 {
		t.Errorf("train positives = %d, want 16", got)
	}
	if got := count(split.TestY); got != 4 {
		t.Errorf("test positives = %d, want 4", got)
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	X, y := makeImbalanced(60, 15)
	cfg := DefaultSplitConfig()

	a, err := TrainTestSplit(X, y, cfg)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	b, err := TrainTestSplit(X, y, cfg)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	if len(a.TestX) != len(b.TestX) {
		t.Fatalf("test sizes differ: %d vs %d", len(a.TestX), len(b.TestX))
	}
	for i := range a.TestX {
		if a.TestX[i][0] != b.TestX[i][0] {
			t.Fatalf("same seed produced different partitions at test row %d", i)
		}
	}
}

func TestTrainTestSplitKeepsRareClass(t *testing.T) {
	// Two positives among fifty: both sides still see the class.
	X, y := makeImbalanced(50, 2)

	split, err := TrainTestSplit(X, y, DefaultSplitConfig())
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	hasPos := func(ys []float64) bool {
		for _, v := range ys {
			if v == 1 {
				return true
			}
		}
		return false
	}
	if !hasPos(split.TrainY) {
		t.Error("training set lost the positive class")
	}
	if !hasPos(split.TestY) {
		t.Error("test set lost the positive class")
	}
}

func TestTrainTestSplitRejectsBadConfig(t *testing.T) {
	X, y := makeImbalanced(10, 5)
	if _, err := TrainTestSplit(X, y, SplitConfig{TestSize: 1.5, RandomSeed: 1}); err == nil {
		t.Error("expected error for test_size > 1")
	}
	if _, err := TrainTestSplit(nil, nil, DefaultSplitConfig()); err == nil {
		t.Error("expected error for empty data")
	}
}
