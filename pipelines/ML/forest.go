package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of probability trees for the binary
// CTRCD outcome. Each tree is grown on a bootstrap sample with a random
// sqrt-sized feature subset per split; the predicted probability is the
// mean of leaf probabilities.
type RandomForest struct {
	Trees          []*TreeNode `json:"trees"`
	NumTrees       int         `json:"num_trees"`
	MaxDepth       int         `json:"max_depth"`
	MinSamplesLeaf int         `json:"min_samples_leaf"`
	MaxFeatures    int         `json:"max_features"`
	NumFeatures    int         `json:"num_features"`
	RandomSeed     int64       `json:"random_seed"`
}

// NewRandomForest creates a forest with the given hyperparameters.
// Non-positive values fall back to defaults.
func NewRandomForest(numTrees, maxDepth, minSamplesLeaf int, seed int64) *RandomForest {
	if numTrees <= 0 {
		numTrees = 200
	}
	if maxDepth <= 0 {
		maxDepth = 8
	}
	if minSamplesLeaf <= 0 {
		minSamplesLeaf = 2
	}
	return &RandomForest{
		NumTrees:       numTrees,
		MaxDepth:       maxDepth,
		MinSamplesLeaf: minSamplesLeaf,
		RandomSeed:     seed,
	}
}

// Fit grows the ensemble. X must be imputed; y holds 0/1 outcomes.
func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(y) != n {
		return fmt.Errorf("X and y must have same number of samples")
	}

	rf.NumFeatures = len(X[0])
	rf.MaxFeatures = int(math.Sqrt(float64(rf.NumFeatures)))
	if rf.MaxFeatures < 1 {
		rf.MaxFeatures = 1
	}

	rng := rand.New(rand.NewSource(rf.RandomSeed))
	candidates := binThresholds(X, 64)

	// Leaf value -sum(grad)/sum(hess) with grad=-y, hess=1 is the leaf
	// mean of y, i.e. the empirical positive rate.
	grad := make([]float64, n)
	hess := make([]float64, n)
	for i := range y {
		grad[i] = -y[i]
		hess[i] = 1
	}

	rf.Trees = make([]*TreeNode, rf.NumTrees)
	for t := 0; t < rf.NumTrees; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}
		rf.Trees[t] = growTree(X, grad, hess, indices, treeParams{
			maxDepth:       rf.MaxDepth,
			minSamplesLeaf: rf.MinSamplesLeaf,
			lambda:         1e-6,
			candidates:     candidates,
			mtry:           rf.MaxFeatures,
			rng:            rng,
		})
	}
	return nil
}

// PredictProba averages the trees' leaf probabilities for one sample.
func (rf *RandomForest) PredictProba(x []float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0, fmt.Errorf("model not trained")
	}
	if len(x) != rf.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", rf.NumFeatures, len(x))
	}
	sum := 0.0
	for _, tree := range rf.Trees {
		sum += tree.Predict(x)
	}
	return clampProb01(sum / float64(len(rf.Trees))), nil
}

// Kind identifies the estimator in serialized artifacts.
func (rf *RandomForest) Kind() string { return "random_forest" }

func clampProb01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
