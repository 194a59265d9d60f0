package ml

import (
	"fmt"
	"math"
)

// GradientBoosting is a histogram gradient-boosted tree classifier for the
// binary CTRCD outcome: logistic loss, Newton leaf values, quantile-binned
// split candidates. Two bank configurations use it — the monotone variant
// constrains LVEF's effect to be non-increasing (clinically, lower ejection
// fraction can only raise risk), and the weighted variant scales positive
// samples by neg/pos to counter class imbalance.
type GradientBoosting struct {
	Trees          []*TreeNode    `json:"trees"`
	BaseScore      float64        `json:"base_score"` // initial log-odds
	NumTrees       int            `json:"num_trees"`
	LearningRate   float64        `json:"learning_rate"`
	MaxDepth       int            `json:"max_depth"`
	MinSamplesLeaf int            `json:"min_samples_leaf"`
	MaxBins        int            `json:"max_bins"`
	Monotone       map[string]int `json:"monotone,omitempty"` // feature name -> direction
	PosWeight      float64        `json:"pos_weight,omitempty"`
	FeatureNames   []string       `json:"feature_names"`
	NumFeatures    int            `json:"num_features"`
}

// NewGradientBoosting creates a boosting model with bank defaults.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NumTrees:       150,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 5,
		MaxBins:        64,
	}
}

// Fit boosts trees on the logistic loss. X must be imputed; featureNames
// resolve monotone constraints to column indices.
func (gb *GradientBoosting) Fit(X [][]float64, y []float64, featureNames []string) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(y) != n {
		return fmt.Errorf("X and y must have same number of samples")
	}
	if len(featureNames) != len(X[0]) {
		return fmt.Errorf("feature names must match number of features")
	}

	gb.FeatureNames = append([]string{}, featureNames...)
	gb.NumFeatures = len(X[0])

	monotone := make([]int8, gb.NumFeatures)
	for name, dir := range gb.Monotone {
		idx := -1
		for j, f := range featureNames {
			if f == name {
				idx = j
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("monotone constraint on unknown feature: %s", name)
		}
		monotone[idx] = int8(dir)
	}

	weights := make([]float64, n)
	posRate := 0.0
	totalWeight := 0.0
	for i, yi := range y {
		w := 1.0
		if yi == 1 && gb.PosWeight > 0 {
			w = gb.PosWeight
		}
		weights[i] = w
		posRate += w * yi
		totalWeight += w
	}
	posRate = clampProb(posRate / totalWeight)
	gb.BaseScore = math.Log(posRate / (1 - posRate))

	candidates := binThresholds(X, gb.MaxBins)

	indices := make([]int, n)
	scores := make([]float64, n)
	grad := make([]float64, n)
	hess := make([]float64, n)
	for i := range indices {
		indices[i] = i
		scores[i] = gb.BaseScore
	}

	gb.Trees = make([]*TreeNode, 0, gb.NumTrees)
	for t := 0; t < gb.NumTrees; t++ {
		for i := range scores {
			p := sigmoid(scores[i])
			grad[i] = weights[i] * (p - y[i])
			hess[i] = weights[i] * p * (1 - p)
		}

		tree := growTree(X, grad, hess, indices, treeParams{
			maxDepth:       gb.MaxDepth,
			minSamplesLeaf: gb.MinSamplesLeaf,
			lambda:         1.0,
			monotone:       monotone,
			candidates:     candidates,
		})
		gb.Trees = append(gb.Trees, tree)

		for i := range scores {
			scores[i] += gb.LearningRate * tree.Predict(X[i])
		}
	}
	return nil
}

// PredictProba returns the positive-class probability for one sample.
func (gb *GradientBoosting) PredictProba(x []float64) (float64, error) {
	if len(gb.Trees) == 0 {
		return 0, fmt.Errorf("model not trained")
	}
	if len(x) != gb.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", gb.NumFeatures, len(x))
	}
	score := gb.BaseScore
	for _, tree := range gb.Trees {
		score += gb.LearningRate * tree.Predict(x)
	}
	return sigmoid(score), nil
}

// Kind identifies the estimator in serialized artifacts.
func (gb *GradientBoosting) Kind() string {
	if gb.PosWeight > 0 {
		return "gbdt_weighted"
	}
	return "hist_gbdt"
}
