package ml

import (
	"fmt"
	"math"
)

// LogisticRegression is the bank's regularized logistic classifier:
// full-batch gradient descent with L2 penalty and balanced class weights,
// so the minority CTRCD-positive class is not drowned out. Expects scaled,
// imputed inputs.
type LogisticRegression struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	LearningRate float64   `json:"learning_rate"`
	L2           float64   `json:"l2"`
	Epochs       int       `json:"epochs"`
	Balanced     bool      `json:"balanced"`
}

// NewLogisticRegression returns a classifier with the defaults used by the
// model bank.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		LearningRate: 0.1,
		L2:           1e-3,
		Epochs:       200,
		Balanced:     true,
	}
}

// Fit trains by gradient descent on the weighted logistic loss.
func (lr *LogisticRegression) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(y) != n {
		return fmt.Errorf("X and y must have same number of samples")
	}
	numFeatures := len(X[0])
	lr.Weights = make([]float64, numFeatures)
	lr.Bias = 0

	wPos, wNeg := 1.0, 1.0
	if lr.Balanced {
		wPos, wNeg = balancedClassWeights(y)
	}

	grad := make([]float64, numFeatures)
	for epoch := 0; epoch < lr.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		totalWeight := 0.0

		for i, row := range X {
			z := lr.Bias
			for j, v := range row {
				z += lr.Weights[j] * v
			}
			p := sigmoid(z)

			sw := wNeg
			if y[i] == 1 {
				sw = wPos
			}
			err := sw * (p - y[i])
			for j, v := range row {
				grad[j] += err * v
			}
			gradBias += err
			totalWeight += sw
		}

		for j := range lr.Weights {
			lr.Weights[j] -= lr.LearningRate * (grad[j]/totalWeight + lr.L2*lr.Weights[j])
		}
		lr.Bias -= lr.LearningRate * gradBias / totalWeight
	}
	return nil
}

// PredictProba returns the positive-class probability for one sample.
func (lr *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if len(x) != len(lr.Weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(lr.Weights), len(x))
	}
	z := lr.Bias
	for j, v := range x {
		z += lr.Weights[j] * v
	}
	return sigmoid(z), nil
}

// Kind identifies the estimator in serialized artifacts.
func (lr *LogisticRegression) Kind() string { return "logreg" }

// balancedClassWeights returns (posWeight, negWeight) scaled so each class
// contributes equally, sklearn's class_weight="balanced" scheme.
func balancedClassWeights(y []float64) (float64, float64) {
	pos := 0.0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	neg := float64(len(y)) - pos
	if pos == 0 || neg == 0 {
		return 1, 1
	}
	n := float64(len(y))
	return n / (2 * pos), n / (2 * neg)
}

// positiveClassWeight returns neg/pos, the imbalance-aware weight applied
// to positive samples by the weighted boosting model.
func positiveClassWeight(y []float64) float64 {
	pos := 0.0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	neg := float64(len(y)) - pos
	if pos == 0 {
		return 1
	}
	return math.Max(neg/pos, 1)
}
