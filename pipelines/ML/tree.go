package ml

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is a node in a regression tree. Boosted trees predict additive
// scores; forest trees predict leaf-mean probabilities.
type TreeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
}

// Predict walks the tree for one sample.
func (n *TreeNode) Predict(x []float64) float64 {
	node := n
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// Monotone direction constants for per-feature constraints.
const (
	MonotoneNone       int8 = 0
	MonotoneIncreasing int8 = 1
	MonotoneDecreasing int8 = -1
)

// treeParams configures a single tree fit. Trees are grown on gradient and
// hessian statistics; a leaf's value is -sum(grad)/(sum(hess)+lambda), which
// covers both Newton steps for boosting and weighted means for bagging.
type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	lambda         float64     // L2 on leaf values
	monotone       []int8      // per-feature constraint, nil for none
	candidates     [][]float64 // per-feature split thresholds
	mtry           int         // features sampled per split, 0 = all
	rng            *rand.Rand
}

// growTree builds a tree over the given sample indices.
func growTree(X [][]float64, grad, hess []float64, indices []int, p treeParams) *TreeNode {
	return growNode(X, grad, hess, indices, p, 0, math.Inf(-1), math.Inf(1))
}

func growNode(X [][]float64, grad, hess []float64, indices []int, p treeParams, depth int, lo, hi float64) *TreeNode {
	sumG, sumH := 0.0, 0.0
	for _, i := range indices {
		sumG += grad[i]
		sumH += hess[i]
	}
	value := clampValue(-sumG/(sumH+p.lambda), lo, hi)

	node := &TreeNode{Leaf: true, Value: value}
	if depth >= p.maxDepth || len(indices) < 2*p.minSamplesLeaf {
		return node
	}

	feature, threshold, gain, vL, vR := bestSplit(X, grad, hess, indices, p, sumG, sumH, lo, hi)
	if gain <= 1e-12 {
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < p.minSamplesLeaf || len(rightIdx) < p.minSamplesLeaf {
		return node
	}

	// Monotone splits constrain the children's value ranges around the
	// midpoint so no deeper split can undo the ordering.
	leftLo, leftHi, rightLo, rightHi := lo, hi, lo, hi
	if dir := constraintFor(p, feature); dir != MonotoneNone {
		mid := (vL + vR) / 2
		if dir == MonotoneIncreasing {
			leftHi = math.Min(leftHi, mid)
			rightLo = math.Max(rightLo, mid)
		} else {
			leftLo = math.Max(leftLo, mid)
			rightHi = math.Min(rightHi, mid)
		}
	}

	node.Leaf = false
	node.Feature = feature
	node.Threshold = threshold
	node.Left = growNode(X, grad, hess, leftIdx, p, depth+1, leftLo, leftHi)
	node.Right = growNode(X, grad, hess, rightIdx, p, depth+1, rightLo, rightHi)
	return node
}

// bestSplit scans candidate thresholds for the highest-gain split that
// respects monotone constraints. Returns the tentative child values so the
// caller can propagate bounds.
func bestSplit(X [][]float64, grad, hess []float64, indices []int, p treeParams, sumG, sumH, lo, hi float64) (feature int, threshold, gain, vL, vR float64) {
	feature = -1
	parentScore := sumG * sumG / (sumH + p.lambda)

	features := splitFeatures(len(X[0]), p)
	for _, f := range features {
		for _, thr := range p.candidates[f] {
			gl, hl := 0.0, 0.0
			nl := 0
			for _, i := range indices {
				if X[i][f] <= thr {
					gl += grad[i]
					hl += hess[i]
					nl++
				}
			}
			if nl < p.minSamplesLeaf || len(indices)-nl < p.minSamplesLeaf {
				continue
			}
			gr := sumG - gl
			hr := sumH - hl

			left := clampValue(-gl/(hl+p.lambda), lo, hi)
			right := clampValue(-gr/(hr+p.lambda), lo, hi)
			if dir := constraintFor(p, f); dir != MonotoneNone {
				if dir == MonotoneIncreasing && left > right {
					continue
				}
				if dir == MonotoneDecreasing && left < right {
					continue
				}
			}

			g := gl*gl/(hl+p.lambda) + gr*gr/(hr+p.lambda) - parentScore
			if g > gain {
				gain = g
				feature = f
				threshold = thr
				vL, vR = left, right
			}
		}
	}
	return feature, threshold, gain, vL, vR
}

// splitFeatures returns the feature indices considered at a split: all of
// them, or a random subset of size mtry for forests.
func splitFeatures(numFeatures int, p treeParams) []int {
	all := make([]int, numFeatures)
	for i := range all {
		all[i] = i
	}
	if p.mtry <= 0 || p.mtry >= numFeatures || p.rng == nil {
		return all
	}
	p.rng.Shuffle(numFeatures, func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all[:p.mtry]
}

func constraintFor(p treeParams, feature int) int8 {
	if p.monotone == nil || feature >= len(p.monotone) {
		return MonotoneNone
	}
	return p.monotone[feature]
}

func clampValue(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// binThresholds computes up to maxBins quantile-spaced candidate
// thresholds per feature, the histogram trick that keeps split search
// cheap and stable.
func binThresholds(X [][]float64, maxBins int) [][]float64 {
	if len(X) == 0 {
		return nil
	}
	numFeatures := len(X[0])
	out := make([][]float64, numFeatures)

	values := make([]float64, 0, len(X))
	for f := 0; f < numFeatures; f++ {
		values = values[:0]
		for i := range X {
			if !math.IsNaN(X[i][f]) {
				values = append(values, X[i][f])
			}
		}
		sort.Float64s(values)

		uniq := values[:0:0]
		for i, v := range values {
			if i == 0 || v != values[i-1] {
				uniq = append(uniq, v)
			}
		}
		if len(uniq) < 2 {
			out[f] = nil
			continue
		}

		if len(uniq)-1 <= maxBins {
			thresholds := make([]float64, len(uniq)-1)
			for i := 0; i+1 < len(uniq); i++ {
				thresholds[i] = (uniq[i] + uniq[i+1]) / 2
			}
			out[f] = thresholds
			continue
		}

		thresholds := make([]float64, 0, maxBins)
		for b := 1; b <= maxBins; b++ {
			idx := b * (len(uniq) - 1) / (maxBins + 1)
			if idx+1 < len(uniq) {
				thresholds = append(thresholds, (uniq[idx]+uniq[idx+1])/2)
			}
		}
		out[f] = dedupFloats(thresholds)
	}
	return out
}

func dedupFloats(vals []float64) []float64 {
	sort.Float64s(vals)
	out := vals[:0]
	for i, v := range vals {
		if i == 0 || v != vals[i-1] {
			out = append(out, v)
		}
	}
	return out
}
