package ml

import (
	"math"
	"math/rand"
	"testing"
)

// riskDataset simulates a cohort where low ejection fraction and
// anthracycline exposure drive the outcome. Columns: LVEF, AC, age.
func riskDataset(n int, seed int64) ([][]float64, []float64, []string) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		lvef := 35 + rng.Float64()*40 // 35..75
		ac := float64(rng.Intn(2))
		age := 40 + rng.Float64()*40

		logit := 4 - 0.12*lvef + 1.2*ac
		p := 1 / (1 + math.Exp(-logit))
		if rng.Float64() < p {
			y[i] = 1
		}
		X[i] = []float64{lvef, ac, age}
	}
	return X, y, []string{"LVEF", "AC", "age"}
}

func TestLogisticRegressionLearnsSignal(t *testing.T) {
	X, y, _ := riskDataset(400, 1)

	scaler := &StandardScaler{}
	if err := scaler.Fit(X); err != nil {
		t.Fatalf("scaler fit failed: %v", err)
	}
	Xs, err := scaler.Transform(X)
	if err != nil {
		t.Fatalf("scaler transform failed: %v", err)
	}

	lr := NewLogisticRegression()
	if err := lr.Fit(Xs, y); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	// Higher LVEF lowers risk, AC exposure raises it.
	if lr.Weights[0] >= 0 {
		t.Errorf("LVEF weight = %v, want negative", lr.Weights[0])
	}
	if lr.Weights[1] <= 0 {
		t.Errorf("AC weight = %v, want positive", lr.Weights[1])
	}

	probs := make([]float64, len(Xs))
	for i, x := range Xs {
		p, err := lr.PredictProba(x)
		if err != nil {
			t.Fatalf("predict failed: %v", err)
		}
		if p < 0 || p > 1 {
			t.Fatalf("probability out of range: %v", p)
		}
		probs[i] = p
	}
	roc := ROCCurve(y, probs)
	if auc := trapezoidAUC(roc.X, roc.Y); auc < 0.65 {
		t.Errorf("training AUC = %v, model learned nothing", auc)
	}
}

func TestRandomForestBeatsChance(t *testing.T) {
	X, y, _ := riskDataset(400, 2)

	rf := NewRandomForest(50, 6, 2, 42)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	probs := make([]float64, len(X))
	for i, x := range X {
		p, err := rf.PredictProba(x)
		if err != nil {
			t.Fatalf("predict failed: %v", err)
		}
		probs[i] = p
	}
	roc := ROCCurve(y, probs)
	if auc := trapezoidAUC(roc.X, roc.Y); auc < 0.7 {
		t.Errorf("training AUC = %v, want comfortably above chance", auc)
	}
}

func TestRandomForestDeterministicWithSeed(t *testing.T) {
	X, y, _ := riskDataset(150, 3)

	a := NewRandomForest(20, 5, 2, 42)
	b := NewRandomForest(20, 5, 2, 42)
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		pa, _ := a.PredictProba(X[i])
		pb, _ := b.PredictProba(X[i])
		if pa != pb {
			t.Fatalf("same seed gave different predictions at row %d: %v vs %v", i, pa, pb)
		}
	}
}

func TestGradientBoostingMonotoneLVEF(t *testing.T) {
	X, y, names := riskDataset(500, 4)

	gb := NewGradientBoosting()
	gb.NumTrees = 60
	gb.Monotone = map[string]int{"LVEF": int(MonotoneDecreasing)}
	if err := gb.Fit(X, y, names); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	// With the constraint, raising LVEF on an otherwise fixed patient must
	// never raise the predicted risk.
	for _, ac := range []float64{0, 1} {
		prev := math.Inf(1)
		for lvef := 35.0; lvef <= 75.0; lvef += 0.5 {
			p, err := gb.PredictProba([]float64{lvef, ac, 55})
			if err != nil {
				t.Fatalf("predict failed: %v", err)
			}
			if p > prev+1e-12 {
				t.Fatalf("risk rose from %v to %v as LVEF reached %v (AC=%v)", prev, p, lvef, ac)
			}
			prev = p
		}
	}
}

func TestGradientBoostingWeightedRaisesPositiveProbs(t *testing.T) {
	X, y, names := riskDataset(500, 5)

	plain := NewGradientBoosting()
	plain.NumTrees = 40
	if err := plain.Fit(X, y, names); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	weighted := NewGradientBoosting()
	weighted.NumTrees = 40
	weighted.PosWeight = 3
	if err := weighted.Fit(X, y, names); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if weighted.Kind() != "gbdt_weighted" || plain.Kind() != "hist_gbdt" {
		t.Fatalf("unexpected kinds: %s / %s", plain.Kind(), weighted.Kind())
	}

	// Upweighting positives shifts the average predicted probability up.
	mean := func(gb *GradientBoosting) float64 {
		s := 0.0
		for _, x := range X {
			p, _ := gb.PredictProba(x)
			s += p
		}
		return s / float64(len(X))
	}
	if mean(weighted) <= mean(plain) {
		t.Error("positive weighting did not raise the mean predicted risk")
	}
}

func TestGradientBoostingRejectsUnknownMonotoneFeature(t *testing.T) {
	X, y, names := riskDataset(50, 6)
	gb := NewGradientBoosting()
	gb.Monotone = map[string]int{"no_such_feature": -1}
	if err := gb.Fit(X, y, names); err == nil {
		t.Fatal("expected error for monotone constraint on unknown feature")
	}
}

func TestPositiveClassWeight(t *testing.T) {
	y := []float64{0, 0, 0, 0, 1} // 4 negatives per positive
	if w := positiveClassWeight(y); math.Abs(w-4) > 1e-12 {
		t.Errorf("weight = %v, want 4", w)
	}
	if w := positiveClassWeight([]float64{0, 0}); w != 1 {
		t.Errorf("weight with no positives = %v, want 1", w)
	}
}
