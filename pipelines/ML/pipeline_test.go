package ml

import (
	"math"
	"path/filepath"
	"testing"
)

func TestPipelineImputesNaNAtInference(t *testing.T) {
	X, y, names := riskDataset(200, 10)

	pipe := &Pipeline{
		FeatureNames: names,
		Scaler:       &StandardScaler{},
		Model:        NewLogisticRegression(),
	}
	if err := pipe.Fit(X, y); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	// A missing LVEF should fall back to the training median, not error.
	p, err := pipe.PredictProba([]float64{math.NaN(), 1, 60})
	if err != nil {
		t.Fatalf("predict with NaN failed: %v", err)
	}
	if p < 0 || p > 1 {
		t.Errorf("probability out of range: %v", p)
	}

	full, err := pipe.PredictProba([]float64{pipe.Imputer.Medians[0], 1, 60})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if math.Abs(p-full) > 1e-12 {
		t.Errorf("NaN input should predict as the median: %v vs %v", p, full)
	}
}

func TestPipelineFitOnNaNTrainingData(t *testing.T) {
	X, y, names := riskDataset(200, 11)
	// Knock out a third of the LVEF values.
	for i := 0; i < len(X); i += 3 {
		X[i][0] = math.NaN()
	}

	pipe := &Pipeline{FeatureNames: names, Model: NewGradientBoosting()}
	if err := pipe.Fit(X, y); err != nil {
		t.Fatalf("fit on sparse data failed: %v", err)
	}
	probs, err := pipe.PredictProbaBatch(X)
	if err != nil {
		t.Fatalf("batch predict failed: %v", err)
	}
	for i, p := range probs {
		if math.IsNaN(p) {
			t.Fatalf("NaN probability at row %d", i)
		}
	}
}

func TestPipelineRejectsWidthMismatch(t *testing.T) {
	X, y, names := riskDataset(50, 12)
	pipe := &Pipeline{FeatureNames: names[:2], Model: NewLogisticRegression()}
	if err := pipe.Fit(X, y); err == nil {
		t.Fatal("expected error when feature names do not match matrix width")
	}
}

func TestModelArtifactRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		model Classifier
	}{
		{"logreg", NewLogisticRegression()},
		{"random_forest", NewRandomForest(20, 5, 2, 42)},
		{"hist_gbdt", func() Classifier {
			gb := NewGradientBoosting()
			gb.NumTrees = 20
			return gb
		}()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			X, y, names := riskDataset(150, 13)
			pipe := &Pipeline{FeatureNames: names, Model: tc.model}
			if tc.name == "logreg" {
				pipe.Scaler = &StandardScaler{}
			}
			if err := pipe.Fit(X, y); err != nil {
				t.Fatalf("fit failed: %v", err)
			}

			path := filepath.Join(t.TempDir(), "model.json")
			if err := SaveModel(path, pipe); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			loaded, err := LoadModel(path)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if loaded.ModelKind != tc.name {
				t.Fatalf("model kind = %q, want %q", loaded.ModelKind, tc.name)
			}

			for i := 0; i < 10; i++ {
				want, err := pipe.PredictProba(X[i])
				if err != nil {
					t.Fatalf("predict failed: %v", err)
				}
				got, err := loaded.PredictProba(X[i])
				if err != nil {
					t.Fatalf("loaded predict failed: %v", err)
				}
				if math.Abs(want-got) > 1e-12 {
					t.Fatalf("row %d: reloaded model predicts %v, original %v", i, got, want)
				}
			}
		})
	}
}

func TestLoadModelRejectsCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := SaveFeatureList(path, []string{"not", "a", "model"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := LoadModel(path); err == nil {
		t.Fatal("expected error for a non-JSON artifact")
	}
}

func TestFeatureListRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_features.csv")
	features := []string{"age", "BMI", "LVEF", "LVEF_low_x_AC"}

	if err := SaveFeatureList(path, features); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := LoadFeatureList(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != len(features) {
		t.Fatalf("loaded %d features, want %d", len(loaded), len(features))
	}
	for i := range features {
		if loaded[i] != features[i] {
			t.Errorf("feature %d = %q, want %q", i, loaded[i], features[i])
		}
	}
}

func TestTrainBankProducesRankedModels(t *testing.T) {
	X, y, names := riskDataset(300, 14)
	split, err := TrainTestSplit(X, y, DefaultSplitConfig())
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	cfg := DefaultBankConfig()
	cfg.ForestTrees = 30
	cfg.BoostingTrees = 30
	models, err := TrainBank(split, names, cfg)
	if err != nil {
		t.Fatalf("bank training failed: %v", err)
	}
	if len(models) != 4 {
		t.Fatalf("expected 4 models in the bank, got %d", len(models))
	}

	seen := map[string]bool{}
	for i, m := range models {
		seen[m.Name] = true
		if m.Eval == nil || m.Pipeline == nil {
			t.Fatalf("model %s missing evaluation or pipeline", m.Name)
		}
		if i > 0 && models[i-1].Eval.ROCAUC < m.Eval.ROCAUC {
			t.Errorf("bank not sorted by ROC-AUC at position %d", i)
		}
	}
	for _, name := range []string{"logreg", "random_forest", "hist_gbdt", "gbdt_weighted"} {
		if !seen[name] {
			t.Errorf("bank missing model %s", name)
		}
	}
}
