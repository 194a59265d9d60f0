package ml

import (
	"fmt"
	"sort"
)

// TrainedModel pairs a fitted pipeline with its held-out evaluation.
type TrainedModel struct {
	Name     string           `json:"name"`
	Pipeline *Pipeline        `json:"-"`
	Eval     *ModelEvaluation `json:"eval"`
}

// BankConfig controls which models the bank trains.
type BankConfig struct {
	Seed           int64 `json:"seed"`
	ForestTrees    int   `json:"forest_trees"`
	BoostingTrees  int   `json:"boosting_trees"`
	IncludeWeighted bool `json:"include_weighted"` // the imbalance-aware boosted model
}

// DefaultBankConfig trains the full bank with the fixed pipeline seed.
func DefaultBankConfig() BankConfig {
	return BankConfig{Seed: 42, ForestTrees: 200, BoostingTrees: 150, IncludeWeighted: true}
}

// TrainBank fits every model in the bank on the training partition and
// evaluates each on the held-out set. Models are returned sorted by
// ROC-AUC, best first.
func TrainBank(split *Split, featureNames []string, cfg BankConfig) ([]*TrainedModel, error) {
	if split == nil || len(split.TrainX) == 0 {
		return nil, fmt.Errorf("empty training split")
	}

	histGBDT := NewGradientBoosting()
	histGBDT.NumTrees = cfg.BoostingTrees
	// Lower ejection fraction must never lower predicted risk.
	histGBDT.Monotone = map[string]int{"LVEF": int(MonotoneDecreasing)}

	specs := []struct {
		name string
		pipe *Pipeline
	}{
		{
			name: "logreg",
			pipe: &Pipeline{
				FeatureNames: featureNames,
				Scaler:       &StandardScaler{},
				Model:        NewLogisticRegression(),
			},
		},
		{
			name: "random_forest",
			pipe: &Pipeline{
				FeatureNames: featureNames,
				Model:        NewRandomForest(cfg.ForestTrees, 0, 0, cfg.Seed),
			},
		},
		{
			name: "hist_gbdt",
			pipe: &Pipeline{
				FeatureNames: featureNames,
				Model:        histGBDT,
			},
		},
	}

	if cfg.IncludeWeighted {
		weighted := NewGradientBoosting()
		weighted.NumTrees = cfg.BoostingTrees
		weighted.PosWeight = positiveClassWeight(split.TrainY)
		specs = append(specs, struct {
			name string
			pipe *Pipeline
		}{"gbdt_weighted", &Pipeline{FeatureNames: featureNames, Model: weighted}})
	}

	models := make([]*TrainedModel, 0, len(specs))
	for _, spec := range specs {
		if err := spec.pipe.Fit(split.TrainX, split.TrainY); err != nil {
			return nil, fmt.Errorf("training %s: %w", spec.name, err)
		}
		eval, err := EvaluateModel(spec.name, spec.pipe, split.TestX, split.TestY)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", spec.name, err)
		}
		models = append(models, &TrainedModel{Name: spec.name, Pipeline: spec.pipe, Eval: eval})
	}

	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Eval.ROCAUC > models[j].Eval.ROCAUC
	})
	return models, nil
}
