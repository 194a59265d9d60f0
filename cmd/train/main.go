// Command train runs the full modeling pipeline on a clinical CSV: clean,
// derive features, fit the interpretable logit plus the model bank, score
// everything on the held-out split, and export the serving artifacts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	clinical "github.com/cardioml/ctrcd-risk/pipelines/Clinical"
	ml "github.com/cardioml/ctrcd-risk/pipelines/ML"
	"github.com/cardioml/ctrcd-risk/utils"
)

func main() {
	input := flag.String("input", "", "clinical CSV with outcomes (required)")
	outdir := flag.String("outdir", "./artifacts", "artifact output directory")
	seed := flag.Int64("seed", 42, "split and ensemble seed")
	testSize := flag.Float64("test-size", 0.2, "held-out fraction")
	registryPath := flag.String("registry", "", "model registry database (default <outdir>/registry.db)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: train -input <cohort.csv> [-outdir <dir>] [-seed N] [-test-size F]")
		os.Exit(1)
	}
	if *registryPath == "" {
		*registryPath = filepath.Join(*outdir, "registry.db")
	}

	logger := utils.GetLogger()
	logger.SetService("ctrcd-train")

	if err := run(*input, *outdir, *registryPath, *seed, *testSize, logger); err != nil {
		logger.Fatal("training failed", err, utils.Component("train"))
	}
}

func run(input, outdir, registryPath string, seed int64, testSize float64, logger *utils.Logger) error {
	ctx := context.Background()

	if err := os.MkdirAll(outdir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	frame, err := clinical.ReadCSV(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	X, y, features, dropped, err := clinical.BuildFeatureMatrix(frame)
	if err != nil {
		return fmt.Errorf("building feature matrix: %w", err)
	}
	logger.Info("built feature matrix",
		utils.Int("samples", len(X)),
		utils.Int("features", len(features)),
		utils.Int("rows_without_outcome", dropped),
		utils.Component("train"))

	registry, err := utils.NewModelRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("opening model registry: %w", err)
	}
	defer registry.Close()

	splitCfg := ml.SplitConfig{TestSize: testSize, RandomSeed: seed, Stratify: true}
	runID, err := registry.BeginRun(ctx, input, len(X), len(features), seed, splitCfg)
	if err != nil {
		return err
	}

	split, err := ml.TrainTestSplit(X, y, splitCfg)
	if err != nil {
		return fmt.Errorf("splitting data: %w", err)
	}
	logger.Info("split cohort",
		utils.Int("train", len(split.TrainX)),
		utils.Int("test", len(split.TestX)),
		utils.Component("train"))

	// Interpretable MLE fit: odds ratios on the imputed training split;
	// the held-out rows never inform the table.
	if err := fitOddsRatios(split.TrainX, split.TrainY, features, outdir, logger); err != nil {
		return err
	}

	bankCfg := ml.DefaultBankConfig()
	bankCfg.Seed = seed
	models, err := ml.TrainBank(split, features, bankCfg)
	if err != nil {
		return err
	}

	best := models[0]
	for _, m := range models {
		logger.Info("trained model",
			utils.String("name", m.Name),
			utils.Float("roc_auc", m.Eval.ROCAUC),
			utils.Float("pr_auc", m.Eval.PRAUC),
			utils.Float("best_f1", m.Eval.BestF1),
			utils.Component("train"))

		metricsPath := filepath.Join(outdir, fmt.Sprintf("metrics_%s.txt", m.Name))
		if err := os.WriteFile(metricsPath, []byte(m.Eval.FormatSummary()), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", metricsPath, err)
		}

		artifactPath := filepath.Join(outdir, fmt.Sprintf("model_%s.json", m.Name))
		if err := ml.SaveModel(artifactPath, m.Pipeline); err != nil {
			return err
		}

		if err := registry.RegisterModel(ctx, &utils.ModelRecord{
			RunID:        runID,
			Name:         m.Name,
			ArtifactPath: artifactPath,
			ROCAUC:       m.Eval.ROCAUC,
			PRAUC:        m.Eval.PRAUC,
			BestF1:       m.Eval.BestF1,
			Selected:     m == best,
		}); err != nil {
			return err
		}
	}

	// Serving artifacts: the best model under the fixed name plus the
	// ordered feature list the shim validates against.
	if err := ml.SaveModel(filepath.Join(outdir, "model_best.json"), best.Pipeline); err != nil {
		return err
	}
	if err := ml.SaveFeatureList(filepath.Join(outdir, "model_features.csv"), features); err != nil {
		return err
	}

	// Curve plots for the selected model.
	if err := os.WriteFile(filepath.Join(outdir, "roc_curve.txt"), []byte(ml.RenderROC(best.Eval)), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outdir, "pr_curve.txt"), []byte(ml.RenderPR(best.Eval)), 0644); err != nil {
		return err
	}

	if err := writeSummary(filepath.Join(outdir, "summary.json"), input, models, dropped, seed); err != nil {
		return err
	}

	if err := registry.FinishRun(ctx, runID); err != nil {
		return err
	}

	logger.Info("training complete",
		utils.String("best_model", best.Name),
		utils.Float("best_roc_auc", best.Eval.ROCAUC),
		utils.String("outdir", outdir),
		utils.Component("train"))
	return nil
}

// fitOddsRatios fits the maximum-likelihood logit on the imputed data,
// dropping near-constant columns, and writes or_table.csv.
func fitOddsRatios(X [][]float64, y []float64, features []string, outdir string, logger *utils.Logger) error {
	imputer := &ml.MedianImputer{}
	if err := imputer.Fit(X); err != nil {
		return fmt.Errorf("imputing for logit: %w", err)
	}
	Xi, err := imputer.Transform(X)
	if err != nil {
		return err
	}

	Xr, names, constant := ml.DropNearConstant(Xi, features)
	if len(constant) > 0 {
		logger.Warn("dropped near-constant columns",
			utils.Int("count", len(constant)),
			utils.Component("train"))
	}

	model, used, err := ml.FitLogitWithFallback(Xr, y, names)
	if err != nil {
		// The logit is diagnostic; the bank can still train without it.
		logger.Warn("logit fit failed, skipping odds-ratio table",
			utils.String("reason", err.Error()),
			utils.Component("train"))
		return nil
	}
	if len(used) < len(names) {
		logger.Warn("logit fell back to a reduced feature set",
			utils.Int("used", len(used)),
			utils.Int("offered", len(names)),
			utils.Component("train"))
	}

	path := filepath.Join(outdir, "or_table.csv")
	if err := ml.SaveOddsRatioTable(path, model.OddsRatioTable()); err != nil {
		return err
	}
	logger.Info("wrote odds-ratio table",
		utils.String("path", path),
		utils.Bool("converged", model.Converged),
		utils.Int("iterations", model.Iterations),
		utils.Component("train"))
	return nil
}

// runSummary is the machine-readable digest of one training run.
type runSummary struct {
	Input              string                `json:"input"`
	Seed               int64                 `json:"seed"`
	RowsWithoutOutcome int                   `json:"rows_without_outcome"`
	BestModel          string                `json:"best_model"`
	Models             []*ml.ModelEvaluation `json:"models"`
}

func writeSummary(path, input string, models []*ml.TrainedModel, dropped int, seed int64) error {
	summary := runSummary{
		Input:              input,
		Seed:               seed,
		RowsWithoutOutcome: dropped,
		BestModel:          models[0].Name,
	}
	for _, m := range models {
		summary.Models = append(summary.Models, m.Eval)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
