package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cardioml/ctrcd-risk/utils"
)

func writeCohortCSV(t *testing.T, path string, n int) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	var b strings.Builder
	b.WriteString("age,weight,height,LVEF,AC,HTA,CTRCD\n")
	for i := 0; i < n; i++ {
		age := 40 + rng.Float64()*35
		weight := 55 + rng.Float64()*40
		height := 150 + rng.Float64()*35
		lvef := 35 + rng.Float64()*40
		outcome := 0
		if lvef < 50 && rng.Float64() < 0.7 {
			outcome = 1
		} else if rng.Float64() < 0.1 {
			outcome = 1
		}
		fmt.Fprintf(&b, "%.1f,%.1f,%.1f,%.1f,%d,%d,%d\n",
			age, weight, height, lvef, rng.Intn(2), rng.Intn(2), outcome)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
}

func TestRunProducesArtifactsAndRegistryRecords(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cohort.csv")
	writeCohortCSV(t, input, 120)
	outdir := filepath.Join(dir, "artifacts")
	registryPath := filepath.Join(outdir, "registry.db")

	if err := run(input, outdir, registryPath, 42, 0.2, utils.GetLogger()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{
		"model_best.json", "model_features.csv", "summary.json",
		"roc_curve.txt", "pr_curve.txt",
		"metrics_logreg.txt", "metrics_random_forest.txt",
		"metrics_hist_gbdt.txt", "metrics_gbdt_weighted.txt",
	} {
		if _, err := os.Stat(filepath.Join(outdir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	registry, err := utils.NewModelRegistry(registryPath)
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	defer registry.Close()

	records, err := registry.ListModels(context.Background(), 10)
	if err != nil {
		t.Fatalf("listing models: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 registered models, got %d", len(records))
	}
	selected := 0
	for _, r := range records {
		if r.Selected {
			selected++
		}
	}
	if selected != 1 {
		t.Errorf("expected exactly one selected model, got %d", selected)
	}
}

func TestFitOddsRatiosOnTrainingRows(t *testing.T) {
	// A well-conditioned two-feature design; the table must come out of
	// exactly the rows passed in, nothing else.
	rng := rand.New(rand.NewSource(3))
	n := 80
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1 := rng.NormFloat64()
		x2 := rng.NormFloat64()
		X[i] = []float64{x1, x2}
		if 1/(1+math.Exp(-(1.5*x1-0.5*x2))) > rng.Float64() {
			y[i] = 1
		}
	}

	outdir := t.TempDir()
	if err := fitOddsRatios(X, y, []string{"f1", "f2"}, outdir, utils.GetLogger()); err != nil {
		t.Fatalf("fitOddsRatios failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outdir, "or_table.csv"))
	if err != nil {
		t.Fatalf("or_table.csv not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "feature,OR,CI_low,CI_high,p_value" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	// Intercept plus the two features.
	if len(lines) != 4 {
		t.Errorf("expected 4 lines, got %d", len(lines))
	}
}
