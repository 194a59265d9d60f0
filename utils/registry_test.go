package utils

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestRegistry(t *testing.T) *ModelRegistry {
	t.Helper()
	reg, err := NewModelRegistry(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("failed to open registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegistryRecordsRunAndModels(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	runID, err := reg.BeginRun(ctx, "cohort.csv", 531, 30, 42, map[string]any{"test_size": 0.2})
	if err != nil {
		t.Fatalf("begin run failed: %v", err)
	}

	models := []*ModelRecord{
		{RunID: runID, Name: "hist_gbdt", ArtifactPath: "artifacts/model_best.json", ROCAUC: 0.81, PRAUC: 0.44, BestF1: 0.47, Selected: true},
		{RunID: runID, Name: "logreg", ArtifactPath: "artifacts/model_logreg.json", ROCAUC: 0.78, PRAUC: 0.40, BestF1: 0.43},
	}
	for _, m := range models {
		if err := reg.RegisterModel(ctx, m); err != nil {
			t.Fatalf("register %s failed: %v", m.Name, err)
		}
	}
	if err := reg.FinishRun(ctx, runID); err != nil {
		t.Fatalf("finish run failed: %v", err)
	}

	listed, err := reg.ListModels(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d models, want 2", len(listed))
	}

	selected, err := reg.SelectedModel(ctx)
	if err != nil {
		t.Fatalf("selected query failed: %v", err)
	}
	if selected == nil || selected.Name != "hist_gbdt" {
		t.Fatalf("selected model = %+v, want hist_gbdt", selected)
	}
	if selected.ROCAUC != 0.81 {
		t.Errorf("selected ROC-AUC = %v, want 0.81", selected.ROCAUC)
	}
}

func TestRegistrySelectedModelEmpty(t *testing.T) {
	reg := openTestRegistry(t)

	selected, err := reg.SelectedModel(context.Background())
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if selected != nil {
		t.Fatalf("expected nil on an empty registry, got %+v", selected)
	}
}
