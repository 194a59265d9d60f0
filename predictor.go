package main

import (
	"fmt"
	"math"
	"sync"

	clinical "github.com/cardioml/ctrcd-risk/pipelines/Clinical"
	ml "github.com/cardioml/ctrcd-risk/pipelines/ML"
)

// Predictor holds the loaded serving pipeline behind a lock so artifacts
// can be swapped without restarting the server.
type Predictor struct {
	mu               sync.RWMutex
	pipe             *ml.Pipeline
	features         []string
	defaultThreshold float64
}

// PredictionResult is the /predict response payload.
type PredictionResult struct {
	Prob      float64        `json:"prob"`
	Pred      int            `json:"pred"`
	Threshold float64        `json:"threshold"`
	Echo      map[string]any `json:"echo"`
	// FeatureCount is the model's input width; clients use it as a
	// schema check.
	FeatureCount int `json:"feature_count"`
	// NonMissing is how many of those inputs were present after
	// derivation, a quick sanity signal for sparse records.
	NonMissing int `json:"non_missing"`
}

// NewPredictor creates an empty predictor with the configured default
// decision threshold.
func NewPredictor(defaultThreshold float64) *Predictor {
	return &Predictor{defaultThreshold: defaultThreshold}
}

// LoadArtifacts loads the model pipeline and the ordered feature list,
// checking they agree with each other.
func (p *Predictor) LoadArtifacts(modelPath, featuresPath string) error {
	pipe, err := ml.LoadModel(modelPath)
	if err != nil {
		return err
	}
	features, err := ml.LoadFeatureList(featuresPath)
	if err != nil {
		return err
	}
	if len(features) != len(pipe.FeatureNames) {
		return fmt.Errorf("feature list has %d entries, model expects %d", len(features), len(pipe.FeatureNames))
	}
	for i, name := range features {
		if pipe.FeatureNames[i] != name {
			return fmt.Errorf("feature order mismatch at %d: list %q, model %q", i, name, pipe.FeatureNames[i])
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pipe = pipe
	p.features = features
	return nil
}

// Loaded reports whether a model is available for serving.
func (p *Predictor) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pipe != nil
}

// ModelKind returns the loaded estimator kind, or "" when unloaded.
func (p *Predictor) ModelKind() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pipe == nil {
		return ""
	}
	return p.pipe.ModelKind
}

// FeatureCount returns the model's input width.
func (p *Predictor) FeatureCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.features)
}

// DefaultThreshold returns the configured decision threshold.
func (p *Predictor) DefaultThreshold() float64 {
	return p.defaultThreshold
}

// Predict derives features from raw patient fields, scores the pipeline
// and applies the decision threshold. Missing inputs are imputed with the
// training medians inside the pipeline.
func (p *Predictor) Predict(record map[string]float64, threshold float64) (*PredictionResult, error) {
	p.mu.RLock()
	pipe, features := p.pipe, p.features
	p.mu.RUnlock()
	if pipe == nil {
		return nil, fmt.Errorf("no model loaded")
	}

	derived := clinical.DeriveRecord(record)
	vector := clinical.RecordVector(derived, features)

	prob, err := pipe.PredictProba(vector)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	pred := 0
	if prob >= threshold {
		pred = 1
	}

	present := 0
	for _, v := range vector {
		if !math.IsNaN(v) {
			present++
		}
	}

	return &PredictionResult{
		Prob:      prob,
		Pred:      pred,
		Threshold: threshold,
		Echo: map[string]any{
			"LVEF":              jsonNumber(derived["LVEF"]),
			"BMI":               jsonNumber(derived["BMI"]),
			"comorbidity_score": jsonNumber(derived["comorbidity_score"]),
		},
		FeatureCount: len(features),
		NonMissing:   present,
	}, nil
}

// jsonNumber maps NaN to null, which encoding/json cannot do for float64.
func jsonNumber(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
