package ml

import (
	"encoding/json"
	"fmt"
	"math"
)

// Classifier is a fitted binary probability model.
type Classifier interface {
	// PredictProba returns the positive-class probability for a single
	// imputed (and, where the pipeline scales, standardized) sample.
	PredictProba(x []float64) (float64, error)
	// Kind identifies the estimator type for artifact round-trips.
	Kind() string
}

// Pipeline bundles the preprocessing fitted on training data with a
// classifier, mirroring how every model in the bank is trained: median
// imputation, optional standardization, then the estimator. The feature
// name order is stored so inference vectors can be checked against it.
type Pipeline struct {
	FeatureNames []string       `json:"feature_names"`
	Imputer      *MedianImputer `json:"imputer"`
	Scaler       *StandardScaler `json:"scaler,omitempty"`
	Model        Classifier     `json:"-"`
	ModelKind    string         `json:"model_kind"`
}

// Fit fits the preprocessing and the classifier in sequence.
func (p *Pipeline) Fit(X [][]float64, y []float64) error {
	if len(p.FeatureNames) == 0 || len(X) == 0 || len(X[0]) != len(p.FeatureNames) {
		return fmt.Errorf("pipeline feature names must match training matrix width")
	}

	p.Imputer = &MedianImputer{}
	if err := p.Imputer.Fit(X); err != nil {
		return fmt.Errorf("imputer fit failed: %w", err)
	}
	Xt, err := p.Imputer.Transform(X)
	if err != nil {
		return err
	}

	if p.Scaler != nil {
		if err := p.Scaler.Fit(Xt); err != nil {
			return fmt.Errorf("scaler fit failed: %w", err)
		}
		if Xt, err = p.Scaler.Transform(Xt); err != nil {
			return err
		}
	}

	switch model := p.Model.(type) {
	case *LogisticRegression:
		err = model.Fit(Xt, y)
	case *RandomForest:
		err = model.Fit(Xt, y)
	case *GradientBoosting:
		err = model.Fit(Xt, y, p.FeatureNames)
	default:
		return fmt.Errorf("unsupported model kind: %T", p.Model)
	}
	if err != nil {
		return fmt.Errorf("%s fit failed: %w", p.Model.Kind(), err)
	}
	p.ModelKind = p.Model.Kind()
	return nil
}

// PredictProba runs one raw (possibly NaN-bearing) feature vector through
// the fitted preprocessing and classifier.
func (p *Pipeline) PredictProba(x []float64) (float64, error) {
	if p.Imputer == nil || p.Model == nil {
		return 0, fmt.Errorf("pipeline not fitted")
	}
	xt, err := p.Imputer.TransformRow(x)
	if err != nil {
		return 0, err
	}
	if p.Scaler != nil {
		if xt, err = p.Scaler.TransformRow(xt); err != nil {
			return 0, err
		}
	}
	return p.Model.PredictProba(xt)
}

// PredictProbaBatch scores a matrix of raw feature vectors.
func (p *Pipeline) PredictProbaBatch(X [][]float64) ([]float64, error) {
	probs := make([]float64, len(X))
	for i, x := range X {
		prob, err := p.PredictProba(x)
		if err != nil {
			return nil, fmt.Errorf("prediction failed at row %d: %w", i, err)
		}
		probs[i] = prob
	}
	return probs, nil
}

// pipelineJSON is the serialized form: the model is carried as raw JSON
// keyed by kind so artifacts can be reloaded without knowing the type up
// front.
type pipelineJSON struct {
	FeatureNames []string        `json:"feature_names"`
	Imputer      *MedianImputer  `json:"imputer"`
	Scaler       *StandardScaler `json:"scaler,omitempty"`
	ModelKind    string          `json:"model_kind"`
	Model        json.RawMessage `json:"model"`
}

// MarshalJSON serializes the pipeline including the concrete model.
func (p *Pipeline) MarshalJSON() ([]byte, error) {
	modelData, err := json.Marshal(p.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model: %w", err)
	}
	return json.Marshal(pipelineJSON{
		FeatureNames: p.FeatureNames,
		Imputer:      p.Imputer,
		Scaler:       p.Scaler,
		ModelKind:    p.ModelKind,
		Model:        modelData,
	})
}

// UnmarshalJSON reconstructs the concrete model from its stored kind.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	var raw pipelineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.FeatureNames = raw.FeatureNames
	p.Imputer = raw.Imputer
	p.Scaler = raw.Scaler
	p.ModelKind = raw.ModelKind

	switch raw.ModelKind {
	case "logreg":
		model := &LogisticRegression{}
		if err := json.Unmarshal(raw.Model, model); err != nil {
			return err
		}
		p.Model = model
	case "random_forest":
		model := &RandomForest{}
		if err := json.Unmarshal(raw.Model, model); err != nil {
			return err
		}
		p.Model = model
	case "hist_gbdt", "gbdt_weighted":
		model := &GradientBoosting{}
		if err := json.Unmarshal(raw.Model, model); err != nil {
			return err
		}
		p.Model = model
	default:
		return fmt.Errorf("unknown model kind in artifact: %q", raw.ModelKind)
	}
	return nil
}

// Validate checks that a loaded pipeline is usable for predictions.
func (p *Pipeline) Validate() error {
	if len(p.FeatureNames) == 0 {
		return fmt.Errorf("pipeline has no feature names")
	}
	if p.Imputer == nil || len(p.Imputer.Medians) != len(p.FeatureNames) {
		return fmt.Errorf("imputer statistics do not match feature count")
	}
	if p.Model == nil {
		return fmt.Errorf("pipeline has no model")
	}
	for _, m := range p.Imputer.Medians {
		if math.IsNaN(m) {
			return fmt.Errorf("imputer contains NaN medians")
		}
	}
	return nil
}
