package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LogitModel is a maximum-likelihood logistic regression fit, kept for
// interpretability: coefficients with standard errors rather than a tuned
// classifier. The first coefficient is the intercept.
type LogitModel struct {
	Names        []string  `json:"names"` // "const" followed by feature names
	Coefficients []float64 `json:"coefficients"`
	StdErrors    []float64 `json:"std_errors"`
	LogLik       float64   `json:"log_likelihood"`
	Iterations   int       `json:"iterations"`
	Converged    bool      `json:"converged"`
}

// OddsRatioRow is one line of the odds-ratio table: exponentiated
// coefficient with a 95% confidence interval and two-sided p-value.
type OddsRatioRow struct {
	Feature string  `json:"feature"`
	OR      float64 `json:"or"`
	CILow   float64 `json:"ci_low"`
	CIHigh  float64 `json:"ci_high"`
	PValue  float64 `json:"p_value"`
}

const (
	logitMaxIter = 200
	logitTol     = 1e-8
	// Fallback feature count when the full fit fails to converge.
	logitFallbackFeatures = 8
)

// FitLogit fits logistic regression by iteratively reweighted least
// squares. X must be fully imputed (no NaN). y holds 0/1 outcomes.
func FitLogit(X [][]float64, y []float64, featureNames []string) (*LogitModel, error) {
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("empty training data")
	}
	if len(y) != n {
		return nil, fmt.Errorf("X and y must have same number of samples")
	}
	if len(featureNames) != len(X[0]) {
		return nil, fmt.Errorf("feature names must match number of features")
	}

	// Design matrix with an intercept column.
	p := len(X[0]) + 1
	design := mat.NewDense(n, p, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("NaN at row %d, feature %s: impute before fitting", i, featureNames[j])
			}
			design.Set(i, j+1, v)
		}
	}

	beta := make([]float64, p)
	eta := make([]float64, n)
	mu := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)

	prevLogLik := math.Inf(-1)
	model := &LogitModel{Names: append([]string{"const"}, featureNames...)}

	for iter := 0; iter < logitMaxIter; iter++ {
		// eta = X beta, mu = sigmoid(eta)
		logLik := 0.0
		for i := 0; i < n; i++ {
			e := 0.0
			for j := 0; j < p; j++ {
				e += design.At(i, j) * beta[j]
			}
			eta[i] = e
			mu[i] = sigmoid(e)
			pi := clampProb(mu[i])
			logLik += y[i]*math.Log(pi) + (1-y[i])*math.Log(1-pi)

			wi := mu[i] * (1 - mu[i])
			if wi < 1e-10 {
				wi = 1e-10
			}
			w[i] = wi
			z[i] = eta[i] + (y[i]-mu[i])/wi
		}

		// Normal equations: (X' W X) beta = X' W z
		xtwx := mat.NewSymDense(p, nil)
		xtwz := mat.NewVecDense(p, nil)
		for j := 0; j < p; j++ {
			for k := j; k < p; k++ {
				s := 0.0
				for i := 0; i < n; i++ {
					s += design.At(i, j) * w[i] * design.At(i, k)
				}
				xtwx.SetSym(j, k, s)
			}
			s := 0.0
			for i := 0; i < n; i++ {
				s += design.At(i, j) * w[i] * z[i]
			}
			xtwz.SetVec(j, s)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(xtwx); !ok {
			return nil, fmt.Errorf("information matrix is singular at iteration %d", iter)
		}
		next := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(next, xtwz); err != nil {
			return nil, fmt.Errorf("IRLS solve failed at iteration %d: %w", iter, err)
		}
		for j := 0; j < p; j++ {
			beta[j] = next.AtVec(j)
		}

		model.Iterations = iter + 1
		model.LogLik = logLik
		if iter > 0 && math.Abs(logLik-prevLogLik) < logitTol*(math.Abs(prevLogLik)+1) {
			model.Converged = true
			break
		}
		prevLogLik = logLik

		// Diverging coefficients mean separation; report non-convergence
		// instead of grinding out useless iterations.
		for j := 0; j < p; j++ {
			if math.Abs(beta[j]) > 1e6 {
				return nil, fmt.Errorf("coefficients diverged (possible separation)")
			}
		}
	}

	if !model.Converged {
		return nil, fmt.Errorf("logit did not converge in %d iterations", logitMaxIter)
	}

	// Standard errors from the inverse observed information at the optimum.
	xtwx := mat.NewSymDense(p, nil)
	for i := 0; i < n; i++ {
		e := 0.0
		for j := 0; j < p; j++ {
			e += design.At(i, j) * beta[j]
		}
		pi := sigmoid(e)
		wi := pi * (1 - pi)
		for j := 0; j < p; j++ {
			for k := j; k < p; k++ {
				xtwx.SetSym(j, k, xtwx.At(j, k)+design.At(i, j)*wi*design.At(i, k))
			}
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(xtwx); !ok {
		return nil, fmt.Errorf("information matrix singular at optimum")
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("failed to invert information matrix: %w", err)
	}

	model.Coefficients = append([]float64{}, beta...)
	model.StdErrors = make([]float64, p)
	for j := 0; j < p; j++ {
		model.StdErrors[j] = math.Sqrt(cov.At(j, j))
	}
	return model, nil
}

// FitLogitWithFallback fits on all features; if the fit fails to converge
// it retries with only the first 8 features. Returns the model and the
// names actually used.
func FitLogitWithFallback(X [][]float64, y []float64, featureNames []string) (*LogitModel, []string, error) {
	model, err := FitLogit(X, y, featureNames)
	if err == nil {
		return model, featureNames, nil
	}

	k := logitFallbackFeatures
	if k > len(featureNames) {
		k = len(featureNames)
	}
	reducedX := make([][]float64, len(X))
	for i, row := range X {
		reducedX[i] = row[:k]
	}
	reducedNames := featureNames[:k]

	model, err2 := FitLogit(reducedX, y, reducedNames)
	if err2 != nil {
		return nil, nil, fmt.Errorf("logit failed on full (%v) and reduced feature set: %w", err, err2)
	}
	return model, reducedNames, nil
}

// OddsRatioTable exponentiates the coefficients into odds ratios with 95%
// confidence intervals and two-sided normal p-values.
func (m *LogitModel) OddsRatioTable() []OddsRatioRow {
	norm := distuv.UnitNormal
	zCrit := norm.Quantile(0.975)

	rows := make([]OddsRatioRow, len(m.Coefficients))
	for i, b := range m.Coefficients {
		se := m.StdErrors[i]
		zScore := 0.0
		if se > 0 {
			zScore = b / se
		}
		rows[i] = OddsRatioRow{
			Feature: m.Names[i],
			OR:      math.Exp(b),
			CILow:   math.Exp(b - zCrit*se),
			CIHigh:  math.Exp(b + zCrit*se),
			PValue:  2 * norm.CDF(-math.Abs(zScore)),
		}
	}
	return rows
}

// DropNearConstant removes columns with at most one distinct value, which
// carry no information and break the information matrix. Returns the
// reduced matrix, kept names and dropped names.
func DropNearConstant(X [][]float64, names []string) ([][]float64, []string, []string) {
	if len(X) == 0 {
		return X, names, nil
	}
	var keep []int
	var dropped []string
	for j := range X[0] {
		distinct := make(map[float64]struct{})
		for i := range X {
			if !math.IsNaN(X[i][j]) {
				distinct[X[i][j]] = struct{}{}
			}
			if len(distinct) > 1 {
				break
			}
		}
		if len(distinct) > 1 {
			keep = append(keep, j)
		} else {
			dropped = append(dropped, names[j])
		}
	}
	if len(dropped) == 0 {
		return X, names, nil
	}

	outX := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(keep))
		for k, j := range keep {
			r[k] = row[j]
		}
		outX[i] = r
	}
	outNames := make([]string, len(keep))
	for k, j := range keep {
		outNames[k] = names[j]
	}
	return outX, outNames, dropped
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clampProb(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
