package ml

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Curve is an ROC or precision-recall curve: parallel point slices plus
// the score thresholds that generated them.
type Curve struct {
	X          []float64 `json:"x"` // FPR or recall
	Y          []float64 `json:"y"` // TPR or precision
	Thresholds []float64 `json:"thresholds"`
}

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report holds classification metrics at a single decision threshold.
type Report struct {
	Threshold float64                 `json:"threshold"`
	Accuracy  float64                 `json:"accuracy"`
	Classes   map[string]ClassMetrics `json:"classes"` // "0" and "1"
}

// ModelEvaluation is the full held-out evaluation of one fitted model.
type ModelEvaluation struct {
	Name            string  `json:"name"`
	ROCAUC          float64 `json:"roc_auc"`
	PRAUC           float64 `json:"pr_auc"`
	ReportAtDefault *Report `json:"report_at_default"` // fixed 0.5 threshold
	BestF1Threshold float64 `json:"best_f1_threshold"`
	BestF1          float64 `json:"best_f1"`
	ReportAtBestF1  *Report `json:"report_at_best_f1"`
	ROC             *Curve  `json:"roc"`
	PR              *Curve  `json:"pr"`
	TestSamples     int     `json:"test_samples"`
}

// EvaluateModel scores a fitted pipeline on held-out data and computes
// ranking metrics, curves and threshold reports.
func EvaluateModel(name string, pipe *Pipeline, X [][]float64, y []float64) (*ModelEvaluation, error) {
	if len(X) == 0 || len(y) != len(X) {
		return nil, fmt.Errorf("invalid test data")
	}
	probs, err := pipe.PredictProbaBatch(X)
	if err != nil {
		return nil, err
	}

	roc := ROCCurve(y, probs)
	pr := PRCurve(y, probs)
	bestThr, bestF1 := BestF1Threshold(pr)

	return &ModelEvaluation{
		Name:            name,
		ROCAUC:          trapezoidAUC(roc.X, roc.Y),
		PRAUC:           AveragePrecision(y, probs),
		ReportAtDefault: ClassificationReport(y, probs, 0.5),
		BestF1Threshold: bestThr,
		BestF1:          bestF1,
		ReportAtBestF1:  ClassificationReport(y, probs, bestThr),
		ROC:             roc,
		PR:              pr,
		TestSamples:     len(y),
	}, nil
}

// scoreOrder returns sample indices sorted by descending score.
func scoreOrder(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// ROCCurve sweeps the decision threshold from high to low, emitting one
// point per distinct score.
func ROCCurve(yTrue, scores []float64) *Curve {
	order := scoreOrder(scores)
	totalPos, totalNeg := classCounts(yTrue)

	curve := &Curve{X: []float64{0}, Y: []float64{0}, Thresholds: []float64{math.Inf(1)}}
	tp, fp := 0.0, 0.0
	for k := 0; k < len(order); {
		thr := scores[order[k]]
		// Consume all samples tied at this score before emitting a point.
		for k < len(order) && scores[order[k]] == thr {
			if yTrue[order[k]] == 1 {
				tp++
			} else {
				fp++
			}
			k++
		}
		curve.X = append(curve.X, safeDiv(fp, totalNeg))
		curve.Y = append(curve.Y, safeDiv(tp, totalPos))
		curve.Thresholds = append(curve.Thresholds, thr)
	}
	return curve
}

// PRCurve emits precision/recall pairs per distinct score, high to low.
func PRCurve(yTrue, scores []float64) *Curve {
	order := scoreOrder(scores)
	totalPos, _ := classCounts(yTrue)

	curve := &Curve{}
	tp, predicted := 0.0, 0.0
	for k := 0; k < len(order); {
		thr := scores[order[k]]
		for k < len(order) && scores[order[k]] == thr {
			if yTrue[order[k]] == 1 {
				tp++
			}
			predicted++
			k++
		}
		curve.X = append(curve.X, safeDiv(tp, totalPos))    // recall
		curve.Y = append(curve.Y, safeDiv(tp, predicted))   // precision
		curve.Thresholds = append(curve.Thresholds, thr)
	}
	return curve
}

// AveragePrecision is the PR-AUC as a weighted precision sum, matching the
// step-function definition rather than trapezoidal interpolation.
func AveragePrecision(yTrue, scores []float64) float64 {
	pr := PRCurve(yTrue, scores)
	ap := 0.0
	prevRecall := 0.0
	for i := range pr.X {
		ap += (pr.X[i] - prevRecall) * pr.Y[i]
		prevRecall = pr.X[i]
	}
	return ap
}

// BestF1Threshold walks the PR curve and returns the threshold with the
// highest F1, the operating point the evaluator reports alongside 0.5.
func BestF1Threshold(pr *Curve) (threshold, f1 float64) {
	threshold = 0.5
	for i := range pr.X {
		p, r := pr.Y[i], pr.X[i]
		if p+r == 0 {
			continue
		}
		score := 2 * p * r / (p + r)
		if score > f1 {
			f1 = score
			threshold = pr.Thresholds[i]
		}
	}
	return threshold, f1
}

// ClassificationReport computes per-class precision/recall/F1/support and
// accuracy at a decision threshold.
func ClassificationReport(yTrue, probs []float64, threshold float64) *Report {
	var tp, fp, tn, fn int
	for i, p := range probs {
		pred := 0.0
		if p >= threshold {
			pred = 1
		}
		switch {
		case pred == 1 && yTrue[i] == 1:
			tp++
		case pred == 1 && yTrue[i] == 0:
			fp++
		case pred == 0 && yTrue[i] == 0:
			tn++
		default:
			fn++
		}
	}

	report := &Report{
		Threshold: threshold,
		Accuracy:  safeDiv(float64(tp+tn), float64(len(yTrue))),
		Classes:   make(map[string]ClassMetrics, 2),
	}

	// Positive class.
	posPrec := safeDiv(float64(tp), float64(tp+fp))
	posRec := safeDiv(float64(tp), float64(tp+fn))
	report.Classes["1"] = ClassMetrics{
		Precision: posPrec,
		Recall:    posRec,
		F1:        f1Score(posPrec, posRec),
		Support:   tp + fn,
	}
	// Negative class.
	negPrec := safeDiv(float64(tn), float64(tn+fn))
	negRec := safeDiv(float64(tn), float64(tn+fp))
	report.Classes["0"] = ClassMetrics{
		Precision: negPrec,
		Recall:    negRec,
		F1:        f1Score(negPrec, negRec),
		Support:   tn + fp,
	}
	return report
}

// Format renders the report in the familiar columnar layout.
func (r *Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Threshold: %.3f\n", r.Threshold)
	fmt.Fprintf(&b, "%10s %10s %10s %10s %10s\n", "class", "precision", "recall", "f1-score", "support")
	for _, class := range []string{"0", "1"} {
		m := r.Classes[class]
		fmt.Fprintf(&b, "%10s %10.3f %10.3f %10.3f %10d\n", class, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "\n%10s %10.3f\n", "accuracy", r.Accuracy)
	return b.String()
}

// FormatSummary renders the full evaluation as the persisted text report.
func (e *ModelEvaluation) FormatSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: %s\n", e.Name)
	fmt.Fprintf(&b, "Test samples: %d\n", e.TestSamples)
	fmt.Fprintf(&b, "ROC-AUC: %.4f\nPR-AUC: %.4f\n\n", e.ROCAUC, e.PRAUC)
	b.WriteString("Classification report @ 0.5:\n")
	b.WriteString(e.ReportAtDefault.Format())
	fmt.Fprintf(&b, "\nBest-F1 operating point (F1=%.3f):\n", e.BestF1)
	b.WriteString(e.ReportAtBestF1.Format())
	return b.String()
}

func classCounts(y []float64) (pos, neg float64) {
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

func trapezoidAUC(x, y []float64) float64 {
	auc := 0.0
	for i := 1; i < len(x); i++ {
		auc += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return auc
}

func f1Score(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
