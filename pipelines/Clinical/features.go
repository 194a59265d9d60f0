package clinical

import (
	"fmt"
	"math"
)

// BMI limits: values outside this interval are implausible and become
// missing rather than feeding the models.
const (
	bmiMin = 10.0
	bmiMax = 60.0
)

// BMI computes body mass index from weight (kg) and height (cm). Returns
// NaN when either input is missing, height is non-positive, or the result
// falls outside [10,60].
func BMI(weight, height float64) float64 {
	if math.IsNaN(weight) || math.IsNaN(height) || height <= 0 {
		return math.NaN()
	}
	hm := height / 100.0
	bmi := weight / (hm * hm)
	if bmi < bmiMin || bmi > bmiMax {
		return math.NaN()
	}
	return bmi
}

// ComorbidityScore sums the ten binary risk flags, treating missing as 0.
// The order of flags must match ComorbidityColumns.
func ComorbidityScore(flags []float64) float64 {
	score := 0.0
	for _, v := range flags {
		if !math.IsNaN(v) {
			score += v
		}
	}
	return score
}

// LVEFBands returns the (low, mid, high) indicator triple for an LVEF
// value: low <50, mid [50,60), high >=60. All zero when LVEF is missing;
// exactly one is set otherwise.
func LVEFBands(lvef float64) (low, mid, high float64) {
	if math.IsNaN(lvef) {
		return 0, 0, 0
	}
	switch {
	case lvef < 50:
		return 1, 0, 0
	case lvef < 60:
		return 0, 1, 0
	default:
		return 0, 0, 1
	}
}

// AgeBand labels an age into the reporting bands used by the cleaned
// patient export. Left-closed: 50 falls in "50-59".
func AgeBand(age float64) string {
	switch {
	case math.IsNaN(age):
		return ""
	case age < 50:
		return "<50"
	case age < 60:
		return "50-59"
	case age < 70:
		return "60-69"
	default:
		return ">=70"
	}
}

// TherapyGroup labels the anthracycline/anti-HER2 combination. Missing
// treatment flags count as 0.
func TherapyGroup(ac, antiHER2 float64) string {
	a := !math.IsNaN(ac) && ac > 0
	h := !math.IsNaN(antiHER2) && antiHER2 > 0
	switch {
	case a && h:
		return "AC_plus_antiHER2"
	case a:
		return "AC_only"
	case h:
		return "antiHER2_only"
	default:
		return "none"
	}
}

// orZero treats a missing flag as 0 for interaction terms.
func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// DeriveFeatures adds the derived feature columns to a cleaned frame:
// BMI, comorbidity_score, LVEF band indicators, LVEF-by-treatment
// interactions, and prev_therapy_any.
func DeriveFeatures(f *Frame) error {
	n := f.NumRows

	bmi := make([]float64, n)
	for i := 0; i < n; i++ {
		bmi[i] = BMI(f.Value(i, "weight"), f.Value(i, "height"))
	}
	if err := f.AddColumn("BMI", bmi); err != nil {
		return err
	}

	score := make([]float64, n)
	flags := make([]float64, len(ComorbidityColumns))
	for i := 0; i < n; i++ {
		for j, c := range ComorbidityColumns {
			flags[j] = f.Value(i, c)
		}
		score[i] = ComorbidityScore(flags)
	}
	if err := f.AddColumn("comorbidity_score", score); err != nil {
		return err
	}

	low := make([]float64, n)
	mid := make([]float64, n)
	high := make([]float64, n)
	lowAC := make([]float64, n)
	lowHER2 := make([]float64, n)
	for i := 0; i < n; i++ {
		low[i], mid[i], high[i] = LVEFBands(f.Value(i, "LVEF"))
		lowAC[i] = low[i] * orZero(f.Value(i, "AC"))
		lowHER2[i] = low[i] * orZero(f.Value(i, "antiHER2"))
	}
	for name, col := range map[string][]float64{
		"LVEF_low":            low,
		"LVEF_50_60":          mid,
		"LVEF_ge60":           high,
		"LVEF_low_x_AC":       lowAC,
		"LVEF_low_x_antiHER2": lowHER2,
	} {
		if err := f.AddColumn(name, col); err != nil {
			return err
		}
	}

	prev := make([]float64, n)
	for i := 0; i < n; i++ {
		if orZero(f.Value(i, "ACprev")) > 0 || orZero(f.Value(i, "antiHER2prev")) > 0 {
			prev[i] = 1
		}
	}
	return f.AddColumn("prev_therapy_any", prev)
}

// BuildFeatureMatrix runs cleaning and derivation on a raw frame and
// returns the model inputs: X laid out per FeatureColumns, the target
// vector, and the feature names. Rows with a missing target are dropped;
// the count of dropped rows is returned for logging. A frame without the
// target column is a hard error.
func BuildFeatureMatrix(f *Frame) (X [][]float64, y []float64, features []string, dropped int, err error) {
	if !f.HasColumn(TargetColumn) {
		return nil, nil, nil, 0, fmt.Errorf("%s column missing", TargetColumn)
	}

	CleanRanges(f)
	if err := DeriveFeatures(f); err != nil {
		return nil, nil, nil, 0, err
	}

	target, _ := f.Column(TargetColumn)
	full := f.Matrix(FeatureColumns)

	X = make([][]float64, 0, len(full))
	y = make([]float64, 0, len(full))
	for i, row := range full {
		if math.IsNaN(target[i]) {
			dropped++
			continue
		}
		X = append(X, row)
		y = append(y, target[i])
	}
	if len(X) == 0 {
		return nil, nil, nil, dropped, fmt.Errorf("no rows with a usable %s outcome", TargetColumn)
	}
	return X, y, append([]string{}, FeatureColumns...), dropped, nil
}

// DeriveRecord applies the training-time feature derivation to a single
// patient record, as the serving shim must. Absent keys are treated as
// missing; the result maps every feature the record can produce.
func DeriveRecord(data map[string]float64) map[string]float64 {
	get := func(name string) float64 {
		v, ok := data[name]
		if !ok {
			return math.NaN()
		}
		return v
	}

	out := make(map[string]float64, len(FeatureColumns))
	for _, name := range ClinicalColumns {
		if name == TargetColumn {
			continue
		}
		out[name] = get(name)
	}

	out["BMI"] = BMI(get("weight"), get("height"))

	flags := make([]float64, len(ComorbidityColumns))
	for j, c := range ComorbidityColumns {
		flags[j] = get(c)
	}
	out["comorbidity_score"] = ComorbidityScore(flags)

	low, mid, high := LVEFBands(get("LVEF"))
	out["LVEF_low"] = low
	out["LVEF_50_60"] = mid
	out["LVEF_ge60"] = high
	out["LVEF_low_x_AC"] = low * orZero(get("AC"))
	out["LVEF_low_x_antiHER2"] = low * orZero(get("antiHER2"))

	return out
}

// RecordVector orders a derived record to match a stored feature list.
// Features the record cannot produce stay NaN, preserving vector shape.
func RecordVector(derived map[string]float64, features []string) []float64 {
	x := make([]float64, len(features))
	for i, name := range features {
		v, ok := derived[name]
		if !ok {
			v = math.NaN()
		}
		x[i] = v
	}
	return x
}
