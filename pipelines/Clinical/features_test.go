package clinical

import (
	"math"
	"testing"
)

func TestBMIKnownValue(t *testing.T) {
	bmi := BMI(70, 175)
	if math.Abs(bmi-22.857) > 0.01 {
		t.Errorf("Expected BMI ~22.86 for 70kg/175cm, got %.3f", bmi)
	}
}

func TestBMIBounds(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		height float64
		valid  bool
	}{
		{"normal", 70, 175, true},
		{"missing weight", math.NaN(), 175, false},
		{"missing height", 70, math.NaN(), false},
		{"zero height", 70, 0, false},
		{"implausibly low", 20, 190, false},  // BMI ~5.5
		{"implausibly high", 200, 140, false}, // BMI ~102
		{"boundary low ok", 36.3, 190, true},  // BMI ~10.06
	}

	for _, tt := range tests {
		bmi := BMI(tt.weight, tt.height)
		if tt.valid {
			if math.IsNaN(bmi) || bmi < 10 || bmi > 60 {
				t.Errorf("%s: expected valid BMI in [10,60], got %v", tt.name, bmi)
			}
		} else if !math.IsNaN(bmi) {
			t.Errorf("%s: expected NaN, got %v", tt.name, bmi)
		}
	}
}

func TestComorbidityScoreMissingAsZero(t *testing.T) {
	flags := []float64{1, math.NaN(), 1, 0, math.NaN(), 1, 0, 0, math.NaN(), 1}
	score := ComorbidityScore(flags)
	if score != 4 {
		t.Errorf("Expected score 4 (missing treated as 0), got %v", score)
	}

	allMissing := make([]float64, 10)
	for i := range allMissing {
		allMissing[i] = math.NaN()
	}
	if s := ComorbidityScore(allMissing); s != 0 {
		t.Errorf("Expected score 0 for all-missing flags, got %v", s)
	}
}

func TestLVEFBands(t *testing.T) {
	tests := []struct {
		lvef            float64
		low, mid, high  float64
	}{
		{45, 1, 0, 0},
		{49.9, 1, 0, 0},
		{50, 0, 1, 0},
		{59.9, 0, 1, 0},
		{60, 0, 0, 1},
		{72, 0, 0, 1},
		{math.NaN(), 0, 0, 0},
	}

	for _, tt := range tests {
		low, mid, high := LVEFBands(tt.lvef)
		if low != tt.low || mid != tt.mid || high != tt.high {
			t.Errorf("LVEF=%v: expected (%v,%v,%v), got (%v,%v,%v)",
				tt.lvef, tt.low, tt.mid, tt.high, low, mid, high)
		}
		// Bands are mutually exclusive and sum to 1 when LVEF is present.
		sum := low + mid + high
		if math.IsNaN(tt.lvef) {
			if sum != 0 {
				t.Errorf("LVEF missing: band sum should be 0, got %v", sum)
			}
		} else if sum != 1 {
			t.Errorf("LVEF=%v: band sum should be 1, got %v", tt.lvef, sum)
		}
	}
}

func TestAgeBand(t *testing.T) {
	tests := []struct {
		age  float64
		band string
	}{
		{35, "<50"},
		{50, "50-59"},
		{59.5, "50-59"},
		{60, "60-69"},
		{70, ">=70"},
		{math.NaN(), ""},
	}
	for _, tt := range tests {
		if got := AgeBand(tt.age); got != tt.band {
			t.Errorf("AgeBand(%v) = %q, want %q", tt.age, got, tt.band)
		}
	}
}

func TestTherapyGroup(t *testing.T) {
	tests := []struct {
		ac, her2 float64
		group    string
	}{
		{0, 0, "none"},
		{1, 0, "AC_only"},
		{0, 1, "antiHER2_only"},
		{1, 1, "AC_plus_antiHER2"},
		{math.NaN(), 1, "antiHER2_only"},
		{math.NaN(), math.NaN(), "none"},
	}
	for _, tt := range tests {
		if got := TherapyGroup(tt.ac, tt.her2); got != tt.group {
			t.Errorf("TherapyGroup(%v,%v) = %q, want %q", tt.ac, tt.her2, got, tt.group)
		}
	}
}

func TestDeriveRecordMatchesFeatureOrder(t *testing.T) {
	derived := DeriveRecord(map[string]float64{
		"age": 58, "weight": 70, "height": 175, "LVEF": 45,
		"AC": 1, "antiHER2": 0, "HTA": 1, "DM": 1,
	})

	x := RecordVector(derived, FeatureColumns)
	if len(x) != len(FeatureColumns) {
		t.Fatalf("Vector length %d != feature count %d", len(x), len(FeatureColumns))
	}

	index := make(map[string]int, len(FeatureColumns))
	for i, name := range FeatureColumns {
		index[name] = i
	}

	if v := x[index["LVEF_low"]]; v != 1 {
		t.Errorf("LVEF=45 should set LVEF_low=1, got %v", v)
	}
	if v := x[index["LVEF_50_60"]]; v != 0 {
		t.Errorf("LVEF=45 should set LVEF_50_60=0, got %v", v)
	}
	if v := x[index["LVEF_ge60"]]; v != 0 {
		t.Errorf("LVEF=45 should set LVEF_ge60=0, got %v", v)
	}
	if v := x[index["LVEF_low_x_AC"]]; v != 1 {
		t.Errorf("Expected LVEF_low_x_AC=1, got %v", v)
	}
	if v := x[index["comorbidity_score"]]; v != 2 {
		t.Errorf("Expected comorbidity_score=2, got %v", v)
	}
	if v := x[index["BMI"]]; math.Abs(v-22.857) > 0.01 {
		t.Errorf("Expected BMI ~22.86, got %v", v)
	}
	// heart_rate was absent from the record and must surface as NaN.
	if v := x[index["heart_rate"]]; !math.IsNaN(v) {
		t.Errorf("Absent field should be NaN in vector, got %v", v)
	}
}

func TestDeriveFeaturesOnFrame(t *testing.T) {
	f := NewFrame([]string{"weight", "height", "LVEF", "AC", "antiHER2", "HTA", "DM"}, 2)
	f.Data["weight"] = []float64{70, math.NaN()}
	f.Data["height"] = []float64{175, 160}
	f.Data["LVEF"] = []float64{55, math.NaN()}
	f.Data["AC"] = []float64{1, 1}
	f.Data["antiHER2"] = []float64{0, math.NaN()}
	f.Data["HTA"] = []float64{1, math.NaN()}
	f.Data["DM"] = []float64{1, 1}

	if err := DeriveFeatures(f); err != nil {
		t.Fatalf("DeriveFeatures failed: %v", err)
	}

	if v := f.Value(0, "BMI"); math.Abs(v-22.857) > 0.01 {
		t.Errorf("Row 0 BMI: expected ~22.86, got %v", v)
	}
	if v := f.Value(1, "BMI"); !math.IsNaN(v) {
		t.Errorf("Row 1 BMI should be NaN with missing weight, got %v", v)
	}
	if v := f.Value(0, "LVEF_50_60"); v != 1 {
		t.Errorf("Row 0 LVEF=55 should be mid band, got %v", v)
	}
	if v := f.Value(1, "LVEF_low")+f.Value(1, "LVEF_50_60")+f.Value(1, "LVEF_ge60"); v != 0 {
		t.Errorf("Row 1 missing LVEF: bands should all be 0, sum=%v", v)
	}
	if v := f.Value(0, "comorbidity_score"); v != 2 {
		t.Errorf("Row 0 comorbidity: expected 2, got %v", v)
	}
	if v := f.Value(1, "comorbidity_score"); v != 1 {
		t.Errorf("Row 1 comorbidity: expected 1 (missing as 0), got %v", v)
	}
}

func TestBuildFeatureMatrixDropsMissingTarget(t *testing.T) {
	f := NewFrame([]string{"age", "weight", "height", "CTRCD"}, 3)
	f.Data["age"] = []float64{50, 60, 70}
	f.Data["weight"] = []float64{70, 80, 90}
	f.Data["height"] = []float64{170, 175, 180}
	f.Data["CTRCD"] = []float64{0, math.NaN(), 1}

	X, y, features, dropped, err := BuildFeatureMatrix(f)
	if err != nil {
		t.Fatalf("BuildFeatureMatrix failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped row, got %d", dropped)
	}
	if len(X) != 2 || len(y) != 2 {
		t.Fatalf("Expected 2 usable rows, got %d/%d", len(X), len(y))
	}
	if len(features) != len(FeatureColumns) {
		t.Errorf("Feature list length %d != %d", len(features), len(FeatureColumns))
	}
	// LVEF was never in the source; its column must still exist, as NaN.
	for j, name := range features {
		if name == "LVEF" && !math.IsNaN(X[0][j]) {
			t.Errorf("Absent source column should be NaN in matrix")
		}
	}
}

func TestBuildFeatureMatrixRequiresTarget(t *testing.T) {
	f := NewFrame([]string{"age"}, 1)
	f.Data["age"] = []float64{50}
	if _, _, _, _, err := BuildFeatureMatrix(f); err == nil {
		t.Fatal("Expected hard error when CTRCD column is missing")
	}
}
