package clinical

import "strings"

// ClinicalColumns is the canonical set of raw clinical variables, in the
// order they appear in the source dataset.
var ClinicalColumns = []string{
	"age", "weight", "height", "CTRCD", "time", "LVEF", "heart_rate", "heart_rhythm",
	"PWT", "LAd", "LVDd", "LVSd", "AC", "antiHER2", "ACprev", "antiHER2prev",
	"HTA", "DL", "DM", "smoker", "exsmoker", "RTprev", "CIprev", "ICMprev", "ARRprev",
	"VALVprev", "cxvalv",
}

// BinaryColumns are restricted to {0,1}; any other value becomes missing.
var BinaryColumns = []string{
	"CTRCD", "heart_rhythm", "AC", "antiHER2", "ACprev", "antiHER2prev",
	"HTA", "DL", "DM", "smoker", "exsmoker", "RTprev", "CIprev", "ICMprev",
	"ARRprev", "VALVprev", "cxvalv",
}

// ComorbidityColumns are the ten binary risk flags summed into the
// comorbidity score.
var ComorbidityColumns = []string{
	"HTA", "DL", "DM", "smoker", "exsmoker",
	"CIprev", "ICMprev", "ARRprev", "VALVprev", "cxvalv",
}

// Range is a closed plausibility interval for a clinical measurement.
type Range struct {
	Lo float64
	Hi float64
}

// PlausibleRanges maps measurement columns to their accepted intervals.
// Values outside the interval are set to missing rather than clipped.
var PlausibleRanges = map[string]Range{
	"age":        {18, 95},
	"weight":     {30, 200},
	"height":     {120, 210},
	"LVEF":       {10, 80},
	"heart_rate": {30, 220},
	"PWT":        {0.5, 2.5}, // cm
	"LAd":        {2.0, 6.0}, // cm
	"LVDd":       {3.0, 7.5}, // cm
	"LVSd":       {2.0, 6.0}, // cm
	"time":       {0, 5000},  // days
}

// FeatureColumns is the ordered feature list for this pipeline version.
// Every column is present in the feature matrix even when the source data
// lacked it (filled with missing). Order is load-bearing: persisted models
// index into vectors laid out in exactly this order.
var FeatureColumns = []string{
	"age", "BMI", "LVEF", "heart_rate", "heart_rhythm",
	"PWT", "LAd", "LVDd", "LVSd",
	"AC", "antiHER2", "ACprev", "antiHER2prev",
	"HTA", "DL", "DM", "smoker", "exsmoker", "RTprev",
	"CIprev", "ICMprev", "ARRprev", "VALVprev", "cxvalv",
	"comorbidity_score",
	"LVEF_low", "LVEF_50_60", "LVEF_ge60",
	"LVEF_low_x_AC", "LVEF_low_x_antiHER2",
}

// TargetColumn is the binary outcome the models predict.
const TargetColumn = "CTRCD"

// columnAliases maps each canonical column to accepted header spellings.
// Matching is case-insensitive on trimmed headers.
var columnAliases = map[string][]string{
	"LVEF":         {"lvef"},
	"heart_rate":   {"hr", "heart rate"},
	"heart_rhythm": {"rhythm", "heart rhythm"},
	"PWT":          {"posterior wall thickness"},
	"LAd":          {"left atrial diameter", "la_d"},
	"LVDd":         {"lvdd", "left ventricular diastolic diameter"},
	"LVSd":         {"lvsd", "left ventricular systolic diameter"},
	"AC":           {"anthracyclines", "anthracycline"},
	"antiHER2":     {"anti-her2", "anti_her2", "trastuzumab"},
	"ACprev":       {"prev_ac", "previous anthracyclines"},
	"antiHER2prev": {"prev_antiher2", "previous anti-her2"},
	"HTA":          {"hypertension"},
	"DL":           {"dyslipidemia", "hyperlipidemia"},
	"DM":           {"diabetes", "diabetes mellitus"},
	"smoker":       {"current_smoker"},
	"exsmoker":     {"former_smoker"},
	"RTprev":       {"previous thorax radiotherapy", "thorax_rt_prev"},
	"CIprev":       {"cardiac insufficiency prev", "hf_prev", "heart failure prev"},
	"ICMprev":      {"ischemic cardiomyopathy prev", "cad_prev"},
	"ARRprev":      {"arrhythmia prev"},
	"VALVprev":     {"valvulopathy prev"},
	"cxvalv":       {"valve surgery prev", "prev valve surgery"},
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\n", " ")
	h = strings.ReplaceAll(h, "\r", " ")
	return strings.ToLower(strings.TrimSpace(h))
}

// CanonicalColumn resolves a raw CSV header to its canonical clinical column
// name. Returns "" when the header matches nothing.
func CanonicalColumn(header string) string {
	norm := normalizeHeader(header)
	for _, col := range ClinicalColumns {
		if norm == normalizeHeader(col) {
			return col
		}
		for _, alias := range columnAliases[col] {
			if norm == normalizeHeader(alias) {
				return col
			}
		}
	}
	return ""
}

func isBinaryColumn(name string) bool {
	for _, c := range BinaryColumns {
		if c == name {
			return true
		}
	}
	return false
}
