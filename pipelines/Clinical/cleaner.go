package clinical

import "math"

// CleanRanges applies the per-column plausibility intervals: out-of-range
// measurements become missing rather than clipped, and binary columns are
// restricted to {0,1}. Returns the names of columns that had values
// invalidated, for logging.
func CleanRanges(f *Frame) []string {
	var touched []string

	for name, rng := range PlausibleRanges {
		col, ok := f.Data[name]
		if !ok {
			continue
		}
		changed := false
		for i, v := range col {
			if math.IsNaN(v) {
				continue
			}
			if v < rng.Lo || v > rng.Hi {
				col[i] = math.NaN()
				changed = true
			}
		}
		if changed {
			touched = append(touched, name)
		}
	}

	for _, name := range BinaryColumns {
		col, ok := f.Data[name]
		if !ok {
			continue
		}
		changed := false
		for i, v := range col {
			if math.IsNaN(v) {
				continue
			}
			if v != 0 && v != 1 {
				col[i] = math.NaN()
				changed = true
			}
		}
		if changed {
			touched = append(touched, name)
		}
	}

	return touched
}
