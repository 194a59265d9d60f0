package ml

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SaveModel writes a fitted pipeline to a JSON artifact.
func SaveModel(path string, pipe *Pipeline) error {
	data, err := json.MarshalIndent(pipe, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// LoadModel reads a pipeline artifact and validates it.
func LoadModel(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	pipe := &Pipeline{}
	if err := json.Unmarshal(data, pipe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := pipe.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}
	return pipe, nil
}

// SaveFeatureList persists the ordered feature names, one per line. The
// order is the contract between training and serving.
func SaveFeatureList(path string, features []string) error {
	content := strings.Join(features, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write feature list: %w", err)
	}
	return nil
}

// LoadFeatureList reads the ordered feature names written at training time.
func LoadFeatureList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature list: %w", err)
	}
	var features []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			features = append(features, line)
		}
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("feature list %s is empty", path)
	}
	return features, nil
}

// SaveOddsRatioTable writes the odds-ratio rows as or_table.csv.
func SaveOddsRatioTable(path string, rows []OddsRatioRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create odds-ratio table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"feature", "OR", "CI_low", "CI_high", "p_value"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Feature,
			strconv.FormatFloat(row.OR, 'g', 6, 64),
			strconv.FormatFloat(row.CILow, 'g', 6, 64),
			strconv.FormatFloat(row.CIHigh, 'g', 6, 64),
			strconv.FormatFloat(row.PValue, 'g', 6, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
