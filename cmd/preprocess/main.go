// Command preprocess cleans a raw clinical CSV export and writes the
// analysis-ready patient table: implausible values blanked, derived
// features added, and a synthetic patient_id assigned per row.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	clinical "github.com/cardioml/ctrcd-risk/pipelines/Clinical"
	"github.com/cardioml/ctrcd-risk/utils"
	"github.com/google/uuid"
)

func main() {
	input := flag.String("input", "", "raw clinical CSV export (required)")
	output := flag.String("output", "patients_clean.csv", "cleaned patient table destination")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess -input <raw.csv> [-output <clean.csv>]")
		os.Exit(1)
	}

	logger := utils.GetLogger()
	logger.SetService("ctrcd-preprocess")

	if err := run(*input, *output, logger); err != nil {
		logger.Fatal("preprocessing failed", err, utils.Component("preprocess"))
	}
}

func run(input, output string, logger *utils.Logger) error {
	frame, err := clinical.ReadCSV(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	logger.Info("loaded raw export",
		utils.String("input", input),
		utils.Int("rows", frame.NumRows),
		utils.Int("columns", len(frame.Columns)),
		utils.Component("preprocess"))

	cleaned := clinical.CleanRanges(frame)
	logger.Info("applied plausibility ranges",
		utils.Int("columns_touched", len(cleaned)),
		utils.Component("preprocess"))

	if err := clinical.DeriveFeatures(frame); err != nil {
		return fmt.Errorf("deriving features: %w", err)
	}

	if err := writePatientTable(output, frame); err != nil {
		return err
	}
	logger.Info("wrote cleaned patient table",
		utils.String("output", output),
		utils.Int("rows", frame.NumRows),
		utils.Component("preprocess"))
	return nil
}

// writePatientTable exports the cleaned frame as CSV. Each row gets a
// generated patient_id plus the reporting bands alongside the numeric
// columns; missing values stay empty cells.
func writePatientTable(path string, f *clinical.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	numeric := append([]string{}, f.Columns...)
	header := append([]string{"patient_id"}, numeric...)
	header = append(header, "age_band", "therapy_group")

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < f.NumRows; i++ {
		row := make([]string, 0, len(header))
		row = append(row, uuid.New().String())
		for _, col := range numeric {
			row = append(row, formatCell(f.Value(i, col)))
		}
		row = append(row,
			clinical.AgeBand(f.Value(i, "age")),
			clinical.TherapyGroup(f.Value(i, "AC"), f.Value(i, "antiHER2")),
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
