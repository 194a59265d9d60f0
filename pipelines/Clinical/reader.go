package clinical

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// rawTable holds a parsed CSV prior to numeric coercion.
type rawTable struct {
	Header  []string
	Records [][]string
}

// ReadCSV reads a clinical CSV into a Frame, tolerating the delimiter and
// decimal conventions the source files actually arrive in. Parse attempts,
// in order:
//  1. sniffed delimiter (comma vs semicolon), strict field counts
//  2. semicolon delimiter with decimal-comma values
//  3. sniffed delimiter, ragged rows skipped
//
// Headers are matched case-insensitively against the canonical columns and
// their aliases; unknown columns are dropped. A file containing none of the
// expected clinical columns is a hard error.
//
// An attempt is accepted only when its header carries at least one
// recognizable clinical column: reparsing a comma file with ';' yields a
// one-column table whose header is the whole original line, which parses
// cleanly but matches nothing.
func ReadCSV(path string) (*Frame, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	text := string(content)

	attempts := []func(string) (*rawTable, error){
		func(s string) (*rawTable, error) { return parseStrict(s, sniffDelimiter(s)) },
		func(s string) (*rawTable, error) { return parseStrict(s, ';') },
		func(s string) (*rawTable, error) { return parseLenient(s, sniffDelimiter(s)) },
	}

	var parsed *rawTable
	var lastErr error
	for _, attempt := range attempts {
		table, err := attempt(text)
		if err != nil {
			lastErr = err
			continue
		}
		if parsed == nil {
			parsed = table
		}
		if hasClinicalColumns(table.Header) {
			return frameFromTable(table, path)
		}
	}

	// Parsed but unrecognized: report the offending headers.
	if parsed != nil {
		return frameFromTable(parsed, path)
	}
	return nil, fmt.Errorf("failed to parse CSV %s: %w", path, lastErr)
}

// hasClinicalColumns reports whether any header maps to a canonical column.
func hasClinicalColumns(header []string) bool {
	for _, h := range header {
		if CanonicalColumn(h) != "" {
			return true
		}
	}
	return false
}

// sniffDelimiter picks the delimiter by counting candidates in the header
// line. Semicolon wins ties only when present, matching how the exporting
// systems write decimal-comma files.
func sniffDelimiter(content string) rune {
	header := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		header = content[:idx]
	}
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

func parseStrict(content string, delimiter rune) (*rawTable, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delimiter
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have a header and at least one row")
	}
	return &rawTable{Header: records[0], Records: records[1:]}, nil
}

// parseLenient reads row by row, skipping lines whose field count does not
// match the header. Last-resort fallback for files with stray junk lines.
func parseLenient(content string, delimiter rune) (*rawTable, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delimiter
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have a header and at least one row")
	}

	header := records[0]
	kept := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == len(header) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no rows matched the header width")
	}
	return &rawTable{Header: header, Records: kept}, nil
}

// frameFromTable maps raw headers to canonical columns and coerces every
// cell to numeric. Unparseable cells become NaN.
func frameFromTable(table *rawTable, path string) (*Frame, error) {
	// Resolve which raw column feeds each canonical column. First match wins.
	sourceIndex := make(map[string]int)
	for i, h := range table.Header {
		canon := CanonicalColumn(h)
		if canon == "" {
			continue
		}
		if _, taken := sourceIndex[canon]; !taken {
			sourceIndex[canon] = i
		}
	}
	if len(sourceIndex) == 0 {
		return nil, fmt.Errorf("no expected clinical columns found in %s (headers: %v)", path, previewHeaders(table.Header))
	}

	var columns []string
	for _, c := range ClinicalColumns {
		if _, ok := sourceIndex[c]; ok {
			columns = append(columns, c)
		}
	}

	frame := NewFrame(columns, len(table.Records))
	for _, name := range columns {
		col := frame.Data[name]
		idx := sourceIndex[name]
		for row, rec := range table.Records {
			col[row] = ParseCell(rec[idx])
		}
	}
	return frame, nil
}

// ParseCell coerces a single CSV cell to float64, treating decimal commas
// as decimal points. Empty or unparseable cells yield NaN.
func ParseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	// Decimal-comma convention: "12,5" means 12.5. Only rewrite when the
	// result parses; "1,2,3" stays invalid.
	if strings.Count(s, ",") == 1 {
		if v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return v
		}
	}
	return math.NaN()
}

func previewHeaders(header []string) []string {
	if len(header) > 10 {
		return header[:10]
	}
	return header
}
