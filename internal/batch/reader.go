package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xuri/excelize/v2"
)

// Row is one game read from an input sheet. Probability and price are kept
// exactly as entered; the engine normalizes them.
type Row struct {
	Line           int // 1-based line in the source, header included
	Label          string
	WinProbability float64
	UnitPrice      float64
	Margin         *float64
}

// Canonical input columns.
const (
	ColLabel          = "Game"
	ColWinProbability = "Model Win Percentage"
	ColMargin         = "Model Margin"
	ColUnitPrice      = "Contract Price"
)

// headerAliases maps a lowercased header to its canonical column.
var headerAliases = map[string]string{
	"game":                 ColLabel,
	"label":                ColLabel,
	"model win percentage": ColWinProbability,
	"win_probability":      ColWinProbability,
	"win probability":      ColWinProbability,
	"model margin":         ColMargin,
	"margin":               ColMargin,
	"contract price":       ColUnitPrice,
	"unit_price":           ColUnitPrice,
	"price":                ColUnitPrice,
}

var requiredColumns = []string{ColLabel, ColWinProbability, ColUnitPrice}

// MissingColumnsError reports required columns absent from the header row.
type MissingColumnsError struct {
	Missing []string
	Found   []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns %v (found %v)", e.Missing, e.Found)
}

// ReadRows reads games from a .csv or .xlsx file. For workbooks, sheet names
// the worksheet; if it does not exist the first sheet is used.
func ReadRows(path, sheet string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return readXLSX(path, sheet)
	default:
		return nil, fmt.Errorf("unsupported input file %s: want .csv or .xlsx", path)
	}
}

// ReadCSV reads games from CSV with a header row.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return parseRecords(records)
}

func readXLSX(path, sheet string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); sheet == "" || err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, &MissingColumnsError{Missing: requiredColumns}
	}

	index := make(map[string]int)
	var found []string
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		found = append(found, h)
		if canon, ok := headerAliases[strings.ToLower(h)]; ok {
			if _, dup := index[canon]; !dup {
				index[canon] = i
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Found: found}
	}

	var (
		rows []Row
		errs *multierror.Error
	)
	for i, rec := range records[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		row, err := parseRow(line, rec, index)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRow(line int, rec []string, index map[string]int) (Row, error) {
	row := Row{Line: line, Label: cell(rec, index[ColLabel])}

	var err error
	if row.WinProbability, err = parseNumber(cell(rec, index[ColWinProbability])); err != nil {
		return Row{}, fmt.Errorf("line %d: %s: %w", line, ColWinProbability, err)
	}
	if row.UnitPrice, err = parseNumber(cell(rec, index[ColUnitPrice])); err != nil {
		return Row{}, fmt.Errorf("line %d: %s: %w", line, ColUnitPrice, err)
	}

	if i, ok := index[ColMargin]; ok {
		if raw := cell(rec, i); raw != "" {
			m, err := parseNumber(raw)
			if err != nil {
				return Row{}, fmt.Errorf("line %d: %s: %w", line, ColMargin, err)
			}
			row.Margin = &m
		}
	}
	return row, nil
}

var errEmptyCell = errors.New("empty cell")

// parseNumber accepts plain numbers plus the "68%", "45¢" and "$0.45"
// spellings people type into spreadsheets. The symbols are stripped, not
// interpreted; the normalizer decides the scale.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "¢")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyCell
	}
	return strconv.ParseFloat(s, 64)
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
