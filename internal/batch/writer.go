package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names in result workbooks.
const (
	QuickViewSheet = "Quick_View"
	DetailSheet    = "Betting_Results"
)

const (
	minColWidth = 8
	maxColWidth = 25
	colPadding  = 2

	highlightColor = "FFF2CC"
	commentAuthor  = "Wharton"
)

// OutputPath names the results file for an input file: <stem>_RESULTS<ext>
// under dir.
func OutputPath(dir, inputPath, ext string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"_RESULTS"+ext)
}

// money rounds a dollar amount to cents, half away from zero.
func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// render formats a cell value for text output.
func render(f format, v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		switch f {
		case formatCurrency:
			return money(v).StringFixed(2)
		case formatPercent:
			return decimal.NewFromFloat(v*100).Round(2).StringFixed(2) + "%"
		default:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	default:
		return fmt.Sprint(v)
	}
}

// WriteCSV writes the detailed results as CSV.
func WriteCSV(w io.Writer, res *Result) error {
	cols := detailColumns(res)
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	record := make([]string, len(cols))
	for _, r := range res.Rows {
		for i, c := range cols {
			record[i] = render(c.format, c.value(res, r))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %s: %w", r.Row.Label, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with the Quick_View sheet first and the full
// Betting_Results sheet second.
func WriteXLSX(path string, res *Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", QuickViewSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	styles, err := newStyleSet(f)
	if err != nil {
		return err
	}
	if err := writeSheet(f, QuickViewSheet, quickColumns(), res, styles); err != nil {
		return err
	}
	if err := writeSheet(f, DetailSheet, detailColumns(res), res, styles); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:      "Betting results",
		Creator:    "wharton",
		Identifier: res.RunID,
		Created:    res.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("setting workbook properties: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, cols []column, res *Result, styles *styleSet) error {
	for ci, c := range cols {
		colName, err := excelize.ColumnNumberToName(ci + 1)
		if err != nil {
			return err
		}

		header := colName + "1"
		if err := f.SetCellValue(sheet, header, c.name); err != nil {
			return fmt.Errorf("writing header %s: %w", c.name, err)
		}
		if err := f.SetCellStyle(sheet, header, header, styles.header(c)); err != nil {
			return err
		}
		if note := noteFor(c, res); note != "" {
			if err := f.AddComment(sheet, excelize.Comment{Cell: header, Author: commentAuthor, Text: note}); err != nil {
				return fmt.Errorf("commenting %s: %w", c.name, err)
			}
		}

		width := utf8.RuneCountInString(c.name)
		for ri, r := range res.Rows {
			cell := colName + strconv.Itoa(ri+2)
			v := c.value(res, r)
			if c.format == formatCurrency {
				if fv, ok := v.(float64); ok {
					v = money(fv).InexactFloat64()
				}
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing %s: %w", cell, err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, styles.data(c)); err != nil {
				return err
			}
			width = max(width, utf8.RuneCountInString(render(c.format, v)))
		}

		if err := f.SetColWidth(sheet, colName, colName, float64(clampWidth(width))); err != nil {
			return err
		}
	}
	return nil
}

func clampWidth(contentWidth int) int {
	return max(minColWidth, min(contentWidth+colPadding, maxColWidth))
}

// styleSet caches style IDs by number format and highlighting.
type styleSet struct {
	headers map[bool]int
	cells   map[styleKey]int
}

type styleKey struct {
	format    format
	highlight bool
}

var numFmts = map[format]int{
	formatGeneral: 0,
	formatText:    49, // @
	formatPercent: 10, // 0.00%
}

const currencyFmt = "$0.00"

func newStyleSet(f *excelize.File) (*styleSet, error) {
	s := &styleSet{headers: make(map[bool]int), cells: make(map[styleKey]int)}
	fill := excelize.Fill{Type: "pattern", Color: []string{highlightColor}, Pattern: 1}

	for _, hl := range []bool{false, true} {
		st := &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "center"}}
		if hl {
			st.Fill = fill
			st.Font = &excelize.Font{Bold: true}
		}
		id, err := f.NewStyle(st)
		if err != nil {
			return nil, fmt.Errorf("creating header style: %w", err)
		}
		s.headers[hl] = id

		for _, fm := range []format{formatGeneral, formatText, formatPercent, formatCurrency} {
			st := &excelize.Style{NumFmt: numFmts[fm]}
			if fm == formatCurrency {
				cf := currencyFmt
				st.CustomNumFmt = &cf
			}
			if fm == formatGeneral {
				st.Alignment = &excelize.Alignment{Horizontal: "right"}
			}
			if hl {
				st.Fill = fill
			}
			id, err := f.NewStyle(st)
			if err != nil {
				return nil, fmt.Errorf("creating cell style: %w", err)
			}
			s.cells[styleKey{fm, hl}] = id
		}
	}
	return s, nil
}

func (s *styleSet) header(c column) int { return s.headers[c.commission] }
func (s *styleSet) data(c column) int   { return s.cells[styleKey{c.format, c.commission}] }
