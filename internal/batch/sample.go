package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// SampleFileName is the default name for a generated sample workbook.
const SampleFileName = "sample_betting_data.xlsx"

// SampleRows returns six example games. Prices mix cents and dollars on
// purpose.
func SampleRows() []Row {
	margin := func(v float64) *float64 { return &v }
	return []Row{
		{Line: 2, Label: "Lakers vs Warriors", WinProbability: 68, Margin: margin(3.5), UnitPrice: 45},
		{Line: 3, Label: "Cowboys vs Giants", WinProbability: 72, Margin: margin(7.2), UnitPrice: 0.40},
		{Line: 4, Label: "Yankees vs Red Sox", WinProbability: 55, Margin: margin(1.8), UnitPrice: 52},
		{Line: 5, Label: "Chiefs vs Bills", WinProbability: 75, Margin: margin(10.5), UnitPrice: 0.35},
		{Line: 6, Label: "Celtics vs Heat", WinProbability: 63, Margin: margin(4.1), UnitPrice: 48},
		{Line: 7, Label: "Dodgers vs Padres", WinProbability: 58, Margin: margin(2.3), UnitPrice: 0.51},
	}
}

// WriteSample writes the sample games as an input workbook on sheet.
func WriteSample(path, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := []any{ColLabel, ColWinProbability, ColMargin, ColUnitPrice}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range SampleRows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Label, r.WinProbability, *r.Margin, r.UnitPrice}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing sample row %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating sample directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
