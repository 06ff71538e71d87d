package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nwstraits/survey-etl/internal/domain"
)

const gisSheet = "GIS"

// GISFileName is the GIS worksheet name for a survey year.
func GISFileName(year int) string {
	return fmt.Sprintf("gisWorksheet%d.xlsx", year)
}

// numFmtTwoPlaces is the built-in "0.00" number format.
const numFmtTwoPlaces = 2

// WriteGISWorkbook writes the GIS worksheet for the given rows to path.
func WriteGISWorkbook(path string, rows []*domain.GISRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), gisSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := domain.GISHeaderLabels()
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(gisSheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		rowNum := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		values := row.Values()
		if err := f.SetSheetRow(gisSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", rowNum, err)
		}
		if row.ToBeFile != "" {
			link, _ := excelize.CoordinatesToCellName(domain.GISToBeFileColumn, rowNum)
			if err := f.SetCellFormula(gisSheet, link, hyperlinkFormula(row.ToBeFile, row.ToBeLabel())); err != nil {
				return fmt.Errorf("write link row %d: %w", rowNum, err)
			}
		}
	}

	if len(rows) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoPlaces})
		if err != nil {
			return fmt.Errorf("create number style: %w", err)
		}
		last := len(rows) + 1
		for _, col := range domain.GISNumberColumns {
			top, _ := excelize.CoordinatesToCellName(col, 2)
			bottom, _ := excelize.CoordinatesToCellName(col, last)
			if err := f.SetCellStyle(gisSheet, top, bottom, style); err != nil {
				return fmt.Errorf("style column %d: %w", col, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// hyperlinkFormula builds a HYPERLINK formula. Quotes are doubled per the
// formula grammar.
func hyperlinkFormula(path, label string) string {
	esc := func(s string) string { return strings.ReplaceAll(s, `"`, `""`) }
	return fmt.Sprintf(`HYPERLINK("%s","%s")`, esc(path), esc(label))
}
