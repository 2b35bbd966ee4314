package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"doc-analyzer/internal/extract"
)

const (
	segmentsSheet = "Segments"
	summarySheet  = "Summary"
)

// WriteSegmentsXLSX writes segments to a workbook at path: one row per segment on
// the Segments sheet and per-type counts on the Summary sheet.
func WriteSegmentsXLSX(path string, jobID string, segments []extract.Segment) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", segmentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, segmentsSheet, 1, []any{"#", "Type", "Text"}); err != nil {
		return err
	}
	for i, s := range segments {
		if err := writeRow(f, segmentsSheet, i+2, []any{i + 1, s.Type, s.Text}); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(segmentsSheet, "C", "C", 80); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeRow(f, summarySheet, 1, []any{"Job", jobID}); err != nil {
		return err
	}
	if err := writeRow(f, summarySheet, 2, []any{"Block type", "Count"}); err != nil {
		return err
	}
	counts := extract.CountByType(segments)
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for i, t := range types {
		if err := writeRow(f, summarySheet, i+3, []any{t, counts[t]}); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name row=%d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
