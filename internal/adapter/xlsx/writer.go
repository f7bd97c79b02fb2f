package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named table of rows; the first row is the header.
type Sheet struct {
	Name string
	Rows [][]any
}

// WriteWorkbook saves sheets, in order, to a new workbook at path. Strings are
// written as text cells and numbers as numeric cells, so the file round-trips
// through Loader with the same value types.
func WriteWorkbook(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write workbook %s: no sheets", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with one default sheet; reuse it for the first.
	if err := f.SetSheetName(f.GetSheetName(0), sheets[0].Name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, s := range sheets[1:] {
		if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("create sheet %q: %w", s.Name, err)
		}
	}

	for _, s := range sheets {
		for i, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
				return fmt.Errorf("write sheet %q row %d: %w", s.Name, i+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
