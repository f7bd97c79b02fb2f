package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/bousai-map/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Loader reads shelter rows from the first sheet of an Excel workbook.
// It implements pipeline.Loader.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a loader for the workbook at path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Path returns the workbook path this loader reads.
func (l *Loader) Path() string { return l.path }

// CheckSource reports whether the workbook path resolves to a regular file.
func (l *Loader) CheckSource(_ context.Context) error {
	return statSource(l.path)
}

// Load opens the workbook read-only and returns one record per non-blank data
// row of the first sheet, keyed by the header row's labels. Each record keeps
// its sheet row number, so blank rows leave gaps rather than shifting rows.
func (l *Loader) Load(ctx context.Context) (domain.Table, error) {
	if err := statSource(l.path); err != nil {
		return domain.Table{}, err
	}

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return domain.Table{}, domain.NewParseError(l.path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, domain.NewParseError(l.path, errors.New("workbook has no sheets"))
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Table{}, domain.NewParseError(l.path, fmt.Errorf("read sheet %q: %w", sheet, err))
	}
	if len(rows) == 0 {
		return domain.Table{Records: []domain.RawRecord{}, RowNumbers: []int{}}, nil
	}

	headers := headerLabels(rows[0])
	table := domain.Table{
		Records:    make([]domain.RawRecord, 0, len(rows)-1),
		RowNumbers: make([]int, 0, len(rows)-1),
	}

	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return domain.Table{}, err
		}
		rowNum := i + 2
		rec := make(domain.RawRecord, len(headers))
		for col, text := range row {
			if col >= len(headers) || headers[col] == "" || text == "" {
				continue
			}
			rec[headers[col]] = cellValue(f, sheet, col+1, rowNum, text)
		}
		if len(rec) == 0 {
			continue
		}
		table.Records = append(table.Records, rec)
		table.RowNumbers = append(table.RowNumbers, rowNum)
	}

	l.logger.Debug("workbook loaded",
		"path", l.path,
		"sheet", sheet,
		"columns", len(headers),
		"records", len(table.Records),
	)
	return table, nil
}

func statSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewNotFoundError(path, err)
		}
		return domain.NewParseError(path, err)
	}
	if info.IsDir() {
		return domain.NewNotFoundError(path, errors.New("path is a directory"))
	}
	return nil
}

// headerLabels trims the header row and disambiguates repeated labels with a
// numeric suffix ("電話", "電話_1"). A suffix never reuses a label taken by
// another column, so no two columns share a key. Blank labels stay blank and
// their column is ignored.
func headerLabels(row []string) []string {
	labels := make([]string, len(row))
	taken := make(map[string]bool, len(row))
	for _, raw := range row {
		if label := strings.TrimSpace(raw); label != "" {
			taken[label] = true
		}
	}

	assigned := make(map[string]bool, len(row))
	next := make(map[string]int, len(row))
	for i, raw := range row {
		label := strings.TrimSpace(raw)
		if label == "" {
			continue
		}
		if assigned[label] {
			n := next[label]
			candidate := label
			for candidate == label || taken[candidate] || assigned[candidate] {
				n++
				candidate = label + "_" + strconv.Itoa(n)
			}
			next[label] = n
			label = candidate
		}
		labels[i] = label
		assigned[label] = true
	}
	return labels
}

// cellValue types a cell: numeric cells become float64, everything else
// stays as its text.
func cellValue(f *excelize.File, sheet string, col, row int, text string) any {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return text
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return text
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return v
		}
	}
	return text
}
