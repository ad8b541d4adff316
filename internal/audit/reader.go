package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultColumn is the header looked up when no column is given.
const DefaultColumn = "code"

// Entry is one non-empty cell from the code column. Row is 1-based and counts
// the header row.
type Entry struct {
	Row  int
	Code string
}

// ReadFile loads the code column from a .csv or .xlsx/.xlsm file. For
// spreadsheets, sheet selects the worksheet; empty means the first one.
func ReadFile(path, column, sheet string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, column)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, column, sheet)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ReadCSV reads the named column from CSV data with a header row.
func ReadCSV(r io.Reader, column string) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return extract(rows, column)
}

// ReadXLSX reads the named column from a worksheet whose first row is a header.
func ReadXLSX(path, column, sheet string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s has no worksheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return extract(rows, column)
}

func extract(rows [][]string, column string) ([]Entry, error) {
	if column == "" {
		column = DefaultColumn
	}
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	idx := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found in header", column)
	}

	var entries []Entry
	for i, row := range rows[1:] {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		entries = append(entries, Entry{Row: i + 2, Code: v})
	}
	return entries, nil
}
