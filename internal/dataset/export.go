package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"
)

// flushEvery bounds how many CSV rows are buffered before flushing to the client.
const flushEvery = 1000

// WriteCSV writes the header and raw cells of t. Loading the output again
// yields a table with identical rows.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
		if (i+1)%flushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return fmt.Errorf("flush csv: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes t as a single-sheet workbook. Numeric columns are stored as
// numbers and missing values as blank cells.
func WriteXLSX(w io.Writer, t *Table, sheet string) error {
	sheet = sheetName(sheet)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx stream: %w", err)
	}
	if len(t.columns) > 0 {
		if err := sw.SetColWidth(1, len(t.columns), 14); err != nil {
			return fmt.Errorf("xlsx width: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	header := make([]interface{}, len(t.columns))
	for i, c := range t.columns {
		header[i] = c.Name
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	for r, row := range t.rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			if nums, ok := t.numeric[c]; ok {
				if v := nums[r]; !math.IsNaN(v) {
					values[c] = v
				}
				continue
			}
			values[c] = cell
		}
		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(addr, values); err != nil {
			return fmt.Errorf("xlsx row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	return f.Write(w)
}

// sheetName makes s a legal worksheet name: no []:*?/\ and at most 31 runes.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		s = "Data"
	}
	if r := []rune(s); len(r) > 31 {
		s = string(r[:31])
	}
	return s
}
