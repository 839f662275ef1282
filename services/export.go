package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"aftercollage_app_go/models"

	"github.com/xuri/excelize/v2"
)

// ErrNoData is returned when there is nothing to export
var ErrNoData = errors.New("no data to export")

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportFilename builds "{base}-{YYYY-MM-DD}.{ext}" from the UTC date of now
func ExportFilename(base, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, now.UTC().Format("2006-01-02"), ext)
}

// ExportCSV renders records as CSV. The header is the first record's columns; every row is
// read by those names. Lines are joined by "\n" with no trailing newline.
//
// Only arrays and strings containing a comma are quoted, and embedded quotes are written
// as they are, so the output matches files operators already import.
func ExportCSV(records []models.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	headers := records[0].Keys()
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(headers, ","))

	cells := make([]string, len(headers))
	for _, rec := range records {
		for i, h := range headers {
			v, _ := rec.Get(h)
			cells[i] = csvCell(v)
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func csvCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case *string:
		if val == nil {
			return ""
		}
		return csvCell(*val)
	case []string:
		return `"` + strings.Join(val, "; ") + `"`
	case string:
		if strings.Contains(val, ",") {
			return `"` + val + `"`
		}
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// ExportXLSX renders records as a single-sheet workbook with the same columns as ExportCSV
func ExportXLSX(sheet string, records []models.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := records[0].Keys()
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", last, headerStyle)

	for r, rec := range records {
		for c, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			v, _ := rec.Get(h)
			f.SetCellValue(sheet, cell, xlsxCell(v))
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheet, "A", lastCol, 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func xlsxCell(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case []string:
		return strings.Join(val, "; ")
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return val
	}
}
