package attendance

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Attendance"

var exportHeader = []any{"Date", "Employee", "Username", "Check In", "Check Out", "Work Hours", "Status"}

// ExportFilename names the workbook after the filtered date range.
func ExportFilename(f Filters) string {
	start, end := f.StartDate, f.EndDate
	if start == "" {
		start = "all"
	}
	if end == "" {
		end = "now"
	}
	return fmt.Sprintf("attendance_%s_%s.xlsx", start, end)
}

// ExportXLSX writes rows as a single-sheet workbook.
func ExportXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", "G1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "A", "G", 16); err != nil {
		return err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Date, r.Name, r.Username, r.CheckIn, r.CheckOut, r.WorkHours, string(r.Status)}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}
