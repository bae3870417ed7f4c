package attendees

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Attendees"

// rosterColumns match the import header detection, so an exported roster can be re-imported.
var rosterColumns = []string{"Ticket ID", "Name", "Email", "Created At"}

// ExportOptions configures the roster workbook.
type ExportOptions struct {
	SheetName    string
	FreezeHeader bool
	AutoFilter   bool
	HeaderFill   string
	HeaderFont   string
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		SheetName:    rosterSheet,
		FreezeHeader: true,
		AutoFilter:   true,
		HeaderFill:   "4472C4",
		HeaderFont:   "FFFFFF",
	}
}

// WriteRoster writes attendees as an .xlsx workbook to w.
func WriteRoster(w io.Writer, attendees []Attendee, options ExportOptions) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := options.SheetName
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: options.HeaderFont},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{options.HeaderFill}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	dateFormat := "yyyy-mm-dd hh:mm:ss"
	dateStyle, err := file.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	widths := make([]int, len(rosterColumns))
	for i, col := range rosterColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
		widths[i] = utf8.RuneCountInString(col)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(rosterColumns), 1)
	if err := file.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, a := range attendees {
		row := i + 2
		email := ""
		if a.Email != nil {
			email = *a.Email
		}
		var created interface{} = ""
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt
		}
		values := []interface{}{a.TicketID, a.Name, email, created}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
			if s, ok := val.(string); ok && utf8.RuneCountInString(s) > widths[col] {
				widths[col] = utf8.RuneCountInString(s)
			}
		}
		dateCell, _ := excelize.CoordinatesToCellName(4, row)
		if err := file.SetCellStyle(sheet, dateCell, dateCell, dateStyle); err != nil {
			return err
		}
	}
	widths[3] = 20

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		// Min width 10, max width 50
		w := float64(width) * 1.2
		if w < 10 {
			w = 10
		}
		if w > 50 {
			w = 50
		}
		if err := file.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	if options.FreezeHeader {
		if err := file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}
	if options.AutoFilter && len(attendees) > 0 {
		if err := file.AutoFilter(sheet, "A1:"+lastHeader, nil); err != nil {
			return fmt.Errorf("failed to add auto filter: %w", err)
		}
	}

	return file.Write(w)
}
