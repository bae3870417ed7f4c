package attendees

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for roster files that are neither spreadsheets nor CSV.
	ErrUnsupportedFormat = errors.New("unsupported roster format, expected .xlsx or .csv")
	// ErrMissingColumns is returned when a header row lacks the ticket or name column.
	ErrMissingColumns = errors.New("roster header must contain ticket ID and name columns")
	// ErrUnreadable is returned when a roster file cannot be decoded.
	ErrUnreadable = errors.New("roster file could not be read")
)

// columnMap holds zero-based column positions; -1 means absent.
type columnMap struct {
	ticket int
	name   int
	email  int
}

// Without a header row columns are read as ticket ID, name, email.
var defaultColumns = columnMap{ticket: 0, name: 1, email: 2}

// record is one roster line. reason is set when the line could not be decoded.
type record struct {
	fields []string
	reason string
}

// ParseRoster reads attendee rows from an Excel workbook (first sheet) or a CSV file.
// Malformed CSV records come back as rows carrying a Reason so the import can skip them.
func ParseRoster(filename string, r io.Reader) ([]Row, error) {
	var records []record
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}

	return rowsFromRecords(records)
}

func readWorkbook(r io.Reader) ([]record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	records := make([]record, len(rows))
	for i, row := range rows {
		records[i] = record{fields: row}
	}
	return records, nil
}

// readCSV keeps going past malformed records. Quoting stays strict so a stray
// quote is reported instead of being merged into a name.
func readCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			records = append(records, record{reason: "malformed CSV record: " + parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		records = append(records, record{fields: fields})
	}
}

func rowsFromRecords(records []record) ([]Row, error) {
	columns := defaultColumns
	start := 0

	for i, rec := range records {
		if rec.reason != "" {
			break
		}
		if isBlank(rec.fields) {
			continue
		}
		if cols, ok := detectHeader(rec.fields); ok {
			if cols.ticket < 0 || cols.name < 0 {
				return nil, ErrMissingColumns
			}
			columns = cols
			start = i + 1
		}
		break
	}

	var rows []Row
	for i := start; i < len(records); i++ {
		rec := records[i]
		if rec.reason != "" {
			rows = append(rows, Row{Line: i + 1, Reason: rec.reason})
			continue
		}
		if isBlank(rec.fields) {
			continue
		}
		rows = append(rows, Row{
			Line:     i + 1,
			TicketID: cell(rec.fields, columns.ticket),
			Name:     cell(rec.fields, columns.name),
			Email:    cell(rec.fields, columns.email),
		})
	}
	return rows, nil
}

// detectHeader reports whether fields look like a header row and maps its columns.
func detectHeader(fields []string) (columnMap, bool) {
	cols := columnMap{ticket: -1, name: -1, email: -1}
	found := false
	for i, raw := range fields {
		label := headerLabel.Replace(strings.ToLower(strings.TrimSpace(raw)))
		switch {
		case ticketLabels[label] && cols.ticket < 0:
			cols.ticket = i
			found = true
		case nameLabels[label] && cols.name < 0:
			cols.name = i
			found = true
		case emailLabels[label] && cols.email < 0:
			cols.email = i
			found = true
		}
	}
	return cols, found
}

var (
	headerLabel  = strings.NewReplacer(" ", "", "_", "", "-", "", ".", "")
	ticketLabels = map[string]bool{
		"ticket": true, "ticketid": true, "ticketno": true, "ticketnumber": true,
		"ticketcode": true, "ticketref": true, "ticket#": true,
	}
	nameLabels   = map[string]bool{"name": true, "fullname": true, "attendee": true, "attendeename": true}
	emailLabels  = map[string]bool{"email": true, "mail": true, "emailaddress": true}
)

func cell(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

func isBlank(fields []string) bool {
	for _, v := range fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
