// Package export renders tabular data as an HTML table that spreadsheet applications open as a
// workbook when served with an .xls extension.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ContentType is the media type served with exported sheets.
const ContentType = "application/vnd.ms-excel; charset=utf-8"

const defaultSheetName = "Sheet1"

var (
	// ErrNoRows indicates there is nothing to export.
	ErrNoRows = errors.New("export: no rows to export")
	// ErrNoHeaders indicates the sheet has no columns.
	ErrNoHeaders = errors.New("export: no headers")
	// ErrRaggedRow indicates a row does not have one cell per header.
	ErrRaggedRow = errors.New("export: row width does not match headers")
)

var cellEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Spreadsheet is a single worksheet of uniform rows.
type Spreadsheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Validate reports whether the sheet can be rendered.
func (s Spreadsheet) Validate() error {
	if len(s.Headers) == 0 {
		return ErrNoHeaders
	}
	if len(s.Rows) == 0 {
		return ErrNoRows
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Headers) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedRow, i+1, len(row), len(s.Headers))
		}
	}
	return nil
}

// WriteTo renders the sheet to w. Nothing is written when the sheet is invalid.
func (s Spreadsheet) WriteTo(w io.Writer) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = defaultSheetName
	}

	var b strings.Builder
	b.WriteString(`<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:x="urn:schemas-microsoft-com:office:excel" xmlns="http://www.w3.org/TR/REC-html40">` + "\n")
	b.WriteString(`<head><meta charset="UTF-8"><!--[if gte mso 9]><xml><x:ExcelWorkbook><x:ExcelWorksheets><x:ExcelWorksheet><x:Name>`)
	b.WriteString(cellEscaper.Replace(name))
	b.WriteString(`</x:Name><x:WorksheetOptions><x:DisplayGridlines/></x:WorksheetOptions></x:ExcelWorksheet></x:ExcelWorksheets></x:ExcelWorkbook></xml><![endif]--></head>` + "\n")
	b.WriteString("<body>\n<table border=\"1\">\n")

	b.WriteString(`<tr style="background-color:#D9E1F2;font-weight:bold">`)
	for _, h := range s.Headers {
		b.WriteString("<th>")
		b.WriteString(cellEscaper.Replace(h))
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n")

	for _, row := range s.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(cellEscaper.Replace(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n</body>\n</html>\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
