package document

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet is one parsed spreadsheet tab: a header row plus data rows.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// ReadSheets parses every tab of an XLSX file. The first row of each tab is
// treated as the header row; tabs without rows come back empty but present.
func ReadSheets(path string) ([]*Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "document: open xlsx file")
	}

	sheets := make([]*Sheet, 0, len(f.Sheets))
	for _, src := range f.Sheets {
		s := &Sheet{Name: src.Name}
		for i, row := range src.Rows {
			cells := rowToStrings(row)
			if i == 0 {
				s.Headers = cells
				continue
			}
			s.Rows = append(s.Rows, cells)
		}
		sheets = append(sheets, s)
	}

	return sheets, nil
}

// Column returns the index of the first header accepted by match.
func (s *Sheet) Column(match func(header string) bool) (int, bool) {
	for i, h := range s.Headers {
		if match(h) {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the value at (row, col), or empty string when the row is
// shorter than col.
func (s *Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) {
		return ""
	}
	cells := s.Rows[row]
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
