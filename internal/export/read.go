package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Read loads an artifact back as a header and data rows. Every row is padded
// to the header width, since excelize drops trailing blank cells.
func Read(path string) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s: workbook has no sheets", path)
	}

	it, err := f.Rows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}
	defer func() { _ = it.Close() }()

	for it.Next() {
		cols, err := it.Columns()
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		if header == nil {
			header = cols
			continue
		}
		if len(cols) < len(header) {
			cols = append(cols, make([]string, len(header)-len(cols))...)
		}
		rows = append(rows, cols)
	}
	if err := it.Error(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return header, rows, nil
}
