// Package spreadsheet reads uploaded sheets and writes the XLSX reports.
package spreadsheet

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/eteeap/core"
)

const maxRows = 100000

func fileError(msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "file", Error: msg})
}

// ReadRows returns the cells of the only sheet of an .xls or .xlsx file.
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading spreadsheet")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fileError("not a valid .xls file")
		}
		switch n := workbook.NumSheets(); {
		case n == 0:
			return nil, fileError("no worksheet found")
		case n > 1:
			return nil, fileError("multiple worksheets found; please upload a file with a single sheet")
		}
		rows := workbook.ReadAllCells(maxRows)
		if len(rows) == 0 {
			return nil, fileError("worksheet is empty")
		}
		return rows, nil
	case ".xlsx":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fileError("not a valid .xlsx file")
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, fileError("no worksheet found")
		}
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, errors.Wrap(err, "reading worksheet")
		}
		if len(rows) == 0 {
			return nil, fileError("worksheet is empty")
		}
		return rows, nil
	}
	return nil, fileError("only .xls and .xlsx files are supported")
}
