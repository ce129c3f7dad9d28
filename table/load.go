package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kshedden/dstream/dstream"
	"github.com/xuri/excelize/v2"
)

// Load reads a table from a CSV or XLSX file, chosen by the file
// extension.  sheet selects the worksheet of an XLSX file, the first
// sheet is used when it is empty.
func Load(path string, sheet string) (*Table, error) {

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return readWorkbook(f, sheet)
	default:
		fid, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer fid.Close()
		return ReadCSV(fid)
	}
}

// ReadCSV reads a table from CSV data with a header row.  A column is
// numeric when every value parses as a number, otherwise it is
// categorical.
func ReadCSV(r io.Reader) (*Table, error) {

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	// Determine the column types before handing the data to dstream.
	cr := csv.NewReader(bytes.NewReader(raw))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("csv data needs a header and at least one row")
	}
	header := records[0]
	kinds := inferKinds(len(header), records[1:])

	types := make([]dstream.VarType, len(header))
	for j, na := range header {
		if kinds[j] == Numeric {
			types[j] = dstream.VarType{Name: na, Type: dstream.Float64}
		} else {
			types[j] = dstream.VarType{Name: na, Type: dstream.String}
		}
	}

	da := dstream.FromCSV(bytes.NewReader(raw)).SetTypes(types).HasHeader().Done()

	floats := make(map[string][]float64)
	strs := make(map[string][]string)
	for da.Next() {
		for j, na := range da.Names() {
			switch x := da.GetPos(j).(type) {
			case []float64:
				floats[na] = append(floats[na], x...)
			case []string:
				strs[na] = append(strs[na], x...)
			default:
				return nil, fmt.Errorf("column %q has unsupported type %T", na, x)
			}
		}
	}

	cols := make([]Column, len(header))
	for j, na := range header {
		if kinds[j] == Numeric {
			cols[j] = NewNumeric(na, floats[na])
		} else {
			cols[j] = NewCategorical(na, strs[na])
		}
	}

	return New(cols...)
}

// ReadXLSX reads a table from an XLSX workbook.  The first row of the
// sheet is the header.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, sheet)
}

func readWorkbook(f *excelize.File, sheet string) (*Table, error) {

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q needs a header and at least one row", sheet)
	}

	header := rows[0]
	body := rows[1:]

	// Trailing empty cells are omitted by excelize.
	for i, row := range body {
		for len(row) < len(header) {
			row = append(row, "")
		}
		body[i] = row[0:len(header)]
	}

	kinds := inferKinds(len(header), body)

	cols := make([]Column, len(header))
	for j, na := range header {
		if kinds[j] == Numeric {
			x := make([]float64, len(body))
			for i, row := range body {
				x[i], _ = strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			}
			cols[j] = NewNumeric(na, x)
		} else {
			x := make([]string, len(body))
			for i, row := range body {
				x[i] = row[j]
			}
			cols[j] = NewCategorical(na, x)
		}
	}

	return New(cols...)
}

// inferKinds returns Numeric for the columns where every value parses
// as a float.
func inferKinds(ncol int, rows [][]string) []Kind {

	kinds := make([]Kind, ncol)
	for j := range kinds {
		for _, row := range rows {
			if j >= len(row) {
				kinds[j] = Categorical
				break
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64); err != nil {
				kinds[j] = Categorical
				break
			}
		}
	}

	return kinds
}
