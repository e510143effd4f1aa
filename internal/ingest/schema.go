// Package ingest turns uploaded spreadsheets into price records and writes
// listings back out as workbooks.
package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/query"
)

// koreanHeaders are the column labels used by the Opinet price export.
var koreanHeaders = map[string]query.Column{
	"고유번호":  query.ColumnID,
	"지역":    query.ColumnRegion,
	"상호":    query.ColumnName,
	"주소":    query.ColumnAddress,
	"상표":    query.ColumnBrand,
	"셀프여부":  query.ColumnSelfService,
	"고급휘발유": query.ColumnPremiumPrice,
	"휘발유":   query.ColumnRegularPrice,
	"경유":    query.ColumnDieselPrice,
	"실내등유":  query.ColumnKerosenePrice,
}

// headerColumn maps one header cell to a column. Both the column identifier
// ("premium_price") and the Opinet label ("고급휘발유") are accepted.
func headerColumn(cell string) (query.Column, bool) {
	cell = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
	if c, ok := koreanHeaders[cell]; ok {
		return c, true
	}
	for _, c := range query.Columns() {
		if c.Name() == cell {
			return c, true
		}
	}
	return 0, false
}

// layout records, for each column, the index of the cell holding it.
type layout [10]int

// parseHeader checks that header contains exactly the ten known columns, in
// any order, each once.
func parseHeader(header []string) (layout, error) {
	var l layout
	for i := range l {
		l[i] = -1
	}

	// Trailing empty cells are common in spreadsheet exports.
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}

	for idx, cell := range header {
		col, ok := headerColumn(cell)
		if !ok {
			return l, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("unexpected column %q", strings.TrimSpace(cell)), nil)
		}
		if l[col] != -1 {
			return l, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("duplicate column %q", col.Name()), nil)
		}
		l[col] = idx
	}

	var missing []string
	for _, col := range query.Columns() {
		if l[col] == -1 {
			missing = append(missing, col.Name())
		}
	}
	if len(missing) > 0 {
		return l, domain.NewAppError(domain.CodeValidation, "missing columns: "+strings.Join(missing, ", "), nil)
	}
	return l, nil
}

// record builds a PriceRecord from one data row. line is the 1-based row
// number in the source file, used in error messages.
func (l layout) record(row []string, line int) (domain.PriceRecord, error) {
	cell := func(col query.Column) (string, error) {
		idx := l[col]
		v := ""
		if idx < len(row) {
			v = strings.TrimSpace(row[idx])
		}
		if v == "" {
			return "", domain.NewAppError(domain.CodeValidation, fmt.Sprintf("row %d: %s is empty", line, col.Name()), nil)
		}
		return v, nil
	}

	var (
		rec    domain.PriceRecord
		err    error
		prices [4]int
	)
	strs := []struct {
		col query.Column
		dst *string
	}{
		{query.ColumnID, &rec.ID},
		{query.ColumnRegion, &rec.Region},
		{query.ColumnName, &rec.Name},
		{query.ColumnAddress, &rec.Address},
		{query.ColumnBrand, &rec.Brand},
		{query.ColumnSelfService, &rec.SelfService},
	}
	for _, s := range strs {
		if *s.dst, err = cell(s.col); err != nil {
			return rec, err
		}
	}

	for i, col := range query.FuelPriceColumns() {
		v, err := cell(col)
		if err != nil {
			return rec, err
		}
		if prices[i], err = parsePrice(v); err != nil {
			return rec, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("row %d: %s: %v", line, col.Name(), err), nil)
		}
	}
	rec.PremiumPrice, rec.RegularPrice, rec.DieselPrice, rec.KerosenePrice = prices[0], prices[1], prices[2], prices[3]
	return rec, nil
}

// parsePrice accepts integers with optional thousands separators and
// integral decimals such as "1689.0".
func parsePrice(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative price %d", n)
	}
	return n, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
