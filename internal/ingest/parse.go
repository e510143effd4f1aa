package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/simp-lee/gasboard/internal/domain"
)

// Supported upload formats.
const (
	FormatCSV  = ".csv"
	FormatXLSX = ".xlsx"
)

// Parse reads every record from an uploaded file. The format is chosen from
// the file name's extension.
//
// The first non-blank row must be a header naming exactly the ten record
// columns. Any empty cell, malformed price or header mismatch rejects the
// whole file with a validation error; nothing is returned partially.
func Parse(filename string, r io.Reader) ([]domain.PriceRecord, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("unsupported file type %q: use .csv or .xlsx", filepath.Ext(filename)), nil)
	}
}

// ParseCSV reads records from CSV data. UTF-8 (with or without BOM) and
// EUC-KR encoded files are accepted.
func ParseCSV(r io.Reader) ([]domain.PriceRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
		if err != nil {
			return nil, domain.NewAppError(domain.CodeValidation, "csv is neither UTF-8 nor EUC-KR", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewAppError(domain.CodeValidation, "malformed csv", err)
		}
		rows = append(rows, row)
	}
	return fromRows(rows)
}

// ParseXLSX reads records from the first sheet of an XLSX workbook.
func ParseXLSX(r io.Reader) ([]domain.PriceRecord, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "malformed xlsx", err)
	}
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewAppError(domain.CodeValidation, "xlsx has no sheets", nil)
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "read xlsx sheet", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]domain.PriceRecord, error) {
	start := 0
	for start < len(rows) && isBlankRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, domain.NewAppError(domain.CodeValidation, "file has no header row", nil)
	}

	l, err := parseHeader(rows[start])
	if err != nil {
		return nil, err
	}

	records := make([]domain.PriceRecord, 0, len(rows)-start-1)
	for i := start + 1; i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		rec, err := l.record(rows[i], i+1)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
