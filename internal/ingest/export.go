package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/query"
)

// ExportSheet is the sheet name used by WriteXLSX.
const ExportSheet = "prices"

// WriteXLSX writes recs as a single-sheet workbook. The header row uses the
// column identifiers, so the output can be uploaded again unchanged.
func WriteXLSX(w io.Writer, recs []domain.PriceRecord) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), ExportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	cols := query.Columns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Name()
	}
	if err := xl.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range recs {
		r := &recs[i]
		row := []any{
			r.ID, r.Region, r.Name, r.Address, r.Brand, r.SelfService,
			r.PremiumPrice, r.RegularPrice, r.DieselPrice, r.KerosenePrice,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := xl.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
