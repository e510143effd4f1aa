package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/simp-lee/gasboard/internal/domain"
)

func TestWriteXLSX_RoundTrip(t *testing.T) {
	recs := []domain.PriceRecord{
		{ID: "A1", Region: "서울", Name: "하나", Address: "주소1", Brand: "SK에너지", SelfService: "Y", PremiumPrice: 1900, RegularPrice: 1700, DieselPrice: 1600},
		{ID: "A2", Region: "부산", Name: "둘", Address: "주소2", Brand: "GS칼텍스", SelfService: "N", RegularPrice: 1650, DieselPrice: 1550, KerosenePrice: 1300},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, recs))

	xl, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer xl.Close()
	assert.Equal(t, []string{ExportSheet}, xl.GetSheetList())

	back, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, recs, back)
}

func TestWriteXLSX_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	xl, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "kerosene_price", rows[0][9])
}
