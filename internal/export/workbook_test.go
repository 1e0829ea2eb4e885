package export

import (
	"bytes"
	"testing"
	"time"

	"returnsdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReturns(t *testing.T) {
	returns := []models.Return{
		{ID: 1, OrderID: "TY-1", Product: "Ayakkabı", Brand: "Nike", Platform: "Trendyol", Reason: "Beden Uymadı",
			ReturnDate: "2025-03-01", Status: models.StatusPending,
			CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		{ID: 2, OrderID: "HB-2", Product: "Çanta", Brand: "Mavi", Platform: "Hepsiburada", Reason: "Diğer",
			ReturnDate: "2025-03-02", Status: models.StatusApproved,
			ApprovedBy: models.NullString("warehouse"), ImagePath: models.NullString("static/uploads/canta.png")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReturns(&buf, returns))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Sipariş No", rows[0][1])
	assert.Equal(t, []string{"1", "TY-1", "Ayakkabı", "Nike", "Trendyol", "Beden Uymadı", "2025-03-01", "Bekliyor", "", "", "2025-03-01 09:30:00"}, rows[1])
	assert.Equal(t, "Onaylandı", rows[2][7])
	assert.Equal(t, "warehouse", rows[2][8])
	assert.Equal(t, "static/uploads/canta.png", rows[2][9])
}

func TestWriteReturns_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReturns(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "iadeler_20250102_030405.xlsx", Filename(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
}
