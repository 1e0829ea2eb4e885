// Package export renders returns as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"returnsdesk/internal/models"
	contextutils "returnsdesk/internal/utils"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet in the export
const SheetName = "İadeler"

// ContentType is the MIME type of the workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{
	"ID", "Sipariş No", "Ürün", "Marka", "Platform", "İade Nedeni", "İade Tarihi",
	"Durum", "Onaylayan", "Görsel", "Oluşturulma",
}

// Filename returns the attachment name for an export taken at t
func Filename(t time.Time) string {
	return fmt.Sprintf("iadeler_%s.xlsx", t.Format("20060102_150405"))
}

// WriteReturns writes one header row and one row per return, in the given order
func WriteReturns(w io.Writer, returns []models.Return) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return contextutils.WrapError(err, "failed to name worksheet")
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return contextutils.WrapError(err, "failed to write header row")
	}

	for i, r := range returns {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return contextutils.WrapError(err, "failed to address row")
		}
		row := []interface{}{
			r.ID, r.OrderID, r.Product, r.Brand, r.Platform, r.Reason, r.ReturnDate,
			r.Status.Label(), r.ApprovedBy.String, r.ImagePath.String, createdAt(r.CreatedAt),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return contextutils.WrapErrorf(err, "failed to write return %d", r.ID)
		}
	}

	if err := f.SetColWidth(SheetName, "B", "K", 18); err != nil {
		return contextutils.WrapError(err, "failed to size columns")
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return contextutils.WrapError(err, "failed to freeze header row")
	}

	if _, err := f.WriteTo(w); err != nil {
		return contextutils.WrapError(err, "failed to write workbook")
	}
	return nil
}

func createdAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
