package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX renders the ledger as a spreadsheet, one posting per row with
// the same column layout the application tracker sheet uses.
func (d *DB) ExportXLSX(ctx context.Context) ([]byte, error) {
	postings, err := d.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Applications"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Source",
		"Title",
		"Link",
		"Date Found",
		"Status",
		"Resume File",
		"Cover File",
		"Response Status",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, p := range postings {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, p.Source)
		write(2, p.Title)
		write(3, p.Link)
		write(4, p.DiscoveredAt.UTC().Format(time.RFC3339))
		write(5, string(p.Status))
		write(6, p.ResumeRef)
		write(7, p.CoverRef)
		write(8, string(p.ResponseStatus))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
