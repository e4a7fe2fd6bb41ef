package generate_excel

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"mes-staging/internal/service/allocate"
)

const (
	pickSheet     = "Pick sheet"
	leftoverSheet = "Leftover"
)

type FanOutPreviewer interface {
	Preview(ctx context.Context, req allocate.Request) (allocate.Result, error)
}

type GenerateExcelService struct {
	fanOut FanOutPreviewer
}

func NewGenerateService(fanOut FanOutPreviewer) *GenerateExcelService {
	return &GenerateExcelService{fanOut: fanOut}
}

// GeneratePickSheet previews the fan-out and renders it for the storekeeper:
// one row per order, item and batch in FIFO order, plus the unallocated rest.
func (g *GenerateExcelService) GeneratePickSheet(ctx context.Context, req allocate.Request) ([]byte, error) {
	const op = "generate_excel.GeneratePickSheet"

	res, err := g.fanOut.Preview(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: preview: %w", op, err)
	}

	data, err := PickSheet(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// PickSheet writes a fan-out result as an xlsx workbook.
func PickSheet(res allocate.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", pickSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, err
	}

	headers := []string{"#", "Order", "Item", "Batch", "Qty", "UOM", "From", "To"}
	writeHeader(f, pickSheet, headers, headerStyle)

	row := 2
	for i, mv := range res.Movements {
		for _, line := range mv.Lines {
			f.SetCellValue(pickSheet, cellName(1, row), i+1)
			f.SetCellValue(pickSheet, cellName(2, row), mv.OrderID)
			f.SetCellValue(pickSheet, cellName(3, row), line.ItemID)
			f.SetCellValue(pickSheet, cellName(4, row), line.BatchID)
			f.SetCellValue(pickSheet, cellName(5, row), line.Qty)
			f.SetCellValue(pickSheet, cellName(6, row), line.UOM)
			f.SetCellValue(pickSheet, cellName(7, row), mv.SourceWarehouse)
			f.SetCellValue(pickSheet, cellName(8, row), mv.DestWarehouse)
			row++
		}
	}

	f.SetPanes(pickSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
	})
	f.SetColWidth(pickSheet, "B", "D", 18)
	f.SetColWidth(pickSheet, "G", "H", 22)

	if len(res.Plan.Leftover) > 0 {
		if _, err := f.NewSheet(leftoverSheet); err != nil {
			return nil, err
		}
		writeHeader(f, leftoverSheet, []string{"Item", "Qty"}, headerStyle)

		items := make([]string, 0, len(res.Plan.Leftover))
		for item := range res.Plan.Leftover {
			items = append(items, item)
		}
		sort.Strings(items)

		for i, item := range items {
			f.SetCellValue(leftoverSheet, cellName(1, i+2), item)
			f.SetCellValue(leftoverSheet, cellName(2, i+2), res.Plan.Leftover[item])
		}
		f.SetColWidth(leftoverSheet, "A", "A", 18)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, name := range headers {
		f.SetCellValue(sheet, cellName(i+1, 1), name)
	}
	f.SetCellStyle(sheet, "A1", cellName(len(headers), 1), style)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
