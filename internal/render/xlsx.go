package render

import (
	"fmt"

	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/installment"

	"github.com/xuri/excelize/v2"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const scheduleSheet = "Grafik"

type scheduleColumn struct {
	Header string
	Width  float64
	Value  func(installment.Installment) interface{}
}

var scheduleColumns = []scheduleColumn{
	{Header: "№", Width: 6, Value: func(r installment.Installment) interface{} { return r.Number }},
	{Header: "To'lov sanasi", Width: 16, Value: func(r installment.Installment) interface{} { return r.DueDate.Format("02.01.2006") }},
	{Header: "To'lov summasi", Width: 20, Value: func(r installment.Installment) interface{} { return r.Amount.InexactFloat64() }},
	{Header: "Qoldiq", Width: 20, Value: func(r installment.Installment) interface{} { return r.Remaining.InexactFloat64() }},
}

// ScheduleXLSX writes the payment schedule of one contract as a workbook.
func ScheduleXLSX(paymentID int64, terms installment.Terms, rows []installment.Installment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), scheduleSheet)
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("SHARTNOMA № %d", paymentID),
		Subject: "To'lov grafigi",
	})

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContractRender, err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContractRender, err)
	}

	summary := [][2]interface{}{
		{"Shartnoma", paymentID},
		{"Umumiy narx", terms.TotalAmount.InexactFloat64()},
		{"Boshlang'ich to'lov", terms.InitialPayment.InexactFloat64()},
		{"Ustama, %", terms.InterestRate.InexactFloat64()},
		{"Muddat, oy", terms.DurationMonths},
		{"Oylik to'lov", terms.MonthlyPayment.InexactFloat64()},
	}
	for i, kv := range summary {
		label, _ := excelize.CoordinatesToCellName(1, i+1)
		value, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(scheduleSheet, label, kv[0])
		_ = f.SetCellValue(scheduleSheet, value, kv[1])
	}

	headerRow := len(summary) + 2
	for i, col := range scheduleColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(scheduleSheet, cell, col.Header)
		_ = f.SetCellStyle(scheduleSheet, cell, cell, header)

		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(scheduleSheet, name, name, col.Width)
	}

	rowIdx := headerRow + 1
	for _, r := range rows {
		for colIdx, col := range scheduleColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			_ = f.SetCellValue(scheduleSheet, cell, col.Value(r))
		}
		rowIdx++
	}
	if len(rows) > 0 {
		first, _ := excelize.CoordinatesToCellName(3, headerRow+1)
		last, _ := excelize.CoordinatesToCellName(4, rowIdx-1)
		_ = f.SetCellStyle(scheduleSheet, first, last, money)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContractRender, err)
	}
	return buf.Bytes(), nil
}
