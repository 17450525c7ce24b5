// Package export выгружает историю посещений в xlsx.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"kada-commute/internal/models"
)

const sheetName = "История"

var header = []string{"Дата", "Приход", "Уход"}

// FileName - имя файла выгрузки для сотрудника
func FileName(user models.User, now time.Time) string {
	return fmt.Sprintf("history_%s_%s.xlsx", user.ID.String(), now.Format("2006-01-02"))
}

// HistoryXLSX возвращает книгу с одним листом: строка заголовка и по строке
// на запись в том порядке, в котором записи пришли из API.
func HistoryXLSX(user models.User, records []models.AttendanceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("переименование листа: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("стиль заголовка: %w", err)
	}

	if err := f.SetCellValue(sheetName, "A1", user.Name); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, "B1", user.Location); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheetName, "A3", &header); err != nil {
		return nil, fmt.Errorf("заголовок: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", bold); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A3", "C3", bold); err != nil {
		return nil, err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		row := []interface{}{r.Date, r.CheckIn(), r.CheckOut()}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("строка %s: %w", r.Date, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "C", 14); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("запись книги: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}
