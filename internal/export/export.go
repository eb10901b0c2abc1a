// Package export renders transactions as downloadable spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	SheetName = "Transactions"
)

var header = []string{"Date", "Type", "Category", "Description", "Amount", "Currency", "Bitcoin Price", "Satoshis"}

var columnWidths = []float64{12, 10, 22, 40, 14, 10, 16, 16}

// ParseFormat maps a query value to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

func Write(w io.Writer, format Format, transactions []domain.Transaction, currency string) error {
	if format == FormatXLSX {
		return WriteXLSX(w, transactions, currency)
	}
	return WriteCSV(w, transactions, currency)
}

func WriteCSV(w io.Writer, transactions []domain.Transaction, currency string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}
	for _, t := range transactions {
		record := []string{
			t.Date.String(),
			t.Type,
			categoryName(t),
			t.Description,
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			currency,
			strconv.FormatFloat(t.BitcoinPrice, 'f', 2, 64),
			strconv.FormatInt(t.SatoshiAmount, 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("could not write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, transactions []domain.Transaction, currency string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("could not name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("could not open sheet writer: %w", err)
	}

	// widths must be set before the first row is streamed
	for i, width := range columnWidths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return fmt.Errorf("could not set column width: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("could not create header style: %w", err)
	}
	headerRow := make([]interface{}, len(header))
	for i, title := range header {
		headerRow[i] = excelize.Cell{StyleID: bold, Value: title}
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("could not write header row: %w", err)
	}

	for i, t := range transactions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			t.Date.String(),
			t.Type,
			categoryName(t),
			t.Description,
			t.Amount,
			currency,
			t.BitcoinPrice,
			t.SatoshiAmount,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("could not write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("could not flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("could not write workbook: %w", err)
	}
	return nil
}

func categoryName(t domain.Transaction) string {
	if t.CategoryName == nil {
		return "Uncategorized"
	}
	return *t.CategoryName
}
