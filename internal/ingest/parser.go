// Package ingest turns uploaded capital-account workbooks into typed fact
// rows and persists them as one batch.
package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

// Workbook column headers, matched case-sensitively against the header row.
const (
	ColFecha       = "Fecha"
	ColCentro      = "Centro"
	ColConcepto    = "Concepto"
	ColInicial     = "Inicial"
	ColAportacion  = "Aportación"
	ColRetiro      = "Retiro"
	ColRendimiento = "Rendimiento"
	ColSaldo       = "Saldo"
)

// RequiredColumns lists every header an uploadable workbook must carry.
var RequiredColumns = []string{
	ColFecha, ColCentro, ColConcepto,
	ColInicial, ColAportacion, ColRetiro, ColRendimiento, ColSaldo,
}

// ParseWorkbook reads the first sheet of an xlsx workbook and maps each data
// row to a core.FactRow. A missing header yields a core.SchemaFault; a cell
// that fails coercion yields a core.DataFault naming the workbook row and
// column. Rows that are entirely empty are skipped.
func ParseWorkbook(r io.Reader, filename string) ([]core.FactRow, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", filename, err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %q has no sheets", filename)
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &core.SchemaFault{File: filename, Column: ColFecha}
	}

	cols := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		cols[strings.TrimSpace(header)] = i
	}
	for _, required := range RequiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, &core.SchemaFault{File: filename, Column: required}
		}
	}

	facts := make([]core.FactRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if emptyRow(cells) {
			continue
		}
		// Workbook rows are 1-based and row 1 is the header.
		rowNum := i + 2

		fact, err := mapRow(cells, cols, rowNum)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func mapRow(cells []string, cols map[string]int, rowNum int) (core.FactRow, error) {
	date, err := parseDateCell(cells, cols[ColFecha], rowNum)
	if err != nil {
		return core.FactRow{}, err
	}

	fact := core.FactRow{
		Date:     date,
		Centro:   strings.TrimSpace(cell(cells, cols[ColCentro])),
		Concepto: strings.TrimSpace(cell(cells, cols[ColConcepto])),
	}

	numeric := []struct {
		column string
		dst    *float64
	}{
		{ColInicial, &fact.Opening},
		{ColAportacion, &fact.Contribution},
		{ColRetiro, &fact.Withdrawal},
		{ColRendimiento, &fact.Return},
		{ColSaldo, &fact.Closing},
	}
	for _, n := range numeric {
		v, err := parseFloatCell(cells, cols[n.column], n.column, rowNum)
		if err != nil {
			return core.FactRow{}, err
		}
		*n.dst = v
	}
	return fact, nil
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDateCell(cells []string, idx, rowNum int) (core.Date, error) {
	raw := strings.TrimSpace(cell(cells, idx))
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, &core.DataFault{Row: rowNum, Column: ColFecha, Value: raw, Err: err}
	}
	return d, nil
}

func parseFloatCell(cells []string, idx int, column string, rowNum int) (float64, error) {
	raw := strings.TrimSpace(cell(cells, idx))
	// Formatted cells may carry thousands separators.
	normalized := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, &core.DataFault{Row: rowNum, Column: column, Value: raw, Err: err}
	}
	return v, nil
}
