package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xuri/excelize/v2"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

// handleReportExport streams the current filtered report as an xlsx workbook:
// a KPI block followed by the aggregated detail rows.
func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	facts, err := s.facts.LoadAllFacts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Load facts error", "error", err)
		http.Error(w, "could not load data", http.StatusInternalServerError)
		return
	}

	f, ok := parseFilter(r.URL.Query(), facts)
	if !ok {
		http.Error(w, "no data to export", http.StatusNotFound)
		return
	}

	view, err := core.ComputeView(facts, f)
	if errors.Is(err, core.ErrEmptyResult) {
		http.Error(w, "no data for these filters", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Compute view error", "error", err)
		http.Error(w, "could not compute the report", http.StatusInternalServerError)
		return
	}

	payload, err := buildExportWorkbook(view)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export workbook error", "error", err)
		http.Error(w, "could not build the export", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("report_%s_%s_%s.xlsx", f.Centro, f.From, f.To)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(payload)

	slog.InfoContext(r.Context(), "Report exported",
		"centro", f.Centro,
		"concepto", f.Concepto,
		"rows", len(view.Rows))
}

func buildExportWorkbook(view core.ReportView) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)

	kpiRows := [][]any{
		{"Centro", view.Filter.Centro},
		{"Concepto", view.Filter.Concepto},
		{"From", view.Filter.From.String()},
		{"To", view.Filter.To.String()},
		{},
		{"Opening Capital", view.KPIs.OpeningCapital},
		{"Closing Capital", view.KPIs.ClosingCapital},
		{"Contributions", view.KPIs.TotalContributions},
		{"Withdrawals", view.KPIs.TotalWithdrawals},
		{"Total Return", view.KPIs.TotalReturn},
		{"Return %", view.KPIs.ReturnPercent},
		{},
		{"Fecha", "Centro", "Concepto", "Inicial", "Aportación", "Retiro", "Rendimiento", "Saldo"},
	}
	row := 1
	for _, cells := range kpiRows {
		if len(cells) > 0 {
			ref, _ := excelize.CoordinatesToCellName(1, row)
			if err := wb.SetSheetRow(sheet, ref, &cells); err != nil {
				return nil, fmt.Errorf("write export row %d: %w", row, err)
			}
		}
		row++
	}
	for _, fact := range view.Rows {
		cells := []any{
			fact.Date.String(), fact.Centro, fact.Concepto,
			fact.Opening, fact.Contribution, fact.Withdrawal, fact.Return, fact.Closing,
		}
		ref, _ := excelize.CoordinatesToCellName(1, row)
		if err := wb.SetSheetRow(sheet, ref, &cells); err != nil {
			return nil, fmt.Errorf("write export row %d: %w", row, err)
		}
		row++
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize export workbook: %w", err)
	}
	return buf.Bytes(), nil
}
