package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

// filterState is the sidebar state shared by the index page and the report
// partial.
type filterState struct {
	Centro    string
	Concepto  string
	From      string
	To        string
	Centros   []string
	Conceptos []string
}

func newFilterState(f core.Filter, facts []core.FactRow) filterState {
	return filterState{
		Centro:    f.Centro,
		Concepto:  f.Concepto,
		From:      f.From.String(),
		To:        f.To.String(),
		Centros:   core.Centros(facts),
		Conceptos: core.Conceptos(facts, f.Centro),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	facts, err := s.facts.LoadAllFacts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Load facts error", "error", err)
		http.Error(w, "could not load data", http.StatusInternalServerError)
		return
	}

	data := struct {
		HasData   bool
		Filter    filterState
		ReportURL string
	}{}
	if f, ok := parseFilter(r.URL.Query(), facts); ok {
		data.HasData = true
		data.Filter = newFilterState(f, facts)
		data.ReportURL = reportQuery("/ui/report", f)
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleReportPartial renders the KPI panel, chart and detail table for the
// requested filters.
func (s *Server) handleReportPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	facts, err := s.facts.LoadAllFacts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Load facts error", "error", err)
		s.renderReportMessage(w, r, "Could not load data. Try again.")
		return
	}

	f, ok := parseFilter(r.URL.Query(), facts)
	if !ok {
		s.renderReportMessage(w, r, "No data loaded yet. Upload a workbook to get started.")
		return
	}

	view, err := core.ComputeView(facts, f)
	if errors.Is(err, core.ErrEmptyResult) {
		s.renderReportMessage(w, r, "No data for these filters.")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Compute view error", "error", err,
			"centro", f.Centro, "concepto", f.Concepto)
		s.renderReportMessage(w, r, "Could not compute the report.")
		return
	}

	data := struct {
		Filter    filterState
		KPIs      core.KPISet
		Chart     chart
		Rows      []core.FactRow
		ExportURL string
	}{
		Filter:    newFilterState(f, facts),
		KPIs:      view.KPIs,
		Chart:     buildChart(view.Series),
		Rows:      view.Rows,
		ExportURL: reportQuery("/report/export", f),
	}

	if err := s.templates.ExecuteTemplate(w, "report.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "report.html")
		_, _ = w.Write([]byte(`<section id="report"><div class="placeholder">Error rendering report</div></section>`))
	}
}

func (s *Server) renderReportMessage(w http.ResponseWriter, r *http.Request, msg string) {
	if s.templates != nil {
		data := struct{ Message string }{Message: msg}
		if err := s.templates.ExecuteTemplate(w, "report_empty.html", data); err == nil {
			return
		}
	}
	_, _ = fmt.Fprintf(w, `<section id="report"><div class="placeholder">%s</div></section>`, msg)
}

// reportQuery builds a URL for the given filter.
func reportQuery(path string, f core.Filter) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteString("?centro=")
	b.WriteString(queryEscape(f.Centro))
	b.WriteString("&concepto=")
	b.WriteString(queryEscape(f.Concepto))
	b.WriteString("&from=")
	b.WriteString(f.From.String())
	b.WriteString("&to=")
	b.WriteString(f.To.String())
	return b.String()
}

// chart holds precomputed SVG geometry for the closing-balance series.
type chart struct {
	Width    int
	Height   int
	Points   string
	MinLabel string
	MaxLabel string
	Start    string
	End      string
}

const (
	chartWidth  = 720
	chartHeight = 240
	chartPad    = 12
)

// buildChart scales the series into SVG polyline coordinates. The series is
// already sorted ascending by date.
func buildChart(series []core.SeriesPoint) chart {
	c := chart{Width: chartWidth, Height: chartHeight}
	if len(series) == 0 {
		return c
	}

	min, max := series[0].Closing, series[0].Closing
	for _, p := range series {
		if p.Closing < min {
			min = p.Closing
		}
		if p.Closing > max {
			max = p.Closing
		}
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	innerW := float64(chartWidth - 2*chartPad)
	innerH := float64(chartHeight - 2*chartPad)
	step := 0.0
	if len(series) > 1 {
		step = innerW / float64(len(series)-1)
	}

	var b strings.Builder
	for i, p := range series {
		x := float64(chartPad) + step*float64(i)
		if len(series) == 1 {
			x = float64(chartWidth) / 2
		}
		y := float64(chartPad) + innerH*(1-(p.Closing-min)/span)
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}

	c.Points = b.String()
	c.MinLabel = formatMoney(min)
	c.MaxLabel = formatMoney(max)
	c.Start = series[0].Date.String()
	c.End = series[len(series)-1].Date.String()
	return c
}
