package http

import (
	"net/url"
	"strings"
	"testing"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{1234.5, "$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{-987654.3, "-$987,654.30"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(0.07); got != "7.00%" {
		t.Errorf("formatPercent(0.07) = %q, want 7.00%%", got)
	}
	if got := formatPercent(0); got != "0.00%" {
		t.Errorf("formatPercent(0) = %q, want 0.00%%", got)
	}
}

func TestParseFilterDefaults(t *testing.T) {
	facts := sampleFacts(t)

	f, ok := parseFilter(url.Values{}, facts)
	if !ok {
		t.Fatal("expected a filter from non-empty data")
	}
	if f.Centro != "Norte" {
		t.Errorf("expected first centro Norte, got %q", f.Centro)
	}
	if f.Concepto != core.AllConceptos {
		t.Errorf("expected aggregate concepto default, got %q", f.Concepto)
	}
	if f.From.String() != "2024-01-31" || f.To.String() != "2024-02-29" {
		t.Errorf("expected date bounds of the centro, got %s..%s", f.From, f.To)
	}
}

func TestParseFilterScopesBoundsToCentro(t *testing.T) {
	facts := sampleFacts(t)

	f, ok := parseFilter(url.Values{"centro": {"Sur"}}, facts)
	if !ok {
		t.Fatal("expected a filter")
	}
	if f.From.String() != "2024-01-31" || f.To.String() != "2024-01-31" {
		t.Errorf("expected Sur bounds 2024-01-31..2024-01-31, got %s..%s", f.From, f.To)
	}
}

func TestParseFilterNoData(t *testing.T) {
	if _, ok := parseFilter(url.Values{}, nil); ok {
		t.Error("expected no filter from an empty fact table")
	}
}

func TestParseFilterIgnoresBadDates(t *testing.T) {
	facts := sampleFacts(t)

	f, ok := parseFilter(url.Values{"centro": {"Norte"}, "from": {"not-a-date"}}, facts)
	if !ok {
		t.Fatal("expected a filter")
	}
	if f.From.String() != "2024-01-31" {
		t.Errorf("expected bad from ignored, got %s", f.From)
	}
}

func TestBuildChart(t *testing.T) {
	series := []core.SeriesPoint{
		{Date: mustDate(t, "2024-01-31"), Closing: 100},
		{Date: mustDate(t, "2024-02-29"), Closing: 200},
		{Date: mustDate(t, "2024-03-31"), Closing: 150},
	}
	c := buildChart(series)

	if c.Width != chartWidth || c.Height != chartHeight {
		t.Errorf("unexpected dimensions %dx%d", c.Width, c.Height)
	}
	points := strings.Fields(c.Points)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d: %q", len(points), c.Points)
	}
	if c.MinLabel != "$100.00" || c.MaxLabel != "$200.00" {
		t.Errorf("unexpected labels %q..%q", c.MinLabel, c.MaxLabel)
	}
	if c.Start != "2024-01-31" || c.End != "2024-03-31" {
		t.Errorf("unexpected range %q..%q", c.Start, c.End)
	}
}

func TestBuildChartSinglePoint(t *testing.T) {
	c := buildChart([]core.SeriesPoint{{Date: mustDate(t, "2024-01-31"), Closing: 42}})
	if !strings.HasPrefix(c.Points, "360.0,") {
		t.Errorf("expected centered single point, got %q", c.Points)
	}
}

func TestBuildChartEmpty(t *testing.T) {
	if c := buildChart(nil); c.Points != "" {
		t.Errorf("expected no points for empty series, got %q", c.Points)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  file\x00name.xlsx "); got != "filename.xlsx" {
		t.Errorf("sanitizeInput = %q", got)
	}
}
