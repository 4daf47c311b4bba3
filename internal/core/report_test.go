package core

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// threeRowFixture mirrors a minimal single-centro workbook: three days of one
// concepto with a known return profile.
func threeRowFixture() []FactRow {
	return []FactRow{
		{Date: NewDate(2024, 1, 1), Centro: "A", Concepto: "X", Opening: 1000, Contribution: 100, Withdrawal: 0, Return: 0, Closing: 1100},
		{Date: NewDate(2024, 1, 2), Centro: "A", Concepto: "X", Opening: 1100, Contribution: 0, Withdrawal: 20, Return: 70, Closing: 1150},
		{Date: NewDate(2024, 1, 3), Centro: "A", Concepto: "X", Opening: 1150, Contribution: 50, Withdrawal: 0, Return: 0, Closing: 1200},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeViewKPIs(t *testing.T) {
	f := Filter{Centro: "A", Concepto: AllConceptos, From: NewDate(2024, 1, 1), To: NewDate(2024, 1, 3)}
	view, err := ComputeView(threeRowFixture(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k := view.KPIs
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"opening", k.OpeningCapital, 1000},
		{"closing", k.ClosingCapital, 1200},
		{"contributions", k.TotalContributions, 150},
		{"withdrawals", k.TotalWithdrawals, 20},
		{"return", k.TotalReturn, 70},
		{"return_percent", k.ReturnPercent, 0.07},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Fatalf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
	if len(view.Series) != 3 {
		t.Fatalf("series length = %d", len(view.Series))
	}
	if !almostEqual(view.Series[2].Closing, 1200) {
		t.Fatalf("last series point = %v", view.Series[2].Closing)
	}
}

func TestComputeViewAggregatesAcrossConceptos(t *testing.T) {
	facts := []FactRow{
		{Date: NewDate(2024, 1, 2), Centro: "A", Concepto: "Y", Opening: 10, Closing: 15, Return: 1},
		{Date: NewDate(2024, 1, 1), Centro: "A", Concepto: "X", Opening: 100, Closing: 110, Contribution: 5},
		{Date: NewDate(2024, 1, 1), Centro: "A", Concepto: "Y", Opening: 50, Closing: 55, Withdrawal: 2},
		{Date: NewDate(2024, 1, 1), Centro: "B", Concepto: "X", Opening: 999, Closing: 999},
	}
	f := Filter{Centro: "A", Concepto: AllConceptos, From: NewDate(2024, 1, 1), To: NewDate(2024, 1, 31)}
	view, err := ComputeView(facts, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One row per distinct date, sorted ascending, no duplicates.
	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 aggregated rows, got %d", len(view.Rows))
	}
	for i := 1; i < len(view.Series); i++ {
		if !view.Series[i-1].Date.Before(view.Series[i].Date) {
			t.Fatalf("series not strictly ascending at %d", i)
		}
	}
	first := view.Rows[0]
	if first.Date.String() != "2024-01-01" || !almostEqual(first.Opening, 150) || !almostEqual(first.Closing, 165) {
		t.Fatalf("unexpected aggregate for first date: %+v", first)
	}
	if first.Concepto != AllConceptos {
		t.Fatalf("aggregated rows should carry the %s marker, got %q", AllConceptos, first.Concepto)
	}
	// Centro B must not leak in.
	if !almostEqual(view.KPIs.ClosingCapital, 15) {
		t.Fatalf("closing capital = %v", view.KPIs.ClosingCapital)
	}
}

func TestComputeViewSingleConceptoPassthrough(t *testing.T) {
	facts := threeRowFixture()
	f := Filter{Centro: "A", Concepto: "X", From: NewDate(2024, 1, 2), To: NewDate(2024, 1, 3)}
	view, err := ComputeView(facts, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(view.Rows))
	}
	if view.Rows[0].Concepto != "X" {
		t.Fatalf("passthrough rows must keep their concepto, got %q", view.Rows[0].Concepto)
	}
	if !almostEqual(view.KPIs.OpeningCapital, 1100) {
		t.Fatalf("opening capital = %v", view.KPIs.OpeningCapital)
	}
}

func TestComputeViewEmptySelection(t *testing.T) {
	f := Filter{Centro: "A", Concepto: AllConceptos, From: NewDate(2030, 1, 1), To: NewDate(2030, 12, 31)}
	_, err := ComputeView(threeRowFixture(), f)
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if _, err := ComputeView(nil, f); !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult on no facts, got %v", err)
	}
}

func TestComputeViewReturnPercentGuard(t *testing.T) {
	for _, opening := range []float64{0, -500} {
		facts := []FactRow{{Date: NewDate(2024, 1, 1), Centro: "A", Concepto: "X", Opening: opening, Return: 70, Closing: 70}}
		f := Filter{Centro: "A", Concepto: "X", From: NewDate(2024, 1, 1), To: NewDate(2024, 1, 1)}
		view, err := ComputeView(facts, f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if view.KPIs.ReturnPercent != 0 {
			t.Fatalf("opening=%v: return percent = %v, want 0", opening, view.KPIs.ReturnPercent)
		}
	}
}

func TestComputeViewDoesNotMutateInput(t *testing.T) {
	facts := threeRowFixture()
	// Deliberately unsorted input.
	facts[0], facts[2] = facts[2], facts[0]
	snapshot := append([]FactRow(nil), facts...)

	f := Filter{Centro: "A", Concepto: "X", From: NewDate(2024, 1, 1), To: NewDate(2024, 1, 3)}
	first, err := ComputeView(facts, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(facts, snapshot) {
		t.Fatalf("input slice mutated")
	}

	second, err := ComputeView(facts, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ComputeView not deterministic")
	}
	if first.Rows[0].Date.String() != "2024-01-01" {
		t.Fatalf("rows not re-sorted ascending: %s", first.Rows[0].Date)
	}
}
