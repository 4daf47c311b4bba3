package core

import (
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-02", "2024-01-02", true},
		{"2024-01-02 00:00:00", "2024-01-02", true},
		{"01/02/2024", "2024-01-02", true},
		{"not a date", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if tc.ok && d.String() != tc.want {
			t.Fatalf("case %d got %s want %s", i, d, tc.want)
		}
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2024, 1, 1)
	b := NewDate(2024, 1, 2)
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("expected %s before %s", a, b)
	}
	if !b.After(a) || a.After(b) {
		t.Fatalf("expected %s after %s", b, a)
	}
}

func TestCentrosAndConceptos(t *testing.T) {
	facts := []FactRow{
		{Centro: "B", Concepto: "Y"},
		{Centro: "A", Concepto: "X"},
		{Centro: "A", Concepto: "X"},
		{Centro: "A", Concepto: "W"},
	}
	centros := Centros(facts)
	if len(centros) != 2 || centros[0] != "A" || centros[1] != "B" {
		t.Fatalf("unexpected centros: %v", centros)
	}
	conceptos := Conceptos(facts, "A")
	if len(conceptos) != 2 || conceptos[0] != "W" || conceptos[1] != "X" {
		t.Fatalf("unexpected conceptos: %v", conceptos)
	}
	if got := Conceptos(facts, "missing"); len(got) != 0 {
		t.Fatalf("expected no conceptos for unknown centro, got %v", got)
	}
}

func TestDateBounds(t *testing.T) {
	if _, _, ok := DateBounds(nil); ok {
		t.Fatalf("expected ok=false for empty facts")
	}
	facts := []FactRow{
		{Date: NewDate(2024, 2, 1)},
		{Date: NewDate(2024, 1, 15)},
		{Date: NewDate(2024, 3, 1)},
	}
	min, max, ok := DateBounds(facts)
	if !ok {
		t.Fatalf("expected ok")
	}
	if min.String() != "2024-01-15" || max.String() != "2024-03-01" {
		t.Fatalf("got bounds %s..%s", min, max)
	}
}
