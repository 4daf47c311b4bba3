package core

import (
	"errors"
	"sort"
	"time"
)

type (
	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	// Upload identifies one ingested workbook and owns the fact rows it produced.
	Upload struct {
		ID        int64
		Filename  string
		Timestamp time.Time
	}

	// FactRow is a single capital-account ledger entry. The five monetary
	// fields mirror the workbook columns: opening balance, contribution,
	// withdrawal, period return and closing balance.
	FactRow struct {
		ID           int64
		Date         Date
		Centro       string
		Concepto     string
		Opening      float64
		Contribution float64
		Withdrawal   float64
		Return       float64
		Closing      float64
		UploadID     int64
	}
)

// DateLayout is the canonical on-disk and on-wire date form.
const DateLayout = "2006-01-02"

// dateLayouts are the renderings accepted at the ingestion boundary.
// Spreadsheet cells arrive as formatted strings, so besides ISO dates we take
// the formats excelize produces for date-typed cells.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01-02-06",
	"1/2/06",
	"01/02/2006",
}

var ErrInvalidDate = errors.New("invalid date")

// NewDate builds a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate coerces a cell value to a Date, trying the accepted layouts in order.
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d falls on an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Centros returns the distinct centro values present in facts, sorted.
func Centros(facts []FactRow) []string {
	return distinct(facts, func(f FactRow) (string, bool) { return f.Centro, true })
}

// Conceptos returns the distinct concepto values for one centro, sorted.
func Conceptos(facts []FactRow, centro string) []string {
	return distinct(facts, func(f FactRow) (string, bool) { return f.Concepto, f.Centro == centro })
}

func distinct(facts []FactRow, pick func(FactRow) (string, bool)) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range facts {
		v, ok := pick(f)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// DateBounds returns the earliest and latest dates in facts.
// ok is false when facts is empty.
func DateBounds(facts []FactRow) (min, max Date, ok bool) {
	for i, f := range facts {
		if i == 0 || f.Date.Before(min) {
			min = f.Date
		}
		if i == 0 || f.Date.After(max) {
			max = f.Date
		}
	}
	return min, max, len(facts) > 0
}
