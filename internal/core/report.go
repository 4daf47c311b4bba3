package core

import "sort"

// AllConceptos is the sentinel concepto filter meaning "aggregate across all
// conceptos of the selected centro".
const AllConceptos = "ALL"

type (
	// Filter is one user selection from the dashboard sidebar.
	Filter struct {
		Centro   string
		Concepto string // exact concepto, or AllConceptos
		From     Date
		To       Date
	}

	// KPISet holds the six scalar summary metrics of a report.
	KPISet struct {
		OpeningCapital     float64
		ClosingCapital     float64
		TotalContributions float64
		TotalWithdrawals   float64
		TotalReturn        float64
		ReturnPercent      float64
	}

	// SeriesPoint is one charted (date, closing balance) pair.
	SeriesPoint struct {
		Date    Date
		Closing float64
	}

	// ReportView is everything a render cycle needs: KPIs, the chartable
	// series and the aggregated detail rows, all sorted by ascending date.
	ReportView struct {
		Filter Filter
		KPIs   KPISet
		Series []SeriesPoint
		Rows   []FactRow
	}
)

// ComputeView filters facts by centro, concepto and inclusive date range,
// aggregates across conceptos per date when the filter asks for AllConceptos,
// and derives the KPI set and closing-balance time series.
//
// The input slice is never mutated and the result is deterministic for
// identical inputs. When the filters select zero rows it returns
// ErrEmptyResult; callers must not read the view in that case.
func ComputeView(facts []FactRow, f Filter) (ReportView, error) {
	var selected []FactRow
	for _, row := range facts {
		if row.Centro != f.Centro {
			continue
		}
		if f.Concepto != AllConceptos && row.Concepto != f.Concepto {
			continue
		}
		if row.Date.Before(f.From) || row.Date.After(f.To) {
			continue
		}
		selected = append(selected, row)
	}
	if len(selected) == 0 {
		return ReportView{}, ErrEmptyResult
	}

	rows := selected
	if f.Concepto == AllConceptos {
		rows = sumByDate(selected)
	} else {
		// Private copy so the sort below cannot reorder the caller's slice.
		rows = append([]FactRow(nil), selected...)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	kpis := KPISet{
		OpeningCapital: rows[0].Opening,
		ClosingCapital: rows[len(rows)-1].Closing,
	}
	series := make([]SeriesPoint, 0, len(rows))
	for _, r := range rows {
		kpis.TotalContributions += r.Contribution
		kpis.TotalWithdrawals += r.Withdrawal
		kpis.TotalReturn += r.Return
		series = append(series, SeriesPoint{Date: r.Date, Closing: r.Closing})
	}
	if kpis.OpeningCapital > 0 {
		kpis.ReturnPercent = kpis.TotalReturn / kpis.OpeningCapital
	}

	return ReportView{Filter: f, KPIs: kpis, Series: series, Rows: rows}, nil
}

// sumByDate collapses rows into one synthetic row per distinct date, summing
// the five monetary fields. The synthetic rows carry the AllConceptos marker.
func sumByDate(rows []FactRow) []FactRow {
	byDate := make(map[string]*FactRow)
	var order []string
	for _, r := range rows {
		key := r.Date.String()
		agg, ok := byDate[key]
		if !ok {
			agg = &FactRow{Date: r.Date, Centro: r.Centro, Concepto: AllConceptos}
			byDate[key] = agg
			order = append(order, key)
		}
		agg.Opening += r.Opening
		agg.Contribution += r.Contribution
		agg.Withdrawal += r.Withdrawal
		agg.Return += r.Return
		agg.Closing += r.Closing
	}
	out := make([]FactRow, 0, len(order))
	for _, key := range order {
		out = append(out, *byDate[key])
	}
	return out
}
