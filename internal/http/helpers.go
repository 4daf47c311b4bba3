package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

// parseFilter extracts the report filter from query parameters, falling back
// to the first centro, the AllConceptos sentinel and the date bounds of the
// centro/concepto selection.
func parseFilter(query url.Values, facts []core.FactRow) (core.Filter, bool) {
	centros := core.Centros(facts)
	if len(centros) == 0 {
		return core.Filter{}, false
	}

	f := core.Filter{
		Centro:   strings.TrimSpace(query.Get("centro")),
		Concepto: strings.TrimSpace(query.Get("concepto")),
	}
	if f.Centro == "" {
		f.Centro = centros[0]
	}
	if f.Concepto == "" {
		f.Concepto = core.AllConceptos
	}

	// Date defaults come from the centro/concepto selection so the picker
	// spans exactly the selectable data.
	var scoped []core.FactRow
	for _, row := range facts {
		if row.Centro != f.Centro {
			continue
		}
		if f.Concepto != core.AllConceptos && row.Concepto != f.Concepto {
			continue
		}
		scoped = append(scoped, row)
	}
	min, max, ok := core.DateBounds(scoped)
	if !ok {
		min, max, _ = core.DateBounds(facts)
	}
	f.From, f.To = min, max

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.From = d
		}
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.To = d
		}
	}
	return f, true
}

// formatMoney renders a float as a dollar amount with thousands separators,
// e.g. 1234567.8 -> "$1,234,567.80".
func formatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	dot := strings.Index(s, ".")
	intPart, fracPart := s[:dot], s[dot:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String() + fracPart
	}
	return "$" + b.String() + fracPart
}

// formatPercent renders a ratio as a percentage, e.g. 0.07 -> "7.00%".
func formatPercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 2, 64) + "%"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func queryEscape(s string) string {
	return url.QueryEscape(s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// parseUploadID reads the upload_id form value.
func parseUploadID(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Form.Get("upload_id"))
	if v == "" {
		return 0, fmt.Errorf("missing upload_id")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid upload_id %q", v)
	}
	return id, nil
}
