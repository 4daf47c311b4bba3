package core

import (
	"errors"
	"fmt"
)

// ErrEmptyResult signals that the current filters select zero rows.
// It is not a hard failure: callers render a neutral empty state instead of
// computing KPIs over nothing.
var ErrEmptyResult = errors.New("no rows match the selected filters")

// StorageFault wraps a failure of the underlying SQLite store.
type StorageFault struct {
	Op  string
	Err error
}

func (f *StorageFault) Error() string {
	return fmt.Sprintf("storage: %s: %v", f.Op, f.Err)
}

func (f *StorageFault) Unwrap() error { return f.Err }

// SchemaFault reports a workbook missing one of the expected column headers.
type SchemaFault struct {
	File   string
	Column string
}

func (f *SchemaFault) Error() string {
	return fmt.Sprintf("workbook %q: missing expected column %q", f.File, f.Column)
}

// DataFault reports a cell whose value could not be coerced to the target
// type. Row is the 1-based workbook row, Column the header name.
type DataFault struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (f *DataFault) Error() string {
	return fmt.Sprintf("row %d, column %q: cannot coerce %q: %v", f.Row, f.Column, f.Value, f.Err)
}

func (f *DataFault) Unwrap() error { return f.Err }
