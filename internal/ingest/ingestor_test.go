package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

type fakeStore struct {
	filename string
	rows     []core.FactRow
	err      error
}

func (f *fakeStore) SaveBatch(ctx context.Context, filename string, ts time.Time, rows []core.FactRow) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.filename = filename
	f.rows = rows
	return 7, nil
}

func TestIngest(t *testing.T) {
	store := &fakeStore{}
	in := New(store)

	r := buildWorkbook(t, validHeader(), [][]any{
		{"2024-01-01", "A", "X", 1000, 100, 0, 0, 1100},
		{"2024-01-02", "A", "X", 1100, 0, 20, 70, 1150},
	})
	id, n, err := in.Ingest(context.Background(), "enero.xlsx", r)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if id != 7 || n != 2 {
		t.Fatalf("got id=%d n=%d", id, n)
	}
	if store.filename != "enero.xlsx" || len(store.rows) != 2 {
		t.Fatalf("store received %q with %d rows", store.filename, len(store.rows))
	}
}

func TestIngestParseFailureCommitsNothing(t *testing.T) {
	store := &fakeStore{}
	in := New(store)

	r := buildWorkbook(t, validHeader(), [][]any{
		{"2024-01-01", "A", "X", "oops", 0, 0, 0, 1100},
	})
	_, _, err := in.Ingest(context.Background(), "bad.xlsx", r)
	var fault *core.DataFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected DataFault, got %v", err)
	}
	if store.rows != nil {
		t.Fatalf("store must not be touched on parse failure")
	}
}

func TestIngestStoreFailurePropagates(t *testing.T) {
	boom := &core.StorageFault{Op: "save batch", Err: errors.New("disk full")}
	in := New(&fakeStore{err: boom})

	r := buildWorkbook(t, validHeader(), [][]any{
		{"2024-01-01", "A", "X", 1000, 0, 0, 0, 1000},
	})
	_, _, err := in.Ingest(context.Background(), "enero.xlsx", r)
	var fault *core.StorageFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected StorageFault, got %v", err)
	}
}

func TestIngestEmptyWorkbook(t *testing.T) {
	in := New(&fakeStore{})

	r := buildWorkbook(t, validHeader(), nil)
	_, _, err := in.Ingest(context.Background(), "empty.xlsx", r)
	if err == nil {
		t.Fatalf("expected error for workbook with no data rows")
	}
}
