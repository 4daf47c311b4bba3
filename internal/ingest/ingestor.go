package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

// BatchStore persists one parsed workbook as an atomic batch.
type BatchStore interface {
	SaveBatch(ctx context.Context, filename string, timestamp time.Time, rows []core.FactRow) (int64, error)
}

// Ingestor parses workbooks and writes them to the store. It holds no state
// beyond its collaborators.
type Ingestor struct {
	store BatchStore
	now   func() time.Time
}

func New(store BatchStore) *Ingestor {
	return &Ingestor{store: store, now: time.Now}
}

// Ingest parses the workbook and stores its rows as a new upload batch.
// Nothing is committed when parsing or any insert fails. Returns the new
// upload id and the number of rows stored.
func (in *Ingestor) Ingest(ctx context.Context, filename string, r io.Reader) (int64, int, error) {
	rows, err := ParseWorkbook(r, filename)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("workbook %q has no data rows", filename)
	}

	uploadID, err := in.store.SaveBatch(ctx, filename, in.now(), rows)
	if err != nil {
		return 0, 0, err
	}

	slog.InfoContext(ctx, "Workbook ingested",
		"upload_id", uploadID,
		"filename", filename,
		"rows", len(rows))
	return uploadID, len(rows), nil
}
