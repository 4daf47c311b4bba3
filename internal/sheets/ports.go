// Package sheets defines the outbound port for mirroring upload batches to an
// external spreadsheet.
package sheets

import (
	"context"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

// MirrorWriter replays persisted batches into a mirror spreadsheet.
type MirrorWriter interface {
	// AppendBatch appends every fact row of one upload to the mirror.
	AppendBatch(ctx context.Context, upload core.Upload, rows []core.FactRow) error
	// RemoveBatch drops all mirrored rows belonging to the upload id.
	RemoveBatch(ctx context.Context, uploadID int64) error
}
