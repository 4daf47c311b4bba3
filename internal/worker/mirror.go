// Package worker replays upload batch events into the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"

	"github.com/migueandres1/ORS-SER-dashboard/internal/amqp"
	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
	applog "github.com/migueandres1/ORS-SER-dashboard/internal/log"
	"github.com/migueandres1/ORS-SER-dashboard/internal/sheets"
)

// BatchSource provides the persisted data a mirror event refers to.
type BatchSource interface {
	GetUpload(ctx context.Context, uploadID int64) (core.Upload, error)
	ListFactsByUpload(ctx context.Context, uploadID int64) ([]core.FactRow, error)
}

// MirrorWorker consumes batch events and keeps the mirror spreadsheet in sync
// with the local store.
type MirrorWorker struct {
	source BatchSource
	mirror sheets.MirrorWriter
	logger *applog.Logger
}

func NewMirrorWorker(source BatchSource, mirror sheets.MirrorWriter) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		logger: applog.New(applog.Config{Component: applog.ComponentMirror}),
	}
}

// HandleEvent processes one batch event. Errors are returned to the consumer
// loop, which requeues the delivery.
func (w *MirrorWorker) HandleEvent(ctx context.Context, event amqp.BatchEvent) error {
	switch event.Kind {
	case amqp.EventBatchIngested:
		return w.mirrorBatch(ctx, event.UploadID)
	case amqp.EventBatchDeleted:
		if err := w.mirror.RemoveBatch(ctx, event.UploadID); err != nil {
			return fmt.Errorf("remove mirrored batch %d: %w", event.UploadID, err)
		}
		return nil
	default:
		// Unknown kinds are dropped rather than requeued forever.
		w.logger.WarnContext(ctx, "Ignoring unknown batch event kind", "kind", event.Kind)
		return nil
	}
}

func (w *MirrorWorker) mirrorBatch(ctx context.Context, uploadID int64) error {
	upload, err := w.source.GetUpload(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("load upload %d: %w", uploadID, err)
	}
	rows, err := w.source.ListFactsByUpload(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("load facts for upload %d: %w", uploadID, err)
	}
	if len(rows) == 0 {
		w.logger.WarnContext(ctx, "Upload has no fact rows to mirror", applog.FieldUploadID, uploadID)
		return nil
	}
	if err := w.mirror.AppendBatch(ctx, upload, rows); err != nil {
		return fmt.Errorf("mirror batch %d: %w", uploadID, err)
	}
	return nil
}
