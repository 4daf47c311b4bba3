package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository owns the uploads and fact_capital tables. All reads and
// writes of persisted ledger data go through it.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// runs pending migrations. Failures surface as a core.StorageFault.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, &core.StorageFault{Op: "create db directory", Err: err}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &core.StorageFault{Op: "open sqlite database", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &core.StorageFault{Op: "ping database", Err: err}
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, &core.StorageFault{Op: "run migrations", Err: err}
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordUpload inserts a new upload row and returns its generated id.
func (r *SQLiteRepository) RecordUpload(ctx context.Context, filename string, timestamp time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO uploads (filename, timestamp) VALUES (?, ?)`,
		filename, timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, &core.StorageFault{Op: "record upload", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &core.StorageFault{Op: "read upload id", Err: err}
	}
	return id, nil
}

// AppendFacts inserts rows tagged with uploadID as a single transaction: one
// failing row rolls back the whole batch.
func (r *SQLiteRepository) AppendFacts(ctx context.Context, uploadID int64, rows []core.FactRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageFault{Op: "begin append facts", Err: err}
	}
	defer tx.Rollback()

	if err := insertFacts(ctx, tx, uploadID, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &core.StorageFault{Op: "commit append facts", Err: err}
	}
	return nil
}

// SaveBatch persists the upload record and all its fact rows in one
// transaction, so a half-written batch can never become visible.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, filename string, timestamp time.Time, rows []core.FactRow) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &core.StorageFault{Op: "begin save batch", Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO uploads (filename, timestamp) VALUES (?, ?)`,
		filename, timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, &core.StorageFault{Op: "record upload", Err: err}
	}
	uploadID, err := res.LastInsertId()
	if err != nil {
		return 0, &core.StorageFault{Op: "read upload id", Err: err}
	}

	if err := insertFacts(ctx, tx, uploadID, rows); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, &core.StorageFault{Op: "commit save batch", Err: err}
	}

	slog.InfoContext(ctx, "Batch saved",
		"upload_id", uploadID,
		"filename", filename,
		"rows", len(rows))
	return uploadID, nil
}

func insertFacts(ctx context.Context, tx *sql.Tx, uploadID int64, rows []core.FactRow) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fact_capital
		(fecha, centro, concepto, inicial, aportacion, retiro, rendimiento, saldo, upload_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &core.StorageFault{Op: "prepare fact insert", Err: err}
	}
	defer stmt.Close()

	for i, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.Date.String(), row.Centro, row.Concepto,
			row.Opening, row.Contribution, row.Withdrawal, row.Return, row.Closing,
			uploadID)
		if err != nil {
			return &core.StorageFault{Op: fmt.Sprintf("insert fact row %d", i+1), Err: err}
		}
	}
	return nil
}

// ListUploads returns all upload records, newest first.
func (r *SQLiteRepository) ListUploads(ctx context.Context) ([]core.Upload, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT upload_id, filename, timestamp FROM uploads ORDER BY upload_id DESC`)
	if err != nil {
		return nil, &core.StorageFault{Op: "list uploads", Err: err}
	}
	defer rows.Close()

	var uploads []core.Upload
	for rows.Next() {
		var u core.Upload
		var ts string
		if err := rows.Scan(&u.ID, &u.Filename, &ts); err != nil {
			return nil, &core.StorageFault{Op: "scan upload", Err: err}
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			u.Timestamp = parsed
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageFault{Op: "iterate uploads", Err: err}
	}
	return uploads, nil
}

// DeleteUpload removes the upload's fact rows and then the upload record,
// atomically. Deleting an unknown id is a no-op.
func (r *SQLiteRepository) DeleteUpload(ctx context.Context, uploadID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageFault{Op: "begin delete upload", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fact_capital WHERE upload_id = ?`, uploadID); err != nil {
		return &core.StorageFault{Op: "delete fact rows", Err: err}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM uploads WHERE upload_id = ?`, uploadID)
	if err != nil {
		return &core.StorageFault{Op: "delete upload", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &core.StorageFault{Op: "commit delete upload", Err: err}
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.InfoContext(ctx, "Delete of unknown upload ignored", "upload_id", uploadID)
	} else {
		slog.InfoContext(ctx, "Upload deleted", "upload_id", uploadID)
	}
	return nil
}

// LoadAllFacts returns every fact row. No data yields an empty slice, not an
// error.
func (r *SQLiteRepository) LoadAllFacts(ctx context.Context) ([]core.FactRow, error) {
	return r.queryFacts(ctx,
		`SELECT id, fecha, centro, concepto, inicial, aportacion, retiro, rendimiento, saldo, upload_id
		 FROM fact_capital`)
}

// ListFactsByUpload returns the fact rows belonging to one upload, in insert
// order.
func (r *SQLiteRepository) ListFactsByUpload(ctx context.Context, uploadID int64) ([]core.FactRow, error) {
	return r.queryFacts(ctx,
		`SELECT id, fecha, centro, concepto, inicial, aportacion, retiro, rendimiento, saldo, upload_id
		 FROM fact_capital WHERE upload_id = ? ORDER BY id`, uploadID)
}

// GetUpload returns one upload record, or sql.ErrNoRows wrapped in a
// StorageFault when it does not exist.
func (r *SQLiteRepository) GetUpload(ctx context.Context, uploadID int64) (core.Upload, error) {
	var u core.Upload
	var ts string
	err := r.db.QueryRowContext(ctx,
		`SELECT upload_id, filename, timestamp FROM uploads WHERE upload_id = ?`, uploadID).
		Scan(&u.ID, &u.Filename, &ts)
	if err != nil {
		return core.Upload{}, &core.StorageFault{Op: "get upload", Err: err}
	}
	if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
		u.Timestamp = parsed
	}
	return u, nil
}

func (r *SQLiteRepository) queryFacts(ctx context.Context, query string, args ...any) ([]core.FactRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &core.StorageFault{Op: "query facts", Err: err}
	}
	defer rows.Close()

	facts := []core.FactRow{}
	for rows.Next() {
		var f core.FactRow
		var fecha string
		if err := rows.Scan(&f.ID, &fecha, &f.Centro, &f.Concepto,
			&f.Opening, &f.Contribution, &f.Withdrawal, &f.Return, &f.Closing,
			&f.UploadID); err != nil {
			return nil, &core.StorageFault{Op: "scan fact row", Err: err}
		}
		d, err := core.ParseDate(fecha)
		if err != nil {
			return nil, &core.StorageFault{Op: "parse stored date " + fecha, Err: err}
		}
		f.Date = d
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageFault{Op: "iterate facts", Err: err}
	}
	return facts, nil
}
