// Package google mirrors upload batches into a Google Sheets spreadsheet
// using Service Account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
	"github.com/migueandres1/ORS-SER-dashboard/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ sheets.MirrorWriter = (*Client)(nil)

// mirrorRange covers the nine mirrored columns: the eight workbook fields
// plus the owning upload id in column I.
const mirrorRange = "A:I"

// NewFromEnv creates a mirror client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Optional: MIRROR_SHEET_NAME (default
// "FactCapital"). Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("MIRROR_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "FactCapital"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from the environment.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// AppendBatch appends one row per fact row, tagged with the upload id so the
// batch can be removed later.
func (c *Client) AppendBatch(ctx context.Context, upload core.Upload, rows []core.FactRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{
			r.Date.String(), r.Centro, r.Concepto,
			r.Opening, r.Contribution, r.Withdrawal, r.Return, r.Closing,
			upload.ID,
		})
	}

	rng := fmt.Sprintf("%s!%s", c.sheetName, mirrorRange)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append batch to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Batch mirrored to Google Sheets",
		"upload_id", upload.ID,
		"filename", upload.Filename,
		"rows", len(rows),
		"sheet", c.sheetName)
	return nil
}

// RemoveBatch rewrites the mirror sheet without the rows tagged with
// uploadID. The sheet is small (single-user data), so read-filter-rewrite is
// acceptable.
func (c *Client) RemoveBatch(ctx context.Context, uploadID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!%s", c.sheetName, mirrorRange)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read mirror sheet %s: %w", c.sheetName, err)
	}

	id := strconv.FormatInt(uploadID, 10)
	kept := make([][]any, 0, len(resp.Values))
	removed := 0
	for _, row := range resp.Values {
		if len(row) >= 9 && strings.TrimSpace(fmt.Sprint(row[8])) == id {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	if removed == 0 {
		slog.InfoContext(ctx, "No mirrored rows for upload", "upload_id", uploadID)
		return nil
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear mirror sheet %s: %w", c.sheetName, err)
	}
	if len(kept) > 0 {
		start := fmt.Sprintf("%s!A1", c.sheetName)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, &gsheet.ValueRange{Values: kept}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return fmt.Errorf("rewrite mirror sheet %s: %w", c.sheetName, err)
		}
	}

	slog.InfoContext(ctx, "Mirrored batch removed",
		"upload_id", uploadID,
		"rows_removed", removed,
		"sheet", c.sheetName)
	return nil
}
