// Package sheets stores transactions in a Google Sheets spreadsheet, for
// users who keep their ledger in a sheet they also edit by hand. One row
// per transaction, columns A:G = id, owner, kind, label, amount, category,
// date. Rows added by hand get adopted on the next list as long as they
// carry an id.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ remote.Client = (*Client)(nil)

// NewFromEnv creates a Sheets-backed store using environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME
// (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
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
	return service, nil
}

func (c *Client) List(ctx context.Context, ownerID string, kind core.Kind) ([]core.Transaction, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return nil, remote.Network("list", err)
	}

	out := []core.Transaction{}
	for _, row := range rows {
		t, ok := parseRow(row)
		if !ok {
			continue
		}
		if t.OwnerID == ownerID && t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, draft core.Draft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, remote.Invalid("create", err)
	}

	t := core.Transaction{
		ID:       uuid.NewString(),
		OwnerID:  draft.OwnerID,
		Kind:     draft.Kind,
		Label:    draft.Label,
		Amount:   draft.Amount,
		Category: draft.Category,
		Date:     draft.Date,
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}

	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{formatRow(t)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, remote.Network("create", fmt.Errorf("append to sheet %s: %w", c.sheetName, err))
	}

	slog.InfoContext(ctx, "Transaction appended to Google Sheets",
		"id", t.ID,
		"sheet", c.sheetName)

	return t, nil
}

func (c *Client) Update(ctx context.Context, id string, patch core.Patch, ownerID string) (core.Transaction, error) {
	rowIndex, current, err := c.findRow(ctx, id)
	if err != nil {
		return core.Transaction{}, remote.Classify("update", err)
	}
	if rowIndex < 0 {
		return core.Transaction{}, remote.NotFound("update", id)
	}
	if current.OwnerID != ownerID {
		return core.Transaction{}, remote.Forbidden("update", id)
	}

	updated := patch.Apply(current)
	if updated.Amount.IsNegative() {
		return core.Transaction{}, remote.Invalid("update", core.ErrNegativeAmount)
	}

	// Sheet rows are 1-based and row 1 is the header.
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, rowIndex+2, rowIndex+2)
	vr := &gsheet.ValueRange{Values: [][]any{formatRow(updated)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, remote.Network("update", fmt.Errorf("update row %s: %w", rng, err))
	}
	return updated, nil
}

func (c *Client) Delete(ctx context.Context, id string, ownerID string) error {
	rowIndex, current, err := c.findRow(ctx, id)
	if err != nil {
		return remote.Classify("delete", err)
	}
	if rowIndex < 0 {
		return nil // already gone
	}
	if current.OwnerID != ownerID {
		return remote.Forbidden("delete", id)
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return remote.Network("delete", err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex + 1), // zero-based, +1 skips the header
					EndIndex:   int64(rowIndex + 2),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return remote.Network("delete", fmt.Errorf("delete row %d: %w", rowIndex, err))
	}
	return nil
}

// readAll returns the data rows (header excluded).
func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A2:G", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// findRow scans for the row holding id. Returns the zero-based data row
// index, or -1 when absent.
func (c *Client) findRow(ctx context.Context, id string) (int, core.Transaction, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return -1, core.Transaction{}, err
	}
	for i, row := range rows {
		t, ok := parseRow(row)
		if ok && t.ID == id {
			return i, t, nil
		}
	}
	return -1, core.Transaction{}, nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}
