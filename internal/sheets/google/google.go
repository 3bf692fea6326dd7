// Package google appends completed shopping lists to a Google Sheets
// purchase ledger using a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"smartcart/internal/core"
	ports "smartcart/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.LedgerAppender = (*Client)(nil)

// New creates a ledger client for the given spreadsheet and sheet.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Purchases"
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

// newSheetsService initializes a Sheets Service using Service Account credentials.
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

// AppendList writes one ledger row per item followed by a total row.
// Columns: Date, List, Item, Unit Price, Quantity, Subtotal.
func (c *Client) AppendList(ctx context.Context, list core.ShoppingList, items []core.ShoppingItem) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if list.CompletedAt == nil {
		return "", errors.New("list has no completion timestamp")
	}

	rows := ledgerRows(list, items)

	// Find the next empty row from the sheet dimensions.
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}
	nextRow := len(resp.Values) + 1
	lastRow := nextRow + len(rows) - 1

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.sheetName, nextRow, lastRow)
	vr := &gsheet.ValueRange{Values: rows}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	slog.InfoContext(ctx, "List appended to ledger",
		"list_id", list.ID, "rows", len(rows), "range", dataRange)

	return dataRange, nil
}

// ledgerRows renders the item rows plus the closing total row. Amounts go
// out as decimal strings so USER_ENTERED parsing keeps them numeric.
func ledgerRows(list core.ShoppingList, items []core.ShoppingItem) [][]any {
	date := list.CompletedAt.Format("2006-01-02")
	rows := make([][]any, 0, len(items)+1)
	for _, it := range items {
		rows = append(rows, []any{
			date,
			list.Name,
			it.Name,
			it.UnitPrice.String(),
			it.Quantity.String(),
			core.Subtotal(it.UnitPrice, it.Quantity).String(),
		})
	}
	rows = append(rows, []any{
		date,
		list.Name,
		"TOTAL",
		"",
		"",
		list.TotalSpent.String(),
	})
	return rows
}
