package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"cotizador/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Cotizaciones"

// Config selects the target spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Serializes lookup+write so two upserts for one number cannot both append.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var (
	_ sheets.QuoteExporter  = (*Client)(nil)
	_ sheets.QuoteRowLister = (*Client)(nil)
)

// New creates a Sheets client from cfg. Credentials fall back to
// GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is configured.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = defaultSheetName
	}

	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", name)

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: name}, nil
}

func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// UpsertQuote overwrites the row whose column A equals row.Number, or appends one.
func (c *Client) UpsertQuote(ctx context.Context, row sheets.QuoteRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(row.Number) == "" {
		return "", errors.New("quote row without number")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	numbers, err := c.readNumbers(ctx)
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return "", err
		}
		numbers = [][]any{headerCells()}
	}

	values := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	if idx := findRow(numbers, row.Number); idx >= 0 {
		rng := fmt.Sprintf("%s!A%d:I%d", c.sheetName, idx+1, idx+1)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	rng := fmt.Sprintf("%s!A:I", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append %s: %w", rng, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// DeleteQuote removes the row holding number. A missing row is a no-op.
func (c *Client) DeleteQuote(ctx context.Context, number string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	numbers, err := c.readNumbers(ctx)
	if err != nil {
		return err
	}
	idx := findRow(numbers, number)
	if idx < 0 {
		slog.DebugContext(ctx, "Quote row not present in sheet", "quote_number", number)
		return nil
	}
	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", idx+1, err)
	}
	return nil
}

// ListQuoteRows reads every quote row below the header.
func (c *Client) ListQuoteRows(ctx context.Context) ([]sheets.QuoteRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

func (c *Client) readNumbers(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:I1", c.sheetName)
	values := &gsheet.ValueRange{Values: [][]any{headerCells()}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

func headerCells() []any {
	out := make([]any, len(sheets.RowHeader))
	for i, h := range sheets.RowHeader {
		out[i] = h
	}
	return out
}
