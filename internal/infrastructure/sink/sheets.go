package sink

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

const sheetRange = "A:F"

// SheetsSink appends rows to a Google spreadsheet. Append-only: the rows form
// an audit log, so the sink exposes no duplicate check.
type SheetsSink struct {
	values  *sheets.SpreadsheetsValuesService
	sheetID string
	now     func() time.Time
}

var _ ports.Sink = (*SheetsSink)(nil)

// NewSheetsSink authenticates with a service-account credentials file and
// bootstraps the header row when the sheet is empty.
func NewSheetsSink(ctx context.Context, credentialsPath, sheetID string) (*SheetsSink, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("build sheets service: %w", err)
	}

	s := &SheetsSink{
		values:  srv.Spreadsheets.Values,
		sheetID: sheetID,
		now:     time.Now,
	}

	if err := s.ensureHeaders(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Name identifies the sink in logs and write results.
func (s *SheetsSink) Name() string {
	return "sheets"
}

func (s *SheetsSink) ensureHeaders(ctx context.Context) error {
	resp, err := s.values.Get(s.sheetID, "A1:F1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	header := &sheets.ValueRange{
		Values: [][]any{{"Date/Time", "Source", "Action Item", "Priority", "Status", "Subject"}},
	}
	_, err = s.values.Update(s.sheetID, "A1:F1", header).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	return nil
}

// Write appends one row per item.
func (s *SheetsSink) Write(ctx context.Context, items []domain.CanonicalItem, label string) error {
	stamp := s.now().Format("2006-01-02 15:04:05")

	rows := make([][]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, []any{
			stamp,
			label,
			item.Action,
			string(item.Priority),
			"New",
			item.Provenance.Subject,
		})
	}

	_, err := s.values.Append(s.sheetID, sheetRange, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	return nil
}
