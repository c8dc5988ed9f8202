package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cotizador/internal/amqp"
	"cotizador/internal/core"
	"cotizador/internal/sheets"
	"cotizador/internal/storage"
)

// ExportWorker mirrors stored quotes into an export target, one row per quote number.
type ExportWorker struct {
	storage  *storage.SQLiteRepository
	exporter sheets.QuoteExporter
}

// ResyncResult summarizes a full reconciliation pass.
type ResyncResult struct {
	Upserted int
	Removed  int
	Failed   int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter sheets.QuoteExporter) *ExportWorker {
	return &ExportWorker{storage: storage, exporter: exporter}
}

// HandleQuoteEvent applies a single quote event from AMQP. Returning an error
// makes the consumer requeue the message.
func (w *ExportWorker) HandleQuoteEvent(ctx context.Context, ev *amqp.QuoteEvent) error {
	slog.InfoContext(ctx, "Processing quote event",
		"type", ev.Type,
		"quote_id", ev.QuoteID,
		"quote_number", ev.Number)

	if ev.Type == amqp.QuoteDeleted {
		if ev.Number == "" {
			slog.WarnContext(ctx, "Delete event without quote number, skipping", "quote_id", ev.QuoteID)
			return nil
		}
		if err := w.exporter.DeleteQuote(ctx, ev.Number); err != nil {
			return fmt.Errorf("delete exported quote %s: %w", ev.Number, err)
		}
		slog.InfoContext(ctx, "Removed exported quote", "quote_number", ev.Number)
		return nil
	}

	q, err := w.storage.GetQuote(ctx, ev.QuoteID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was published; its delete event follows.
		slog.WarnContext(ctx, "Quote no longer exists, skipping export", "quote_id", ev.QuoteID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get quote from storage: %w", err)
	}

	ref, err := w.exporter.UpsertQuote(ctx, sheets.RowFromQuote(q))
	if err != nil {
		return fmt.Errorf("export quote %s: %w", q.Number, err)
	}
	slog.InfoContext(ctx, "Exported quote",
		"quote_number", q.Number,
		"status", q.Status,
		"grand_total", q.GrandTotal,
		"export_ref", ref)
	return nil
}

// Resync upserts every stored quote and, when the exporter can list its rows,
// removes rows whose quote no longer exists. It recovers from missed events.
func (w *ExportWorker) Resync(ctx context.Context) (ResyncResult, error) {
	var res ResyncResult

	quotes, _, err := w.storage.ListQuotes(ctx, storage.QuoteFilter{Sort: "number"})
	if err != nil {
		return res, fmt.Errorf("list quotes for resync: %w", err)
	}

	known := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		known[q.Number] = struct{}{}
		if _, err := w.exporter.UpsertQuote(ctx, sheets.RowFromQuote(q)); err != nil {
			slog.ErrorContext(ctx, "Failed to export quote during resync",
				"quote_number", q.Number, "error", err)
			res.Failed++
			continue
		}
		res.Upserted++
	}

	if lister, ok := w.exporter.(sheets.QuoteRowLister); ok {
		rows, err := lister.ListQuoteRows(ctx)
		if err != nil {
			return res, fmt.Errorf("list exported rows: %w", err)
		}
		for _, r := range rows {
			if _, ok := known[r.Number]; ok {
				continue
			}
			if err := w.exporter.DeleteQuote(ctx, r.Number); err != nil {
				slog.ErrorContext(ctx, "Failed to remove stale exported quote",
					"quote_number", r.Number, "error", err)
				res.Failed++
				continue
			}
			res.Removed++
		}
	}

	slog.InfoContext(ctx, "Export resync completed",
		"total", len(quotes),
		"upserted", res.Upserted,
		"removed", res.Removed,
		"errors", res.Failed)
	return res, nil
}
