package sheets

import (
	"context"
	"time"

	"cotizador/internal/core"
)

// RowHeader is the header row written above exported quotes.
var RowHeader = []string{
	"Number", "Client", "Project", "Status",
	"Materials", "Labor", "Painting", "Grand total", "Created",
}

// QuoteRow is the flat projection of a quote kept in an export target.
type QuoteRow struct {
	Number            string
	Client            string
	Project           string
	Status            core.Status
	MaterialsSubtotal float64
	LaborTotal        float64
	PaintingTotal     float64
	GrandTotal        float64
	CreatedAt         time.Time
}

// Ports for outbound adapters.
type (
	// QuoteExporter keeps one row per quote number in an external target.
	QuoteExporter interface {
		// UpsertQuote replaces the row holding row.Number or appends a new one.
		UpsertQuote(ctx context.Context, row QuoteRow) (rowRef string, err error)
		// DeleteQuote removes the row for number. Missing rows are not an error.
		DeleteQuote(ctx context.Context, number string) error
	}

	// QuoteRowLister reads back every exported row in sheet order.
	QuoteRowLister interface {
		ListQuoteRows(ctx context.Context) ([]QuoteRow, error)
	}
)

// RowFromQuote projects a stored quote into its export row.
func RowFromQuote(q core.Quote) QuoteRow {
	return QuoteRow{
		Number:            q.Number,
		Client:            q.Client,
		Project:           q.Project,
		Status:            q.Status,
		MaterialsSubtotal: q.MaterialsSubtotal,
		LaborTotal:        q.Labor.Total,
		PaintingTotal:     q.Painting.Total,
		GrandTotal:        q.GrandTotal,
		CreatedAt:         q.CreatedAt,
	}
}

// Values renders the row as spreadsheet cells, amounts rounded to cents.
func (r QuoteRow) Values() []any {
	return []any{
		r.Number,
		r.Client,
		r.Project,
		string(r.Status),
		core.RoundMoney(r.MaterialsSubtotal),
		core.RoundMoney(r.LaborTotal),
		core.RoundMoney(r.PaintingTotal),
		core.RoundMoney(r.GrandTotal),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
