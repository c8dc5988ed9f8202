// Package seed loads a sample catalog and a few quotes for local development
// and demos. Quotes go through the quote service so numbers and totals are
// derived exactly as for API traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"cotizador/internal/core"
	"cotizador/internal/services"
)

// Resetter wipes the data seed replaces.
type Resetter interface {
	DeleteAllQuotes(ctx context.Context) error
	DeleteAllMaterials(ctx context.Context) error
}

type Options struct {
	// Reset deletes every quote and material first.
	Reset bool
}

type Result struct {
	Materials int
	Quotes    int
	// Skipped is set when the catalog already had data and Reset was false.
	Skipped bool
}

// Catalog is the sample material list.
var Catalog = []services.MaterialInput{
	{Name: "Cemento Portland", Unit: core.UnitKilogram, UnitPrice: 15.50, Description: "Cemento Portland tipo I para construcción general"},
	{Name: "Arena", Unit: core.UnitCubicMeter, UnitPrice: 45.00, Description: "Arena de río lavada para construcción"},
	{Name: "Grava", Unit: core.UnitCubicMeter, UnitPrice: 55.00, Description: `Grava triturada 3/4" para concreto`},
	{Name: "Ladrillos", Unit: core.UnitPiece, UnitPrice: 2.50, Description: "Ladrillos de arcilla cocida 6x12x24 cm"},
	{Name: `Varilla 3/8"`, Unit: core.UnitMeter, UnitPrice: 12.00, Description: `Varilla corrugada de acero 3/8"`},
	{Name: `Varilla 1/2"`, Unit: core.UnitMeter, UnitPrice: 18.50, Description: `Varilla corrugada de acero 1/2"`},
	{Name: "Pintura Interior", Unit: core.UnitLiter, UnitPrice: 25.00, Description: "Pintura vinílica para interiores"},
	{Name: "Pintura Exterior", Unit: core.UnitLiter, UnitPrice: 35.00, Description: "Pintura acrílica para exteriores"},
	{Name: "Alambre", Unit: core.UnitKilogram, UnitPrice: 8.50, Description: "Alambre recocido #16 para amarre"},
	{Name: "Yeso", Unit: core.UnitKilogram, UnitPrice: 5.20, Description: "Yeso para acabados interiores"},
}

// Sample rates are fixed so the seeded totals do not depend on configuration.
var (
	laborRate    = 25.0
	paintingRate = 15.0
)

type sampleItem struct {
	material int // index into Catalog
	quantity float64
}

type sampleQuote struct {
	client, project, notes string
	items                  []sampleItem
	hours, area            float64
	status                 core.Status
}

var sampleQuotes = []sampleQuote{
	{
		client:  "Juan Pérez",
		project: "Construcción de muro perimetral",
		items:   []sampleItem{{0, 500}, {1, 2}, {3, 1000}},
		hours:   16,
		status:  core.StatusApproved,
		notes:   "Cotización aprobada por el cliente",
	},
	{
		client:  "María García",
		project: "Pintura de casa habitación",
		items:   []sampleItem{{6, 20}, {7, 15}},
		hours:   24,
		area:    120,
		status:  core.StatusSent,
		notes:   "Pendiente de aprobación",
	},
	{
		client:  "Carlos López",
		project: "Cimentación para ampliación",
		items:   []sampleItem{{0, 800}, {1, 3}, {2, 3}, {4, 50}},
		hours:   32,
		status:  core.StatusDraft,
		notes:   "Cotización en revisión",
	},
}

// lifecycle lists the transitions that lead from draft to each status.
var lifecycle = map[core.Status][]core.Status{
	core.StatusDraft:     nil,
	core.StatusSent:      {core.StatusSent},
	core.StatusApproved:  {core.StatusSent, core.StatusApproved},
	core.StatusRejected:  {core.StatusSent, core.StatusRejected},
	core.StatusCancelled: {core.StatusCancelled},
}

// Run loads Catalog and the sample quotes. Without Reset an existing catalog
// is left untouched.
func Run(ctx context.Context, store Resetter, materials *services.MaterialService, quotes *services.QuoteService, opts Options) (Result, error) {
	if opts.Reset {
		if err := store.DeleteAllQuotes(ctx); err != nil {
			return Result{}, fmt.Errorf("reset quotes: %w", err)
		}
		if err := store.DeleteAllMaterials(ctx); err != nil {
			return Result{}, fmt.Errorf("reset materials: %w", err)
		}
		slog.InfoContext(ctx, "Existing data removed")
	} else {
		stats, err := materials.Stats(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("inspect catalog: %w", err)
		}
		if stats.Total > 0 {
			slog.InfoContext(ctx, "Catalog not empty, skipping seed", "materials", stats.Total)
			return Result{Skipped: true}, nil
		}
	}

	ids := make([]string, len(Catalog))
	for i, in := range Catalog {
		m, err := materials.Create(ctx, in)
		if err != nil {
			return Result{}, fmt.Errorf("seed material %q: %w", in.Name, err)
		}
		ids[i] = m.ID
	}

	res := Result{Materials: len(ids)}
	for _, sq := range sampleQuotes {
		in := services.QuoteInput{
			Client:   sq.client,
			Project:  sq.project,
			Notes:    sq.notes,
			Labor:    services.LaborInput{Hours: sq.hours, RatePerHour: &laborRate},
			Painting: services.PaintingInput{AreaSqMeters: sq.area, RatePerSqMeter: &paintingRate},
		}
		for _, it := range sq.items {
			in.LineItems = append(in.LineItems, services.LineItemInput{MaterialRef: ids[it.material], Quantity: it.quantity})
		}

		q, err := quotes.Create(ctx, in)
		if err != nil {
			return res, fmt.Errorf("seed quote for %s: %w", sq.client, err)
		}
		for _, next := range lifecycle[sq.status] {
			moved, err := quotes.UpdateStatus(ctx, q.ID, next)
			if err != nil {
				return res, fmt.Errorf("seed quote %s status %s: %w", q.Number, next, err)
			}
			q = moved
		}
		res.Quotes++
		slog.InfoContext(ctx, "Sample quote created",
			"quote_number", q.Number, "client", q.Client, "grand_total", core.FormatMoney(q.GrandTotal))
	}
	return res, nil
}
