package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cotizador/internal/amqp"
	"cotizador/internal/core"
	"cotizador/internal/services"
	"cotizador/internal/sheets"
	"cotizador/internal/sheets/memory"
	"cotizador/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	repo   *storage.SQLiteRepository
	quotes *services.QuoteService
	store  *memory.Store
	worker *ExportWorker
	mat    core.Material
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	now := func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	cfg := services.DefaultQuoteServiceConfig()
	cfg.Location = time.UTC
	cfg.Now = now

	mat, err := services.NewMaterialService(repo, now).Create(context.Background(),
		services.MaterialInput{Name: "Cement", Unit: core.UnitKilogram, UnitPrice: 15.5})
	require.NoError(t, err)

	store := memory.New()
	return &env{
		repo:   repo,
		quotes: services.NewQuoteService(repo, nil, cfg),
		store:  store,
		worker: NewExportWorker(repo, store),
		mat:    mat,
	}
}

func (e *env) quote(t *testing.T, client string) core.Quote {
	t.Helper()
	q, err := e.quotes.Create(context.Background(), services.QuoteInput{
		Client:    client,
		Project:   "Warehouse",
		LineItems: []services.LineItemInput{{MaterialRef: e.mat.ID, Quantity: 500}},
		Labor:     services.LaborInput{Hours: 16},
	})
	require.NoError(t, err)
	return q
}

func (e *env) rows(t *testing.T) []sheets.QuoteRow {
	t.Helper()
	rows, err := e.store.ListQuoteRows(context.Background())
	require.NoError(t, err)
	return rows
}

func TestHandleQuoteEventUpsertsRow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	q := e.quote(t, "ACME")

	ev := amqp.NewQuoteEvent(amqp.QuoteCreated, q.ID, q.Number, string(q.Status))
	require.NoError(t, e.worker.HandleQuoteEvent(ctx, ev))

	rows := e.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "COT-202503-001", rows[0].Number)
	assert.Equal(t, 7750.0, rows[0].MaterialsSubtotal)
	assert.Equal(t, 400.0, rows[0].LaborTotal)
	assert.Equal(t, 8150.0, rows[0].GrandTotal)

	_, err := e.quotes.UpdateStatus(ctx, q.ID, core.StatusSent)
	require.NoError(t, err)
	ev = amqp.NewQuoteEvent(amqp.QuoteStatusChanged, q.ID, q.Number, string(core.StatusSent))
	require.NoError(t, e.worker.HandleQuoteEvent(ctx, ev))

	rows = e.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, core.StatusSent, rows[0].Status)
}

func TestHandleQuoteEventDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	q := e.quote(t, "ACME")
	require.NoError(t, e.worker.HandleQuoteEvent(ctx, amqp.NewQuoteEvent(amqp.QuoteCreated, q.ID, q.Number, "draft")))

	require.NoError(t, e.quotes.Delete(ctx, q.ID))
	require.NoError(t, e.worker.HandleQuoteEvent(ctx, amqp.NewQuoteEvent(amqp.QuoteDeleted, q.ID, q.Number, "")))
	assert.Empty(t, e.rows(t))
}

func TestHandleQuoteEventMissingQuoteIsSkipped(t *testing.T) {
	e := newEnv(t)
	ev := amqp.NewQuoteEvent(amqp.QuoteUpdated, "does-not-exist", "COT-202503-009", "draft")
	require.NoError(t, e.worker.HandleQuoteEvent(context.Background(), ev))
	assert.Empty(t, e.rows(t))
}

type failingExporter struct{ err error }

func (f failingExporter) UpsertQuote(context.Context, sheets.QuoteRow) (string, error) {
	return "", f.err
}

func (f failingExporter) DeleteQuote(context.Context, string) error { return f.err }

func TestHandleQuoteEventExporterFailureIsReturned(t *testing.T) {
	e := newEnv(t)
	q := e.quote(t, "ACME")
	boom := errors.New("quota exceeded")
	w := NewExportWorker(e.repo, failingExporter{err: boom})

	err := w.HandleQuoteEvent(context.Background(), amqp.NewQuoteEvent(amqp.QuoteCreated, q.ID, q.Number, "draft"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	err = w.HandleQuoteEvent(context.Background(), amqp.NewQuoteEvent(amqp.QuoteDeleted, q.ID, q.Number, ""))
	assert.ErrorIs(t, err, boom)
}

func TestResyncConverges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.quote(t, "ACME")
	e.quote(t, "Beta")

	_, err := e.store.UpsertQuote(ctx, sheets.QuoteRow{Number: "COT-202401-007", Client: "Gone"})
	require.NoError(t, err)

	res, err := e.worker.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResyncResult{Upserted: 2, Removed: 1}, res)

	rows := e.rows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "COT-202503-001", rows[0].Number)
	assert.Equal(t, "COT-202503-002", rows[1].Number)

	res, err = e.worker.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResyncResult{Upserted: 2}, res)
	assert.Len(t, e.rows(t), 2)
}

func TestResyncCountsFailures(t *testing.T) {
	e := newEnv(t)
	e.quote(t, "ACME")
	w := NewExportWorker(e.repo, failingExporter{err: errors.New("down")})

	res, err := w.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResyncResult{Failed: 1}, res)
}
