package memory

import (
	"context"
	"testing"
	"time"

	"cotizador/internal/core"
	"cotizador/internal/sheets"
)

func row(number string, total float64) sheets.QuoteRow {
	return sheets.QuoteRow{
		Number:     number,
		Client:     "Acme",
		Project:    "Warehouse",
		Status:     core.StatusDraft,
		GrandTotal: total,
		CreatedAt:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestStoreUpsertAppendsThenReplaces(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := s.UpsertQuote(ctx, row("COT-202503-001", 100))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}
	ref, err = s.UpsertQuote(ctx, row("COT-202503-002", 200))
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}

	updated := row("COT-202503-001", 150)
	updated.Status = core.StatusSent
	ref, err = s.UpsertQuote(ctx, updated)
	if err != nil || ref != "mem:1" {
		t.Fatalf("expected replace of first row, got ref=%q err=%v", ref, err)
	}

	rows, _ := s.ListQuoteRows(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].GrandTotal != 150 || rows[0].Status != core.StatusSent {
		t.Errorf("row not replaced: %+v", rows[0])
	}
}

func TestStoreRejectsRowWithoutNumber(t *testing.T) {
	if _, err := New().UpsertQuote(context.Background(), row("  ", 1)); err == nil {
		t.Fatal("expected error for blank number")
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.UpsertQuote(ctx, row("COT-202503-001", 1))
	_, _ = s.UpsertQuote(ctx, row("COT-202503-002", 2))

	if err := s.DeleteQuote(ctx, "COT-202503-001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteQuote(ctx, "COT-209901-001"); err != nil {
		t.Fatalf("deleting a missing row should not fail: %v", err)
	}

	rows, _ := s.ListQuoteRows(ctx)
	if len(rows) != 1 || rows[0].Number != "COT-202503-002" {
		t.Fatalf("unexpected rows after delete: %+v", rows)
	}
}

func TestListQuoteRowsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.UpsertQuote(ctx, row("COT-202503-001", 1))

	rows, _ := s.ListQuoteRows(ctx)
	rows[0].Client = "changed"

	again, _ := s.ListQuoteRows(ctx)
	if again[0].Client != "Acme" {
		t.Fatal("store rows mutated through returned slice")
	}
}
