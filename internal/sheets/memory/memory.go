package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cotizador/internal/sheets"
)

// Store is an in-process QuoteExporter used for local runs and tests.
type Store struct {
	mu   sync.Mutex
	rows []sheets.QuoteRow
}

var (
	_ sheets.QuoteExporter  = (*Store)(nil)
	_ sheets.QuoteRowLister = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// UpsertQuote replaces the row with the same number or appends it.
func (s *Store) UpsertQuote(_ context.Context, row sheets.QuoteRow) (string, error) {
	if strings.TrimSpace(row.Number) == "" {
		return "", errors.New("quote row without number")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(row.Number); i >= 0 {
		s.rows[i] = row
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// DeleteQuote drops the row for number, if any.
func (s *Store) DeleteQuote(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(number); i >= 0 {
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
	}
	return nil
}

// ListQuoteRows returns a copy of the stored rows in insertion order.
func (s *Store) ListQuoteRows(_ context.Context) ([]sheets.QuoteRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.QuoteRow(nil), s.rows...), nil
}

func (s *Store) indexOf(number string) int {
	number = strings.TrimSpace(number)
	for i, r := range s.rows {
		if r.Number == number {
			return i
		}
	}
	return -1
}
