package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cotizador/internal/core"
)

// QuoteFilter narrows a quote listing.
type QuoteFilter struct {
	Search string
	Status core.Status
	Client string
	Sort   string
	Page
}

// quoteSorts maps accepted sort keys to ORDER BY clauses.
var quoteSorts = map[string]string{
	"createdAt":   "created_at ASC",
	"-createdAt":  "created_at DESC",
	"grandTotal":  "grand_total ASC",
	"-grandTotal": "grand_total DESC",
	"client":      "client COLLATE NOCASE ASC",
	"-client":     "client COLLATE NOCASE DESC",
	"number":      "number ASC",
	"-number":     "number DESC",
}

// DefaultQuoteSort orders newest first.
const DefaultQuoteSort = "-createdAt"

// ValidQuoteSort reports whether key is an accepted sort key.
func ValidQuoteSort(key string) bool {
	_, ok := quoteSorts[key]
	return ok
}

const quoteColumns = `id, number, client, project,
	labor_hours, labor_rate, labor_total,
	painting_area, painting_rate, painting_total,
	materials_subtotal, grand_total, status, notes, expires_at, created_at, updated_at`

// CreateQuote stores q and its line items in one transaction. When q has no
// number, the next sequence of the month of q.CreatedAt is allocated in the
// same transaction and q.Number is set.
func (r *SQLiteRepository) CreateQuote(ctx context.Context, q *core.Quote) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if q.Number == "" {
			start, end := core.MonthBounds(q.CreatedAt)
			seq, err := NextQuoteSequence(ctx, tx, start, end)
			if err != nil {
				return err
			}
			q.Number = core.FormatQuoteNumber(q.CreatedAt, seq)
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO quotes (`+quoteColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.Number, q.Client, q.Project,
			q.Labor.Hours, q.Labor.RatePerHour, q.Labor.Total,
			q.Painting.AreaSqMeters, q.Painting.RatePerSqMeter, q.Painting.Total,
			q.MaterialsSubtotal, q.GrandTotal, string(q.Status), q.Notes,
			formatNullableTime(q.ExpiresAt), formatTime(q.CreatedAt), formatTime(q.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert quote %s: %w", q.Number, mapError(err))
		}
		return insertItems(ctx, tx, q.ID, q.LineItems)
	})
}

// UpdateQuote rewrites the mutable fields of q and replaces its line items.
// Number and creation time are never touched.
func (r *SQLiteRepository) UpdateQuote(ctx context.Context, q core.Quote) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE quotes SET
				client = ?, project = ?,
				labor_hours = ?, labor_rate = ?, labor_total = ?,
				painting_area = ?, painting_rate = ?, painting_total = ?,
				materials_subtotal = ?, grand_total = ?, status = ?, notes = ?,
				expires_at = ?, updated_at = ?
			WHERE id = ?`,
			q.Client, q.Project,
			q.Labor.Hours, q.Labor.RatePerHour, q.Labor.Total,
			q.Painting.AreaSqMeters, q.Painting.RatePerSqMeter, q.Painting.Total,
			q.MaterialsSubtotal, q.GrandTotal, string(q.Status), q.Notes,
			formatNullableTime(q.ExpiresAt), formatTime(q.UpdatedAt), q.ID)
		if err != nil {
			return fmt.Errorf("update quote %s: %w", q.ID, mapError(err))
		}
		if err := requireAffected(res, "quote", q.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, q.ID); err != nil {
			return fmt.Errorf("clear quote items: %w", err)
		}
		return insertItems(ctx, tx, q.ID, q.LineItems)
	})
}

// UpdateQuoteStatus sets only the status of a quote.
func (r *SQLiteRepository) UpdateQuoteStatus(ctx context.Context, id string, status core.Status, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE quotes SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update quote status %s: %w", id, err)
	}
	return requireAffected(res, "quote", id)
}

func (r *SQLiteRepository) DeleteQuote(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quote %s: %w", id, err)
	}
	return requireAffected(res, "quote", id)
}

// DeleteAllQuotes removes every quote and resets numbering.
func (r *SQLiteRepository) DeleteAllQuotes(ctx context.Context) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{`DELETE FROM quote_items`, `DELETE FROM quotes`, `DELETE FROM quote_sequences`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("delete all quotes: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetQuote(ctx context.Context, id string) (core.Quote, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id)
	q, err := scanQuote(row)
	if err != nil {
		return core.Quote{}, fmt.Errorf("get quote %s: %w", id, mapError(err))
	}
	quotes := []core.Quote{q}
	if err := r.attachItems(ctx, quotes); err != nil {
		return core.Quote{}, err
	}
	return quotes[0], nil
}

// GetQuoteByNumber looks a quote up by its human readable number.
func (r *SQLiteRepository) GetQuoteByNumber(ctx context.Context, number string) (core.Quote, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM quotes WHERE number = ?`, number).Scan(&id)
	if err != nil {
		return core.Quote{}, fmt.Errorf("get quote %s: %w", number, mapError(err))
	}
	return r.GetQuote(ctx, id)
}

// ListQuotes returns a page of quotes with their items and the total match count.
func (r *SQLiteRepository) ListQuotes(ctx context.Context, f QuoteFilter) ([]core.Quote, int, error) {
	var where []string
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `(number LIKE ? ESCAPE '\' OR client LIKE ? ESCAPE '\' OR project LIKE ? ESCAPE '\')`)
		p := likePattern(s)
		args = append(args, p, p, p)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(f.Status))
	}
	if c := strings.TrimSpace(f.Client); c != "" {
		where = append(where, `client LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(c))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	order, ok := quoteSorts[f.Sort]
	if !ok {
		order = quoteSorts[DefaultQuoteSort]
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotes: %w", err)
	}

	quotes, err := r.queryQuotes(ctx,
		`SELECT `+quoteColumns+` FROM quotes`+clause+` ORDER BY `+order+`, id LIMIT ? OFFSET ?`,
		append(args, f.limit(), f.offset())...)
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

// QuotesByClient returns every quote whose client contains name, newest first.
func (r *SQLiteRepository) QuotesByClient(ctx context.Context, name string) ([]core.Quote, error) {
	return r.queryQuotes(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE client LIKE ? ESCAPE '\' ORDER BY created_at DESC, id`,
		likePattern(strings.TrimSpace(name)))
}

// RecentQuotes returns the newest quotes.
func (r *SQLiteRepository) RecentQuotes(ctx context.Context, limit int) ([]core.Quote, error) {
	return r.queryQuotes(ctx,
		`SELECT `+quoteColumns+` FROM quotes ORDER BY created_at DESC, id LIMIT ?`, limit)
}

func (r *SQLiteRepository) queryQuotes(ctx context.Context, query string, args ...any) ([]core.Quote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := []core.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.attachItems(ctx, quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// attachItems loads line items for quotes in one query, filling material
// name and unit when the material still exists.
func (r *SQLiteRepository) attachItems(ctx context.Context, quotes []core.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	index := make(map[string]int, len(quotes))
	args := make([]any, len(quotes))
	for i := range quotes {
		index[quotes[i].ID] = i
		args[i] = quotes[i].ID
		quotes[i].LineItems = []core.LineItem{}
	}

	rows, err := r.db.QueryContext(ctx, `SELECT
			qi.quote_id, qi.id, qi.material_id, qi.quantity, qi.unit_price, qi.custom_price, qi.line_subtotal,
			COALESCE(m.name, ''), COALESCE(m.unit, '')
		FROM quote_items qi
		LEFT JOIN materials m ON m.id = qi.material_id
		WHERE qi.quote_id IN (`+placeholders(len(quotes))+`)
		ORDER BY qi.quote_id, qi.position`, args...)
	if err != nil {
		return fmt.Errorf("load quote items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var quoteID, unit string
		var li core.LineItem
		var custom sql.NullFloat64
		if err := rows.Scan(&quoteID, &li.ID, &li.MaterialRef, &li.Quantity, &li.UnitPrice, &custom,
			&li.LineSubtotal, &li.MaterialName, &unit); err != nil {
			return fmt.Errorf("scan quote item: %w", err)
		}
		if custom.Valid {
			v := custom.Float64
			li.CustomPrice = &v
		}
		li.MaterialUnit = core.Unit(unit)
		i := index[quoteID]
		quotes[i].LineItems = append(quotes[i].LineItems, li)
	}
	return rows.Err()
}

func insertItems(ctx context.Context, tx DBTX, quoteID string, items []core.LineItem) error {
	for i, li := range items {
		var custom sql.NullFloat64
		if li.CustomPrice != nil {
			custom = sql.NullFloat64{Float64: *li.CustomPrice, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO quote_items
			(id, quote_id, position, material_id, quantity, unit_price, custom_price, line_subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			li.ID, quoteID, i, li.MaterialRef, li.Quantity, li.UnitPrice, custom, li.LineSubtotal)
		if err != nil {
			return fmt.Errorf("insert quote item %d: %w", i, mapError(err))
		}
	}
	return nil
}

func scanQuote(row rowScanner) (core.Quote, error) {
	var q core.Quote
	var status, createdAt, updatedAt string
	var expiresAt sql.NullString
	err := row.Scan(&q.ID, &q.Number, &q.Client, &q.Project,
		&q.Labor.Hours, &q.Labor.RatePerHour, &q.Labor.Total,
		&q.Painting.AreaSqMeters, &q.Painting.RatePerSqMeter, &q.Painting.Total,
		&q.MaterialsSubtotal, &q.GrandTotal, &status, &q.Notes, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		return q, err
	}
	q.Status = core.Status(status)
	if q.ExpiresAt, err = parseNullableTime(expiresAt); err != nil {
		return q, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return q, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return q, err
	}
	return q, nil
}
