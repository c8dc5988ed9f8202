package storage

import (
	"context"
	"fmt"
	"time"

	"cotizador/internal/core"
)

// QuoteStats aggregates all quotes; ByMonth covers the 12 months ending with now's month.
func (r *SQLiteRepository) QuoteStats(ctx context.Context, now time.Time) (core.QuoteStats, error) {
	var s core.QuoteStats
	overview, err := r.QuoteOverview(ctx, now)
	if err != nil {
		return s, err
	}
	s.Count, s.Total, s.Average = overview.Count, overview.Billed, overview.Average

	if s.ByStatus, err = r.QuotesByStatus(ctx); err != nil {
		return s, err
	}
	if s.ByMonth, err = r.MonthlyTotals(ctx, now, 12); err != nil {
		return s, err
	}
	return s, nil
}

// QuoteOverview returns headline quote figures, counting this month in now's location.
func (r *SQLiteRepository) QuoteOverview(ctx context.Context, now time.Time) (core.QuoteOverview, error) {
	var o core.QuoteOverview
	start, end := core.MonthBounds(now)
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(grand_total), 0),
			COALESCE(AVG(grand_total), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN 1 ELSE 0 END), 0)
		FROM quotes`, formatTime(start), formatTime(end)).Scan(&o.Count, &o.Billed, &o.Average, &o.ThisMonth)
	if err != nil {
		return o, fmt.Errorf("quote overview: %w", err)
	}
	return o, nil
}

// QuotesByStatus groups quotes by status, most frequent first.
func (r *SQLiteRepository) QuotesByStatus(ctx context.Context) ([]core.StatusBreakdown, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*), COALESCE(SUM(grand_total), 0)
		FROM quotes GROUP BY status ORDER BY COUNT(*) DESC, status`)
	if err != nil {
		return nil, fmt.Errorf("quotes by status: %w", err)
	}
	defer rows.Close()

	out := []core.StatusBreakdown{}
	for rows.Next() {
		var b core.StatusBreakdown
		var status string
		if err := rows.Scan(&status, &b.Count, &b.Total); err != nil {
			return nil, fmt.Errorf("scan status breakdown: %w", err)
		}
		b.Status = core.Status(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

// TopClients ranks clients by billed amount.
func (r *SQLiteRepository) TopClients(ctx context.Context, limit int) ([]core.ClientTotal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT client, COUNT(*), COALESCE(SUM(grand_total), 0) AS billed
		FROM quotes GROUP BY client ORDER BY billed DESC, client LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top clients: %w", err)
	}
	defer rows.Close()

	out := []core.ClientTotal{}
	for rows.Next() {
		var c core.ClientTotal
		if err := rows.Scan(&c.Client, &c.Count, &c.Total); err != nil {
			return nil, fmt.Errorf("scan client total: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MonthlyTotals returns one bucket per month for the n months ending with
// now's month, oldest first. Buckets follow now's location.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, now time.Time, n int) ([]core.MonthTotal, error) {
	months := core.LastMonths(now, n)
	if n <= 0 {
		return months, nil
	}
	from := time.Date(months[0].Year, time.Month(months[0].Month), 1, 0, 0, 0, 0, now.Location())
	_, to := core.MonthBounds(now)

	rows, err := r.db.QueryContext(ctx,
		`SELECT created_at, grand_total FROM quotes WHERE created_at >= ? AND created_at < ?`,
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	index := make(map[[2]int]int, n)
	for i, m := range months {
		index[[2]int{m.Year, m.Month}] = i
	}
	for rows.Next() {
		var createdAt string
		var total float64
		if err := rows.Scan(&createdAt, &total); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		t = t.In(now.Location())
		if i, ok := index[[2]int{t.Year(), int(t.Month())}]; ok {
			months[i].Count++
			months[i].Total += total
		}
	}
	return months, rows.Err()
}

// TopMaterials ranks existing materials by how many line items reference them.
func (r *SQLiteRepository) TopMaterials(ctx context.Context, limit int) ([]core.MaterialUsage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT m.id, m.name, m.unit, COUNT(*) AS uses, COALESCE(SUM(qi.quantity), 0)
		FROM quote_items qi
		JOIN materials m ON m.id = qi.material_id
		GROUP BY m.id, m.name, m.unit
		ORDER BY uses DESC, m.name
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top materials: %w", err)
	}
	defer rows.Close()

	out := []core.MaterialUsage{}
	for rows.Next() {
		var u core.MaterialUsage
		var unit string
		if err := rows.Scan(&u.MaterialID, &u.Name, &unit, &u.TimesUsed, &u.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan material usage: %w", err)
		}
		u.Unit = core.Unit(unit)
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountQuotes counts quotes created at or after since; a zero since counts all.
func (r *SQLiteRepository) CountQuotes(ctx context.Context, since time.Time) (int, error) {
	var n int
	var err error
	if since.IsZero() {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes WHERE created_at >= ?`, formatTime(since)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count quotes: %w", err)
	}
	return n, nil
}

// TotalBilled sums the grand total of every quote.
func (r *SQLiteRepository) TotalBilled(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(grand_total), 0) FROM quotes`).Scan(&total); err != nil {
		return 0, fmt.Errorf("total billed: %w", err)
	}
	return total, nil
}
