package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cotizador/internal/core"
)

// NextQuoteSequence allocates the next per-month quote sequence inside q.
// A period without a counter is seeded past both the number of quotes created
// in [monthStart, monthEnd) and the highest sequence already issued for it.
func NextQuoteSequence(ctx context.Context, q DBTX, monthStart, monthEnd time.Time) (int, error) {
	period := core.Period(monthStart)

	floor, err := sequenceFloor(ctx, q, period, monthStart, monthEnd)
	if err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO quote_sequences (period, next_seq) VALUES (?, ?)`,
		period, floor+1); err != nil {
		return 0, fmt.Errorf("seeding quote sequence for %s: %w", period, err)
	}

	var next int
	err = q.QueryRowContext(ctx, `UPDATE quote_sequences
		SET next_seq = next_seq + 1
		WHERE period = ?
		RETURNING next_seq - 1`, period).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocating quote sequence for %s: %w", period, err)
	}
	return next, nil
}

// ResyncQuoteSequence moves the counter of the month past any sequence already
// stored, recovering from numbers inserted outside the allocator.
func ResyncQuoteSequence(ctx context.Context, q DBTX, monthStart, monthEnd time.Time) error {
	period := core.Period(monthStart)
	floor, err := sequenceFloor(ctx, q, period, monthStart, monthEnd)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO quote_sequences (period, next_seq) VALUES (?, ?)
		ON CONFLICT (period) DO UPDATE SET next_seq = MAX(next_seq, excluded.next_seq)`,
		period, floor+1)
	if err != nil {
		return fmt.Errorf("resync quote sequence for %s: %w", period, err)
	}
	return nil
}

func sequenceFloor(ctx context.Context, q DBTX, period string, monthStart, monthEnd time.Time) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quotes WHERE created_at >= ? AND created_at < ?`,
		formatTime(monthStart), formatTime(monthEnd)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count quotes for %s: %w", period, err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT number FROM quotes WHERE number LIKE ?`,
		core.QuoteNumberPrefix+"-"+period+"-%")
	if err != nil {
		return 0, fmt.Errorf("list quote numbers for %s: %w", period, err)
	}
	defer rows.Close()

	highest := count
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return 0, fmt.Errorf("scan quote number: %w", err)
		}
		if _, seq, err := core.ParseQuoteNumber(number); err == nil && seq > highest {
			highest = seq
		}
	}
	return highest, rows.Err()
}

// ResyncQuoteSequence is the repository-bound form used after a number conflict.
func (r *SQLiteRepository) ResyncQuoteSequence(ctx context.Context, createdAt time.Time) error {
	start, end := core.MonthBounds(createdAt)
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return ResyncQuoteSequence(ctx, tx, start, end)
	})
}
