package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cotizador/internal/core"
)

// MaterialFilter narrows a catalog listing.
type MaterialFilter struct {
	Search string
	Active *bool
	Page
}

const materialColumns = `id, name, unit, unit_price, description, active, created_at, updated_at`

func (r *SQLiteRepository) CreateMaterial(ctx context.Context, m core.Material) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO materials (`+materialColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, string(m.Unit), m.UnitPrice, m.Description, m.Active,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert material: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) GetMaterial(ctx context.Context, id string) (core.Material, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = ?`, id)
	m, err := scanMaterial(row)
	if err != nil {
		return core.Material{}, fmt.Errorf("get material %s: %w", id, mapError(err))
	}
	return m, nil
}

// GetMaterialsByIDs returns the materials that exist among ids, keyed by id.
func (r *SQLiteRepository) GetMaterialsByIDs(ctx context.Context, ids []string) (map[string]core.Material, error) {
	out := make(map[string]core.Material, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get materials by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateMaterial(ctx context.Context, m core.Material) error {
	res, err := r.db.ExecContext(ctx, `UPDATE materials
		SET name = ?, unit = ?, unit_price = ?, description = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, string(m.Unit), m.UnitPrice, m.Description, m.Active, formatTime(m.UpdatedAt), m.ID)
	if err != nil {
		return fmt.Errorf("update material %s: %w", m.ID, mapError(err))
	}
	return requireAffected(res, "material", m.ID)
}

func (r *SQLiteRepository) DeleteMaterial(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM materials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete material %s: %w", id, err)
	}
	return requireAffected(res, "material", id)
}

// ListMaterials returns a page of materials sorted by name and the total match count.
func (r *SQLiteRepository) ListMaterials(ctx context.Context, f MaterialFilter) ([]core.Material, int, error) {
	var where []string
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(s))
	}
	if f.Active != nil {
		where = append(where, `active = ?`)
		args = append(args, *f.Active)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM materials`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count materials: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+materialColumns+` FROM materials`+clause+
			` ORDER BY name COLLATE NOCASE, id LIMIT ? OFFSET ?`,
		append(args, f.limit(), f.offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	materials := []core.Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, 0, err
		}
		materials = append(materials, m)
	}
	return materials, total, rows.Err()
}

// ListActiveMaterials returns every selectable material sorted by name.
func (r *SQLiteRepository) ListActiveMaterials(ctx context.Context) ([]core.Material, error) {
	active := true
	materials, _, err := r.ListMaterials(ctx, MaterialFilter{Active: &active})
	return materials, err
}

// RecentMaterials returns the most recently created materials.
func (r *SQLiteRepository) RecentMaterials(ctx context.Context, limit int) ([]core.Material, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+materialColumns+` FROM materials ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent materials: %w", err)
	}
	defer rows.Close()

	materials := []core.Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// CountActiveMaterials counts materials available for selection.
func (r *SQLiteRepository) CountActiveMaterials(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM materials WHERE active = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active materials: %w", err)
	}
	return n, nil
}

// MaterialStats aggregates the catalog.
func (r *SQLiteRepository) MaterialStats(ctx context.Context) (core.MaterialStats, error) {
	var s core.MaterialStats
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(unit_price), 0),
			COALESCE(MIN(unit_price), 0),
			COALESCE(MAX(unit_price), 0)
		FROM materials`).Scan(&s.Total, &s.Active, &s.AveragePrice, &s.MinPrice, &s.MaxPrice)
	if err != nil {
		return s, fmt.Errorf("material stats: %w", err)
	}
	s.Inactive = s.Total - s.Active

	rows, err := r.db.QueryContext(ctx,
		`SELECT unit, COUNT(*) FROM materials GROUP BY unit ORDER BY COUNT(*) DESC, unit`)
	if err != nil {
		return s, fmt.Errorf("material stats by unit: %w", err)
	}
	defer rows.Close()

	s.ByUnit = []core.UnitCount{}
	for rows.Next() {
		var uc core.UnitCount
		var unit string
		if err := rows.Scan(&unit, &uc.Count); err != nil {
			return s, fmt.Errorf("scan unit count: %w", err)
		}
		uc.Unit = core.Unit(unit)
		s.ByUnit = append(s.ByUnit, uc)
	}
	return s, rows.Err()
}

// DeleteAllMaterials empties the catalog.
func (r *SQLiteRepository) DeleteAllMaterials(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM materials`); err != nil {
		return fmt.Errorf("delete all materials: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (core.Material, error) {
	var m core.Material
	var unit, createdAt, updatedAt string
	if err := row.Scan(&m.ID, &m.Name, &unit, &m.UnitPrice, &m.Description, &m.Active, &createdAt, &updatedAt); err != nil {
		return m, err
	}
	m.Unit = core.Unit(unit)
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return m, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return m, err
	}
	return m, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
