package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cotizador/internal/core"
	applog "cotizador/internal/log"
	"cotizador/internal/storage"

	"github.com/google/uuid"
)

// MaterialInput is the editable part of a catalog entry. A nil Active keeps
// the current value, or true for new materials.
type MaterialInput struct {
	Name        string    `json:"name"`
	Unit        core.Unit `json:"unit"`
	UnitPrice   float64   `json:"unitPrice"`
	Description string    `json:"description,omitempty"`
	Active      *bool     `json:"active,omitempty"`
}

type MaterialService struct {
	repo *storage.SQLiteRepository
	now  func() time.Time
}

func NewMaterialService(repo *storage.SQLiteRepository, now func() time.Time) *MaterialService {
	if now == nil {
		now = time.Now
	}
	return &MaterialService{repo: repo, now: now}
}

func (s *MaterialService) Create(ctx context.Context, in MaterialInput) (core.Material, error) {
	now := s.now().Truncate(time.Microsecond)
	m := core.Material{
		ID:        uuid.NewString(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyMaterialInput(&m, in)
	if err := m.Validate(); err != nil {
		return core.Material{}, err
	}
	if err := s.repo.CreateMaterial(ctx, m); err != nil {
		return core.Material{}, fmt.Errorf("create material: %w", err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentMaterial).InfoContext(ctx, "Material created",
		applog.NewFields().WithMaterial(m.ID, m.Name).WithOperation(applog.OpCreate).ToSlice()...)
	return m, nil
}

func (s *MaterialService) Update(ctx context.Context, id string, in MaterialInput) (core.Material, error) {
	m, err := s.repo.GetMaterial(ctx, id)
	if err != nil {
		return core.Material{}, err
	}
	applyMaterialInput(&m, in)
	m.UpdatedAt = s.now().Truncate(time.Microsecond)
	if err := m.Validate(); err != nil {
		return core.Material{}, err
	}
	if err := s.repo.UpdateMaterial(ctx, m); err != nil {
		return core.Material{}, fmt.Errorf("update material: %w", err)
	}
	slog.InfoContext(ctx, "Material updated", "material_id", m.ID, "active", m.Active)
	return m, nil
}

// Delete removes a catalog entry. Quotes referencing it keep their line items.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteMaterial(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Material deleted", "material_id", id)
	return nil
}

func (s *MaterialService) Get(ctx context.Context, id string) (core.Material, error) {
	return s.repo.GetMaterial(ctx, id)
}

func (s *MaterialService) List(ctx context.Context, f storage.MaterialFilter) ([]core.Material, int, error) {
	return s.repo.ListMaterials(ctx, f)
}

func (s *MaterialService) Active(ctx context.Context) ([]core.Material, error) {
	return s.repo.ListActiveMaterials(ctx)
}

func (s *MaterialService) Stats(ctx context.Context) (core.MaterialStats, error) {
	return s.repo.MaterialStats(ctx)
}

func applyMaterialInput(m *core.Material, in MaterialInput) {
	m.Name = strings.TrimSpace(in.Name)
	m.Unit = in.Unit
	m.UnitPrice = in.UnitPrice
	m.Description = strings.TrimSpace(in.Description)
	if in.Active != nil {
		m.Active = *in.Active
	}
}
