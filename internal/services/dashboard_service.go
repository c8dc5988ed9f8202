package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cotizador/internal/core"
	"cotizador/internal/storage"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultActivityLimit = 10
	MaxActivityLimit     = 50
	recentMaterialsFeed  = 5
	topClientsLimit      = 5
	topMaterialsLimit    = 5
	dashboardMonths      = 6
)

// DashboardService computes reporting aggregates on demand. Nothing is cached:
// every call reads current data.
type DashboardService struct {
	repo     *storage.SQLiteRepository
	now      func() time.Time
	location *time.Location
}

func NewDashboardService(repo *storage.SQLiteRepository, now func() time.Time, loc *time.Location) *DashboardService {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{repo: repo, now: now, location: loc}
}

// Stats runs the independent aggregations concurrently.
func (s *DashboardService) Stats(ctx context.Context) (core.DashboardStats, error) {
	now := s.now().In(s.location)
	var out core.DashboardStats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Quotes, err = s.repo.QuoteOverview(ctx, now)
		return err
	})
	g.Go(func() (err error) {
		out.Materials, err = s.repo.MaterialStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.ByStatus, err = s.repo.QuotesByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.TopClients, err = s.repo.TopClients(ctx, topClientsLimit)
		return err
	})
	g.Go(func() (err error) {
		out.ByMonth, err = s.repo.MonthlyTotals(ctx, now, dashboardMonths)
		return err
	})
	g.Go(func() (err error) {
		out.TopMaterials, err = s.repo.TopMaterials(ctx, topMaterialsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return out, nil
}

// RecentActivity merges the newest quotes with the newest catalog additions,
// newest first, truncated to limit (1..50).
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]core.Activity, error) {
	if limit < 1 || limit > MaxActivityLimit {
		return nil, core.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxActivityLimit))
	}

	var quotes []core.Quote
	var materials []core.Material
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		quotes, err = s.repo.RecentQuotes(gctx, limit)
		return err
	})
	g.Go(func() (err error) {
		materials, err = s.repo.RecentMaterials(gctx, recentMaterialsFeed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}

	feed := make([]core.Activity, 0, len(quotes)+len(materials))
	for _, q := range quotes {
		feed = append(feed, core.Activity{
			Type:        core.ActivityQuote,
			Action:      "created",
			ID:          q.ID,
			Description: fmt.Sprintf("Quote %s created for %s", q.Number, q.Client),
			Amount:      q.GrandTotal,
			Date:        q.CreatedAt,
			Data:        q,
		})
	}
	for _, m := range materials {
		feed = append(feed, core.Activity{
			Type:        core.ActivityMaterial,
			Action:      "added",
			ID:          m.ID,
			Description: fmt.Sprintf("Material %s added to the catalog", m.Name),
			Amount:      m.UnitPrice,
			Date:        m.CreatedAt,
			Data:        m,
		})
	}
	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Date.After(feed[j].Date) })
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// Summary returns quick counters, each read in parallel.
func (s *DashboardService) Summary(ctx context.Context) (core.Summary, error) {
	monthStart, _ := core.MonthBounds(s.now().In(s.location))
	var out core.Summary

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalQuotes, err = s.repo.CountQuotes(ctx, time.Time{})
		return err
	})
	g.Go(func() (err error) {
		out.ActiveMaterials, err = s.repo.CountActiveMaterials(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.QuotesThisMonth, err = s.repo.CountQuotes(ctx, monthStart)
		return err
	})
	g.Go(func() (err error) {
		out.TotalBilled, err = s.repo.TotalBilled(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("dashboard summary: %w", err)
	}
	return out, nil
}
